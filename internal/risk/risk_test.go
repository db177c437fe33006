package risk

import (
	"math"
	"testing"

	"signal_bot/internal/models"
)

func defaultCfg() Config {
	return Config{TargetRR: 3.0, MinSLPct: 0.5, MaxSLPct: 2.0, ATRMult: 1.0, LevelWeight: 0.8}
}

func TestClampToMinSL(t *testing.T) {
	// ATR 0.1 на цене 100 = 0.1% < min 0.5% -> стоп зажимается к 0.5%
	lv, ok := ComputeLevels(models.SideLong, 100, 0.1, math.NaN(), math.NaN(), defaultCfg())
	if !ok {
		t.Fatal("levels must be computed")
	}
	if math.Abs(lv.Stop-99.5) > 1e-9 {
		t.Fatalf("stop = %v, want 99.5", lv.Stop)
	}
	if math.Abs(lv.Take-101.5) > 1e-9 {
		t.Fatalf("take = %v, want 101.5", lv.Take)
	}
	if math.Abs(lv.RR-3.0) > 1e-9 {
		t.Fatalf("rr = %v, want 3.0", lv.RR)
	}
}

func TestUndefinedATRRejected(t *testing.T) {
	if _, ok := ComputeLevels(models.SideLong, 100, math.NaN(), 99, 101, defaultCfg()); ok {
		t.Fatal("undefined ATR must reject the candidate")
	}
	if _, ok := ComputeLevels(models.SideLong, 100, 0, 99, 101, defaultCfg()); ok {
		t.Fatal("zero ATR must reject the candidate")
	}
}

func TestSideOrdering(t *testing.T) {
	cfg := defaultCfg()
	long, ok := ComputeLevels(models.SideLong, 100, 1.0, 98.5, 102, cfg)
	if !ok {
		t.Fatal("long levels")
	}
	if !(long.Stop < long.Entry && long.Entry < long.Take) {
		t.Fatalf("long ordering broken: %+v", long)
	}

	short, ok := ComputeLevels(models.SideShort, 100, 1.0, 98, 101.5, cfg)
	if !ok {
		t.Fatal("short levels")
	}
	if !(short.Take < short.Entry && short.Entry < short.Stop) {
		t.Fatalf("short ordering broken: %+v", short)
	}
}

func TestStructuralLevelWidensStop(t *testing.T) {
	cfg := defaultCfg()
	// поддержка в 1.5% от цены: level*0.8 = 1.2% > atr 1.0% -> стоп шире
	lv, ok := ComputeLevels(models.SideLong, 100, 1.0, 98.5, math.NaN(), cfg)
	if !ok {
		t.Fatal("levels must be computed")
	}
	if math.Abs(lv.Stop-98.8) > 1e-9 {
		t.Fatalf("stop = %v, want 98.8 (structural widening)", lv.Stop)
	}
}

func TestMaxSLClamp(t *testing.T) {
	// ATR 5% зажимается к max 2%
	lv, ok := ComputeLevels(models.SideShort, 100, 5.0, math.NaN(), math.NaN(), defaultCfg())
	if !ok {
		t.Fatal("levels must be computed")
	}
	if math.Abs(lv.Stop-102) > 1e-9 {
		t.Fatalf("stop = %v, want 102", lv.Stop)
	}
}

func TestRRNeverBelowTarget(t *testing.T) {
	for _, atr := range []float64{0.05, 0.3, 1.0, 4.0, 9.0} {
		lv, ok := ComputeLevels(models.SideLong, 250, atr, math.NaN(), math.NaN(), defaultCfg())
		if !ok {
			continue
		}
		if lv.RR < 3.0-1e-9 {
			t.Fatalf("accepted signal with RR %v < target", lv.RR)
		}
	}
}
