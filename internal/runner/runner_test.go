package runner

import (
	"context"
	"testing"
	"time"

	"signal_bot/internal/cooldown"
	"signal_bot/internal/models"
	aggsvc "signal_bot/internal/modules/aggregator/service"
	"signal_bot/internal/modules/config"
	mdsvc "signal_bot/internal/modules/marketdata/service"
	stratsvc "signal_bot/internal/modules/strategy/service"
	"signal_bot/internal/notify"
	"signal_bot/internal/perf"
	"signal_bot/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type stubNotifier struct {
	signals []models.Signal
	closes  []notify.CloseReason
}

func (s *stubNotifier) SendSignal(_ context.Context, sig models.Signal) error {
	s.signals = append(s.signals, sig)
	return nil
}

func (s *stubNotifier) SendClose(_ context.Context, _ models.Signal, reason notify.CloseReason, _ float64) error {
	s.closes = append(s.closes, reason)
	return nil
}

func (s *stubNotifier) SendService(_ context.Context, _ string, _ ...any) {}

type stubEvaluator struct {
	fire  bool
	score float64
	side  models.Side
}

func (e *stubEvaluator) Name() string { return "stub" }

func (e *stubEvaluator) Evaluate(w stratsvc.MarketView) (models.RawCandidate, bool) {
	if !e.fire {
		return models.RawCandidate{}, false
	}
	last := w.Fast[len(w.Fast)-1]
	return models.RawCandidate{
		InstID:   w.InstID,
		Strategy: "stub",
		Side:     e.side,
		Entry:    last.Close,
		Score:    e.score,
	}, true
}

func testConfig() *config.Config {
	return &config.Config{
		Instruments:       []string{"BTC-USDT"},
		TFFast:            "15m",
		TFSlow:            "1h",
		TFMedium:          "4h",
		CandlesLimit:      300,
		TargetRR:          3.0,
		MinSLPct:          0.5,
		MaxSLPct:          2.0,
		ATRWindow:         14,
		ATRMult:           1.5,
		MinVolatilityPct:  1.0,
		BreakevenTriggerR: 0.5,
		PerfWindow:        50,
		PerfFloor:         0.35,
		PerfMinSamples:    10,
		Strategy: config.StrategyParams{
			QualityFloor: 7,
			LevelsWindow: 12,
		},
		CycleInterval:     5 * time.Minute,
		CooldownGlobal:    30 * time.Minute,
		CooldownStrategy:  3 * time.Minute,
		CooldownAfterStop: time.Hour,
		MaxSignalHold:     4 * time.Hour,
	}
}

func flatCandles(n int, start time.Time) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			Open: 100, High: 102, Low: 98.5, Close: 100, Volume: 10,
			Ts: start.Add(time.Duration(i) * 15 * time.Minute),
		}
	}
	return out
}

func newTestRunner(cfg *config.Config, ev *stubEvaluator) (*Runner, *stubNotifier, *mdsvc.Store, *cooldown.Tracker, *perf.Tracker) {
	store := mdsvc.NewStore(cfg.TFFast, cfg.TFSlow, cfg.TFMedium, cfg.CandlesLimit)
	cool := cooldown.New(cfg.CooldownGlobal, cfg.CooldownStrategy)
	tracker := perf.New(cfg.PerfWindow)
	agg := aggsvc.New([]string{"stub"}, cfg.Strategy.QualityFloor, cfg.PerfFloor, cfg.PerfMinSamples, tracker)
	n := &stubNotifier{}
	r := New(cfg, store, []stratsvc.Evaluator{ev}, agg, cool, tracker, n)
	return r, n, store, cool, tracker
}

func TestSignalEmittedOncePerCooldown(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{fire: true, score: 8, side: models.SideLong}
	r, n, store, _, tracker := newTestRunner(cfg, ev)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.Warm("BTC-USDT", "15m", flatCandles(30, start))

	now := start.Add(30 * 15 * time.Minute)
	r.evalInstrument(context.Background(), "BTC-USDT", now)

	if len(n.signals) != 1 {
		t.Fatalf("expected 1 signal, got %d", len(n.signals))
	}
	sig := n.signals[0]
	if !(sig.Stop < sig.Entry && sig.Entry < sig.Take) {
		t.Fatalf("long ordering violated: sl=%v entry=%v tp=%v", sig.Stop, sig.Entry, sig.Take)
	}
	if sig.RR < cfg.TargetRR {
		t.Fatalf("rr %v below target %v", sig.RR, cfg.TargetRR)
	}
	// ATR 3.5% * 1.5 зажимается в max_sl_pct=2%
	if sig.Stop != 98 || sig.Take != 106 {
		t.Fatalf("expected sl=98 tp=106, got sl=%v tp=%v", sig.Stop, sig.Take)
	}
	if tracker.Pending() != 1 {
		t.Fatalf("signal must be recorded as pending, got %d", tracker.Pending())
	}

	// второй цикл внутри кулдауна: качество не важно, сигнал подавлен
	ev.score = 10
	r.evalInstrument(context.Background(), "BTC-USDT", now.Add(time.Minute))
	if len(n.signals) != 1 {
		t.Fatalf("cooldown must suppress the second signal, got %d", len(n.signals))
	}
}

func TestRiskRejectionKeepsCooldownIdle(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{fire: true, score: 9, side: models.SideLong}
	r, n, store, cool, _ := newTestRunner(cfg, ev)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	// 10 свечей: ATR(14) не прогрет, риск-аннотация обязана отказать
	store.Warm("BTC-USDT", "15m", flatCandles(10, start))

	now := start.Add(10 * 15 * time.Minute)
	r.evalInstrument(context.Background(), "BTC-USDT", now)

	if len(n.signals) != 0 {
		t.Fatalf("undefined ATR must produce no signal, got %d", len(n.signals))
	}
	if !cool.Allow("BTC-USDT", "stub", now) {
		t.Fatal("risk-rejected candidate must not consume the cooldown")
	}
}

func TestMalformedWindowSkipsInstrument(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{fire: true, score: 9, side: models.SideLong}
	r, n, store, cool, _ := newTestRunner(cfg, ev)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	bad := flatCandles(30, start)
	bad[20].Ts = bad[19].Ts // немонотонный таймстемп

	store.Warm("BTC-USDT", "15m", bad)
	now := start.Add(30 * 15 * time.Minute)
	r.evalInstrument(context.Background(), "BTC-USDT", now)

	if len(n.signals) != 0 {
		t.Fatal("malformed window must produce no signal")
	}
	if !cool.Allow("BTC-USDT", "stub", now) {
		t.Fatal("malformed window must not advance cooldown state")
	}
}

func TestMalformedTrendWindowSkipsInstrument(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{fire: true, score: 9, side: models.SideLong}
	r, n, store, _, _ := newTestRunner(cfg, ev)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.Warm("BTC-USDT", "15m", flatCandles(30, start))

	// битое окно трендового ТФ режет цикл так же, как входного
	badSlow := flatCandles(5, start)
	badSlow[3].High = 10 // high < low
	store.Warm("BTC-USDT", "1h", badSlow)

	r.evalInstrument(context.Background(), "BTC-USDT", start.Add(30*15*time.Minute))
	if len(n.signals) != 0 {
		t.Fatal("malformed trend window must produce no signal")
	}
}

func TestEntryCandleWickDoesNotCloseSignal(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{fire: true, score: 8, side: models.SideLong}
	r, n, store, _, tracker := newTestRunner(cfg, ev)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	w := flatCandles(30, start)
	w[29].Low = 97 // тень входной свечи ниже будущего стопа (98)
	store.Warm("BTC-USDT", "15m", w)

	now := start.Add(30 * 15 * time.Minute)
	r.evalInstrument(context.Background(), "BTC-USDT", now)
	if len(n.signals) != 1 {
		t.Fatal("setup: expected one signal")
	}

	// цикл короче свечи: следующий проход снова видит входную свечу,
	// её пре-энтри экстремумы сигнал судить не должны
	ev.fire = false
	r.evalInstrument(context.Background(), "BTC-USDT", now.Add(5*time.Minute))
	if len(n.closes) != 0 {
		t.Fatalf("entry candle must not resolve its own signal, got %v", n.closes)
	}
	if _, samples := tracker.WinRate(); samples != 0 {
		t.Fatalf("pre-entry wick produced a resolved outcome, samples=%d", samples)
	}
	if tracker.Pending() != 1 {
		t.Fatalf("signal must stay pending, got %d", tracker.Pending())
	}

	// свеча, открытая после входа, судит как обычно
	store.Append(models.CandleTick{
		InstID: "BTC-USDT", TimeframeRaw: "15m",
		Open: 100, High: 107, Low: 99.5, Close: 106.5, Volume: 10,
		Start: now,
	})
	r.evalInstrument(context.Background(), "BTC-USDT", now.Add(15*time.Minute))
	if len(n.closes) != 1 || n.closes[0] != notify.CloseTP {
		t.Fatalf("expected TP close on the post-entry candle, got %v", n.closes)
	}
}

func TestTakeProfitResolution(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{fire: true, score: 8, side: models.SideLong}
	r, n, store, _, tracker := newTestRunner(cfg, ev)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.Warm("BTC-USDT", "15m", flatCandles(30, start))
	now := start.Add(30 * 15 * time.Minute)
	r.evalInstrument(context.Background(), "BTC-USDT", now)
	if len(n.signals) != 1 {
		t.Fatal("setup: expected one signal")
	}

	// следующая свеча пробивает тейк (106)
	ev.fire = false
	store.Append(models.CandleTick{
		InstID: "BTC-USDT", TimeframeRaw: "15m",
		Open: 100, High: 107, Low: 99.5, Close: 106.5, Volume: 10,
		Start: now,
	})
	r.evalInstrument(context.Background(), "BTC-USDT", now.Add(15*time.Minute))

	if len(n.closes) != 1 || n.closes[0] != notify.CloseTP {
		t.Fatalf("expected TP close, got %v", n.closes)
	}
	rate, samples := tracker.WinRate()
	if samples != 1 || rate != 1.0 {
		t.Fatalf("expected 1 win, got rate=%v samples=%d", rate, samples)
	}
	if tracker.Pending() != 0 {
		t.Fatal("resolved signal must leave pending state")
	}
}

func TestStopLossPausesInstrument(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{fire: true, score: 8, side: models.SideLong}
	r, n, store, cool, tracker := newTestRunner(cfg, ev)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.Warm("BTC-USDT", "15m", flatCandles(30, start))
	now := start.Add(30 * 15 * time.Minute)
	r.evalInstrument(context.Background(), "BTC-USDT", now)

	// свеча пробивает стоп (98)
	ev.fire = false
	store.Append(models.CandleTick{
		InstID: "BTC-USDT", TimeframeRaw: "15m",
		Open: 100, High: 100.5, Low: 97.5, Close: 97.8, Volume: 10,
		Start: now,
	})
	closeAt := now.Add(15 * time.Minute)
	r.evalInstrument(context.Background(), "BTC-USDT", closeAt)

	if len(n.closes) != 1 || n.closes[0] != notify.CloseSL {
		t.Fatalf("expected SL close, got %v", n.closes)
	}
	rate, samples := tracker.WinRate()
	if samples != 1 || rate != 0 {
		t.Fatalf("expected 1 loss, got rate=%v samples=%d", rate, samples)
	}
	// пауза после стопа длиннее обычного глобального кулдауна
	afterGlobal := now.Add(cfg.CooldownGlobal + time.Minute)
	if cool.Allow("BTC-USDT", "stub", afterGlobal) {
		t.Fatal("instrument must stay paused after a stop hit")
	}
}

func TestBreakevenMove(t *testing.T) {
	cfg := testConfig()
	ev := &stubEvaluator{fire: true, score: 8, side: models.SideLong}
	r, n, store, _, tracker := newTestRunner(cfg, ev)

	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	store.Warm("BTC-USDT", "15m", flatCandles(30, start))
	now := start.Add(30 * 15 * time.Minute)
	r.evalInstrument(context.Background(), "BTC-USDT", now)

	ev.fire = false
	// 0.5R = 101: стоп переезжает в безубыток
	store.Append(models.CandleTick{
		InstID: "BTC-USDT", TimeframeRaw: "15m",
		Open: 100, High: 101.5, Low: 99.8, Close: 101, Volume: 10,
		Start: now,
	})
	r.evalInstrument(context.Background(), "BTC-USDT", now.Add(15*time.Minute))
	if len(n.closes) != 0 {
		t.Fatalf("breakeven move must not close the signal, got %v", n.closes)
	}

	// возврат к entry закрывает в ноль
	store.Append(models.CandleTick{
		InstID: "BTC-USDT", TimeframeRaw: "15m",
		Open: 101, High: 101.2, Low: 99.9, Close: 100.1, Volume: 10,
		Start: now.Add(15 * time.Minute),
	})
	r.evalInstrument(context.Background(), "BTC-USDT", now.Add(30*time.Minute))

	if len(n.closes) != 1 || n.closes[0] != notify.CloseBE {
		t.Fatalf("expected BE close, got %v", n.closes)
	}
	// безубыток не считается ни вином, ни лоссом
	if _, samples := tracker.WinRate(); samples != 0 {
		t.Fatalf("breakeven exit must not enter win rate, samples=%d", samples)
	}
}
