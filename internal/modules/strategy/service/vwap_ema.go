package service

import (
	"math"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// VWAPEMAConfluence — откат импульса к зоне, где VWAP и быстрая EMA сходятся.
type VWAPEMAConfluence struct {
	p config.StrategyParams
}

const (
	// VWAP и EMA считаются сошедшимися ближе 0.2% цены.
	confluenceTolerance = 0.002
	// Цена "у зоны" ближе 0.3% от VWAP.
	nearZoneTolerance = 0.003
)

func NewVWAPEMAConfluence(p config.StrategyParams) *VWAPEMAConfluence {
	return &VWAPEMAConfluence{p: p}
}

func (s *VWAPEMAConfluence) Name() string { return models.StrategyVWAPEMA }

func (s *VWAPEMAConfluence) Evaluate(w MarketView) (models.RawCandidate, bool) {
	closes := models.Closes(w.Fast)
	if len(closes) < s.p.VWAPWindow+10 {
		return models.RawCandidate{}, false
	}

	vwapVals := indicator.VWAP(w.Fast, s.p.VWAPWindow, indicator.VWAPSession(s.p.VWAPSession))
	emaVals := indicator.EMA(closes, s.p.EMAFast)

	lastVWAP := indicator.Last(vwapVals)
	lastEMA := indicator.Last(emaVals)
	if !indicator.Defined(lastVWAP) || !indicator.Defined(lastEMA) {
		return models.RawCandidate{}, false
	}

	lastClose := closes[len(closes)-1]
	prevClose := closes[len(closes)-2]

	confluence := math.Abs(lastVWAP-lastEMA)/lastClose < confluenceTolerance
	nearZone := math.Abs(lastClose-lastVWAP)/lastClose < nearZoneTolerance
	if !confluence || !nearZone {
		return models.RawCandidate{}, false
	}

	ctx := map[string]float64{
		"vwap": lastVWAP,
		"ema":  lastEMA,
	}

	volumeRising := w.Fast[len(w.Fast)-1].Volume > avgVolume(w.Fast, s.p.VWAPWindow)

	// Лонг: цена над зоной и возобновляет рост
	if lastClose > prevClose && lastClose > lastVWAP {
		score := 7.0
		if math.Abs(lastVWAP-lastEMA)/lastClose < confluenceTolerance/2 {
			score++ // зона особенно плотная
		}
		if volumeRising {
			score++
		}
		return emit(s.p, models.RawCandidate{
			InstID:   w.InstID,
			Strategy: s.Name(),
			Side:     models.SideLong,
			Entry:    lastClose,
			Score:    score,
			Context:  ctx,
		})
	}

	// Шорт: цена под зоной и возобновляет снижение
	if lastClose < prevClose && lastClose < lastVWAP {
		score := 7.0
		if math.Abs(lastVWAP-lastEMA)/lastClose < confluenceTolerance/2 {
			score++
		}
		if volumeRising {
			score++
		}
		return emit(s.p, models.RawCandidate{
			InstID:   w.InstID,
			Strategy: s.Name(),
			Side:     models.SideShort,
			Entry:    lastClose,
			Score:    score,
			Context:  ctx,
		})
	}

	return models.RawCandidate{}, false
}
