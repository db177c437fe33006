package service

import (
	"math"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// MarketView — снимок окон по одному инструменту на один цикл.
// Только чтение, эвалюаторы ничего не мутируют и не зависят от порядка запуска.
type MarketView struct {
	InstID string
	Fast   []models.Candle // входной ТФ (15m)
	Slow   []models.Candle // трендовый ТФ (1h)
	Medium []models.Candle // старший ТФ (4h)
}

type Evaluator interface {
	Name() string
	// ok==false когда сетапа нет, индикаторы не прогреты
	// или качество ниже порога
	Evaluate(w MarketView) (models.RawCandidate, bool)
}

func clampScore(s float64) float64 {
	if s > 10 {
		return 10
	}
	if s < 0 {
		return 0
	}
	return s
}

// emit — единая точка выхода: клампим качество и режем по порогу.
func emit(p config.StrategyParams, cand models.RawCandidate) (models.RawCandidate, bool) {
	cand.Score = clampScore(cand.Score)
	if cand.Score < p.QualityFloor {
		return models.RawCandidate{}, false
	}
	return cand, true
}

// candleShape — тени и тело последней свечи окна.
func candleShape(w []models.Candle) (upperWick, lowerWick, body float64) {
	c := w[len(w)-1]
	body = math.Abs(c.Close - c.Open)
	upperWick = c.High - math.Max(c.Close, c.Open)
	lowerWick = math.Min(c.Close, c.Open) - c.Low
	return upperWick, lowerWick, body
}

// avgVolume — средний объём последних n свечей.
func avgVolume(w []models.Candle, n int) float64 {
	if len(w) < n || n <= 0 {
		return 0
	}
	sum := 0.0
	for _, c := range w[len(w)-n:] {
		sum += c.Volume
	}
	return sum / float64(n)
}
