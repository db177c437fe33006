package service

import (
	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// TripleEMA — трендовая лента из трёх EMA с откатом к быстрой.
// Вход: лента выровнена по тренду старшего ТФ, цена откатилась к быстрой EMA
// и вернулась за неё.
type TripleEMA struct {
	p config.StrategyParams
}

func NewTripleEMA(p config.StrategyParams) *TripleEMA { return &TripleEMA{p: p} }

func (s *TripleEMA) Name() string { return models.StrategyTripleEMA }

func (s *TripleEMA) Evaluate(w MarketView) (models.RawCandidate, bool) {
	closes := models.Closes(w.Fast)
	if len(closes) < s.p.EMASlow+5 {
		return models.RawCandidate{}, false
	}

	emaFast := indicator.EMA(closes, s.p.EMAFast)
	emaMedium := indicator.EMA(closes, s.p.EMAMedium)
	emaSlow := indicator.EMA(closes, s.p.EMASlow)
	rsiVals := indicator.RSI(closes, s.p.EMARSIWindow)

	lastFast := indicator.Last(emaFast)
	lastMedium := indicator.Last(emaMedium)
	lastSlow := indicator.Last(emaSlow)
	lastRSI := indicator.Last(rsiVals)
	prevFast := indicator.At(emaFast, 1)
	if !indicator.Defined(lastFast) || !indicator.Defined(lastMedium) ||
		!indicator.Defined(lastSlow) || !indicator.Defined(lastRSI) ||
		!indicator.Defined(prevFast) {
		return models.RawCandidate{}, false
	}

	trendUp, trendDown := s.trend(w.Slow)
	if !trendUp && !trendDown {
		return models.RawCandidate{}, false
	}

	lastClose := closes[len(closes)-1]
	prevClose := closes[len(closes)-2]

	bullishRibbon := lastFast > lastMedium && lastMedium > lastSlow
	bearishRibbon := lastFast < lastMedium && lastMedium < lastSlow

	ctx := map[string]float64{
		"ema_fast":   lastFast,
		"ema_medium": lastMedium,
		"ema_slow":   lastSlow,
		"rsi":        lastRSI,
	}

	// Лонг: бычья лента + тренд вверх + откат под быструю EMA и возврат
	if bullishRibbon && trendUp &&
		prevClose <= prevFast && lastClose > lastFast &&
		lastRSI > 30 && lastRSI < 80 {
		score := 7.0
		if lastRSI < 70 {
			score++ // импульс ещё не перегрет
		}
		if lastMedium > indicator.At(emaMedium, 3) {
			score++ // средняя EMA растёт, не плоский рынок
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

	// Шорт зеркально
	if bearishRibbon && trendDown &&
		prevClose >= prevFast && lastClose < lastFast &&
		lastRSI < 70 && lastRSI > 20 {
		score := 7.0
		if lastRSI > 30 {
			score++
		}
		if lastMedium < indicator.At(emaMedium, 3) {
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

// trend — фильтр по EMA трендового ТФ: выше — вверх, ниже — вниз.
// Непрогретая EMA = нет тренда = нет сигнала.
func (s *TripleEMA) trend(slow []models.Candle) (up, down bool) {
	closes := models.Closes(slow)
	trendEMA := indicator.Last(indicator.EMA(closes, s.p.TrendEMA))
	if !indicator.Defined(trendEMA) || len(closes) == 0 {
		return false, false
	}
	last := closes[len(closes)-1]
	return last > trendEMA, last < trendEMA
}
