package service

import (
	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// KeltnerStoch — касание границы канала Кельтнера с разворотом стохастика.
type KeltnerStoch struct {
	p config.StrategyParams
}

// Допуск касания границы канала, в долях цены.
const keltnerTouchTolerance = 0.002

func NewKeltnerStoch(p config.StrategyParams) *KeltnerStoch { return &KeltnerStoch{p: p} }

func (s *KeltnerStoch) Name() string { return models.StrategyKeltnerStoch }

func (s *KeltnerStoch) Evaluate(w MarketView) (models.RawCandidate, bool) {
	if len(w.Fast) < s.p.KeltnerWindow+20 {
		return models.RawCandidate{}, false
	}

	upper, _, lower := indicator.Keltner(w.Fast, s.p.KeltnerWindow, s.p.KeltnerATRMult)
	kVals, _ := indicator.Stochastic(w.Fast, s.p.StochKPeriod, s.p.StochDPeriod)

	lastUpper := indicator.Last(upper)
	lastLower := indicator.Last(lower)
	lastK := indicator.Last(kVals)
	prevK := indicator.At(kVals, 1)
	if !indicator.Defined(lastUpper) || !indicator.Defined(lastLower) ||
		!indicator.Defined(lastK) || !indicator.Defined(prevK) {
		return models.RawCandidate{}, false
	}

	closes := models.Closes(w.Fast)
	lastClose := closes[len(closes)-1]

	ctx := map[string]float64{
		"keltner_upper": lastUpper,
		"keltner_lower": lastLower,
		"stoch_k":       lastK,
	}

	// Лонг: касание нижней границы + стохастик перепродан и развернулся вверх
	atLower := lastClose <= lastLower*(1+keltnerTouchTolerance)
	if atLower && lastK < 30 && lastK > prevK {
		score := 7.0
		if lastK < 20 {
			score++ // глубокая перепроданность
		}
		if lastClose < lastLower {
			score++ // вышли за канал целиком
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

	// Шорт: касание верхней границы + стохастик перекуплен и развернулся вниз
	atUpper := lastClose >= lastUpper*(1-keltnerTouchTolerance)
	if atUpper && lastK > 70 && lastK < prevK {
		score := 7.0
		if lastK > 80 {
			score++
		}
		if lastClose > lastUpper {
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
