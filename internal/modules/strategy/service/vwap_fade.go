package service

import (
	"math"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// VWAPFade — возврат к VWAP после отклонения.
// Вход по свече-отказу: длинная тень против отклонения и начало возврата.
type VWAPFade struct {
	p config.StrategyParams
}

// Тень отказа должна быть заметно больше тела.
const rejectionWickRatio = 1.5

func NewVWAPFade(p config.StrategyParams) *VWAPFade { return &VWAPFade{p: p} }

func (s *VWAPFade) Name() string { return models.StrategyVWAPFade }

func (s *VWAPFade) Evaluate(w MarketView) (models.RawCandidate, bool) {
	if len(w.Fast) < s.p.VWAPWindow+10 {
		return models.RawCandidate{}, false
	}

	vwapVals := indicator.VWAP(w.Fast, s.p.VWAPWindow, indicator.VWAPSession(s.p.VWAPSession))
	lastVWAP := indicator.Last(vwapVals)
	prevVWAP := indicator.At(vwapVals, 1)
	if !indicator.Defined(lastVWAP) || !indicator.Defined(prevVWAP) {
		return models.RawCandidate{}, false
	}

	closes := models.Closes(w.Fast)
	lastClose := closes[len(closes)-1]
	prevClose := closes[len(closes)-2]

	divergencePct := math.Abs(lastClose-lastVWAP) / lastVWAP * 100
	if divergencePct <= s.p.VWAPDivergencePct {
		return models.RawCandidate{}, false
	}

	upperWick, lowerWick, body := candleShape(w.Fast)

	ctx := map[string]float64{
		"vwap":           lastVWAP,
		"divergence_pct": divergencePct,
	}

	// Лонг: цена ниже VWAP, длинная нижняя тень, начался возврат
	if lastClose < lastVWAP && lowerWick > body*rejectionWickRatio && lastClose > prevClose {
		score := 7.0
		if divergencePct > s.p.VWAPDivergencePct*2 {
			score++ // отклонение сильно растянуто
		}
		if lowerWick > body*2.5 {
			score++
		}
		ctx["lower_shadow"] = lowerWick
		return emit(s.p, models.RawCandidate{
			InstID:   w.InstID,
			Strategy: s.Name(),
			Side:     models.SideLong,
			Entry:    lastClose,
			Score:    score,
			Context:  ctx,
		})
	}

	// Шорт: цена выше VWAP, длинная верхняя тень, начался отказ
	if lastClose > lastVWAP && upperWick > body*rejectionWickRatio && lastClose < prevClose {
		score := 7.0
		if divergencePct > s.p.VWAPDivergencePct*2 {
			score++
		}
		if upperWick > body*2.5 {
			score++
		}
		ctx["upper_shadow"] = upperWick
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
