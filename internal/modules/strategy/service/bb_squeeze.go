package service

import (
	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// BBSqueeze — сжатие полос Боллинджера и пробой наружу.
// Вход только из узких полос: ширина ниже порога, закрытие за полосой,
// предыдущая свеча ещё внутри.
type BBSqueeze struct {
	p config.StrategyParams
}

func NewBBSqueeze(p config.StrategyParams) *BBSqueeze { return &BBSqueeze{p: p} }

func (s *BBSqueeze) Name() string { return models.StrategyBBSqueeze }

func (s *BBSqueeze) Evaluate(w MarketView) (models.RawCandidate, bool) {
	closes := models.Closes(w.Fast)
	if len(closes) < s.p.BBWindow+10 {
		return models.RawCandidate{}, false
	}

	upper, middle, lower := indicator.Bollinger(closes, s.p.BBWindow, s.p.BBStdDev)
	rsiVals := indicator.RSI(closes, s.p.RSIWindow)

	lastUpper := indicator.Last(upper)
	lastMiddle := indicator.Last(middle)
	lastLower := indicator.Last(lower)
	lastRSI := indicator.Last(rsiVals)
	prevUpper := indicator.At(upper, 1)
	prevLower := indicator.At(lower, 1)
	if !indicator.Defined(lastUpper) || !indicator.Defined(lastMiddle) ||
		!indicator.Defined(lastLower) || !indicator.Defined(lastRSI) ||
		!indicator.Defined(prevUpper) || !indicator.Defined(prevLower) {
		return models.RawCandidate{}, false
	}

	bandWidth := (lastUpper - lastLower) / lastMiddle * 100
	if bandWidth >= s.p.BBSqueezeThreshold {
		return models.RawCandidate{}, false
	}

	lastClose := closes[len(closes)-1]
	prevClose := closes[len(closes)-2]

	ctx := map[string]float64{
		"upper_band": lastUpper,
		"lower_band": lastLower,
		"band_width": bandWidth,
		"rsi":        lastRSI,
	}

	volumeExpanding := w.Fast[len(w.Fast)-1].Volume > avgVolume(w.Fast, s.p.BBWindow)

	// Лонг: пробой верхней полосы с импульсом, но ещё не перекупленность
	if lastClose > lastUpper && prevClose <= prevUpper &&
		lastRSI > 50 && lastRSI < 80 {
		score := 7.0
		if bandWidth < s.p.BBSqueezeThreshold/2 {
			score++ // выход из особенно узкого сжатия
		}
		if volumeExpanding {
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

	// Шорт: пробой нижней полосы
	if lastClose < lastLower && prevClose >= prevLower &&
		lastRSI < 50 && lastRSI > 20 {
		score := 7.0
		if bandWidth < s.p.BBSqueezeThreshold/2 {
			score++
		}
		if volumeExpanding {
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
