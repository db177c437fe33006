package service

import (
	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// RangeScalp — отбой от края боковика.
// Торгуем только внутри узкого диапазона, вход по свече-отказу у края.
type RangeScalp struct {
	p config.StrategyParams
}

const (
	// Шире 2.5% — это уже тренд, не боковик.
	rangeMaxPct = 0.025
	// Зона "у края" — пятая часть диапазона.
	rangeEdgeZone = 0.2
)

func NewRangeScalp(p config.StrategyParams) *RangeScalp { return &RangeScalp{p: p} }

func (s *RangeScalp) Name() string { return models.StrategyRangeScalp }

func (s *RangeScalp) Evaluate(w MarketView) (models.RawCandidate, bool) {
	if len(w.Fast) < s.p.RangeLookback+10 {
		return models.RawCandidate{}, false
	}

	highs := models.Highs(w.Fast)
	lows := models.Lows(w.Fast)
	closes := models.Closes(w.Fast)
	n := len(closes)

	rangeHigh := highs[n-s.p.RangeLookback]
	rangeLow := lows[n-s.p.RangeLookback]
	for i := n - s.p.RangeLookback; i < n; i++ {
		if highs[i] > rangeHigh {
			rangeHigh = highs[i]
		}
		if lows[i] < rangeLow {
			rangeLow = lows[i]
		}
	}
	rangeSize := rangeHigh - rangeLow

	lastClose := closes[n-1]
	prevClose := closes[n-2]
	if rangeSize/lastClose > rangeMaxPct {
		return models.RawCandidate{}, false
	}

	upperWick, lowerWick, body := candleShape(w.Fast)
	volumeConfirm := w.Fast[n-1].Volume > avgVolume(w.Fast, s.p.RangeLookback)

	ctx := map[string]float64{
		"range_high": rangeHigh,
		"range_low":  rangeLow,
		"range_mid":  (rangeHigh + rangeLow) / 2,
	}

	// Лонг: у поддержки, отказная нижняя тень, закрытие вверх
	nearSupport := lastClose < rangeLow+rangeSize*rangeEdgeZone
	if nearSupport && lowerWick > body*rejectionWickRatio && lastClose > prevClose {
		score := 7.0
		if rangeSize/lastClose < rangeMaxPct/2 {
			score++ // особенно плотный боковик
		}
		if volumeConfirm {
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

	// Шорт: у сопротивления, отказная верхняя тень, закрытие вниз
	nearResistance := lastClose > rangeHigh-rangeSize*rangeEdgeZone
	if nearResistance && upperWick > body*rejectionWickRatio && lastClose < prevClose {
		score := 7.0
		if rangeSize/lastClose < rangeMaxPct/2 {
			score++
		}
		if volumeConfirm {
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
