package service

import (
	"math"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// BreakoutRetest — микро-пробой свингового уровня с ретестом.
// Две свечи назад цена ушла за уровень, прошлая свеча вернулась к нему,
// текущая держится по сторону пробоя.
type BreakoutRetest struct {
	p config.StrategyParams
}

// Допуск "около уровня" при ретесте, в долях цены.
const retestTolerance = 0.002

func NewBreakoutRetest(p config.StrategyParams) *BreakoutRetest { return &BreakoutRetest{p: p} }

func (s *BreakoutRetest) Name() string { return models.StrategyBreakoutRetest }

func (s *BreakoutRetest) Evaluate(w MarketView) (models.RawCandidate, bool) {
	if len(w.Fast) < s.p.BreakoutLookback+5 {
		return models.RawCandidate{}, false
	}

	highs := models.Highs(w.Fast)
	lows := models.Lows(w.Fast)
	closes := models.Closes(w.Fast)
	n := len(closes)

	// Свинг последних lookback свечей, без двух текущих
	swingHigh := math.Inf(-1)
	swingLow := math.Inf(1)
	for i := n - s.p.BreakoutLookback; i < n-2; i++ {
		if highs[i] > swingHigh {
			swingHigh = highs[i]
		}
		if lows[i] < swingLow {
			swingLow = lows[i]
		}
	}

	lastClose := closes[n-1]
	prevClose := closes[n-2]
	prev2Close := closes[n-3]

	// Ретест слабее импульса пробоя
	weakRetest := true
	if n > 3 {
		weakRetest = math.Abs(prevClose-prev2Close) < math.Abs(closes[n-3]-closes[n-4])
	}

	// Лонг: пробили свинг-хай, откатились к уровню, держимся выше
	brokeAbove := prev2Close > swingHigh
	retestingHigh := prevClose < swingHigh && lastClose > swingHigh*(1-retestTolerance)
	if brokeAbove && retestingHigh && weakRetest && lastClose > prevClose {
		score := 7.0
		if (prev2Close-swingHigh)/swingHigh > retestTolerance {
			score++ // пробой с запасом, не касание
		}
		if lastClose > swingHigh {
			score++ // ретест не зашёл обратно под уровень
		}
		return emit(s.p, models.RawCandidate{
			InstID:   w.InstID,
			Strategy: s.Name(),
			Side:     models.SideLong,
			Entry:    lastClose,
			Score:    score,
			Context: map[string]float64{
				"breakout_level": swingHigh,
				"swing_low":      swingLow,
			},
		})
	}

	// Шорт: зеркально от свинг-лоу
	brokeBelow := prev2Close < swingLow
	retestingLow := prevClose > swingLow && lastClose < swingLow*(1+retestTolerance)
	if brokeBelow && retestingLow && weakRetest && lastClose < prevClose {
		score := 7.0
		if (swingLow-prev2Close)/swingLow > retestTolerance {
			score++
		}
		if lastClose < swingLow {
			score++
		}
		return emit(s.p, models.RawCandidate{
			InstID:   w.InstID,
			Strategy: s.Name(),
			Side:     models.SideShort,
			Entry:    lastClose,
			Score:    score,
			Context: map[string]float64{
				"breakout_level": swingLow,
				"swing_high":     swingHigh,
			},
		})
	}

	return models.RawCandidate{}, false
}
