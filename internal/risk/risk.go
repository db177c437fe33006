// Package risk — расчёт уровней SL/TP и жёсткий фильтр по R:R.
// Отказ здесь — не ошибка и не warning: кандидат просто не становится
// сигналом и не трогает кулдаун.
package risk

import (
	"math"

	"signal_bot/internal/indicator"
	"signal_bot/internal/models"
)

type Config struct {
	TargetRR    float64 // минимальный и одновременно целевой R:R, напр. 3.0
	MinSLPct    float64 // нижняя граница стопа, % от entry, напр. 0.5
	MaxSLPct    float64 // верхняя граница стопа, % от entry, напр. 2.0
	ATRMult     float64 // k: stop = ATR*k, напр. 1.5
	LevelWeight float64 // вес структурного уровня, напр. 0.8
}

// Levels — терминальные уровни сделки.
type Levels struct {
	Entry float64
	Stop  float64
	Take  float64
	RR    float64
}

// ComputeLevels строит SL/TP по ATR с учётом ближайшего структурного уровня.
// support/resistance могут быть NaN — тогда работает чистый ATR-метод.
// Возвращает false когда уровни построить нельзя (нет ATR, битый entry)
// или итоговый R:R ниже целевого.
func ComputeLevels(side models.Side, entry, atrValue, support, resistance float64, cfg Config) (Levels, bool) {
	if entry <= 0 || !indicator.Defined(atrValue) || atrValue <= 0 {
		return Levels{}, false
	}

	atrPct := atrValue / entry * 100.0

	// расстояние до структурного уровня в процентах от entry
	levelPct := 0.0
	switch side {
	case models.SideLong:
		if indicator.Defined(support) && support > 0 && support < entry {
			levelPct = (entry - support) / entry * 100.0 * cfg.LevelWeight
		}
	case models.SideShort:
		if indicator.Defined(resistance) && resistance > entry {
			levelPct = (resistance - entry) / entry * 100.0 * cfg.LevelWeight
		}
	default:
		return Levels{}, false
	}

	// берём более консервативный (широкий) стоп, затем зажимаем в [min, max]
	rawPct := math.Max(atrPct*cfg.ATRMult, levelPct)
	slPct := math.Max(cfg.MinSLPct, math.Min(cfg.MaxSLPct, rawPct))

	slDist := entry * slPct / 100.0
	tpDist := slDist * cfg.TargetRR

	var stop, take float64
	if side == models.SideLong {
		stop = entry - slDist
		take = entry + tpDist
	} else {
		stop = entry + slDist
		take = entry - tpDist
	}
	if stop <= 0 || take <= 0 {
		return Levels{}, false
	}

	riskDist := math.Abs(entry - stop)
	rewardDist := math.Abs(take - entry)
	if riskDist <= 0 {
		return Levels{}, false
	}
	rr := rewardDist / riskDist
	// ниже целевого — отбрасываем, не зажимаем
	if rr < cfg.TargetRR-1e-9 {
		return Levels{}, false
	}

	return Levels{Entry: entry, Stop: stop, Take: take, RR: rr}, true
}
