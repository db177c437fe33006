package service

import (
	"fmt"

	"signal_bot/internal/models"
	"signal_bot/internal/modules/config"
)

// New собирает эвалюатор по имени. Набор закрытый: новая стратегия —
// это новый тип плюс ветка здесь, никакого динамического диспатча.
func New(name string, p config.StrategyParams) (Evaluator, error) {
	switch name {
	case models.StrategyTripleEMA:
		return NewTripleEMA(p), nil
	case models.StrategyBBSqueeze:
		return NewBBSqueeze(p), nil
	case models.StrategyBreakoutRetest:
		return NewBreakoutRetest(p), nil
	case models.StrategyVWAPFade:
		return NewVWAPFade(p), nil
	case models.StrategyFastMACD:
		return NewFastMACD(p), nil
	case models.StrategyRangeScalp:
		return NewRangeScalp(p), nil
	case models.StrategyKeltnerStoch:
		return NewKeltnerStoch(p), nil
	case models.StrategyVWAPEMA:
		return NewVWAPEMAConfluence(p), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// BuildSet сохраняет порядок активного набора:
// этот же порядок — стабильный тай-брейк в агрегаторе.
func BuildSet(names []string, p config.StrategyParams) ([]Evaluator, error) {
	out := make([]Evaluator, 0, len(names))
	for _, name := range names {
		e, err := New(name, p)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
