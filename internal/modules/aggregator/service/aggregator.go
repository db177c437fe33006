package service

import (
	"signal_bot/internal/models"
)

// PerfStats — обратная связь от перфоманс-трекера.
// Читаем только статистику, историю агрегатор не трогает.
type PerfStats interface {
	StrategyWinRate(strategy string) (rate float64, samples int)
}

// Штрафы и бонусы скоринга.
const (
	confluenceBonus = 1.0
	perfPenalty     = 1.0
)

// Selection — победитель цикла по одному инструменту до риск-аннотации.
type Selection struct {
	Candidate  models.RawCandidate
	Score      float64  // скорректированное качество
	Strategies []string // победитель первым, дальше подтвердившие
}

// Aggregator выбирает не больше одного кандидата на инструмент за цикл.
// Полностью детерминирован: при равном скоре решает порядок регистрации
// стратегий из конфига.
type Aggregator struct {
	order          map[string]int
	qualityFloor   float64
	perfFloor      float64
	perfMinSamples int
	perf           PerfStats
}

func New(strategyOrder []string, qualityFloor, perfFloor float64, perfMinSamples int, perf PerfStats) *Aggregator {
	order := make(map[string]int, len(strategyOrder))
	for i, name := range strategyOrder {
		order[name] = i
	}
	return &Aggregator{
		order:          order,
		qualityFloor:   qualityFloor,
		perfFloor:      perfFloor,
		perfMinSamples: perfMinSamples,
		perf:           perf,
	}
}

// Select принимает кандидатов одного инструмента за один цикл.
// Скор корректируется перфоманс-штрафом и конфлюенс-бонусом до сравнения,
// итог капится на 10. Ничего не мутирует, повторный вызов на тех же
// кандидатах даёт тот же результат.
func (a *Aggregator) Select(cands []models.RawCandidate) (Selection, bool) {
	if len(cands) == 0 {
		return Selection{}, false
	}

	type scored struct {
		cand     models.RawCandidate
		adjusted float64
		agreeing []string
	}

	items := make([]scored, 0, len(cands))
	for _, c := range cands {
		adjusted := c.Score

		// Стратегия с просевшим винрейтом уступает при прочих равных
		if a.perf != nil {
			rate, samples := a.perf.StrategyWinRate(c.Strategy)
			if samples >= a.perfMinSamples && rate < a.perfFloor {
				adjusted -= perfPenalty
			}
		}

		// Конфлюенс: независимая стратегия согласна по направлению
		var agreeing []string
		for _, other := range cands {
			if other.Strategy != c.Strategy && other.Side == c.Side {
				agreeing = append(agreeing, other.Strategy)
			}
		}
		if len(agreeing) > 0 {
			adjusted += confluenceBonus
		}
		if adjusted > 10 {
			adjusted = 10
		}

		items = append(items, scored{cand: c, adjusted: adjusted, agreeing: agreeing})
	}

	best := -1
	for i, it := range items {
		if best < 0 {
			best = i
			continue
		}
		if it.adjusted > items[best].adjusted {
			best = i
			continue
		}
		if it.adjusted == items[best].adjusted &&
			a.rank(it.cand.Strategy) < a.rank(items[best].cand.Strategy) {
			best = i
		}
	}

	winner := items[best]
	if winner.adjusted < a.qualityFloor {
		return Selection{}, false
	}

	strategies := append([]string{winner.cand.Strategy}, a.sortByOrder(winner.agreeing)...)
	return Selection{
		Candidate:  winner.cand,
		Score:      winner.adjusted,
		Strategies: strategies,
	}, true
}

func (a *Aggregator) rank(strategy string) int {
	if r, ok := a.order[strategy]; ok {
		return r
	}
	return len(a.order)
}

// sortByOrder — подтвердившие идут в порядке регистрации, не в порядке
// появления в срезе кандидатов.
func (a *Aggregator) sortByOrder(names []string) []string {
	out := append([]string(nil), names...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && a.rank(out[j]) < a.rank(out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
