// Package perf — append-only леджер выпущенных сигналов и их итогов.
// Статистика — обратная связь для скоринга в агрегаторе; историю задним
// числом никогда не переписываем.
package perf

import (
	"sync"
	"time"

	"signal_bot/internal/models"
)

// Store — опциональное зеркало леджера (Postgres). Ошибки записи не
// блокируют пайплайн.
type Store interface {
	InsertRecord(rec models.PerformanceRecord) error
	UpdateOutcome(rec models.PerformanceRecord) error
}

type Tracker struct {
	mu     sync.Mutex
	recs   []*models.PerformanceRecord
	nextID int64

	window int // rolling-окно для статистики по стратегиям
	store  Store
	onErr  func(err error)
}

func New(window int) *Tracker {
	if window <= 0 {
		window = 50
	}
	return &Tracker{window: window, nextID: 1}
}

// WithStore подключает персистентное зеркало.
func (t *Tracker) WithStore(s Store, onErr func(err error)) *Tracker {
	t.store = s
	t.onErr = onErr
	return t
}

// Record добавляет запись в состоянии pending и возвращает её id.
func (t *Tracker) Record(sig models.Signal) int64 {
	t.mu.Lock()
	rec := &models.PerformanceRecord{
		ID:      t.nextID,
		Signal:  sig,
		Outcome: models.OutcomePending,
	}
	t.nextID++
	t.recs = append(t.recs, rec)
	cp := *rec
	t.mu.Unlock()

	if t.store != nil {
		if err := t.store.InsertRecord(cp); err != nil && t.onErr != nil {
			t.onErr(err)
		}
	}
	return cp.ID
}

// Resolve выставляет итог. Повторный резолв игнорируется.
func (t *Tracker) Resolve(id int64, outcome models.Outcome, rMultiple float64, at time.Time) {
	t.mu.Lock()
	var cp models.PerformanceRecord
	found := false
	for _, rec := range t.recs {
		if rec.ID != id {
			continue
		}
		if rec.Outcome != models.OutcomePending {
			break
		}
		rec.Outcome = outcome
		rec.RMultiple = rMultiple
		rec.ResolvedAt = at
		cp = *rec
		found = true
		break
	}
	t.mu.Unlock()

	if found && t.store != nil {
		if err := t.store.UpdateOutcome(cp); err != nil && t.onErr != nil {
			t.onErr(err)
		}
	}
}

// WinRate по всем резолвленным записям.
func (t *Tracker) WinRate() (rate float64, samples int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	wins := 0
	for _, rec := range t.recs {
		switch rec.Outcome {
		case models.OutcomeWin:
			wins++
			samples++
		case models.OutcomeLoss:
			samples++
		}
	}
	if samples == 0 {
		return 0, 0
	}
	return float64(wins) / float64(samples), samples
}

// AvgR — средний реализованный R по резолвленным записям.
func (t *Tracker) AvgR() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	sum, n := 0.0, 0
	for _, rec := range t.recs {
		if rec.Outcome == models.OutcomeWin || rec.Outcome == models.OutcomeLoss {
			sum += rec.RMultiple
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// StrategyWinRate — rolling win rate стратегии по последним window записям,
// где она была победителем.
func (t *Tracker) StrategyWinRate(strategy string) (rate float64, samples int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	wins := 0
	for i := len(t.recs) - 1; i >= 0 && samples < t.window; i-- {
		rec := t.recs[i]
		if len(rec.Signal.Strategies) == 0 || rec.Signal.Strategies[0] != strategy {
			continue
		}
		switch rec.Outcome {
		case models.OutcomeWin:
			wins++
			samples++
		case models.OutcomeLoss:
			samples++
		}
	}
	if samples == 0 {
		return 0, 0
	}
	return float64(wins) / float64(samples), samples
}

// Pending — количество нерезолвленных записей (для health-лога).
func (t *Tracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, rec := range t.recs {
		if rec.Outcome == models.OutcomePending {
			n++
		}
	}
	return n
}
