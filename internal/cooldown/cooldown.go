// Package cooldown — леджер таймстемпов последних сигналов.
// Два независимых контура: глобальный по инструменту и по паре
// инструмент+стратегия. Оба должны пройти.
package cooldown

import (
	"sync"
	"time"

	"signal_bot/internal/helper"
)

type Tracker struct {
	mu          sync.Mutex
	globalTil   map[string]time.Time // instID -> cooling until
	strategyTil map[string]time.Time // instID:strategy -> cooling until

	globalDur   time.Duration
	strategyDur time.Duration
}

func New(globalDur, strategyDur time.Duration) *Tracker {
	return &Tracker{
		globalTil:   make(map[string]time.Time),
		strategyTil: make(map[string]time.Time),
		globalDur:   globalDur,
		strategyDur: strategyDur,
	}
}

// Allow — можно ли принимать сигнал по инструменту от данной стратегии.
// Состояние не трогает: Mark вызывается отдельно и только после того,
// как кандидат пережил риск-аннотацию.
func (t *Tracker) Allow(instID, strategy string, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if until, ok := t.globalTil[instID]; ok && now.Before(until) {
		return false
	}
	if until, ok := t.strategyTil[helper.CooldownKey(instID, strategy)]; ok && now.Before(until) {
		return false
	}
	return true
}

// Mark переводит оба контура в cooling.
func (t *Tracker) Mark(instID, strategy string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.globalTil[instID] = now.Add(t.globalDur)
	t.strategyTil[helper.CooldownKey(instID, strategy)] = now.Add(t.strategyDur)
}

// Pause продлевает глобальный кулдаун инструмента, напр. пауза после стопа.
// Уже более поздний дедлайн не укорачивает.
func (t *Tracker) Pause(instID string, until time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.globalTil[instID]; !ok || until.After(cur) {
		t.globalTil[instID] = until
	}
}

// CoolingUntil — конец глобального кулдауна (для health-лога).
func (t *Tracker) CoolingUntil(instID string) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	until, ok := t.globalTil[instID]
	return until, ok
}
