package runner

import (
	"context"
	"math"
	"time"

	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	"signal_bot/internal/notify"
	"signal_bot/pkg/logger"
)

// openSignal — выпущенный сигнал до касания SL/TP.
// stop может сдвинуться в безубыток, исходный Signal не мутируется.
type openSignal struct {
	id        int64
	sig       models.Signal
	stop      float64
	breakeven bool
	openedAt  time.Time
	entryTs   time.Time // Ts входной свечи: она и всё до неё сигнал не судят
}

type closedSignal struct {
	id      int64
	sig     models.Signal
	outcome models.Outcome
	rMult   float64
	reason  notify.CloseReason
	price   float64
	expired bool
}

func (r *Runner) trackOpen(id int64, sig models.Signal, now, entryTs time.Time) {
	r.mu.Lock()
	r.open[id] = &openSignal{id: id, sig: sig, stop: sig.Stop, openedAt: now, entryTs: entryTs}
	r.mu.Unlock()
	metrics.OpenSignals.Inc()
}

// resolveOpen гоняет открытые сигналы инструмента по закрытой свече.
// Если свеча зацепила и стоп и тейк, считаем худший исход: стоп первым.
func (r *Runner) resolveOpen(ctx context.Context, instID string, last models.Candle) {
	now := last.Ts
	var closed []closedSignal

	r.mu.Lock()
	for id, os := range r.open {
		if os.sig.InstID != instID {
			continue
		}
		if c, done := r.judge(os, last, now); done {
			c.id = id
			closed = append(closed, c)
			delete(r.open, id)
		}
	}
	r.mu.Unlock()

	for _, c := range closed {
		r.perf.Resolve(c.id, c.outcome, c.rMult, now)
		metrics.OpenSignals.Dec()

		if c.outcome == models.OutcomeLoss {
			// после стопа инструмент отдыхает дольше обычного кулдауна
			r.cool.Pause(instID, now.Add(r.cfg.CooldownAfterStop))
		}

		if c.expired {
			logger.Info("[RUNNER] %s signal expired after %s", instID, r.cfg.MaxSignalHold)
			r.n.SendService(ctx, "⌛ %s %s: сигнал истёк без касания SL/TP", c.sig.Side, instID)
			continue
		}
		if err := r.n.SendClose(ctx, c.sig, c.reason, c.price); err != nil {
			logger.Error("[RUNNER] close notify %s: %v", instID, err)
		}
	}
}

// judge решает судьбу одного открытого сигнала по одной свече.
// Мутирует только стоп (перенос в безубыток). Вызывается под r.mu.
func (r *Runner) judge(os *openSignal, last models.Candle, now time.Time) (closedSignal, bool) {
	// вход произошёл на закрытии entryTs-свечи: её экстремумы и всё
	// раньше неё — пре-энтри движение, касанием не считается
	if !last.Ts.After(os.entryTs) {
		return closedSignal{}, false
	}

	sig := os.sig
	slDist := math.Abs(sig.Entry - sig.Stop)

	switch sig.Side {
	case models.SideLong:
		if last.Low <= os.stop {
			if os.breakeven {
				return closedSignal{sig: sig, outcome: models.OutcomeExpired, rMult: 0, reason: notify.CloseBE, price: os.stop}, true
			}
			return closedSignal{sig: sig, outcome: models.OutcomeLoss, rMult: -1, reason: notify.CloseSL, price: os.stop}, true
		}
		if last.High >= sig.Take {
			return closedSignal{sig: sig, outcome: models.OutcomeWin, rMult: sig.RR, reason: notify.CloseTP, price: sig.Take}, true
		}
		if !os.breakeven && last.High >= sig.Entry+slDist*r.cfg.BreakevenTriggerR {
			os.stop = sig.Entry
			os.breakeven = true
		}
	case models.SideShort:
		if last.High >= os.stop {
			if os.breakeven {
				return closedSignal{sig: sig, outcome: models.OutcomeExpired, rMult: 0, reason: notify.CloseBE, price: os.stop}, true
			}
			return closedSignal{sig: sig, outcome: models.OutcomeLoss, rMult: -1, reason: notify.CloseSL, price: os.stop}, true
		}
		if last.Low <= sig.Take {
			return closedSignal{sig: sig, outcome: models.OutcomeWin, rMult: sig.RR, reason: notify.CloseTP, price: sig.Take}, true
		}
		if !os.breakeven && last.Low <= sig.Entry-slDist*r.cfg.BreakevenTriggerR {
			os.stop = sig.Entry
			os.breakeven = true
		}
	}

	if r.cfg.MaxSignalHold > 0 && now.Sub(os.openedAt) >= r.cfg.MaxSignalHold {
		return closedSignal{sig: sig, outcome: models.OutcomeExpired, rMult: 0, expired: true, price: last.Close}, true
	}
	return closedSignal{}, false
}
