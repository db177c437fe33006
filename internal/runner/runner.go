// Package runner — цикл оценки: снапшот окон -> эвалюаторы -> агрегатор ->
// кулдаун -> риск -> сигнал. Циклы не перекрываются, инструменты внутри
// цикла считаются параллельно.
package runner

import (
	"context"
	"sync"
	"time"

	"signal_bot/internal/cooldown"
	"signal_bot/internal/indicator"
	"signal_bot/internal/metrics"
	"signal_bot/internal/models"
	aggsvc "signal_bot/internal/modules/aggregator/service"
	"signal_bot/internal/modules/config"
	mdsvc "signal_bot/internal/modules/marketdata/service"
	stratsvc "signal_bot/internal/modules/strategy/service"
	"signal_bot/internal/notify"
	"signal_bot/internal/perf"
	"signal_bot/internal/risk"
	"signal_bot/pkg/logger"

	"github.com/opentracing/opentracing-go"
)

type Runner struct {
	cfg   *config.Config
	store *mdsvc.Store
	evs   []stratsvc.Evaluator
	agg   *aggsvc.Aggregator
	cool  *cooldown.Tracker
	perf  *perf.Tracker
	n     notify.Notifier

	riskCfg risk.Config

	mu      sync.Mutex
	open    map[int64]*openSignal
	cycling bool
}

func New(
	cfg *config.Config,
	store *mdsvc.Store,
	evs []stratsvc.Evaluator,
	agg *aggsvc.Aggregator,
	cool *cooldown.Tracker,
	perfTracker *perf.Tracker,
	n notify.Notifier,
) *Runner {
	return &Runner{
		cfg:   cfg,
		store: store,
		evs:   evs,
		agg:   agg,
		cool:  cool,
		perf:  perfTracker,
		n:     n,
		riskCfg: risk.Config{
			TargetRR:    cfg.TargetRR,
			MinSLPct:    cfg.MinSLPct,
			MaxSLPct:    cfg.MaxSLPct,
			ATRMult:     cfg.ATRMult,
			LevelWeight: 0.8,
		},
		open: make(map[int64]*openSignal),
	}
}

func (r *Runner) Start(ctx context.Context) {
	go r.healthLoop(ctx)

	ticker := time.NewTicker(r.cfg.CycleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// затянувшийся цикл не перекрываем следующим
			r.mu.Lock()
			busy := r.cycling
			if !busy {
				r.cycling = true
			}
			r.mu.Unlock()
			if busy {
				logger.Warn("[RUNNER] cycle overlap, tick skipped")
				continue
			}
			r.cycle(ctx, time.Now())
			r.mu.Lock()
			r.cycling = false
			r.mu.Unlock()
		}
	}
}

// cycle — один проход по всем инструментам, параллельно.
func (r *Runner) cycle(ctx context.Context, now time.Time) {
	span := opentracing.StartSpan("evaluate_cycle")
	defer span.Finish()

	var wg sync.WaitGroup
	for _, inst := range r.cfg.Instruments {
		wg.Add(1)
		go func(inst string) {
			defer wg.Done()
			r.evalInstrument(ctx, inst, now)
		}(inst)
	}
	wg.Wait()
}

func (r *Runner) evalInstrument(ctx context.Context, instID string, now time.Time) {
	fast, slow, medium := r.store.Snapshot(instID)
	if len(fast) == 0 {
		return
	}
	// битое окно любого ТФ валит только цикл этого инструмента
	// и не трогает состояние
	for _, win := range [][]models.Candle{fast, slow, medium} {
		if err := models.ValidateWindow(win); err != nil {
			logger.Warn("[RUNNER] %s malformed window: %v", instID, err)
			metrics.RejectsTotal.WithLabelValues("data").Inc()
			return
		}
	}

	r.resolveOpen(ctx, instID, fast[len(fast)-1])

	w := stratsvc.MarketView{InstID: instID, Fast: fast, Slow: slow, Medium: medium}
	var cands []models.RawCandidate
	for _, ev := range r.evs {
		if cand, ok := ev.Evaluate(w); ok {
			metrics.CandidatesTotal.WithLabelValues(ev.Name()).Inc()
			cands = append(cands, cand)
		}
	}

	sel, ok := r.agg.Select(cands)
	if !ok {
		if len(cands) > 0 {
			metrics.RejectsTotal.WithLabelValues("quality").Inc()
		}
		return
	}

	if !r.cool.Allow(instID, sel.Candidate.Strategy, now) {
		metrics.RejectsTotal.WithLabelValues("cooldown").Inc()
		return
	}

	closes := models.Closes(fast)
	entry := sel.Candidate.Entry
	atrVal := indicator.Last(indicator.ATR(fast, r.cfg.ATRWindow))

	// фильтр волатильности: слишком тихий рынок не торгуем
	if indicator.Defined(atrVal) && atrVal/entry*100 < r.cfg.MinVolatilityPct {
		metrics.RejectsTotal.WithLabelValues("volatility").Inc()
		return
	}

	support, resistance := indicator.MicroLevels(closes, r.cfg.Strategy.LevelsWindow)
	lv, ok := risk.ComputeLevels(sel.Candidate.Side, entry, atrVal, support, resistance, r.riskCfg)
	if !ok {
		// отказ по риску не потребляет кулдаун
		metrics.RejectsTotal.WithLabelValues("risk").Inc()
		return
	}

	sig := models.Signal{
		InstID:      instID,
		Side:        sel.Candidate.Side,
		Entry:       lv.Entry,
		Stop:        lv.Stop,
		Take:        lv.Take,
		RR:          lv.RR,
		Strategies:  sel.Strategies,
		Score:       sel.Score,
		GeneratedAt: now,
	}

	r.cool.Mark(instID, sel.Candidate.Strategy, now)
	id := r.perf.Record(sig)
	r.trackOpen(id, sig, now, fast[len(fast)-1].Ts)
	metrics.SignalsEmitted.WithLabelValues(sel.Candidate.Strategy).Inc()

	logger.Info("[SIGNAL] %s %s entry=%.6f sl=%.6f tp=%.6f rr=%.1f score=%.1f (%s)",
		sig.Side, sig.InstID, sig.Entry, sig.Stop, sig.Take, sig.RR, sig.Score, sig.Label())
	if err := r.n.SendSignal(ctx, sig); err != nil {
		logger.Error("[RUNNER] notify %s: %v", instID, err)
	}
}

func (r *Runner) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.mu.Lock()
			openCount := len(r.open)
			r.mu.Unlock()
			rate, samples := r.perf.WinRate()
			logger.Info("🩺 HEALTH | instruments=%d | open=%d | winrate=%.2f (%d)",
				len(r.cfg.Instruments), openCount, rate, samples)
		}
	}
}
