package main

import (
	"context"
	"fmt"
	"log"

	"signal_bot/internal/cooldown"
	"signal_bot/internal/metrics"
	"signal_bot/internal/modules/aggregator"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/marketdata"
	"signal_bot/internal/modules/strategy"
	"signal_bot/internal/notify"
	"signal_bot/internal/perf"
	perfpg "signal_bot/internal/perf/pg"
	"signal_bot/internal/runner"
	"signal_bot/pkg/db"
	"signal_bot/pkg/logger"
	"signal_bot/pkg/tracing"

	"go.uber.org/fx"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("signal_bot")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			newPerfTracker,
			newNotifier,
		),
		config.Module(),
		marketdata.Module(),
		strategy.Module(),
		aggregator.Module(),
		runner.Module(),
		fx.Invoke(func(ctx context.Context, cfg *config.Config, lc fx.Lifecycle) error {
			metrics.Serve(cfg.MetricsAddr)

			_, closer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				logger.Error("tracer init: %v", err)
				return nil
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closer()
					return nil
				},
			})
			return nil
		}),
		// кулдаун живёт процессом, конструируется из конфига
		fx.Provide(func(cfg *config.Config) *cooldown.Tracker {
			return cooldown.New(cfg.CooldownGlobal, cfg.CooldownStrategy)
		}),
	)
	if err := app.Start(context.Background()); err != nil {
		log.Fatal(err)
	}
	<-app.Done()
}

// newPerfTracker — леджер в памяти, с опциональным зеркалом в Postgres.
func newPerfTracker(ctx context.Context, cfg *config.Config) (*perf.Tracker, error) {
	tracker := perf.New(cfg.PerfWindow)
	if cfg.DB == "" {
		return tracker, nil
	}

	pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}
	store, err := perfpg.New(ctx, db.NewPgTxManager(pool))
	if err != nil {
		return nil, err
	}
	return tracker.WithStore(store, func(err error) {
		logger.Error("[PERF] store: %v", err)
	}), nil
}

// newNotifier — телеграм при наличии токена, иначе лог.
func newNotifier(cfg *config.Config) (notify.Notifier, error) {
	if cfg.Telegram.Token == "" || cfg.Telegram.ChatID == 0 {
		logger.Warn("telegram not configured, falling back to stdout notifier")
		return notify.NewStdout(), nil
	}
	return notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
}
