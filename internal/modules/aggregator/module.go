package aggregator

import (
	"signal_bot/internal/modules/aggregator/service"
	"signal_bot/internal/modules/config"
	"signal_bot/internal/perf"

	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module("aggregator",
		fx.Provide(
			func(cfg *config.Config, tracker *perf.Tracker) *service.Aggregator {
				return service.New(
					cfg.ActiveStrategies,
					cfg.Strategy.QualityFloor,
					cfg.PerfFloor,
					cfg.PerfMinSamples,
					tracker,
				)
			},
		),
	)
}
