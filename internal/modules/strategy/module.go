package strategy

import (
	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/strategy/service"

	"go.uber.org/fx"
)

// Module отдаёт активный набор эвалюаторов в порядке из конфига.
// Неизвестное имя стратегии валит приложение на старте.
func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			func(cfg *config.Config) ([]service.Evaluator, error) {
				return service.BuildSet(cfg.ActiveStrategies, cfg.Strategy)
			},
		),
	)
}
