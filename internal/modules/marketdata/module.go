package marketdata

import (
	"context"

	"signal_bot/internal/modules/config"
	"signal_bot/internal/modules/marketdata/service"

	"go.uber.org/fx"
)

// Module поднимает стор свечей и стример рынка.
func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			func(cfg *config.Config) *service.Store {
				return service.NewStore(cfg.TFFast, cfg.TFSlow, cfg.TFMedium, cfg.CandlesLimit)
			},
			service.NewClient,
		),
		fx.Invoke(func(lc fx.Lifecycle, c *service.Client, ctx context.Context) {
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go c.Start(ctx)
					return nil
				},
			})
		}),
	)
}
