package stoploss

import (
	"go.uber.org/fx"

	"ct_bot/internal/modules/config"
	engineservice "ct_bot/internal/modules/engine/service"
	"ct_bot/internal/modules/stoploss/service"
)

func Module() fx.Option {
	return fx.Module("stoploss",
		fx.Provide(
			func(cfg *config.Config, e *engineservice.Engine) *service.Tracker {
				return service.NewTracker(cfg.StopLoss, e, cfg.Strategy.Symbol)
			},
		),
	)
}
