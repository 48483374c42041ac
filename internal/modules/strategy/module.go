package strategy

import (
	"go.uber.org/fx"

	"ct_bot/internal/modules/config"
	engineservice "ct_bot/internal/modules/engine/service"
	"ct_bot/internal/modules/strategy/service"
)

func Module() fx.Option {
	return fx.Module("strategy",
		fx.Provide(
			func(cfg *config.Config, e *engineservice.Engine, resolver service.VenueResolver) ([]service.Strategy, error) {
				return service.NewStrategies(cfg, e, resolver)
			},
		),
	)
}
