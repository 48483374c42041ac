package engine

import (
	"go.uber.org/fx"

	"ct_bot/internal/modules/engine/service"
)

func Module() fx.Option {
	return fx.Module("engine",
		fx.Provide(
			service.NewEngine, // *service.Engine
		),
	)
}
