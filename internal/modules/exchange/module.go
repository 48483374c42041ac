package exchange

import (
	"context"

	"go.uber.org/fx"

	"ct_bot/internal/modules/config"
	engineservice "ct_bot/internal/modules/engine/service"
	"ct_bot/internal/modules/exchange/service"
	strategyservice "ct_bot/internal/modules/strategy/service"
)

// venueResolver сужает *service.Resolver до интерфейса арбитража.
type venueResolver struct {
	r *service.Resolver
}

func (v venueResolver) Venue(name string) (strategyservice.Venue, error) {
	tv, err := v.r.TickerVenue(name)
	if err != nil {
		return nil, err
	}
	return tv, nil
}

func Module() fx.Option {
	return fx.Module("exchange",
		fx.Provide(
			func(cfg *config.Config) *service.Client {
				return service.NewClient(cfg.Exchange)
			},
			service.NewResolver,
			func(c *service.Client) engineservice.MarketData { return c },
			func(c *service.Client) engineservice.Execution { return c },
			func(r *service.Resolver) strategyservice.VenueResolver { return venueResolver{r: r} },
		),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config, c *service.Client) {
			if !cfg.Exchange.WSEnabled {
				return
			}

			symbols := append([]string{cfg.Strategy.Symbol}, cfg.Engine.ScoreSymbols...)
			stream := service.NewStream(cfg.Exchange.WSURL, symbols)
			c.AttachStream(stream)

			streamCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					go stream.Run(streamCtx)
					return nil
				},
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})
		}),
	)
}
