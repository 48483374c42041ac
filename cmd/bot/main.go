package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"ct_bot/internal/modules/config"
	"ct_bot/internal/modules/engine"
	"ct_bot/internal/modules/exchange"
	"ct_bot/internal/modules/postgres"
	"ct_bot/internal/modules/stoploss"
	"ct_bot/internal/modules/strategy"
	"ct_bot/internal/runner"
	"ct_bot/pkg/logger"
	"ct_bot/pkg/tracing"
)

const serviceName = "ct_bot"

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName(serviceName)
	tracing.SetServiceName(serviceName)

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		exchange.Module(),
		engine.Module(),
		stoploss.Module(),
		strategy.Module(),
		postgres.Module(),
		runner.Module(),
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			_, closeTracer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					closeTracer()
					return nil
				},
			})
			return nil
		}),
	)
	app.Run()
}
