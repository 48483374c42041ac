package runner

import (
	"context"

	"go.uber.org/fx"

	"ct_bot/internal/modules/config"
	"ct_bot/internal/notify"
)

func Module() fx.Option {
	return fx.Module("runner",
		fx.Provide(
			New, // *Runner
			func(cfg *config.Config) notify.Notifier {
				return notify.New(cfg.Telegram.Token, cfg.Telegram.ChatID)
			},
		),
		fx.Invoke(func(lc fx.Lifecycle, r *Runner) {
			runCtx, cancel := context.WithCancel(context.Background())
			lc.Append(fx.Hook{
				OnStart: func(context.Context) error {
					r.Start(runCtx)
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
