package postgres

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/fx"

	"ct_bot/internal/modules/config"
	"ct_bot/internal/repository"
	"ct_bot/pkg/db"
)

// Module поднимает пул соединений и журнал сделок. Без DSN журнал
// создаётся выключенным, бот продолжает работать.
func Module() fx.Option {
	return fx.Module("postgres",
		fx.Provide(
			func(ctx context.Context, cfg *config.Config) (*repository.TradeJournal, error) {
				if cfg.DB == "" {
					return repository.NewTradeJournal(nil), nil
				}

				poolMaster, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, errors.Wrap(err, "failed to create poolMaster")
				}
				if err := poolMaster.Ping(ctx); err != nil {
					return nil, errors.Wrap(err, "ping database")
				}

				return repository.NewTradeJournal(db.NewPgTxManager(poolMaster)), nil
			},
		),
	)
}
