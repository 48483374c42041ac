package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"

	"ct_bot/internal/models"
	"ct_bot/pkg/db"
	"ct_bot/pkg/logger"
)

// TradeJournal пишет исполненные ордера в postgres. Без DSN журнал
// работает вхолостую: бот остаётся полностью функциональным без базы.
type TradeJournal struct {
	tx db.TxManager // nil — журналирование выключено
}

func NewTradeJournal(tx db.TxManager) *TradeJournal {
	if tx == nil {
		logger.Info("trade journal disabled: no database configured")
	}
	return &TradeJournal{tx: tx}
}

func (j *TradeJournal) Enabled() bool { return j != nil && j.tx != nil }

const insertOrderSQL = `
INSERT INTO trade_journal (order_id, symbol, side, amount, price, cost, fee, fee_currency, status, is_paper, executed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (order_id) DO NOTHING`

func (j *TradeJournal) RecordOrder(ctx context.Context, order models.Order) error {
	if !j.Enabled() {
		return nil
	}
	return j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertOrderSQL,
			order.ID, order.Symbol, string(order.Side),
			order.Amount, order.Price, order.Cost,
			order.Fee.Cost, order.Fee.Currency,
			string(order.Status), order.Paper, order.Timestamp,
		)
		return errors.Wrap(err, "insert trade journal row")
	})
}

const insertScoreSQL = `
INSERT INTO market_scores (score, trading_active, recorded_at)
VALUES ($1, $2, now())`

// RecordScore сохраняет историю скора для последующего разбора
// срабатываний гистерезиса.
func (j *TradeJournal) RecordScore(ctx context.Context, score int, active bool) error {
	if !j.Enabled() {
		return nil
	}
	return j.tx.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, insertScoreSQL, score, active)
		return errors.Wrap(err, "insert market score row")
	})
}
