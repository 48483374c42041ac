package service

import (
	"context"
	"fmt"
	"time"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

// DCA покупает фиксированную сумму по расписанию независимо от цены.
// Сигналы рынка не используются: единственный вход — таймер, единственный
// необязательный выход — тейк-профит по цене входа каждой отдельной позиции.
type DCA struct {
	cfg    config.DCAConfig
	engine Engine
	symbol string

	positions      []dcaPosition
	lastInvestment time.Time
	totalInvested  float64
}

type dcaPosition struct {
	Amount    float64
	Price     float64
	Cost      float64
	Timestamp time.Time
}

func NewDCA(cfg config.DCAConfig, engine Engine, symbol string) *DCA {
	logger.Info("DCA strategy initialized for %s, %.2f every %s", symbol, cfg.InvestmentAmount, cfg.Interval)
	return &DCA{cfg: cfg, engine: engine, symbol: symbol}
}

func (d *DCA) Name() models.StrategyType { return models.StrategyDCA }

// shouldInvest — пора ли делать очередную покупку.
func (d *DCA) shouldInvest() bool {
	if d.cfg.MaxPositions > 0 && len(d.positions) >= d.cfg.MaxPositions {
		return false
	}
	if d.lastInvestment.IsZero() {
		return true
	}
	return time.Since(d.lastInvestment) >= d.cfg.Interval
}

func (d *DCA) makeInvestment(ctx context.Context) models.ActionResult {
	ticker := d.engine.GetTicker(ctx, d.symbol)
	if ticker.Empty() {
		return errorResult("failed to get current price")
	}

	amount := d.cfg.InvestmentAmount / ticker.Last
	order, err := d.engine.ExecuteTrade(ctx, d.symbol, models.SideBuy, amount, 0)
	if err != nil {
		logger.Error("DCA investment failed: %v", err)
		return errorResult(fmt.Sprintf("failed to execute buy order: %v", err))
	}

	d.positions = append(d.positions, dcaPosition{
		Amount:    amount,
		Price:     ticker.Last,
		Cost:      d.cfg.InvestmentAmount,
		Timestamp: time.Now(),
	})
	d.lastInvestment = time.Now()
	d.totalInvested += d.cfg.InvestmentAmount

	logger.Info("DCA investment: %.8f %s at %.8f (total invested: %.2f)",
		amount, d.symbol, ticker.Last, d.totalInvested)
	return models.ActionResult{
		Action: models.ActionBuy,
		Amount: amount,
		Price:  ticker.Last,
		Reason: fmt.Sprintf("scheduled DCA investment #%d", len(d.positions)),
		Order:  &order,
	}
}

// calculateAverageEntry — средневзвешенная цена входа по всем позициям.
func (d *DCA) calculateAverageEntry() float64 {
	var totalAmount, totalCost float64
	for _, p := range d.positions {
		totalAmount += p.Amount
		totalCost += p.Cost
	}
	if totalAmount == 0 {
		return 0
	}
	return totalCost / totalAmount
}

// checkTakeProfit продаёт те позиции, которые дошли до цели от собственной
// цены входа; остальные остаются в книге.
func (d *DCA) checkTakeProfit(ctx context.Context) models.ActionResult {
	if d.cfg.TakeProfitPct <= 0 || len(d.positions) == 0 {
		return models.ActionResult{Action: models.ActionNone, Reason: "take profit disabled or no positions"}
	}

	ticker := d.engine.GetTicker(ctx, d.symbol)
	if ticker.Empty() {
		return errorResult("failed to get current price")
	}

	keep := d.positions[:0:0]
	var sellAmount, sellCost float64
	for _, p := range d.positions {
		profitPct := (ticker.Last - p.Price) / p.Price * 100
		if profitPct >= d.cfg.TakeProfitPct {
			sellAmount += p.Amount
			sellCost += p.Cost
			continue
		}
		keep = append(keep, p)
	}
	if sellAmount == 0 {
		return models.ActionResult{Action: models.ActionNone, Reason: "no positions reached take profit level"}
	}

	order, err := d.engine.ExecuteTrade(ctx, d.symbol, models.SideSell, sellAmount, 0)
	if err != nil {
		logger.Error("DCA take profit failed: %v", err)
		return errorResult(fmt.Sprintf("failed to execute sell order: %v", err))
	}

	sold := len(d.positions) - len(keep)
	d.positions = keep
	d.totalInvested -= sellCost

	avgSold := sellCost / sellAmount
	profitPct := (ticker.Last - avgSold) / avgSold * 100
	logger.Info("DCA take profit: sold %.8f %s at %.8f (%d of %d entries, P/L: %.2f%%)",
		sellAmount, d.symbol, ticker.Last, sold, sold+len(keep), profitPct)

	return models.ActionResult{
		Action:    models.ActionSell,
		Amount:    sellAmount,
		Price:     ticker.Last,
		Reason:    fmt.Sprintf("take profit triggered at %.2f%% (%d entries sold, %d remaining)", d.cfg.TakeProfitPct, sold, len(keep)),
		ProfitPct: profitPct,
		Order:     &order,
	}
}

// RunIteration: при выключенной торговле новых покупок нет, но открытые
// позиции всё равно проверяются на тейк-профит.
func (d *DCA) RunIteration(ctx context.Context) models.ActionResult {
	if !d.engine.IsTradingActive() {
		if len(d.positions) == 0 {
			return inactiveResult()
		}
		return d.checkTakeProfit(ctx)
	}

	if tp := d.checkTakeProfit(ctx); tp.Action == models.ActionSell || tp.Action == models.ActionError {
		return tp
	}
	if d.shouldInvest() {
		return d.makeInvestment(ctx)
	}
	return models.ActionResult{Action: models.ActionNone, Reason: "waiting for next investment interval"}
}

func (d *DCA) Status() map[string]any {
	return map[string]any{
		"strategy":          "dca",
		"symbol":            d.symbol,
		"positions":         len(d.positions),
		"max_positions":     d.cfg.MaxPositions,
		"total_invested":    d.totalInvested,
		"average_entry":     d.calculateAverageEntry(),
		"last_investment":   d.lastInvestment,
		"investment_amount": d.cfg.InvestmentAmount,
		"interval":          d.cfg.Interval.String(),
		"take_profit_pct":   d.cfg.TakeProfitPct,
	}
}
