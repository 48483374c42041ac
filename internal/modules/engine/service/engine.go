package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"ct_bot/internal/helper"
	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

// MarketData — источник рыночных данных (тикеры и свечи). Может падать транзиентно.
type MarketData interface {
	Ticker(ctx context.Context, symbol string) (models.Ticker, error)
	Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error)
}

// Execution — исполнение ордеров на бирже. price <= 0 означает рыночный ордер.
type Execution interface {
	PlaceOrder(ctx context.Context, symbol string, side models.Side, amount, price float64) (models.Order, error)
	Balance(ctx context.Context) (models.Balance, error)
}

// Engine владеет режимом торговли, реестром активных сделок и скором состояния рынка.
// Реестр и скор разделяются всеми стратегиями, поэтому мутации — только под mu.
type Engine struct {
	cfg    config.EngineConfig
	market MarketData
	exec   Execution

	mu                   sync.Mutex
	marketConditionScore int
	tradingActive        bool
	activeTrades         map[string]models.ActiveTrade

	now func() time.Time
}

// MarketStatus — снимок состояния для внешнего API-слоя.
type MarketStatus struct {
	MarketConditionScore    int    `json:"market_condition_score"`
	IsTradingActive         bool   `json:"is_trading_active"`
	MinMarketConditionScore int    `json:"min_market_condition_score"`
	AutoResumeThreshold     int    `json:"auto_resume_threshold"`
	TradingMode             string `json:"trading_mode"`
}

func NewEngine(cfg *config.Config, market MarketData, exec Execution) *Engine {
	e := &Engine{
		cfg:          cfg.Engine,
		market:       market,
		exec:         exec,
		activeTrades: make(map[string]models.ActiveTrade),
		now:          time.Now,
	}
	logger.Info("trading engine initialized in %s mode, max trade amount %.2f",
		e.cfg.TradingMode, e.cfg.MaxTradeAmount)
	return e
}

// GetTicker возвращает пустой тикер при сбое источника: для стратегий это
// "нет решения на этой итерации", а не ошибка.
func (e *Engine) GetTicker(ctx context.Context, symbol string) models.Ticker {
	t, err := e.market.Ticker(ctx, symbol)
	if err != nil {
		logger.Error("ticker %s: %v", symbol, err)
		return models.Ticker{Symbol: symbol}
	}
	return t
}

// GetOHLCV возвращает пустую серию при сбое источника.
func (e *Engine) GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) []models.Candle {
	candles, err := e.market.Candles(ctx, symbol, timeframe, limit)
	if err != nil {
		logger.Error("ohlcv %s %s: %v", symbol, timeframe, err)
		return nil
	}
	return candles
}

// ExecuteTrade исполняет сделку. Сумма ограничивается MaxTradeAmount.
// price <= 0 — рыночный ордер. Успех — непустой Order.ID и nil error.
func (e *Engine) ExecuteTrade(ctx context.Context, symbol string, side models.Side, amount, price float64) (models.Order, error) {
	if amount <= 0 {
		return models.Order{}, errors.New("amount must be positive")
	}
	if amount > e.cfg.MaxTradeAmount {
		amount = e.cfg.MaxTradeAmount
	}

	if e.cfg.IsLive() {
		return e.executeLive(ctx, symbol, side, amount, price)
	}
	return e.executePaper(ctx, symbol, side, amount, price)
}

func (e *Engine) executeLive(ctx context.Context, symbol string, side models.Side, amount, price float64) (models.Order, error) {
	order, err := e.exec.PlaceOrder(ctx, symbol, side, amount, price)
	if err != nil {
		logger.Error("live %s order %s: %v", side, symbol, err)
		return models.Order{}, err
	}
	if order.ID == "" {
		return models.Order{}, errors.New("exchange returned order without id")
	}

	e.recordTrade(order)
	logger.Info("executed %s order %.8f %s at %s", side, amount, symbol, priceLabel(price))
	return order, nil
}

func (e *Engine) executePaper(ctx context.Context, symbol string, side models.Side, amount, price float64) (models.Order, error) {
	if price <= 0 {
		ticker := e.GetTicker(ctx, symbol)
		if ticker.Empty() {
			return models.Order{}, errors.Errorf("paper trade %s: no ticker price", symbol)
		}
		price = ticker.Last
	}

	now := e.now()
	order := models.Order{
		ID:     fmt.Sprintf("paper_%d_%s_%s", now.Unix(), side, helper.CompactSymbol(symbol)),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  price,
		Cost:   amount * price,
		Status: models.OrderStatusClosed,
		Fee: models.Fee{
			Cost:     amount * price * e.cfg.PaperFeePct / 100,
			Currency: helper.QuoteCurrency(symbol),
		},
		Timestamp: now,
		Paper:     true,
	}

	e.recordTrade(order)
	logger.Info("paper traded: %s %.8f %s at %.8f", side, amount, symbol, price)
	return order, nil
}

func (e *Engine) recordTrade(order models.Order) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activeTrades[order.ID] = models.ActiveTrade{
		Symbol:    order.Symbol,
		Side:      order.Side,
		Amount:    order.Amount,
		Price:     order.Price,
		Status:    order.Status,
		Timestamp: order.Timestamp,
	}
}

// GetActiveTrades отдаёт копию реестра: вызывающие читают его для восстановления
// открытой экспозиции и не должны видеть последующие мутации.
func (e *Engine) GetActiveTrades() map[string]models.ActiveTrade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]models.ActiveTrade, len(e.activeTrades))
	for id, t := range e.activeTrades {
		out[id] = t
	}
	return out
}

// GetBalance: live — реальные балансы, paper — фиксированный синтетический набор.
func (e *Engine) GetBalance(ctx context.Context) models.Balance {
	if e.cfg.IsLive() {
		b, err := e.exec.Balance(ctx)
		if err != nil {
			logger.Error("balance: %v", err)
			return models.Balance{}
		}
		return b
	}

	free := make(map[string]float64, len(e.cfg.PaperFreeBalances))
	total := make(map[string]float64, len(e.cfg.PaperFreeBalances))
	used := make(map[string]float64, len(e.cfg.PaperFreeBalances))
	for ccy, amt := range e.cfg.PaperFreeBalances {
		free[ccy] = amt
		used[ccy] = amt
		total[ccy] = amt * 2
	}
	return models.Balance{Total: total, Free: free, Used: used, Paper: true}
}

func (e *Engine) IsTradingActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tradingActive
}

// SetTradingActive — ручное управление режимом, минуя гистерезис.
func (e *Engine) SetTradingActive(active bool) MarketStatus {
	e.mu.Lock()
	e.tradingActive = active
	e.mu.Unlock()
	logger.Info("trading manually set active=%v", active)
	return e.GetMarketStatus()
}

func (e *Engine) GetMarketStatus() MarketStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return MarketStatus{
		MarketConditionScore:    e.marketConditionScore,
		IsTradingActive:         e.tradingActive,
		MinMarketConditionScore: e.cfg.MinMarketConditionScore,
		AutoResumeThreshold:     e.cfg.AutoResumeThreshold,
		TradingMode:             e.cfg.TradingMode,
	}
}

func (e *Engine) MaxTradeAmount() float64 { return e.cfg.MaxTradeAmount }

func priceLabel(price float64) string {
	if price <= 0 {
		return "market price"
	}
	return fmt.Sprintf("%.8f", price)
}
