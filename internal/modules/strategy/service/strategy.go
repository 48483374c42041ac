package service

import (
	"context"

	"ct_bot/internal/helper"
	"ct_bot/internal/models"
)

// Engine — то, что стратегиям нужно от торгового движка.
type Engine interface {
	GetTicker(ctx context.Context, symbol string) models.Ticker
	GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) []models.Candle
	ExecuteTrade(ctx context.Context, symbol string, side models.Side, amount, price float64) (models.Order, error)
	GetBalance(ctx context.Context) models.Balance
	GetActiveTrades() map[string]models.ActiveTrade
	IsTradingActive() bool
	MaxTradeAmount() float64
}

// Strategy — общий контракт итерации. RunIteration при выключенной торговле
// возвращает явную причину бездействия; открытым позициям выход разрешён всегда.
type Strategy interface {
	Name() models.StrategyType
	RunIteration(ctx context.Context) models.ActionResult
	Status() map[string]any
}

// Venue — внешняя площадка для арбитража (только тикер).
type Venue interface {
	Ticker(ctx context.Context, symbol string) (models.Ticker, error)
}

// VenueResolver создаёт подключение к площадке по имени.
type VenueResolver interface {
	Venue(name string) (Venue, error)
}

const ohlcvLimit = 100

func inactiveResult() models.ActionResult {
	return models.ActionResult{Action: models.ActionNone, Reason: "trading is not active"}
}

func noDataSignal() models.Signal {
	return models.Signal{Kind: models.SignalNone, Reasons: []string{"no data available"}}
}

// positionSize считает размер входа: доля свободного остатка котируемой валюты,
// не больше лимита движка.
func positionSize(ctx context.Context, e Engine, symbol string, fraction float64) float64 {
	balance := e.GetBalance(ctx)
	free := balance.FreeOf(helper.QuoteCurrency(symbol))
	size := free * fraction
	if max := e.MaxTradeAmount(); size > max {
		size = max
	}
	return size
}

// openExposure восстанавливает открытый объём по реестру активных сделок.
func openExposure(e Engine, symbol string) float64 {
	var total float64
	for _, trade := range e.GetActiveTrades() {
		if trade.Symbol == symbol && trade.Side == models.SideBuy {
			total += trade.Amount
		}
	}
	return total
}

func errorResult(reason string) models.ActionResult {
	return models.ActionResult{Action: models.ActionError, Reason: reason}
}
