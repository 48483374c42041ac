package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"

	"ct_bot/internal/models"
	"ct_bot/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type placedOrder struct {
	Symbol string
	Side   models.Side
	Amount float64
	Price  float64
}

// fakeEngine — движок для тестов стратегий: фиксированный тикер и свечи,
// моментальное исполнение.
type fakeEngine struct {
	ticker    float64
	candles   []models.Candle
	active    bool
	free      map[string]float64
	maxAmount float64
	failTrade bool

	placed []placedOrder
	trades map[string]models.ActiveTrade
	seq    int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		active:    true,
		free:      map[string]float64{"USDT": 10000},
		maxAmount: 1000,
		trades:    make(map[string]models.ActiveTrade),
	}
}

func (f *fakeEngine) GetTicker(_ context.Context, symbol string) models.Ticker {
	return models.Ticker{Symbol: symbol, Last: f.ticker}
}

func (f *fakeEngine) GetOHLCV(context.Context, string, string, int) []models.Candle {
	return f.candles
}

func (f *fakeEngine) ExecuteTrade(_ context.Context, symbol string, side models.Side, amount, price float64) (models.Order, error) {
	if f.failTrade {
		return models.Order{}, errors.New("exchange rejected order")
	}
	if price <= 0 {
		price = f.ticker
	}
	f.seq++
	order := models.Order{
		ID:     fmt.Sprintf("order-%d", f.seq),
		Symbol: symbol,
		Side:   side,
		Amount: amount,
		Price:  price,
		Status: models.OrderStatusClosed,
	}
	f.placed = append(f.placed, placedOrder{Symbol: symbol, Side: side, Amount: amount, Price: price})
	f.trades[order.ID] = models.ActiveTrade{Symbol: symbol, Side: side, Amount: amount, Price: price}
	return order, nil
}

func (f *fakeEngine) GetBalance(context.Context) models.Balance {
	return models.Balance{Free: f.free}
}

func (f *fakeEngine) GetActiveTrades() map[string]models.ActiveTrade {
	out := make(map[string]models.ActiveTrade, len(f.trades))
	for id, t := range f.trades {
		out[id] = t
	}
	return out
}

func (f *fakeEngine) IsTradingActive() bool   { return f.active }
func (f *fakeEngine) MaxTradeAmount() float64 { return f.maxAmount }

func TestPositionSize(t *testing.T) {
	e := newFakeEngine()
	if got := positionSize(context.Background(), e, "BTC/USDT", 0.01); got != 100 {
		t.Errorf("positionSize = %v, want 100 (1%% of 10000)", got)
	}
	// лимит движка режет размер
	e.maxAmount = 50
	if got := positionSize(context.Background(), e, "BTC/USDT", 0.01); got != 50 {
		t.Errorf("positionSize = %v, want capped at 50", got)
	}
	// неизвестная котируемая валюта — нулевой размер
	if got := positionSize(context.Background(), e, "BTC/EUR", 0.01); got != 0 {
		t.Errorf("positionSize = %v, want 0", got)
	}
}

func TestOpenExposureSumsBuysOnly(t *testing.T) {
	e := newFakeEngine()
	e.trades["a"] = models.ActiveTrade{Symbol: "BTC/USDT", Side: models.SideBuy, Amount: 0.5}
	e.trades["b"] = models.ActiveTrade{Symbol: "BTC/USDT", Side: models.SideBuy, Amount: 0.25}
	e.trades["c"] = models.ActiveTrade{Symbol: "BTC/USDT", Side: models.SideSell, Amount: 1}
	e.trades["d"] = models.ActiveTrade{Symbol: "ETH/USDT", Side: models.SideBuy, Amount: 3}

	if got := openExposure(e, "BTC/USDT"); got != 0.75 {
		t.Errorf("openExposure = %v, want 0.75", got)
	}
}
