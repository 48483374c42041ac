package service

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
)

type fakeVenue struct {
	last float64
	err  error
}

func (f *fakeVenue) Ticker(_ context.Context, symbol string) (models.Ticker, error) {
	if f.err != nil {
		return models.Ticker{}, f.err
	}
	return models.Ticker{Symbol: symbol, Last: f.last}, nil
}

type fakeResolver struct {
	venues map[string]*fakeVenue
}

func (f *fakeResolver) Venue(name string) (Venue, error) {
	v, ok := f.venues[name]
	if !ok {
		return nil, errors.Errorf("unknown venue %q", name)
	}
	return v, nil
}

func arbCfg() config.ArbitrageConfig {
	return config.ArbitrageConfig{VenueA: "binance", VenueB: "mexc", ThresholdPct: 0.5}
}

func newArb(t *testing.T, e Engine, priceA, priceB float64) (*Arbitrage, *fakeResolver) {
	t.Helper()
	r := &fakeResolver{venues: map[string]*fakeVenue{
		"binance": {last: priceA},
		"mexc":    {last: priceB},
	}}
	a, err := NewArbitrage(arbCfg(), e, r, "BTC/USDT")
	if err != nil {
		t.Fatalf("NewArbitrage: %v", err)
	}
	return a, r
}

func TestArbitrageSpreadPct(t *testing.T) {
	e := newFakeEngine()
	a, _ := newArb(t, e, 100, 102)

	res := a.RunIteration(context.Background())
	if res.Action != models.ActionArbitrage {
		t.Fatalf("action = %v (%s), want arbitrage", res.Action, res.Reason)
	}
	sig := res.Signal
	if sig == nil {
		t.Fatal("arbitrage result must carry the signal")
	}
	// спред считается от цены продажи: 2/102 ≈ 1.9608%
	want := 2.0 / 102 * 100
	if math.Abs(sig.SpreadPct-want) > 1e-9 {
		t.Errorf("spread = %v, want %v", sig.SpreadPct, want)
	}
	if sig.BuyVenue != "binance" || sig.SellVenue != "mexc" {
		t.Errorf("venues = buy %s / sell %s, want buy binance / sell mexc", sig.BuyVenue, sig.SellVenue)
	}
	if sig.BuyPrice != 100 || sig.SellPrice != 102 {
		t.Errorf("prices = %v / %v", sig.BuyPrice, sig.SellPrice)
	}
}

func TestArbitrageDirectionFlips(t *testing.T) {
	e := newFakeEngine()
	a, _ := newArb(t, e, 102, 100)

	res := a.RunIteration(context.Background())
	if res.Action != models.ActionArbitrage {
		t.Fatalf("action = %v, want arbitrage", res.Action)
	}
	if res.Signal.BuyVenue != "mexc" || res.Signal.SellVenue != "binance" {
		t.Errorf("venues = buy %s / sell %s, want buy mexc / sell binance",
			res.Signal.BuyVenue, res.Signal.SellVenue)
	}
}

func TestArbitrageBelowThreshold(t *testing.T) {
	e := newFakeEngine()
	a, _ := newArb(t, e, 100, 100.1) // 0.1% < 0.5%

	res := a.RunIteration(context.Background())
	if res.Action != models.ActionNone {
		t.Errorf("action = %v, want none below threshold", res.Action)
	}
	if a.opportunities != 0 {
		t.Error("opportunity counter must not advance below threshold")
	}
}

func TestArbitrageVenueFailure(t *testing.T) {
	e := newFakeEngine()
	a, r := newArb(t, e, 100, 102)
	r.venues["mexc"].err = errors.New("venue down")

	res := a.RunIteration(context.Background())
	if res.Action != models.ActionError {
		t.Errorf("action = %v, want error on venue failure", res.Action)
	}
}

func TestArbitrageInactive(t *testing.T) {
	e := newFakeEngine()
	e.active = false
	a, _ := newArb(t, e, 100, 110)

	res := a.RunIteration(context.Background())
	if res.Action != models.ActionNone || res.Reason != "trading is not active" {
		t.Errorf("result = %v %q, want inactive", res.Action, res.Reason)
	}
}

func TestArbitrageUnknownVenue(t *testing.T) {
	cfg := arbCfg()
	cfg.VenueB = "ghost"
	r := &fakeResolver{venues: map[string]*fakeVenue{"binance": {last: 100}}}
	if _, err := NewArbitrage(cfg, newFakeEngine(), r, "BTC/USDT"); err == nil {
		t.Error("expected error for unknown venue")
	}
}
