package service

import (
	"context"
	"testing"
	"time"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
)

func gridCfg() config.GridConfig {
	return config.GridConfig{
		UpperPrice:        120,
		LowerPrice:        80,
		Levels:            4,
		TotalInvestment:   400,
		RebalanceCooldown: time.Hour,
	}
}

func TestGridPlacesLadderAroundPrice(t *testing.T) {
	e := newFakeEngine()
	e.ticker = 100
	g := NewGrid(gridCfg(), e, "BTC/USDT")

	// уровни: 80, 90, 100, 110, 120; покупки ниже 100, продажи выше
	res := g.RunIteration(context.Background())
	if res.Action != models.ActionBuy {
		t.Fatalf("action = %v (%s), want ladder placement", res.Action, res.Reason)
	}

	var buys, sells int
	for _, o := range e.placed {
		switch o.Side {
		case models.SideBuy:
			buys++
			if o.Price >= 100 {
				t.Errorf("buy order at %v, must be below current price", o.Price)
			}
		case models.SideSell:
			sells++
			if o.Price <= 100 {
				t.Errorf("sell order at %v, must be above current price", o.Price)
			}
		}
	}
	if buys != 2 || sells != 2 {
		t.Errorf("ladder = %d buys / %d sells, want 2 / 2", buys, sells)
	}

	// размер уровня: 400/4 = 100 котируемой валюты
	for _, o := range e.placed {
		if want := 100 / o.Price; o.Amount != want {
			t.Errorf("order size at %v = %v, want %v", o.Price, o.Amount, want)
		}
	}
}

func TestGridWithinBoundsNoRebalance(t *testing.T) {
	e := newFakeEngine()
	e.ticker = 100
	g := NewGrid(gridCfg(), e, "BTC/USDT")
	g.RunIteration(context.Background())

	e.ticker = 119
	res := g.RunIteration(context.Background())
	if res.Action != models.ActionNone {
		t.Errorf("action = %v, want none while price inside grid", res.Action)
	}
}

func TestGridRebalancePreservesRange(t *testing.T) {
	e := newFakeEngine()
	e.ticker = 100
	g := NewGrid(gridCfg(), e, "BTC/USDT")
	g.RunIteration(context.Background())

	// цена ушла выше верхней границы
	e.ticker = 200
	res := g.RunIteration(context.Background())
	if res.Action != models.ActionRebalance {
		t.Fatalf("action = %v (%s), want rebalance", res.Action, res.Reason)
	}

	// ширина диапазона 40 сохраняется, центр — на новой цене
	if g.lowerPrice != 180 || g.upperPrice != 220 {
		t.Errorf("bounds = [%v, %v], want [180, 220]", g.lowerPrice, g.upperPrice)
	}
	if len(g.gridPrices) != gridCfg().Levels+1 {
		t.Errorf("grid levels = %d, want %d", len(g.gridPrices), gridCfg().Levels+1)
	}
}

func TestGridRebalanceCooldown(t *testing.T) {
	e := newFakeEngine()
	e.ticker = 100
	g := NewGrid(gridCfg(), e, "BTC/USDT")
	g.RunIteration(context.Background())

	e.ticker = 200
	if res := g.RunIteration(context.Background()); res.Action != models.ActionRebalance {
		t.Fatalf("first rebalance failed: %v", res.Action)
	}

	// сразу после ребаланса цена снова вне границ — кулдаун держит
	e.ticker = 500
	res := g.RunIteration(context.Background())
	if res.Action != models.ActionNone {
		t.Errorf("action = %v, want none during cooldown", res.Action)
	}

	// кулдаун истёк
	g.lastRebalance = time.Now().Add(-2 * time.Hour)
	res = g.RunIteration(context.Background())
	if res.Action != models.ActionRebalance {
		t.Errorf("action = %v, want rebalance after cooldown", res.Action)
	}
}

func TestGridInactive(t *testing.T) {
	e := newFakeEngine()
	e.active = false
	g := NewGrid(gridCfg(), e, "BTC/USDT")
	res := g.RunIteration(context.Background())
	if res.Action != models.ActionNone || res.Reason != "trading is not active" {
		t.Errorf("result = %v %q, want inactive", res.Action, res.Reason)
	}
	if len(e.placed) != 0 {
		t.Error("no orders while trading is inactive")
	}
}

func TestGridNoTicker(t *testing.T) {
	e := newFakeEngine()
	e.ticker = 0
	g := NewGrid(gridCfg(), e, "BTC/USDT")
	res := g.RunIteration(context.Background())
	if res.Action != models.ActionNone {
		t.Errorf("action = %v, want none without ticker", res.Action)
	}
}
