package service

import (
	"context"
	"math"
	"testing"
	"time"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
)

func dcaCfg() config.DCAConfig {
	return config.DCAConfig{
		InvestmentAmount: 100,
		Interval:         24 * time.Hour,
		MaxPositions:     10,
		TakeProfitPct:    0,
	}
}

func TestDCAInvestsAveragingDown(t *testing.T) {
	e := newFakeEngine()
	e.ticker = 100
	d := NewDCA(dcaCfg(), e, "BTC/USDT")

	res := d.RunIteration(context.Background())
	if res.Action != models.ActionBuy {
		t.Fatalf("first iteration action = %v (%s), want buy", res.Action, res.Reason)
	}
	if res.Amount != 1 {
		t.Errorf("amount = %v, want 1 unit at price 100", res.Amount)
	}

	// вторая покупка по 50 — только после интервала
	d.lastInvestment = time.Now().Add(-25 * time.Hour)
	e.ticker = 50
	res = d.RunIteration(context.Background())
	if res.Action != models.ActionBuy || res.Amount != 2 {
		t.Fatalf("second buy = %v %v, want 2 units at price 50", res.Action, res.Amount)
	}

	// средняя цена входа: 200 / 3
	want := 200.0 / 3
	if got := d.calculateAverageEntry(); got != want {
		t.Errorf("average entry = %v, want %v", got, want)
	}
	if d.totalInvested != 200 {
		t.Errorf("total invested = %v, want 200", d.totalInvested)
	}
}

func TestDCAWaitsForInterval(t *testing.T) {
	e := newFakeEngine()
	e.ticker = 100
	d := NewDCA(dcaCfg(), e, "BTC/USDT")

	d.RunIteration(context.Background())
	res := d.RunIteration(context.Background())
	if res.Action != models.ActionNone {
		t.Errorf("action = %v, want none within interval", res.Action)
	}
	if len(e.placed) != 1 {
		t.Errorf("orders placed = %d, want 1", len(e.placed))
	}
}

func TestDCAMaxPositions(t *testing.T) {
	cfg := dcaCfg()
	cfg.MaxPositions = 1
	e := newFakeEngine()
	e.ticker = 100
	d := NewDCA(cfg, e, "BTC/USDT")

	d.RunIteration(context.Background())
	d.lastInvestment = time.Now().Add(-25 * time.Hour)
	res := d.RunIteration(context.Background())
	if res.Action != models.ActionNone {
		t.Errorf("action = %v, want none at position cap", res.Action)
	}
}

func TestDCATakeProfitSellsProfitableEntriesOnly(t *testing.T) {
	cfg := dcaCfg()
	cfg.TakeProfitPct = 2
	e := newFakeEngine()
	e.ticker = 300
	d := NewDCA(cfg, e, "BTC/USDT")

	d.RunIteration(context.Background()) // 1/3 unit @ 300
	d.lastInvestment = time.Now().Add(-25 * time.Hour)
	e.ticker = 100
	d.RunIteration(context.Background()) // 1 unit @ 100

	// вход по 100 дал +3%, вход по 300 глубоко в минусе — продаётся только первый
	e.ticker = 103
	res := d.RunIteration(context.Background())
	if res.Action != models.ActionSell {
		t.Fatalf("action = %v (%s), want sell", res.Action, res.Reason)
	}
	if res.Amount != 1 {
		t.Errorf("sold %v units, want only the 1-unit entry at 100", res.Amount)
	}
	if math.Abs(res.ProfitPct-3) > 1e-9 {
		t.Errorf("profit pct = %v, want 3", res.ProfitPct)
	}
	if len(d.positions) != 1 || d.positions[0].Price != 300 {
		t.Fatalf("remaining positions = %+v, want the 300 entry kept", d.positions)
	}
	if d.totalInvested != 100 {
		t.Errorf("total invested = %v, want 100 after partial liquidation", d.totalInvested)
	}
}

func TestDCATakeProfitClosesAllProfitableEntries(t *testing.T) {
	cfg := dcaCfg()
	cfg.TakeProfitPct = 10
	e := newFakeEngine()
	e.ticker = 100
	d := NewDCA(cfg, e, "BTC/USDT")

	d.RunIteration(context.Background()) // 1 unit @ 100
	d.lastInvestment = time.Now().Add(-25 * time.Hour)
	e.ticker = 50
	d.RunIteration(context.Background()) // 2 units @ 50

	// оба входа выше цели — книга закрывается целиком
	e.ticker = 120
	res := d.RunIteration(context.Background())
	if res.Action != models.ActionSell {
		t.Fatalf("action = %v (%s), want sell", res.Action, res.Reason)
	}
	if res.Amount != 3 {
		t.Errorf("sold %v units, want all 3", res.Amount)
	}
	if len(d.positions) != 0 || d.totalInvested != 0 {
		t.Error("positions must reset after full take profit")
	}
	if res.ProfitPct <= 0 {
		t.Errorf("profit pct = %v, want positive", res.ProfitPct)
	}
}

func TestDCAInactiveGating(t *testing.T) {
	cfg := dcaCfg()
	cfg.TakeProfitPct = 10
	e := newFakeEngine()
	e.ticker = 100
	d := NewDCA(cfg, e, "BTC/USDT")

	// неактивно и позиций нет — полный простой
	e.active = false
	res := d.RunIteration(context.Background())
	if res.Action != models.ActionNone || res.Reason != "trading is not active" {
		t.Fatalf("result = %v %q, want inactive", res.Action, res.Reason)
	}

	// позиции есть — тейк-профит проверяется даже при выключенной торговле
	e.active = true
	d.RunIteration(context.Background())
	e.active = false
	e.ticker = 150
	res = d.RunIteration(context.Background())
	if res.Action != models.ActionSell {
		t.Errorf("action = %v, want take profit sell while inactive", res.Action)
	}
	// новых покупок при этом нет
	for _, o := range e.placed[1:] {
		if o.Side == models.SideBuy {
			t.Error("no new buys allowed while trading is inactive")
		}
	}
}

func TestDCANoTickerIsError(t *testing.T) {
	e := newFakeEngine()
	e.ticker = 0
	d := NewDCA(dcaCfg(), e, "BTC/USDT")
	res := d.RunIteration(context.Background())
	if res.Action != models.ActionError {
		t.Errorf("action = %v, want error without ticker", res.Action)
	}
}
