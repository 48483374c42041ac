package service

import (
	"context"
	"testing"
	"time"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type fakeMarket struct {
	last    float64
	candles []models.Candle
}

func (f *fakeMarket) GetTicker(_ context.Context, symbol string) models.Ticker {
	return models.Ticker{Symbol: symbol, Last: f.last}
}

func (f *fakeMarket) GetOHLCV(context.Context, string, string, int) []models.Candle {
	return f.candles
}

func testCfg() config.StopLossConfig {
	return config.StopLossConfig{
		InitialStopLossPct: 2.0,
		TrailingStopPct:    1.0,
		ATRPeriod:          14,
		ATRMultiplier:      2.0,
		TimeBasedAdjust:    true,
		VolatilityAdjust:   true,
		BreakevenAfter:     24 * time.Hour,
		BreakevenBufferPct: 1.0,
	}
}

func flatCandles(n int, price, spread float64) []models.Candle {
	out := make([]models.Candle, n)
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = models.Candle{
			Timestamp: ts.Add(time.Duration(i) * time.Hour),
			Open:      price, High: price + spread, Low: price - spread, Close: price,
		}
	}
	return out
}

func TestCalculateInitialStopLossPicksNearerLevel(t *testing.T) {
	// ATR = 2*spread = 1.0; ATR-стоп для лонга: 100 - 1*2 = 98
	// процентный стоп: 100 * 0.98 = 98 — равные; сузим спред, чтобы ATR-стоп был ближе
	t.Run("long ATR stop nearer", func(t *testing.T) {
		m := &fakeMarket{candles: flatCandles(30, 100, 0.25)} // ATR=0.5, atrStop=99
		tr := NewTracker(testCfg(), m, "BTC/USDT")
		got := tr.CalculateInitialStopLoss(context.Background(), 100, models.PositionLong)
		if got != 99 {
			t.Errorf("stop = %v, want 99 (ATR level nearer to entry)", got)
		}
	})
	t.Run("long pct stop nearer", func(t *testing.T) {
		m := &fakeMarket{candles: flatCandles(30, 100, 2)} // ATR=4, atrStop=92
		tr := NewTracker(testCfg(), m, "BTC/USDT")
		got := tr.CalculateInitialStopLoss(context.Background(), 100, models.PositionLong)
		if got != 98 {
			t.Errorf("stop = %v, want 98 (pct level nearer to entry)", got)
		}
	})
	t.Run("short mirrored", func(t *testing.T) {
		m := &fakeMarket{candles: flatCandles(30, 100, 0.25)} // ATR=0.5, atrStop=101
		tr := NewTracker(testCfg(), m, "BTC/USDT")
		got := tr.CalculateInitialStopLoss(context.Background(), 100, models.PositionShort)
		if got != 101 {
			t.Errorf("short stop = %v, want 101", got)
		}
	})
	t.Run("no candles falls back to pct", func(t *testing.T) {
		tr := NewTracker(testCfg(), &fakeMarket{}, "BTC/USDT")
		got := tr.CalculateInitialStopLoss(context.Background(), 100, models.PositionLong)
		if got != 98 {
			t.Errorf("stop = %v, want 98", got)
		}
	})
	t.Run("volatility adjust disabled ignores ATR", func(t *testing.T) {
		cfg := testCfg()
		cfg.VolatilityAdjust = false
		m := &fakeMarket{candles: flatCandles(30, 100, 0.25)}
		tr := NewTracker(cfg, m, "BTC/USDT")
		got := tr.CalculateInitialStopLoss(context.Background(), 100, models.PositionLong)
		if got != 98 {
			t.Errorf("stop = %v, want 98", got)
		}
	})
}

func TestTrailingOnlyAfterBreakeven(t *testing.T) {
	tr := NewTracker(testCfg(), &fakeMarket{}, "BTC/USDT")
	pos := tr.RegisterPosition(context.Background(), "p1", 100, 1, models.PositionLong)

	// до безубытка трейлинг выключен: рост цены стоп не двигает
	tr.UpdatePosition("p1", 110)
	if pos.StopLossPrice != 98 {
		t.Errorf("stop moved to %v before breakeven", pos.StopLossPrice)
	}

	// форсируем безубыток
	pos.EntryTime = time.Now().Add(-25 * time.Hour)
	tr.UpdatePosition("p1", 110)
	if !pos.StopLossUpdated || pos.StopLossPrice != 100 {
		t.Fatalf("breakeven not applied: updated=%v stop=%v", pos.StopLossUpdated, pos.StopLossPrice)
	}

	// теперь трейлинг подтягивает: highest=115, стоп = 115*0.99
	tr.UpdatePosition("p1", 115)
	want := 115 * 0.99
	if pos.StopLossPrice != want {
		t.Errorf("trailing stop = %v, want %v", pos.StopLossPrice, want)
	}

	// откат цены стоп не опускает
	tr.UpdatePosition("p1", 114)
	if pos.StopLossPrice != want {
		t.Errorf("trailing stop moved down to %v", pos.StopLossPrice)
	}
}

func TestBreakevenRequiresDwellAndExcursion(t *testing.T) {
	tr := NewTracker(testCfg(), &fakeMarket{}, "BTC/USDT")
	pos := tr.RegisterPosition(context.Background(), "p1", 100, 1, models.PositionLong)

	// выдержка есть, экскурсии нет (нужно минимум 101)
	pos.EntryTime = time.Now().Add(-25 * time.Hour)
	tr.UpdatePosition("p1", 100.5)
	if pos.StopLossUpdated {
		t.Error("breakeven applied without sufficient excursion")
	}

	// экскурсия за буфером
	tr.UpdatePosition("p1", 101.5)
	if !pos.StopLossUpdated || pos.StopLossPrice != 100 {
		t.Errorf("breakeven not applied: updated=%v stop=%v", pos.StopLossUpdated, pos.StopLossPrice)
	}

	// повторно не применяется и трейлинг уже не откатывает стоп к входу
	tr.UpdatePosition("p1", 120)
	if pos.StopLossPrice <= 100 {
		t.Errorf("stop = %v, want trailing above breakeven", pos.StopLossPrice)
	}
	savedStop := pos.StopLossPrice
	tr.UpdatePosition("p1", 119)
	if pos.StopLossPrice != savedStop {
		t.Error("breakeven must be applied at most once")
	}
}

func TestBreakevenAtExactExcursionBoundary(t *testing.T) {
	tr := NewTracker(testCfg(), &fakeMarket{}, "BTC/USDT")

	// экскурсии ровно в размер буфера (1%) достаточно, обе стороны
	long := tr.RegisterPosition(context.Background(), "p1", 100, 1, models.PositionLong)
	long.EntryTime = time.Now().Add(-25 * time.Hour)
	tr.UpdatePosition("p1", 101)
	if !long.StopLossUpdated || long.StopLossPrice != 100 {
		t.Errorf("long breakeven at boundary: updated=%v stop=%v", long.StopLossUpdated, long.StopLossPrice)
	}

	short := tr.RegisterPosition(context.Background(), "p2", 100, 1, models.PositionShort)
	short.EntryTime = time.Now().Add(-25 * time.Hour)
	tr.UpdatePosition("p2", 99)
	if !short.StopLossUpdated || short.StopLossPrice != 100 {
		t.Errorf("short breakeven at boundary: updated=%v stop=%v", short.StopLossUpdated, short.StopLossPrice)
	}
}

func TestStopTriggerLongAndShort(t *testing.T) {
	tr := NewTracker(testCfg(), &fakeMarket{}, "BTC/USDT")

	long := tr.RegisterPosition(context.Background(), "long", 100, 1, models.PositionLong)
	tr.UpdatePosition("long", 97.9) // стоп 98
	if !long.Triggered {
		t.Error("long stop must trigger at price below stop")
	}

	short := tr.RegisterPosition(context.Background(), "short", 100, 1, models.PositionShort)
	tr.UpdatePosition("short", 102.1) // стоп 102
	if !short.Triggered {
		t.Error("short stop must trigger at price above stop")
	}
}

func TestCheckPositionsPurgesTriggered(t *testing.T) {
	market := &fakeMarket{last: 97}
	tr := NewTracker(testCfg(), market, "BTC/USDT")
	tr.RegisterPosition(context.Background(), "p1", 100, 1, models.PositionLong)
	tr.RegisterPosition(context.Background(), "p2", 90, 1, models.PositionLong)

	triggered := tr.CheckPositions(context.Background())
	if len(triggered) != 1 || triggered[0].ID != "p1" {
		t.Fatalf("triggered = %v, want exactly p1", triggered)
	}
	if tr.GetPosition("p1") != nil {
		t.Error("triggered position must be purged from tracking")
	}
	if tr.GetPosition("p2") == nil {
		t.Error("surviving position must stay tracked")
	}
	if tr.Count() != 1 {
		t.Errorf("count = %d, want 1", tr.Count())
	}
}

func TestCheckPositionsNoTicker(t *testing.T) {
	tr := NewTracker(testCfg(), &fakeMarket{last: 0}, "BTC/USDT")
	tr.RegisterPosition(context.Background(), "p1", 100, 1, models.PositionLong)
	if got := tr.CheckPositions(context.Background()); got != nil {
		t.Errorf("CheckPositions without ticker = %v, want nil", got)
	}
	if tr.Count() != 1 {
		t.Error("positions must survive a failed sweep")
	}
}

func TestRemovePosition(t *testing.T) {
	tr := NewTracker(testCfg(), &fakeMarket{}, "BTC/USDT")
	tr.RegisterPosition(context.Background(), "p1", 100, 1, models.PositionLong)
	tr.RemovePosition("p1")
	if tr.GetPosition("p1") != nil {
		t.Error("removed position must not be tracked")
	}
	if tr.UpdatePosition("p1", 100) != nil {
		t.Error("update of unknown position must return nil")
	}
}
