package service

import (
	"context"
	"sync"
	"time"

	"ct_bot/internal/indicator"
	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

// MarketAccess — доступ к рыночным данным через движок.
type MarketAccess interface {
	GetTicker(ctx context.Context, symbol string) models.Ticker
	GetOHLCV(ctx context.Context, symbol, timeframe string, limit int) []models.Candle
}

// Tracker ведёт стоп-лоссы позиций по одному символу.
//
// Жизненный цикл позиции: OPEN -> (подтяжка трейлинга)* -> TRIGGERED (терминально)
// либо OPEN -> удаление через RemovePosition. Сработавшие позиции вычищаются
// только в CheckPositions.
type Tracker struct {
	cfg    config.StopLossConfig
	engine MarketAccess
	symbol string

	mu        sync.Mutex
	positions map[string]*models.StopPosition
}

func NewTracker(cfg config.StopLossConfig, engine MarketAccess, symbol string) *Tracker {
	logger.Info("dynamic stop-loss tracker initialized for %s", symbol)
	return &Tracker{
		cfg:       cfg,
		engine:    engine,
		symbol:    symbol,
		positions: make(map[string]*models.StopPosition),
	}
}

func (t *Tracker) calculateATR(ctx context.Context) float64 {
	candles := t.engine.GetOHLCV(ctx, t.symbol, "1h", t.cfg.ATRPeriod+10)
	return indicator.ATR(candles, t.cfg.ATRPeriod)
}

// CalculateInitialStopLoss выбирает из процентного и ATR-уровня тот, что ближе
// к цене входа (более консервативный). Без данных ATR действует процентный
// уровень в одиночку.
func (t *Tracker) CalculateInitialStopLoss(ctx context.Context, entryPrice float64, side models.PositionSide) float64 {
	var base float64
	if side == models.PositionLong {
		base = entryPrice * (1 - t.cfg.InitialStopLossPct/100)
	} else {
		base = entryPrice * (1 + t.cfg.InitialStopLossPct/100)
	}

	if !t.cfg.VolatilityAdjust {
		return base
	}
	atr := t.calculateATR(ctx)
	if atr <= 0 {
		return base
	}

	if side == models.PositionLong {
		atrStop := entryPrice - atr*t.cfg.ATRMultiplier
		if atrStop > base {
			return atrStop
		}
		return base
	}
	atrStop := entryPrice + atr*t.cfg.ATRMultiplier
	if atrStop < base {
		return atrStop
	}
	return base
}

// RegisterPosition ставит позицию на трекинг и возвращает её состояние.
func (t *Tracker) RegisterPosition(ctx context.Context, id string, entryPrice, amount float64, side models.PositionSide) *models.StopPosition {
	stop := t.CalculateInitialStopLoss(ctx, entryPrice, side)
	pos := models.NewStopPosition(id, t.symbol, side, entryPrice, amount, stop, time.Now())

	t.mu.Lock()
	t.positions[id] = pos
	t.mu.Unlock()

	logger.Info("registered position %s with initial stop loss at %.8f", id, stop)
	return pos
}

// UpdatePosition обновляет экскурсию, трейлинг, перевод в безубыток и проверяет
// срабатывание стопа. nil, если позиция неизвестна.
func (t *Tracker) UpdatePosition(id string, currentPrice float64) *models.StopPosition {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos, ok := t.positions[id]
	if !ok {
		logger.Error("position %s not found", id)
		return nil
	}
	pos.CurrentPrice = currentPrice

	if pos.Side == models.PositionLong {
		if currentPrice > pos.HighestPrice {
			pos.HighestPrice = currentPrice
		}
	} else {
		if currentPrice < pos.LowestPrice {
			pos.LowestPrice = currentPrice
		}
	}

	// трейлинг включается после перевода стопа в безубыток и только подтягивает
	if t.cfg.TrailingStopPct > 0 && pos.StopLossUpdated {
		if pos.Side == models.PositionLong {
			trailing := pos.HighestPrice * (1 - t.cfg.TrailingStopPct/100)
			if trailing > pos.StopLossPrice {
				pos.StopLossPrice = trailing
				logger.Info("updated trailing stop loss for %s to %.8f", id, trailing)
			}
		} else {
			trailing := pos.LowestPrice * (1 + t.cfg.TrailingStopPct/100)
			if trailing < pos.StopLossPrice {
				pos.StopLossPrice = trailing
				logger.Info("updated trailing stop loss for %s to %.8f", id, trailing)
			}
		}
	}

	// безубыток: один раз, после выдержки и благоприятной экскурсии за буфером
	if t.cfg.TimeBasedAdjust && !pos.StopLossUpdated && time.Since(pos.EntryTime) >= t.cfg.BreakevenAfter {
		buffer := t.cfg.BreakevenBufferPct / 100
		favorable := (pos.Side == models.PositionLong && pos.HighestPrice >= pos.EntryPrice*(1+buffer)) ||
			(pos.Side == models.PositionShort && pos.LowestPrice <= pos.EntryPrice*(1-buffer))
		if favorable {
			pos.StopLossPrice = pos.EntryPrice
			pos.StopLossUpdated = true
			logger.Info("moved stop loss to breakeven for %s", id)
		}
	}

	if (pos.Side == models.PositionLong && currentPrice <= pos.StopLossPrice) ||
		(pos.Side == models.PositionShort && currentPrice >= pos.StopLossPrice) {
		pos.Triggered = true
		logger.Info("stop loss triggered for %s at %.8f", id, currentPrice)
	}

	return pos
}

// CheckPositions прогоняет все позиции через свежий тикер и возвращает свежесработавшие.
// Единственное место, где сработавшие позиции удаляются из трекинга.
func (t *Tracker) CheckPositions(ctx context.Context) []*models.StopPosition {
	ticker := t.engine.GetTicker(ctx, t.symbol)
	if ticker.Empty() {
		logger.Error("failed to get current price for %s", t.symbol)
		return nil
	}

	t.mu.Lock()
	ids := make([]string, 0, len(t.positions))
	for id := range t.positions {
		ids = append(ids, id)
	}
	t.mu.Unlock()

	var triggered []*models.StopPosition
	for _, id := range ids {
		pos := t.UpdatePosition(id, ticker.Last)
		if pos != nil && pos.Triggered {
			triggered = append(triggered, pos)
			t.mu.Lock()
			delete(t.positions, id)
			t.mu.Unlock()
		}
	}
	return triggered
}

// RemovePosition снимает позицию с трекинга (явная отмена).
func (t *Tracker) RemovePosition(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.positions[id]; ok {
		delete(t.positions, id)
		logger.Info("removed position %s from stop loss tracking", id)
	}
}

func (t *Tracker) GetPosition(id string) *models.StopPosition {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positions[id]
}

func (t *Tracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.positions)
}
