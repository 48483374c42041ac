package models

import (
	"math"
	"time"
)

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// StopPosition — позиция под управлением динамического стоп-лосса.
// Принадлежит ровно одному трекеру; после срабатывания (Triggered) удаляется из трекинга.
type StopPosition struct {
	ID           string
	Symbol       string
	Side         PositionSide
	EntryPrice   float64
	CurrentPrice float64
	Amount       float64
	EntryTime    time.Time

	StopLossPrice float64
	HighestPrice  float64
	LowestPrice   float64

	// StopLossUpdated — стоп уже переведён в безубыток (ровно один раз).
	StopLossUpdated bool
	Triggered       bool
}

func NewStopPosition(id, symbol string, side PositionSide, entry, amount, stopLoss float64, now time.Time) *StopPosition {
	p := &StopPosition{
		ID:            id,
		Symbol:        symbol,
		Side:          side,
		EntryPrice:    entry,
		CurrentPrice:  entry,
		Amount:        amount,
		EntryTime:     now,
		StopLossPrice: stopLoss,
	}
	if side == PositionLong {
		p.HighestPrice = entry
		p.LowestPrice = 0
	} else {
		p.HighestPrice = math.Inf(1)
		p.LowestPrice = entry
	}
	return p
}
