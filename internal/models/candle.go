package models

import "time"

// Candle — одна OHLCV-свеча.
type Candle struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Ticker — последняя цена символа. Empty() — источник данных не ответил.
type Ticker struct {
	Symbol string
	Last   float64
}

func (t Ticker) Empty() bool { return t.Last <= 0 }

func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

func Volumes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Volume
	}
	return out
}
