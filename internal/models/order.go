package models

import "time"

type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

type OrderStatus string

const (
	OrderStatusOpen   OrderStatus = "open"
	OrderStatusClosed OrderStatus = "closed"
)

// Order — результат исполнения сделки. Paper-ордера исполняются мгновенно
// и всегда закрыты.
type Order struct {
	ID        string
	Symbol    string
	Side      Side
	Amount    float64
	Price     float64
	Cost      float64
	Status    OrderStatus
	Fee       Fee
	Timestamp time.Time
	Paper     bool
}

type Fee struct {
	Cost     float64
	Currency string
}

// ActiveTrade — запись в реестре активных сделок движка.
type ActiveTrade struct {
	Symbol    string
	Side      Side
	Amount    float64
	Price     float64
	Status    OrderStatus
	Timestamp time.Time
}

// Balance — остатки по валютам. Paper-режим отдаёт синтетический набор.
type Balance struct {
	Total map[string]float64
	Free  map[string]float64
	Used  map[string]float64
	Paper bool
}

func (b Balance) FreeOf(currency string) float64 {
	return b.Free[currency]
}
