package models

import "strings"

type StrategyType string

const (
	StrategyGrid      StrategyType = "grid"
	StrategyDCA       StrategyType = "dca"
	StrategyMomentum  StrategyType = "momentum"
	StrategyScalping  StrategyType = "scalping"
	StrategySwing     StrategyType = "swing"
	StrategyArbitrage StrategyType = "arbitrage"
)

type SignalKind string

const (
	SignalNone      SignalKind = "none"
	SignalBuy       SignalKind = "buy"
	SignalSell      SignalKind = "sell"
	SignalArbitrage SignalKind = "arbitrage"
)

// Signal — решение анализа рынка. Поля площадок заполняются только
// для SignalArbitrage.
type Signal struct {
	Kind    SignalKind
	Price   float64
	Reasons []string

	BuyVenue  string
	SellVenue string
	BuyPrice  float64
	SellPrice float64
	SpreadPct float64
}

func (s Signal) Reason() string { return strings.Join(s.Reasons, "; ") }

type ActionKind string

const (
	ActionNone      ActionKind = "none"
	ActionBuy       ActionKind = "buy"
	ActionSell      ActionKind = "sell"
	ActionError     ActionKind = "error"
	ActionArbitrage ActionKind = "arbitrage"
	ActionRebalance ActionKind = "rebalance"
)

// ActionResult — итог одной итерации стратегии.
type ActionResult struct {
	Action     ActionKind
	Amount     float64
	Price      float64
	Reason     string
	ProfitPct  float64
	StopLoss   float64
	TakeProfit float64
	Order      *Order
	Signal     *Signal
}
