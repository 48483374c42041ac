package service

import (
	"context"
	"fmt"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

// Arbitrage сравнивает цены одного символа на двух площадках и сигналит,
// когда спред превышает порог. Позиций не держит: каждая итерация — свежая
// пара котировок.
type Arbitrage struct {
	cfg    config.ArbitrageConfig
	symbol string
	engine Engine

	venueA Venue
	venueB Venue

	opportunities int
}

func NewArbitrage(cfg config.ArbitrageConfig, engine Engine, resolver VenueResolver, symbol string) (*Arbitrage, error) {
	venueA, err := resolver.Venue(cfg.VenueA)
	if err != nil {
		return nil, err
	}
	venueB, err := resolver.Venue(cfg.VenueB)
	if err != nil {
		return nil, err
	}
	logger.Info("arbitrage strategy initialized for %s between %s and %s", symbol, cfg.VenueA, cfg.VenueB)
	return &Arbitrage{cfg: cfg, symbol: symbol, engine: engine, venueA: venueA, venueB: venueB}, nil
}

func (a *Arbitrage) Name() models.StrategyType { return models.StrategyArbitrage }

// findOpportunity считает спред в процентах от большей из двух цен
// (цены продажи): так порог не завышает доходность сделки.
func (a *Arbitrage) findOpportunity(ctx context.Context) (models.Signal, error) {
	tickerA, err := a.venueA.Ticker(ctx, a.symbol)
	if err != nil {
		return models.Signal{}, err
	}
	tickerB, err := a.venueB.Ticker(ctx, a.symbol)
	if err != nil {
		return models.Signal{}, err
	}
	if tickerA.Last <= 0 || tickerB.Last <= 0 {
		return noDataSignal(), nil
	}

	low, high := tickerA.Last, tickerB.Last
	buyVenue, sellVenue := a.cfg.VenueA, a.cfg.VenueB
	if low > high {
		low, high = high, low
		buyVenue, sellVenue = a.cfg.VenueB, a.cfg.VenueA
	}
	spreadPct := (high - low) / high * 100

	if spreadPct < a.cfg.ThresholdPct {
		return models.Signal{
			Kind:    models.SignalNone,
			Reasons: []string{fmt.Sprintf("spread %.4f%% below threshold %.2f%%", spreadPct, a.cfg.ThresholdPct)},
		}, nil
	}

	return models.Signal{
		Kind:      models.SignalArbitrage,
		BuyVenue:  buyVenue,
		SellVenue: sellVenue,
		BuyPrice:  low,
		SellPrice: high,
		SpreadPct: spreadPct,
		Reasons: []string{fmt.Sprintf("spread %.4f%%: buy on %s at %.8f, sell on %s at %.8f",
			spreadPct, buyVenue, low, sellVenue, high)},
	}, nil
}

func (a *Arbitrage) RunIteration(ctx context.Context) models.ActionResult {
	if !a.engine.IsTradingActive() {
		return inactiveResult()
	}

	sig, err := a.findOpportunity(ctx)
	if err != nil {
		logger.Error("arbitrage price fetch failed: %v", err)
		return errorResult(fmt.Sprintf("failed to fetch venue prices: %v", err))
	}
	if sig.Kind != models.SignalArbitrage {
		return models.ActionResult{Action: models.ActionNone, Reason: sig.Reason()}
	}

	a.opportunities++
	logger.Info("arbitrage opportunity on %s: %s", a.symbol, sig.Reason())
	return models.ActionResult{
		Action: models.ActionArbitrage,
		Price:  sig.BuyPrice,
		Reason: sig.Reason(),
		Signal: &sig,
	}
}

func (a *Arbitrage) Status() map[string]any {
	return map[string]any{
		"strategy":      "arbitrage",
		"symbol":        a.symbol,
		"venue_a":       a.cfg.VenueA,
		"venue_b":       a.cfg.VenueB,
		"threshold_pct": a.cfg.ThresholdPct,
		"opportunities": a.opportunities,
	}
}
