package service

import (
	"context"
	"fmt"
	"time"

	"ct_bot/internal/indicator"
	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

// Scalping ловит короткие движения на младших таймфреймах: RSI плюс
// пересечение быстрой и медленной EMA, быстрый выход по цели или по времени.
type Scalping struct {
	cfg    config.ScalpingConfig
	engine Engine
	symbol string

	activePosition bool
	entryTime      time.Time
	entryPrice     float64
}

func NewScalping(cfg config.ScalpingConfig, engine Engine, symbol string) *Scalping {
	logger.Info("scalping strategy initialized for %s with %s timeframe", symbol, cfg.Timeframe)
	return &Scalping{cfg: cfg, engine: engine, symbol: symbol}
}

func (s *Scalping) Name() models.StrategyType { return models.StrategyScalping }

func (s *Scalping) analyzeMarket(ctx context.Context) models.Signal {
	candles := s.engine.GetOHLCV(ctx, s.symbol, s.cfg.Timeframe, ohlcvLimit)
	minLen := s.cfg.EMALong + 1
	if s.cfg.RSIPeriod+2 > minLen {
		minLen = s.cfg.RSIPeriod + 2
	}
	if len(candles) < minLen {
		logger.Error("failed to get OHLCV data for %s", s.symbol)
		return noDataSignal()
	}

	closes := models.Closes(candles)
	rsi := indicator.RSI(closes, s.cfg.RSIPeriod)
	emaShort := indicator.EMA(closes, s.cfg.EMAShort)
	emaLong := indicator.EMA(closes, s.cfg.EMALong)

	last := len(closes) - 1
	prev := last - 1
	currentPrice := closes[last]

	var buyReasons, sellReasons []string
	if rsi[last] < s.cfg.RSIOversold {
		buyReasons = append(buyReasons, fmt.Sprintf("RSI oversold (%.2f)", rsi[last]))
	}
	if emaShort[prev] <= emaLong[prev] && emaShort[last] > emaLong[last] {
		buyReasons = append(buyReasons, "EMA crossover (bullish)")
	}
	if rsi[last] > s.cfg.RSIOverbought {
		sellReasons = append(sellReasons, fmt.Sprintf("RSI overbought (%.2f)", rsi[last]))
	}
	if emaShort[prev] >= emaLong[prev] && emaShort[last] < emaLong[last] {
		sellReasons = append(sellReasons, "EMA crossover (bearish)")
	}

	if s.activePosition {
		// правила выхода важнее правил входа
		if currentPrice >= s.entryPrice*(1+s.cfg.ProfitTargetPct/100) {
			return models.Signal{
				Kind:    models.SignalSell,
				Price:   currentPrice,
				Reasons: []string{fmt.Sprintf("profit target reached (%.2f%%)", s.cfg.ProfitTargetPct)},
			}
		}
		if !s.entryTime.IsZero() && time.Since(s.entryTime) >= s.cfg.MaxTradeDuration {
			return models.Signal{
				Kind:    models.SignalSell,
				Price:   currentPrice,
				Reasons: []string{fmt.Sprintf("maximum trade duration reached (%s)", s.cfg.MaxTradeDuration)},
			}
		}
		if len(sellReasons) > 0 {
			return models.Signal{Kind: models.SignalSell, Price: currentPrice, Reasons: sellReasons}
		}
	} else if len(buyReasons) > 0 && s.engine.IsTradingActive() {
		return models.Signal{Kind: models.SignalBuy, Price: currentPrice, Reasons: buyReasons}
	}

	return models.Signal{Kind: models.SignalNone, Price: currentPrice, Reasons: []string{"no trading opportunity"}}
}

func (s *Scalping) executeSignal(ctx context.Context, sig models.Signal) models.ActionResult {
	switch {
	case sig.Kind == models.SignalBuy && !s.activePosition:
		size := positionSize(ctx, s.engine, s.symbol, s.cfg.BalanceFraction)
		if size <= 0 || sig.Price <= 0 {
			return errorResult("no free balance for entry")
		}
		amount := size / sig.Price

		order, err := s.engine.ExecuteTrade(ctx, s.symbol, models.SideBuy, amount, 0)
		if err != nil {
			logger.Error("failed to execute buy order: %v", err)
			return errorResult(fmt.Sprintf("failed to execute buy order: %v", err))
		}

		s.activePosition = true
		s.entryTime = time.Now()
		s.entryPrice = sig.Price
		logger.Info("opened long position for %.8f %s at %.8f", amount, s.symbol, sig.Price)
		return models.ActionResult{
			Action: models.ActionBuy,
			Amount: amount,
			Price:  sig.Price,
			Reason: sig.Reason(),
			Order:  &order,
		}

	case sig.Kind == models.SignalSell && s.activePosition:
		amount := openExposure(s.engine, s.symbol)
		if amount <= 0 {
			return errorResult("no open exposure to close")
		}

		order, err := s.engine.ExecuteTrade(ctx, s.symbol, models.SideSell, amount, 0)
		if err != nil {
			logger.Error("failed to execute sell order: %v", err)
			return errorResult(fmt.Sprintf("failed to execute sell order: %v", err))
		}

		profitPct := (sig.Price - s.entryPrice) / s.entryPrice * 100
		logger.Info("closed long position for %.8f %s at %.8f (P/L: %.2f%%)", amount, s.symbol, sig.Price, profitPct)

		s.activePosition = false
		s.entryTime = time.Time{}
		s.entryPrice = 0
		return models.ActionResult{
			Action:    models.ActionSell,
			Amount:    amount,
			Price:     sig.Price,
			Reason:    sig.Reason(),
			ProfitPct: profitPct,
			Order:     &order,
		}
	}

	return models.ActionResult{Action: models.ActionNone, Reason: "no action taken"}
}

func (s *Scalping) RunIteration(ctx context.Context) models.ActionResult {
	if !s.engine.IsTradingActive() && !s.activePosition {
		return inactiveResult()
	}
	return s.executeSignal(ctx, s.analyzeMarket(ctx))
}

func (s *Scalping) Status() map[string]any {
	return map[string]any{
		"strategy":           "scalping",
		"symbol":             s.symbol,
		"timeframe":          s.cfg.Timeframe,
		"active_position":    s.activePosition,
		"entry_time":         s.entryTime,
		"entry_price":        s.entryPrice,
		"profit_target_pct":  s.cfg.ProfitTargetPct,
		"max_trade_duration": s.cfg.MaxTradeDuration.String(),
	}
}
