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

const adxTrendThreshold = 25.0

// Swing ловит среднесрочные развороты: MACD, полосы Боллинджера и ADX
// с направленными индексами.
type Swing struct {
	cfg    config.SwingConfig
	engine Engine
	symbol string

	activePosition  bool
	entryTime       time.Time
	entryPrice      float64
	stopLossPrice   float64
	takeProfitPrice float64
}

func NewSwing(cfg config.SwingConfig, engine Engine, symbol string) *Swing {
	logger.Info("swing strategy initialized for %s with %s timeframe", symbol, cfg.Timeframe)
	return &Swing{cfg: cfg, engine: engine, symbol: symbol}
}

func (s *Swing) Name() models.StrategyType { return models.StrategySwing }

func (s *Swing) analyzeMarket(ctx context.Context) models.Signal {
	candles := s.engine.GetOHLCV(ctx, s.symbol, s.cfg.Timeframe, ohlcvLimit)
	minLen := s.cfg.MACDSlow + s.cfg.MACDSignal
	if 2*s.cfg.ADXPeriod > minLen {
		minLen = 2 * s.cfg.ADXPeriod
	}
	if len(candles) < minLen+1 {
		logger.Error("failed to get OHLCV data for %s", s.symbol)
		return noDataSignal()
	}

	closes := models.Closes(candles)
	macd, macdSignal, _ := indicator.MACD(closes, s.cfg.MACDFast, s.cfg.MACDSlow, s.cfg.MACDSignal)
	_, bollUpper, bollLower := indicator.Bollinger(closes, s.cfg.BollingerPeriod, s.cfg.BollingerStd)
	adx, plusDI, minusDI := indicator.ADX(candles, s.cfg.ADXPeriod)

	last := len(closes) - 1
	prev := last - 1
	currentPrice := closes[last]

	var buyReasons []string
	if macd[prev] <= macdSignal[prev] && macd[last] > macdSignal[last] {
		buyReasons = append(buyReasons, "MACD bullish crossover")
	}
	if bollLower[last] > 0 && currentPrice <= bollLower[last]*1.02 && adx[last] > adxTrendThreshold {
		buyReasons = append(buyReasons, "price near Bollinger lower band with strong trend")
	}
	if plusDI[last] > minusDI[last] && plusDI[prev] <= minusDI[prev] {
		buyReasons = append(buyReasons, "bullish directional movement crossover")
	}

	var sellReasons []string
	if macd[prev] >= macdSignal[prev] && macd[last] < macdSignal[last] {
		sellReasons = append(sellReasons, "MACD bearish crossover")
	}
	if bollUpper[last] > 0 && currentPrice >= bollUpper[last]*0.98 && adx[last] > adxTrendThreshold {
		sellReasons = append(sellReasons, "price near Bollinger upper band with strong trend")
	}
	if minusDI[last] > plusDI[last] && minusDI[prev] <= plusDI[prev] {
		sellReasons = append(sellReasons, "bearish directional movement crossover")
	}

	if s.activePosition {
		if currentPrice <= s.stopLossPrice {
			return models.Signal{
				Kind:    models.SignalSell,
				Price:   currentPrice,
				Reasons: []string{fmt.Sprintf("stop loss triggered at %.8f", s.stopLossPrice)},
			}
		}
		if currentPrice >= s.takeProfitPrice {
			return models.Signal{
				Kind:    models.SignalSell,
				Price:   currentPrice,
				Reasons: []string{fmt.Sprintf("take profit triggered at %.8f", s.takeProfitPrice)},
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

func (s *Swing) executeSignal(ctx context.Context, sig models.Signal) models.ActionResult {
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
		s.stopLossPrice = sig.Price * (1 - s.cfg.StopLossPct/100)
		s.takeProfitPrice = sig.Price * (1 + s.cfg.ProfitTargetPct/100)
		logger.Info("opened swing long position for %.8f %s at %.8f, SL=%.8f TP=%.8f",
			amount, s.symbol, sig.Price, s.stopLossPrice, s.takeProfitPrice)
		return models.ActionResult{
			Action:     models.ActionBuy,
			Amount:     amount,
			Price:      sig.Price,
			Reason:     sig.Reason(),
			StopLoss:   s.stopLossPrice,
			TakeProfit: s.takeProfitPrice,
			Order:      &order,
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
		logger.Info("closed swing position for %.8f %s at %.8f (P/L: %.2f%%)", amount, s.symbol, sig.Price, profitPct)

		s.activePosition = false
		s.entryTime = time.Time{}
		s.entryPrice = 0
		s.stopLossPrice = 0
		s.takeProfitPrice = 0
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

func (s *Swing) RunIteration(ctx context.Context) models.ActionResult {
	if !s.engine.IsTradingActive() && !s.activePosition {
		return inactiveResult()
	}
	return s.executeSignal(ctx, s.analyzeMarket(ctx))
}

func (s *Swing) Status() map[string]any {
	return map[string]any{
		"strategy":          "swing",
		"symbol":            s.symbol,
		"timeframe":         s.cfg.Timeframe,
		"active_position":   s.activePosition,
		"entry_time":        s.entryTime,
		"entry_price":       s.entryPrice,
		"stop_loss_price":   s.stopLossPrice,
		"take_profit_price": s.takeProfitPrice,
		"profit_target_pct": s.cfg.ProfitTargetPct,
		"stop_loss_pct":     s.cfg.StopLossPct,
	}
}
