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

// Momentum торгует продолжение тренда: ROC, объём, скользящие и MACD.
// Вход требует минимум двух независимых подтверждений.
type Momentum struct {
	cfg    config.MomentumConfig
	engine Engine
	symbol string

	activePosition  bool
	entryTime       time.Time
	entryPrice      float64
	stopLossPrice   float64
	takeProfitPrice float64
}

const momentumMinConfirmations = 2

func NewMomentum(cfg config.MomentumConfig, engine Engine, symbol string) *Momentum {
	logger.Info("momentum strategy initialized for %s with %s timeframe", symbol, cfg.Timeframe)
	return &Momentum{cfg: cfg, engine: engine, symbol: symbol}
}

func (m *Momentum) Name() models.StrategyType { return models.StrategyMomentum }

func (m *Momentum) analyzeMarket(ctx context.Context) models.Signal {
	candles := m.engine.GetOHLCV(ctx, m.symbol, m.cfg.Timeframe, ohlcvLimit)
	if len(candles) < 51 { // SMA50 + предыдущая свеча
		logger.Error("failed to get OHLCV data for %s", m.symbol)
		return noDataSignal()
	}

	closes := models.Closes(candles)
	volumes := models.Volumes(candles)

	roc := indicator.ROC(closes, m.cfg.ROCPeriod)
	rsi := indicator.RSI(closes, m.cfg.RSIPeriod)
	volumeMA := indicator.SMA(volumes, m.cfg.ROCPeriod)
	sma20 := indicator.SMA(closes, 20)
	sma50 := indicator.SMA(closes, 50)
	macd, macdSignal, macdHist := indicator.MACD(closes, 12, 26, 9)

	last := len(closes) - 1
	prev := last - 1
	currentPrice := closes[last]

	var buyReasons []string
	if roc[last] > m.cfg.ROCThreshold {
		buyReasons = append(buyReasons, fmt.Sprintf("strong positive momentum (ROC: %.2f%%)", roc[last]))
	}
	if volumeMA[last] > 0 && volumes[last] > volumeMA[last]*m.cfg.VolumeFactor {
		buyReasons = append(buyReasons, fmt.Sprintf("volume surge (%.2fx average)", volumes[last]/volumeMA[last]))
	}
	if currentPrice > sma20[last] && sma20[last] > sma50[last] {
		buyReasons = append(buyReasons, "price above moving averages in uptrend")
	}
	if macd[last] > macdSignal[last] && macdHist[last] > 0 {
		buyReasons = append(buyReasons, "MACD confirms upward momentum")
	}

	var sellReasons []string
	if roc[last] < roc[prev] && roc[prev] > m.cfg.ROCThreshold {
		sellReasons = append(sellReasons, fmt.Sprintf("momentum weakening (ROC: %.2f%% < %.2f%%)", roc[last], roc[prev]))
	}
	if rsi[last] > m.cfg.RSIOverbought {
		sellReasons = append(sellReasons, fmt.Sprintf("RSI overbought (%.2f)", rsi[last]))
	}
	if macd[last] < macdSignal[last] && macd[prev] >= macdSignal[prev] {
		sellReasons = append(sellReasons, "MACD bearish crossover")
	}

	if m.activePosition {
		if currentPrice <= m.stopLossPrice {
			return models.Signal{
				Kind:    models.SignalSell,
				Price:   currentPrice,
				Reasons: []string{fmt.Sprintf("stop loss triggered at %.8f", m.stopLossPrice)},
			}
		}
		if currentPrice >= m.takeProfitPrice {
			return models.Signal{
				Kind:    models.SignalSell,
				Price:   currentPrice,
				Reasons: []string{fmt.Sprintf("take profit triggered at %.8f", m.takeProfitPrice)},
			}
		}
		if len(sellReasons) > 0 {
			return models.Signal{Kind: models.SignalSell, Price: currentPrice, Reasons: sellReasons}
		}
	} else if len(buyReasons) >= momentumMinConfirmations && m.engine.IsTradingActive() {
		return models.Signal{Kind: models.SignalBuy, Price: currentPrice, Reasons: buyReasons}
	}

	return models.Signal{Kind: models.SignalNone, Price: currentPrice, Reasons: []string{"no trading opportunity"}}
}

func (m *Momentum) executeSignal(ctx context.Context, sig models.Signal) models.ActionResult {
	switch {
	case sig.Kind == models.SignalBuy && !m.activePosition:
		size := positionSize(ctx, m.engine, m.symbol, m.cfg.BalanceFraction)
		if size <= 0 || sig.Price <= 0 {
			return errorResult("no free balance for entry")
		}
		amount := size / sig.Price

		order, err := m.engine.ExecuteTrade(ctx, m.symbol, models.SideBuy, amount, 0)
		if err != nil {
			logger.Error("failed to execute buy order: %v", err)
			return errorResult(fmt.Sprintf("failed to execute buy order: %v", err))
		}

		m.activePosition = true
		m.entryTime = time.Now()
		m.entryPrice = sig.Price
		m.stopLossPrice = sig.Price * (1 - m.cfg.StopLossPct/100)
		m.takeProfitPrice = sig.Price * (1 + m.cfg.ProfitTargetPct/100)
		logger.Info("opened momentum long position for %.8f %s at %.8f, SL=%.8f TP=%.8f",
			amount, m.symbol, sig.Price, m.stopLossPrice, m.takeProfitPrice)
		return models.ActionResult{
			Action:     models.ActionBuy,
			Amount:     amount,
			Price:      sig.Price,
			Reason:     sig.Reason(),
			StopLoss:   m.stopLossPrice,
			TakeProfit: m.takeProfitPrice,
			Order:      &order,
		}

	case sig.Kind == models.SignalSell && m.activePosition:
		amount := openExposure(m.engine, m.symbol)
		if amount <= 0 {
			return errorResult("no open exposure to close")
		}

		order, err := m.engine.ExecuteTrade(ctx, m.symbol, models.SideSell, amount, 0)
		if err != nil {
			logger.Error("failed to execute sell order: %v", err)
			return errorResult(fmt.Sprintf("failed to execute sell order: %v", err))
		}

		profitPct := (sig.Price - m.entryPrice) / m.entryPrice * 100
		logger.Info("closed momentum position for %.8f %s at %.8f (P/L: %.2f%%)", amount, m.symbol, sig.Price, profitPct)

		m.activePosition = false
		m.entryTime = time.Time{}
		m.entryPrice = 0
		m.stopLossPrice = 0
		m.takeProfitPrice = 0
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

func (m *Momentum) RunIteration(ctx context.Context) models.ActionResult {
	if !m.engine.IsTradingActive() && !m.activePosition {
		return inactiveResult()
	}
	return m.executeSignal(ctx, m.analyzeMarket(ctx))
}

func (m *Momentum) Status() map[string]any {
	return map[string]any{
		"strategy":          "momentum",
		"symbol":            m.symbol,
		"timeframe":         m.cfg.Timeframe,
		"active_position":   m.activePosition,
		"entry_time":        m.entryTime,
		"entry_price":       m.entryPrice,
		"stop_loss_price":   m.stopLossPrice,
		"take_profit_price": m.takeProfitPrice,
		"roc_threshold":     m.cfg.ROCThreshold,
		"profit_target_pct": m.cfg.ProfitTargetPct,
		"stop_loss_pct":     m.cfg.StopLossPct,
	}
}
