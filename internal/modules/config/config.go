package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"ct_bot/pkg/logger"
)

const (
	configFilePathENV = "CONFIG_FILE"
	defaultConfigFile = "values_local.yaml"
)

type Config struct {
	Telegram struct {
		Token  string
		ChatID int64
	}
	DB string

	Jaeger struct {
		Host string
		Port int
	}

	Exchange ExchangeConfig
	Engine   EngineConfig
	StopLoss StopLossConfig
	Strategy StrategyConfig
	Runner   RunnerConfig
}

type ExchangeConfig struct {
	Name      string
	BaseURL   string
	WSURL     string
	APIKey    string
	APISecret string
	WSEnabled bool
}

type EngineConfig struct {
	// "paper" или "live"
	TradingMode    string
	MaxTradeAmount float64
	PaperFeePct    float64

	MinMarketConditionScore int
	AutoResumeThreshold     int
	ScoreSymbols            []string

	// Синтетические балансы paper-режима, валюта -> свободный остаток.
	PaperFreeBalances map[string]float64
}

func (c EngineConfig) IsLive() bool { return c.TradingMode == "live" }

type StopLossConfig struct {
	InitialStopLossPct float64
	TrailingStopPct    float64 // 0 — трейлинг выключен
	ATRPeriod          int
	ATRMultiplier      float64
	TimeBasedAdjust    bool
	VolatilityAdjust   bool
	BreakevenAfter     time.Duration
	BreakevenBufferPct float64
}

type StrategyConfig struct {
	Symbol  string
	Enabled []string
	Presets string // путь к presets.yaml, пусто — дефолты

	Scalping  ScalpingConfig
	Momentum  MomentumConfig
	Swing     SwingConfig
	Grid      GridConfig
	DCA       DCAConfig
	Arbitrage ArbitrageConfig
}

type ScalpingConfig struct {
	Timeframe        string
	RSIPeriod        int
	RSIOverbought    float64
	RSIOversold      float64
	EMAShort         int
	EMALong          int
	ProfitTargetPct  float64
	MaxTradeDuration time.Duration
	BalanceFraction  float64
}

type MomentumConfig struct {
	Timeframe       string
	ROCPeriod       int
	ROCThreshold    float64
	RSIPeriod       int
	RSIOverbought   float64
	RSIOversold     float64
	VolumeFactor    float64
	ProfitTargetPct float64
	StopLossPct     float64
	BalanceFraction float64
}

type SwingConfig struct {
	Timeframe       string
	MACDFast        int
	MACDSlow        int
	MACDSignal      int
	BollingerPeriod int
	BollingerStd    float64
	ADXPeriod       int
	ProfitTargetPct float64
	StopLossPct     float64
	BalanceFraction float64
}

type GridConfig struct {
	UpperPrice         float64
	LowerPrice         float64
	Levels             int
	TotalInvestment    float64
	RebalanceCooldown  time.Duration
	RebalanceThreshold float64
}

type DCAConfig struct {
	InvestmentAmount float64
	Interval         time.Duration
	MaxPositions     int
	TakeProfitPct    float64 // 0 — чистый DCA без фиксации
}

type ArbitrageConfig struct {
	VenueA       string
	VenueB       string
	ThresholdPct float64
}

type RunnerConfig struct {
	IterationInterval time.Duration
	ScoreInterval     time.Duration
	StopSweepInterval time.Duration
}

func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	name := defaultConfigFile
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	if f := v.GetString(configFilePathENV); f != "" {
		name = f
	}
	v.SetConfigFile("configs/" + name)

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// без файла живём на дефолтах и env
		logger.Info("config file not read, using defaults: %v", err)
	}

	cfg := &Config{}
	cfg.Telegram.Token = v.GetString("telegram.token")
	cfg.Telegram.ChatID = v.GetInt64("telegram.chat_id")
	cfg.DB = v.GetString("db_dsn")
	cfg.Jaeger.Host = v.GetString("jaeger.host")
	cfg.Jaeger.Port = v.GetInt("jaeger.port")

	cfg.Exchange = ExchangeConfig{
		Name:      v.GetString("exchange.name"),
		BaseURL:   v.GetString("exchange.base_url"),
		WSURL:     v.GetString("exchange.ws_url"),
		APIKey:    v.GetString("exchange.api_key"),
		APISecret: v.GetString("exchange.api_secret"),
		WSEnabled: v.GetBool("exchange.ws_enabled"),
	}

	cfg.Engine = EngineConfig{
		TradingMode:             v.GetString("engine.trading_mode"),
		MaxTradeAmount:          v.GetFloat64("engine.max_trade_amount"),
		PaperFeePct:             v.GetFloat64("engine.paper_fee_pct"),
		MinMarketConditionScore: v.GetInt("engine.min_market_condition_score"),
		AutoResumeThreshold:     v.GetInt("engine.auto_resume_threshold"),
		ScoreSymbols:            v.GetStringSlice("engine.score_symbols"),
		PaperFreeBalances:       paperBalances(v),
	}
	if cfg.Engine.TradingMode != "paper" && cfg.Engine.TradingMode != "live" {
		return nil, errors.Errorf("invalid trading mode %q", cfg.Engine.TradingMode)
	}
	if cfg.Engine.AutoResumeThreshold < cfg.Engine.MinMarketConditionScore {
		return nil, errors.Errorf(
			"auto_resume_threshold %d below min_market_condition_score %d",
			cfg.Engine.AutoResumeThreshold, cfg.Engine.MinMarketConditionScore,
		)
	}

	cfg.StopLoss = StopLossConfig{
		InitialStopLossPct: v.GetFloat64("stoploss.initial_pct"),
		TrailingStopPct:    v.GetFloat64("stoploss.trailing_pct"),
		ATRPeriod:          v.GetInt("stoploss.atr_period"),
		ATRMultiplier:      v.GetFloat64("stoploss.atr_multiplier"),
		TimeBasedAdjust:    v.GetBool("stoploss.time_based_adjust"),
		VolatilityAdjust:   v.GetBool("stoploss.volatility_adjust"),
		BreakevenAfter:     v.GetDuration("stoploss.breakeven_after"),
		BreakevenBufferPct: v.GetFloat64("stoploss.breakeven_buffer_pct"),
	}

	cfg.Strategy = StrategyConfig{
		Symbol:  v.GetString("strategy.symbol"),
		Enabled: v.GetStringSlice("strategy.enabled"),
		Presets: v.GetString("strategy.presets"),
		Scalping: ScalpingConfig{
			Timeframe:        v.GetString("strategy.scalping.timeframe"),
			RSIPeriod:        v.GetInt("strategy.scalping.rsi_period"),
			RSIOverbought:    v.GetFloat64("strategy.scalping.rsi_overbought"),
			RSIOversold:      v.GetFloat64("strategy.scalping.rsi_oversold"),
			EMAShort:         v.GetInt("strategy.scalping.ema_short"),
			EMALong:          v.GetInt("strategy.scalping.ema_long"),
			ProfitTargetPct:  v.GetFloat64("strategy.scalping.profit_target_pct"),
			MaxTradeDuration: v.GetDuration("strategy.scalping.max_trade_duration"),
			BalanceFraction:  v.GetFloat64("strategy.scalping.balance_fraction"),
		},
		Momentum: MomentumConfig{
			Timeframe:       v.GetString("strategy.momentum.timeframe"),
			ROCPeriod:       v.GetInt("strategy.momentum.roc_period"),
			ROCThreshold:    v.GetFloat64("strategy.momentum.roc_threshold"),
			RSIPeriod:       v.GetInt("strategy.momentum.rsi_period"),
			RSIOverbought:   v.GetFloat64("strategy.momentum.rsi_overbought"),
			RSIOversold:     v.GetFloat64("strategy.momentum.rsi_oversold"),
			VolumeFactor:    v.GetFloat64("strategy.momentum.volume_factor"),
			ProfitTargetPct: v.GetFloat64("strategy.momentum.profit_target_pct"),
			StopLossPct:     v.GetFloat64("strategy.momentum.stop_loss_pct"),
			BalanceFraction: v.GetFloat64("strategy.momentum.balance_fraction"),
		},
		Swing: SwingConfig{
			Timeframe:       v.GetString("strategy.swing.timeframe"),
			MACDFast:        v.GetInt("strategy.swing.macd_fast"),
			MACDSlow:        v.GetInt("strategy.swing.macd_slow"),
			MACDSignal:      v.GetInt("strategy.swing.macd_signal"),
			BollingerPeriod: v.GetInt("strategy.swing.bollinger_period"),
			BollingerStd:    v.GetFloat64("strategy.swing.bollinger_std"),
			ADXPeriod:       v.GetInt("strategy.swing.adx_period"),
			ProfitTargetPct: v.GetFloat64("strategy.swing.profit_target_pct"),
			StopLossPct:     v.GetFloat64("strategy.swing.stop_loss_pct"),
			BalanceFraction: v.GetFloat64("strategy.swing.balance_fraction"),
		},
		Grid: GridConfig{
			UpperPrice:         v.GetFloat64("strategy.grid.upper_price"),
			LowerPrice:         v.GetFloat64("strategy.grid.lower_price"),
			Levels:             v.GetInt("strategy.grid.levels"),
			TotalInvestment:    v.GetFloat64("strategy.grid.total_investment"),
			RebalanceCooldown:  v.GetDuration("strategy.grid.rebalance_cooldown"),
			RebalanceThreshold: v.GetFloat64("strategy.grid.rebalance_threshold"),
		},
		DCA: DCAConfig{
			InvestmentAmount: v.GetFloat64("strategy.dca.investment_amount"),
			Interval:         v.GetDuration("strategy.dca.interval"),
			MaxPositions:     v.GetInt("strategy.dca.max_positions"),
			TakeProfitPct:    v.GetFloat64("strategy.dca.take_profit_pct"),
		},
		Arbitrage: ArbitrageConfig{
			VenueA:       v.GetString("strategy.arbitrage.venue_a"),
			VenueB:       v.GetString("strategy.arbitrage.venue_b"),
			ThresholdPct: v.GetFloat64("strategy.arbitrage.threshold_pct"),
		},
	}

	cfg.Runner = RunnerConfig{
		IterationInterval: v.GetDuration("runner.iteration_interval"),
		ScoreInterval:     v.GetDuration("runner.score_interval"),
		StopSweepInterval: v.GetDuration("runner.stop_sweep_interval"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db_dsn", "")
	v.SetDefault("jaeger.host", "127.0.0.1")
	v.SetDefault("jaeger.port", 6831)

	v.SetDefault("exchange.name", "binance")
	v.SetDefault("exchange.base_url", "https://api.binance.com")
	v.SetDefault("exchange.ws_url", "wss://stream.binance.com:9443/ws")
	v.SetDefault("exchange.ws_enabled", false)

	v.SetDefault("engine.trading_mode", "paper")
	v.SetDefault("engine.max_trade_amount", 100.0)
	v.SetDefault("engine.paper_fee_pct", 0.1)
	v.SetDefault("engine.min_market_condition_score", 60)
	v.SetDefault("engine.auto_resume_threshold", 75)
	v.SetDefault("engine.score_symbols", []string{"BTC/USDT", "ETH/USDT"})
	v.SetDefault("engine.paper_free.USDT", 5000.0)
	v.SetDefault("engine.paper_free.BTC", 0.05)
	v.SetDefault("engine.paper_free.ETH", 0.5)

	v.SetDefault("stoploss.initial_pct", 2.0)
	v.SetDefault("stoploss.trailing_pct", 0.0)
	v.SetDefault("stoploss.atr_period", 14)
	v.SetDefault("stoploss.atr_multiplier", 2.0)
	v.SetDefault("stoploss.time_based_adjust", true)
	v.SetDefault("stoploss.volatility_adjust", true)
	v.SetDefault("stoploss.breakeven_after", "24h")
	v.SetDefault("stoploss.breakeven_buffer_pct", 1.0)

	v.SetDefault("strategy.symbol", "BTC/USDT")
	v.SetDefault("strategy.enabled", []string{"scalping"})
	v.SetDefault("strategy.presets", "")

	v.SetDefault("strategy.scalping.timeframe", "1m")
	v.SetDefault("strategy.scalping.rsi_period", 14)
	v.SetDefault("strategy.scalping.rsi_overbought", 70.0)
	v.SetDefault("strategy.scalping.rsi_oversold", 30.0)
	v.SetDefault("strategy.scalping.ema_short", 9)
	v.SetDefault("strategy.scalping.ema_long", 21)
	v.SetDefault("strategy.scalping.profit_target_pct", 0.5)
	v.SetDefault("strategy.scalping.max_trade_duration", "30m")
	v.SetDefault("strategy.scalping.balance_fraction", 0.01)

	v.SetDefault("strategy.momentum.timeframe", "1h")
	v.SetDefault("strategy.momentum.roc_period", 14)
	v.SetDefault("strategy.momentum.roc_threshold", 5.0)
	v.SetDefault("strategy.momentum.rsi_period", 14)
	v.SetDefault("strategy.momentum.rsi_overbought", 70.0)
	v.SetDefault("strategy.momentum.rsi_oversold", 30.0)
	v.SetDefault("strategy.momentum.volume_factor", 1.5)
	v.SetDefault("strategy.momentum.profit_target_pct", 3.0)
	v.SetDefault("strategy.momentum.stop_loss_pct", 2.0)
	v.SetDefault("strategy.momentum.balance_fraction", 0.10)

	v.SetDefault("strategy.swing.timeframe", "4h")
	v.SetDefault("strategy.swing.macd_fast", 12)
	v.SetDefault("strategy.swing.macd_slow", 26)
	v.SetDefault("strategy.swing.macd_signal", 9)
	v.SetDefault("strategy.swing.bollinger_period", 20)
	v.SetDefault("strategy.swing.bollinger_std", 2.0)
	v.SetDefault("strategy.swing.adx_period", 14)
	v.SetDefault("strategy.swing.profit_target_pct", 5.0)
	v.SetDefault("strategy.swing.stop_loss_pct", 2.5)
	v.SetDefault("strategy.swing.balance_fraction", 0.05)

	v.SetDefault("strategy.grid.upper_price", 0.0)
	v.SetDefault("strategy.grid.lower_price", 0.0)
	v.SetDefault("strategy.grid.levels", 10)
	v.SetDefault("strategy.grid.total_investment", 1000.0)
	v.SetDefault("strategy.grid.rebalance_cooldown", "1h")
	v.SetDefault("strategy.grid.rebalance_threshold", 0.05)

	v.SetDefault("strategy.dca.investment_amount", 100.0)
	v.SetDefault("strategy.dca.interval", "24h")
	v.SetDefault("strategy.dca.max_positions", 10)
	v.SetDefault("strategy.dca.take_profit_pct", 0.0)

	v.SetDefault("strategy.arbitrage.venue_a", "binance")
	v.SetDefault("strategy.arbitrage.venue_b", "mexc")
	v.SetDefault("strategy.arbitrage.threshold_pct", 0.5)

	v.SetDefault("runner.iteration_interval", "1m")
	v.SetDefault("runner.score_interval", "15m")
	v.SetDefault("runner.stop_sweep_interval", "30s")
}

func paperBalances(v *viper.Viper) map[string]float64 {
	raw := v.GetStringMapString("engine.paper_free")
	out := make(map[string]float64, len(raw))
	for ccy := range raw {
		out[strings.ToUpper(ccy)] = v.GetFloat64("engine.paper_free." + ccy)
	}
	return out
}
