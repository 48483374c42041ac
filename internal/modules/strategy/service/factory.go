package service

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

// presets — необязательный yaml-файл с переопределениями параметров стратегий.
// Нулевые значения полей не трогают конфиг.
type presets struct {
	Scalping struct {
		Timeframe        string  `yaml:"timeframe"`
		ProfitTargetPct  float64 `yaml:"profit_target_pct"`
		MaxTradeDuration string  `yaml:"max_trade_duration"`
	} `yaml:"scalping"`
	Momentum struct {
		Timeframe       string  `yaml:"timeframe"`
		ROCThreshold    float64 `yaml:"roc_threshold"`
		ProfitTargetPct float64 `yaml:"profit_target_pct"`
		StopLossPct     float64 `yaml:"stop_loss_pct"`
	} `yaml:"momentum"`
	Swing struct {
		Timeframe       string  `yaml:"timeframe"`
		ProfitTargetPct float64 `yaml:"profit_target_pct"`
		StopLossPct     float64 `yaml:"stop_loss_pct"`
	} `yaml:"swing"`
	Grid struct {
		UpperPrice      float64 `yaml:"upper_price"`
		LowerPrice      float64 `yaml:"lower_price"`
		Levels          int     `yaml:"levels"`
		TotalInvestment float64 `yaml:"total_investment"`
	} `yaml:"grid"`
	DCA struct {
		InvestmentAmount float64 `yaml:"investment_amount"`
		Interval         string  `yaml:"interval"`
		TakeProfitPct    float64 `yaml:"take_profit_pct"`
	} `yaml:"dca"`
	Arbitrage struct {
		VenueA       string  `yaml:"venue_a"`
		VenueB       string  `yaml:"venue_b"`
		ThresholdPct float64 `yaml:"threshold_pct"`
	} `yaml:"arbitrage"`
}

func applyPresets(cfg *config.StrategyConfig, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read presets file")
	}
	var p presets
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return errors.Wrap(err, "parse presets file")
	}

	if p.Scalping.Timeframe != "" {
		cfg.Scalping.Timeframe = p.Scalping.Timeframe
	}
	if p.Scalping.ProfitTargetPct > 0 {
		cfg.Scalping.ProfitTargetPct = p.Scalping.ProfitTargetPct
	}
	if p.Scalping.MaxTradeDuration != "" {
		d, err := time.ParseDuration(p.Scalping.MaxTradeDuration)
		if err != nil {
			return errors.Wrap(err, "parse scalping max_trade_duration")
		}
		cfg.Scalping.MaxTradeDuration = d
	}

	if p.Momentum.Timeframe != "" {
		cfg.Momentum.Timeframe = p.Momentum.Timeframe
	}
	if p.Momentum.ROCThreshold > 0 {
		cfg.Momentum.ROCThreshold = p.Momentum.ROCThreshold
	}
	if p.Momentum.ProfitTargetPct > 0 {
		cfg.Momentum.ProfitTargetPct = p.Momentum.ProfitTargetPct
	}
	if p.Momentum.StopLossPct > 0 {
		cfg.Momentum.StopLossPct = p.Momentum.StopLossPct
	}

	if p.Swing.Timeframe != "" {
		cfg.Swing.Timeframe = p.Swing.Timeframe
	}
	if p.Swing.ProfitTargetPct > 0 {
		cfg.Swing.ProfitTargetPct = p.Swing.ProfitTargetPct
	}
	if p.Swing.StopLossPct > 0 {
		cfg.Swing.StopLossPct = p.Swing.StopLossPct
	}

	if p.Grid.UpperPrice > 0 {
		cfg.Grid.UpperPrice = p.Grid.UpperPrice
	}
	if p.Grid.LowerPrice > 0 {
		cfg.Grid.LowerPrice = p.Grid.LowerPrice
	}
	if p.Grid.Levels > 0 {
		cfg.Grid.Levels = p.Grid.Levels
	}
	if p.Grid.TotalInvestment > 0 {
		cfg.Grid.TotalInvestment = p.Grid.TotalInvestment
	}

	if p.DCA.InvestmentAmount > 0 {
		cfg.DCA.InvestmentAmount = p.DCA.InvestmentAmount
	}
	if p.DCA.Interval != "" {
		d, err := time.ParseDuration(p.DCA.Interval)
		if err != nil {
			return errors.Wrap(err, "parse dca interval")
		}
		cfg.DCA.Interval = d
	}
	if p.DCA.TakeProfitPct > 0 {
		cfg.DCA.TakeProfitPct = p.DCA.TakeProfitPct
	}

	if p.Arbitrage.VenueA != "" {
		cfg.Arbitrage.VenueA = p.Arbitrage.VenueA
	}
	if p.Arbitrage.VenueB != "" {
		cfg.Arbitrage.VenueB = p.Arbitrage.VenueB
	}
	if p.Arbitrage.ThresholdPct > 0 {
		cfg.Arbitrage.ThresholdPct = p.Arbitrage.ThresholdPct
	}

	logger.Info("strategy presets applied from %s", path)
	return nil
}

// NewStrategies собирает включённые стратегии. Незнакомое имя в конфиге —
// ошибка сразу, а не на первой итерации.
func NewStrategies(cfg *config.Config, engine Engine, resolver VenueResolver) ([]Strategy, error) {
	sc := cfg.Strategy
	if sc.Presets != "" {
		if err := applyPresets(&sc, sc.Presets); err != nil {
			return nil, err
		}
	}

	out := make([]Strategy, 0, len(sc.Enabled))
	for _, name := range sc.Enabled {
		switch models.StrategyType(name) {
		case models.StrategyScalping:
			out = append(out, NewScalping(sc.Scalping, engine, sc.Symbol))
		case models.StrategyMomentum:
			out = append(out, NewMomentum(sc.Momentum, engine, sc.Symbol))
		case models.StrategySwing:
			out = append(out, NewSwing(sc.Swing, engine, sc.Symbol))
		case models.StrategyGrid:
			out = append(out, NewGrid(sc.Grid, engine, sc.Symbol))
		case models.StrategyDCA:
			out = append(out, NewDCA(sc.DCA, engine, sc.Symbol))
		case models.StrategyArbitrage:
			arb, err := NewArbitrage(sc.Arbitrage, engine, resolver, sc.Symbol)
			if err != nil {
				return nil, errors.Wrap(err, "init arbitrage strategy")
			}
			out = append(out, arb)
		default:
			return nil, errors.Errorf("unknown strategy %q", name)
		}
	}
	return out, nil
}
