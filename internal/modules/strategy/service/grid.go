package service

import (
	"context"
	"fmt"
	"time"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

// Grid расставляет лестницу лимитных ордеров между границами: покупки ниже
// текущей цены, продажи выше. При выходе цены за границы лестница
// перегенерируется целиком вокруг текущей цены — никаких точечных правок.
type Grid struct {
	cfg    config.GridConfig
	engine Engine
	symbol string

	upperPrice float64
	lowerPrice float64

	gridPrices    []float64
	gridOrders    map[string]gridOrder
	lastRebalance time.Time
}

type gridOrder struct {
	Price float64
	Size  float64
	Side  models.Side
}

func NewGrid(cfg config.GridConfig, engine Engine, symbol string) *Grid {
	g := &Grid{
		cfg:        cfg,
		engine:     engine,
		symbol:     symbol,
		upperPrice: cfg.UpperPrice,
		lowerPrice: cfg.LowerPrice,
		gridOrders: make(map[string]gridOrder),
	}
	g.initializeGrid()
	logger.Info("grid strategy initialized for %s with %d levels", symbol, cfg.Levels)
	return g
}

func (g *Grid) Name() models.StrategyType { return models.StrategyGrid }

func (g *Grid) initializeGrid() {
	if g.cfg.Levels <= 0 || g.upperPrice <= g.lowerPrice {
		g.gridPrices = nil
		return
	}
	step := (g.upperPrice - g.lowerPrice) / float64(g.cfg.Levels)
	g.gridPrices = make([]float64, 0, g.cfg.Levels+1)
	for i := 0; i <= g.cfg.Levels; i++ {
		g.gridPrices = append(g.gridPrices, g.lowerPrice+float64(i)*step)
	}
}

// orderSize — инвестиция, распределённая поровну по уровням, в базовой валюте.
func (g *Grid) orderSize(price float64) float64 {
	if price <= 0 || g.cfg.Levels <= 0 {
		return 0
	}
	return g.cfg.TotalInvestment / float64(g.cfg.Levels) / price
}

// PlaceGridOrders выставляет ордера по всем уровням лестницы.
func (g *Grid) PlaceGridOrders(ctx context.Context) (buys, sells int) {
	ticker := g.engine.GetTicker(ctx, g.symbol)
	if ticker.Empty() {
		logger.Error("failed to get current price for %s", g.symbol)
		return 0, 0
	}

	for _, price := range g.gridPrices {
		if price >= ticker.Last {
			continue
		}
		size := g.orderSize(price)
		order, err := g.engine.ExecuteTrade(ctx, g.symbol, models.SideBuy, size, price)
		if err != nil {
			logger.Error("grid buy at %.8f: %v", price, err)
			continue
		}
		g.gridOrders[order.ID] = gridOrder{Price: price, Size: size, Side: models.SideBuy}
		buys++
	}
	for _, price := range g.gridPrices {
		if price <= ticker.Last {
			continue
		}
		size := g.orderSize(price)
		order, err := g.engine.ExecuteTrade(ctx, g.symbol, models.SideSell, size, price)
		if err != nil {
			logger.Error("grid sell at %.8f: %v", price, err)
			continue
		}
		g.gridOrders[order.ID] = gridOrder{Price: price, Size: size, Side: models.SideSell}
		sells++
	}

	logger.Info("placed %d buy and %d sell grid orders", buys, sells)
	return buys, sells
}

// checkAndRebalance перегенерирует лестницу, если цена вышла за границы
// и выдержан кулдаун ребаланса.
func (g *Grid) checkAndRebalance(ctx context.Context) models.ActionResult {
	ticker := g.engine.GetTicker(ctx, g.symbol)
	if ticker.Empty() {
		return errorResult("failed to get current price")
	}

	if ticker.Last >= g.lowerPrice && ticker.Last <= g.upperPrice {
		return models.ActionResult{Action: models.ActionNone, Reason: "price within grid boundaries"}
	}

	if !g.lastRebalance.IsZero() && time.Since(g.lastRebalance) < g.cfg.RebalanceCooldown {
		return models.ActionResult{Action: models.ActionNone, Reason: "rebalance cooldown period"}
	}

	g.rebalanceGrid(ctx, ticker.Last)
	g.lastRebalance = time.Now()
	return models.ActionResult{
		Action: models.ActionRebalance,
		Price:  ticker.Last,
		Reason: fmt.Sprintf("grid recentered to [%.8f, %.8f]", g.lowerPrice, g.upperPrice),
	}
}

// rebalanceGrid центрирует границы вокруг текущей цены, сохраняя ширину диапазона.
func (g *Grid) rebalanceGrid(ctx context.Context, currentPrice float64) {
	halfRange := (g.upperPrice - g.lowerPrice) / 2

	g.lowerPrice = currentPrice - halfRange
	if g.lowerPrice < 0 {
		g.lowerPrice = 0
	}
	g.upperPrice = currentPrice + halfRange

	// отменяем старую лестницу целиком и строим новую
	g.gridOrders = make(map[string]gridOrder)
	g.initializeGrid()
	g.PlaceGridOrders(ctx)

	logger.Info("grid rebalanced with new boundaries: [%.8f, %.8f]", g.lowerPrice, g.upperPrice)
}

func (g *Grid) RunIteration(ctx context.Context) models.ActionResult {
	if !g.engine.IsTradingActive() {
		return inactiveResult()
	}
	if len(g.gridOrders) == 0 {
		buys, sells := g.PlaceGridOrders(ctx)
		if buys+sells == 0 {
			return models.ActionResult{Action: models.ActionNone, Reason: "no grid orders placed"}
		}
		return models.ActionResult{
			Action: models.ActionBuy,
			Reason: fmt.Sprintf("placed %d buy and %d sell grid orders", buys, sells),
		}
	}
	return g.checkAndRebalance(ctx)
}

func (g *Grid) Status() map[string]any {
	return map[string]any{
		"strategy":         "grid",
		"symbol":           g.symbol,
		"lower_price":      g.lowerPrice,
		"upper_price":      g.upperPrice,
		"grid_levels":      g.cfg.Levels,
		"total_investment": g.cfg.TotalInvestment,
		"active_orders":    len(g.gridOrders),
		"grid_prices":      g.gridPrices,
	}
}
