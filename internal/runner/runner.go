package runner

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	engineservice "ct_bot/internal/modules/engine/service"
	stoplossservice "ct_bot/internal/modules/stoploss/service"
	strategyservice "ct_bot/internal/modules/strategy/service"
	"ct_bot/internal/notify"
	"ct_bot/internal/repository"
	"ct_bot/pkg/logger"
)

// Runner гоняет итерации стратегий по расписанию, пересчитывает скор рынка
// и свипает стоп-лоссы. Стратегии не знают друг о друге: весь оркестр здесь.
type Runner struct {
	cfg     config.RunnerConfig
	engine  *engineservice.Engine
	tracker *stoplossservice.Tracker
	journal *repository.TradeJournal
	n       notify.Notifier
	symbol  string

	mu         sync.Mutex
	strategies map[models.StrategyType]strategyEntry
	openStops  map[models.StrategyType]string // стратегия -> id позиции в трекере
}

type strategyEntry struct {
	s       strategyservice.Strategy
	enabled bool
}

func New(
	cfg *config.Config,
	engine *engineservice.Engine,
	tracker *stoplossservice.Tracker,
	journal *repository.TradeJournal,
	n notify.Notifier,
	strategies []strategyservice.Strategy,
) *Runner {
	r := &Runner{
		cfg:        cfg.Runner,
		engine:     engine,
		tracker:    tracker,
		journal:    journal,
		n:          n,
		symbol:     cfg.Strategy.Symbol,
		strategies: make(map[models.StrategyType]strategyEntry, len(strategies)),
		openStops:  make(map[models.StrategyType]string),
	}
	for _, s := range strategies {
		r.strategies[s.Name()] = strategyEntry{s: s, enabled: true}
	}
	return r
}

func (r *Runner) Start(ctx context.Context) {
	logger.Info("runner started: %d strategies, iteration every %s", len(r.strategies), r.cfg.IterationInterval)
	r.n.Sendf("🤖 Бот запущен: %d стратегий на %s", len(r.strategies), r.symbol)

	// первый скор сразу, не дожидаясь тикера
	r.refreshScore(ctx)

	go r.scoreLoop(ctx)
	go r.stopSweepLoop(ctx)
	go r.iterationLoop(ctx)
}

func (r *Runner) iterationLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.IterationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runIterations(ctx)
		}
	}
}

func (r *Runner) runIterations(ctx context.Context) {
	r.mu.Lock()
	entries := make([]strategyEntry, 0, len(r.strategies))
	for _, e := range r.strategies {
		if e.enabled {
			entries = append(entries, e)
		}
	}
	r.mu.Unlock()

	for _, e := range entries {
		r.runOne(ctx, e.s)
	}
}

func (r *Runner) runOne(ctx context.Context, s strategyservice.Strategy) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, "strategy_iteration")
	span.SetTag("strategy", string(s.Name()))
	defer span.Finish()

	res := s.RunIteration(spanCtx)
	span.SetTag("action", string(res.Action))

	switch res.Action {
	case models.ActionNone:
		return
	case models.ActionError:
		logger.Error("strategy %s iteration: %s", s.Name(), res.Reason)
		return
	}

	r.handleResult(spanCtx, s.Name(), res)
}

func (r *Runner) handleResult(ctx context.Context, name models.StrategyType, res models.ActionResult) {
	if res.Order != nil {
		if err := r.journal.RecordOrder(ctx, *res.Order); err != nil {
			logger.Error("journal order %s: %v", res.Order.ID, err)
		}
	}

	switch res.Action {
	case models.ActionBuy:
		r.n.Sendf("🟢 %s: покупка %.8f %s по %.8f\n%s", name, res.Amount, r.symbol, res.Price, res.Reason)
		if res.Order != nil && res.StopLoss > 0 {
			pos := r.tracker.RegisterPosition(ctx, res.Order.ID, res.Price, res.Amount, models.PositionLong)
			r.mu.Lock()
			r.openStops[name] = pos.ID
			r.mu.Unlock()
		}

	case models.ActionSell:
		r.n.Sendf("🔴 %s: продажа %.8f %s по %.8f (P/L: %.2f%%)\n%s",
			name, res.Amount, r.symbol, res.Price, res.ProfitPct, res.Reason)
		r.mu.Lock()
		id, ok := r.openStops[name]
		delete(r.openStops, name)
		r.mu.Unlock()
		if ok {
			r.tracker.RemovePosition(id)
		}

	case models.ActionArbitrage:
		r.n.Sendf("⚖️ %s: %s", name, res.Reason)

	case models.ActionRebalance:
		r.n.Sendf("🔄 %s: %s", name, res.Reason)
	}
}

func (r *Runner) scoreLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ScoreInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.refreshScore(ctx)
		}
	}
}

func (r *Runner) refreshScore(ctx context.Context) {
	span, spanCtx := opentracing.StartSpanFromContext(ctx, "market_condition_update")
	defer span.Finish()

	wasActive := r.engine.IsTradingActive()
	score := r.engine.UpdateMarketCondition(spanCtx, nil)
	active := r.engine.IsTradingActive()
	span.SetTag("score", score)

	if err := r.journal.RecordScore(spanCtx, score, active); err != nil {
		logger.Error("journal score: %v", err)
	}
	if active != wasActive {
		if active {
			r.n.Sendf("✅ Торговля возобновлена (скор рынка: %d/100)", score)
		} else {
			r.n.Sendf("⛔️ Торговля приостановлена (скор рынка: %d/100)", score)
		}
	}
}

func (r *Runner) stopSweepLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.StopSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweepStops(ctx)
		}
	}
}

// sweepStops закрывает рынком позиции со сработавшим стопом.
func (r *Runner) sweepStops(ctx context.Context) {
	for _, pos := range r.tracker.CheckPositions(ctx) {
		side := models.SideSell
		if pos.Side == models.PositionShort {
			side = models.SideBuy
		}
		order, err := r.engine.ExecuteTrade(ctx, pos.Symbol, side, pos.Amount, 0)
		if err != nil {
			logger.Error("stop loss close %s: %v", pos.ID, err)
			r.n.Sendf("⚠️ Не удалось закрыть позицию %s по стопу: %v", pos.ID, err)
			continue
		}

		if err := r.journal.RecordOrder(ctx, order); err != nil {
			logger.Error("journal order %s: %v", order.ID, err)
		}
		r.n.Sendf("🛑 Стоп-лосс: позиция %s закрыта по %.8f (вход %.8f)",
			pos.ID, pos.CurrentPrice, pos.EntryPrice)

		r.mu.Lock()
		for name, id := range r.openStops {
			if id == pos.ID {
				delete(r.openStops, name)
			}
		}
		r.mu.Unlock()
	}
}

// SetStrategyEnabled включает/выключает стратегию на лету.
// false — неизвестное имя.
func (r *Runner) SetStrategyEnabled(name models.StrategyType, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.strategies[name]
	if !ok {
		return false
	}
	e.enabled = enabled
	r.strategies[name] = e
	logger.Info("strategy %s enabled=%v", name, enabled)
	return true
}

// Status — агрегированный снимок: движок плюс все стратегии.
func (r *Runner) Status() map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()

	strategies := make(map[string]any, len(r.strategies))
	for name, e := range r.strategies {
		st := e.s.Status()
		st["enabled"] = e.enabled
		strategies[string(name)] = st
	}
	return map[string]any{
		"market":          r.engine.GetMarketStatus(),
		"tracked_stops":   r.tracker.Count(),
		"journal_enabled": r.journal.Enabled(),
		"strategies":      strategies,
	}
}
