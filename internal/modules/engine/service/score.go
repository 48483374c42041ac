package service

import (
	"context"

	"ct_bot/internal/helper"
	"ct_bot/internal/indicator"
	"ct_bot/internal/models"
	"ct_bot/pkg/logger"
)

const scoreWindow = 24 // свечей 1h на символ

// UpdateMarketCondition пересчитывает скор состояния рынка [0,100] по четырём
// компонентам (моментум, объём, волатильность, тренд), усреднённым по символам.
// Скор заменяется атомарно, частичных обновлений не бывает; после пересчёта
// применяется гистерезис торговой активности.
func (e *Engine) UpdateMarketCondition(ctx context.Context, symbols []string) int {
	if len(symbols) == 0 {
		symbols = e.cfg.ScoreSymbols
	}
	if len(symbols) == 0 {
		symbols = []string{"BTC/USDT", "ETH/USDT"}
	}

	var momentumScore, volumeScore, volatilityScore, trendScore float64

	for _, symbol := range symbols {
		candles := e.GetOHLCV(ctx, symbol, "1h", scoreWindow)
		if len(candles) < 2 {
			// нет данных — компоненты символа остаются нулями, не нейтральной серединой
			continue
		}

		closes := models.Closes(candles)
		volumes := models.Volumes(candles)

		// моментум: цена сейчас против начала окна, зажат в ±25
		first, last := closes[0], closes[len(closes)-1]
		if first > 0 {
			changePct := (last - first) / first * 100
			momentumScore += helper.Clamp(changePct, -25, 25)
		}

		// всплеск объёма против среднего по окну, 0..20
		var avgVolume float64
		for _, v := range volumes {
			avgVolume += v
		}
		avgVolume /= float64(len(volumes))
		if avgVolume > 0 {
			volumeChangePct := (volumes[len(volumes)-1] - avgVolume) / avgVolume * 100
			volumeScore += helper.Clamp(volumeChangePct/5, 0, 20)
		}

		// волатильность штрафуется: чем спокойнее, тем больше очков
		volatility := indicator.ReturnsStdDev(closes) * 100
		if penalty := 15 - volatility; penalty > 0 {
			volatilityScore += penalty
		}

		// тренд: бинарный бонус за SMA6 > SMA12
		smaShort := indicator.SMA(closes, 6)
		smaLong := indicator.SMA(closes, 12)
		if len(closes) >= 12 && smaShort[len(smaShort)-1] > smaLong[len(smaLong)-1] {
			trendScore += 15
		}
	}

	n := float64(len(symbols))
	momentumScore /= n
	volumeScore /= n
	volatilityScore /= n
	trendScore /= n

	// моментум нормируется из [-25,25] в [0,40]
	normalizedMomentum := (momentumScore + 25) / 50 * 40

	final := int(helper.Clamp(normalizedMomentum+volumeScore+volatilityScore+trendScore, 0, 100))

	e.mu.Lock()
	e.marketConditionScore = final
	e.applyHysteresisLocked()
	e.mu.Unlock()

	logger.Info("market condition score updated: %d/100", final)
	return final
}

// applyHysteresisLocked: возобновление только при score >= resume из неактивного
// состояния, остановка только при score < min из активного. Асимметричная полоса
// исключает дребезг на одной границе. Вызывается под e.mu.
func (e *Engine) applyHysteresisLocked() {
	switch {
	case !e.tradingActive && e.marketConditionScore >= e.cfg.AutoResumeThreshold:
		e.tradingActive = true
		logger.Info("trading automatically resumed (score: %d)", e.marketConditionScore)
	case e.tradingActive && e.marketConditionScore < e.cfg.MinMarketConditionScore:
		e.tradingActive = false
		logger.Info("trading automatically suspended (score: %d)", e.marketConditionScore)
	}
}
