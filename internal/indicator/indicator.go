// Package indicator содержит расчёты технических индикаторов по сериям свечей.
//
// Все функции принимают серии, отсортированные по времени по возрастанию, и
// возвращают срезы той же длины. Пока окно не прогрето, значения равны нулю —
// вызывающий обязан проверять длину серии, а не ловить ошибки.
package indicator

import (
	"math"

	"ct_bot/internal/models"
)

// SMA — простая скользящая средняя.
func SMA(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 0 || len(values) < window {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMA — экспоненциальная средняя, рекурсивная, сид — первое значение серии.
func EMA(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if span <= 0 || len(values) == 0 {
		return out
	}
	k := 2.0 / float64(span+1)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = out[i-1] + k*(values[i]-out[i-1])
	}
	return out
}

// RSI на скользящих средних прироста/падения (окно period).
// avgLoss==0 при ненулевом avgGain даёт 100; полное отсутствие движения — 50.
func RSI(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}
	gains := make([]float64, len(values))
	losses := make([]float64, len(values))
	for i := 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			gains[i] = d
		} else {
			losses[i] = -d
		}
	}
	var gSum, lSum float64
	for i := 1; i < len(values); i++ {
		gSum += gains[i]
		lSum += losses[i]
		if i > period {
			gSum -= gains[i-period]
			lSum -= losses[i-period]
		}
		if i < period {
			continue
		}
		avgGain := gSum / float64(period)
		avgLoss := lSum / float64(period)
		switch {
		case avgLoss == 0 && avgGain == 0:
			out[i] = 50
		case avgLoss == 0:
			out[i] = 100
		default:
			rs := avgGain / avgLoss
			out[i] = 100 - 100/(1+rs)
		}
	}
	return out
}

// MACD возвращает линию MACD, сигнальную линию и гистограмму.
func MACD(values []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signalLine = EMA(macd, signal)
	histogram = make([]float64, len(values))
	for i := range values {
		histogram[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, histogram
}

// Bollinger — середина (SMA), верхняя и нижняя полосы (mult * выборочное ст. отклонение).
func Bollinger(values []float64, period int, mult float64) (mid, upper, lower []float64) {
	mid = SMA(values, period)
	upper = make([]float64, len(values))
	lower = make([]float64, len(values))
	if period <= 1 || len(values) < period {
		return mid, upper, lower
	}
	for i := period - 1; i < len(values); i++ {
		var sq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - mid[i]
			sq += d * d
		}
		std := math.Sqrt(sq / float64(period-1))
		upper[i] = mid[i] + mult*std
		lower[i] = mid[i] - mult*std
	}
	return mid, upper, lower
}

// ROC — скорость изменения цены за period свечей, в процентах.
func ROC(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := period; i < len(values); i++ {
		if values[i-period] != 0 {
			out[i] = (values[i] - values[i-period]) / values[i-period] * 100
		}
	}
	return out
}

// TrueRange серии свечей; для первой свечи — просто high-low.
func TrueRange(candles []models.Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		tr := c.High - c.Low
		if i > 0 {
			prev := candles[i-1].Close
			tr = math.Max(tr, math.Max(math.Abs(c.High-prev), math.Abs(c.Low-prev)))
		}
		out[i] = tr
	}
	return out
}

// ATR — последний Average True Range (SMA по TR). 0, если данных меньше окна.
func ATR(candles []models.Candle, period int) float64 {
	if period <= 0 || len(candles) < period {
		return 0
	}
	series := SMA(TrueRange(candles), period)
	return series[len(series)-1]
}

// ADX возвращает ADX и направленные индексы +DI / -DI (период period,
// сглаживание скользящими суммами).
func ADX(candles []models.Candle, period int) (adx, plusDI, minusDI []float64) {
	n := len(candles)
	adx = make([]float64, n)
	plusDI = make([]float64, n)
	minusDI = make([]float64, n)
	if period <= 0 || n < period+1 {
		return adx, plusDI, minusDI
	}

	tr := TrueRange(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	dx := make([]float64, n)
	var trSum, pSum, mSum float64
	for i := 0; i < n; i++ {
		trSum += tr[i]
		pSum += plusDM[i]
		mSum += minusDM[i]
		if i >= period {
			trSum -= tr[i-period]
			pSum -= plusDM[i-period]
			mSum -= minusDM[i-period]
		}
		if i < period-1 || trSum == 0 {
			continue
		}
		plusDI[i] = 100 * pSum / trSum
		minusDI[i] = 100 * mSum / trSum
		if s := plusDI[i] + minusDI[i]; s > 0 {
			dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / s
		}
	}

	var dxSum float64
	for i := 0; i < n; i++ {
		dxSum += dx[i]
		if i >= period {
			dxSum -= dx[i-period]
		}
		if i >= period-1 {
			adx[i] = dxSum / float64(period)
		}
	}
	return adx, plusDI, minusDI
}

// ReturnsStdDev — выборочное стандартное отклонение процентных изменений серии.
func ReturnsStdDev(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] != 0 {
			returns = append(returns, (values[i]-values[i-1])/values[i-1])
		}
	}
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(returns)-1))
}
