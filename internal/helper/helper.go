package helper

import "strings"

// SplitSymbol разбирает "BTC/USDT" на базовую и котируемую валюты.
func SplitSymbol(symbol string) (base, quote string, ok bool) {
	i := strings.IndexByte(symbol, '/')
	if i <= 0 || i >= len(symbol)-1 {
		return "", "", false
	}
	return symbol[:i], symbol[i+1:], true
}

// QuoteCurrency — котируемая валюта пары ("USDT" для "BTC/USDT").
func QuoteCurrency(symbol string) string {
	_, quote, ok := SplitSymbol(symbol)
	if !ok {
		return ""
	}
	return quote
}

// CompactSymbol убирает разделитель: "BTC/USDT" -> "BTCUSDT".
func CompactSymbol(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "")
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
