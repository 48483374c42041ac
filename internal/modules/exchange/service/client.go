package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"ct_bot/internal/helper"
	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
	"ct_bot/pkg/logger"
)

// Client — REST-клиент binance-совместимого API (/api/v3).
// Публичные эндпоинты ходят без подписи, торговые — с HMAC-SHA256.
type Client struct {
	name      string
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client

	stream *Stream // nil — без WS-кеша
}

func NewClient(cfg config.ExchangeConfig) *Client {
	return &Client{
		name:      cfg.Name,
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) Name() string { return c.name }

// AttachStream подключает WS-кеш последних цен. Тикер из кеша берётся
// только когда он свежее REST-похода.
func (c *Client) AttachStream(s *Stream) { c.stream = s }

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (c *Client) Ticker(ctx context.Context, symbol string) (models.Ticker, error) {
	if c.stream != nil {
		if last, ok := c.stream.Last(symbol); ok {
			return models.Ticker{Symbol: symbol, Last: last}, nil
		}
	}

	q := url.Values{}
	q.Set("symbol", helper.CompactSymbol(symbol))
	data, err := c.get(ctx, "/api/v3/ticker/price", q)
	if err != nil {
		return models.Ticker{}, err
	}

	var r tickerResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.Ticker{}, errors.Wrap(err, "ticker unmarshal")
	}
	last, err := strconv.ParseFloat(r.Price, 64)
	if err != nil {
		return models.Ticker{}, errors.Wrapf(err, "ticker price %q", r.Price)
	}
	return models.Ticker{Symbol: symbol, Last: last}, nil
}

// Candles — /api/v3/klines. Ответ — массив массивов со строковыми числами.
func (c *Client) Candles(ctx context.Context, symbol, timeframe string, limit int) ([]models.Candle, error) {
	q := url.Values{}
	q.Set("symbol", helper.CompactSymbol(symbol))
	q.Set("interval", timeframe)
	q.Set("limit", strconv.Itoa(limit))

	data, err := c.get(ctx, "/api/v3/klines", q)
	if err != nil {
		return nil, err
	}

	var raw [][]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, "klines unmarshal")
	}

	candles := make([]models.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			continue
		}
		ms, ok := row[0].(float64)
		if !ok {
			continue
		}
		candle := models.Candle{Timestamp: time.UnixMilli(int64(ms))}
		fields := []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume}
		parsed := true
		for i, dst := range fields {
			s, ok := row[i+1].(string)
			if !ok {
				parsed = false
				break
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				parsed = false
				break
			}
			*dst = v
		}
		if parsed {
			candles = append(candles, candle)
		}
	}
	return candles, nil
}

type orderResponse struct {
	OrderID       int64  `json:"orderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	ExecutedQty   string `json:"executedQty"`
	CumQuoteQty   string `json:"cummulativeQuoteQty"`
	Price         string `json:"price"`
	TransactTime  int64  `json:"transactTime"`
	ClientOrderID string `json:"clientOrderId"`
}

// PlaceOrder — подписанный POST /api/v3/order. price <= 0 — MARKET, иначе LIMIT GTC.
func (c *Client) PlaceOrder(ctx context.Context, symbol string, side models.Side, amount, price float64) (models.Order, error) {
	q := url.Values{}
	q.Set("symbol", helper.CompactSymbol(symbol))
	q.Set("side", strings.ToUpper(string(side)))
	q.Set("quantity", strconv.FormatFloat(amount, 'f', -1, 64))
	if price > 0 {
		q.Set("type", "LIMIT")
		q.Set("timeInForce", "GTC")
		q.Set("price", strconv.FormatFloat(price, 'f', -1, 64))
	} else {
		q.Set("type", "MARKET")
	}

	data, err := c.signedRequest(ctx, http.MethodPost, "/api/v3/order", q)
	if err != nil {
		return models.Order{}, err
	}

	var r orderResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.Order{}, errors.Wrap(err, "order unmarshal")
	}

	executed, _ := strconv.ParseFloat(r.ExecutedQty, 64)
	if executed <= 0 {
		executed = amount
	}
	fillPrice, _ := strconv.ParseFloat(r.Price, 64)
	if fillPrice <= 0 {
		if quote, err := strconv.ParseFloat(r.CumQuoteQty, 64); err == nil && quote > 0 && executed > 0 {
			fillPrice = quote / executed
		} else {
			fillPrice = price
		}
	}

	status := models.OrderStatusOpen
	if r.Status == "FILLED" {
		status = models.OrderStatusClosed
	}

	order := models.Order{
		ID:        strconv.FormatInt(r.OrderID, 10),
		Symbol:    symbol,
		Side:      side,
		Amount:    executed,
		Price:     fillPrice,
		Cost:      executed * fillPrice,
		Status:    status,
		Timestamp: time.UnixMilli(r.TransactTime),
	}
	logger.Info("%s order placed on %s: id=%s status=%s", side, c.name, order.ID, r.Status)
	return order, nil
}

type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

func (c *Client) Balance(ctx context.Context) (models.Balance, error) {
	data, err := c.signedRequest(ctx, http.MethodGet, "/api/v3/account", url.Values{})
	if err != nil {
		return models.Balance{}, err
	}

	var r accountResponse
	if err := sonic.Unmarshal(data, &r); err != nil {
		return models.Balance{}, errors.Wrap(err, "account unmarshal")
	}

	b := models.Balance{
		Total: make(map[string]float64),
		Free:  make(map[string]float64),
		Used:  make(map[string]float64),
	}
	for _, a := range r.Balances {
		free, _ := strconv.ParseFloat(a.Free, 64)
		locked, _ := strconv.ParseFloat(a.Locked, 64)
		if free == 0 && locked == 0 {
			continue
		}
		b.Free[a.Asset] = free
		b.Used[a.Asset] = locked
		b.Total[a.Asset] = free + locked
	}
	return b, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	return c.do(req)
}

func (c *Client) signedRequest(ctx context.Context, method, path string, q url.Values) ([]byte, error) {
	q.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	q.Set("signature", c.sign(q.Encode()))

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "new request")
	}
	req.Header.Set("X-MBX-APIKEY", c.apiKey)
	return c.do(req)
}

func (c *Client) sign(payload string) string {
	mac := hmac.New(sha256.New, []byte(c.apiSecret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s http %d: %s", req.URL.Path, resp.StatusCode, string(data))
	}
	return data, nil
}
