package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"ct_bot/internal/models"
	"ct_bot/internal/modules/config"
)

// Известные площадки с binance-совместимым публичным API.
var venueBaseURLs = map[string]string{
	"binance": "https://api.binance.com",
	"mexc":    "https://api.mexc.com",
}

// Resolver раздаёт read-only клиентов площадок для арбитража.
// Клиенты без ключей: арбитражу нужны только публичные тикеры.
type Resolver struct {
	primary *Client

	mu      sync.Mutex
	clients map[string]*Client
}

func NewResolver(primary *Client) *Resolver {
	return &Resolver{primary: primary, clients: make(map[string]*Client)}
}

// VenueClient возвращает клиента по имени площадки. Основной клиент
// переиспользуется вместе с его WS-кешем.
func (r *Resolver) VenueClient(name string) (*Client, error) {
	if r.primary != nil && name == r.primary.Name() {
		return r.primary, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.clients[name]; ok {
		return c, nil
	}

	baseURL, ok := venueBaseURLs[name]
	if !ok {
		return nil, errors.Errorf("unknown venue %q", name)
	}
	c := NewClient(config.ExchangeConfig{Name: name, BaseURL: baseURL})
	r.clients[name] = c
	return c, nil
}

// TickerVenue — узкая обёртка под интерфейс площадки арбитража.
type TickerVenue struct {
	client *Client
}

func (v TickerVenue) Ticker(ctx context.Context, symbol string) (models.Ticker, error) {
	return v.client.Ticker(ctx, symbol)
}

func (r *Resolver) TickerVenue(name string) (TickerVenue, error) {
	c, err := r.VenueClient(name)
	if err != nil {
		return TickerVenue{}, err
	}
	return TickerVenue{client: c}, nil
}
