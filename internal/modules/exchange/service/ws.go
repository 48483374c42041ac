package service

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"

	"ct_bot/internal/helper"
	"ct_bot/pkg/logger"
)

const (
	streamStaleAfter = 30 * time.Second
	reconnectDelay   = 5 * time.Second
)

// Stream держит кеш последних цен из miniTicker-потока. Протухшие записи
// не отдаются: лучше лишний REST-поход, чем решение по мёртвой цене.
type Stream struct {
	url     string
	symbols []string
	dialer  *websocket.Dialer

	mu   sync.RWMutex
	last map[string]streamPrice
}

type streamPrice struct {
	price float64
	at    time.Time
}

func NewStream(wsURL string, symbols []string) *Stream {
	return &Stream{
		url:     wsURL,
		symbols: symbols,
		dialer:  websocket.DefaultDialer,
		last:    make(map[string]streamPrice),
	}
}

// Last — цена из кеша, ok=false если её нет или она протухла.
func (s *Stream) Last(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.last[helper.CompactSymbol(symbol)]
	if !ok || time.Since(p.at) > streamStaleAfter {
		return 0, false
	}
	return p.price, true
}

type miniTickerEvent struct {
	Symbol string `json:"s"`
	Close  string `json:"c"`
}

// Run читает поток до отмены контекста, переподключаясь после обрывов.
func (s *Stream) Run(ctx context.Context) {
	streams := make([]string, 0, len(s.symbols))
	for _, sym := range s.symbols {
		streams = append(streams, strings.ToLower(helper.CompactSymbol(sym))+"@miniTicker")
	}
	endpoint := s.url + "/" + strings.Join(streams, "/")

	for {
		if ctx.Err() != nil {
			return
		}
		if err := s.readLoop(ctx, endpoint); err != nil {
			logger.Error("ticker stream: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (s *Stream) readLoop(ctx context.Context, endpoint string) error {
	conn, _, err := s.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	logger.Info("ticker stream connected: %d symbols", len(s.symbols))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var ev miniTickerEvent
		if err := sonic.Unmarshal(data, &ev); err != nil || ev.Symbol == "" {
			continue
		}
		price, err := strconv.ParseFloat(ev.Close, 64)
		if err != nil || price <= 0 {
			continue
		}

		s.mu.Lock()
		s.last[ev.Symbol] = streamPrice{price: price, at: time.Now()}
		s.mu.Unlock()
	}
}
