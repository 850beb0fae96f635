package upbit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"upbit_bot/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	maxRetries   = 10
	readTimeout  = 60 * time.Second
	dialTimeout  = 10 * time.Second
	maxWSMarkets = 100
)

// wsTickerMessage is a ticker frame from the public websocket.
type wsTickerMessage struct {
	Type       string  `json:"type"` // ticker
	Code       string  `json:"code"` // KRW-BTC
	TradePrice float64 `json:"trade_price"`
	Timestamp  int64   `json:"timestamp"`
}

type pricePoint struct {
	price      float64
	receivedAt time.Time
}

// Stream keeps the latest trade price of subscribed markets from the
// ticker websocket. It reconnects with backoff until its context ends.
type Stream struct {
	url     string
	clock   infra.Clock
	metrics *infra.Metrics
	logger  *slog.Logger

	mu      sync.RWMutex
	markets []string
	prices  map[string]pricePoint
	conn    *websocket.Conn
	writeMu sync.Mutex
}

// NewStream creates a stream for wsURL. Markets can be set later with Subscribe.
func NewStream(wsURL string, clock infra.Clock, metrics *infra.Metrics) *Stream {
	if clock == nil {
		clock = infra.SystemClock{}
	}
	return &Stream{
		url:     wsURL,
		clock:   clock,
		metrics: metrics,
		logger:  slog.Default().With("module", "upbit_stream"),
		prices:  make(map[string]pricePoint),
	}
}

// Run connects and reads until ctx is done.
func (s *Stream) Run(ctx context.Context) error {
	retryCount := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := s.connect(ctx); err != nil {
			s.logger.Warn("upbit stream connection failed", slog.Any("error", err), slog.Int("retry", retryCount))
			delay := infra.CalculateBackoff(retryCount)
			retryCount++
			if retryCount > maxRetries {
				retryCount = 0
			}
			if err := s.clock.Sleep(ctx, delay); err != nil {
				return nil
			}
			continue
		}

		retryCount = 0
		s.readLoop(ctx)
		if err := s.clock.Sleep(ctx, infra.CalculateBackoff(0)); err != nil {
			return nil
		}
	}
}

// Subscribe replaces the market set and resends the subscription when
// connected. Only the first maxWSMarkets codes are kept.
func (s *Stream) Subscribe(markets []string) error {
	markets = slices.Clone(markets)
	slices.Sort(markets)
	if len(markets) > maxWSMarkets {
		markets = markets[:maxWSMarkets]
	}

	s.mu.Lock()
	if slices.Equal(s.markets, markets) {
		s.mu.Unlock()
		return nil
	}
	s.markets = markets
	connected := s.conn != nil
	s.mu.Unlock()

	if !connected {
		return nil
	}
	return s.subscribe()
}

// Price returns the cached price of market if it is newer than maxAge.
func (s *Stream) Price(market string, maxAge time.Duration) (float64, bool) {
	s.mu.RLock()
	p, ok := s.prices[market]
	s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	if maxAge > 0 && s.clock.Now().Sub(p.receivedAt) > maxAge {
		return 0, false
	}
	return p.price, true
}

func (s *Stream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	header := make(http.Header)
	header.Set("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, s.url, header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if err := s.subscribe(); err != nil {
		s.closeConnection()
		return err
	}

	s.metrics.SetStreamConnected(true)
	s.logger.Info("upbit stream connected", slog.Int("subs", len(s.subscribed())))
	return nil
}

func (s *Stream) subscribed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.markets
}

func (s *Stream) subscribe() error {
	codes := s.subscribed()
	if len(codes) == 0 {
		return nil
	}
	msg := []map[string]any{
		{"ticket": fmt.Sprintf("upbit-bot-%d", s.clock.Now().UnixNano())},
		{"type": "ticker", "codes": codes},
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return s.write(websocket.TextMessage, b)
}

func (s *Stream) write(msgType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.conn == nil {
		return fmt.Errorf("no conn")
	}
	return s.conn.WriteMessage(msgType, data)
}

func (s *Stream) readLoop(ctx context.Context) {
	// unblock ReadMessage on shutdown
	stop := context.AfterFunc(ctx, s.closeConnection)
	defer stop()

	for {
		s.mu.RLock()
		conn := s.conn
		s.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Warn("upbit stream read failed", slog.Any("error", err))
			}
			s.closeConnection()
			return
		}
		s.handleMessage(msg)
	}
}

func (s *Stream) handleMessage(msg []byte) {
	var m wsTickerMessage
	if json.Unmarshal(msg, &m) != nil || m.Type != "ticker" || m.Code == "" {
		return
	}

	s.mu.Lock()
	s.prices[m.Code] = pricePoint{price: m.TradePrice, receivedAt: s.clock.Now()}
	s.mu.Unlock()
}

func (s *Stream) closeConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
		s.metrics.SetStreamConnected(false)
	}
}
