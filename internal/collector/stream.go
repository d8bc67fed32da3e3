package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// DefaultStreamURL is the Binance spot websocket base.
const DefaultStreamURL = "wss://stream.binance.com:9443/ws"

// StreamConfig configures a PriceStream.
type StreamConfig struct {
	URL               string // full stream URL; empty builds one from DefaultStreamURL
	Symbol            string
	InitialDelay      time.Duration
	MaxReconnectDelay time.Duration
	HandshakeTimeout  time.Duration
}

// PriceStream keeps the last traded price from a Binance trade stream.
type PriceStream struct {
	cfg StreamConfig
	log *logrus.Logger

	// OnReconnect is called before each reconnection attempt.
	OnReconnect func()

	mu      sync.RWMutex
	price   float64
	updated time.Time
}

// NewPriceStream creates a stream for cfg.Symbol.
func NewPriceStream(cfg StreamConfig, log *logrus.Logger) *PriceStream {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if cfg.URL == "" {
		cfg.URL = fmt.Sprintf("%s/%s@trade", DefaultStreamURL, strings.ToLower(cfg.Symbol))
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = time.Second
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = time.Minute
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	return &PriceStream{cfg: cfg, log: log}
}

// Latest returns the last trade price and when it arrived.
func (s *PriceStream) Latest() (float64, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.price, s.updated, !s.updated.IsZero()
}

// Fresh returns the last price if it is younger than maxAge at now.
func (s *PriceStream) Fresh(now time.Time, maxAge time.Duration) (float64, bool) {
	price, updated, ok := s.Latest()
	if !ok || now.Sub(updated) > maxAge {
		return 0, false
	}
	return price, true
}

// Run connects and reads until ctx is cancelled, reconnecting with
// exponential backoff.
func (s *PriceStream) Run(ctx context.Context) error {
	delay := s.cfg.InitialDelay
	for {
		connected, err := s.runOnce(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			delay = s.cfg.InitialDelay
		}

		s.log.WithError(err).WithField("retry_in", delay).Warn("price stream disconnected")
		if s.OnReconnect != nil {
			s.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > s.cfg.MaxReconnectDelay {
			delay = s.cfg.MaxReconnectDelay
		}
	}
}

type tradeMessage struct {
	Price     string `json:"p"`
	TradeTime int64  `json:"T"`
}

// runOnce makes one connection attempt and reads until disconnect or ctx cancel.
func (s *PriceStream) runOnce(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: s.cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return false, err
	}
	defer conn.Close()
	s.log.WithField("url", s.cfg.URL).Info("price stream connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}

		var msg tradeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.log.WithError(err).Debug("price stream: unparseable message")
			continue
		}
		price, err := strconv.ParseFloat(msg.Price, 64)
		if err != nil || price <= 0 {
			continue
		}

		s.mu.Lock()
		s.price = price
		s.updated = time.Now()
		s.mu.Unlock()
	}
}
