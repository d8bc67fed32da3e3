package collector

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price   float64
	Candles []model.OHLCV
	Now     func() time.Time
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCandles(_ context.Context, _, timeframe string, limit int) ([]model.OHLCV, error) {
	if m.Candles != nil {
		return m.Candles, nil
	}
	step, err := TimeframeDuration(timeframe)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 200
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return generateMockCandles(m.Price, limit, step, now()), nil
}

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, _ string) (float64, error) {
	return m.Price, nil
}

// generateMockCandles oscillates around basePrice so every indicator has
// something to work with. The last candle ends at the current price.
func generateMockCandles(basePrice float64, count int, step time.Duration, now time.Time) []model.OHLCV {
	candles := make([]model.OHLCV, count)
	start := now.Truncate(step).Add(-time.Duration(count-1) * step)
	prev := basePrice
	for i := 0; i < count; i++ {
		p := basePrice * (1 + 0.01*math.Sin(float64(i)/6) + float64(i-count/2)*0.0002)
		if i == count-1 {
			p = basePrice
		}
		candles[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * step),
			Open:   prev,
			High:   math.Max(prev, p) * 1.002,
			Low:    math.Min(prev, p) * 0.998,
			Close:  p,
			Volume: 1000 + float64(i%10)*100,
		}
		prev = p
	}
	return candles
}

// Collector orchestrates data fetching for one symbol.
type Collector struct {
	Fetcher Fetcher
	Symbol  string
	Stream  *PriceStream  // optional live price
	MaxAge  time.Duration // how old a stream price may be
	log     *logrus.Logger
}

// NewCollector creates a new Collector.
func NewCollector(fetcher Fetcher, symbol string, log *logrus.Logger) *Collector {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Collector{Fetcher: fetcher, Symbol: symbol, MaxAge: 10 * time.Second, log: log}
}

// Candles fetches limit candles of timeframe.
func (c *Collector) Candles(ctx context.Context, timeframe string, limit int) ([]model.OHLCV, error) {
	candles, err := c.Fetcher.FetchCandles(ctx, c.Symbol, timeframe, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch %s candles: %w", timeframe, err)
	}
	if len(candles) < 2 {
		c.log.WithFields(logrus.Fields{
			"source":    c.Fetcher.Name(),
			"timeframe": timeframe,
			"candles":   len(candles),
		}).Warn("short candle series, indicators will use defaults")
	}
	return candles, nil
}

// CurrentPrice prefers a fresh stream price and falls back to the fetcher.
func (c *Collector) CurrentPrice(ctx context.Context) (float64, error) {
	if c.Stream != nil {
		if price, ok := c.Stream.Fresh(time.Now(), c.MaxAge); ok {
			return price, nil
		}
	}
	price, err := c.Fetcher.FetchCurrentPrice(ctx, c.Symbol)
	if err != nil {
		return 0, fmt.Errorf("fetch current price: %w", err)
	}
	return price, nil
}
