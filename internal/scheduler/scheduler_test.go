package scheduler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/notifier"
	"SignalSentinel/internal/strategy"
)

var t0 = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func flatCandles(n int, price float64) []model.OHLCV {
	out := make([]model.OHLCV, n)
	for i := range out {
		out[i] = model.OHLCV{
			Time:   t0.Add(time.Duration(i-n) * 5 * time.Minute),
			Open:   price,
			High:   price,
			Low:    price,
			Close:  price,
			Volume: 10,
		}
	}
	return out
}

type errFetcher struct{}

func (errFetcher) Name() string { return "broken" }

func (errFetcher) FetchCandles(context.Context, string, string, int) ([]model.OHLCV, error) {
	return nil, errors.New("connection refused")
}

func (errFetcher) FetchCurrentPrice(context.Context, string) (float64, error) {
	return 0, errors.New("connection refused")
}

type fixture struct {
	*Scheduler
	mock  *collector.MockFetcher
	sends *atomic.Int32
}

func newFixture(t *testing.T, fetcher collector.Fetcher) *fixture {
	t.Helper()
	log, _ := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)

	var sends atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sends.Add(1)
		fmt.Fprint(w, `{"ok":true}`)
	}))
	t.Cleanup(srv.Close)
	tn := notifier.NewTelegramNotifier("T", "1", "", log)
	tn.APIURL = srv.URL

	window := metrics.NewWindow(10)
	l := ledger.New(ledger.WithLogger(log), ledger.WithClock(func() time.Time { return t0 }))
	l.Subscribe(window)

	s := NewScheduler(context.Background(), Deps{
		Collector: collector.NewCollector(fetcher, "BTCUSDT", log),
		Engine:    strategy.NewEngine(log).WithClock(func() time.Time { return t0 }),
		Ledger:    l,
		Exporter:  metrics.NewExporter(window),
		Window:    window,
		Notifier:  tn,
	}, model.AnalysisConfig{TradingMode: model.ModeBalanced}, 50, log)

	f := &fixture{Scheduler: s, sends: &sends}
	f.mock, _ = fetcher.(*collector.MockFetcher)
	return f
}

func TestRunAnalysis_RecordsAndNotifies(t *testing.T) {
	f := newFixture(t, &collector.MockFetcher{Price: 100, Candles: flatCandles(31, 100)})

	d, ok := f.RunAnalysis("5m")
	require.True(t, ok)
	assert.Equal(t, model.Buy, d.Direction)
	assert.Equal(t, 100.0, d.CurrentPriceAtDecision)
	assert.Equal(t, 15*time.Minute, d.EvaluationHorizon)
	assert.Equal(t, model.StatusPending, d.Status)

	assert.Equal(t, 1, f.Ledger.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.Exporter.DecisionsTotal.WithLabelValues("5m")))
	assert.Equal(t, int32(1), f.sends.Load())
}

func TestRunAnalysis_NeutralIsRecordedQuietly(t *testing.T) {
	f := newFixture(t, &collector.MockFetcher{Price: 100, Candles: flatCandles(10, 100)})

	d, ok := f.RunAnalysis("1m")
	require.True(t, ok)
	assert.Equal(t, model.Neutral, d.Direction)
	assert.Equal(t, 1, f.Ledger.Len())
	assert.Zero(t, f.sends.Load())
}

func TestRunAnalysis_FetchError(t *testing.T) {
	f := newFixture(t, errFetcher{})

	_, ok := f.RunAnalysis("5m")
	assert.False(t, ok)
	assert.Zero(t, f.Ledger.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.Exporter.FetchErrors.WithLabelValues("broken")))
}

func TestRunEvaluation(t *testing.T) {
	f := newFixture(t, &collector.MockFetcher{Price: 100, Candles: flatCandles(31, 100)})
	_, ok := f.RunAnalysis("5m")
	require.True(t, ok)

	f.now = func() time.Time { return t0.Add(14 * time.Minute) }
	assert.Empty(t, f.RunEvaluation(), "horizon not reached")

	f.mock.Price = 101
	f.now = func() time.Time { return t0.Add(15 * time.Minute) }
	outcomes := f.RunEvaluation()
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.ResultCorrect, outcomes[0].Result)
	assert.InDelta(t, 1.0, outcomes[0].Return, 1e-9)

	assert.Equal(t, 1, f.Window.Summary().Size)
	assert.Equal(t, 1, f.Ledger.Stats().Correct)
	assert.Empty(t, f.RunEvaluation(), "already evaluated")
}

func TestRunEvaluation_PriceFailureKeepsReady(t *testing.T) {
	f := newFixture(t, &collector.MockFetcher{Price: 100, Candles: flatCandles(31, 100)})
	_, ok := f.RunAnalysis("5m")
	require.True(t, ok)

	f.Collector.Fetcher = errFetcher{}
	f.now = func() time.Time { return t0.Add(time.Hour) }
	assert.Nil(t, f.RunEvaluation())
	assert.Equal(t, 1, f.Ledger.Stats().Ready)

	f.Collector.Fetcher = f.mock
	f.mock.Price = 99
	outcomes := f.RunEvaluation()
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.ResultIncorrect, outcomes[0].Result)
}

func TestRegisterAll(t *testing.T) {
	f := newFixture(t, &collector.MockFetcher{Price: 100})

	require.NoError(t, f.RegisterAll([]string{"1m", "1h"}, map[string]string{"1h": "0 1 * * * *"}, "*/15 * * * * *", "0 0 8 * * *"))
	assert.Len(t, f.Cron.Entries(), 4)

	err := f.RegisterAll([]string{"1m"}, map[string]string{"1m": "not a cron"}, "*/15 * * * * *", "0 0 8 * * *")
	assert.Error(t, err)

	err = f.RegisterAll([]string{"2h"}, nil, "*/15 * * * * *", "0 0 8 * * *")
	assert.ErrorContains(t, err, "no schedule")
}

func TestRegisterAll_EvaluationJobRuns(t *testing.T) {
	f := newFixture(t, &collector.MockFetcher{Price: 100, Candles: flatCandles(31, 100)})
	_, ok := f.RunAnalysis("5m")
	require.True(t, ok)

	require.NoError(t, f.RegisterAll(nil, nil, "*/15 * * * * *", "0 0 8 * * *"))
	f.mock.Price = 102
	f.now = func() time.Time { return t0.Add(20 * time.Minute) }
	for _, e := range f.Cron.Entries() {
		e.Job.Run()
	}

	assert.Equal(t, 1, f.Ledger.Stats().Correct)
	assert.Equal(t, 1, f.Window.Summary().Size)
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t, &collector.MockFetcher{Price: 100, Candles: flatCandles(31, 100)})
	f.RunAnalysis("5m")
	f.RunAnalysis("15m")

	assert.Contains(t, f.HandleCommand("/stats"), "Total: 2")
	assert.Contains(t, f.HandleCommand("/history 1"), "15m BUY")
	assert.Len(t, strings.Split(f.HandleCommand("/history 5"), "\n"), 4, "header, blank line, two rows")
	assert.Contains(t, f.HandleCommand("/timeframes"), "5m: 1 total")
	assert.Contains(t, f.HandleCommand("/window"), "Last 0/10 outcomes")
	assert.Contains(t, f.HandleCommand("/report"), "no evaluated decisions yet")
	assert.Equal(t, notifier.HelpText, f.HandleCommand("hello"))
	assert.Equal(t, notifier.HelpText, f.HandleCommand(""))
}
