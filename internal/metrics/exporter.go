package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/model"
)

var _ ledger.Observer = (*Exporter)(nil)

// Exporter holds the Prometheus metrics of the engine.
type Exporter struct {
	registry *prometheus.Registry

	AnalysesTotal    *prometheus.CounterVec // labels: timeframe, direction
	DecisionsTotal   *prometheus.CounterVec // labels: timeframe
	OutcomesTotal    *prometheus.CounterVec // labels: timeframe, direction, result
	Confidence       prometheus.Histogram
	FetchErrors      *prometheus.CounterVec // labels: source
	StreamReconnects prometheus.Counter
}

// NewExporter registers all metrics on a private registry. When window is
// non-nil its accuracy, win rate and error streak are exported as gauges.
func NewExporter(window *Window) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		AnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_analyses_total",
			Help: "Analyses produced, by timeframe and direction",
		}, []string{"timeframe", "direction"}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_decisions_recorded_total",
			Help: "Decisions recorded in the ledger",
		}, []string{"timeframe"}),
		OutcomesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_outcomes_total",
			Help: "Evaluated decisions, by timeframe, direction and result",
		}, []string{"timeframe", "direction", "result"}),
		Confidence: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sentinel_analysis_confidence",
			Help:    "Confidence of produced analyses",
			Buckets: []float64{10, 25, 50, 75, 90, 100},
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sentinel_fetch_errors_total",
			Help: "Market data fetch failures",
		}, []string{"source"}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sentinel_stream_reconnects_total",
			Help: "Price stream reconnection attempts",
		}),
	}

	e.registry.MustRegister(
		e.AnalysesTotal,
		e.DecisionsTotal,
		e.OutcomesTotal,
		e.Confidence,
		e.FetchErrors,
		e.StreamReconnects,
	)

	if window != nil {
		e.registry.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "sentinel_window_accuracy_pct",
				Help: "Share of successful outcomes in the rolling window",
			}, func() float64 { return window.Summary().Accuracy }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "sentinel_window_win_rate_pct",
				Help: "Share of positive-return outcomes in the rolling window",
			}, func() float64 { return window.Summary().WinRate }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "sentinel_window_consecutive_errors",
				Help: "Current run of unsuccessful outcomes",
			}, func() float64 { return float64(window.Summary().ConsecutiveErrors) }),
		)
	}
	return e
}

// ObserveAnalysis counts a produced analysis.
func (e *Exporter) ObserveAnalysis(r model.AnalysisResult) {
	e.AnalysesTotal.WithLabelValues(r.Timeframe, string(r.Direction)).Inc()
	e.Confidence.Observe(r.Confidence)
}

// ObserveDecision counts a recorded decision.
func (e *Exporter) ObserveDecision(d model.Decision) {
	e.DecisionsTotal.WithLabelValues(d.Timeframe).Inc()
}

// OnOutcome counts an evaluated decision.
func (e *Exporter) OnOutcome(o model.Outcome) {
	e.OutcomesTotal.WithLabelValues(o.Timeframe, string(o.Direction), string(o.Result)).Inc()
}

// ObserveFetchError counts a failed market data request from source.
func (e *Exporter) ObserveFetchError(source string) {
	e.FetchErrors.WithLabelValues(source).Inc()
}

// ObserveReconnect counts a price stream reconnection attempt.
func (e *Exporter) ObserveReconnect() {
	e.StreamReconnects.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// Server exposes /metrics and /healthz.
type Server struct {
	log *logrus.Logger
	srv *http.Server
}

// NewServer creates the metrics HTTP server.
func NewServer(addr string, e *Exporter, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		log: log,
		srv: &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Start launches the server in a goroutine.
func (s *Server) Start() {
	go func() {
		s.log.WithField("addr", s.srv.Addr).Info("metrics server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("metrics server stopped")
		}
	}()
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
