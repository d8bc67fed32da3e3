package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/collector"
	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/metrics"
	"SignalSentinel/internal/model"
	"SignalSentinel/internal/notifier"
	"SignalSentinel/internal/recorder"
	"SignalSentinel/internal/report"
	"SignalSentinel/internal/strategy"
)

// DefaultAnalysisCron runs each timeframe a few seconds after its candle closes.
var DefaultAnalysisCron = map[string]string{
	"1m":  "5 * * * * *",
	"5m":  "5 */5 * * * *",
	"15m": "5 */15 * * * *",
	"1h":  "5 0 * * * *",
	"4h":  "5 0 */4 * * *",
}

// Deps are the components a Scheduler drives. Notifier may be nil.
type Deps struct {
	Collector *collector.Collector
	Engine    *strategy.Engine
	Ledger    *ledger.Ledger
	Exporter  *metrics.Exporter
	Window    *metrics.Window
	Recorder  recorder.Recorder
	Notifier  *notifier.TelegramNotifier
}

// Scheduler manages all cron tasks.
type Scheduler struct {
	Deps
	Cron        *cron.Cron
	Analysis    model.AnalysisConfig
	CandleLimit int
	Ctx         context.Context

	log *logrus.Logger
	now func() time.Time
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, deps Deps, analysis model.AnalysisConfig, candleLimit int, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if deps.Recorder == nil {
		deps.Recorder = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Deps:        deps,
		Cron:        cron.New(cron.WithSeconds()),
		Analysis:    analysis,
		CandleLimit: candleLimit,
		Ctx:         ctx,
		log:         log,
		now:         time.Now,
	}
}

// RegisterAll registers one analysis job per timeframe plus the evaluation
// and report jobs. overrides replace the default analysis spec per timeframe.
func (s *Scheduler) RegisterAll(timeframes []string, overrides map[string]string, evaluateCron, reportCron string) error {
	for _, tf := range timeframes {
		spec, ok := overrides[tf]
		if !ok {
			spec, ok = DefaultAnalysisCron[tf]
		}
		if !ok {
			return fmt.Errorf("register %s analysis: no schedule for timeframe", tf)
		}
		if _, err := s.Cron.AddFunc(spec, func() { s.RunAnalysis(tf) }); err != nil {
			return fmt.Errorf("register %s analysis: %w", tf, err)
		}
	}
	if _, err := s.Cron.AddFunc(evaluateCron, func() { s.RunEvaluation() }); err != nil {
		return fmt.Errorf("register evaluation task: %w", err)
	}
	if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
		return fmt.Errorf("register report task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunAnalysis analyzes one timeframe and records the decision.
func (s *Scheduler) RunAnalysis(timeframe string) (model.Decision, bool) {
	log := s.log.WithField("timeframe", timeframe)

	// Step a: fetch candles
	candles, err := s.Collector.Candles(s.Ctx, timeframe, s.CandleLimit)
	if err != nil {
		log.WithError(err).Error("analysis collect failed")
		s.Exporter.ObserveFetchError(s.Collector.Fetcher.Name())
		return model.Decision{}, false
	}

	// Step b: analyze
	result := s.Engine.Analyze(candles, timeframe, s.Analysis)
	s.Exporter.ObserveAnalysis(result)
	if err := s.Recorder.RecordAnalysis(result); err != nil {
		log.WithError(err).Error("record analysis failed")
	}

	// Step c: record the decision
	decision, ok := s.Ledger.Record(ledger.NewRequest(result))
	if !ok {
		return model.Decision{}, false
	}
	s.Exporter.ObserveDecision(decision)
	if err := s.Recorder.RecordDecision(decision); err != nil {
		log.WithError(err).Error("record decision failed")
	}

	log.WithFields(logrus.Fields{
		"id":         decision.ID,
		"direction":  decision.Direction,
		"confidence": fmt.Sprintf("%.1f", decision.Confidence),
		"price":      decision.CurrentPriceAtDecision,
	}).Info("decision recorded")

	if decision.Direction != model.Neutral {
		s.trySend(notifier.FormatDecision(s.Collector.Symbol, decision))
	}
	return decision, true
}

// RunEvaluation advances pending decisions and evaluates the ready ones
// against the latest price.
func (s *Scheduler) RunEvaluation() []model.Outcome {
	now := s.now()
	// skip the price fetch while nothing is due
	if s.Ledger.Advance(now) == 0 {
		return nil
	}
	price, err := s.Collector.CurrentPrice(s.Ctx)
	if err != nil {
		s.log.WithError(err).Error("evaluation price fetch failed")
		s.Exporter.ObserveFetchError(s.Collector.Fetcher.Name())
		return nil
	}
	outcomes := s.Ledger.AdvanceAndEvaluate(price, now)
	if len(outcomes) > 0 {
		s.log.WithFields(logrus.Fields{"evaluated": len(outcomes), "price": price}).Info("decisions evaluated")
	}
	return outcomes
}

func (s *Scheduler) reportTask() {
	s.trySend(notifier.FormatPre(s.reportText()))
}

func (s *Scheduler) reportText() string {
	return report.Format(report.Build(s.Ledger.EvaluatedDecisions(), s.now()))
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return notifier.HelpText
	}
	switch fields[0] {
	case "/stats":
		return notifier.FormatStats(s.Ledger.Stats())
	case "/history":
		limit := 10
		if len(fields) > 1 {
			if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
				limit = n
			}
		}
		return notifier.FormatHistory(s.Ledger.History(limit))
	case "/timeframes":
		return notifier.FormatTimeframes(s.Ledger.TimeframeStats())
	case "/window":
		return notifier.FormatWindow(s.Window.Summary())
	case "/report":
		return notifier.FormatPre(s.reportText())
	default:
		return notifier.HelpText
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		s.log.WithError(err).Error("send notification failed")
	}
}
