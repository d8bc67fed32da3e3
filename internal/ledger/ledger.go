package ledger

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/model"
)

const (
	// DefaultCapacity bounds the decision history; the oldest entries are dropped first.
	DefaultCapacity = 1000
	// ThresholdPct is the price move, in percentage points, a decision must beat
	// to count as correct or incorrect.
	ThresholdPct = 0.1
	// DefaultHorizon applies to timeframes missing from the horizon table.
	DefaultHorizon = 5 * time.Minute
)

var horizons = map[string]time.Duration{
	"1m":  3 * time.Minute,
	"5m":  15 * time.Minute,
	"15m": 45 * time.Minute,
	"1h":  180 * time.Minute,
}

// HorizonFor returns how long a decision on timeframe waits before evaluation.
func HorizonFor(timeframe string) time.Duration {
	if h, ok := horizons[timeframe]; ok {
		return h
	}
	return DefaultHorizon
}

// Request is the payload for Record.
type Request struct {
	Timestamp     time.Time // zero uses the ledger clock
	Direction     model.Direction
	Confidence    float64
	CurrentPrice  float64
	Indicators    model.IndicatorSet
	Timeframe     string
	MarketContext model.MarketContext
	Horizon       time.Duration // zero uses HorizonFor(Timeframe)
}

// NewRequest builds a Request from an analysis result.
func NewRequest(result model.AnalysisResult) Request {
	return Request{
		Timestamp:     result.Timestamp,
		Direction:     result.Direction,
		Confidence:    result.Confidence,
		CurrentPrice:  result.Indicators.CurrentPrice,
		Indicators:    result.Indicators,
		Timeframe:     result.Timeframe,
		MarketContext: result.Context,
	}
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log *logrus.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock sets the clock used for zero request timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithCapacity overrides DefaultCapacity. Non-positive values are ignored.
func WithCapacity(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.capacity = n
		}
	}
}

// Ledger records decisions and walks each one through
// pending -> ready -> evaluated. It has no timer of its own: time only moves
// when the host calls Advance or AdvanceAndEvaluate.
type Ledger struct {
	mu        sync.Mutex
	log       *logrus.Logger
	now       func() time.Time
	capacity  int
	history   []model.Decision
	observers []Observer
}

// New creates an empty Ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		log:      logrus.StandardLogger(),
		now:      time.Now,
		capacity: DefaultCapacity,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Subscribe registers an observer for evaluated outcomes.
func (l *Ledger) Subscribe(o Observer) {
	if o == nil {
		return
	}
	l.mu.Lock()
	l.observers = append(l.observers, o)
	l.mu.Unlock()
}

// Reset drops the whole history. Observers stay registered.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.history = nil
	l.mu.Unlock()
}

// Len returns the number of decisions held.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

// Record stores a new pending decision. An invalid request is dropped with a
// warning and reported as false.
func (l *Ledger) Record(req Request) (model.Decision, bool) {
	if !req.Direction.Valid() || !validPrice(req.CurrentPrice) {
		l.log.WithFields(logrus.Fields{
			"direction": req.Direction,
			"price":     req.CurrentPrice,
			"timeframe": req.Timeframe,
		}).Warn("ledger: invalid decision payload, not recorded")
		return model.Decision{}, false
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = l.now()
	}
	horizon := req.Horizon
	if horizon <= 0 {
		horizon = HorizonFor(req.Timeframe)
	}
	confidence := req.Confidence
	if math.IsNaN(confidence) || math.IsInf(confidence, 0) {
		confidence = 0
	}

	d := model.Decision{
		ID:                     uuid.NewString(),
		Timestamp:              ts,
		Direction:              req.Direction,
		Confidence:             confidence,
		CurrentPriceAtDecision: req.CurrentPrice,
		IndicatorSnapshot:      req.Indicators,
		Timeframe:              req.Timeframe,
		MarketContext:          req.MarketContext,
		EvaluationHorizon:      horizon,
		Status:                 model.StatusPending,
	}

	l.mu.Lock()
	l.history = append(l.history, d)
	if over := len(l.history) - l.capacity; over > 0 {
		n := copy(l.history, l.history[over:])
		clear(l.history[n:])
		l.history = l.history[:n]
	}
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{
		"id":        d.ID,
		"direction": d.Direction,
		"timeframe": d.Timeframe,
		"price":     d.CurrentPriceAtDecision,
		"horizon":   d.EvaluationHorizon,
	}).Info("ledger: decision recorded")
	return d.Clone(), true
}

// Advance moves every pending decision whose horizon has elapsed at now to
// ready and returns how many decisions are ready afterwards, including ones
// left ready by an earlier call.
func (l *Ledger) Advance(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.advanceLocked(now)
}

func (l *Ledger) advanceLocked(now time.Time) int {
	ready := 0
	for i := range l.history {
		d := &l.history[i]
		if d.Status == model.StatusPending && now.Sub(d.Timestamp) >= d.EvaluationHorizon {
			d.Status = model.StatusReady
		}
		if d.Status == model.StatusReady {
			ready++
		}
	}
	return ready
}

// Evaluate judges one ready decision against futurePrice. Decisions that are
// unknown, still pending or already evaluated are left alone and report false.
func (l *Ledger) Evaluate(id string, futurePrice float64, now time.Time) (model.Evaluation, bool) {
	if !validPrice(futurePrice) {
		l.log.WithField("price", futurePrice).Warn("ledger: invalid evaluation price, skipped")
		return model.Evaluation{}, false
	}

	l.mu.Lock()
	var outcome model.Outcome
	var ev model.Evaluation
	found := false
	for i := range l.history {
		d := &l.history[i]
		if d.ID != id || d.Status != model.StatusReady {
			continue
		}
		outcome = l.evaluateLocked(d, futurePrice, now)
		ev = *d.Evaluation
		found = true
		break
	}
	observers := l.observers
	l.mu.Unlock()

	if !found {
		return model.Evaluation{}, false
	}
	l.notify(observers, []model.Outcome{outcome})
	return ev, true
}

// AdvanceAndEvaluate is the polling entry point: it advances every pending
// decision, then evaluates all ready decisions against the same price.
func (l *Ledger) AdvanceAndEvaluate(currentPrice float64, now time.Time) []model.Outcome {
	l.mu.Lock()
	l.advanceLocked(now)

	if !validPrice(currentPrice) {
		l.mu.Unlock()
		l.log.WithField("price", currentPrice).Warn("ledger: invalid evaluation price, skipped")
		return nil
	}

	var outcomes []model.Outcome
	for i := range l.history {
		d := &l.history[i]
		if d.Status == model.StatusReady {
			outcomes = append(outcomes, l.evaluateLocked(d, currentPrice, now))
		}
	}
	observers := l.observers
	l.mu.Unlock()

	if len(outcomes) > 0 {
		l.notify(observers, outcomes)
	}
	return outcomes
}

func (l *Ledger) evaluateLocked(d *model.Decision, futurePrice float64, now time.Time) model.Outcome {
	pct := (futurePrice - d.CurrentPriceAtDecision) / d.CurrentPriceAtDecision * 100
	result := Classify(d.Direction, pct)

	d.Status = model.StatusEvaluated
	d.Evaluation = &model.Evaluation{
		Result:         result,
		FuturePrice:    futurePrice,
		PriceChangePct: pct,
		EvaluatedAt:    now,
	}

	l.log.WithFields(logrus.Fields{
		"id":        d.ID,
		"direction": d.Direction,
		"timeframe": d.Timeframe,
		"change":    pct,
		"result":    result,
	}).Info("ledger: decision evaluated")

	return model.Outcome{
		DecisionID:     d.ID,
		Timeframe:      d.Timeframe,
		Direction:      d.Direction,
		Result:         result,
		Success:        result == model.ResultCorrect,
		Return:         signedReturn(d.Direction, pct),
		PriceChangePct: pct,
		Confidence:     d.Confidence,
		MarketContext:  d.MarketContext,
		Timestamp:      now,
	}
}

// Classify maps a direction and price change to an evaluation result.
// Moves of exactly ThresholdPct are neutral; NEUTRAL decisions always are.
func Classify(dir model.Direction, pct float64) model.EvaluationResult {
	switch dir {
	case model.Buy:
		if pct > ThresholdPct {
			return model.ResultCorrect
		}
		if pct < -ThresholdPct {
			return model.ResultIncorrect
		}
	case model.Sell:
		if pct < -ThresholdPct {
			return model.ResultCorrect
		}
		if pct > ThresholdPct {
			return model.ResultIncorrect
		}
	}
	return model.ResultNeutral
}

func signedReturn(dir model.Direction, pct float64) float64 {
	switch dir {
	case model.Buy:
		return pct
	case model.Sell:
		return -pct
	default:
		return 0
	}
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 0) && !math.IsNaN(p)
}
