package model

import "time"

// DecisionStatus is the lifecycle state of a recorded decision.
type DecisionStatus string

const (
	StatusPending   DecisionStatus = "pending"
	StatusReady     DecisionStatus = "ready"
	StatusEvaluated DecisionStatus = "evaluated"
)

// EvaluationResult classifies a decision against the later price.
type EvaluationResult string

const (
	ResultCorrect   EvaluationResult = "correct"
	ResultIncorrect EvaluationResult = "incorrect"
	ResultNeutral   EvaluationResult = "neutral"
)

// Evaluation is attached to a decision once it has been judged.
type Evaluation struct {
	Result         EvaluationResult
	FuturePrice    float64
	PriceChangePct float64
	EvaluatedAt    time.Time
}

// Decision is a recorded call waiting for, or carrying, its evaluation.
// Evaluation is non-nil exactly when Status is StatusEvaluated.
type Decision struct {
	ID                     string
	Timestamp              time.Time
	Direction              Direction
	Confidence             float64
	CurrentPriceAtDecision float64
	IndicatorSnapshot      IndicatorSet
	Timeframe              string
	MarketContext          MarketContext
	EvaluationHorizon      time.Duration
	Status                 DecisionStatus
	Evaluation             *Evaluation
}

// Clone returns a copy that shares no memory with d.
func (d Decision) Clone() Decision {
	if d.Evaluation != nil {
		ev := *d.Evaluation
		d.Evaluation = &ev
	}
	return d
}

// Outcome is what the ledger forwards to consumers after an evaluation.
type Outcome struct {
	DecisionID     string
	Timeframe      string
	Direction      Direction
	Result         EvaluationResult
	Success        bool
	Return         float64 // price change in percent, signed in the decision's favour
	PriceChangePct float64
	Confidence     float64
	MarketContext  MarketContext
	Timestamp      time.Time
}
