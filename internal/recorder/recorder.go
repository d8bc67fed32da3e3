package recorder

import (
	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/model"
)

// Recorder journals analyses, decisions and outcomes for offline analysis.
// The journal is write-only; the ledger never reloads from it.
type Recorder interface {
	RecordAnalysis(r model.AnalysisResult) error
	RecordDecision(d model.Decision) error
	RecordOutcome(o model.Outcome) error
	Close() error
}

// OutcomeObserver adapts a Recorder to the ledger observer interface.
// Write failures are logged and dropped.
func OutcomeObserver(rec Recorder, log *logrus.Logger) ledger.Observer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return ledger.ObserverFunc(func(o model.Outcome) {
		if err := rec.RecordOutcome(o); err != nil {
			log.WithError(err).WithField("id", o.DecisionID).Error("record outcome failed")
		}
	})
}
