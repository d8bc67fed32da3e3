package ledger

import (
	"github.com/sirupsen/logrus"

	"SignalSentinel/internal/model"
)

// Observer receives every evaluated outcome.
type Observer interface {
	OnOutcome(model.Outcome)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(model.Outcome)

// OnOutcome calls f(o).
func (f ObserverFunc) OnOutcome(o model.Outcome) { f(o) }

// notify delivers outcomes once to each observer. A panicking observer is
// logged and skipped; the evaluation it follows stands.
func (l *Ledger) notify(observers []Observer, outcomes []model.Outcome) {
	if len(observers) == 0 {
		l.log.WithField("outcomes", len(outcomes)).Debug("ledger: no outcome observers registered")
		return
	}
	for _, o := range outcomes {
		for _, obs := range observers {
			l.deliver(obs, o)
		}
	}
}

func (l *Ledger) deliver(obs Observer, o model.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			l.log.WithFields(logrus.Fields{
				"id":    o.DecisionID,
				"panic": r,
			}).Error("ledger: outcome observer failed")
		}
	}()
	obs.OnOutcome(o)
}
