package notifier

import (
	"context"

	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/model"
)

// OutcomeObserver announces evaluated decisions. Sends run in their own
// goroutine so a slow Telegram API never holds up the ledger; Drain waits
// for them. Cancelling ctx aborts sends still retrying.
func OutcomeObserver(ctx context.Context, t *TelegramNotifier) ledger.Observer {
	return ledger.ObserverFunc(func(o model.Outcome) {
		text := FormatOutcome(o)
		t.inflight.Add(1)
		go func() {
			defer t.inflight.Done()
			if err := t.SendWithRetry(ctx, text, 3); err != nil {
				t.log.WithError(err).WithField("decision_id", o.DecisionID).Error("send outcome notice failed")
			}
		}()
	})
}
