package metrics

import (
	"sync"
	"time"

	"SignalSentinel/internal/ledger"
	"SignalSentinel/internal/model"
)

// DefaultWindowSize is the number of outcomes the rolling window keeps.
const DefaultWindowSize = 100

var _ ledger.Observer = (*Window)(nil)

// Record is one evaluated outcome as seen by the rolling window.
type Record struct {
	Timeframe  string
	Direction  model.Direction
	Success    bool
	Return     float64
	Confidence float64
	Timestamp  time.Time
}

// Summary is computed on demand from the records in the window.
// Accuracy and WinRate are percentages of the window size.
type Summary struct {
	Size                 int
	Capacity             int
	Accuracy             float64
	WinRate              float64
	AvgReturn            float64
	ConsecutiveErrors    int
	MaxConsecutiveErrors int
	Directions           map[model.Direction]int
}

// Window is a bounded FIFO of recent outcomes. Overflow drops the oldest record.
type Window struct {
	mu      sync.Mutex
	size    int
	records []Record
}

// NewWindow creates a Window holding up to size records (DefaultWindowSize if size <= 0).
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{size: size, records: make([]Record, 0, size)}
}

// Record appends r, evicting the oldest record when full.
func (w *Window) Record(r Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.records) == w.size {
		copy(w.records, w.records[1:])
		w.records = w.records[:w.size-1]
	}
	w.records = append(w.records, r)
}

// OnOutcome feeds a ledger outcome into the window.
func (w *Window) OnOutcome(o model.Outcome) {
	w.Record(Record{
		Timeframe:  o.Timeframe,
		Direction:  o.Direction,
		Success:    o.Success,
		Return:     o.Return,
		Confidence: o.Confidence,
		Timestamp:  o.Timestamp,
	})
}

// Reset empties the window.
func (w *Window) Reset() {
	w.mu.Lock()
	w.records = w.records[:0]
	w.mu.Unlock()
}

// Summary computes the window statistics.
func (w *Window) Summary() Summary {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Summary{
		Size:       len(w.records),
		Capacity:   w.size,
		Directions: make(map[model.Direction]int),
	}
	if s.Size == 0 {
		return s
	}

	var successes, wins, streak int
	var total float64
	for _, r := range w.records {
		s.Directions[r.Direction]++
		total += r.Return
		if r.Return > 0 {
			wins++
		}
		if r.Success {
			successes++
			streak = 0
			continue
		}
		streak++
		if streak > s.MaxConsecutiveErrors {
			s.MaxConsecutiveErrors = streak
		}
	}

	n := float64(s.Size)
	s.Accuracy = float64(successes) / n * 100
	s.WinRate = float64(wins) / n * 100
	s.AvgReturn = total / n
	s.ConsecutiveErrors = streak
	return s
}
