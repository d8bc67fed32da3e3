package recorder

import "SignalSentinel/internal/model"

// NoopRecorder is a no-op implementation used when SQLite is not configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(model.AnalysisResult) error { return nil }
func (n *NoopRecorder) RecordDecision(model.Decision) error       { return nil }
func (n *NoopRecorder) RecordOutcome(model.Outcome) error         { return nil }
func (n *NoopRecorder) Close() error                              { return nil }
