package recorder

import (
	"context"

	"MarketPsyche/internal/model"
)

// NoopRecorder is used when no database is configured.
type NoopRecorder struct{}

func NewNoopRecorder() *NoopRecorder { return &NoopRecorder{} }

func (n *NoopRecorder) RecordAnalysis(_ context.Context, _ *model.AnalysisResult) error { return nil }
func (n *NoopRecorder) RecordFailure(_ context.Context, _ *FailureEvent) error          { return nil }
func (n *NoopRecorder) History(_ context.Context, _ string, _ model.MarketKind, _ int) ([]Snapshot, error) {
	return nil, nil
}
func (n *NoopRecorder) Close() error { return nil }
