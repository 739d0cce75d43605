// Package observer defines metrics hooks for sandbox execution.
package observer

import (
	"context"
	"time"
)

// MetricsRecorder records sandbox metrics.
type MetricsRecorder interface {
	ObserveCompile(ctx context.Context, languageID string, ok bool, elapsed time.Duration, memoryBytes int64)
	ObserveRun(ctx context.Context, languageID string, status string, elapsed time.Duration, memoryBytes int64)
	ObserveEvaluation(ctx context.Context, languageID string, status string, elapsed time.Duration)
}

// NoopMetricsRecorder is a default recorder that does nothing.
type NoopMetricsRecorder struct{}

func (NoopMetricsRecorder) ObserveCompile(ctx context.Context, languageID string, ok bool, elapsed time.Duration, memoryBytes int64) {
}

func (NoopMetricsRecorder) ObserveRun(ctx context.Context, languageID string, status string, elapsed time.Duration, memoryBytes int64) {
}

func (NoopMetricsRecorder) ObserveEvaluation(ctx context.Context, languageID string, status string, elapsed time.Duration) {
}
