package sandbox

import "context"

// Phase is the coarse position of an evaluation in its lifecycle.
type Phase string

const (
	PhaseCompiling Phase = "compiling"
	PhaseRunning   Phase = "running"
)

// ProgressUpdate carries intermediate evaluation progress.
type ProgressUpdate struct {
	EvaluationID string
	Language     string
	Phase        Phase
	TotalTests   int
	DoneTests    int
}

// ProgressReporter receives progress updates. Failures are logged and
// never affect the evaluation.
type ProgressReporter interface {
	ReportProgress(ctx context.Context, update ProgressUpdate) error
}
