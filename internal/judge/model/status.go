package model

import (
	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/scoring"
)

// Lifecycle states before a result exists. Final states reuse result.Status.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompiling = "compiling"
)

// EvaluationStatus is the stored view of one submission.
type EvaluationStatus struct {
	SubmissionID string                   `json:"submission_id"`
	Status       string                   `json:"status"`
	Language     string                   `json:"language"`
	Result       *result.EvaluationResult `json:"result,omitempty"`
	Score        *scoring.Score           `json:"score,omitempty"`
	Timestamps   Timestamps               `json:"timestamps"`
	Progress     Progress                 `json:"progress"`
	ErrorCode    int                      `json:"error_code,omitempty"`
	ErrorMessage string                   `json:"error_message,omitempty"`
}

// Final reports whether no further updates will follow.
func (s EvaluationStatus) Final() bool {
	switch s.Status {
	case string(result.StatusPassed), string(result.StatusFailed), string(result.StatusError):
		return true
	}
	return false
}

// Timestamps are unix seconds.
type Timestamps struct {
	ReceivedAt int64 `json:"received_at"`
	StartedAt  int64 `json:"started_at,omitempty"`
	FinishedAt int64 `json:"finished_at,omitempty"`
}

// Progress represents evaluation progress.
type Progress struct {
	TotalTests int `json:"total_tests"`
	DoneTests  int `json:"done_tests"`
}
