package model

import (
	"golfjudge/internal/judge/sandbox"
	"golfjudge/internal/judge/sandbox/suite"
	appErr "golfjudge/pkg/errors"
)

// MaxCodeBytes bounds the size of a submitted source.
const MaxCodeBytes = 64 << 10

// EvaluationTask represents the Kafka payload for evaluation tasks.
type EvaluationTask struct {
	SubmissionID string      `json:"submission_id"`
	Language     string      `json:"language"`
	Code         string      `json:"code"`
	TestSuite    suite.Suite `json:"test_cases"`
	UserID       string      `json:"user_id,omitempty"`
	ProblemID    string      `json:"problem_id,omitempty"`
}

// Validate checks the fields required to start an evaluation.
func (t EvaluationTask) Validate() error {
	if t.Language == "" {
		return appErr.ValidationError("language", "required")
	}
	if t.Code == "" {
		return appErr.ValidationError("code", "required")
	}
	if len(t.Code) > MaxCodeBytes {
		return appErr.New(appErr.CodeTooLarge).WithDetail("max_bytes", MaxCodeBytes)
	}
	return nil
}

// Request converts the task into an engine request.
func (t EvaluationTask) Request() sandbox.Request {
	return sandbox.Request{
		ID:       t.SubmissionID,
		Language: t.Language,
		Code:     t.Code,
		Suite:    t.TestSuite,
	}
}
