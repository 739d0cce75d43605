// Package result defines execution and evaluation results.
package result

import (
	"encoding/json"
	"time"
)

// Status is the outcome of a test case or a whole evaluation.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
	StatusError  Status = "error"
)

const (
	TimeoutMessage   = "Execution timeout"
	CancelledMessage = "Execution cancelled"
	NoOutputMessage  = "No output produced"
)

// RunResult captures one process execution.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// MemoryBytes is the peak resident size; 0 means unknown.
	MemoryBytes int64
	Duration    time.Duration
	TimedOut    bool
	// Cancelled means the caller's context ended while the process ran.
	Cancelled       bool
	OutputTruncated bool
}

// OK reports a clean exit.
func (r RunResult) OK() bool {
	return r.ExitCode == 0 && !r.TimedOut
}

// ExecutionOutcome is produced once per attempted test case.
type ExecutionOutcome struct {
	TestName             string          `json:"test_name"`
	Status               Status          `json:"status"`
	ExecutionTimeSeconds float64         `json:"execution_time"`
	MemoryUsageBytes     int64           `json:"memory_usage"`
	Error                string          `json:"error,omitempty"`
	Expected             json.RawMessage `json:"expected,omitempty"`
	Actual               json.RawMessage `json:"actual,omitempty"`
}

// EvaluationResult is the verdict for one submission.
type EvaluationResult struct {
	Status                    Status             `json:"status"`
	TestResults               []ExecutionOutcome `json:"test_results"`
	TotalExecutionTimeSeconds float64            `json:"total_execution_time"`
	MaxMemoryUsageBytes       int64              `json:"max_memory_usage"`
	ErrorMessage              string             `json:"error_message,omitempty"`
}

// ErrorResult builds a terminal error result with no test outcomes.
func ErrorResult(msg string) EvaluationResult {
	return EvaluationResult{
		Status:       StatusError,
		TestResults:  []ExecutionOutcome{},
		ErrorMessage: msg,
	}
}

// Passed reports whether every attempted case passed.
func (r EvaluationResult) Passed() bool {
	return r.Status == StatusPassed
}

// Add folds one outcome into the aggregate timing and memory figures.
func (r *EvaluationResult) Add(outcome ExecutionOutcome) {
	r.TestResults = append(r.TestResults, outcome)
	r.TotalExecutionTimeSeconds += outcome.ExecutionTimeSeconds
	if outcome.MemoryUsageBytes > r.MaxMemoryUsageBytes {
		r.MaxMemoryUsageBytes = outcome.MemoryUsageBytes
	}
}
