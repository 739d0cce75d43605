// Package sandbox evaluates one submission against its test suite.
package sandbox

import (
	"context"

	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/sandbox/suite"
)

// Service is the entrypoint used by the judge layer. Evaluate always returns
// a terminal result and never an error.
type Service interface {
	Evaluate(ctx context.Context, req Request) result.EvaluationResult
}

// Request is one (code, language, test suite) triple.
type Request struct {
	// ID only tags logs and progress updates.
	ID       string
	Language string
	Code     string
	Suite    suite.Suite
}
