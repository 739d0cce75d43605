// Package runner compiles a prepared submission and runs it against single
// test cases.
package runner

import (
	"context"

	"golfjudge/internal/judge/sandbox/profile"
	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/sandbox/suite"
)

// Prepared is a submission materialized in its workspace.
type Prepared struct {
	Profile profile.LanguageProfile
	Paths   profile.Paths
}

// CompileResult describes one compile step.
type CompileResult struct {
	OK     bool
	Run    result.RunResult
	Output string
}

// Runner orchestrates compile and run workflows.
type Runner interface {
	Compile(ctx context.Context, prep Prepared) CompileResult
	Run(ctx context.Context, prep Prepared, tc suite.TestCase, testName string) result.ExecutionOutcome
}
