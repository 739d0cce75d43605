package sandbox

import (
	"context"
	"fmt"
	"os"
	"time"

	"golfjudge/internal/judge/sandbox/observer"
	"golfjudge/internal/judge/sandbox/profile"
	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/sandbox/runner"
	"golfjudge/internal/judge/sandbox/suite"
	"golfjudge/internal/judge/sandbox/wrapper"
	"golfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	unsupportedPrefix = "Unsupported language: "
	compileFailPrefix = "Compilation failed: "
)

// Config controls where workspaces are created.
type Config struct {
	// WorkRoot is the parent of per-evaluation workspaces; empty means the
	// system temp directory.
	WorkRoot string `yaml:"workRoot"`
}

// Evaluator runs the wrap, compile and test workflow for one submission at
// a time per call. Concurrent calls share only the read-only registry.
type Evaluator struct {
	cfg      Config
	registry *profile.Registry
	runner   runner.Runner
	metrics  observer.MetricsRecorder
	reporter ProgressReporter
}

// NewEvaluator creates an evaluator with required dependencies.
func NewEvaluator(cfg Config, registry *profile.Registry, r runner.Runner) *Evaluator {
	return &Evaluator{
		cfg:      cfg,
		registry: registry,
		runner:   r,
		metrics:  observer.NoopMetricsRecorder{},
	}
}

// SetMetrics injects a metrics recorder for whole evaluations.
func (e *Evaluator) SetMetrics(m observer.MetricsRecorder) {
	if m != nil {
		e.metrics = m
	}
}

// SetProgressReporter injects a reporter for intermediate progress.
func (e *Evaluator) SetProgressReporter(r ProgressReporter) {
	e.reporter = r
}

// Evaluate runs the submission and folds every outcome into one result.
func (e *Evaluator) Evaluate(ctx context.Context, req Request) (res result.EvaluationResult) {
	start := time.Now()
	ctx = logger.WithEvaluation(ctx, req.ID, req.Language)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "evaluation panic", zap.Any("panic", r), zap.Stack("stack"))
			res.Status = result.StatusError
			res.ErrorMessage = fmt.Sprintf("Internal error: %v", r)
		}
		if res.TestResults == nil {
			res.TestResults = []result.ExecutionOutcome{}
		}
		e.metrics.ObserveEvaluation(ctx, req.Language, string(res.Status), time.Since(start))
		logger.Info(ctx, "evaluation finished",
			zap.String("status", string(res.Status)),
			zap.Int("tests", len(res.TestResults)),
			zap.Duration("elapsed", time.Since(start)))
	}()

	if e.registry == nil || e.runner == nil {
		return result.ErrorResult("Internal error: evaluator dependencies are not initialized")
	}
	prof, err := e.registry.Get(req.Language)
	if err != nil {
		return result.ErrorResult(unsupportedPrefix + req.Language)
	}

	program, err := wrapper.Wrap(prof.ID, req.Code, prof.EntryPoint)
	if err != nil {
		return result.ErrorResult(err.Error())
	}

	dir, err := os.MkdirTemp(e.cfg.WorkRoot, "eval-")
	if err != nil {
		return result.ErrorResult(fmt.Sprintf("Failed to prepare workspace: %v", err))
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn(ctx, "remove workspace failed", zap.String("dir", dir), zap.Error(err))
		}
	}()

	prep := runner.Prepared{Profile: prof, Paths: prof.PathsFor(dir)}
	if err := os.WriteFile(prep.Paths.Source, []byte(program), 0644); err != nil {
		return result.ErrorResult(fmt.Sprintf("Failed to write source: %v", err))
	}

	total := req.Suite.Len()
	if prof.Compiled() {
		e.report(ctx, req, PhaseCompiling, total, 0)
		compiled := e.runner.Compile(ctx, prep)
		if !compiled.OK {
			return result.ErrorResult(compileFailPrefix + compiled.Output)
		}
	}

	res = result.EvaluationResult{Status: result.StatusPassed, TestResults: make([]result.ExecutionOutcome, 0, total)}
	e.report(ctx, req, PhaseRunning, total, 0)
	for _, group := range req.Suite.Groups {
		for i, tc := range group.Cases {
			if err := ctx.Err(); err != nil {
				res.Status = result.StatusError
				res.ErrorMessage = result.CancelledMessage
				logger.Info(ctx, "evaluation cancelled between cases", zap.Error(err))
				return res
			}
			outcome := e.runner.Run(ctx, prep, tc, suite.CaseName(group.Name, i))
			res.Add(outcome)
			e.report(ctx, req, PhaseRunning, total, len(res.TestResults))
			if outcome.Status != result.StatusPassed {
				res.Status = outcome.Status
				if ctx.Err() != nil {
					res.Status = result.StatusError
					res.ErrorMessage = result.CancelledMessage
				}
				return res
			}
		}
	}
	return res
}

func (e *Evaluator) report(ctx context.Context, req Request, phase Phase, total, done int) {
	if e.reporter == nil {
		return
	}
	err := e.reporter.ReportProgress(ctx, ProgressUpdate{
		EvaluationID: req.ID,
		Language:     req.Language,
		Phase:        phase,
		TotalTests:   total,
		DoneTests:    done,
	})
	if err != nil {
		logger.Warn(ctx, "report progress failed", zap.Error(err))
	}
}
