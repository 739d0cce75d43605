package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golfjudge/internal/judge/sandbox/engine"
	"golfjudge/internal/judge/sandbox/observer"
	"golfjudge/internal/judge/sandbox/profile"
	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/sandbox/spec"
	"golfjudge/internal/judge/sandbox/suite"
	"golfjudge/internal/judge/sandbox/value"
	"golfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// DefaultRunner executes compile and test steps through an engine.
type DefaultRunner struct {
	eng     engine.Engine
	metrics observer.MetricsRecorder
}

// NewRunner creates a runner without metrics.
func NewRunner(eng engine.Engine) *DefaultRunner {
	return NewRunnerWithObserver(eng, nil)
}

// NewRunnerWithObserver creates a runner that reports to metrics.
func NewRunnerWithObserver(eng engine.Engine, metrics observer.MetricsRecorder) *DefaultRunner {
	if metrics == nil {
		metrics = observer.NoopMetricsRecorder{}
	}
	return &DefaultRunner{eng: eng, metrics: metrics}
}

// Compile runs the profile's compile command with the fixed compile timeout.
func (r *DefaultRunner) Compile(ctx context.Context, prep Prepared) CompileResult {
	cmd := prep.Profile.CompileCommand(prep.Paths)
	if len(cmd) == 0 {
		return CompileResult{OK: true}
	}
	res := r.eng.Run(ctx, spec.RunSpec{
		Cmd:     cmd,
		Dir:     prep.Paths.Dir,
		Env:     prep.Profile.Environ(prep.Paths),
		Timeout: profile.CompileTimeout,
		Limits:  prep.Profile.CompileLimits,
	})
	ok := res.OK()
	r.metrics.ObserveCompile(ctx, prep.Profile.ID, ok, res.Duration, res.MemoryBytes)
	if !ok {
		logger.Info(ctx, "compile failed", zap.Int("exit_code", res.ExitCode), zap.Bool("timed_out", res.TimedOut))
	}
	return CompileResult{OK: ok, Run: res, Output: compilerOutput(res)}
}

// compilerOutput prefers stderr; some toolchains report errors on stdout.
func compilerOutput(res result.RunResult) string {
	if strings.TrimSpace(res.Stderr) != "" {
		return res.Stderr
	}
	return res.Stdout
}

// Run executes one test case and classifies the outcome. It never panics.
func (r *DefaultRunner) Run(ctx context.Context, prep Prepared, tc suite.TestCase, testName string) (outcome result.ExecutionOutcome) {
	outcome.TestName = testName
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error(ctx, "test case runner panic", zap.String("test", testName), zap.Any("panic", rec))
			outcome.Status = result.StatusError
			outcome.Error = fmt.Sprintf("internal error: %v", rec)
		}
		r.metrics.ObserveRun(ctx, prep.Profile.ID, string(outcome.Status),
			secondsToDuration(outcome.ExecutionTimeSeconds), outcome.MemoryUsageBytes)
	}()

	if len(bytes.TrimSpace(tc.Output)) == 0 {
		outcome.Status = result.StatusError
		outcome.Error = `test case has no "output"`
		return outcome
	}
	expected, err := value.ParseJSON(tc.Output)
	if err != nil {
		outcome.Status = result.StatusError
		outcome.Error = fmt.Sprintf("invalid expected output: %v", err)
		return outcome
	}

	res := r.eng.Run(ctx, spec.RunSpec{
		Cmd:     prep.Profile.RunCommand(prep.Paths),
		Dir:     prep.Paths.Dir,
		Env:     prep.Profile.Environ(prep.Paths),
		Stdin:   bytes.NewReader(inputPayload(tc.Input)),
		Timeout: prep.Profile.Timeout,
		Limits:  prep.Profile.Limits,
	})
	outcome.ExecutionTimeSeconds = res.Duration.Seconds()
	outcome.MemoryUsageBytes = res.MemoryBytes

	if res.Cancelled {
		outcome.Status = result.StatusError
		outcome.Error = result.CancelledMessage
		return outcome
	}

	if res.ExitCode != 0 || res.TimedOut {
		outcome.Status = result.StatusFailed
		outcome.Error = failureReason(res)
		return outcome
	}
	if strings.TrimSpace(res.Stdout) == "" {
		outcome.Status = result.StatusFailed
		outcome.Error = result.NoOutputMessage
		return outcome
	}

	actual, mode := value.ParseOutput(res.Stdout)
	if value.Equal(actual, expected) {
		outcome.Status = result.StatusPassed
		return outcome
	}
	outcome.Status = result.StatusFailed
	outcome.Expected = compact(tc.Output)
	outcome.Actual = value.Marshal(actual)
	logger.Debug(ctx, "output mismatch", zap.String("test", testName), zap.Stringer("parse_mode", mode))
	return outcome
}

// inputPayload is the stdin text for a case; a missing input is null.
func inputPayload(input json.RawMessage) []byte {
	if len(bytes.TrimSpace(input)) == 0 {
		return []byte("null")
	}
	return input
}

// failureReason is stderr, or the harness error object when stderr is empty.
func failureReason(res result.RunResult) string {
	if msg := strings.TrimSpace(res.Stderr); msg != "" {
		return res.Stderr
	}
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(res.Stdout)), &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return fmt.Sprintf("process exited with code %d", res.ExitCode)
}

func compact(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return raw
	}
	return buf.Bytes()
}
