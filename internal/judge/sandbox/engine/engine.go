// Package engine runs one external process under a wall-clock watchdog and
// best-effort resource limits.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync/atomic"
	"time"

	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/sandbox/spec"
	"golfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

// Engine executes a RunSpec. Every failure is folded into the RunResult.
type Engine interface {
	Run(ctx context.Context, runSpec spec.RunSpec) result.RunResult
}

type processEngine struct {
	cfg        Config
	helperPath string
}

// NewEngine creates the command runner for the current platform.
func NewEngine(cfg Config) Engine {
	cfg = cfg.withDefaults()
	e := &processEngine{cfg: cfg}
	e.helperPath = resolveHelper(cfg.HelperPath)
	if e.helperPath == "" {
		logger.Warn(context.Background(), "sandbox helper unavailable, limits applied after start",
			zap.String("helper", cfg.HelperPath))
	}
	return e
}

func resolveHelper(path string) string {
	if path == "-" || !helperSupported {
		return ""
	}
	if path == "" {
		path = defaultHelperName
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return ""
	}
	return resolved
}

func (e *processEngine) Run(ctx context.Context, runSpec spec.RunSpec) (res result.RunResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "command runner panic", zap.Any("panic", r))
			res = spawnFailure(fmt.Errorf("command runner panic: %v", r))
		}
		res.Duration = time.Since(start)
	}()

	if len(runSpec.Cmd) == 0 {
		return spawnFailure(errors.New("command is required"))
	}
	path, err := exec.LookPath(runSpec.Cmd[0])
	if err != nil {
		return spawnFailure(err)
	}

	cmd, requestWriter, err := e.buildCommand(path, runSpec)
	if err != nil {
		return spawnFailure(err)
	}
	stdout := newCappedBuffer(e.cfg.OutputLimitBytes)
	stderr := newCappedBuffer(e.cfg.OutputLimitBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		closeExtraFiles(cmd)
		if requestWriter != nil {
			_ = requestWriter.Close()
		}
		return spawnFailure(err)
	}
	closeExtraFiles(cmd)
	if requestWriter != nil {
		go writeRequest(requestWriter, helperRequest{Path: path, Args: runSpec.Cmd, Limits: runSpec.Limits})
	} else if !runSpec.Limits.IsZero() {
		if err := applyLimits(cmd.Process.Pid, runSpec.Limits); err != nil {
			logger.Warn(ctx, "apply resource limits failed", zap.Int("pid", cmd.Process.Pid), zap.Error(err))
		}
	}

	var timedOut, cancelled atomic.Bool
	done := make(chan struct{})
	go func() {
		var wallTimer <-chan time.Time
		if runSpec.Timeout > 0 {
			timer := time.NewTimer(runSpec.Timeout)
			defer timer.Stop()
			wallTimer = timer.C
		}
		select {
		case <-wallTimer:
			timedOut.Store(true)
			killProcessTree(cmd.Process)
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				timedOut.Store(true)
			} else {
				cancelled.Store(true)
			}
			killProcessTree(cmd.Process)
		case <-done:
		}
	}()

	waitErr := cmd.Wait()
	close(done)

	res = result.RunResult{
		ExitCode:        exitCodeFromErr(waitErr, cmd.ProcessState),
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		MemoryBytes:     peakMemoryBytes(cmd.ProcessState),
		OutputTruncated: stdout.Truncated() || stderr.Truncated(),
	}
	if res.ExitCode != 0 && res.Stderr == "" && cmd.ProcessState != nil {
		res.Stderr = cmd.ProcessState.String()
	}
	switch {
	case timedOut.Load():
		res.ExitCode = -1
		res.Stdout = ""
		res.Stderr = result.TimeoutMessage
		res.TimedOut = true
	case cancelled.Load():
		res.ExitCode = -1
		res.Stdout = ""
		res.Stderr = result.CancelledMessage
		res.Cancelled = true
	}
	if waitErr != nil && !errors.As(waitErr, new(*exec.ExitError)) && !res.TimedOut {
		logger.Debug(ctx, "command wait returned", zap.Error(waitErr))
	}
	return res
}

// buildCommand wraps the target in the helper when one is installed. The
// returned writer, if any, must receive the helper request after Start.
func (e *processEngine) buildCommand(path string, runSpec spec.RunSpec) (*exec.Cmd, *os.File, error) {
	var cmd *exec.Cmd
	var requestWriter *os.File
	if e.helperPath != "" {
		r, w, err := os.Pipe()
		if err != nil {
			return nil, nil, fmt.Errorf("create helper pipe: %w", err)
		}
		cmd = exec.Command(e.helperPath)
		cmd.ExtraFiles = []*os.File{r}
		requestWriter = w
	} else {
		cmd = exec.Command(path, runSpec.Cmd[1:]...)
	}
	cmd.Dir = runSpec.Dir
	cmd.Env = runSpec.Env
	cmd.Stdin = runSpec.Stdin
	cmd.SysProcAttr = sysProcAttr()
	cmd.WaitDelay = e.cfg.WaitDelay
	return cmd, requestWriter, nil
}

func closeExtraFiles(cmd *exec.Cmd) {
	for _, f := range cmd.ExtraFiles {
		_ = f.Close()
	}
}

func spawnFailure(err error) result.RunResult {
	return result.RunResult{ExitCode: -1, Stderr: err.Error()}
}

func exitCodeFromErr(err error, state *os.ProcessState) int {
	if state != nil {
		return state.ExitCode()
	}
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
