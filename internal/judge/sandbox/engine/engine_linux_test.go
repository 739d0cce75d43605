//go:build linux

package engine

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/sandbox/spec"
)

func TestEngineRun(t *testing.T) {
	eng := NewEngine(Config{HelperPath: "-"})

	cases := []struct {
		name   string
		spec   spec.RunSpec
		verify func(t *testing.T, res result.RunResult)
	}{
		{
			name: "stdin echoed",
			spec: spec.RunSpec{Cmd: []string{"cat"}, Stdin: strings.NewReader("[1, 2, 3]"), Timeout: 5 * time.Second},
			verify: func(t *testing.T, res result.RunResult) {
				if res.ExitCode != 0 || res.Stdout != "[1, 2, 3]" {
					t.Fatalf("unexpected result: %+v", res)
				}
			},
		},
		{
			name: "no stdin reads empty",
			spec: spec.RunSpec{Cmd: []string{"cat"}, Timeout: 5 * time.Second},
			verify: func(t *testing.T, res result.RunResult) {
				if res.ExitCode != 0 || res.Stdout != "" {
					t.Fatalf("unexpected result: %+v", res)
				}
			},
		},
		{
			name: "non-zero exit keeps stderr",
			spec: spec.RunSpec{Cmd: []string{"sh", "-c", "echo boom >&2; exit 3"}, Timeout: 5 * time.Second},
			verify: func(t *testing.T, res result.RunResult) {
				if res.ExitCode != 3 || strings.TrimSpace(res.Stderr) != "boom" {
					t.Fatalf("unexpected result: %+v", res)
				}
				if res.OK() {
					t.Fatal("non-zero exit is not ok")
				}
			},
		},
		{
			name: "missing binary becomes exit -1",
			spec: spec.RunSpec{Cmd: []string{"golfjudge-no-such-binary"}, Timeout: time.Second},
			verify: func(t *testing.T, res result.RunResult) {
				if res.ExitCode != -1 || !strings.Contains(res.Stderr, "golfjudge-no-such-binary") {
					t.Fatalf("unexpected result: %+v", res)
				}
			},
		},
		{
			name: "empty command",
			spec: spec.RunSpec{},
			verify: func(t *testing.T, res result.RunResult) {
				if res.ExitCode != -1 || res.Stderr == "" {
					t.Fatalf("unexpected result: %+v", res)
				}
			},
		},
		{
			name: "working directory honored",
			spec: spec.RunSpec{Cmd: []string{"pwd"}, Dir: os.TempDir(), Timeout: 5 * time.Second},
			verify: func(t *testing.T, res result.RunResult) {
				want, _ := filepath.EvalSymlinks(os.TempDir())
				got, _ := filepath.EvalSymlinks(strings.TrimSpace(res.Stdout))
				if got != want {
					t.Fatalf("pwd = %q, want %q", got, want)
				}
			},
		},
		{
			name: "environment replaced",
			spec: spec.RunSpec{Cmd: []string{"/bin/sh", "-c", "echo $GOLF_MARK"}, Env: []string{"GOLF_MARK=yes"}, Timeout: 5 * time.Second},
			verify: func(t *testing.T, res result.RunResult) {
				if strings.TrimSpace(res.Stdout) != "yes" {
					t.Fatalf("stdout = %q", res.Stdout)
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.verify(t, eng.Run(context.Background(), tc.spec))
		})
	}
}

func TestEngineTimeoutKillsProcessGroup(t *testing.T) {
	eng := NewEngine(Config{HelperPath: "-"})
	pidFile := filepath.Join(t.TempDir(), "child.pid")

	start := time.Now()
	res := eng.Run(context.Background(), spec.RunSpec{
		Cmd:     []string{"sh", "-c", "sleep 30 & echo $! > " + pidFile + "; wait"},
		Timeout: 300 * time.Millisecond,
	})
	if !res.TimedOut || res.ExitCode != -1 || res.Stderr != result.TimeoutMessage || res.Stdout != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("timeout took %v", elapsed)
	}

	data, err := os.ReadFile(pidFile)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		t.Fatalf("parse pid: %v", err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for {
		err := syscall.Kill(pid, 0)
		if errors.Is(err, syscall.ESRCH) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("background child %d still alive", pid)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestEngineContextCancel(t *testing.T) {
	eng := NewEngine(Config{HelperPath: "-"})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()
	res := eng.Run(ctx, spec.RunSpec{Cmd: []string{"sleep", "30"}, Timeout: 10 * time.Second})
	if res.ExitCode != -1 || res.TimedOut || !res.Cancelled || res.Stderr != result.CancelledMessage {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestEngineOutputCap(t *testing.T) {
	eng := NewEngine(Config{HelperPath: "-", OutputLimitBytes: 16})
	res := eng.Run(context.Background(), spec.RunSpec{
		Cmd:     []string{"head", "-c", "4096", "/dev/zero"},
		Timeout: 5 * time.Second,
	})
	if res.ExitCode != 0 {
		t.Fatalf("unexpected exit: %+v", res)
	}
	if len(res.Stdout) != 16 || !res.OutputTruncated {
		t.Fatalf("stdout len = %d truncated = %v", len(res.Stdout), res.OutputTruncated)
	}
}

func TestEngineReportsMemory(t *testing.T) {
	eng := NewEngine(Config{HelperPath: "-"})
	res := eng.Run(context.Background(), spec.RunSpec{Cmd: []string{"true"}, Timeout: 5 * time.Second})
	if res.ExitCode != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.MemoryBytes < 0 {
		t.Fatalf("memory = %d", res.MemoryBytes)
	}
}

func TestEngineHelperAppliesLimits(t *testing.T) {
	helper := buildSandboxHelper(t)
	eng := NewEngine(Config{HelperPath: helper})

	res := eng.Run(context.Background(), spec.RunSpec{
		Cmd:     []string{"sh", "-c", "ulimit -v; ulimit -t"},
		Stdin:   strings.NewReader("ignored"),
		Timeout: 5 * time.Second,
		Limits:  spec.ResourceLimit{MemoryBytes: spec.DefaultMemoryBytes, CPUTimeSeconds: 7},
	})
	if res.ExitCode != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	lines := strings.Fields(res.Stdout)
	if len(lines) != 2 || lines[0] != "262144" || lines[1] != "7" {
		t.Fatalf("limits not applied: %q", res.Stdout)
	}
}

func TestEngineHelperPassesStdin(t *testing.T) {
	helper := buildSandboxHelper(t)
	eng := NewEngine(Config{HelperPath: helper})

	res := eng.Run(context.Background(), spec.RunSpec{
		Cmd:     []string{"cat"},
		Stdin:   strings.NewReader(`{"a": 1}`),
		Timeout: 5 * time.Second,
		Limits:  spec.DefaultLimits(),
	})
	if res.ExitCode != 0 || res.Stdout != `{"a": 1}` {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func buildSandboxHelper(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("go"); err != nil {
		t.Skip("go toolchain not available")
	}
	helperPath := filepath.Join(t.TempDir(), "sandbox-init")
	cmd := exec.Command("go", "build", "-o", helperPath, "golfjudge/cmd/sandbox-init")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Skipf("build helper failed: %v: %s", err, string(output))
	}
	return helperPath
}
