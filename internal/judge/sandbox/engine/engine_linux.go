//go:build linux

package engine

import (
	"fmt"
	"os"
	"syscall"

	"golfjudge/internal/judge/sandbox/spec"

	"golang.org/x/sys/unix"
)

const helperSupported = true

func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}
}

// killProcessTree kills the whole process group so forked children die too.
func killProcessTree(p *os.Process) {
	if p == nil || p.Pid <= 0 {
		return
	}
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		_ = p.Kill()
	}
}

// applyLimits sets rlimits on a running process. It is the fallback when no
// helper is installed, so user code may run briefly before limits apply.
func applyLimits(pid int, limits spec.ResourceLimit) error {
	var firstErr error
	set := func(resource int, value uint64, name string) {
		lim := unix.Rlimit{Cur: value, Max: value}
		if err := unix.Prlimit(pid, resource, &lim, nil); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("prlimit %s: %w", name, err)
		}
	}
	if limits.MemoryBytes > 0 {
		set(unix.RLIMIT_AS, uint64(limits.MemoryBytes), "as")
	}
	if limits.CPUTimeSeconds > 0 {
		set(unix.RLIMIT_CPU, uint64(limits.CPUTimeSeconds), "cpu")
	}
	if limits.Processes > 0 {
		set(unix.RLIMIT_NPROC, uint64(limits.Processes), "nproc")
	}
	return firstErr
}

// peakMemoryBytes reads ru_maxrss, reported in kilobytes on Linux.
func peakMemoryBytes(state *os.ProcessState) int64 {
	if state == nil {
		return 0
	}
	usage, ok := state.SysUsage().(*syscall.Rusage)
	if !ok || usage == nil {
		return 0
	}
	return usage.Maxrss * 1024
}
