//go:build !linux

package engine

import (
	"os"
	"syscall"

	"golfjudge/internal/judge/sandbox/spec"
)

// Resource limits are not applied on this platform; commands still run.
const helperSupported = false

func sysProcAttr() *syscall.SysProcAttr {
	return nil
}

func killProcessTree(p *os.Process) {
	if p != nil {
		_ = p.Kill()
	}
}

func applyLimits(pid int, limits spec.ResourceLimit) error {
	return nil
}

func peakMemoryBytes(state *os.ProcessState) int64 {
	return 0
}
