// Package spec defines run specs and resource limits.
package spec

import (
	"io"
	"time"
)

const (
	DefaultMemoryBytes    int64 = 256 * 1024 * 1024
	DefaultCPUTimeSeconds int64 = 30
	DefaultProcesses      int64 = 10
)

// ResourceLimit describes the per-process ceilings applied before user code
// starts. A zero field is not applied.
type ResourceLimit struct {
	MemoryBytes    int64 `json:"memory_bytes" yaml:"memoryBytes"`
	CPUTimeSeconds int64 `json:"cpu_time_seconds" yaml:"cpuTimeSeconds"`
	Processes      int64 `json:"processes" yaml:"processes"`
}

// DefaultLimits returns the ceilings used for submission code.
func DefaultLimits() ResourceLimit {
	return ResourceLimit{
		MemoryBytes:    DefaultMemoryBytes,
		CPUTimeSeconds: DefaultCPUTimeSeconds,
		Processes:      DefaultProcesses,
	}
}

// IsZero reports whether no limit is set.
func (l ResourceLimit) IsZero() bool {
	return l.MemoryBytes <= 0 && l.CPUTimeSeconds <= 0 && l.Processes <= 0
}

// RunSpec describes one process execution.
type RunSpec struct {
	Cmd []string
	Dir string
	// Env replaces the environment when non-nil.
	Env []string
	// Stdin is streamed to the child; nil attaches the null device.
	Stdin   io.Reader
	Timeout time.Duration
	Limits  ResourceLimit
}
