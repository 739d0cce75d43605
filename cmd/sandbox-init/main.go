//go:build linux

// Command sandbox-init applies resource limits to itself and then replaces
// its image with the requested command. The request arrives as JSON on fd 3
// so stdin, stdout and stderr stay attached to the child untouched.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

const requestFD = 3

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "sandbox-init:", err.Error())
		os.Exit(127)
	}
}

func run() error {
	f := os.NewFile(requestFD, "request")
	if f == nil {
		return fmt.Errorf("request descriptor missing")
	}
	req, err := decodeRequest(f)
	_ = f.Close()
	if err != nil {
		return err
	}
	if req.Path == "" || len(req.Args) == 0 {
		return fmt.Errorf("command is required")
	}

	// Limits are best-effort; a refused limit never blocks execution.
	applyRlimits(req.Limits)

	return unix.Exec(req.Path, req.Args, os.Environ())
}

func decodeRequest(r io.Reader) (initRequest, error) {
	var req initRequest
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return initRequest{}, fmt.Errorf("decode request: %w", err)
	}
	return req, nil
}

func applyRlimits(limits resourceLimit) []error {
	var errs []error
	set := func(resource int, value int64, name string) {
		if value <= 0 {
			return
		}
		v := uint64(value)
		if err := unix.Setrlimit(resource, &unix.Rlimit{Cur: v, Max: v}); err != nil {
			errs = append(errs, fmt.Errorf("set rlimit %s: %w", name, err))
		}
	}
	set(unix.RLIMIT_AS, limits.MemoryBytes, "as")
	set(unix.RLIMIT_CPU, limits.CPUTimeSeconds, "cpu")
	set(unix.RLIMIT_NPROC, limits.Processes, "nproc")
	return errs
}

type initRequest struct {
	Path   string        `json:"path"`
	Args   []string      `json:"args"`
	Limits resourceLimit `json:"limits"`
}

type resourceLimit struct {
	MemoryBytes    int64 `json:"memory_bytes"`
	CPUTimeSeconds int64 `json:"cpu_time_seconds"`
	Processes      int64 `json:"processes"`
}
