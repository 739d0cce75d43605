//go:build linux

package main

import (
	"strings"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	in := `{"path":"/usr/bin/python3","args":["python3","solution.py"],"limits":{"memory_bytes":268435456,"cpu_time_seconds":30,"processes":10}}`
	req, err := decodeRequest(strings.NewReader(in))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Path != "/usr/bin/python3" || len(req.Args) != 2 {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.Limits.MemoryBytes != 268435456 || req.Limits.CPUTimeSeconds != 30 || req.Limits.Processes != 10 {
		t.Fatalf("unexpected limits: %+v", req.Limits)
	}
}

func TestDecodeRequestRejectsGarbage(t *testing.T) {
	if _, err := decodeRequest(strings.NewReader("not json")); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestApplyRlimitsSkipsZero(t *testing.T) {
	if errs := applyRlimits(resourceLimit{}); len(errs) != 0 {
		t.Fatalf("zero limits should be a no-op, got %v", errs)
	}
}
