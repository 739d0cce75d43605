package engine

import (
	"encoding/json"
	"io"

	"golfjudge/internal/judge/sandbox/spec"
)

// helperRequest is read by sandbox-init from fd 3.
type helperRequest struct {
	Path   string             `json:"path"`
	Args   []string           `json:"args"`
	Limits spec.ResourceLimit `json:"limits"`
}

// helperRequestFD is the descriptor number of the first ExtraFiles entry.
const helperRequestFD = 3

func writeRequest(w io.WriteCloser, req helperRequest) {
	_ = json.NewEncoder(w).Encode(req)
	_ = w.Close()
}
