package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNilLoggerIsNoop(t *testing.T) {
	SetLogger(nil)
	Info(context.Background(), "dropped")
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func TestEvaluationFieldsFromContext(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	ctx := WithEvaluation(context.Background(), "eval-1", "python")
	Warn(ctx, "slow test", zap.Int("case", 3))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["evaluation_id"] != "eval-1" || fields["language"] != "python" {
		t.Fatalf("fields = %v", fields)
	}
	if fields["case"] != int64(3) {
		t.Fatalf("case field = %v", fields["case"])
	}
}

func TestDisabledLevelIsDropped(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	Debug(WithEvaluation(context.Background(), "eval-2", ""), "hidden")
	Error(context.Background(), "shown")
	if logs.Len() != 1 || logs.All()[0].Message != "shown" {
		t.Fatalf("unexpected entries: %v", logs.All())
	}
	if _, ok := logs.All()[0].ContextMap()["evaluation_id"]; ok {
		t.Fatal("context without an evaluation should not add evaluation_id")
	}
}

func TestNewLoggerRejectsBadLevel(t *testing.T) {
	if _, err := NewLogger(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestNewLoggerFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eval.log")
	if err := Init(Config{Level: "debug", Format: "json", OutputPath: path}); err != nil {
		t.Fatalf("init logger: %v", err)
	}
	defer SetLogger(nil)

	Info(WithEvaluation(context.Background(), "eval-3", ""), "hello")
	_ = Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) || !strings.Contains(string(data), `"evaluation_id":"eval-3"`) {
		t.Fatalf("unexpected log output: %s", data)
	}
}
