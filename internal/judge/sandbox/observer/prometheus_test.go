package observer

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusRecorder(reg)
	ctx := context.Background()

	rec.ObserveCompile(ctx, "cpp", true, 800*time.Millisecond, 0)
	rec.ObserveRun(ctx, "cpp", "passed", 20*time.Millisecond, 4<<20)
	rec.ObserveRun(ctx, "cpp", "passed", 25*time.Millisecond, 0)
	rec.ObserveRun(ctx, "cpp", "failed", 30*time.Millisecond, 1<<20)
	rec.ObserveEvaluation(ctx, "cpp", "failed", time.Second)
	rec.SetQueueDepth(3)
	rec.SetActiveWorkers(2)
	rec.RateLimited()

	if got := testutil.ToFloat64(rec.compiles.WithLabelValues("cpp", "true")); got != 1 {
		t.Fatalf("compiles = %v", got)
	}
	if got := testutil.ToFloat64(rec.runs.WithLabelValues("cpp", "passed")); got != 2 {
		t.Fatalf("passed runs = %v", got)
	}
	if got := testutil.ToFloat64(rec.evaluations.WithLabelValues("cpp", "failed")); got != 1 {
		t.Fatalf("evaluations = %v", got)
	}
	if got := testutil.ToFloat64(rec.queueDepth); got != 3 {
		t.Fatalf("queue depth = %v", got)
	}
	if got := testutil.ToFloat64(rec.activeWorkers); got != 2 {
		t.Fatalf("active workers = %v", got)
	}
	if got := testutil.ToFloat64(rec.rateLimited); got != 1 {
		t.Fatalf("rate limited = %v", got)
	}
	if n := testutil.CollectAndCount(rec.memory); n != 1 {
		t.Fatalf("memory series = %d", n)
	}
}

func TestNoopRecorder(t *testing.T) {
	var rec MetricsRecorder = NoopMetricsRecorder{}
	rec.ObserveCompile(context.Background(), "go", false, 0, 0)
	rec.ObserveRun(context.Background(), "go", "error", 0, 0)
	rec.ObserveEvaluation(context.Background(), "go", "error", 0)
}
