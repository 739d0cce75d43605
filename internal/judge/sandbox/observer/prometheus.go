package observer

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder exports sandbox and dispatcher metrics.
type PrometheusRecorder struct {
	compiles      *prometheus.CounterVec
	runs          *prometheus.CounterVec
	evaluations   *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	memory        *prometheus.HistogramVec
	queueDepth    prometheus.Gauge
	activeWorkers prometheus.Gauge
	rateLimited   prometheus.Counter
}

// NewPrometheusRecorder registers the collectors on reg.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	f := promauto.With(reg)
	return &PrometheusRecorder{
		compiles: f.NewCounterVec(prometheus.CounterOpts{
			Name: "golfjudge_compiles_total",
			Help: "Total number of compile steps",
		}, []string{"language", "ok"}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "golfjudge_test_runs_total",
			Help: "Total number of executed test cases",
		}, []string{"language", "status"}),
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "golfjudge_evaluations_total",
			Help: "Total number of finished evaluations",
		}, []string{"language", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "golfjudge_duration_ms",
			Help:    "Wall time per phase in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"language", "phase"}),
		memory: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "golfjudge_memory_usage_kb",
			Help:    "Peak memory usage per test case in KB",
			Buckets: []float64{1024, 4096, 16384, 65536, 131072, 262144},
		}, []string{"language"}),
		queueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: "golfjudge_queue_depth",
			Help: "Current number of evaluations waiting for a worker",
		}),
		activeWorkers: f.NewGauge(prometheus.GaugeOpts{
			Name: "golfjudge_active_workers",
			Help: "Number of workers currently evaluating",
		}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Name: "golfjudge_rate_limit_waits_total",
			Help: "Number of evaluations delayed by the intake rate limiter",
		}),
	}
}

func (p *PrometheusRecorder) ObserveCompile(ctx context.Context, languageID string, ok bool, elapsed time.Duration, memoryBytes int64) {
	p.compiles.WithLabelValues(languageID, strconv.FormatBool(ok)).Inc()
	p.duration.WithLabelValues(languageID, "compile").Observe(ms(elapsed))
}

func (p *PrometheusRecorder) ObserveRun(ctx context.Context, languageID string, status string, elapsed time.Duration, memoryBytes int64) {
	p.runs.WithLabelValues(languageID, status).Inc()
	p.duration.WithLabelValues(languageID, "run").Observe(ms(elapsed))
	if memoryBytes > 0 {
		p.memory.WithLabelValues(languageID).Observe(float64(memoryBytes) / 1024)
	}
}

func (p *PrometheusRecorder) ObserveEvaluation(ctx context.Context, languageID string, status string, elapsed time.Duration) {
	p.evaluations.WithLabelValues(languageID, status).Inc()
	p.duration.WithLabelValues(languageID, "total").Observe(ms(elapsed))
}

// SetQueueDepth reports the number of queued evaluations.
func (p *PrometheusRecorder) SetQueueDepth(n int) {
	p.queueDepth.Set(float64(n))
}

// SetActiveWorkers reports the number of busy workers.
func (p *PrometheusRecorder) SetActiveWorkers(n int) {
	p.activeWorkers.Set(float64(n))
}

// RateLimited counts one throttled intake.
func (p *PrometheusRecorder) RateLimited() {
	p.rateLimited.Inc()
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
