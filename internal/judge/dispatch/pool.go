// Package dispatch queues evaluations and runs them on a bounded set of
// workers. Each submitted task receives exactly one result.
package dispatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golfjudge/internal/judge/sandbox"
	"golfjudge/internal/judge/sandbox/result"
	appErr "golfjudge/pkg/errors"
	"golfjudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const stoppedMessage = "Evaluation pool stopped"

// Config sizes the pool.
type Config struct {
	Workers       int           `yaml:"workers"`
	QueueSize     int           `yaml:"queueSize"`
	RatePerSecond float64       `yaml:"ratePerSecond"`
	Burst         int           `yaml:"burst"`
	Timeout       time.Duration `yaml:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.QueueSize <= 0 {
		c.QueueSize = c.Workers * 4
	}
	if c.Burst <= 0 {
		c.Burst = c.Workers
	}
	return c
}

// Metrics observes pool occupancy.
type Metrics interface {
	SetQueueDepth(n int)
	SetActiveWorkers(n int)
	RateLimited()
}

type noopMetrics struct{}

func (noopMetrics) SetQueueDepth(int)    {}
func (noopMetrics) SetActiveWorkers(int) {}
func (noopMetrics) RateLimited()         {}

// Task is one queued evaluation.
type Task struct {
	Request    sandbox.Request
	EnqueuedAt time.Time
}

// Result pairs a task with its terminal evaluation.
type Result struct {
	Task       Task
	Evaluation result.EvaluationResult
	Waited     time.Duration
}

type job struct {
	ctx  context.Context
	task Task
	out  chan Result
}

// Pool runs evaluations concurrently across tasks. A single evaluation is
// never split between workers.
type Pool struct {
	cfg       Config
	evaluator sandbox.Service
	limiter   *rate.Limiter
	metrics   Metrics
	jobs      chan job

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	active  atomic.Int32
}

// NewPool creates a pool; call Start before results are produced.
func NewPool(cfg Config, evaluator sandbox.Service) *Pool {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Pool{
		cfg:       cfg,
		evaluator: evaluator,
		limiter:   rate.NewLimiter(limit, cfg.Burst),
		metrics:   noopMetrics{},
		jobs:      make(chan job, cfg.QueueSize),
	}
}

// SetMetrics injects an occupancy observer.
func (p *Pool) SetMetrics(m Metrics) {
	if m != nil {
		p.metrics = m
	}
}

// Start launches the workers. It is a no-op after the first call.
func (p *Pool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
	logger.Info(ctx, "evaluation pool started", zap.Int("workers", p.cfg.Workers), zap.Int("queue_size", p.cfg.QueueSize))
}

// Stop waits for running evaluations, then fails whatever is still queued.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	cancel := p.cancel
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
	for {
		select {
		case j := <-p.jobs:
			j.out <- Result{Task: j.task, Evaluation: result.ErrorResult(stoppedMessage)}
		default:
			p.metrics.SetQueueDepth(0)
			return
		}
	}
}

// Submit enqueues req and returns the channel its result is delivered on.
// A full queue is reported immediately; the rate limiter may block until
// ctx is done.
func (p *Pool) Submit(ctx context.Context, req sandbox.Request) (<-chan Result, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if !p.limiter.Allow() {
		p.metrics.RateLimited()
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, appErr.Wrapf(err, appErr.TooManyRequests, "rate limit wait aborted")
		}
	}

	j := job{
		ctx:  ctx,
		task: Task{Request: req, EnqueuedAt: time.Now()},
		out:  make(chan Result, 1),
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, appErr.New(appErr.ServiceUnavailable).WithMessage("evaluation pool is stopped")
	}
	select {
	case p.jobs <- j:
	default:
		return nil, appErr.New(appErr.JudgeQueueFull).WithDetail("queue_size", p.cfg.QueueSize)
	}
	p.metrics.SetQueueDepth(len(p.jobs))
	return j.out, nil
}

// Evaluate submits req and waits for its result.
func (p *Pool) Evaluate(ctx context.Context, req sandbox.Request) (Result, error) {
	out, err := p.Submit(ctx, req)
	if err != nil {
		return Result{}, err
	}
	select {
	case res := <-out:
		return res, nil
	case <-ctx.Done():
		return Result{}, appErr.Wrapf(ctx.Err(), appErr.Timeout, "wait for evaluation")
	}
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			logger.Debug(ctx, "evaluation worker stopping", zap.Int("worker_id", id))
			return
		case j := <-p.jobs:
			p.metrics.SetQueueDepth(len(p.jobs))
			p.metrics.SetActiveWorkers(int(p.active.Add(1)))
			j.out <- p.run(j)
			p.metrics.SetActiveWorkers(int(p.active.Add(-1)))
		}
	}
}

func (p *Pool) run(j job) Result {
	waited := time.Since(j.task.EnqueuedAt)
	ctx := j.ctx
	if err := ctx.Err(); err != nil {
		return Result{Task: j.task, Evaluation: result.ErrorResult(result.CancelledMessage), Waited: waited}
	}
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	return Result{Task: j.task, Evaluation: p.evaluator.Evaluate(ctx, j.task.Request), Waited: waited}
}
