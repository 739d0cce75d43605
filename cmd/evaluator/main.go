package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golfjudge/internal/common/cache"
	commonmw "golfjudge/internal/common/http/middleware"
	"golfjudge/internal/common/mq"
	"golfjudge/internal/judge/controller"
	"golfjudge/internal/judge/dispatch"
	"golfjudge/internal/judge/repository"
	"golfjudge/internal/judge/sandbox"
	"golfjudge/internal/judge/sandbox/engine"
	"golfjudge/internal/judge/sandbox/observer"
	"golfjudge/internal/judge/sandbox/profile"
	"golfjudge/internal/judge/sandbox/runner"
	"golfjudge/internal/judge/service"
	"golfjudge/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/evaluator.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := run(appCfg); err != nil {
		logger.Error(context.Background(), "evaluator stopped with error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(appCfg *AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, err := profile.NewRegistry(profile.Merge(profile.DefaultProfiles(), appCfg.Languages))
	if err != nil {
		return fmt.Errorf("init language registry failed: %w", err)
	}

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := observer.NewPrometheusRecorder(promRegistry)

	eng := engine.NewEngine(appCfg.Sandbox)
	evaluator := sandbox.NewEvaluator(appCfg.Evaluator, registry, runner.NewRunnerWithObserver(eng, recorder))
	evaluator.SetMetrics(recorder)

	pool := dispatch.NewPool(appCfg.Dispatch, evaluator)
	pool.SetMetrics(recorder)
	pool.Start(ctx)
	defer pool.Stop()

	redisCache, err := cache.NewRedisCache(appCfg.Redis)
	if err != nil {
		return fmt.Errorf("init redis failed: %w", err)
	}
	defer func() {
		_ = redisCache.Close()
	}()

	queue, err := newQueue(appCfg.Queue)
	if err != nil {
		return fmt.Errorf("init queue failed: %w", err)
	}
	defer func() {
		_ = queue.Close()
	}()

	publisher := repository.NewMQStatusEventPublisher(queue, appCfg.Queue.ResultTopic)
	statusRepo := repository.NewStatusRepository(redisCache, appCfg.Status.TTL, publisher)
	judgeSvc, err := service.NewService(service.Config{
		Dispatcher:    pool,
		StatusRepo:    statusRepo,
		Queue:         queue,
		TaskTopic:     appCfg.Queue.TaskTopic,
		RetryTopic:    appCfg.Queue.RetryTopic,
		DeadLetter:    appCfg.Queue.DeadLetter,
		PoolRetryMax:  appCfg.Queue.PoolRetryMax,
		PoolRetryBase: appCfg.Queue.PoolRetryBase,
		PoolRetryMaxD: appCfg.Queue.PoolRetryMaxD,
		StatusTimeout: appCfg.Status.Timeout,
		ClaimTTL:      appCfg.Status.ClaimTTL,
	})
	if err != nil {
		return fmt.Errorf("init judge service failed: %w", err)
	}
	evaluator.SetProgressReporter(judgeSvc)

	topics := []string{appCfg.Queue.TaskTopic}
	if appCfg.Queue.RetryTopic != appCfg.Queue.TaskTopic {
		topics = append(topics, appCfg.Queue.RetryTopic)
	}
	for _, topic := range topics {
		if err := queue.Subscribe(ctx, topic, judgeSvc.HandleMessage, appCfg.Queue.subscribeOptions()); err != nil {
			return fmt.Errorf("subscribe %s failed: %w", topic, err)
		}
	}
	if err := queue.Start(); err != nil {
		return fmt.Errorf("start consumer failed: %w", err)
	}
	logger.Info(ctx, "evaluator consuming",
		zap.Strings("topics", topics),
		zap.String("driver", appCfg.Queue.Driver),
		zap.Strings("languages", registry.IDs()),
	)

	httpServer := buildHTTPServer(appCfg, judgeSvc, registry.IDs(), promRegistry)
	listener, err := net.Listen("tcp", appCfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("init http listener failed: %w", err)
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "evaluator http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.Serve(listener)
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
		}
	case <-ctx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
	if err := queue.Stop(); err != nil {
		logger.Warn(context.Background(), "stop consumer failed", zap.Error(err))
	}
	pool.Stop()
	logger.Info(context.Background(), "evaluator stopped")
	return serveErr
}

func newQueue(cfg QueueConfig) (mq.MessageQueue, error) {
	if cfg.Driver == queueDriverMemory {
		return mq.NewMemoryQueue(cfg.MemoryBuffer), nil
	}
	return mq.NewKafkaQueue(cfg.toKafkaConfig())
}

func buildHTTPServer(cfg *AppConfig, svc controller.EvaluationService, languages []string, reg *prometheus.Registry) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(commonmw.AccessLogMiddleware())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}
	controller.NewEvaluationController(svc, languages).RegisterRoutes(router.Group("/api/v1"))

	return &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}
