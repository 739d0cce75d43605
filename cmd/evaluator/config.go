package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golfjudge/internal/common/cache"
	"golfjudge/internal/common/mq"
	"golfjudge/internal/judge/dispatch"
	"golfjudge/internal/judge/sandbox"
	"golfjudge/internal/judge/sandbox/engine"
	"golfjudge/internal/judge/sandbox/profile"
	"golfjudge/pkg/utils/logger"

	"github.com/segmentio/kafka-go"
	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8090"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 30 * time.Second

	queueDriverKafka  = "kafka"
	queueDriverMemory = "memory"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// QueueConfig holds task transport settings.
type QueueConfig struct {
	// Driver is "kafka" or "memory"; memory keeps tasks in process.
	Driver        string        `yaml:"driver"`
	Brokers       []string      `yaml:"brokers"`
	ClientID      string        `yaml:"clientID"`
	MinBytes      int           `yaml:"minBytes"`
	MaxBytes      int           `yaml:"maxBytes"`
	MaxWait       time.Duration `yaml:"maxWait"`
	BatchSize     int           `yaml:"batchSize"`
	BatchTimeout  time.Duration `yaml:"batchTimeout"`
	DialTimeout   time.Duration `yaml:"dialTimeout"`
	Compression   string        `yaml:"compression"`
	MemoryBuffer  int           `yaml:"memoryBuffer"`
	TaskTopic     string        `yaml:"taskTopic"`
	ResultTopic   string        `yaml:"resultTopic"`
	ConsumerGroup string        `yaml:"consumerGroup"`
	Concurrency   int           `yaml:"concurrency"`
	MaxRetries    int           `yaml:"maxRetries"`
	RetryDelay    time.Duration `yaml:"retryDelay"`
	RetryTopic    string        `yaml:"retryTopic"`
	PoolRetryMax  int           `yaml:"poolRetryMax"`
	PoolRetryBase time.Duration `yaml:"poolRetryBaseDelay"`
	PoolRetryMaxD time.Duration `yaml:"poolRetryMaxDelay"`
	DeadLetter    string        `yaml:"deadLetterTopic"`
	MessageTTL    time.Duration `yaml:"messageTTL"`
}

// StatusConfig holds status persistence settings.
type StatusConfig struct {
	TTL      time.Duration `yaml:"ttl"`
	Timeout  time.Duration `yaml:"timeout"`
	ClaimTTL time.Duration `yaml:"claimTTL"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// AppConfig holds evaluator config.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Logger    logger.Config      `yaml:"logger"`
	Queue     QueueConfig        `yaml:"queue"`
	Redis     cache.RedisConfig  `yaml:"redis"`
	Status    StatusConfig       `yaml:"status"`
	Dispatch  dispatch.Config    `yaml:"dispatch"`
	Evaluator sandbox.Config     `yaml:"evaluator"`
	Sandbox   engine.Config      `yaml:"sandbox"`
	Languages []profile.Override `yaml:"languages"`
	Metrics   MetricsConfig      `yaml:"metrics"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis addr is required")
	}

	if cfg.Queue.Driver == "" {
		cfg.Queue.Driver = queueDriverKafka
	}
	switch cfg.Queue.Driver {
	case queueDriverKafka:
		if len(cfg.Queue.Brokers) == 0 {
			return nil, fmt.Errorf("kafka brokers are required")
		}
	case queueDriverMemory:
	default:
		return nil, fmt.Errorf("unknown queue driver %q", cfg.Queue.Driver)
	}
	if cfg.Queue.TaskTopic == "" {
		cfg.Queue.TaskTopic = "golf.tasks"
	}
	if cfg.Queue.ResultTopic == "" {
		cfg.Queue.ResultTopic = "golf.results"
	}
	if cfg.Queue.RetryTopic == "" {
		cfg.Queue.RetryTopic = cfg.Queue.TaskTopic + ".retry"
	}
	if cfg.Queue.ConsumerGroup == "" {
		cfg.Queue.ConsumerGroup = "golfjudge-evaluator"
	}
	if cfg.Queue.PoolRetryMax <= 0 {
		cfg.Queue.PoolRetryMax = 5
	}
	if cfg.Queue.PoolRetryBase == 0 {
		cfg.Queue.PoolRetryBase = time.Second
	}
	if cfg.Queue.PoolRetryMaxD == 0 {
		cfg.Queue.PoolRetryMaxD = 30 * time.Second
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Status.TTL == 0 {
		cfg.Status.TTL = 24 * time.Hour
	}
	if cfg.Status.Timeout == 0 {
		cfg.Status.Timeout = 3 * time.Second
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	// Consumers feed the dispatcher; more handlers than workers only
	// lengthens the dispatcher queue.
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = cfg.Dispatch.Workers
	}
	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = 1
	}
	return &cfg, nil
}

func (q QueueConfig) toKafkaConfig() mq.KafkaConfig {
	return mq.KafkaConfig{
		Brokers:      q.Brokers,
		ClientID:     q.ClientID,
		MinBytes:     q.MinBytes,
		MaxBytes:     q.MaxBytes,
		MaxWait:      q.MaxWait,
		BatchSize:    q.BatchSize,
		BatchTimeout: q.BatchTimeout,
		DialTimeout:  q.DialTimeout,
		Compression:  parseCompression(q.Compression),
	}
}

func (q QueueConfig) subscribeOptions() *mq.SubscribeOptions {
	return &mq.SubscribeOptions{
		ConsumerGroup:   q.ConsumerGroup,
		Concurrency:     q.Concurrency,
		MaxRetries:      q.MaxRetries,
		RetryDelay:      q.RetryDelay,
		DeadLetterTopic: q.DeadLetter,
		MessageTTL:      q.MessageTTL,
	}
}

func parseCompression(raw string) kafka.Compression {
	switch strings.ToLower(raw) {
	case "gzip":
		return kafka.Gzip
	case "snappy":
		return kafka.Snappy
	case "lz4":
		return kafka.Lz4
	case "zstd":
		return kafka.Zstd
	default:
		return kafka.Compression(0)
	}
}
