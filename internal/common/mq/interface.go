package mq

import (
	"context"
	"time"
)

// MessageQueue is the transport for evaluation tasks and result events.
type MessageQueue interface {
	Producer
	Consumer

	// Ping verifies the message queue connection is alive
	Ping(ctx context.Context) error

	// Close stops consumers and releases the producer
	Close() error
}

// Producer defines the interface for publishing messages
type Producer interface {
	Publish(ctx context.Context, topic string, message *Message) error

	PublishBatch(ctx context.Context, topic string, messages []*Message) error
}

// Consumer defines the interface for consuming messages
type Consumer interface {
	// Subscribe registers handler for topic. Consumption begins on Start,
	// or immediately when the consumer is already started.
	Subscribe(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error

	Start() error

	// Stop waits for in-flight handlers to return
	Stop() error
}

// Message represents a message in the queue
type Message struct {
	ID        string            `json:"id"`
	Body      []byte            `json:"body"`
	Headers   map[string]string `json:"headers"`
	Timestamp time.Time         `json:"timestamp"`

	RetryCount int `json:"retry_count"`
	MaxRetries int `json:"max_retries"`
}

// HandlerFunc processes one message. A nil error acknowledges it; an error
// schedules a retry until MaxRetries is exhausted.
type HandlerFunc func(ctx context.Context, message *Message) error

// SubscribeOptions defines options for subscribing to a topic
type SubscribeOptions struct {
	// ConsumerGroup defaults to "golfjudge-<topic>"
	ConsumerGroup string

	// Concurrency sets the number of handler goroutines. Default: 1
	Concurrency int

	// MaxRetries sets the maximum number of redeliveries. Default: 3
	MaxRetries int

	// RetryDelay is the first backoff step; it doubles up to MaxRetryDelay.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// DeadLetterTopic receives messages after retries are exhausted
	DeadLetterTopic string

	// MessageTTL drops messages older than this without handling them
	MessageTTL time.Duration
}

// SetDefaults sets default values for subscribe options
func (o *SubscribeOptions) SetDefaults() {
	if o.Concurrency <= 0 {
		o.Concurrency = 1
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	if o.MaxRetryDelay <= 0 {
		o.MaxRetryDelay = 30 * time.Second
	}
}

// NewMessage creates a new message with the given body
func NewMessage(body []byte) *Message {
	return &Message{
		Body:       body,
		Headers:    make(map[string]string),
		Timestamp:  time.Now(),
		MaxRetries: 3,
	}
}

// SetHeader sets a header value
func (m *Message) SetHeader(key, value string) {
	if m.Headers == nil {
		m.Headers = make(map[string]string)
	}
	m.Headers[key] = value
}

// GetHeader retrieves a header value
func (m *Message) GetHeader(key string) (string, bool) {
	if m.Headers == nil {
		return "", false
	}
	val, ok := m.Headers[key]
	return val, ok
}

// Expired reports whether the message is older than ttl.
func (m *Message) Expired(ttl time.Duration, now time.Time) bool {
	return ttl > 0 && !m.Timestamp.IsZero() && now.Sub(m.Timestamp) > ttl
}

// Backoff returns the delay before redelivery number retry (starting at 1):
// base doubled per attempt, capped at max.
func Backoff(retry int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 1; i < retry; i++ {
		if max > 0 && delay > max/2 {
			return max
		}
		delay *= 2
	}
	if max > 0 && delay > max {
		return max
	}
	return delay
}

// deliver runs handler with the retry, dead-letter and TTL policy shared by
// every implementation. It returns false when ctx ended before the message
// was settled, in which case it must not be acknowledged.
func deliver(ctx context.Context, p Producer, opts SubscribeOptions, handler HandlerFunc, m *Message) bool {
	if m.MaxRetries == 0 {
		m.MaxRetries = opts.MaxRetries
	}
	if m.Expired(opts.MessageTTL, time.Now()) {
		return true
	}
	for {
		if err := handler(ctx, m); err == nil {
			return true
		}
		m.RetryCount++
		if m.RetryCount > m.MaxRetries {
			if opts.DeadLetterTopic != "" && p != nil {
				_ = p.Publish(ctx, opts.DeadLetterTopic, m)
			}
			return true
		}
		timer := time.NewTimer(Backoff(m.RetryCount, opts.RetryDelay, opts.MaxRetryDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
