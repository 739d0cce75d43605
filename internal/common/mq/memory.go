package mq

import (
	"context"
	"errors"
	"sync"
)

// MemoryQueue is an in-process MessageQueue for single-node runs and tests.
// Each topic is a buffered channel; publishing to a topic without room
// blocks until ctx is done.
type MemoryQueue struct {
	buffer int

	mu      sync.Mutex
	topics  map[string]chan *Message
	subs    []*memorySubscription
	started bool
	closed  bool
}

type memorySubscription struct {
	topic   string
	handler HandlerFunc
	opts    SubscribeOptions
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewMemoryQueue creates a queue whose topics buffer up to buffer messages.
func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryQueue{buffer: buffer, topics: make(map[string]chan *Message)}
}

func (q *MemoryQueue) topic(name string) chan *Message {
	ch, ok := q.topics[name]
	if !ok {
		ch = make(chan *Message, q.buffer)
		q.topics[name] = ch
	}
	return ch
}

// Publish enqueues a copy of message on topic.
func (q *MemoryQueue) Publish(ctx context.Context, topic string, message *Message) error {
	if message == nil {
		return errors.New("message is nil")
	}
	if topic == "" {
		return errors.New("topic is required")
	}
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return errors.New("message queue is closed")
	}
	ch := q.topic(topic)
	q.mu.Unlock()

	clone := *message
	clone.Headers = make(map[string]string, len(message.Headers))
	for k, v := range message.Headers {
		clone.Headers[k] = v
	}
	select {
	case ch <- &clone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PublishBatch publishes messages in order.
func (q *MemoryQueue) PublishBatch(ctx context.Context, topic string, messages []*Message) error {
	for _, m := range messages {
		if err := q.Publish(ctx, topic, m); err != nil {
			return err
		}
	}
	return nil
}

// Subscribe registers handler for topic. Subscribers of the same topic
// compete for messages.
func (q *MemoryQueue) Subscribe(ctx context.Context, topic string, handler HandlerFunc, opts *SubscribeOptions) error {
	if topic == "" {
		return errors.New("topic is required")
	}
	if handler == nil {
		return errors.New("handler is required")
	}
	var options SubscribeOptions
	if opts != nil {
		options = *opts
	}
	options.SetDefaults()
	if ctx == nil {
		ctx = context.Background()
	}
	sub := &memorySubscription{topic: topic, handler: handler, opts: options, baseCtx: ctx}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("message queue is closed")
	}
	q.subs = append(q.subs, sub)
	if q.started {
		q.startSubscription(sub)
	}
	return nil
}

// Start starts all subscriptions.
func (q *MemoryQueue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errors.New("message queue is closed")
	}
	if q.started {
		return nil
	}
	for _, sub := range q.subs {
		q.startSubscription(sub)
	}
	q.started = true
	return nil
}

func (q *MemoryQueue) startSubscription(sub *memorySubscription) {
	ch := q.topic(sub.topic)
	ctx, cancel := context.WithCancel(sub.baseCtx)
	sub.cancel = cancel
	for i := 0; i < sub.opts.Concurrency; i++ {
		sub.wg.Add(1)
		go func() {
			defer sub.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-ch:
					if !deliver(ctx, q, sub.opts, sub.handler, m) {
						// requeue so a restarted consumer sees it
						select {
						case ch <- m:
						default:
						}
						return
					}
				}
			}
		}()
	}
}

// Stop cancels subscriptions and waits for handlers.
func (q *MemoryQueue) Stop() error {
	q.mu.Lock()
	subs := append([]*memorySubscription(nil), q.subs...)
	q.started = false
	q.mu.Unlock()

	// handlers may publish, so wait without holding the lock
	for _, sub := range subs {
		if sub.cancel != nil {
			sub.cancel()
		}
	}
	for _, sub := range subs {
		sub.wg.Wait()
	}
	return nil
}

// Ping always succeeds.
func (q *MemoryQueue) Ping(ctx context.Context) error {
	return nil
}

// Close stops consumers; pending messages are discarded.
func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()
	return q.Stop()
}

// Pending reports the number of undelivered messages on topic.
func (q *MemoryQueue) Pending(topic string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.topic(topic))
}

var _ MessageQueue = (*MemoryQueue)(nil)
