package mq

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestBackoff(t *testing.T) {
	cases := []struct {
		retry int
		want  time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := Backoff(tc.retry, 100*time.Millisecond, 500*time.Millisecond); got != tc.want {
			t.Fatalf("Backoff(%d) = %v, want %v", tc.retry, got, tc.want)
		}
	}
	if got := Backoff(3, 0, time.Second); got != 0 {
		t.Fatalf("zero base should disable backoff, got %v", got)
	}
}

func TestKafkaMessageConversion(t *testing.T) {
	msg := NewMessage([]byte(`{"code":"x"}`))
	msg.ID = "sub-1"
	msg.RetryCount = 2
	msg.SetHeader("content-type", "application/json")

	km := toKafkaMessage("golf.tasks", msg)
	if string(km.Key) != "sub-1" || km.Topic != "golf.tasks" {
		t.Fatalf("unexpected kafka message key=%s topic=%s", km.Key, km.Topic)
	}
	back := fromKafkaMessage(km)
	if back.ID != "sub-1" || back.RetryCount != 2 || back.MaxRetries != 3 {
		t.Fatalf("round trip lost fields: %+v", back)
	}
	if v, ok := back.GetHeader("content-type"); !ok || v != "application/json" {
		t.Fatalf("header lost: %v", back.Headers)
	}
	if _, ok := back.GetHeader(headerID); ok {
		t.Fatal("internal headers must not leak into Headers")
	}

	keyed := fromKafkaMessage(kafka.Message{Key: []byte("k"), Value: []byte("v")})
	if keyed.ID != "k" {
		t.Fatalf("id should fall back to key, got %q", keyed.ID)
	}
}

func TestNewKafkaQueueRequiresBrokers(t *testing.T) {
	if _, err := NewKafkaQueue(KafkaConfig{}); err == nil {
		t.Fatal("expected error without brokers")
	}
	q, err := NewKafkaQueue(KafkaConfig{Brokers: []string{"localhost:9092"}})
	if err != nil {
		t.Fatalf("new queue: %v", err)
	}
	if err := q.Subscribe(context.Background(), "", func(context.Context, *Message) error { return nil }, nil); err == nil {
		t.Fatal("expected error for empty topic")
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestMemoryQueueDeliversAndRetries(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()

	var attempts atomic.Int32
	done := make(chan *Message, 1)
	err := q.Subscribe(context.Background(), "tasks", func(ctx context.Context, m *Message) error {
		if attempts.Add(1) < 3 {
			return errors.New("transient")
		}
		done <- m
		return nil
	}, &SubscribeOptions{RetryDelay: time.Millisecond})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := q.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	msg := NewMessage([]byte("hello"))
	msg.ID = "m1"
	if err := q.Publish(context.Background(), "tasks", msg); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case got := <-done:
		if got.ID != "m1" || got.RetryCount != 2 {
			t.Fatalf("got id=%s retries=%d", got.ID, got.RetryCount)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestMemoryQueueDeadLetter(t *testing.T) {
	q := NewMemoryQueue(8)
	defer q.Close()

	err := q.Subscribe(context.Background(), "tasks", func(ctx context.Context, m *Message) error {
		return errors.New("always fails")
	}, &SubscribeOptions{MaxRetries: 1, RetryDelay: time.Millisecond, DeadLetterTopic: "tasks.dlq"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	_ = q.Start()
	if err := q.Publish(context.Background(), "tasks", NewMessage([]byte("x"))); err != nil {
		t.Fatalf("publish: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for q.Pending("tasks.dlq") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("message never reached the dead letter topic")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestMessageExpired(t *testing.T) {
	now := time.Now()
	m := &Message{Timestamp: now.Add(-time.Minute)}
	if !m.Expired(time.Second, now) {
		t.Fatal("expected expired")
	}
	if m.Expired(0, now) {
		t.Fatal("zero ttl never expires")
	}
}
