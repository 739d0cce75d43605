package service

import (
	"context"
	"strconv"
	"time"

	"golfjudge/internal/common/mq"
	appErr "golfjudge/pkg/errors"
	"golfjudge/pkg/utils/logger"

	"go.uber.org/zap"
)

const poolRetryHeader = "x-golf-pool-retry"

func (s *Service) requeueForPoolFull(ctx context.Context, msg *mq.Message) error {
	if s.queue == nil || s.retryTopic == "" {
		return appErr.New(appErr.JudgeQueueFull).WithMessage("evaluation pool is full and no retry topic is configured")
	}
	return RequeueForPoolFull(ctx, s.queue, s.retryTopic, s.deadLetter, s.poolRetryMax, s.poolRetryBase, s.poolRetryMaxD, msg)
}

// ParsePoolRetryCount reads how many times a task was requeued because the
// pool was full.
func ParsePoolRetryCount(headers map[string]string) int {
	raw, ok := headers[poolRetryHeader]
	if !ok {
		return 0
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		return 0
	}
	return val
}

// CloneMessageForRetry copies msg with a fresh timestamp and the given pool
// retry count. Delivery retry counters restart.
func CloneMessageForRetry(msg *mq.Message, retryCount int) *mq.Message {
	out := &mq.Message{
		ID:         msg.ID,
		Body:       msg.Body,
		Headers:    make(map[string]string, len(msg.Headers)+1),
		Timestamp:  time.Now(),
		MaxRetries: msg.MaxRetries,
	}
	for k, v := range msg.Headers {
		out.Headers[k] = v
	}
	out.Headers[poolRetryHeader] = strconv.Itoa(retryCount)
	return out
}

// RequeueForPoolFull republishes a task after a backoff when the pool
// rejected it. Once maxRetry requeues are spent the task goes to the dead
// letter topic, or the pool-full error is returned when there is none.
func RequeueForPoolFull(ctx context.Context, queue mq.Producer, retryTopic, deadLetter string, maxRetry int, baseDelay, maxDelay time.Duration, msg *mq.Message) error {
	if queue == nil || retryTopic == "" {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("retry queue is not configured")
	}
	if msg == nil {
		return appErr.New(appErr.InvalidParams).WithMessage("message is nil")
	}
	retryCount := ParsePoolRetryCount(msg.Headers)
	if maxRetry > 0 && retryCount >= maxRetry {
		if deadLetter == "" {
			logger.Warn(ctx, "pool retry exhausted without dead letter", zap.Int("retry_count", retryCount), zap.String("message_id", msg.ID))
			return appErr.New(appErr.JudgeQueueFull)
		}
		logger.Warn(ctx, "pool retry exhausted, sending to dead letter", zap.Int("retry_count", retryCount), zap.String("message_id", msg.ID), zap.String("topic", deadLetter))
		return queue.Publish(ctx, deadLetter, CloneMessageForRetry(msg, retryCount))
	}
	delay := mq.Backoff(retryCount+1, baseDelay, maxDelay)
	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	logger.Info(ctx, "pool full, requeue task", zap.Int("retry_count", retryCount+1), zap.String("message_id", msg.ID), zap.Duration("delay", delay))
	return queue.Publish(ctx, retryTopic, CloneMessageForRetry(msg, retryCount+1))
}
