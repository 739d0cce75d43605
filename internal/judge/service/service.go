package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golfjudge/internal/common/mq"
	"golfjudge/internal/judge/dispatch"
	"golfjudge/internal/judge/model"
	"golfjudge/internal/judge/sandbox"
	"golfjudge/internal/judge/sandbox/result"
	"golfjudge/internal/judge/scoring"
	appErr "golfjudge/pkg/errors"
	"golfjudge/pkg/utils/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher runs one evaluation and waits for it.
type Dispatcher interface {
	Evaluate(ctx context.Context, req sandbox.Request) (dispatch.Result, error)
}

// StatusStore persists evaluation status records.
type StatusStore interface {
	Get(ctx context.Context, submissionID string) (model.EvaluationStatus, error)
	Save(ctx context.Context, status model.EvaluationStatus) error
	Claim(ctx context.Context, submissionID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, submissionID string) error
}

// Service turns queued tasks into stored results.
type Service struct {
	dispatcher    Dispatcher
	statusRepo    StatusStore
	queue         mq.Producer
	taskTopic     string
	retryTopic    string
	deadLetter    string
	poolRetryMax  int
	poolRetryBase time.Duration
	poolRetryMaxD time.Duration
	statusTimeout time.Duration
	claimTTL      time.Duration
}

// Config holds service dependencies and settings.
type Config struct {
	Dispatcher Dispatcher
	StatusRepo StatusStore
	// Queue is used to enqueue new tasks and to requeue tasks when the
	// pool is full.
	Queue         mq.Producer
	TaskTopic     string
	RetryTopic    string
	DeadLetter    string
	PoolRetryMax  int
	PoolRetryBase time.Duration
	PoolRetryMaxD time.Duration
	StatusTimeout time.Duration
	ClaimTTL      time.Duration
}

// NewService creates a new judge service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if cfg.StatusRepo == nil {
		return nil, fmt.Errorf("status repository is required")
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 10 * time.Minute
	}
	if cfg.RetryTopic == "" {
		cfg.RetryTopic = cfg.TaskTopic
	}
	return &Service{
		dispatcher:    cfg.Dispatcher,
		statusRepo:    cfg.StatusRepo,
		queue:         cfg.Queue,
		taskTopic:     cfg.TaskTopic,
		retryTopic:    cfg.RetryTopic,
		deadLetter:    cfg.DeadLetter,
		poolRetryMax:  cfg.PoolRetryMax,
		poolRetryBase: cfg.PoolRetryBase,
		poolRetryMaxD: cfg.PoolRetryMaxD,
		statusTimeout: cfg.StatusTimeout,
		claimTTL:      cfg.ClaimTTL,
	}, nil
}

// Enqueue validates a task, records it as pending and publishes it on the
// task topic. It returns the submission id.
func (s *Service) Enqueue(ctx context.Context, task model.EvaluationTask) (string, error) {
	if s.queue == nil || s.taskTopic == "" {
		return "", appErr.New(appErr.ServiceUnavailable).WithMessage("task queue is not configured")
	}
	if err := task.Validate(); err != nil {
		return "", err
	}
	if task.SubmissionID == "" {
		task.SubmissionID = uuid.NewString()
	}
	body, err := json.Marshal(task)
	if err != nil {
		return "", appErr.Wrapf(err, appErr.InvalidParams, "encode task failed")
	}
	pending := model.EvaluationStatus{
		SubmissionID: task.SubmissionID,
		Status:       model.StatusPending,
		Language:     task.Language,
		Timestamps:   model.Timestamps{ReceivedAt: time.Now().Unix()},
	}
	if err := s.persistStatus(ctx, pending); err != nil {
		return "", err
	}
	msg := mq.NewMessage(body)
	msg.ID = task.SubmissionID
	if err := s.queue.Publish(ctx, s.taskTopic, msg); err != nil {
		return "", appErr.Wrapf(err, appErr.QueuePublishError, "publish task failed")
	}
	return task.SubmissionID, nil
}

// HandleMessage processes an evaluation task message. Malformed tasks are
// recorded and acknowledged; infrastructure failures are returned so the
// queue redelivers the message.
func (s *Service) HandleMessage(ctx context.Context, msg *mq.Message) error {
	if msg == nil {
		return appErr.New(appErr.InvalidParams).WithMessage("message is nil")
	}
	var task model.EvaluationTask
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		logger.Warn(ctx, "drop undecodable task", zap.String("message_id", msg.ID), zap.Error(err))
		if msg.ID != "" {
			return s.fail(ctx, msg.ID, "", msg.Timestamp, appErr.Wrapf(err, appErr.TestSuiteInvalid, "decode task failed: %v", err))
		}
		return nil
	}
	if task.SubmissionID == "" {
		task.SubmissionID = msg.ID
	}
	if task.SubmissionID == "" {
		task.SubmissionID = uuid.NewString()
	}
	ctx = logger.WithEvaluation(ctx, task.SubmissionID, task.Language)
	if err := task.Validate(); err != nil {
		logger.Warn(ctx, "reject invalid task", zap.Error(err))
		return s.fail(ctx, task.SubmissionID, task.Language, msg.Timestamp, err)
	}

	claimed, err := s.statusRepo.Claim(ctx, task.SubmissionID, s.claimTTL)
	if err != nil {
		return err
	}
	if !claimed {
		logger.Info(ctx, "task already in flight, skipping duplicate delivery")
		return nil
	}
	defer func() {
		if err := s.statusRepo.Release(context.WithoutCancel(ctx), task.SubmissionID); err != nil {
			logger.Warn(ctx, "release claim failed", zap.Error(err))
		}
	}()

	prev, err := s.statusRepo.Get(ctx, task.SubmissionID)
	switch {
	case err == nil && prev.Final():
		logger.Info(ctx, "task already finished, skipping redelivery", zap.String("status", prev.Status))
		return nil
	case err != nil && !appErr.Is(err, appErr.SubmissionNotFound):
		return err
	}

	receivedAt := msg.Timestamp.Unix()
	if msg.Timestamp.IsZero() {
		receivedAt = time.Now().Unix()
	}
	running := model.EvaluationStatus{
		SubmissionID: task.SubmissionID,
		Status:       model.StatusRunning,
		Language:     task.Language,
		Timestamps:   model.Timestamps{ReceivedAt: receivedAt, StartedAt: time.Now().Unix()},
		Progress:     model.Progress{TotalTests: task.TestSuite.Len()},
	}
	if err := s.persistStatus(ctx, running); err != nil {
		return err
	}

	res, err := s.dispatcher.Evaluate(ctx, task.Request())
	if err != nil {
		if appErr.Is(err, appErr.JudgeQueueFull) {
			return s.requeueForPoolFull(ctx, msg)
		}
		return err
	}

	score := scoring.CalculateScore(task.Code, task.Language)
	eval := res.Evaluation
	finished := running
	finished.Status = string(eval.Status)
	finished.Result = &eval
	finished.Score = &score
	finished.ErrorMessage = eval.ErrorMessage
	finished.Timestamps.FinishedAt = time.Now().Unix()
	finished.Progress = model.Progress{TotalTests: task.TestSuite.Len(), DoneTests: len(eval.TestResults)}
	logger.Info(ctx, "evaluation finished",
		zap.String("status", finished.Status),
		zap.Int("score", score.Score),
		zap.Duration("queue_wait", res.Waited),
		zap.Int("tests", len(eval.TestResults)),
	)
	return s.persistStatus(ctx, finished)
}

// ReportProgress records intermediate progress reported by the evaluator.
func (s *Service) ReportProgress(ctx context.Context, update sandbox.ProgressUpdate) error {
	status, err := s.statusRepo.Get(ctx, update.EvaluationID)
	if err != nil {
		status = model.EvaluationStatus{
			SubmissionID: update.EvaluationID,
			Language:     update.Language,
			Timestamps:   model.Timestamps{ReceivedAt: time.Now().Unix()},
		}
	}
	if status.Final() {
		return nil
	}
	status.Status = string(update.Phase)
	status.Progress = model.Progress{TotalTests: update.TotalTests, DoneTests: update.DoneTests}
	if err := s.persistStatus(ctx, status); err != nil {
		logger.Warn(ctx, "update intermediate status failed", zap.Error(err))
		return err
	}
	return nil
}

// Status returns the stored status for a submission.
func (s *Service) Status(ctx context.Context, submissionID string) (model.EvaluationStatus, error) {
	return s.statusRepo.Get(ctx, submissionID)
}

func (s *Service) persistStatus(ctx context.Context, status model.EvaluationStatus) error {
	ctxStatus := ctx
	if s.statusTimeout > 0 {
		var cancel context.CancelFunc
		ctxStatus, cancel = context.WithTimeout(ctx, s.statusTimeout)
		defer cancel()
	}
	return s.statusRepo.Save(ctxStatus, status)
}

// fail stores a terminal error status for a task that cannot be evaluated.
// Only a storage failure is returned; the task itself is acknowledged.
func (s *Service) fail(ctx context.Context, submissionID, language string, receivedAt time.Time, cause error) error {
	res := result.ErrorResult(cause.Error())
	status := model.EvaluationStatus{
		SubmissionID: submissionID,
		Status:       string(result.StatusError),
		Language:     language,
		Result:       &res,
		ErrorCode:    int(appErr.GetCode(cause)),
		ErrorMessage: cause.Error(),
		Timestamps: model.Timestamps{
			ReceivedAt: receivedAt.Unix(),
			FinishedAt: time.Now().Unix(),
		},
	}
	if receivedAt.IsZero() {
		status.Timestamps.ReceivedAt = status.Timestamps.FinishedAt
	}
	return s.persistStatus(ctx, status)
}
