package repository

import (
	"context"
	"time"

	"golfjudge/internal/common/cache"
	"golfjudge/internal/judge/model"
	appErr "golfjudge/pkg/errors"

	"github.com/google/uuid"
)

const (
	statusKeyPrefix = "golf:status:"
	lockKeyPrefix   = "golf:lock:"
)

// StatusRepository handles status persistence. Final statuses are also
// published when a publisher is configured.
type StatusRepository struct {
	cache     cache.Cache
	publisher StatusEventPublisher
	// owner identifies this process's claims.
	owner string
	TTL   time.Duration
}

// NewStatusRepository creates a new repository.
func NewStatusRepository(cacheClient cache.Cache, ttl time.Duration, publisher StatusEventPublisher) *StatusRepository {
	return &StatusRepository{cache: cacheClient, TTL: ttl, publisher: publisher, owner: uuid.NewString()}
}

// Get returns status by submission id.
func (r *StatusRepository) Get(ctx context.Context, submissionID string) (model.EvaluationStatus, error) {
	if submissionID == "" {
		return model.EvaluationStatus{}, appErr.ValidationError("submission_id", "required")
	}
	if r.cache == nil {
		return model.EvaluationStatus{}, appErr.New(appErr.CacheError).WithMessage("cache client is not initialized")
	}
	val, err := r.cache.Get(ctx, statusKeyPrefix+submissionID)
	if err != nil {
		return model.EvaluationStatus{}, appErr.Wrapf(err, appErr.CacheError, "load status failed")
	}
	if val == "" {
		return model.EvaluationStatus{}, appErr.New(appErr.SubmissionNotFound).WithMessage("submission status not found")
	}
	status, err := decodeStatus([]byte(val))
	if err != nil {
		return model.EvaluationStatus{}, appErr.Wrapf(err, appErr.CacheError, "decode status failed")
	}
	return status, nil
}

// Save persists status and publishes it when final.
func (r *StatusRepository) Save(ctx context.Context, status model.EvaluationStatus) error {
	if status.SubmissionID == "" {
		return appErr.ValidationError("submission_id", "required")
	}
	final := status.Final()
	if final && r.publisher == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("status publisher is not configured")
	}
	if r.cache != nil {
		data, err := encodeStatus(status)
		if err != nil {
			return appErr.Wrapf(err, appErr.CacheError, "encode status failed")
		}
		if err := r.cache.Set(ctx, statusKeyPrefix+status.SubmissionID, data, cache.JitterTTL(r.TTL)); err != nil {
			return appErr.Wrapf(err, appErr.CacheSetFailed, "store status failed")
		}
	}
	if final {
		return r.publisher.PublishFinalStatus(ctx, status)
	}
	return nil
}

// Claim marks a submission as being evaluated so a redelivered task is not
// run twice concurrently. It returns false when another worker holds it.
func (r *StatusRepository) Claim(ctx context.Context, submissionID string, ttl time.Duration) (bool, error) {
	if r.cache == nil {
		return true, nil
	}
	ok, err := r.cache.TryLock(ctx, lockKeyPrefix+submissionID, r.owner, ttl)
	if err != nil {
		return false, appErr.Wrapf(err, appErr.CacheError, "claim submission failed")
	}
	return ok, nil
}

// Release drops a claim taken by Claim. A claim that already expired and
// was taken over elsewhere is left alone.
func (r *StatusRepository) Release(ctx context.Context, submissionID string) error {
	if r.cache == nil {
		return nil
	}
	if _, err := r.cache.Unlock(ctx, lockKeyPrefix+submissionID, r.owner); err != nil {
		return appErr.Wrapf(err, appErr.CacheError, "release submission failed")
	}
	return nil
}
