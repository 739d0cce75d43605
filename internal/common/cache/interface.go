package cache

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"
)

// Cache is the key-value surface the judge needs from Redis.
type Cache interface {
	KVOps
	LockOps

	Ping(ctx context.Context) error
	Close() error
}

// KVOps stores opaque values under string keys.
type KVOps interface {
	// Get returns the value for key, or "" with a nil error when the key is missing
	Get(ctx context.Context, key string) (string, error)

	// Set stores value with ttl; zero ttl means no expiration
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	Del(ctx context.Context, keys ...string) error
}

// LockOps is a best-effort lease keyed by owner. A lease outlives its
// holder by at most ttl.
type LockOps interface {
	// TryLock acquires key for owner; false means someone else holds it.
	TryLock(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)

	// Unlock releases key if owner still holds it and reports whether it did.
	Unlock(ctx context.Context, key, owner string) (bool, error)
}

// JitterTTL shortens ttl by up to 10% so keys written together do not
// expire together.
func JitterTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttl
	}
	maxJitter := int64(ttl / 10)
	if maxJitter <= 0 {
		return ttl
	}
	n, err := rand.Int(rand.Reader, big.NewInt(maxJitter+1))
	if err != nil {
		return ttl
	}
	return ttl - time.Duration(n.Int64())
}
