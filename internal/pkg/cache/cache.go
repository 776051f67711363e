package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Store is the cache and lock surface used by the use cases.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeletePattern(ctx context.Context, pattern string) error
	AcquireLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, value string) error
}

// WithLock runs fn while holding key, retrying acquisition a few times
// before giving up with busy.
func WithLock(ctx context.Context, s Store, key, value string, ttl time.Duration, busy error, fn func() error) error {
	acquired := false
	for i := 0; i < 3; i++ {
		ok, err := s.AcquireLock(ctx, key, value, ttl)
		if err == nil && ok {
			acquired = true
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}
	if !acquired {
		return busy
	}
	defer s.ReleaseLock(context.WithoutCancel(ctx), key, value)
	return fn()
}
