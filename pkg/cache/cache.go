package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
)

// Service defines cache operations interface. Values are JSON encoded, so
// Get decodes into any pointer that the stored value marshals from.
type Service interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (bool, error)
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
	Close() error
}

// Fetch returns the cached value for key, or calls load and caches its
// result for ttl. Cache errors other than a miss are ignored so that a
// degraded cache never blocks the loader.
func Fetch[T any](ctx context.Context, c Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var v T
	if err := c.Get(ctx, key, &v); err == nil {
		return v, nil
	}
	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	_ = c.Set(ctx, key, v, ttl)
	return v, nil
}
