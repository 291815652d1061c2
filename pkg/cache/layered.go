package cache

import (
	"context"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis).
type LayeredCache struct {
	mem    *MemoryCache
	remote Service
	l1TTL  time.Duration
}

// LayeredOption configures Layered cache.
type LayeredOption func(*LayeredCache)

// WithLayeredMemory replaces the L1 cache.
func WithLayeredMemory(mc *MemoryCache) LayeredOption {
	return func(lc *LayeredCache) {
		if mc != nil {
			lc.mem = mc
		}
	}
}

// WithLayeredL1TTL caps how long L1 keeps a value read from L2.
func WithLayeredL1TTL(ttl time.Duration) LayeredOption {
	return func(lc *LayeredCache) { lc.l1TTL = ttl }
}

// NewLayeredCache creates a layered cache in front of remote.
func NewLayeredCache(remote Service, opts ...LayeredOption) *LayeredCache {
	lc := &LayeredCache{remote: remote, l1TTL: time.Minute}
	for _, opt := range opts {
		opt(lc)
	}
	if lc.mem == nil {
		lc.mem = NewMemoryCache()
	}
	return lc
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	// Write-through: remote first, then memory
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, value, lc.l1Expiry(expiration))
	return nil
}

func (lc *LayeredCache) Get(ctx context.Context, key string, dest interface{}) error {
	if err := lc.mem.Get(ctx, key, dest); err == nil {
		return nil
	}
	if err := lc.remote.Get(ctx, key, dest); err != nil {
		return err
	}
	_ = lc.mem.Set(ctx, key, dest, lc.l1TTL)
	return nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

func (lc *LayeredCache) Exists(ctx context.Context, keys ...string) (bool, error) {
	if ok, _ := lc.mem.Exists(ctx, keys...); ok {
		return true, nil
	}
	return lc.remote.Exists(ctx, keys...)
}

func (lc *LayeredCache) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return lc.remote.TryLock(ctx, key, ttl)
}

func (lc *LayeredCache) Unlock(ctx context.Context, key string) error {
	return lc.remote.Unlock(ctx, key)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.remote.Close()
}

func (lc *LayeredCache) l1Expiry(exp time.Duration) time.Duration {
	if exp <= 0 || exp > lc.l1TTL {
		return lc.l1TTL
	}
	return exp
}

var _ Service = (*LayeredCache)(nil)
