package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
	access   time.Time
}

func (m *memoryItem) expired(now time.Time) bool {
	return now.After(m.expireAt)
}

// MemoryCache implements Service in process with LRU eviction. It is the L1
// of LayeredCache and the stand-alone cache when Redis is disabled.
type MemoryCache struct {
	mu         sync.Mutex
	data       map[string]*memoryItem
	maxSize    int
	defaultTTL time.Duration
	ticker     *time.Ticker
	done       chan struct{}
	closeOnce  sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
		DefaultTTL:      7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		data:       make(map[string]*memoryItem),
		maxSize:    cfg.MaxSize,
		defaultTTL: cfg.DefaultTTL,
		ticker:     time.NewTicker(cfg.CleanupInterval),
		done:       make(chan struct{}),
	}
	go mc.cleanupExpired()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = mc.defaultTTL
	}

	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := time.Now()
	if _, ok := mc.data[key]; !ok && len(mc.data) >= mc.maxSize {
		mc.evictLRU()
	}
	mc.data[key] = &memoryItem{data: data, expireAt: now.Add(expiration), access: now}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	item, ok := mc.data[key]
	now := time.Now()
	if !ok || item.expired(now) {
		if ok {
			delete(mc.data, key)
		}
		mc.mu.Unlock()
		return ErrCacheMiss
	}
	item.access = now
	data := item.data
	mc.mu.Unlock()

	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := time.Now()
	for _, key := range keys {
		if item, ok := mc.data[key]; ok && !item.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	now := time.Now()
	if item, ok := mc.data[key]; ok && !item.expired(now) {
		return false, nil
	}
	mc.data[key] = &memoryItem{data: []byte(`"locked"`), expireAt: now.Add(ttl), access: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len returns the number of stored entries, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.data)
}

// evictLRU must be called with mu held.
func (mc *MemoryCache) evictLRU() {
	var oldestKey string
	var oldest time.Time
	for key, item := range mc.data {
		if oldestKey == "" || item.access.Before(oldest) {
			oldestKey, oldest = key, item.access
		}
	}
	if oldestKey != "" {
		delete(mc.data, oldestKey)
	}
}

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case now := <-mc.ticker.C:
			mc.mu.Lock()
			for key, item := range mc.data {
				if item.expired(now) {
					delete(mc.data, key)
				}
			}
			mc.mu.Unlock()
		}
	}
}

// Close stops the cleanup goroutine.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.ticker.Stop()
		close(mc.done)
	})
	return nil
}

var _ Service = (*MemoryCache)(nil)
