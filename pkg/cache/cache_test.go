package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	Date  string  `json:"date"`
	Close float64 `json:"close"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	in := []point{{"2024-01-02", 10.5}, {"2024-01-03", 11}}
	require.NoError(t, mc.Set(ctx, "bars:AAPL", in, time.Minute))

	var out []point
	require.NoError(t, mc.Get(ctx, "bars:AAPL", &out))
	assert.Equal(t, in, out)

	ok, err := mc.Exists(ctx, "missing", "bars:AAPL")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, mc.Delete(ctx, "bars:AAPL"))
	assert.ErrorIs(t, mc.Get(ctx, "bars:AAPL", &out), ErrCacheMiss)
}

func TestMemoryCacheExpiryAndEviction(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "short", 1, time.Nanosecond))
	time.Sleep(time.Millisecond)
	var v int
	assert.ErrorIs(t, mc.Get(ctx, "short", &v), ErrCacheMiss)

	require.NoError(t, mc.Set(ctx, "a", 1, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Set(ctx, "b", 2, time.Minute))
	time.Sleep(time.Millisecond)
	require.NoError(t, mc.Get(ctx, "a", &v))
	require.NoError(t, mc.Set(ctx, "c", 3, time.Minute))

	assert.Equal(t, 2, mc.Len())
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "c", &v))
	assert.Equal(t, 3, v)
}

func TestMemoryCacheLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	ok, err := mc.TryLock(ctx, "train:AAPL", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = mc.TryLock(ctx, "train:AAPL", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, mc.Unlock(ctx, "train:AAPL"))
	ok, _ = mc.TryLock(ctx, "train:AAPL", time.Minute)
	assert.True(t, ok)
}

func TestLayeredCachePromotesFromRemote(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	l1 := NewMemoryCache()
	lc := NewLayeredCache(remote, WithLayeredMemory(l1))
	defer lc.Close()

	require.NoError(t, remote.Set(ctx, "k", point{"2024-02-01", 3}, time.Hour))
	var p point
	require.NoError(t, lc.Get(ctx, "k", &p))
	assert.Equal(t, 3.0, p.Close)

	ok, _ := l1.Exists(ctx, "k")
	assert.True(t, ok)

	require.NoError(t, lc.Delete(ctx, "k"))
	assert.ErrorIs(t, lc.Get(ctx, "k", &p), ErrCacheMiss)
}

func TestFetch(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	calls := 0
	load := func(context.Context) ([]point, error) {
		calls++
		return []point{{"2024-01-02", 1}}, nil
	}
	for i := 0; i < 3; i++ {
		got, err := Fetch(ctx, mc, "series", time.Minute, load)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 1, calls)

	boom := errors.New("boom")
	_, err := Fetch(ctx, mc, "other", time.Minute, func(context.Context) (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	ok, _ := mc.Exists(ctx, "other")
	assert.False(t, ok)
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "bars:AAPL:2024-01-01:-", GenerateKeyWithParams("bars", "AAPL", "2024-01-01", ""))
	assert.Equal(t, "job:42", GenerateKey("job", "42"))
}
