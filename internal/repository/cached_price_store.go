package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
)

var _ domrepo.PriceStore = (*CachedPriceStore)(nil)

// CachedPriceStore memoizes series lookups for ttl.
type CachedPriceStore struct {
	next  domrepo.PriceStore
	cache cache.Service
	ttl   time.Duration
}

// NewCachedPriceStore wraps next. A non-positive ttl defaults to one hour.
func NewCachedPriceStore(next domrepo.PriceStore, c cache.Service, ttl time.Duration) *CachedPriceStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedPriceStore{next: next, cache: c, ttl: ttl}
}

func (s *CachedPriceStore) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	key := cache.GenerateKeyWithParams("bars", symbol, models.FormatDate(from), models.FormatDate(to))
	return cache.Fetch(ctx, s.cache, key, s.ttl, func(ctx context.Context) (models.PriceSeries, error) {
		return s.next.GetDailyBars(ctx, symbol, from, to)
	})
}

// Invalidate drops the cached unbounded series for symbol.
func (s *CachedPriceStore) Invalidate(ctx context.Context, symbol string) error {
	return s.cache.Delete(ctx, cache.GenerateKeyWithParams("bars", symbol, "", ""))
}
