package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
)

var _ domrepo.JobStatusStore = (*CacheJobStore)(nil)

// CacheJobStore keeps job statuses under job:{id} with a fixed ttl.
type CacheJobStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheJobStore(c cache.Service, ttl time.Duration) *CacheJobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CacheJobStore{cache: c, ttl: ttl}
}

func (s *CacheJobStore) SaveStatus(ctx context.Context, st *models.BacktestJobStatus) error {
	if err := s.cache.Set(ctx, cache.GenerateKey("job", st.ID), st, s.ttl); err != nil {
		return fmt.Errorf("save job %s: %w", st.ID, err)
	}
	return nil
}

func (s *CacheJobStore) GetStatus(ctx context.Context, id string) (*models.BacktestJobStatus, error) {
	var st models.BacktestJobStatus
	err := s.cache.Get(ctx, cache.GenerateKey("job", id), &st)
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil, fmt.Errorf("%w: %s", models.ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &st, nil
}
