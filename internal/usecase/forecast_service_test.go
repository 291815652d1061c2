package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/repository"
	"FinCast/internal/services/forecasters"
	"FinCast/pkg/cache"
	"FinCast/pkg/logger"
	"FinCast/pkg/queue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStore map[string]models.PriceSeries

func (m mapStore) GetDailyBars(_ context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	s, ok := m[symbol]
	if !ok {
		return nil, models.ErrUnknownSymbol
	}
	return s.Between(from, to), nil
}

type recordingSinks struct {
	mu          sync.Mutex
	summaries   map[string][]models.SummaryRow
	comparisons int
	projections int
	failStore   bool
}

func (r *recordingSinks) StoreSummary(_ context.Context, symbol string, rows []models.SummaryRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStore {
		return errors.New("clickhouse unavailable")
	}
	if r.summaries == nil {
		r.summaries = map[string][]models.SummaryRow{}
	}
	r.summaries[symbol] = rows
	return nil
}

func (r *recordingSinks) PublishComparison(context.Context, string, *models.ComparisonResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.comparisons++
	return nil
}

func (r *recordingSinks) PublishProjection(context.Context, string, *models.FutureProjection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projections++
	return nil
}

func (r *recordingSinks) Close() error { return nil }

func localFactory() (*Orchestrator, error) {
	fs, weights, err := forecasters.Build(forecasters.DefaultLocalSpecs(), forecasters.RemoteOptions{})
	if err != nil {
		return nil, err
	}
	return NewOrchestrator(fs, weights)
}

func wavySeries(n int) models.PriceSeries {
	closes := rising(n, 100, 160)
	for i := range closes {
		closes[i] += float64(i%5) * 0.3
	}
	return dailySeries(closes)
}

func newService(t *testing.T, opts ...ServiceOption) (*ForecastService, *recordingSinks, cache.Service) {
	t.Helper()
	sinks := &recordingSinks{}
	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	store := mapStore{"AAPL": wavySeries(300), "TINY": wavySeries(10)}
	base := []ServiceOption{WithRunStore(sinks), WithResultPublisher(sinks), WithSymbolLock(mc, time.Minute)}
	return NewForecastService(store, localFactory, append(base, opts...)...), sinks, mc
}

func TestForecastServiceTrainThenPredict(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	_, err := svc.Predictions(ctx, "AAPL", nil)
	assert.ErrorIs(t, err, models.ErrNoTrainedModels)
	_, err = svc.Performance(ctx, "AAPL")
	assert.ErrorIs(t, err, models.ErrNoTrainedModels)

	tr, err := svc.Train(ctx, "aapl", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", tr.Symbol)
	assert.Equal(t, 300, tr.TotalDays)
	assert.Equal(t, "2023-01-02", tr.StartDate)
	require.Len(t, tr.Results, 4)
	for name, r := range tr.Results {
		assert.True(t, r.Success, name)
	}

	preds, err := svc.Predictions(ctx, "AAPL", []string{"1m", "3m"})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.Len(t, preds[0].Ensemble.Predictions, 21)
	assert.Len(t, preds[1].Ensemble.Predictions, 63)

	ranked, err := svc.Performance(ctx, "AAPL")
	require.NoError(t, err)
	assert.Len(t, ranked, 5)
}

func TestForecastServiceTrainErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, mc := newService(t)

	_, err := svc.Train(ctx, "MSFT", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, models.ErrUnknownSymbol)

	from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.Train(ctx, "AAPL", from, time.Time{})
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	ok, err := mc.TryLock(ctx, cache.GenerateKey("lock", "AAPL"), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = svc.Train(ctx, "AAPL", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, models.ErrSymbolBusy)
}

func TestForecastServiceBacktest(t *testing.T) {
	ctx := context.Background()
	svc, sinks, mc := newService(t)
	configs := []models.BacktestConfig{
		{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback3Months, Split: models.Split80_20},
		{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback6Months, Split: models.Split70_30},
	}

	cmp, err := svc.Backtest(ctx, "AAPL", configs)
	require.NoError(t, err)
	require.Len(t, cmp.Runs, 2)
	require.NotNil(t, cmp.Adopted)
	assert.Equal(t, cmp.BestConfigs[EnsembleName].Config, *cmp.Adopted)

	assert.Len(t, sinks.summaries["AAPL"], len(cmp.Summary))
	assert.Equal(t, 1, sinks.comparisons)

	ok, _ := mc.Exists(ctx, cache.GenerateKey("lock", "AAPL"))
	assert.False(t, ok, "lock released")

	_, err = svc.Performance(ctx, "AAPL")
	assert.NoError(t, err)

	_, err = svc.Backtest(ctx, "AAPL", []models.BacktestConfig{{TestPeriod: "weekly"}})
	assert.ErrorIs(t, err, models.ErrInvalidConfig)

	_, err = svc.Backtest(ctx, "TINY", configs)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
}

func TestForecastServiceBacktestSurvivesSinkFailure(t *testing.T) {
	svc, sinks, _ := newService(t)
	sinks.failStore = true
	cmp, err := svc.Backtest(context.Background(), "AAPL", []models.BacktestConfig{
		{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split80_20},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, cmp.Summary)
	assert.Equal(t, 1, sinks.comparisons)
}

func TestForecastServicePredictFuture(t *testing.T) {
	ctx := context.Background()
	svc, sinks, _ := newService(t)
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback3Months, Split: models.Split80_20}

	res, err := svc.PredictFuture(ctx, "AAPL", cfg, "1month")
	require.NoError(t, err)
	assert.Len(t, res.HistoricalTail, 30)
	assert.Equal(t, 30, res.Projection.DaysAhead)
	assert.Equal(t, 1, sinks.projections)

	last, err := svc.LatestPrice(ctx, "AAPL")
	require.NoError(t, err)
	assert.Equal(t, models.FormatDate(last.Date), res.Projection.LastHistoricalDate)

	_, err = svc.PredictFuture(ctx, "AAPL", cfg, "1week")
	assert.ErrorIs(t, err, models.ErrUnknownHorizon)
}

func TestForecastServiceWeightsAndModels(t *testing.T) {
	svc, _, _ := newService(t)

	infos, err := svc.Models("AAPL")
	require.NoError(t, err)
	require.Len(t, infos, 4)
	assert.Equal(t, "naive", infos[0].Name)

	w, err := svc.UpdateWeights(context.Background(), "AAPL", map[string]float64{"naive": 0, "drift": 1, "seasonal": 1, "bagging": 2})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, w["bagging"], 1e-12)

	_, err = svc.UpdateWeights(context.Background(), "AAPL", map[string]float64{"lstm": 1})
	assert.ErrorIs(t, err, models.ErrUnknownModel)

	_, err = svc.UpdateWeights(context.Background(), "AAPL", map[string]float64{"naive": -1})
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestBacktestJobLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, _, mc := newService(t)
	q := queue.NewMemoryQueue(logger.NewNop(), &queue.Config{Workers: 1})
	jobs := NewBacktestJobHandler(svc, repository.NewCacheJobStore(mc, time.Minute), q, nil)
	q.RegisterJob(jobs)
	require.NoError(t, q.Start())
	defer func() { _ = q.Stop(ctx) }()

	ok, err := jobs.Submit(ctx, models.BacktestRequest{
		Symbol: "aapl", TestPeriods: []string{"current_month"}, Lookbacks: []string{"3months"}, Splits: []string{"80_20"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, ok.State)
	assert.Equal(t, "AAPL", ok.Symbol)

	bad, err := jobs.Submit(ctx, models.BacktestRequest{Symbol: "TINY"})
	require.NoError(t, err)

	waitFor := func(id string, want models.JobState) *models.BacktestJobStatus {
		var st *models.BacktestJobStatus
		require.Eventually(t, func() bool {
			st, err = jobs.Status(ctx, id)
			return err == nil && st.State == want
		}, 30*time.Second, 20*time.Millisecond)
		return st
	}

	done := waitFor(ok.ID, models.JobDone)
	require.NotNil(t, done.Result)
	assert.Len(t, done.Result.Runs, 1)

	failed := waitFor(bad.ID, models.JobFailed)
	assert.Contains(t, failed.Error, "insufficient data")

	_, err = jobs.Status(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrJobNotFound)
}
