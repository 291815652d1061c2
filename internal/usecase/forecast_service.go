package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/cache"
	"FinCast/pkg/logger"
)

// historicalTailSize is the number of bars returned with a projection for chart continuity.
const historicalTailSize = 30

// OrchestratorFactory builds a fresh set of models for one symbol.
type OrchestratorFactory func() (*Orchestrator, error)

// TrainResult is the outcome of Train.
type TrainResult struct {
	Symbol    string                        `json:"symbol"`
	Results   map[string]models.ModelResult `json:"training_results"`
	StartDate string                        `json:"actual_start_date"`
	EndDate   string                        `json:"actual_end_date"`
	TotalDays int                           `json:"total_days"`
}

// ProjectionResult is the outcome of PredictFuture.
type ProjectionResult struct {
	Symbol         string                   `json:"symbol"`
	HistoricalTail models.PriceSeries       `json:"historical_tail"`
	Projection     *models.FutureProjection `json:"future_predictions"`
}

// ForecastService serves forecasting operations per symbol. Each symbol owns
// an Engine around its own Orchestrator, created on first use.
type ForecastService struct {
	prices  domrepo.PriceStore
	factory OrchestratorFactory
	runs    domrepo.RunStore
	pub     domrepo.ResultPublisher
	locker  cache.Service
	lockTTL time.Duration
	log     *logger.Logger
	metrics domrepo.Metrics

	mu      sync.Mutex
	engines map[string]*Engine
}

type ServiceOption func(*ForecastService)

// WithRunStore persists comparison summaries.
func WithRunStore(r domrepo.RunStore) ServiceOption {
	return func(s *ForecastService) { s.runs = r }
}

// WithResultPublisher publishes comparisons and projections.
func WithResultPublisher(p domrepo.ResultPublisher) ServiceOption {
	return func(s *ForecastService) { s.pub = p }
}

// WithSymbolLock makes training and backtests take a per-symbol lock in c,
// so that replicas sharing the cache do not retrain the same symbol at once.
func WithSymbolLock(c cache.Service, ttl time.Duration) ServiceOption {
	return func(s *ForecastService) {
		s.locker = c
		s.lockTTL = ttl
	}
}

func WithServiceLogger(l *logger.Logger) ServiceOption {
	return func(s *ForecastService) {
		if l != nil {
			s.log = l
		}
	}
}

func WithServiceMetrics(m domrepo.Metrics) ServiceOption {
	return func(s *ForecastService) { s.metrics = m }
}

func NewForecastService(prices domrepo.PriceStore, factory OrchestratorFactory, opts ...ServiceOption) *ForecastService {
	s := &ForecastService{
		prices:  prices,
		factory: factory,
		lockTTL: 10 * time.Minute,
		log:     logger.NewNop(),
		engines: make(map[string]*Engine),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeSymbol upper-cases and trims a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

func (s *ForecastService) engine(symbol string) (*Engine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.engines[symbol]; ok {
		return e, nil
	}
	orch, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("build models for %s: %w", symbol, err)
	}
	opts := []EngineOption{}
	if s.metrics != nil {
		opts = append(opts, WithEngineMetrics(s.metrics))
	}
	e := NewEngine(orch, s.log.With(logger.String("symbol", symbol)), opts...)
	s.engines[symbol] = e
	return e, nil
}

func (s *ForecastService) series(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	series, err := s.prices.GetDailyBars(ctx, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}
	if err := series.Validate(); err != nil {
		return nil, fmt.Errorf("load %s: %w", symbol, err)
	}
	if last, ok := series.Last(); ok && s.metrics != nil {
		s.metrics.RecordLastPrice(symbol, last.Close)
	}
	return series, nil
}

func (s *ForecastService) lock(ctx context.Context, symbol string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	key := cache.GenerateKey("lock", symbol)
	ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		s.log.Warn("symbol lock unavailable, continuing unlocked", logger.String("symbol", symbol), logger.Error(err))
		return func() {}, nil
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrSymbolBusy, symbol)
	}
	return func() {
		if err := s.locker.Unlock(context.Background(), key); err != nil {
			s.log.Warn("symbol unlock failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}, nil
}

// Train fits every model of symbol on the bars in [from, to]. Zero bounds are open.
func (s *ForecastService) Train(ctx context.Context, symbol string, from, to time.Time) (*TrainResult, error) {
	symbol = NormalizeSymbol(symbol)
	series, err := s.series(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, &models.InsufficientDataError{Required: 1, Available: 0, Reason: "no bars in range"}
	}
	e, err := s.engine(symbol)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, symbol)
	if err != nil {
		return nil, err
	}
	defer unlock()

	results := e.Train(ctx, series)
	return &TrainResult{
		Symbol:    symbol,
		Results:   results,
		StartDate: models.FormatDate(series[0].Date),
		EndDate:   models.FormatDate(series[len(series)-1].Date),
		TotalDays: len(series),
	}, nil
}

// Predictions forecasts every horizon from the full history with the
// currently trained models. The symbol must have been trained or backtested.
func (s *ForecastService) Predictions(ctx context.Context, symbol string, horizons []string) ([]models.HorizonPredictions, error) {
	symbol = NormalizeSymbol(symbol)
	e, err := s.trainedEngine(symbol)
	if err != nil {
		return nil, err
	}
	series, err := s.series(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(horizons) == 0 {
		horizons = models.TradingHorizons()
	}
	return e.Orchestrator().PredictHorizons(ctx, series, horizons), nil
}

// Performance ranks the models of symbol by their last self-evaluation.
func (s *ForecastService) Performance(_ context.Context, symbol string) ([]models.RankedModel, error) {
	symbol = NormalizeSymbol(symbol)
	e, err := s.trainedEngine(symbol)
	if err != nil {
		return nil, err
	}
	return e.Orchestrator().RankByPerformance()
}

func (s *ForecastService) trainedEngine(symbol string) (*Engine, error) {
	s.mu.Lock()
	e, ok := s.engines[symbol]
	s.mu.Unlock()
	if !ok || len(e.Orchestrator().LastResults()) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, models.ErrNoTrainedModels)
	}
	return e, nil
}

// Backtest compares configs on the full history of symbol, adopts the
// ensemble's winner and reports the summary. Persisting and publishing are
// best effort.
func (s *ForecastService) Backtest(ctx context.Context, symbol string, configs []models.BacktestConfig) (*models.ComparisonResult, error) {
	symbol = NormalizeSymbol(symbol)
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	series, err := s.series(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	e, err := s.engine(symbol)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, symbol)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cmp, err := e.CompareConfigurations(ctx, series, configs)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("backtest")
		}
		return cmp, err
	}
	if _, err := e.AdoptBestConfiguration(ctx, series, cmp); err != nil {
		s.log.Warn("adopt best configuration failed", logger.String("symbol", symbol), logger.Error(err))
	}

	if s.runs != nil {
		if err := s.runs.StoreSummary(ctx, symbol, cmp.Summary); err != nil {
			s.reportSinkError("store_summary", symbol, err)
		}
	}
	if s.pub != nil {
		if err := s.pub.PublishComparison(ctx, symbol, cmp); err != nil {
			s.reportSinkError("publish_comparison", symbol, err)
		}
	}
	return cmp, nil
}

// PredictFuture projects horizon days beyond the last bar using cfg's train lookback.
func (s *ForecastService) PredictFuture(ctx context.Context, symbol string, cfg models.BacktestConfig, horizon string) (*ProjectionResult, error) {
	symbol = NormalizeSymbol(symbol)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !models.IsValidHorizon(horizon) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownHorizon, horizon)
	}
	series, err := s.series(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	e, err := s.engine(symbol)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lock(ctx, symbol)
	if err != nil {
		return nil, err
	}
	defer unlock()

	p, err := e.ProjectFuture(ctx, series, cfg, horizon)
	if err != nil {
		return nil, err
	}
	if s.pub != nil {
		if err := s.pub.PublishProjection(ctx, symbol, p); err != nil {
			s.reportSinkError("publish_projection", symbol, err)
		}
	}
	tail := series
	if len(tail) > historicalTailSize {
		tail = tail[len(tail)-historicalTailSize:]
	}
	return &ProjectionResult{Symbol: symbol, HistoricalTail: tail, Projection: p}, nil
}

// LatestPrice returns the most recent bar of symbol.
func (s *ForecastService) LatestPrice(ctx context.Context, symbol string) (models.PriceBar, error) {
	symbol = NormalizeSymbol(symbol)
	series, err := s.series(ctx, symbol, time.Time{}, time.Time{})
	if err != nil {
		return models.PriceBar{}, err
	}
	last, ok := series.Last()
	if !ok {
		return models.PriceBar{}, &models.InsufficientDataError{Required: 1, Available: 0, Reason: "no bars"}
	}
	return last, nil
}

// UpdateWeights merges weights into the ensemble weights of symbol and
// returns the renormalized set.
func (s *ForecastService) UpdateWeights(_ context.Context, symbol string, weights map[string]float64) (map[string]float64, error) {
	e, err := s.engine(NormalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	return e.Orchestrator().SetWeights(weights)
}

// Models describes the registered models of symbol.
func (s *ForecastService) Models(symbol string) ([]models.ModelInfo, error) {
	e, err := s.engine(NormalizeSymbol(symbol))
	if err != nil {
		return nil, err
	}
	return e.Orchestrator().Describe(), nil
}

func (s *ForecastService) reportSinkError(op, symbol string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	s.log.Error("result sink failed", logger.String("op", op), logger.String("symbol", symbol), logger.Error(err))
	if s.metrics != nil {
		s.metrics.RecordError(op)
	}
}
