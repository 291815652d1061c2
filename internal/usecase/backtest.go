package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/internal/services/accuracy"
	"FinCast/internal/services/partition"
	"FinCast/pkg/logger"
)

// Engine drives walk-forward backtests over an Orchestrator. Each
// train-then-predict sequence holds the run lock so that no other run can
// retrain the models in between.
type Engine struct {
	orch    *Orchestrator
	log     *logger.Logger
	metrics domrepo.Metrics

	run sync.Mutex
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineMetrics records run latencies.
func WithEngineMetrics(m domrepo.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(orch *Orchestrator, log *logger.Logger, opts ...EngineOption) *Engine {
	if log == nil {
		log = logger.NewNop()
	}
	e := &Engine{orch: orch, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Orchestrator returns the orchestrator driven by e.
func (e *Engine) Orchestrator() *Orchestrator { return e.orch }

// Train fits every model on series under the run lock.
func (e *Engine) Train(ctx context.Context, series models.PriceSeries) map[string]models.ModelResult {
	e.run.Lock()
	defer e.run.Unlock()
	start := time.Now()
	defer e.observe("train", start)
	return e.orch.TrainAll(ctx, series)
}

// RunSingle evaluates cfg on series: it partitions, trains on train and
// validation, predicts len(test) steps and scores every model and the
// ensemble against the test closes. Models that fail to predict, or return
// fewer than len(test) values, are left out of the run.
func (e *Engine) RunSingle(ctx context.Context, series models.PriceSeries, cfg models.BacktestConfig) (*models.BacktestRunResult, error) {
	e.run.Lock()
	defer e.run.Unlock()
	return e.runSingle(ctx, series, cfg)
}

func (e *Engine) runSingle(ctx context.Context, series models.PriceSeries, cfg models.BacktestConfig) (*models.BacktestRunResult, error) {
	start := time.Now()
	defer e.observe("run_single", start)

	ds, err := partition.PartitionConfig(series, cfg)
	if err != nil {
		return nil, fmt.Errorf("backtest %s: %w", cfg.Key(), err)
	}
	training := ds.TrainingSet()
	horizon := len(ds.Test)
	actual := ds.Test.Closes()

	e.orch.TrainAll(ctx, training)
	per, ens, ensErr := e.orch.PredictWithEnsemble(ctx, training, horizon)

	run := &models.BacktestRunResult{
		Config:      cfg,
		ConfigKey:   cfg.Key(),
		Predictions: make(map[string]models.PredictionResult, len(per)+1),
		Metrics:     make(map[string]models.AccuracyMetrics, len(per)+1),
		Data:        ds.Summary(),
	}
	for _, name := range e.orch.Models() {
		p, ok := per[name]
		if !ok || !p.Success {
			continue
		}
		aligned, ok := p.Truncate(horizon)
		if !ok {
			e.log.Warn("short forecast omitted",
				logger.String("model", name),
				logger.Int("want", horizon),
				logger.Int("got", len(p.Predictions)),
			)
			continue
		}
		run.Predictions[name] = aligned
		run.Metrics[name] = accuracy.Compute(actual, aligned.Predictions)
	}
	if ensErr == nil {
		run.Predictions[EnsembleName] = ens.PredictionResult
		run.Metrics[EnsembleName] = accuracy.Compute(actual, ens.Predictions)
	}

	e.log.Info("backtest run complete",
		logger.String("config", run.ConfigKey),
		logger.Int("train_size", len(training)),
		logger.Int("test_size", horizon),
		logger.Int("models_scored", len(run.Metrics)),
		logger.Duration("elapsed_ms", time.Since(start)),
	)
	return run, nil
}

// CompareConfigurations runs every configuration independently and picks,
// per model, the configuration with the lowest RMSE. The first configuration
// wins ties. A failed run is recorded and the loop continues; when every run
// fails the result is returned together with the joined run errors.
//
// Comparing never retrains the orchestrator on the winner. Call
// AdoptBestConfiguration for that.
func (e *Engine) CompareConfigurations(ctx context.Context, series models.PriceSeries, configs []models.BacktestConfig) (*models.ComparisonResult, error) {
	if len(configs) == 0 {
		return nil, models.ErrEmptyConfigurationSet
	}
	e.run.Lock()
	defer e.run.Unlock()

	cmp := &models.ComparisonResult{
		Runs:        make([]models.BacktestRunResult, 0, len(configs)),
		BestConfigs: map[string]models.BestConfig{},
	}
	names := append(e.orch.Models(), EnsembleName)
	var errs []error
	for _, cfg := range configs {
		if err := ctx.Err(); err != nil {
			return cmp, fmt.Errorf("compare configurations: %w", err)
		}
		run, err := e.runSingle(ctx, series, cfg)
		if err != nil {
			errs = append(errs, err)
			e.log.Warn("backtest run failed", logger.String("config", cfg.Key()), logger.Error(err))
			cmp.Runs = append(cmp.Runs, models.BacktestRunResult{Config: cfg, ConfigKey: cfg.Key(), Error: err.Error()})
			continue
		}
		cmp.Runs = append(cmp.Runs, *run)

		for _, name := range names {
			m, ok := run.Metrics[name]
			if !ok {
				continue
			}
			cmp.Summary = append(cmp.Summary, models.SummaryRow{
				ConfigKey:     run.ConfigKey,
				TestPeriod:    cfg.TestPeriod,
				TrainLookback: cfg.TrainLookback,
				Split:         cfg.Split,
				Model:         name,
				Metrics:       m,
			})
			if math.IsNaN(m.RMSE) {
				continue
			}
			if best, ok := cmp.BestConfigs[name]; !ok || m.RMSE < best.Metrics.RMSE {
				cmp.BestConfigs[name] = models.BestConfig{Config: cfg, ConfigKey: run.ConfigKey, Metrics: m}
			}
		}
	}

	if len(errs) == len(configs) {
		return cmp, fmt.Errorf("compare configurations: every run failed: %w", errors.Join(errs...))
	}
	return cmp, nil
}

// AdoptBestConfiguration retrains the orchestrator on the train and
// validation slices of the ensemble's winning configuration so that later
// performance queries reflect it. It returns nil when the ensemble never won.
func (e *Engine) AdoptBestConfiguration(ctx context.Context, series models.PriceSeries, cmp *models.ComparisonResult) (*models.BacktestConfig, error) {
	best, ok := cmp.Best(EnsembleName)
	if !ok {
		return nil, nil
	}
	e.run.Lock()
	defer e.run.Unlock()

	ds, err := partition.PartitionConfig(series, best.Config)
	if err != nil {
		return nil, fmt.Errorf("adopt %s: %w", best.ConfigKey, err)
	}
	e.orch.TrainAll(ctx, ds.TrainingSet())
	cfg := best.Config
	cmp.Adopted = &cfg
	e.log.Info("adopted best configuration",
		logger.String("config", best.ConfigKey),
		logger.Float64("rmse", best.Metrics.RMSE),
	)
	return &cfg, nil
}

// ProjectFuture retrains on the most recent train-lookback bars of series and
// forecasts the horizon beyond the last date. Test period and split of cfg are
// not used. Positions are dated as consecutive calendar days. Only models that
// produced a full forecast appear in Predictions.
func (e *Engine) ProjectFuture(ctx context.Context, series models.PriceSeries, cfg models.BacktestConfig, horizonLabel string) (*models.FutureProjection, error) {
	days, err := models.HorizonDays(horizonLabel)
	if err != nil {
		return nil, err
	}
	lookback, ok := cfg.TrainLookback.Days()
	if !ok {
		return nil, fmt.Errorf("project future: unknown train lookback %q", cfg.TrainLookback)
	}
	last, ok := series.Last()
	if !ok {
		return nil, &models.InsufficientDataError{Required: 1, Available: 0, Reason: "empty series"}
	}

	e.run.Lock()
	defer e.run.Unlock()
	start := time.Now()
	defer e.observe("project_future", start)

	training := partition.Tail(series, lookback)
	e.orch.TrainAll(ctx, training)
	per, ens, err := e.orch.PredictWithEnsemble(ctx, training, days)
	if err != nil {
		return nil, fmt.Errorf("project future: %w", err)
	}

	dates := make([]string, days)
	for i := range dates {
		dates[i] = models.FormatDate(last.Date.AddDate(0, 0, i+1))
	}
	p := &models.FutureProjection{
		Horizon:             horizonLabel,
		DaysAhead:           days,
		Config:              cfg,
		StartDate:           dates[0],
		EndDate:             dates[days-1],
		LastHistoricalDate:  models.FormatDate(last.Date),
		LastHistoricalPrice: last.Close,
		Dates:               dates,
		Predictions:         make(map[string]models.PredictionResult, len(per)),
		Ensemble:            ens,
	}
	for name, r := range per {
		if !r.Success {
			continue
		}
		aligned, ok := r.Truncate(days)
		if !ok {
			e.log.Warn("short forecast omitted",
				logger.String("model", name),
				logger.Int("want", days),
				logger.Int("got", len(r.Predictions)),
			)
			continue
		}
		p.Predictions[name] = aligned
	}
	e.log.Info("future projection complete",
		logger.String("horizon", horizonLabel),
		logger.Int("train_size", len(training)),
		logger.Strings("models_used", ens.ModelsUsed),
	)
	return p, nil
}

func (e *Engine) observe(op string, start time.Time) {
	if e.metrics != nil {
		e.metrics.RecordLatency(op, time.Since(start).Seconds())
	}
}
