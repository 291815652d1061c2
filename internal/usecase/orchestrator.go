package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/accuracy"
	"FinCast/pkg/logger"
)

// EnsembleName is the pseudo-model under which combined results are reported.
const EnsembleName = "ensemble"

// Orchestrator owns a fixed set of named models and their relative weights.
// Training takes the write lock; inference and reporting take the read lock.
type Orchestrator struct {
	log     *logger.Logger
	metrics domrepo.Metrics

	mu      sync.RWMutex
	order   []string
	models  map[string]domsvc.Forecaster
	weights map[string]float64
	last    map[string]models.ModelResult
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(l *logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.log = l
		}
	}
}

// WithOrchestratorMetrics records per-model training and prediction outcomes.
func WithOrchestratorMetrics(m domrepo.Metrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator registers fs in order. Models without an entry in weights
// get weight 1.
func NewOrchestrator(fs []domsvc.Forecaster, weights map[string]float64, opts ...OrchestratorOption) (*Orchestrator, error) {
	if len(fs) == 0 {
		return nil, fmt.Errorf("orchestrator: no models registered")
	}
	o := &Orchestrator{
		log:     logger.NewNop(),
		order:   make([]string, 0, len(fs)),
		models:  make(map[string]domsvc.Forecaster, len(fs)),
		weights: make(map[string]float64, len(fs)),
	}
	for _, f := range fs {
		name := f.Name()
		if _, dup := o.models[name]; dup {
			return nil, fmt.Errorf("orchestrator: duplicate model %q", name)
		}
		w, ok := weights[name]
		if !ok {
			w = 1
		}
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("orchestrator: invalid weight %v for %s", w, name)
		}
		o.order = append(o.order, name)
		o.models[name] = f
		o.weights[name] = w
	}
	for _, opt := range opts {
		opt(o)
	}
	return o, nil
}

type trainItem struct {
	name string
	res  models.ModelResult
	dur  time.Duration
}

// TrainAll trains every model on series concurrently. A failing model never
// aborts the others; every result is kept as the last training results.
func (o *Orchestrator) TrainAll(ctx context.Context, series models.PriceSeries) map[string]models.ModelResult {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan trainItem, len(o.order))
	var wg sync.WaitGroup
	for _, name := range o.order {
		wg.Add(1)
		go func(name string, f domsvc.Forecaster) {
			defer wg.Done()
			start := time.Now()
			ch <- trainItem{name: name, res: f.Train(ctx, series), dur: time.Since(start)}
		}(name, o.models[name])
	}
	go func() { wg.Wait(); close(ch) }()

	results := make(map[string]models.ModelResult, len(o.order))
	for it := range ch {
		if it.res.Model == "" {
			it.res.Model = it.name
		}
		results[it.name] = it.res
		if o.metrics != nil {
			o.metrics.RecordTraining(it.name, it.res.Success, it.dur.Seconds())
		}
		if !it.res.Success {
			o.log.Warn("model training failed",
				logger.String("model", it.name),
				logger.String("reason", it.res.Error),
			)
		}
	}
	o.last = results
	return copyResults(results)
}

// LastResults returns the results of the most recent TrainAll, or nil.
func (o *Orchestrator) LastResults() map[string]models.ModelResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.last == nil {
		return nil
	}
	return copyResults(o.last)
}

// PredictOne delegates to the named model.
func (o *Orchestrator) PredictOne(ctx context.Context, name string, series models.PriceSeries, horizon int) (models.PredictionResult, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	f, ok := o.models[name]
	if !ok {
		return models.PredictionResult{}, &models.UnknownModelError{Name: name}
	}
	p := f.Predict(ctx, series, horizon)
	o.recordPrediction(name, p.Success)
	return p, nil
}

// PredictAll runs every model once and returns the results keyed by name.
func (o *Orchestrator) PredictAll(ctx context.Context, series models.PriceSeries, horizon int) map[string]models.PredictionResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.predictAll(ctx, series, horizon)
}

// PredictEnsemble combines the successful models by weighted sum, with
// weights renormalized over the successful subset. Lower and upper bounds are
// combined the same way as the point predictions.
func (o *Orchestrator) PredictEnsemble(ctx context.Context, series models.PriceSeries, horizon int) (models.EnsembleResult, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.combine(o.predictAll(ctx, series, horizon), horizon)
}

// PredictWithEnsemble runs every model once and combines the same outputs
// into the ensemble. The ensemble is nil when no model succeeded.
func (o *Orchestrator) PredictWithEnsemble(ctx context.Context, series models.PriceSeries, horizon int) (map[string]models.PredictionResult, *models.EnsembleResult, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	per := o.predictAll(ctx, series, horizon)
	ens, err := o.combine(per, horizon)
	if err != nil {
		return per, nil, err
	}
	return per, &ens, nil
}

// predictAll must be called with the read lock held.
func (o *Orchestrator) predictAll(ctx context.Context, series models.PriceSeries, horizon int) map[string]models.PredictionResult {
	type item struct {
		name string
		res  models.PredictionResult
	}
	ch := make(chan item, len(o.order))
	var wg sync.WaitGroup
	for _, name := range o.order {
		wg.Add(1)
		go func(name string, f domsvc.Forecaster) {
			defer wg.Done()
			ch <- item{name: name, res: f.Predict(ctx, series, horizon)}
		}(name, o.models[name])
	}
	go func() { wg.Wait(); close(ch) }()

	out := make(map[string]models.PredictionResult, len(o.order))
	for it := range ch {
		if it.res.Model == "" {
			it.res.Model = it.name
		}
		out[it.name] = it.res
		o.recordPrediction(it.name, it.res.Success)
	}
	return out
}

// combine must be called with the read lock held.
func (o *Orchestrator) combine(per map[string]models.PredictionResult, horizon int) (models.EnsembleResult, error) {
	used := make([]string, 0, len(per))
	for _, name := range o.order {
		p, ok := per[name]
		if !ok || !p.Success {
			continue
		}
		if _, ok := p.Truncate(horizon); !ok {
			continue
		}
		used = append(used, name)
	}
	if len(used) == 0 {
		return models.EnsembleResult{}, models.ErrNoSuccessfulModels
	}

	w := Renormalize(o.weights, used)
	preds := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	for _, name := range used {
		p := per[name]
		for i := 0; i < horizon; i++ {
			preds[i] += w[name] * p.Predictions[i]
			lower[i] += w[name] * p.LowerBound[i]
			upper[i] += w[name] * p.UpperBound[i]
		}
	}
	return models.EnsembleResult{
		PredictionResult: models.PredictionResult{
			Model:       EnsembleName,
			Success:     true,
			Predictions: preds,
			LowerBound:  lower,
			UpperBound:  upper,
		},
		ModelsUsed: used,
		Weights:    w,
		PerModel:   per,
	}, nil
}

// Renormalize scales the weights of names so they sum to 1. When every weight
// is zero the names share equally.
func Renormalize(weights map[string]float64, names []string) map[string]float64 {
	out := make(map[string]float64, len(names))
	if len(names) == 0 {
		return out
	}
	total := 0.0
	for _, n := range names {
		total += weights[n]
	}
	for _, n := range names {
		if total <= 0 {
			out[n] = 1 / float64(len(names))
			continue
		}
		out[n] = weights[n] / total
	}
	return out
}

// RankByPerformance orders the successful models of the last training by
// RMSE, ascending. The ensemble entry is the unweighted mean of the
// per-model metrics, an approximation rather than a measured ensemble error.
func (o *Orchestrator) RankByPerformance() ([]models.RankedModel, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var ranked []models.RankedModel
	var all []models.AccuracyMetrics
	for _, name := range o.order {
		r, ok := o.last[name]
		if !ok || !r.Success || r.Metrics == nil {
			continue
		}
		ranked = append(ranked, models.RankedModel{Model: name, Metrics: *r.Metrics})
		all = append(all, *r.Metrics)
	}
	if len(ranked) == 0 {
		return nil, models.ErrNoTrainedModels
	}
	ranked = append(ranked, models.RankedModel{Model: EnsembleName, Metrics: accuracy.Mean(all)})
	sort.SliceStable(ranked, func(i, j int) bool {
		return accuracy.LessRMSE(ranked[i].Metrics, ranked[j].Metrics)
	})
	return ranked, nil
}

// SetWeights replaces the weights of the named models and normalizes the
// full set to sum 1.
func (o *Orchestrator) SetWeights(weights map[string]float64) (map[string]float64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for name, w := range weights {
		if _, ok := o.models[name]; !ok {
			return nil, &models.UnknownModelError{Name: name}
		}
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return nil, fmt.Errorf("%w: weight for %s must be a non-negative number", models.ErrInvalidConfig, name)
		}
	}
	next := make(map[string]float64, len(o.weights))
	for name, w := range o.weights {
		next[name] = w
	}
	for name, w := range weights {
		next[name] = w
	}
	o.weights = Renormalize(next, o.order)
	return copyWeights(o.weights), nil
}

// Weights returns a copy of the current relative weights.
func (o *Orchestrator) Weights() map[string]float64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return copyWeights(o.weights)
}

// Models returns the registered names in registration order.
func (o *Orchestrator) Models() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return append([]string(nil), o.order...)
}

// Describe returns every model's self-description with its current weight.
func (o *Orchestrator) Describe() []models.ModelInfo {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]models.ModelInfo, 0, len(o.order))
	for _, name := range o.order {
		info := o.models[name].Describe()
		info.Name = name
		info.Weight = o.weights[name]
		out = append(out, info)
	}
	return out
}

// PredictHorizons runs the ensemble once per horizon label. Unknown labels and
// ensemble failures are reported per entry.
func (o *Orchestrator) PredictHorizons(ctx context.Context, series models.PriceSeries, labels []string) []models.HorizonPredictions {
	out := make([]models.HorizonPredictions, 0, len(labels))
	for _, label := range labels {
		hp := models.HorizonPredictions{Horizon: label}
		days, err := models.HorizonDays(label)
		if err != nil {
			hp.Error = err.Error()
			out = append(out, hp)
			continue
		}
		hp.DaysAhead = days
		ens, err := o.PredictEnsemble(ctx, series, days)
		if err != nil {
			hp.Error = err.Error()
		} else {
			hp.Ensemble = &ens
		}
		out = append(out, hp)
	}
	return out
}

func (o *Orchestrator) recordPrediction(name string, ok bool) {
	if o.metrics != nil {
		o.metrics.RecordPrediction(name, ok)
	}
}

func copyResults(in map[string]models.ModelResult) map[string]models.ModelResult {
	out := make(map[string]models.ModelResult, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyWeights(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
