package forecasters

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/accuracy"
	"FinCast/internal/services/features"
)

// holdoutRatio is the chronological share of training input used for fitting
// during self-evaluation.
const holdoutRatio = 0.8

var (
	errNotTrained      = errors.New("model not trained")
	errNonPositive     = errors.New("series contains non-positive prices")
	errInvalidHorizon  = errors.New("horizon must be positive")
	errShortContext    = errors.New("context shorter than model lookback")
	errTooFewSamples   = errors.New("insufficient training samples")
	errForecastLength  = errors.New("forecast length mismatch")
	errNonFiniteOutput = errors.New("non-finite forecast")
)

// fitted is the trained parameter set of an in-process variant.
type fitted interface {
	forecast(series models.PriceSeries, horizon int) (preds, lower, upper []float64, err error)
}

// fitFunc estimates parameters from a training series.
type fitFunc func(series models.PriceSeries) (fitted, map[string]interface{}, error)

// localModel carries the behaviour shared by every in-process variant:
// input validation, holdout self-evaluation and guarded access to state.
type localModel struct {
	name     string
	kind     Kind
	lookback int
	minTrain int
	features []string
	fit      fitFunc

	mu    sync.RWMutex
	state fitted
}

func (m *localModel) Name() string { return m.name }

// Train replaces any previous parameters. A failed fit leaves the model
// untrained.
func (m *localModel) Train(ctx context.Context, series models.PriceSeries) models.ModelResult {
	m.mu.Lock()
	m.state = nil
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return models.FailedModel(m.name, err)
	}
	if len(series) < m.minTrain {
		return models.FailedModel(m.name, fmt.Errorf("%w: need %d, have %d", errTooFewSamples, m.minTrain, len(series)))
	}
	closes := series.Closes()
	if !features.AllPositive(closes) {
		return models.FailedModel(m.name, errNonPositive)
	}

	var metrics *models.AccuracyMetrics
	cut := int(float64(len(series)) * holdoutRatio)
	if cut >= m.minTrain && cut >= m.lookback && cut < len(series) {
		if st, _, err := m.fit(series[:cut]); err == nil {
			if preds, _, _, err := st.forecast(series[:cut], len(series)-cut); err == nil {
				mm := accuracy.Compute(closes[cut:], preds)
				metrics = &mm
			}
		}
	}

	st, diag, err := m.fit(series)
	if err != nil {
		return models.FailedModel(m.name, err)
	}
	m.mu.Lock()
	m.state = st
	m.mu.Unlock()

	if diag == nil {
		diag = map[string]interface{}{}
	}
	diag["train_size"] = len(series)
	diag["train_start"] = models.FormatDate(series[0].Date)
	diag["train_end"] = models.FormatDate(series[len(series)-1].Date)
	if metrics != nil {
		diag["holdout_size"] = len(series) - cut
	}
	return models.ModelResult{Model: m.name, Success: true, Metrics: metrics, Diagnostics: diag}
}

func (m *localModel) Predict(ctx context.Context, series models.PriceSeries, horizon int) models.PredictionResult {
	m.mu.RLock()
	st := m.state
	m.mu.RUnlock()

	switch {
	case ctx.Err() != nil:
		return models.FailedPrediction(m.name, ctx.Err())
	case st == nil:
		return models.FailedPrediction(m.name, errNotTrained)
	case horizon <= 0:
		return models.FailedPrediction(m.name, errInvalidHorizon)
	case len(series) < m.lookback:
		return models.FailedPrediction(m.name, fmt.Errorf("%w: need %d, have %d", errShortContext, m.lookback, len(series)))
	}

	preds, lower, upper, err := st.forecast(series, horizon)
	if err != nil {
		return models.FailedPrediction(m.name, err)
	}
	if len(preds) != horizon || len(lower) != horizon || len(upper) != horizon {
		return models.FailedPrediction(m.name, errForecastLength)
	}
	if !finiteAll(preds) || !finiteAll(lower) || !finiteAll(upper) {
		return models.FailedPrediction(m.name, errNonFiniteOutput)
	}
	return models.PredictionResult{
		Model:       m.name,
		Success:     true,
		Predictions: preds,
		LowerBound:  lower,
		UpperBound:  upper,
	}
}

func (m *localModel) Describe() models.ModelInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return models.ModelInfo{
		Name:     m.name,
		Kind:     string(m.kind),
		Trained:  m.state != nil,
		Lookback: m.lookback,
		Features: m.features,
	}
}

var _ domsvc.Forecaster = (*localModel)(nil)
