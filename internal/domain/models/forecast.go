package models

import (
	"encoding/json"
	"math"
)

// AccuracyMetrics compares a predicted sequence against actual values.
// Undefined values are NaN and serialize as null.
type AccuracyMetrics struct {
	RMSE              float64
	MAE               float64
	MAPE              float64
	DirectionAccuracy float64
	SampleCount       int
}

type accuracyJSON struct {
	RMSE              *float64 `json:"rmse"`
	MAE               *float64 `json:"mae"`
	MAPE              *float64 `json:"mape"`
	DirectionAccuracy *float64 `json:"direction_accuracy"`
	SampleCount       int      `json:"sample_count"`
}

func (m AccuracyMetrics) MarshalJSON() ([]byte, error) {
	return json.Marshal(accuracyJSON{
		RMSE:              finite(m.RMSE),
		MAE:               finite(m.MAE),
		MAPE:              finite(m.MAPE),
		DirectionAccuracy: finite(m.DirectionAccuracy),
		SampleCount:       m.SampleCount,
	})
}

func (m *AccuracyMetrics) UnmarshalJSON(b []byte) error {
	var raw accuracyJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	m.RMSE = orNaN(raw.RMSE)
	m.MAE = orNaN(raw.MAE)
	m.MAPE = orNaN(raw.MAPE)
	m.DirectionAccuracy = orNaN(raw.DirectionAccuracy)
	m.SampleCount = raw.SampleCount
	return nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func orNaN(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// ModelResult is produced once per training call.
type ModelResult struct {
	Model       string                 `json:"model"`
	Success     bool                   `json:"success"`
	Metrics     *AccuracyMetrics       `json:"metrics,omitempty"`
	Diagnostics map[string]interface{} `json:"diagnostics,omitempty"`
	Error       string                 `json:"error,omitempty"`
}

// FailedModel builds an unsuccessful training result.
func FailedModel(name string, err error) ModelResult {
	return ModelResult{Model: name, Success: false, Error: err.Error()}
}

// PredictionResult holds a forward sequence and its two-sided bounds.
type PredictionResult struct {
	Model       string    `json:"model"`
	Success     bool      `json:"success"`
	Predictions []float64 `json:"predictions,omitempty"`
	LowerBound  []float64 `json:"lower_bound,omitempty"`
	UpperBound  []float64 `json:"upper_bound,omitempty"`
	Error       string    `json:"error,omitempty"`
}

// FailedPrediction builds an unsuccessful prediction result.
func FailedPrediction(name string, err error) PredictionResult {
	return PredictionResult{Model: name, Success: false, Error: err.Error()}
}

// Truncate returns the result cut to exactly n positions.
// It reports false when any sequence is shorter than n.
func (p PredictionResult) Truncate(n int) (PredictionResult, bool) {
	if len(p.Predictions) < n || len(p.LowerBound) < n || len(p.UpperBound) < n {
		return p, false
	}
	p.Predictions = p.Predictions[:n]
	p.LowerBound = p.LowerBound[:n]
	p.UpperBound = p.UpperBound[:n]
	return p, true
}

// EnsembleResult is the weighted combination of the successful models.
type EnsembleResult struct {
	PredictionResult
	ModelsUsed []string                    `json:"models_used"`
	Weights    map[string]float64          `json:"weights"`
	PerModel   map[string]PredictionResult `json:"individual_predictions,omitempty"`
}

// ModelInfo describes a registered model.
type ModelInfo struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Trained  bool     `json:"trained"`
	Lookback int      `json:"lookback"`
	Features []string `json:"features,omitempty"`
	Weight   float64  `json:"weight"`
}

// RankedModel is one row of a performance ranking.
type RankedModel struct {
	Model   string          `json:"model"`
	Metrics AccuracyMetrics `json:"metrics"`
}

// HorizonPredictions holds the ensemble output for one horizon label.
type HorizonPredictions struct {
	Horizon   string          `json:"horizon"`
	DaysAhead int             `json:"days_ahead"`
	Ensemble  *EnsembleResult `json:"ensemble,omitempty"`
	Error     string          `json:"error,omitempty"`
}
