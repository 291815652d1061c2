package forecasters

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"

	"github.com/sony/gobreaker"
)

// RemoteOptions configures clients of the external model service.
type RemoteOptions struct {
	BaseURL         string
	Timeout         time.Duration
	Retries         int
	Lookback        int
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// RemoteForecaster delegates training and inference for one model to the
// external model service. The service keeps the fitted parameters; the client
// keeps the handle returned by the last successful training call.
type RemoteForecaster struct {
	name     string
	base     *HTTPServiceBase
	breaker  *gobreaker.CircuitBreaker
	retries  int
	lookback int

	mu      sync.RWMutex
	modelID string
}

// NewRemoteForecaster creates a client for the named service-side model.
func NewRemoteForecaster(name string, opts RemoteOptions) *RemoteForecaster {
	failures := opts.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := opts.BreakerTimeout
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = 60
	}
	st := gobreaker.Settings{
		Name:        "model-service:" + name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= failures },
	}
	return &RemoteForecaster{
		name:     name,
		base:     NewHTTPServiceBase(opts.BaseURL, opts.Timeout),
		breaker:  gobreaker.NewCircuitBreaker(st),
		retries:  opts.Retries,
		lookback: lookback,
	}
}

type remoteBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

type remoteTrainReq struct {
	Series []remoteBar `json:"series"`
}

type remoteTrainResp struct {
	Success     bool                    `json:"success"`
	ModelID     string                  `json:"model_id"`
	Metrics     *models.AccuracyMetrics `json:"metrics"`
	Diagnostics map[string]interface{}  `json:"diagnostics"`
	Error       string                  `json:"error"`
}

type remotePredictReq struct {
	ModelID string      `json:"model_id"`
	Series  []remoteBar `json:"series"`
	Horizon int         `json:"horizon"`
}

type remotePredictResp struct {
	Success     bool      `json:"success"`
	Predictions []float64 `json:"predictions"`
	LowerBound  []float64 `json:"lower_bound"`
	UpperBound  []float64 `json:"upper_bound"`
	Error       string    `json:"error"`
}

func (r *RemoteForecaster) Name() string { return r.name }

// Train forgets any previous remote fit before asking the service for a new one.
func (r *RemoteForecaster) Train(ctx context.Context, series models.PriceSeries) models.ModelResult {
	r.mu.Lock()
	r.modelID = ""
	r.mu.Unlock()

	if len(series) == 0 {
		return models.FailedModel(r.name, errTooFewSamples)
	}
	var resp remoteTrainResp
	err := r.call(ctx, "/models/"+r.name+"/train", remoteTrainReq{Series: toRemote(series)}, &resp)
	if err != nil {
		return models.FailedModel(r.name, err)
	}
	if !resp.Success {
		return models.FailedModel(r.name, &models.ModelFailure{Model: r.name, Reason: resp.Error})
	}
	if resp.ModelID == "" {
		return models.FailedModel(r.name, errors.New("model service returned no model id"))
	}
	r.mu.Lock()
	r.modelID = resp.ModelID
	r.mu.Unlock()
	return models.ModelResult{
		Model:       r.name,
		Success:     true,
		Metrics:     resp.Metrics,
		Diagnostics: resp.Diagnostics,
	}
}

func (r *RemoteForecaster) Predict(ctx context.Context, series models.PriceSeries, horizon int) models.PredictionResult {
	r.mu.RLock()
	id := r.modelID
	r.mu.RUnlock()

	switch {
	case id == "":
		return models.FailedPrediction(r.name, errNotTrained)
	case horizon <= 0:
		return models.FailedPrediction(r.name, errInvalidHorizon)
	case len(series) < r.lookback:
		return models.FailedPrediction(r.name, fmt.Errorf("%w: need %d, have %d", errShortContext, r.lookback, len(series)))
	}

	var resp remotePredictResp
	req := remotePredictReq{ModelID: id, Series: toRemote(series), Horizon: horizon}
	if err := r.call(ctx, "/models/"+r.name+"/predict", req, &resp); err != nil {
		return models.FailedPrediction(r.name, err)
	}
	if !resp.Success {
		return models.FailedPrediction(r.name, &models.ModelFailure{Model: r.name, Reason: resp.Error})
	}
	if len(resp.Predictions) != horizon || len(resp.LowerBound) != horizon || len(resp.UpperBound) != horizon {
		return models.FailedPrediction(r.name, fmt.Errorf("%w: want %d, got %d", errForecastLength, horizon, len(resp.Predictions)))
	}
	return models.PredictionResult{
		Model:       r.name,
		Success:     true,
		Predictions: resp.Predictions,
		LowerBound:  resp.LowerBound,
		UpperBound:  resp.UpperBound,
	}
}

func (r *RemoteForecaster) Describe() models.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return models.ModelInfo{
		Name:     r.name,
		Kind:     string(KindRemote),
		Trained:  r.modelID != "",
		Lookback: r.lookback,
		Features: []string{"open", "high", "low", "close", "volume"},
	}
}

// BreakerState exposes the circuit state for health reporting.
func (r *RemoteForecaster) BreakerState() string { return r.breaker.State().String() }

func (r *RemoteForecaster) call(ctx context.Context, path string, payload, dest interface{}) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.base.PostJSONWithRetry(ctx, path, payload, dest, r.retries)
	})
	if err != nil {
		return fmt.Errorf("model service %s: %w", r.name, err)
	}
	return nil
}

func toRemote(series models.PriceSeries) []remoteBar {
	out := make([]remoteBar, len(series))
	for i, b := range series {
		out[i] = remoteBar{
			Date:   models.FormatDate(b.Date),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}
	return out
}

var _ domsvc.Forecaster = (*RemoteForecaster)(nil)
