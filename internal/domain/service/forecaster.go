package service

import (
	"context"

	"FinCast/internal/domain/models"
)

// Forecaster is the contract every model variant implements.
//
// Train fits internal state from series only and fully replaces any previous
// parameters. Failures are reported in the result, never returned or panicked.
// Predict produces exactly horizon values with bounds from the given context;
// it reports failure when the model is untrained or the context is shorter
// than its lookback.
type Forecaster interface {
	Name() string
	Train(ctx context.Context, series models.PriceSeries) models.ModelResult
	Predict(ctx context.Context, series models.PriceSeries, horizon int) models.PredictionResult
	Describe() models.ModelInfo
}
