package forecasters

import (
	"context"
	"fmt"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
)

// Guard converts panics raised inside a variant into failure results.
func Guard(f domsvc.Forecaster) domsvc.Forecaster {
	if _, ok := f.(guarded); ok {
		return f
	}
	return guarded{f}
}

type guarded struct {
	domsvc.Forecaster
}

func (g guarded) Train(ctx context.Context, series models.PriceSeries) (res models.ModelResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.FailedModel(g.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	return g.Forecaster.Train(ctx, series)
}

func (g guarded) Predict(ctx context.Context, series models.PriceSeries, horizon int) (res models.PredictionResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.FailedPrediction(g.Name(), fmt.Errorf("panic: %v", r))
		}
	}()
	return g.Forecaster.Predict(ctx, series, horizon)
}
