package forecasters

import (
	"math"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
)

// NewNaive returns a model that repeats the last observed close. The interval
// scales the spread of one-step changes seen in training.
func NewNaive(name string) *localModel {
	if name == "" {
		name = string(KindNaive)
	}
	return &localModel{
		name:     name,
		kind:     KindNaive,
		lookback: 1,
		minTrain: 2,
		features: []string{"close"},
		fit:      fitNaive,
	}
}

type naiveState struct {
	sigma float64
}

func fitNaive(series models.PriceSeries) (fitted, map[string]interface{}, error) {
	sigma := features.StdDev(features.Diffs(series.Closes()))
	return naiveState{sigma: sigma}, map[string]interface{}{"step_sigma": sigma}, nil
}

func (s naiveState) forecast(series models.PriceSeries, horizon int) ([]float64, []float64, []float64, error) {
	last := series[len(series)-1].Close
	preds := make([]float64, horizon)
	for i := range preds {
		preds[i] = last
	}
	lower, upper := features.Interval(preds, s.sigma)
	return preds, lower, upper, nil
}

func finiteAll(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
