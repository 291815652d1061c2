package forecasters

import (
	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
)

// NewDrift returns a linear-trend model. The slope is fitted by ordinary
// least squares on close versus bar index and extrapolated from the last
// close of the context.
func NewDrift(name string) *localModel {
	if name == "" {
		name = string(KindDrift)
	}
	return &localModel{
		name:     name,
		kind:     KindDrift,
		lookback: 1,
		minTrain: 3,
		features: []string{"close", "trend"},
		fit:      fitDrift,
	}
}

type driftState struct {
	slope float64
	sigma float64
}

func fitDrift(series models.PriceSeries) (fitted, map[string]interface{}, error) {
	closes := series.Closes()
	X := make([][]float64, len(closes))
	for i := range closes {
		X[i] = []float64{1, float64(i)}
	}
	beta, err := leastSquares(X, closes, 0)
	if err != nil {
		return nil, nil, err
	}
	resid := make([]float64, len(closes))
	for i, c := range closes {
		resid[i] = c - dot(X[i], beta)
	}
	st := driftState{slope: beta[1], sigma: features.StdDev(resid)}
	return st, map[string]interface{}{
		"intercept":      beta[0],
		"slope":          beta[1],
		"residual_sigma": st.sigma,
	}, nil
}

func (s driftState) forecast(series models.PriceSeries, horizon int) ([]float64, []float64, []float64, error) {
	last := series[len(series)-1].Close
	preds := make([]float64, horizon)
	for i := range preds {
		preds[i] = last + s.slope*float64(i+1)
	}
	lower, upper := features.Interval(preds, s.sigma)
	return preds, lower, upper, nil
}
