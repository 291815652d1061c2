package forecasters

import (
	"math"
	"math/rand"
	"strconv"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
)

const (
	defaultBags = 25
	defaultLags = 5
	baggingSeed = 42
)

// BaggingOption configures the bagging regressor.
type BaggingOption func(*baggingConfig)

type baggingConfig struct {
	bags int
	lags int
	seed int64
}

// WithBags sets the number of bootstrap aggregates.
func WithBags(n int) BaggingOption {
	return func(c *baggingConfig) {
		if n > 0 {
			c.bags = n
		}
	}
}

// WithLags sets the autoregressive order.
func WithLags(n int) BaggingOption {
	return func(c *baggingConfig) {
		if n > 0 {
			c.lags = n
		}
	}
}

// WithSeed fixes the bootstrap sampler.
func WithSeed(seed int64) BaggingOption {
	return func(c *baggingConfig) { c.seed = seed }
}

// NewBagging returns a bootstrap-aggregated autoregressive regressor on
// lagged log returns. Each bag is fitted on a resampled set of lag rows, each
// bag's price path is rolled forward independently, and the forecast is the
// mean path. The interval is pred ± 1.96·std·sqrt(step), where std combines
// the spread across bags with the in-sample residual volatility.
func NewBagging(name string, opts ...BaggingOption) *localModel {
	if name == "" {
		name = string(KindBagging)
	}
	cfg := baggingConfig{bags: defaultBags, lags: defaultLags, seed: baggingSeed}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &localModel{
		name:     name,
		kind:     KindBagging,
		lookback: cfg.lags + 1,
		minTrain: 3*cfg.lags + 2,
		features: laggedReturnNames(cfg.lags),
		fit: func(series models.PriceSeries) (fitted, map[string]interface{}, error) {
			return fitBagging(series, cfg)
		},
	}
}

type baggingState struct {
	lags        int
	coefs       [][]float64 // per bag: intercept then lag weights
	residReturn float64
}

func fitBagging(series models.PriceSeries, cfg baggingConfig) (fitted, map[string]interface{}, error) {
	returns := features.LogReturns(series.Closes())
	rows, ys := features.Lagged(returns, cfg.lags)
	if len(rows) < cfg.lags+1 {
		return nil, nil, errTooFewSamples
	}
	design := make([][]float64, len(rows))
	for i, r := range rows {
		design[i] = append([]float64{1}, r...)
	}

	rng := rand.New(rand.NewSource(cfg.seed))
	st := baggingState{lags: cfg.lags, coefs: make([][]float64, 0, cfg.bags)}
	bx := make([][]float64, len(design))
	by := make([]float64, len(ys))
	for b := 0; b < cfg.bags; b++ {
		for i := range bx {
			j := rng.Intn(len(design))
			bx[i] = design[j]
			by[i] = ys[j]
		}
		beta, err := leastSquares(bx, by, 1e-6)
		if err != nil {
			continue
		}
		st.coefs = append(st.coefs, beta)
	}
	if len(st.coefs) == 0 {
		return nil, nil, errSingular
	}

	resid := make([]float64, len(ys))
	for i := range ys {
		resid[i] = ys[i] - st.meanReturn(design[i])
	}
	st.residReturn = features.StdDev(resid)
	return st, map[string]interface{}{
		"bags":            len(st.coefs),
		"lags":            cfg.lags,
		"residual_return": st.residReturn,
	}, nil
}

func (s baggingState) meanReturn(row []float64) float64 {
	sum := 0.0
	for _, c := range s.coefs {
		sum += dot(c, row)
	}
	return sum / float64(len(s.coefs))
}

func (s baggingState) forecast(series models.PriceSeries, horizon int) ([]float64, []float64, []float64, error) {
	returns := features.LogReturns(series.Closes())
	if len(returns) < s.lags {
		return nil, nil, nil, errShortContext
	}
	last := series[len(series)-1].Close

	paths := make([][]float64, len(s.coefs))
	for b, beta := range s.coefs {
		hist := append([]float64(nil), returns[len(returns)-s.lags:]...)
		price := last
		path := make([]float64, horizon)
		row := make([]float64, s.lags+1)
		for h := 0; h < horizon; h++ {
			row[0] = 1
			for k := 0; k < s.lags; k++ {
				row[k+1] = hist[len(hist)-1-k]
			}
			r := dot(beta, row)
			price *= math.Exp(r)
			path[h] = price
			hist = append(hist, r)
		}
		paths[b] = path
	}

	preds := make([]float64, horizon)
	lower := make([]float64, horizon)
	upper := make([]float64, horizon)
	step := make([]float64, len(paths))
	for h := 0; h < horizon; h++ {
		for b := range paths {
			step[b] = paths[b][h]
		}
		mean := features.Mean(step)
		spread := features.StdDev(step)
		std := math.Sqrt(spread*spread + (mean*s.residReturn)*(mean*s.residReturn))
		w := features.Z95 * std * math.Sqrt(float64(h+1))
		preds[h] = mean
		lower[h] = mean - w
		upper[h] = mean + w
	}
	return preds, lower, upper, nil
}

func laggedReturnNames(lags int) []string {
	out := make([]string, 0, lags+1)
	out = append(out, "log_return")
	for k := 1; k <= lags; k++ {
		out = append(out, "log_return_lag_"+strconv.Itoa(k))
	}
	return out
}
