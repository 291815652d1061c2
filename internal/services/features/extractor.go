package features

import (
	"math"
)

// TradingDaysPerYear is used to annualize daily statistics.
const TradingDaysPerYear = 252

// Z95 is the two-sided 95% normal quantile used for prediction intervals.
const Z95 = 1.96

// LogReturns computes r_t = ln(C_t / C_{t-1}).
// It returns a slice of length len(closes)-1, or nil if insufficient data.
func LogReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		cur := closes[i]
		if prev <= 0 || cur <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, math.Log(cur/prev))
	}
	return out
}

// Diffs returns consecutive differences x_t - x_{t-1}.
func Diffs(xs []float64) []float64 {
	if len(xs) < 2 {
		return nil
	}
	out := make([]float64, len(xs)-1)
	for i := 1; i < len(xs); i++ {
		out[i-1] = xs[i] - xs[i-1]
	}
	return out
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the sample standard deviation, or 0 below two samples.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)-1))
}

// RealizedVolatility computes annualized realized volatility over the latest window.
func RealizedVolatility(logReturns []float64, window int, barsPerYear float64) float64 {
	if window <= 1 || len(logReturns) < window {
		return 0
	}
	sum := 0.0
	sum2 := 0.0
	for i := len(logReturns) - window; i < len(logReturns); i++ {
		r := logReturns[i]
		sum += r
		sum2 += r * r
	}
	n := float64(window)
	mean := sum / n
	variance := (sum2 - n*mean*mean) / (n - 1)
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance * barsPerYear)
}

// RollingMean returns the trailing mean over window; leading positions use
// whatever history is available.
func RollingMean(xs []float64, window int) []float64 {
	out := make([]float64, len(xs))
	sum := 0.0
	for i, x := range xs {
		sum += x
		if i >= window {
			sum -= xs[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Lagged builds rows of the previous p values for each target index t >= p.
// Row t holds xs[t-1], xs[t-2], ..., xs[t-p].
func Lagged(xs []float64, p int) ([][]float64, []float64) {
	if p <= 0 || len(xs) <= p {
		return nil, nil
	}
	rows := make([][]float64, 0, len(xs)-p)
	ys := make([]float64, 0, len(xs)-p)
	for t := p; t < len(xs); t++ {
		row := make([]float64, p)
		for k := 0; k < p; k++ {
			row[k] = xs[t-1-k]
		}
		rows = append(rows, row)
		ys = append(ys, xs[t])
	}
	return rows, ys
}

// Interval widens each prediction by z·sigma·sqrt(step), step counted from 1.
func Interval(preds []float64, sigma float64) (lower, upper []float64) {
	lower = make([]float64, len(preds))
	upper = make([]float64, len(preds))
	for i, p := range preds {
		w := Z95 * sigma * math.Sqrt(float64(i+1))
		lower[i] = p - w
		upper[i] = p + w
	}
	return lower, upper
}

// AllPositive reports whether every value is strictly positive and finite.
func AllPositive(xs []float64) bool {
	for _, x := range xs {
		if !(x > 0) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
