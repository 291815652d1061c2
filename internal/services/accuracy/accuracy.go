package accuracy

import (
	"math"

	"FinCast/internal/domain/models"
)

// Compute scores predicted against actual over their common length.
//
//	rmse = sqrt(mean((a-p)^2))
//	mae  = mean(|a-p|)
//	mape = mean(|(a-p)/a|) * 100, over non-zero actuals
//	direction = share of consecutive steps where sign(Δa) == sign(Δp), * 100
//
// Values that cannot be computed are NaN.
func Compute(actual, predicted []float64) models.AccuracyMetrics {
	n := len(actual)
	if len(predicted) < n {
		n = len(predicted)
	}
	m := models.AccuracyMetrics{
		RMSE:              math.NaN(),
		MAE:               math.NaN(),
		MAPE:              math.NaN(),
		DirectionAccuracy: math.NaN(),
		SampleCount:       n,
	}
	if n == 0 {
		return m
	}

	var sq, abs, pct float64
	pctN := 0
	for i := 0; i < n; i++ {
		e := actual[i] - predicted[i]
		sq += e * e
		abs += math.Abs(e)
		if actual[i] != 0 {
			pct += math.Abs(e / actual[i])
			pctN++
		}
	}
	m.RMSE = math.Sqrt(sq / float64(n))
	m.MAE = abs / float64(n)
	if pctN > 0 {
		m.MAPE = pct / float64(pctN) * 100
	}
	if n >= 2 {
		hits := 0
		for i := 1; i < n; i++ {
			if sign(actual[i]-actual[i-1]) == sign(predicted[i]-predicted[i-1]) {
				hits++
			}
		}
		m.DirectionAccuracy = float64(hits) / float64(n-1) * 100
	}
	return m
}

// Mean is the field-wise unweighted mean, skipping NaN values per field.
func Mean(ms []models.AccuracyMetrics) models.AccuracyMetrics {
	var rmse, mae, mape, dir meanAcc
	samples := 0
	for _, m := range ms {
		rmse.add(m.RMSE)
		mae.add(m.MAE)
		mape.add(m.MAPE)
		dir.add(m.DirectionAccuracy)
		samples += m.SampleCount
	}
	out := models.AccuracyMetrics{
		RMSE:              rmse.value(),
		MAE:               mae.value(),
		MAPE:              mape.value(),
		DirectionAccuracy: dir.value(),
	}
	if len(ms) > 0 {
		out.SampleCount = samples / len(ms)
	}
	return out
}

// LessRMSE orders by RMSE ascending with NaN last.
func LessRMSE(a, b models.AccuracyMetrics) bool {
	switch {
	case math.IsNaN(a.RMSE):
		return false
	case math.IsNaN(b.RMSE):
		return true
	default:
		return a.RMSE < b.RMSE
	}
}

type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v float64) {
	if math.IsNaN(v) {
		return
	}
	a.sum += v
	a.n++
}

func (a *meanAcc) value() float64 {
	if a.n == 0 {
		return math.NaN()
	}
	return a.sum / float64(a.n)
}

func sign(x float64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	default:
		return 0
	}
}
