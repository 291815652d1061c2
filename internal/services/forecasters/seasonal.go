package forecasters

import (
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/services/features"
)

// NewSeasonal returns an additive seasonal-trend regressor: close is modelled
// as a linear trend in calendar time plus a day-of-week effect. Forecast
// dates are consecutive calendar days after the context's last date, and the
// level is anchored on the context's last close.
func NewSeasonal(name string) *localModel {
	if name == "" {
		name = string(KindSeasonal)
	}
	return &localModel{
		name:     name,
		kind:     KindSeasonal,
		lookback: 1,
		minTrain: 14,
		features: []string{"close", "trend", "day_of_week"},
		fit:      fitSeasonal,
	}
}

type seasonalState struct {
	origin  time.Time
	weekday map[time.Weekday]int // column index of each non-baseline weekday
	beta    []float64
	sigma   float64
}

func fitSeasonal(series models.PriceSeries) (fitted, map[string]interface{}, error) {
	st := seasonalState{origin: series[0].Date, weekday: map[time.Weekday]int{}}

	// Only weekdays present in training get a column; the first one is the baseline.
	var present [7]bool
	for _, b := range series {
		present[b.Date.Weekday()] = true
	}
	col := 2
	baseline := true
	for d := time.Sunday; d <= time.Saturday; d++ {
		if !present[d] {
			continue
		}
		if baseline {
			baseline = false
			continue
		}
		st.weekday[d] = col
		col++
	}

	X := make([][]float64, len(series))
	y := series.Closes()
	for i, b := range series {
		X[i] = st.row(b.Date, col)
	}
	beta, err := leastSquares(X, y, 1e-9)
	if err != nil {
		return nil, nil, err
	}
	st.beta = beta

	resid := make([]float64, len(y))
	for i := range y {
		resid[i] = y[i] - dot(X[i], beta)
	}
	st.sigma = features.StdDev(resid)

	effects := map[string]float64{}
	for d, c := range st.weekday {
		effects[d.String()] = beta[c]
	}
	return st, map[string]interface{}{
		"trend_per_year":  beta[1],
		"weekday_effects": effects,
		"residual_sigma":  st.sigma,
	}, nil
}

func (s seasonalState) row(date time.Time, width int) []float64 {
	r := make([]float64, width)
	r[0] = 1
	r[1] = date.Sub(s.origin).Hours() / 24 / 365
	if c, ok := s.weekday[date.Weekday()]; ok {
		r[c] = 1
	}
	return r
}

func (s seasonalState) forecast(series models.PriceSeries, horizon int) ([]float64, []float64, []float64, error) {
	last := series[len(series)-1]
	width := len(s.beta)
	offset := last.Close - dot(s.row(last.Date, width), s.beta)

	preds := make([]float64, horizon)
	for i := range preds {
		d := last.Date.AddDate(0, 0, i+1)
		preds[i] = dot(s.row(d, width), s.beta) + offset
	}
	lower, upper := features.Interval(preds, s.sigma)
	return preds, lower, upper, nil
}
