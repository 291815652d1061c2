package models

import (
	"time"

	"FinCast/pkg/util"
)

// Requests for forecasting HTTP endpoints. Defined in domain for reuse by the CLI and queue jobs.

type TrainRequest struct {
	Symbol    string `json:"symbol" validate:"required"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
}

// Range parses the optional date bounds. Unset bounds are zero.
func (r TrainRequest) Range() (from, to time.Time) {
	return util.ParseDateDefault(r.StartDate, time.Time{}), util.ParseDateDefault(r.EndDate, time.Time{})
}

type SymbolRequest struct {
	Symbol string `param:"symbol" validate:"required"`
}

type PredictionsRequest struct {
	Symbol   string `param:"symbol" validate:"required"`
	Horizons string `query:"horizons" default:"1m,2m,3m,6m"`
}

// Labels splits the comma-separated horizon list.
func (r PredictionsRequest) Labels() []string {
	return util.SplitList(r.Horizons)
}

type WeightsRequest struct {
	Symbol  string             `param:"symbol" validate:"required"`
	Weights map[string]float64 `json:"weights" validate:"required,min=1,dive,gte=0"`
}

type BacktestRequest struct {
	Symbol      string   `json:"symbol" validate:"required"`
	TestPeriods []string `json:"test_periods" validate:"omitempty,dive,oneof=current_month current_3months"`
	Lookbacks   []string `json:"train_lookbacks" validate:"omitempty,dive,oneof=1month 2months 3months 6months 1year"`
	Splits      []string `json:"split_ratios" validate:"omitempty,dive,oneof=80_20 70_30"`
}

// Configs expands the request into a configuration grid. Missing dimensions
// fall back to the default grid's values.
func (r BacktestRequest) Configs() []BacktestConfig {
	tests := []TestPeriod{TestCurrentMonth, TestCurrent3Months}
	if len(r.TestPeriods) > 0 {
		tests = tests[:0]
		for _, t := range r.TestPeriods {
			tests = append(tests, TestPeriod(t))
		}
	}
	lookbacks := []Lookback{Lookback1Month, Lookback3Months, Lookback6Months}
	if len(r.Lookbacks) > 0 {
		lookbacks = lookbacks[:0]
		for _, l := range r.Lookbacks {
			lookbacks = append(lookbacks, Lookback(l))
		}
	}
	splits := []SplitRatio{Split80_20, Split70_30}
	if len(r.Splits) > 0 {
		splits = splits[:0]
		for _, s := range r.Splits {
			splits = append(splits, SplitRatio(s))
		}
	}
	return Grid(tests, lookbacks, splits)
}

type PredictFutureRequest struct {
	Symbol        string `json:"symbol" validate:"required"`
	TestPeriod    string `json:"test_period" default:"current_month" validate:"oneof=current_month current_3months"`
	TrainLookback string `json:"train_lookback" default:"2months" validate:"oneof=1month 2months 3months 6months 1year"`
	Split         string `json:"split_ratio" default:"80_20" validate:"oneof=80_20 70_30"`
	Horizon       string `json:"prediction_period" default:"1month" validate:"oneof=1month 3months 1m 2m 3m 6m"`
}

// Config returns the backtest configuration named by the request.
func (r PredictFutureRequest) Config() BacktestConfig {
	return BacktestConfig{
		TestPeriod:    TestPeriod(r.TestPeriod),
		TrainLookback: Lookback(r.TrainLookback),
		Split:         SplitRatio(r.Split),
	}
}

type JobRequest struct {
	ID string `param:"id" validate:"required,uuid"`
}
