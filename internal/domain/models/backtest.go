package models

import "fmt"

// TestPeriod labels the held-out window at the end of the series.
type TestPeriod string

const (
	TestCurrentMonth   TestPeriod = "current_month"
	TestCurrent3Months TestPeriod = "current_3months"
)

var testPeriodDays = map[TestPeriod]int{
	TestCurrentMonth:   30,
	TestCurrent3Months: 90,
}

// Days returns the window length in bars.
func (p TestPeriod) Days() (int, bool) {
	d, ok := testPeriodDays[p]
	return d, ok
}

// Lookback labels the training window preceding the test window.
type Lookback string

const (
	Lookback1Month  Lookback = "1month"
	Lookback2Months Lookback = "2months"
	Lookback3Months Lookback = "3months"
	Lookback6Months Lookback = "6months"
	Lookback1Year   Lookback = "1year"
)

var lookbackDays = map[Lookback]int{
	Lookback1Month:  30,
	Lookback2Months: 60,
	Lookback3Months: 90,
	Lookback6Months: 180,
	Lookback1Year:   365,
}

// Days returns the window length in bars.
func (l Lookback) Days() (int, bool) {
	d, ok := lookbackDays[l]
	return d, ok
}

// SplitRatio labels the train/validation split of the training pool.
type SplitRatio string

const (
	Split80_20 SplitRatio = "80_20"
	Split70_30 SplitRatio = "70_30"
)

var splitRatios = map[SplitRatio]float64{
	Split80_20: 0.8,
	Split70_30: 0.7,
}

// Ratio returns the fraction of the pool assigned to training.
func (s SplitRatio) Ratio() (float64, bool) {
	r, ok := splitRatios[s]
	return r, ok
}

// BacktestConfig identifies one backtest run.
type BacktestConfig struct {
	TestPeriod    TestPeriod `json:"test_period" yaml:"test_period"`
	TrainLookback Lookback   `json:"train_lookback" yaml:"train_lookback"`
	Split         SplitRatio `json:"split_ratio" yaml:"split_ratio"`
}

// Validate checks that every label is known.
func (c BacktestConfig) Validate() error {
	if _, ok := c.TestPeriod.Days(); !ok {
		return fmt.Errorf("%w: unknown test period %q", ErrInvalidConfig, c.TestPeriod)
	}
	if _, ok := c.TrainLookback.Days(); !ok {
		return fmt.Errorf("%w: unknown train lookback %q", ErrInvalidConfig, c.TrainLookback)
	}
	if _, ok := c.Split.Ratio(); !ok {
		return fmt.Errorf("%w: unknown split ratio %q", ErrInvalidConfig, c.Split)
	}
	return nil
}

// Key renders the configuration as used in summary tables.
func (c BacktestConfig) Key() string {
	return fmt.Sprintf("%s_train%s_split%s", c.TestPeriod, c.TrainLookback, c.Split)
}

// Grid returns every combination of the given labels, in nested order.
func Grid(tests []TestPeriod, lookbacks []Lookback, splits []SplitRatio) []BacktestConfig {
	out := make([]BacktestConfig, 0, len(tests)*len(lookbacks)*len(splits))
	for _, t := range tests {
		for _, l := range lookbacks {
			for _, s := range splits {
				out = append(out, BacktestConfig{TestPeriod: t, TrainLookback: l, Split: s})
			}
		}
	}
	return out
}

// DefaultGrid is the default configuration search space.
func DefaultGrid() []BacktestConfig {
	return Grid(
		[]TestPeriod{TestCurrentMonth, TestCurrent3Months},
		[]Lookback{Lookback1Month, Lookback3Months, Lookback6Months},
		[]SplitRatio{Split80_20, Split70_30},
	)
}

// PartitionedDataset holds three disjoint chronological slices.
type PartitionedDataset struct {
	Train      PriceSeries
	Validation PriceSeries
	Test       PriceSeries
}

// TrainingSet returns train followed by validation.
func (d PartitionedDataset) TrainingSet() PriceSeries {
	out := make(PriceSeries, 0, len(d.Train)+len(d.Validation))
	out = append(out, d.Train...)
	return append(out, d.Validation...)
}

// Summary describes the slices for reporting.
func (d PartitionedDataset) Summary() *DatasetSummary {
	s := &DatasetSummary{
		TrainSize:      len(d.Train),
		ValidationSize: len(d.Validation),
		TestSize:       len(d.Test),
		TestActuals:    d.Test.Closes(),
		TestDates:      make([]string, len(d.Test)),
	}
	if len(d.Train) > 0 {
		s.TrainStart = FormatDate(d.Train[0].Date)
		s.TrainEnd = FormatDate(d.Train[len(d.Train)-1].Date)
	}
	if len(d.Validation) > 0 {
		s.ValidationStart = FormatDate(d.Validation[0].Date)
		s.ValidationEnd = FormatDate(d.Validation[len(d.Validation)-1].Date)
	}
	if len(d.Test) > 0 {
		s.TestStart = FormatDate(d.Test[0].Date)
		s.TestEnd = FormatDate(d.Test[len(d.Test)-1].Date)
	}
	for i, b := range d.Test {
		s.TestDates[i] = FormatDate(b.Date)
	}
	return s
}

// DatasetSummary is the reporting view of a PartitionedDataset.
type DatasetSummary struct {
	TrainStart      string    `json:"train_start,omitempty"`
	TrainEnd        string    `json:"train_end,omitempty"`
	ValidationStart string    `json:"val_start,omitempty"`
	ValidationEnd   string    `json:"val_end,omitempty"`
	TestStart       string    `json:"test_start,omitempty"`
	TestEnd         string    `json:"test_end,omitempty"`
	TrainSize       int       `json:"train_size"`
	ValidationSize  int       `json:"val_size"`
	TestSize        int       `json:"test_size"`
	TestDates       []string  `json:"test_dates"`
	TestActuals     []float64 `json:"test_actual"`
}

// BacktestRunResult is the outcome of one configuration.
type BacktestRunResult struct {
	Config      BacktestConfig              `json:"config"`
	ConfigKey   string                      `json:"config_str"`
	Predictions map[string]PredictionResult `json:"predictions,omitempty"`
	Metrics     map[string]AccuracyMetrics  `json:"metrics,omitempty"`
	Data        *DatasetSummary             `json:"data_info,omitempty"`
	Error       string                      `json:"error,omitempty"`
}

// Failed reports whether the run could not be evaluated.
func (r BacktestRunResult) Failed() bool { return r.Error != "" }

// BestConfig is the winning configuration for a single model.
type BestConfig struct {
	Config    BacktestConfig  `json:"config"`
	ConfigKey string          `json:"config_str"`
	Metrics   AccuracyMetrics `json:"metrics"`
}

// SummaryRow is one (configuration, model) row of a comparison.
type SummaryRow struct {
	ConfigKey     string          `json:"config"`
	TestPeriod    TestPeriod      `json:"test_period"`
	TrainLookback Lookback        `json:"train_lookback"`
	Split         SplitRatio      `json:"split_ratio"`
	Model         string          `json:"model"`
	Metrics       AccuracyMetrics `json:"metrics"`
}

// ComparisonResult aggregates runs across configurations.
type ComparisonResult struct {
	Runs        []BacktestRunResult   `json:"all_results"`
	BestConfigs map[string]BestConfig `json:"best_configs"`
	Summary     []SummaryRow          `json:"summary_table"`
	Adopted     *BacktestConfig       `json:"adopted_config,omitempty"`
}

// Best returns the winning configuration for model.
func (c *ComparisonResult) Best(model string) (BestConfig, bool) {
	if c == nil {
		return BestConfig{}, false
	}
	b, ok := c.BestConfigs[model]
	return b, ok
}

// FutureProjection is a forecast beyond the last historical date.
type FutureProjection struct {
	Horizon             string                      `json:"prediction_period"`
	DaysAhead           int                         `json:"days_ahead"`
	Config              BacktestConfig              `json:"config"`
	StartDate           string                      `json:"start_date"`
	EndDate             string                      `json:"end_date"`
	LastHistoricalDate  string                      `json:"last_historical_date"`
	LastHistoricalPrice float64                     `json:"last_historical_price"`
	Dates               []string                    `json:"dates"`
	Predictions         map[string]PredictionResult `json:"predictions"`
	Ensemble            *EnsembleResult             `json:"ensemble,omitempty"`
}
