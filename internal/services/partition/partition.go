package partition

import (
	"fmt"
	"math"

	"FinCast/internal/domain/models"
)

// Partition splits series into train, validation and test slices.
//
// Test is the last testPeriod bars. The training pool is the trainLookback
// bars immediately before test, or whatever history exists when fewer are
// available. Only an empty pool is an error. The pool is cut at floor(len*splitRatio) into train (earlier)
// and validation (later). The returned slices share the series' backing array.
func Partition(series models.PriceSeries, testPeriod, trainLookback int, splitRatio float64) (models.PartitionedDataset, error) {
	var ds models.PartitionedDataset
	if testPeriod <= 0 || trainLookback <= 0 {
		return ds, fmt.Errorf("partition: test period and lookback must be positive, got %d and %d", testPeriod, trainLookback)
	}
	if splitRatio <= 0 || splitRatio > 1 {
		return ds, fmt.Errorf("partition: split ratio must be in (0, 1], got %v", splitRatio)
	}
	if len(series) <= testPeriod {
		return ds, &models.InsufficientDataError{
			Required:  testPeriod + 1,
			Available: len(series),
			Reason:    "no history before the test period",
		}
	}

	testStart := len(series) - testPeriod
	poolStart := testStart - trainLookback
	if poolStart < 0 {
		poolStart = 0
	}
	pool := series[poolStart:testStart]

	// tolerance keeps 90*0.7 at 63 rather than 62.99999999999999
	cut := int(math.Floor(float64(len(pool))*splitRatio + 1e-9))
	ds.Train = pool[:cut:cut]
	ds.Validation = pool[cut:len(pool):len(pool)]
	ds.Test = series[testStart:]
	return ds, nil
}

// PartitionConfig resolves the labels of cfg and partitions series.
func PartitionConfig(series models.PriceSeries, cfg models.BacktestConfig) (models.PartitionedDataset, error) {
	if err := cfg.Validate(); err != nil {
		return models.PartitionedDataset{}, fmt.Errorf("partition: %w", err)
	}
	test, _ := cfg.TestPeriod.Days()
	lookback, _ := cfg.TrainLookback.Days()
	ratio, _ := cfg.Split.Ratio()
	return Partition(series, test, lookback, ratio)
}

// Tail returns the most recent n bars, or the whole series when shorter.
func Tail(series models.PriceSeries, n int) models.PriceSeries {
	if n <= 0 {
		return nil
	}
	if len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}
