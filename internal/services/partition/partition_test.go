package partition

import (
	"testing"
	"time"

	"FinCast/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dailySeries(n int) models.PriceSeries {
	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	s := make(models.PriceSeries, n)
	for i := range s {
		s[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Close: float64(100 + i)}
	}
	return s
}

func TestPartitionWindows(t *testing.T) {
	cases := []struct {
		name      string
		n         int
		test      int
		lookback  int
		ratio     float64
		wantTrain int
		wantVal   int
	}{
		{"80_20 exact", 120, 30, 90, 0.8, 72, 18},
		{"70_30 with unused history", 400, 30, 90, 0.7, 63, 27},
		{"quarter test", 300, 90, 180, 0.8, 144, 36},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := dailySeries(tc.n)
			ds, err := Partition(s, tc.test, tc.lookback, tc.ratio)
			require.NoError(t, err)

			assert.Len(t, ds.Test, tc.test)
			assert.Len(t, ds.Train, tc.wantTrain)
			assert.Len(t, ds.Validation, tc.wantVal)

			// test is the most recent window
			assert.Equal(t, s[len(s)-1].Date, ds.Test[len(ds.Test)-1].Date)
			// strict ordering train < validation < test
			assert.True(t, ds.Train[len(ds.Train)-1].Date.Before(ds.Validation[0].Date))
			assert.True(t, ds.Validation[len(ds.Validation)-1].Date.Before(ds.Test[0].Date))
			// contiguous suffix
			assert.Equal(t, ds.Validation[len(ds.Validation)-1].Date.AddDate(0, 0, 1), ds.Test[0].Date)
			assert.Equal(t, ds.Train[len(ds.Train)-1].Date.AddDate(0, 0, 1), ds.Validation[0].Date)
		})
	}
}

func TestPartitionShortPoolUsesAvailableHistory(t *testing.T) {
	s := dailySeries(300)
	ds, err := PartitionConfig(s, models.BacktestConfig{
		TestPeriod:    models.TestCurrentMonth,
		TrainLookback: models.Lookback1Year,
		Split:         models.Split80_20,
	})
	require.NoError(t, err)
	assert.Len(t, ds.Test, 30)
	assert.Len(t, ds.Train, 216)
	assert.Len(t, ds.Validation, 54)
	assert.Equal(t, s[0], ds.Train[0])

	ds, err = Partition(dailySeries(31), 30, 90, 0.8)
	require.NoError(t, err)
	assert.Empty(t, ds.Train)
	assert.Len(t, ds.Validation, 1)
	assert.Len(t, ds.TrainingSet(), 1)
}

func TestPartitionInsufficientData(t *testing.T) {
	_, err := Partition(dailySeries(30), 30, 90, 0.8)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	var ide *models.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 31, ide.Required)
	assert.Equal(t, 30, ide.Available)
}

func TestPartitionRejectsBadArguments(t *testing.T) {
	_, err := Partition(dailySeries(200), 0, 90, 0.8)
	assert.Error(t, err)
	_, err = Partition(dailySeries(200), 30, 90, 1.5)
	assert.Error(t, err)
}

func TestPartitionDoesNotAliasAppends(t *testing.T) {
	s := dailySeries(120)
	ds, err := Partition(s, 30, 90, 0.8)
	require.NoError(t, err)

	valFirst := ds.Validation[0]
	_ = append(ds.Train, models.PriceBar{Close: -1})
	assert.Equal(t, valFirst, ds.Validation[0])
}

func TestPartitionConfig(t *testing.T) {
	s := dailySeries(200)
	ds, err := PartitionConfig(s, models.BacktestConfig{
		TestPeriod:    models.TestCurrentMonth,
		TrainLookback: models.Lookback2Months,
		Split:         models.Split70_30,
	})
	require.NoError(t, err)
	assert.Len(t, ds.Test, 30)
	assert.Len(t, ds.Train, 42)
	assert.Len(t, ds.Validation, 18)
	assert.Len(t, ds.TrainingSet(), 60)

	_, err = PartitionConfig(s, models.BacktestConfig{TestPeriod: "yesterday"})
	assert.Error(t, err)
}

func TestTail(t *testing.T) {
	s := dailySeries(10)
	assert.Len(t, Tail(s, 3), 3)
	assert.Equal(t, s[9], Tail(s, 3)[2])
	assert.Len(t, Tail(s, 50), 10)
	assert.Nil(t, Tail(s, 0))
}
