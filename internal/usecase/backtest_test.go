package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	domsvc "FinCast/internal/domain/service"
	"FinCast/internal/services/forecasters"
	"FinCast/internal/services/partition"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T, fs ...domsvc.Forecaster) *Engine {
	t.Helper()
	o, err := NewOrchestrator(fs, nil)
	require.NoError(t, err)
	return NewEngine(o, nil)
}

func localEngine(t *testing.T) *Engine {
	t.Helper()
	fs, weights, err := forecasters.Build(forecasters.DefaultLocalSpecs(), forecasters.RemoteOptions{})
	require.NoError(t, err)
	o, err := NewOrchestrator(fs, weights)
	require.NoError(t, err)
	return NewEngine(o, nil)
}

func TestRunSingleLinearSeries(t *testing.T) {
	e := localEngine(t)
	series := dailySeries(rising(400, 100, 200))
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback3Months, Split: models.Split80_20}

	run, err := e.RunSingle(context.Background(), series, cfg)
	require.NoError(t, err)
	assert.False(t, run.Failed())
	assert.Equal(t, "current_month_train3months_split80_20", run.ConfigKey)

	require.NotNil(t, run.Data)
	assert.Equal(t, 72, run.Data.TrainSize)
	assert.Equal(t, 18, run.Data.ValidationSize)
	assert.Equal(t, 30, run.Data.TestSize)
	assert.Len(t, run.Data.TestDates, 30)

	drift, ok := run.Metrics["drift"]
	require.True(t, ok)
	assert.Less(t, drift.RMSE, 1e-6)
	assert.Less(t, drift.MAE, 1e-6)
	assert.InDelta(t, 100, drift.DirectionAccuracy, 1e-9)
	assert.Equal(t, 30, drift.SampleCount)

	ens, ok := run.Metrics[EnsembleName]
	require.True(t, ok)
	assert.GreaterOrEqual(t, ens.DirectionAccuracy, 0.0)
	assert.LessOrEqual(t, ens.DirectionAccuracy, 100.0)
	for name, p := range run.Predictions {
		assert.Len(t, p.Predictions, 30, name)
	}

	trained := e.Orchestrator().LastResults()
	assert.Equal(t, 90, trained["naive"].Diagnostics["train_size"])
}

func TestRunSingleAlignsForecastLengths(t *testing.T) {
	e := newEngine(t,
		&stubModel{name: "long", level: 5, emit: 45},
		&stubModel{name: "short", level: 6, emit: 3},
		&stubModel{name: "broken", failTrain: true},
	)
	series := dailySeries(rising(100, 1, 2))
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split70_30}

	run, err := e.RunSingle(context.Background(), series, cfg)
	require.NoError(t, err)
	require.Contains(t, run.Predictions, "long")
	assert.Len(t, run.Predictions["long"].Predictions, 30)
	assert.Len(t, run.Predictions["long"].UpperBound, 30)
	assert.NotContains(t, run.Metrics, "short")
	assert.NotContains(t, run.Metrics, "broken")
	assert.Contains(t, run.Metrics, EnsembleName)
}

func TestRunSingleInsufficientData(t *testing.T) {
	e := localEngine(t)
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrent3Months, TrainLookback: models.Lookback1Year, Split: models.Split80_20}
	_, err := e.RunSingle(context.Background(), dailySeries(rising(90, 1, 2)), cfg)
	var insufficient *models.InsufficientDataError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 91, insufficient.Required)
	assert.Equal(t, 90, insufficient.Available)

	run, err := e.RunSingle(context.Background(), dailySeries(rising(300, 100, 200)), cfg)
	require.NoError(t, err)
	assert.Equal(t, 168, run.Data.TrainSize)
	assert.Equal(t, 42, run.Data.ValidationSize)
}

func TestRunSingleDegenerateSeries(t *testing.T) {
	e := localEngine(t)
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback2Months, Split: models.Split80_20}
	run, err := e.RunSingle(context.Background(), dailySeries(make([]float64, 120)), cfg)
	require.NoError(t, err)
	assert.Empty(t, run.Metrics)
	for name, r := range e.Orchestrator().LastResults() {
		assert.False(t, r.Success, name)
	}
}

// flatTail rises to 200 and then stays flat for the last 40 bars.
func flatTail() models.PriceSeries {
	closes := append(rising(260, 100, 200), make([]float64, 40)...)
	for i := 260; i < len(closes); i++ {
		closes[i] = 200
	}
	return dailySeries(closes)
}

func TestCompareSelectsFlatWindowForNaive(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t, forecasters.NewNaive(""), forecasters.NewDrift(""))
	series := flatTail()

	a := models.BacktestConfig{TestPeriod: models.TestCurrent3Months, TrainLookback: models.Lookback1Month, Split: models.Split80_20}
	b := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split80_20}
	c := models.BacktestConfig{TestPeriod: models.TestCurrent3Months, TrainLookback: models.Lookback3Months, Split: models.Split70_30}

	cmp, err := e.CompareConfigurations(ctx, series, []models.BacktestConfig{a, b, c})
	require.NoError(t, err)
	require.Len(t, cmp.Runs, 3)
	assert.Len(t, cmp.Summary, 9)

	assert.Equal(t, 0.0, cmp.Runs[1].Metrics["naive"].RMSE)
	assert.Greater(t, cmp.Runs[0].Metrics["naive"].RMSE, 0.0)
	assert.Greater(t, cmp.Runs[2].Metrics["naive"].RMSE, 0.0)

	best, ok := cmp.Best("naive")
	require.True(t, ok)
	assert.Equal(t, b, best.Config)
	assert.Equal(t, 0.0, best.Metrics.RMSE)
	assert.Nil(t, cmp.Adopted)

	// comparing leaves the last run's training in place
	assert.Equal(t, 90, e.Orchestrator().LastResults()["naive"].Diagnostics["train_size"])

	adopted, err := e.AdoptBestConfiguration(ctx, series, cmp)
	require.NoError(t, err)
	require.NotNil(t, adopted)
	ensBest, ok := cmp.Best(EnsembleName)
	require.True(t, ok)
	assert.Equal(t, ensBest.Config, *adopted)
	assert.Equal(t, adopted, cmp.Adopted)

	ds, err := partition.PartitionConfig(series, *adopted)
	require.NoError(t, err)
	assert.Equal(t, len(ds.TrainingSet()), e.Orchestrator().LastResults()["naive"].Diagnostics["train_size"])
}

func TestCompareTiesKeepFirstConfiguration(t *testing.T) {
	e := newEngine(t, forecasters.NewNaive(""))
	closes := make([]float64, 70)
	for i := range closes {
		closes[i] = 42
	}
	series := dailySeries(closes)
	first := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split80_20}
	second := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split70_30}

	cmp, err := e.CompareConfigurations(context.Background(), series, []models.BacktestConfig{first, second})
	require.NoError(t, err)
	best, ok := cmp.Best("naive")
	require.True(t, ok)
	assert.Equal(t, first, best.Config)
}

func TestCompareFailureSemantics(t *testing.T) {
	ctx := context.Background()
	e := localEngine(t)

	_, err := e.CompareConfigurations(ctx, dailySeries(rising(50, 1, 2)), nil)
	assert.ErrorIs(t, err, models.ErrEmptyConfigurationSet)

	cmp, err := e.CompareConfigurations(ctx, dailySeries(rising(30, 1, 2)), models.DefaultGrid())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInsufficientData)
	require.Len(t, cmp.Runs, 12)
	for _, r := range cmp.Runs {
		assert.True(t, r.Failed())
	}
	assert.Empty(t, cmp.BestConfigs)

	ok := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split80_20}
	tooLong := models.BacktestConfig{TestPeriod: models.TestCurrent3Months, TrainLookback: models.Lookback1Year, Split: models.Split80_20}
	cmp, err = e.CompareConfigurations(ctx, dailySeries(rising(60, 1, 2)), []models.BacktestConfig{tooLong, ok})
	require.NoError(t, err)
	require.Len(t, cmp.Runs, 2)
	assert.True(t, cmp.Runs[0].Failed())
	assert.False(t, cmp.Runs[1].Failed())
	assert.NotEmpty(t, cmp.BestConfigs)
}

func TestRetrainOnDegenerateSeriesAfterRun(t *testing.T) {
	ctx := context.Background()
	e := localEngine(t)
	good := dailySeries(rising(200, 100, 200))
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback2Months, Split: models.Split80_20}

	run, err := e.RunSingle(ctx, good, cfg)
	require.NoError(t, err)
	require.Contains(t, run.Metrics, EnsembleName)

	zeros := dailySeries(make([]float64, 200))
	run, err = e.RunSingle(ctx, zeros, cfg)
	require.NoError(t, err)
	assert.Empty(t, run.Metrics)
	assert.Empty(t, run.Predictions)

	_, err = e.Orchestrator().RankByPerformance()
	assert.ErrorIs(t, err, models.ErrNoTrainedModels)
	_, err = e.Orchestrator().PredictEnsemble(ctx, good, 5)
	assert.ErrorIs(t, err, models.ErrNoSuccessfulModels)

	_, err = e.ProjectFuture(ctx, zeros, cfg, models.Horizon1Month)
	assert.ErrorIs(t, err, models.ErrNoSuccessfulModels)
}

func TestCompareDoesNotReuseEarlierFit(t *testing.T) {
	ctx := context.Background()
	e := localEngine(t)
	closes := rising(200, 100, 150)
	closes[100] = 0
	series := dailySeries(closes)

	clean := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split80_20}
	dirty := models.BacktestConfig{TestPeriod: models.TestCurrent3Months, TrainLookback: models.Lookback1Month, Split: models.Split80_20}

	cmp, err := e.CompareConfigurations(ctx, series, []models.BacktestConfig{clean, dirty})
	require.NoError(t, err)
	require.Len(t, cmp.Runs, 2)
	assert.NotEmpty(t, cmp.Runs[0].Metrics)
	assert.Empty(t, cmp.Runs[1].Metrics)
	assert.Empty(t, cmp.Runs[1].Predictions)
}

func TestAdoptWithoutEnsembleWinner(t *testing.T) {
	e := localEngine(t)
	cfg, err := e.AdoptBestConfiguration(context.Background(), nil, &models.ComparisonResult{})
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestProjectFuture(t *testing.T) {
	ctx := context.Background()
	e := localEngine(t)
	series := dailySeries(rising(100, 100, 150))
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback2Months, Split: models.Split80_20}

	p, err := e.ProjectFuture(ctx, series, cfg, models.Horizon1Month)
	require.NoError(t, err)
	assert.Equal(t, 30, p.DaysAhead)
	require.Len(t, p.Dates, 30)

	last := series[len(series)-1].Date
	for i, d := range p.Dates {
		assert.Equal(t, last.AddDate(0, 0, i+1).Format(models.DateLayout), d)
	}
	assert.Equal(t, p.Dates[0], p.StartDate)
	assert.Equal(t, p.Dates[29], p.EndDate)
	assert.Equal(t, models.FormatDate(last), p.LastHistoricalDate)
	assert.Equal(t, 150.0, p.LastHistoricalPrice)

	require.NotNil(t, p.Ensemble)
	assert.Len(t, p.Ensemble.Predictions, 30)
	require.NotEmpty(t, p.Predictions)
	for name, r := range p.Predictions {
		assert.True(t, r.Success, name)
		assert.Len(t, r.Predictions, 30, name)
	}
	assert.Equal(t, 60, e.Orchestrator().LastResults()["naive"].Diagnostics["train_size"])
}

func TestProjectFutureOmitsFailedModels(t *testing.T) {
	e := newEngine(t,
		&stubModel{name: "ok", level: 5},
		&stubModel{name: "broken", failTrain: true},
		&stubModel{name: "short", level: 6, emit: 3},
	)
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split80_20}

	p, err := e.ProjectFuture(context.Background(), dailySeries(rising(60, 1, 2)), cfg, models.Horizon1Month)
	require.NoError(t, err)
	assert.Len(t, p.Predictions, 1)
	assert.Contains(t, p.Predictions, "ok")
	assert.Equal(t, []string{"ok"}, p.Ensemble.ModelsUsed)
}

func TestProjectFutureErrors(t *testing.T) {
	ctx := context.Background()
	e := localEngine(t)
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback1Month, Split: models.Split80_20}

	_, err := e.ProjectFuture(ctx, dailySeries(rising(60, 1, 2)), cfg, "fortnight")
	assert.ErrorIs(t, err, models.ErrUnknownHorizon)

	_, err = e.ProjectFuture(ctx, nil, cfg, "1m")
	assert.ErrorIs(t, err, models.ErrInsufficientData)

	_, err = e.ProjectFuture(ctx, dailySeries(make([]float64, 60)), cfg, "1m")
	assert.ErrorIs(t, err, models.ErrNoSuccessfulModels)
}

func TestEngineSerializesConcurrentRuns(t *testing.T) {
	ctx := context.Background()
	e := localEngine(t)
	series := dailySeries(rising(200, 50, 70))
	cfg := models.BacktestConfig{TestPeriod: models.TestCurrentMonth, TrainLookback: models.Lookback2Months, Split: models.Split80_20}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := e.RunSingle(ctx, series, cfg)
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := e.ProjectFuture(ctx, series, cfg, "1m")
			assert.NoError(t, err)
		}()
	}
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("runs did not finish")
	}
}
