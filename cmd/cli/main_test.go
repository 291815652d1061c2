package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"FinCast/internal/domain/models"
	"FinCast/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeBars(t *testing.T, n int) string {
	t.Helper()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	series := make(models.PriceSeries, n)
	for i := range series {
		c := 50 + float64(i)*0.1 + float64(i%3)*0.4
		series[i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: 10}
	}
	path := filepath.Join(t.TempDir(), "msft.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, repository.WriteCSV(f, series))
	require.NoError(t, f.Close())
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBacktestCommandWritesSummary(t *testing.T) {
	path := writeBars(t, 200)
	outPath := filepath.Join(t.TempDir(), "summary.csv")

	stdout, err := run(t, "backtest", "--csv", path, "--test", "current_month", "--lookback", "2months", "--split", "80_20,70_30", "--out", outPath)
	require.NoError(t, err, stdout)
	assert.Contains(t, stdout, "MSFT")
	assert.Contains(t, stdout, "ensemble")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Greater(t, len(rows), 1)
	assert.Equal(t, "config", rows[0][0])
	assert.Equal(t, "model", rows[0][4])
	assert.Len(t, rows[1], 10)
}

func TestBacktestCommandRejectsBadLabels(t *testing.T) {
	path := writeBars(t, 200)
	_, err := run(t, "backtest", "--csv", path, "--test", "current_month", "--lookback", "2weeks", "--split", "80_20", "--out", "")
	assert.ErrorIs(t, err, models.ErrInvalidConfig)
}

func TestProjectCommand(t *testing.T) {
	path := writeBars(t, 120)
	stdout, err := run(t, "project", "--csv", path, "--horizon", "1m", "--lookback", "3months")
	require.NoError(t, err, stdout)

	var p models.FutureProjection
	require.NoError(t, json.Unmarshal([]byte(stdout), &p))
	assert.Equal(t, 21, p.DaysAhead)
	assert.Len(t, p.Dates, 21)
	assert.Equal(t, "2024-06-28", p.LastHistoricalDate)

	_, err = run(t, "project", "--csv", path, "--horizon", "1week")
	assert.ErrorIs(t, err, models.ErrUnknownHorizon)
}
