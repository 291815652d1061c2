package main

import (
	"context"
	"encoding/json"

	"FinCast/internal/domain/models"

	"github.com/spf13/cobra"
)

var (
	prHorizon  string
	prLookback string
)

// projectCmd forecasts beyond the last bar of the CSV.
var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Project prices beyond the last bar",
	Long: `Retrain on the most recent lookback window and forecast the horizon
beyond the last date. Prints the projection as JSON.

Examples:
  fincast project --csv data/AAPL.csv --horizon 3months --lookback 6months`,
	RunE: runProject,
}

func init() {
	rootCmd.AddCommand(projectCmd)
	projectCmd.Flags().StringVar(&prHorizon, "horizon", models.Horizon1Month, "horizon: 1month, 3months, 1m, 2m, 3m or 6m")
	projectCmd.Flags().StringVar(&prLookback, "lookback", string(models.Lookback2Months), "train lookback")
}

func runProject(cmd *cobra.Command, _ []string) error {
	cfg := models.BacktestConfig{
		TestPeriod:    models.TestCurrentMonth,
		TrainLookback: models.Lookback(prLookback),
		Split:         models.Split80_20,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if _, err := models.HorizonDays(prHorizon); err != nil {
		return err
	}

	engine, series, _, err := loadEngine()
	if err != nil {
		return err
	}
	p, err := engine.ProjectFuture(context.Background(), series, cfg, prHorizon)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(p)
}
