package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"text/tabwriter"

	"FinCast/internal/domain/models"

	"github.com/spf13/cobra"
)

var (
	btTests     []string
	btLookbacks []string
	btSplits    []string
	btOut       string
)

// backtestCmd compares configurations and writes the summary table.
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Compare backtest configurations on a CSV of daily bars",
	Long: `Run every combination of test period, train lookback and split ratio,
score each model and the ensemble, and write one summary row per
(configuration, model).

Examples:
  fincast backtest --csv data/AAPL.csv
  fincast backtest --csv data/AAPL.csv --test current_month --lookback 2months,6months --out summary.csv`,
	RunE: runBacktest,
}

func init() {
	rootCmd.AddCommand(backtestCmd)
	backtestCmd.Flags().StringSliceVar(&btTests, "test", []string{"current_month", "current_3months"}, "test periods")
	backtestCmd.Flags().StringSliceVar(&btLookbacks, "lookback", []string{"1month", "3months", "6months"}, "train lookbacks")
	backtestCmd.Flags().StringSliceVar(&btSplits, "split", []string{"80_20", "70_30"}, "train/validation split ratios")
	backtestCmd.Flags().StringVar(&btOut, "out", "", "summary CSV path (stdout when empty)")
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	configs := models.BacktestRequest{TestPeriods: btTests, Lookbacks: btLookbacks, Splits: btSplits}.Configs()
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	engine, series, symbol, err := loadEngine()
	if err != nil {
		return err
	}
	cmp, err := engine.CompareConfigurations(context.Background(), series, configs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if btOut != "" {
		f, err := os.Create(btOut)
		if err != nil {
			return fmt.Errorf("create %s: %w", btOut, err)
		}
		defer f.Close()
		out = f
	}
	if err := writeSummary(out, cmp.Summary); err != nil {
		return err
	}
	if btOut != "" {
		printBest(cmd.OutOrStdout(), symbol, cmp)
	}
	return nil
}

// writeSummary writes the comparison table. Undefined metrics are left empty.
func writeSummary(w io.Writer, rows []models.SummaryRow) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"config", "test_period", "train_lookback", "split_ratio", "model", "rmse", "mae", "mape", "direction_accuracy", "sample_count"})
	for _, r := range rows {
		m := r.Metrics
		_ = cw.Write([]string{
			r.ConfigKey, string(r.TestPeriod), string(r.TrainLookback), string(r.Split), r.Model,
			num(m.RMSE), num(m.MAE), num(m.MAPE), num(m.DirectionAccuracy), strconv.Itoa(m.SampleCount),
		})
	}
	cw.Flush()
	return cw.Error()
}

func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func printBest(w io.Writer, symbol string, cmp *models.ComparisonResult) {
	names := make([]string, 0, len(cmp.BestConfigs))
	for name := range cmp.BestConfigs {
		names = append(names, name)
	}
	sort.Strings(names)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\tBEST CONFIG\tRMSE\tMAPE\n", symbol)
	for _, name := range names {
		b := cmp.BestConfigs[name]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", name, b.ConfigKey, num(b.Metrics.RMSE), num(b.Metrics.MAPE))
	}
	_ = tw.Flush()
}
