package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"FinCast/internal/domain/models"
	"FinCast/internal/repository"
	"FinCast/internal/services/forecasters"
	"FinCast/internal/usecase"
	applogger "FinCast/pkg/logger"

	"github.com/spf13/cobra"
)

var (
	csvPath  string
	logLevel string
)

// rootCmd is the base command of the offline forecasting tool.
var rootCmd = &cobra.Command{
	Use:   "fincast",
	Short: "Offline backtesting and projection on daily bar CSV files",
	Long: `fincast runs the forecasting engine against a local CSV of daily bars
(date,open,high,low,close,volume) with the in-process models only.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&csvPath, "csv", "", "daily bar CSV file (required)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level written to stderr")
	_ = rootCmd.MarkPersistentFlagRequired("csv")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEngine reads the CSV and builds an engine over the local models.
func loadEngine() (*usecase.Engine, models.PriceSeries, string, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, "", fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	series, err := repository.ReadCSV(f)
	if err != nil {
		return nil, nil, "", fmt.Errorf("read %s: %w", csvPath, err)
	}

	l, err := applogger.New(&applogger.Config{Level: logLevel, Format: "console", Output: "stderr"})
	if err != nil {
		return nil, nil, "", err
	}
	fs, weights, err := forecasters.Build(forecasters.DefaultLocalSpecs(), forecasters.RemoteOptions{})
	if err != nil {
		return nil, nil, "", err
	}
	orch, err := usecase.NewOrchestrator(fs, weights, usecase.WithOrchestratorLogger(l))
	if err != nil {
		return nil, nil, "", err
	}
	symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(csvPath), filepath.Ext(csvPath)))
	return usecase.NewEngine(orch, l.With(applogger.String("symbol", symbol))), series, symbol, nil
}
