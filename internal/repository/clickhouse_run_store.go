package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgch "FinCast/pkg/clickhouse"

	"github.com/google/uuid"
)

var _ domrepo.RunStore = (*CHRunStore)(nil)

const summaryTable = "backtest_summary"

// RunSchema returns the DDL for the backtest summary table.
func RunSchema() string {
	return `
        CREATE TABLE IF NOT EXISTS ` + summaryTable + ` (
            run_id             UUID,
            symbol             LowCardinality(String),
            created_at         DateTime64(3, 'UTC'),
            config             String,
            test_period        LowCardinality(String),
            train_lookback     LowCardinality(String),
            split_ratio        LowCardinality(String),
            model              LowCardinality(String),
            rmse               Nullable(Float64),
            mae                Nullable(Float64),
            mape               Nullable(Float64),
            direction_accuracy Nullable(Float64),
            sample_count       UInt32
        ) ENGINE = MergeTree
        ORDER BY (symbol, created_at, model)`
}

// CHRunStore appends comparison summaries to ClickHouse.
type CHRunStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewCHRunStore(ch *pkgch.Client) *CHRunStore {
	return &CHRunStore{db: ch.DB(), now: time.Now}
}

// StoreSummary writes every row of one comparison under a fresh run id.
func (s *CHRunStore) StoreSummary(ctx context.Context, symbol string, rows []models.SummaryRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := summaryBatch(uuid.New(), symbol, s.now().UTC(), rows)
	const q = `INSERT INTO ` + summaryTable + ` (run_id, symbol, created_at, config, test_period, train_lookback,
        split_ratio, model, rmse, mae, mape, direction_accuracy, sample_count) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if err := pkgch.InsertBatch(ctx, s.db, q, batch); err != nil {
		return fmt.Errorf("store summary %s: %w", symbol, err)
	}
	return nil
}

func summaryBatch(runID uuid.UUID, symbol string, at time.Time, rows []models.SummaryRow) [][]interface{} {
	out := make([][]interface{}, 0, len(rows))
	for _, r := range rows {
		out = append(out, []interface{}{
			runID, symbol, at, r.ConfigKey,
			string(r.TestPeriod), string(r.TrainLookback), string(r.Split), r.Model,
			nullable(r.Metrics.RMSE), nullable(r.Metrics.MAE), nullable(r.Metrics.MAPE),
			nullable(r.Metrics.DirectionAccuracy), uint32(r.Metrics.SampleCount),
		})
	}
	return out
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
