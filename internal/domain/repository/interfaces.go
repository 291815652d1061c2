package repository

import (
	"context"
	"time"

	"FinCast/internal/domain/models"
)

// PriceStore provides read-only access to daily price history.
type PriceStore interface {
	GetDailyBars(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error)
}

// RunStore persists backtest summaries for reporting.
type RunStore interface {
	StoreSummary(ctx context.Context, symbol string, rows []models.SummaryRow) error
}

// ResultPublisher fans forecasting results out to downstream consumers.
type ResultPublisher interface {
	PublishComparison(ctx context.Context, symbol string, cmp *models.ComparisonResult) error
	PublishProjection(ctx context.Context, symbol string, p *models.FutureProjection) error
	Close() error
}

// JobStatusStore keeps the latest status of asynchronous backtests.
type JobStatusStore interface {
	SaveStatus(ctx context.Context, st *models.BacktestJobStatus) error
	GetStatus(ctx context.Context, id string) (*models.BacktestJobStatus, error)
}

type Metrics interface {
	RecordTraining(model string, success bool, seconds float64)
	RecordPrediction(model string, success bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
