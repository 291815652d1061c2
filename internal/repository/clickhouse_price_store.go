package repository

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgch "FinCast/pkg/clickhouse"
	applogger "FinCast/pkg/logger"
)

var _ domrepo.PriceStore = (*CHPriceStore)(nil)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PriceSchema returns the DDL for the daily bar table.
func PriceSchema(table string) string {
	return fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol LowCardinality(String),
            date   Date,
            open   Float64,
            high   Float64,
            low    Float64,
            close  Float64,
            volume Float64
        ) ENGINE = ReplacingMergeTree
        ORDER BY (symbol, date)`, table)
}

// CHPriceStore reads daily bars from ClickHouse.
type CHPriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

// NewCHPriceStore validates the table name since it is interpolated into SQL.
func NewCHPriceStore(ch *pkgch.Client, table string, l *applogger.Logger) (*CHPriceStore, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &CHPriceStore{db: ch.DB(), table: table, l: l}, nil
}

func (s *CHPriceStore) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	start := time.Now()
	q, args := s.barsQuery(symbol, from, to)
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		s.l.Error("clickhouse daily_bars query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("get daily bars: %w", err)
	}
	defer rows.Close()

	out := make(models.PriceSeries, 0, 512)
	for rows.Next() {
		var b models.PriceBar
		if err := rows.Scan(&b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		b.Date = b.Date.UTC()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse daily_bars ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return normalize(out), nil
}

func (s *CHPriceStore) barsQuery(symbol string, from, to time.Time) (string, []interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT date, open, high, low, close, volume FROM %s FINAL WHERE symbol = ?", s.table)
	args := []interface{}{symbol}
	if !from.IsZero() {
		b.WriteString(" AND date >= ?")
		args = append(args, from)
	}
	if !to.IsZero() {
		b.WriteString(" AND date <= ?")
		args = append(args, to)
	}
	b.WriteString(" ORDER BY date ASC")
	return b.String(), args
}
