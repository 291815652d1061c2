package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	"FinCast/pkg/util"
)

var _ domrepo.PriceStore = (*CSVPriceStore)(nil)

// CSVPriceStore reads <dir>/<SYMBOL>.csv files with a header row naming
// date, open, high, low, close and volume columns in any order.
type CSVPriceStore struct {
	dir string
}

func NewCSVPriceStore(dir string) *CSVPriceStore {
	return &CSVPriceStore{dir: dir}
}

func (s *CSVPriceStore) GetDailyBars(ctx context.Context, symbol string, from, to time.Time) (models.PriceSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if symbol == "" || strings.ContainsAny(symbol, `/\`) || strings.Contains(symbol, "..") {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownSymbol, symbol)
	}
	f, err := os.Open(filepath.Join(s.dir, strings.ToUpper(symbol)+".csv"))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownSymbol, symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	series, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", symbol, err)
	}
	return series.Between(from, to), nil
}

// ReadCSV parses a daily bar file. Column names are matched case-insensitively;
// "adj close" is used when no plain close column exists. Missing OHLV columns
// default to the close.
func ReadCSV(r io.Reader) (models.PriceSeries, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := map[string]int{}
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := cols["close"]; !ok {
		if i, ok := cols["adj close"]; ok {
			cols["close"] = i
		}
	}
	dateCol, okDate := cols["date"]
	closeCol, okClose := cols["close"]
	if !okDate || !okClose {
		return nil, fmt.Errorf("header must contain date and close columns, got %v", header)
	}

	var out models.PriceSeries
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rec) <= dateCol || len(rec) <= closeCol {
			return nil, fmt.Errorf("line %d: short record", line)
		}
		date, err := parseDate(rec[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		closePx, err := strconv.ParseFloat(strings.TrimSpace(rec[closeCol]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: close: %w", line, err)
		}
		bar := models.PriceBar{Date: date, Open: closePx, High: closePx, Low: closePx, Close: closePx}
		for name, dst := range map[string]*float64{"open": &bar.Open, "high": &bar.High, "low": &bar.Low, "volume": &bar.Volume} {
			i, ok := cols[name]
			if !ok || i >= len(rec) || strings.TrimSpace(rec[i]) == "" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, name, err)
			}
			*dst = v
		}
		out = append(out, bar)
	}
	return normalize(out), nil
}

func parseDate(s string) (time.Time, error) {
	t, ok := util.ParseDate(s)
	if !ok {
		return time.Time{}, fmt.Errorf("date %q: expected YYYY-MM-DD", strings.TrimSpace(s))
	}
	return t, nil
}

// WriteCSV writes bars with the header ReadCSV expects.
func WriteCSV(w io.Writer, series models.PriceSeries) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "open", "high", "low", "close", "volume"}); err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, b := range series {
		if err := cw.Write([]string{models.FormatDate(b.Date), f(b.Open), f(b.High), f(b.Low), f(b.Close), f(b.Volume)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
