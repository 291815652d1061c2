package models

import (
	"encoding/json"
	"fmt"
	"time"

	"FinCast/pkg/util"
)

// DateLayout is the ISO calendar-date format used for every rendered date.
const DateLayout = "2006-01-02"

// PriceBar is one daily OHLCV record.
type PriceBar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

type priceBarJSON struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// MarshalJSON renders Date as an ISO calendar date.
func (b PriceBar) MarshalJSON() ([]byte, error) {
	return json.Marshal(priceBarJSON{
		Date:   FormatDate(b.Date),
		Open:   b.Open,
		High:   b.High,
		Low:    b.Low,
		Close:  b.Close,
		Volume: b.Volume,
	})
}

func (b *PriceBar) UnmarshalJSON(data []byte) error {
	var raw priceBarJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var date time.Time
	if raw.Date != "" {
		d, ok := util.ParseDate(raw.Date)
		if !ok {
			return fmt.Errorf("price bar: invalid date %q", raw.Date)
		}
		date = d
	}
	*b = PriceBar{Date: date, Open: raw.Open, High: raw.High, Low: raw.Low, Close: raw.Close, Volume: raw.Volume}
	return nil
}

// PriceSeries is a chronological sequence of daily bars, strictly increasing by date.
type PriceSeries []PriceBar

// Closes returns the closing prices in order.
func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close
	}
	return out
}

// Dates returns the bar dates in order.
func (s PriceSeries) Dates() []time.Time {
	out := make([]time.Time, len(s))
	for i, b := range s {
		out[i] = b.Date
	}
	return out
}

// Last returns the most recent bar.
func (s PriceSeries) Last() (PriceBar, bool) {
	if len(s) == 0 {
		return PriceBar{}, false
	}
	return s[len(s)-1], true
}

// Between returns the bars whose date falls in [from, to]. Zero bounds are open.
func (s PriceSeries) Between(from, to time.Time) PriceSeries {
	out := make(PriceSeries, 0, len(s))
	for _, b := range s {
		if !from.IsZero() && b.Date.Before(from) {
			continue
		}
		if !to.IsZero() && b.Date.After(to) {
			continue
		}
		out = append(out, b)
	}
	return out
}

// Validate checks that dates are strictly increasing.
func (s PriceSeries) Validate() error {
	for i := 1; i < len(s); i++ {
		if !s[i].Date.After(s[i-1].Date) {
			return fmt.Errorf("series not strictly increasing at index %d (%s after %s)",
				i, s[i].Date.Format(DateLayout), s[i-1].Date.Format(DateLayout))
		}
	}
	return nil
}

// FormatDate renders t as an ISO calendar date, or "" for the zero time.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(DateLayout)
}
