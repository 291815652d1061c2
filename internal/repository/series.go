package repository

import (
	"sort"

	"FinCast/internal/domain/models"
)

// normalize sorts bars by date and keeps the last bar of each date, so
// readers always hand out strictly increasing series.
func normalize(bars models.PriceSeries) models.PriceSeries {
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	out := bars[:0]
	for _, b := range bars {
		if n := len(out); n > 0 && out[n-1].Date.Equal(b.Date) {
			out[n-1] = b
			continue
		}
		out = append(out, b)
	}
	return out
}
