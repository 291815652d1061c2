package models

import (
	"fmt"
	"sort"
)

// Projection horizons in calendar days.
const (
	Horizon1Month  = "1month"
	Horizon3Months = "3months"
)

// horizonDays maps every accepted horizon label to a number of forward steps.
// The short labels count trading days.
var horizonDays = map[string]int{
	Horizon1Month:  30,
	Horizon3Months: 90,
	"1m":           21,
	"2m":           42,
	"3m":           63,
	"6m":           126,
}

// HorizonDays resolves a horizon label.
func HorizonDays(label string) (int, error) {
	d, ok := horizonDays[label]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownHorizon, label)
	}
	return d, nil
}

// IsValidHorizon returns true if label is a known horizon.
func IsValidHorizon(label string) bool {
	_, ok := horizonDays[label]
	return ok
}

// TradingHorizons returns the trading-day horizon labels, shortest first.
func TradingHorizons() []string {
	return []string{"1m", "2m", "3m", "6m"}
}

// HorizonLabels returns every known label ordered by length of horizon.
func HorizonLabels() []string {
	out := make([]string, 0, len(horizonDays))
	for k := range horizonDays {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if horizonDays[out[i]] == horizonDays[out[j]] {
			return out[i] < out[j]
		}
		return horizonDays[out[i]] < horizonDays[out[j]]
	})
	return out
}
