package util

import (
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD, RFC3339, RFC3339Nano and unix seconds and
// returns the calendar date at UTC midnight. Returns (t, true) if any worked.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{dateLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return TruncateDay(t), true
		}
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return TruncateDay(time.Unix(ts, 0).UTC()), true
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// TruncateDay drops the clock, keeping the calendar date of t in its own zone.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
