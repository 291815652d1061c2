package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-10-10", true},
		{" 2024-10-10 ", true},
		{"2024-10-10T10:10:10Z", true},
		{"2024-10-10T23:59:59.123456789+00:00", true},
		{"1728555010", true},
		{"10/10/2024", false},
		{"", false},
		{"-5", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		if tt.ok {
			assert.Equal(t, want, got, tt.in)
		}
	}
}

func TestParseDateKeepsLocalCalendarDay(t *testing.T) {
	got, ok := ParseDate("2024-10-10T23:30:00-05:00")
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateDefault(t *testing.T) {
	def := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, def, ParseDateDefault("soon", def))
	assert.Equal(t, time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC), ParseDateDefault("2021-03-04", def))
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"1m", "3m"}, SplitList(" 1m, ,3m,"))
	assert.Nil(t, SplitList(""))
}
