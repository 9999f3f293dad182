package dateparse_test

import (
	"testing"
	"time"

	"github.com/atomicobject/moxide/pkg/dateparse"
	"github.com/stretchr/testify/assert"
)

func TestFormatMomentPattern(t *testing.T) {
	now := time.Date(2024, 1, 15, 14, 30, 52, 0, time.UTC)

	cases := []struct {
		name    string
		pattern string
		want    string
	}{
		{"plain date", "YYYY-MM-DD", "2024-01-15"},
		{"brace-wrapped legacy pattern", "{YYYY-MM-DD-HHmm}", "2024-01-15-1430"},
		{"zettel style", "YYYYMMDDHHmmss", "20240115143052"},
		{"weekday name", "dddd", "Monday"},
		{"month name", "MMMM", "January"},
		{"month abbrev", "MMM", "Jan"},
		{"literal suffix", "YYYY-[ToDo]-MM", "2024-ToDo-01"},
		{"literal prefix", "[Mon]-YYYY", "Mon-2024"},
		{"empty pattern falls back to default", "", "2024-01-15"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, dateparse.FormatMomentPattern(tc.pattern, now))
		})
	}
}
