package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"00:00", 0},
		{"08:00", 8 * 60},
		{"23:59", 23*60 + 59},
		{"24:00", 24 * 60}, // end-of-day window boundary
	}
	for _, tc := range cases {
		got, err := ParseClock(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseClockRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "8", "25:00", "24:01", "12:60", "ab:cd", "-1:00"} {
		_, err := ParseClock(in)
		assert.Error(t, err, in)
	}
}
