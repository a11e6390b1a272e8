package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeWindow allows occurrence starts on one weekday between two times of day.
// The end minute is exclusive.
type TimeWindow struct {
	Weekday     time.Weekday
	StartMinute int // minutes after midnight, inclusive
	EndMinute   int // minutes after midnight, exclusive
}

// ParseClock parses a "HH:MM" clock string into minutes after midnight.
// "24:00" is accepted as 1440 so a window can run to end of day.
func ParseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid clock %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid clock %q: bad minute", s)
	}
	if h == 24 && m != 0 {
		return 0, fmt.Errorf("invalid clock %q: past end of day", s)
	}
	return h*60 + m, nil
}
