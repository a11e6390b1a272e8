package engine

import (
	"time"

	"github.com/kellertobias/calsync/internal/domain"
)

// Allowed reports whether an occurrence start falls inside a configured time
// window. No windows means always allowed. When windows are configured,
// all-day occurrences and occurrences without a start are rejected: they carry
// no comparable time of day. The window interval is half-open, [start, end).
func Allowed(start time.Time, allDay bool, windows []domain.TimeWindow, loc *time.Location) bool {
	if len(windows) == 0 {
		return true
	}
	if allDay || start.IsZero() {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}

	local := start.In(loc)
	year, month, day := local.Date()
	for _, w := range windows {
		if w.Weekday != local.Weekday() {
			continue
		}
		// Anchor the window to the occurrence's own calendar day.
		winStart := time.Date(year, month, day, w.StartMinute/60, w.StartMinute%60, 0, 0, loc)
		winEnd := time.Date(year, month, day, w.EndMinute/60, w.EndMinute%60, 0, 0, loc)
		if !local.Before(winStart) && local.Before(winEnd) {
			return true
		}
	}
	return false
}
