package domain

import "time"

// Occurrence is one concrete instance of a (possibly recurring) source event,
// derived fresh each run from the provider snapshot. Never persisted.
type Occurrence struct {
	SourceID   string    // UID of the owning source event
	Occurrence time.Time // recurrence instance instant; zero for non-recurring events
	Start      time.Time
	End        time.Time
	Title      string
	Location   string
	Notes      string
	URL        string
	Organizer  string
	Attendees  []string
	AllDay     bool
	Repeating  bool
	Busy       bool // availability: false means the event shows as free
}

// Duration returns the occurrence length. ok is false when start or end
// is unknown.
func (o *Occurrence) Duration() (time.Duration, bool) {
	if o.Start.IsZero() || o.End.IsZero() {
		return 0, false
	}
	return o.End.Sub(o.Start), true
}

// TargetEvent is an event in the target calendar as seen in a snapshot.
type TargetEvent struct {
	ID         string // UID in the target calendar
	CalendarID string
	Title      string
	Location   string
	Notes      string
	URL        string
	Start      time.Time
	End        time.Time
	AllDay     bool
}
