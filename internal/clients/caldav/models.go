package caldav

import "time"

// Calendar represents a calendar discovered on the server
type Calendar struct {
	ID          string // Calendar path/URL
	DisplayName string
	Color       string
	URL         string
}

// Event is a raw VEVENT as stored on the server, before recurrence expansion
type Event struct {
	UID          string // Unique ID in CalDAV
	Summary      string // Title
	Description  string
	Location     string
	URL          string
	Organizer    string // mailto: prefix stripped
	Attendees    []string
	StartTime    time.Time
	EndTime      time.Time
	AllDay       bool
	Transparent  bool   // TRANSP:TRANSPARENT, shows as free
	Cancelled    bool   // STATUS:CANCELLED
	RRule        string // Recurrence rule (e.g., "FREQ=WEEKLY;BYDAY=MO")
	ExDates      []time.Time
	RecurrenceID time.Time // set on recurrence override instances
}
