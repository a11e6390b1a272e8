package caldav

import (
	"time"

	"github.com/kellertobias/calsync/internal/domain"
)

// Provider adapts the raw CalDAV client to the snapshot and commit calls the
// sync service consumes.
type Provider struct {
	client *Client
}

// NewProvider wraps a connected client.
func NewProvider(client *Client) *Provider {
	return &Provider{client: client}
}

// ListOccurrences snapshots the source calendar for the horizon [from, to),
// recurring events expanded into concrete occurrences.
func (p *Provider) ListOccurrences(calendarPath string, from, to time.Time) ([]domain.Occurrence, error) {
	events, err := p.client.GetEvents(calendarPath, from, to)
	if err != nil {
		return nil, err
	}
	return ExpandOccurrences(events, from, to), nil
}

// ListEvents snapshots the target calendar without expansion. Managed events
// are plain non-recurring VEVENTs, so the raw view is the right one.
func (p *Provider) ListEvents(calendarPath string, from, to time.Time) ([]domain.TargetEvent, error) {
	events, err := p.client.GetEvents(calendarPath, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TargetEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, domain.TargetEvent{
			ID:         ev.UID,
			CalendarID: calendarPath,
			Title:      ev.Summary,
			Location:   ev.Location,
			Notes:      ev.Description,
			URL:        ev.URL,
			Start:      ev.StartTime,
			End:        ev.EndTime,
			AllDay:     ev.AllDay,
		})
	}
	return out, nil
}

// CreateEvent writes a new managed event and returns its UID.
func (p *Provider) CreateEvent(calendarPath string, ev *domain.TargetEvent) (string, error) {
	raw := targetToEvent(ev)
	return p.client.CreateEvent(calendarPath, raw)
}

// UpdateEvent replaces the stored event with the desired state.
func (p *Provider) UpdateEvent(calendarPath string, ev *domain.TargetEvent) error {
	return p.client.UpdateEvent(calendarPath, targetToEvent(ev))
}

// DeleteEvent removes an event by UID.
func (p *Provider) DeleteEvent(calendarPath, eventID string) error {
	return p.client.DeleteEvent(calendarPath, eventID)
}

// DiscoverCalendars lists the account's calendars.
func (p *Provider) DiscoverCalendars() ([]Calendar, error) {
	return p.client.DiscoverCalendars()
}

func targetToEvent(ev *domain.TargetEvent) *Event {
	return &Event{
		UID:         ev.ID,
		Summary:     ev.Title,
		Description: ev.Notes,
		Location:    ev.Location,
		URL:         ev.URL,
		StartTime:   ev.Start,
		EndTime:     ev.End,
		AllDay:      ev.AllDay,
	}
}
