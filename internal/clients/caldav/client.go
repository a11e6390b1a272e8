package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"
)

const (
	// Apple iCloud CalDAV endpoint
	DefaultiCloudURL = "https://caldav.icloud.com"
)

// Client is a CalDAV client for one account
type Client struct {
	baseURL  string
	username string
	password string
	client   *caldav.Client
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string) *Client {
	if baseURL == "" {
		baseURL = DefaultiCloudURL
	}
	return &Client{
		baseURL:  baseURL,
		username: username,
		password: password,
	}
}

// IsConfigured returns true if the client has credentials
func (c *Client) IsConfigured() bool {
	return c.username != "" && c.password != ""
}

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests
type basicAuthTransport struct {
	username string
	password string
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.username, t.password)
	return http.DefaultTransport.RoundTrip(req)
}

// DiscoverCalendars returns all calendars for the user
func (c *Client) DiscoverCalendars() ([]Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	ctx := context.Background()

	// Find the user's calendar home
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	// Find all calendars
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	var result []Calendar
	for _, cal := range cals {
		result = append(result, Calendar{
			ID:          cal.Path,
			DisplayName: cal.Name,
			URL:         cal.Path,
		})
	}

	return result, nil
}

// GetEvents returns raw events in the specified time range
func (c *Client) GetEvents(calendarPath string, from, to time.Time) ([]Event, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	if calendarPath == "" {
		return nil, fmt.Errorf("calendar path not specified")
	}

	// Query events in date range
	query := &caldav.CalendarQuery{
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{
				{
					Name:  "VEVENT",
					Start: from,
					End:   to,
				},
			},
		},
	}

	objects, err := client.QueryCalendar(context.Background(), calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var events []Event
	for _, obj := range objects {
		parsed, err := parseCalendarObject(&obj)
		if err != nil {
			continue // Skip invalid events
		}
		events = append(events, parsed...)
	}

	return events, nil
}

// CreateEvent creates a new event in the calendar and returns its UID
func (c *Client) CreateEvent(calendarPath string, event *Event) (string, error) {
	client, err := c.connect()
	if err != nil {
		return "", err
	}

	if calendarPath == "" {
		return "", fmt.Errorf("calendar path not specified")
	}

	// Generate UID if not provided
	if event.UID == "" {
		event.UID = generateUID()
	}

	// Create iCalendar data
	cal := eventToICS(event)

	err = putCalendarObject(client, calendarPath, event.UID, cal)
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}

	return event.UID, nil
}

// UpdateEvent updates an existing event
func (c *Client) UpdateEvent(calendarPath string, event *Event) error {
	// For CalDAV, update is the same as create (PUT replaces)
	_, err := c.CreateEvent(calendarPath, event)
	return err
}

// DeleteEvent deletes an event by UID
func (c *Client) DeleteEvent(calendarPath, eventUID string) error {
	client, err := c.connect()
	if err != nil {
		return err
	}

	err = client.RemoveAll(context.Background(), objectPath(calendarPath, eventUID))
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}

	return nil
}

func putCalendarObject(client *caldav.Client, calendarPath, uid string, cal *ical.Calendar) error {
	_, err := client.PutCalendarObject(context.Background(), objectPath(calendarPath, uid), cal)
	return err
}

func objectPath(calendarPath, uid string) string {
	p := calendarPath
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p + uid + ".ics"
}

// parseCalendarObject parses a CalDAV object into Events. One object may carry
// a base VEVENT plus RECURRENCE-ID override components under the same UID.
func parseCalendarObject(obj *caldav.CalendarObject) ([]Event, error) {
	if obj.Data == nil {
		return nil, fmt.Errorf("no data in calendar object")
	}

	var events []Event
	for _, comp := range obj.Data.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		events = append(events, parseVEvent(comp))
	}
	if len(events) == 0 {
		return nil, fmt.Errorf("no VEVENT in calendar object")
	}
	return events, nil
}

func parseVEvent(comp *ical.Component) Event {
	event := Event{}

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		event.UID = prop.Value
	}
	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		event.Summary = prop.Value
	}
	if prop := comp.Props.Get(ical.PropDescription); prop != nil {
		event.Description = prop.Value
	}
	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		event.Location = prop.Value
	}
	if prop := comp.Props.Get(ical.PropURL); prop != nil {
		event.URL = prop.Value
	}
	if prop := comp.Props.Get(ical.PropOrganizer); prop != nil {
		event.Organizer = strings.TrimPrefix(prop.Value, "mailto:")
	}
	for _, prop := range comp.Props.Values(ical.PropAttendee) {
		event.Attendees = append(event.Attendees, strings.TrimPrefix(prop.Value, "mailto:"))
	}

	if prop := comp.Props.Get(ical.PropDateTimeStart); prop != nil {
		t, err := prop.DateTime(time.UTC)
		if err == nil {
			event.StartTime = t
		}
		// Check if all-day event
		if valueType := prop.Params.Get(ical.ParamValue); valueType == string(ical.ValueDate) {
			event.AllDay = true
		}
	}
	if prop := comp.Props.Get(ical.PropDateTimeEnd); prop != nil {
		t, err := prop.DateTime(time.UTC)
		if err == nil {
			event.EndTime = t
		}
	}

	if prop := comp.Props.Get(ical.PropTransparency); prop != nil {
		event.Transparent = strings.EqualFold(prop.Value, "TRANSPARENT")
	}
	if prop := comp.Props.Get(ical.PropStatus); prop != nil {
		event.Cancelled = strings.EqualFold(prop.Value, "CANCELLED")
	}

	if prop := comp.Props.Get(ical.PropRecurrenceRule); prop != nil {
		event.RRule = prop.Value
	}
	for _, prop := range comp.Props.Values(ical.PropExceptionDates) {
		// EXDATE may carry several comma-separated values
		for _, raw := range strings.Split(prop.Value, ",") {
			if t, ok := parseICalTime(strings.TrimSpace(raw)); ok {
				event.ExDates = append(event.ExDates, t)
			}
		}
	}
	if prop := comp.Props.Get(ical.PropRecurrenceID); prop != nil {
		if t, err := prop.DateTime(time.UTC); err == nil {
			event.RecurrenceID = t
		}
	}

	return event
}

func parseICalTime(raw string) (time.Time, bool) {
	for _, layout := range []string{"20060102T150405Z", "20060102T150405", "20060102"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// eventToICS converts an Event to iCalendar format
func eventToICS(event *Event) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//calsync//CalDAV//EN")

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.UID)
	vevent.Props.SetText(ical.PropSummary, event.Summary)

	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}
	if event.URL != "" {
		vevent.Props.SetText(ical.PropURL, event.URL)
	}

	// Set times - convert to UTC to avoid timezone issues
	if event.AllDay {
		vevent.Props.SetDate(ical.PropDateTimeStart, event.StartTime)
		if !event.EndTime.IsZero() {
			vevent.Props.SetDate(ical.PropDateTimeEnd, event.EndTime)
		}
	} else {
		// Convert to UTC explicitly - iCalendar will use Z suffix
		vevent.Props.SetDateTime(ical.PropDateTimeStart, event.StartTime.UTC())
		if !event.EndTime.IsZero() {
			vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.EndTime.UTC())
		}
	}

	if event.Transparent {
		vevent.Props.SetText(ical.PropTransparency, "TRANSPARENT")
	}

	// Add creation timestamp
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, time.Now().UTC())

	cal.Children = append(cal.Children, vevent.Component)
	return cal
}

// generateUID generates a unique event ID
func generateUID() string {
	return uuid.NewString() + "@calsync"
}
