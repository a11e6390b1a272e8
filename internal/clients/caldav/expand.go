package caldav

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/kellertobias/calsync/internal/domain"
)

// maxOccurrencesPerEvent caps expansion so a pathological RRULE cannot blow up
// a run.
const maxOccurrencesPerEvent = 1000

// ExpandOccurrences materializes concrete occurrence snapshots for the time
// horizon [from, to). It handles:
//
//   - Single non-recurring events
//   - RRULE-based recurrence
//   - EXDATE for exception removal
//   - RECURRENCE-ID overrides (moved or edited instances)
//   - Cancelled overrides
//
// Events whose RRULE fails to parse are passed through as single occurrences
// rather than dropped. The result is sorted by start, then source ID, so
// downstream plans are deterministic regardless of server ordering.
func ExpandOccurrences(events []Event, from, to time.Time) []domain.Occurrence {
	baseByUID := make(map[string][]Event)
	overridesByUID := make(map[string][]Event)
	var uids []string

	for _, ev := range events {
		if !ev.RecurrenceID.IsZero() {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	var out []domain.Occurrence
	for _, uid := range uids {
		for _, base := range baseByUID[uid] {
			out = append(out, expandEvent(base, overridesByUID[uid], from, to)...)
		}
	}

	// Overrides whose base never landed in the query window still count when
	// the instance itself was moved into it.
	for uid, overrides := range overridesByUID {
		if _, ok := baseByUID[uid]; ok {
			continue
		}
		for _, ov := range overrides {
			if ov.Cancelled || !inWindow(ov.StartTime, from, to) {
				continue
			}
			out = append(out, occurrenceFrom(ov, ov.RecurrenceID, ov.StartTime, ov.EndTime, true))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		if out[i].SourceID != out[j].SourceID {
			return out[i].SourceID < out[j].SourceID
		}
		return out[i].Occurrence.Before(out[j].Occurrence)
	})
	return out
}

func expandEvent(base Event, overrides []Event, from, to time.Time) []domain.Occurrence {
	if base.Cancelled {
		return nil
	}

	if base.RRule == "" {
		if !overlapsWindow(base.StartTime, base.EndTime, from, to) {
			return nil
		}
		return []domain.Occurrence{occurrenceFrom(base, time.Time{}, base.StartTime, base.EndTime, false)}
	}

	option, err := rrule.StrToROption(base.RRule)
	if err != nil {
		// Unparseable rule: fall back to the base instance.
		if !overlapsWindow(base.StartTime, base.EndTime, from, to) {
			return nil
		}
		return []domain.Occurrence{occurrenceFrom(base, time.Time{}, base.StartTime, base.EndTime, true)}
	}
	option.Dtstart = base.StartTime
	rule, err := rrule.NewRRule(*option)
	if err != nil {
		return nil
	}

	duration := time.Duration(0)
	if !base.EndTime.IsZero() {
		duration = base.EndTime.Sub(base.StartTime)
	}

	var out []domain.Occurrence
	for _, instant := range rule.Between(from, to, true) {
		if len(out) >= maxOccurrencesPerEvent {
			break
		}
		if !inWindow(instant, from, to) {
			continue
		}
		if isException(instant, base.ExDates, base.AllDay) {
			continue
		}

		if ov, ok := findOverride(overrides, instant); ok {
			if ov.Cancelled {
				continue
			}
			out = append(out, occurrenceFrom(*ov, instant, ov.StartTime, ov.EndTime, true))
			continue
		}

		end := time.Time{}
		if duration > 0 || !base.EndTime.IsZero() {
			end = instant.Add(duration)
		}
		out = append(out, occurrenceFrom(base, instant, instant, end, true))
	}
	return out
}

func occurrenceFrom(ev Event, instant, start, end time.Time, repeating bool) domain.Occurrence {
	return domain.Occurrence{
		SourceID:   ev.UID,
		Occurrence: instant,
		Start:      start,
		End:        end,
		Title:      ev.Summary,
		Location:   ev.Location,
		Notes:      ev.Description,
		URL:        ev.URL,
		Organizer:  ev.Organizer,
		Attendees:  ev.Attendees,
		AllDay:     ev.AllDay,
		Repeating:  repeating,
		Busy:       !ev.Transparent,
	}
}

func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

func overlapsWindow(start, end, from, to time.Time) bool {
	if start.IsZero() {
		return false
	}
	if !start.Before(to) {
		return false
	}
	if end.IsZero() {
		return !start.Before(from)
	}
	return end.After(from)
}

func isException(instant time.Time, exDates []time.Time, allDay bool) bool {
	for _, ex := range exDates {
		if allDay {
			ey, em, ed := ex.UTC().Date()
			iy, im, id := instant.UTC().Date()
			if ey == iy && em == im && ed == id {
				return true
			}
			continue
		}
		if ex.Equal(instant) {
			return true
		}
	}
	return false
}

func findOverride(overrides []Event, instant time.Time) (*Event, bool) {
	for i := range overrides {
		if overrides[i].RecurrenceID.Equal(instant) {
			return &overrides[i], true
		}
	}
	return nil, false
}
