package engine

import (
	"strings"
	"time"

	"github.com/kellertobias/calsync/internal/domain"
)

// defaultBlockerTitle is the event title in blocker mode when no template is
// configured.
const defaultBlockerTitle = "Busy"

// Input carries everything the plan builder reads. All four snapshots are
// taken before the engine runs; BuildPlan never re-reads live state.
type Input struct {
	SyncID           string
	OwnerTag         string
	TargetCalendarID string
	Mode             domain.SyncMode
	BlockerTitle     string // title template, {sourceTitle} substituted
	Rules            []domain.FilterRule
	Windows          []domain.TimeWindow
	Location         *time.Location // weekday/time-of-day policy for windows
	Now              time.Time

	Source   []domain.Occurrence
	Targets  []domain.TargetEvent
	Mappings []domain.MappingRow
}

// BuildPlan computes the minimal ordered create/update/delete plan that brings
// the target calendar in line with the filtered source occurrences. It is a
// deterministic function of its input: creates and updates come first in
// source-iteration order, deletes are appended in mapping-iteration order.
func BuildPlan(in Input) Plan {
	mappingsByKey := make(map[string]domain.MappingRow, len(in.Mappings))
	for _, row := range in.Mappings {
		if row.SyncID == in.SyncID {
			mappingsByKey[row.OccurrenceKey] = row
		}
	}
	targetsByID := make(map[string]*domain.TargetEvent, len(in.Targets))
	for i := range in.Targets {
		targetsByID[in.Targets[i].ID] = &in.Targets[i]
	}

	var plan Plan
	live := make(map[string]bool)
	claimed := make(map[string]bool)

	for i := range in.Source {
		occ := &in.Source[i]

		// Events this sync wrote itself are never sync candidates; without
		// this guard a source that overlaps the target would self-amplify.
		if m, ok := DecodeMarker(occ.Notes, occ.URL); ok && m.OwnedBy(in.OwnerTag) {
			continue
		}
		if !Passes(occ, in.Rules, in.OwnerTag) {
			continue
		}
		if !Allowed(occ.Start, occ.AllDay, in.Windows, in.Location) {
			continue
		}

		key := KeyFor(occ, in.Now)
		keyStr := key.String()
		live[keyStr] = true

		desired := desiredEvent(&in, occ, key)
		twin := ResolveTwin(key, desired.Title, desired.Start, mappingsByKey, targetsByID, in.Targets, in.OwnerTag)
		if twin == nil {
			plan.Actions = append(plan.Actions, Action{
				Kind:    ActionCreate,
				Key:     keyStr,
				Source:  occ,
				Desired: desired,
				Reason:  "no target event for occurrence",
			})
			// The mapping row is inserted by the apply step once the created
			// event's identifier is known.
			continue
		}
		claimed[twin.ID] = true

		if row, ok := mappingsByKey[keyStr]; !ok || row.TargetEventID != twin.ID {
			// Loose match found a rotated twin; re-point the mapping so the
			// next run resolves it through the primary path.
			plan.Repairs = append(plan.Repairs, domain.MappingRow{
				SyncID:        in.SyncID,
				SourceEventID: occ.SourceID,
				OccurrenceKey: keyStr,
				TargetEventID: twin.ID,
				UpdatedAt:     in.Now,
			})
		}

		if reason := updateReason(in.Mode, desired, twin); reason != "" {
			desired.ID = twin.ID
			plan.Actions = append(plan.Actions, Action{
				Kind:    ActionUpdate,
				Key:     keyStr,
				Source:  occ,
				Target:  twin,
				Desired: desired,
				Reason:  reason,
			})
		}
	}

	// Every mapping row of this sync whose key is no longer live is a delete
	// candidate; a filtered-out occurrence counts as not live. A stale row may
	// still point at an event a live key just re-claimed through the loose
	// match (a recreated source event rotates the key but keeps the twin), so
	// claimed targets are off limits. Each remaining candidate passes through
	// the safe-deletion gate.
	for _, row := range in.Mappings {
		if row.SyncID != in.SyncID || live[row.OccurrenceKey] || claimed[row.TargetEventID] {
			continue
		}
		twin, ok := targetsByID[row.TargetEventID]
		if !ok {
			// Target out of snapshot reach: leave the row, re-evaluate next
			// run. Dropping it would orphan an event we could never delete.
			continue
		}
		var marker *Marker
		if m, ok := DecodeMarker(twin.Notes, twin.URL); ok {
			marker = &m
		}
		if !MayDelete(in.TargetCalendarID, twin.CalendarID, marker, in.OwnerTag, true) {
			continue
		}
		plan.Actions = append(plan.Actions, Action{
			Kind:   ActionDelete,
			Key:    row.OccurrenceKey,
			Target: twin,
			Reason: "source occurrence gone",
		})
	}

	return plan
}

// desiredEvent renders the wanted target-event state for an occurrence.
func desiredEvent(in *Input, occ *domain.Occurrence, key Key) *domain.TargetEvent {
	marker := Marker{
		Owner:      in.OwnerTag,
		SourceID:   occ.SourceID,
		Occurrence: key.Instant,
		SyncKey:    key.String(),
	}.Encode()

	ev := &domain.TargetEvent{
		CalendarID: in.TargetCalendarID,
		Start:      occ.Start,
		End:        occ.End,
		AllDay:     occ.AllDay,
		URL:        marker,
	}
	switch in.Mode {
	case domain.ModeBlocker:
		ev.Title = RenderBlockerTitle(in.BlockerTitle, occ.Title)
		ev.Notes = marker
	default:
		ev.Title = occ.Title
		ev.Location = occ.Location
		ev.Notes = occ.Notes
		if ev.Notes != "" {
			ev.Notes += "\n\n"
		}
		ev.Notes += marker
	}
	return ev
}

// RenderBlockerTitle substitutes template tokens into the blocker title.
// {sourceTitle} is the only token today.
func RenderBlockerTitle(template, sourceTitle string) string {
	if template == "" {
		template = defaultBlockerTitle
	}
	return strings.ReplaceAll(template, "{sourceTitle}", sourceTitle)
}

// updateReason compares the mode-relevant fields of the wanted state against
// the existing twin. Equality is exact: instants by UTC point, strings
// byte-for-byte. Empty means no update is needed.
func updateReason(mode domain.SyncMode, desired, twin *domain.TargetEvent) string {
	switch {
	case twin.Title != desired.Title:
		return "title differs"
	case !twin.Start.Equal(desired.Start):
		return "start differs"
	case !twin.End.Equal(desired.End):
		return "end differs"
	}
	if mode != domain.ModeBlocker && twin.Location != desired.Location {
		return "location differs"
	}
	return ""
}
