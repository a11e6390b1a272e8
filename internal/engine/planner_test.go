package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kellertobias/calsync/internal/domain"
)

var plannerNow = time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)

func standupOccurrence() domain.Occurrence {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) // Monday 09:00
	return domain.Occurrence{
		SourceID:  "src-standup",
		Start:     start,
		End:       start.Add(30 * time.Minute),
		Title:     "Standup",
		Location:  "Room 4",
		Busy:      true,
		Repeating: false,
	}
}

func plannerInput(source []domain.Occurrence, targets []domain.TargetEvent, mappings []domain.MappingRow) Input {
	return Input{
		SyncID:           "work-to-personal",
		OwnerTag:         "work-to-personal",
		TargetCalendarID: "cal-target",
		Mode:             domain.ModeFull,
		Location:         time.UTC,
		Now:              plannerNow,
		Source:           source,
		Targets:          targets,
		Mappings:         mappings,
	}
}

// managedTwin builds the target event the apply step would have created for occ.
func managedTwin(id string, occ domain.Occurrence, ownerTag string) domain.TargetEvent {
	key := DeriveKey(occ.SourceID, occ.Occurrence, occ.Start, plannerNow)
	marker := Marker{Owner: ownerTag, SourceID: occ.SourceID, Occurrence: key.Instant, SyncKey: key.String()}.Encode()
	notes := occ.Notes
	if notes != "" {
		notes += "\n\n"
	}
	return domain.TargetEvent{
		ID:         id,
		CalendarID: "cal-target",
		Title:      occ.Title,
		Location:   occ.Location,
		Notes:      notes + marker,
		URL:        marker,
		Start:      occ.Start,
		End:        occ.End,
		AllDay:     occ.AllDay,
	}
}

func mappingFor(occ domain.Occurrence, targetID string) domain.MappingRow {
	key := DeriveKey(occ.SourceID, occ.Occurrence, occ.Start, plannerNow)
	return domain.MappingRow{
		SyncID:        "work-to-personal",
		SourceEventID: occ.SourceID,
		OccurrenceKey: key.String(),
		TargetEventID: targetID,
		UpdatedAt:     plannerNow,
	}
}

func TestBuildPlanCreatesForNewOccurrence(t *testing.T) {
	occ := standupOccurrence()
	plan := BuildPlan(plannerInput([]domain.Occurrence{occ}, nil, nil))

	require.Len(t, plan.Actions, 1)
	a := plan.Actions[0]
	assert.Equal(t, ActionCreate, a.Kind)
	assert.Equal(t, "src-standup|2026-03-02T09:00:00Z", a.Key)
	require.NotNil(t, a.Desired)
	assert.Equal(t, "Standup", a.Desired.Title)
	assert.Equal(t, "cal-target", a.Desired.CalendarID)
	assert.Contains(t, a.Desired.Notes, MarkerPrefix)
	assert.Empty(t, plan.Repairs)
}

func TestBuildPlanIdempotentAfterApply(t *testing.T) {
	occ := standupOccurrence()
	twin := managedTwin("tgt-1", occ, "work-to-personal")
	row := mappingFor(occ, "tgt-1")

	plan := BuildPlan(plannerInput(
		[]domain.Occurrence{occ},
		[]domain.TargetEvent{twin},
		[]domain.MappingRow{row},
	))
	assert.True(t, plan.Empty(), "unchanged source must produce an empty plan")
}

func TestBuildPlanUpdatesChangedTwin(t *testing.T) {
	occ := standupOccurrence()
	twin := managedTwin("tgt-1", occ, "work-to-personal")
	twin.Title = "Standup (edited locally)"
	row := mappingFor(occ, "tgt-1")

	plan := BuildPlan(plannerInput(
		[]domain.Occurrence{occ},
		[]domain.TargetEvent{twin},
		[]domain.MappingRow{row},
	))
	require.Len(t, plan.Actions, 1)
	a := plan.Actions[0]
	assert.Equal(t, ActionUpdate, a.Kind)
	assert.Equal(t, "title differs", a.Reason)
	require.NotNil(t, a.Desired)
	assert.Equal(t, "tgt-1", a.Desired.ID)
	assert.Equal(t, "Standup", a.Desired.Title)
}

func TestBuildPlanDeletesOrphanedTwin(t *testing.T) {
	occ := standupOccurrence()
	twin := managedTwin("tgt-1", occ, "work-to-personal")
	row := mappingFor(occ, "tgt-1")

	// Source event is gone; mapping row and marked twin survive.
	plan := BuildPlan(plannerInput(nil, []domain.TargetEvent{twin}, []domain.MappingRow{row}))

	require.Len(t, plan.Actions, 1)
	a := plan.Actions[0]
	assert.Equal(t, ActionDelete, a.Kind)
	assert.Equal(t, row.OccurrenceKey, a.Key)
	require.NotNil(t, a.Target)
	assert.Equal(t, "tgt-1", a.Target.ID)
}

func TestBuildPlanSuppressesDeleteWhenCalendarMoved(t *testing.T) {
	occ := standupOccurrence()
	twin := managedTwin("tgt-1", occ, "work-to-personal")
	twin.CalendarID = "cal-somewhere-else" // user moved the event
	row := mappingFor(occ, "tgt-1")

	plan := BuildPlan(plannerInput(nil, []domain.TargetEvent{twin}, []domain.MappingRow{row}))
	assert.True(t, plan.Empty(), "moved events must never be deleted")
}

func TestBuildPlanSuppressesDeleteWithoutMarker(t *testing.T) {
	occ := standupOccurrence()
	twin := managedTwin("tgt-1", occ, "work-to-personal")
	twin.Notes = "user replaced the description"
	twin.URL = ""
	row := mappingFor(occ, "tgt-1")

	plan := BuildPlan(plannerInput(nil, []domain.TargetEvent{twin}, []domain.MappingRow{row}))
	assert.True(t, plan.Empty())
}

func TestBuildPlanKeepsRowWhenTargetOutOfSnapshot(t *testing.T) {
	occ := standupOccurrence()
	row := mappingFor(occ, "tgt-gone")

	plan := BuildPlan(plannerInput(nil, nil, []domain.MappingRow{row}))
	assert.True(t, plan.Empty(), "unreachable targets are retried, not swept")
}

func TestBuildPlanFilteredOutOccurrenceIsNotLive(t *testing.T) {
	occ := standupOccurrence()
	twin := managedTwin("tgt-1", occ, "work-to-personal")
	row := mappingFor(occ, "tgt-1")

	in := plannerInput([]domain.Occurrence{occ}, []domain.TargetEvent{twin}, []domain.MappingRow{row})
	in.Rules = []domain.FilterRule{{Kind: domain.RuleExcludeTitle, Pattern: "Standup"}}

	plan := BuildPlan(in)
	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ActionDelete, plan.Actions[0].Kind, "a newly filtered-out occurrence releases its twin")
}

func TestBuildPlanNoDuplicateAfterIdentifierRotation(t *testing.T) {
	occ := standupOccurrence()
	twin := managedTwin("tgt-rotated", occ, "work-to-personal")
	row := mappingFor(occ, "tgt-old") // identifier changed server-side

	plan := BuildPlan(plannerInput(
		[]domain.Occurrence{occ},
		[]domain.TargetEvent{twin},
		[]domain.MappingRow{row},
	))

	assert.Zero(t, plan.Summary().Creates, "rotation must not duplicate")
	require.Len(t, plan.Repairs, 1)
	assert.Equal(t, "tgt-rotated", plan.Repairs[0].TargetEventID)
	assert.Equal(t, row.OccurrenceKey, plan.Repairs[0].OccurrenceKey)
}

func TestBuildPlanSkipsOwnMarkedSourceEvents(t *testing.T) {
	occ := standupOccurrence()
	occ.Notes = Marker{Owner: "work-to-personal"}.Encode()

	plan := BuildPlan(plannerInput([]domain.Occurrence{occ}, nil, nil))
	assert.True(t, plan.Empty(), "events this sync wrote are not sync candidates")
}

func TestBuildPlanBlockerMode(t *testing.T) {
	occ := standupOccurrence()
	in := plannerInput([]domain.Occurrence{occ}, nil, nil)
	in.Mode = domain.ModeBlocker
	in.BlockerTitle = "Busy: {sourceTitle}"

	plan := BuildPlan(in)
	require.Len(t, plan.Actions, 1)
	desired := plan.Actions[0].Desired
	require.NotNil(t, desired)
	assert.Equal(t, "Busy: Standup", desired.Title)
	assert.Empty(t, desired.Location, "blocker events carry no location")
	assert.Equal(t, desired.Notes, Marker{
		Owner:      "work-to-personal",
		SourceID:   occ.SourceID,
		Occurrence: occ.Start,
		SyncKey:    "src-standup|2026-03-02T09:00:00Z",
	}.Encode())
}

func TestBuildPlanBlockerModeIgnoresLocationDiff(t *testing.T) {
	occ := standupOccurrence()
	in := plannerInput([]domain.Occurrence{occ}, nil, nil)
	in.Mode = domain.ModeBlocker
	in.BlockerTitle = "Busy"

	twin := managedTwin("tgt-1", occ, "work-to-personal")
	twin.Title = "Busy"
	twin.Location = "somewhere the blocker never set"
	in.Targets = []domain.TargetEvent{twin}
	in.Mappings = []domain.MappingRow{mappingFor(occ, "tgt-1")}

	plan := BuildPlan(in)
	assert.Empty(t, plan.Actions)
}

func TestBuildPlanTimeWindowGate(t *testing.T) {
	occ := standupOccurrence() // Monday 09:00 UTC
	in := plannerInput([]domain.Occurrence{occ}, nil, nil)
	in.Windows = []domain.TimeWindow{{Weekday: time.Monday, StartMinute: 10 * 60, EndMinute: 18 * 60}}

	plan := BuildPlan(in)
	assert.True(t, plan.Empty(), "start outside every window is skipped")
}

func TestBuildPlanOrdering(t *testing.T) {
	first := standupOccurrence()
	second := standupOccurrence()
	second.SourceID = "src-retro"
	second.Title = "Retro"
	second.Start = first.Start.Add(2 * time.Hour)
	second.End = second.Start.Add(time.Hour)

	orphan := standupOccurrence()
	orphan.SourceID = "src-orphan"
	orphan.Title = "Planning"
	orphanTwin := managedTwin("tgt-orphan", orphan, "work-to-personal")

	plan := BuildPlan(plannerInput(
		[]domain.Occurrence{first, second},
		[]domain.TargetEvent{orphanTwin},
		[]domain.MappingRow{mappingFor(orphan, "tgt-orphan")},
	))

	require.Len(t, plan.Actions, 3)
	assert.Equal(t, ActionCreate, plan.Actions[0].Kind)
	assert.Equal(t, "src-standup", plan.Actions[0].Source.SourceID)
	assert.Equal(t, ActionCreate, plan.Actions[1].Kind)
	assert.Equal(t, "src-retro", plan.Actions[1].Source.SourceID)
	assert.Equal(t, ActionDelete, plan.Actions[2].Kind, "deletes are appended after creates and updates")
}

func TestBuildPlanNeverDeletesReclaimedTwin(t *testing.T) {
	// The source event was recreated with a new UID: its occurrence key
	// rotated, but title and start still match the twin the old key created.
	old := standupOccurrence()
	twin := managedTwin("tgt-1", old, "work-to-personal")
	staleRow := mappingFor(old, "tgt-1")

	recreated := standupOccurrence()
	recreated.SourceID = "src-standup-v2"

	plan := BuildPlan(plannerInput(
		[]domain.Occurrence{recreated},
		[]domain.TargetEvent{twin},
		[]domain.MappingRow{staleRow},
	))

	summary := plan.Summary()
	assert.Zero(t, summary.Creates)
	assert.Zero(t, summary.Deletes, "the stale row must not delete the twin the live key re-claimed")
	require.Len(t, plan.Repairs, 1)
	assert.Equal(t, "tgt-1", plan.Repairs[0].TargetEventID)
	assert.Equal(t, "src-standup-v2|2026-03-02T09:00:00Z", plan.Repairs[0].OccurrenceKey)
}

func TestBuildPlanIgnoresForeignMappings(t *testing.T) {
	occ := standupOccurrence()
	twin := managedTwin("tgt-1", occ, "another-sync")
	foreignRow := mappingFor(occ, "tgt-1")
	foreignRow.SyncID = "another-sync"

	plan := BuildPlan(plannerInput(nil, []domain.TargetEvent{twin}, []domain.MappingRow{foreignRow}))
	assert.True(t, plan.Empty(), "other syncs' rows are not ours to act on")
}
