package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/kellertobias/calsync/internal/domain"
	"github.com/kellertobias/calsync/internal/engine"
)

// Purge deletes every managed target event for this sync, bypassing the
// normal create/update path. Every candidate still passes through the
// safe-deletion gate: events the user moved or stripped of their marker are
// skipped and reported, never deleted. Mapping rows whose target no longer
// exists are swept.
func (s *SyncService) Purge(dryRun bool) (*domain.SyncRun, error) {
	started := s.now()
	run := &domain.SyncRun{
		ID:        uuid.NewString(),
		SyncID:    s.sync.ID,
		Status:    domain.RunStatusOK,
		Message:   "purge",
		StartedAt: started,
	}

	mappings, err := s.store.ListMappings(s.sync.ID)
	if err != nil {
		return s.fail(run, fmt.Errorf("snapshot mappings: %w", err))
	}

	// Mapped events may sit outside the normal sync horizon, so the purge
	// snapshot is deliberately generous.
	from := started.AddDate(-1, 0, 0)
	to := started.AddDate(2, 0, 0)
	targets, err := s.target.ListEvents(s.sync.TargetCalendar, from, to)
	if err != nil {
		return s.fail(run, fmt.Errorf("snapshot target: %w", err))
	}
	targetsByID := make(map[string]*domain.TargetEvent, len(targets))
	for i := range targets {
		targetsByID[targets[i].ID] = &targets[i]
	}

	for _, row := range mappings {
		twin, ok := targetsByID[row.TargetEventID]
		if !ok {
			// The event is already gone; only the stale row remains.
			if dryRun {
				continue
			}
			if err := s.store.DeleteMapping(s.sync.ID, row.OccurrenceKey); err != nil {
				s.log.Error().Err(err).Str("key", row.OccurrenceKey).Msg("sweep mapping")
				run.Failed++
			}
			continue
		}

		var marker *engine.Marker
		if m, ok := engine.DecodeMarker(twin.Notes, twin.URL); ok {
			marker = &m
		}
		if !engine.MayDelete(s.sync.TargetCalendar, twin.CalendarID, marker, s.sync.ID, true) {
			s.log.Warn().Str("event", twin.ID).Msg("purge skipped: event no longer looks managed")
			continue
		}

		if dryRun {
			s.log.Info().Str("event", twin.ID).Str("key", row.OccurrenceKey).Msg("purge dry run")
			run.Deleted++
			continue
		}

		if err := s.target.DeleteEvent(s.sync.TargetCalendar, twin.ID); err != nil {
			s.log.Error().Err(err).Str("event", twin.ID).Msg("purge delete")
			run.Failed++
			continue
		}
		if err := s.store.DeleteMapping(s.sync.ID, row.OccurrenceKey); err != nil {
			s.log.Error().Err(err).Str("key", row.OccurrenceKey).Msg("remove mapping")
			run.Failed++
			continue
		}
		run.Deleted++
	}

	run.FinishedAt = s.now()
	if !dryRun {
		if err := s.store.RecordRun(run); err != nil {
			s.log.Error().Err(err).Msg("record run")
		}
		s.notifyRun(run)
	}
	return run, nil
}
