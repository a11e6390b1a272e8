// Package service orchestrates one reconciliation-and-apply cycle per sync:
// snapshot, plan, apply, record. The decision logic itself lives in
// internal/engine; this package owns all the I/O around it.
package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kellertobias/calsync/config"
	"github.com/kellertobias/calsync/internal/domain"
	"github.com/kellertobias/calsync/internal/engine"
	"github.com/kellertobias/calsync/internal/notify"
)

// SourceCalendar is the snapshot side of the source provider.
type SourceCalendar interface {
	ListOccurrences(calendarPath string, from, to time.Time) ([]domain.Occurrence, error)
}

// TargetCalendar is the snapshot and commit side of the target provider.
type TargetCalendar interface {
	ListEvents(calendarPath string, from, to time.Time) ([]domain.TargetEvent, error)
	CreateEvent(calendarPath string, ev *domain.TargetEvent) (string, error)
	UpdateEvent(calendarPath string, ev *domain.TargetEvent) error
	DeleteEvent(calendarPath, eventID string) error
}

// Store persists mapping rows and run summaries.
type Store interface {
	ListMappings(syncID string) ([]domain.MappingRow, error)
	UpsertMapping(row domain.MappingRow) error
	DeleteMapping(syncID, occurrenceKey string) error
	RecordRun(run *domain.SyncRun) error
}

// SyncService runs one configured sync.
type SyncService struct {
	sync     *config.Sync
	source   SourceCalendar
	target   TargetCalendar
	store    Store
	notifier notify.Notifier
	location *time.Location
	log      zerolog.Logger
	now      func() time.Time
}

func New(sync *config.Sync, source SourceCalendar, target TargetCalendar, store Store, notifier notify.Notifier, location *time.Location, log zerolog.Logger) *SyncService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if location == nil {
		location = time.UTC
	}
	return &SyncService{
		sync:     sync,
		source:   source,
		target:   target,
		store:    store,
		notifier: notifier,
		location: location,
		log:      log.With().Str("sync", sync.ID).Logger(),
		now:      time.Now,
	}
}

// Run executes one reconciliation-and-apply cycle. A whole-run failure (any
// snapshot unavailable) is recorded and returned; per-action failures are
// counted in the run summary but never abort the remaining actions.
func (s *SyncService) Run(dryRun bool) (*domain.SyncRun, error) {
	started := s.now()
	run := &domain.SyncRun{
		ID:        uuid.NewString(),
		SyncID:    s.sync.ID,
		Status:    domain.RunStatusOK,
		StartedAt: started,
	}

	from := started
	to := started.AddDate(0, 0, s.sync.HorizonDays)

	occurrences, err := s.source.ListOccurrences(s.sync.SourceCalendar, from, to)
	if err != nil {
		return s.fail(run, fmt.Errorf("snapshot source: %w", err))
	}
	targets, err := s.target.ListEvents(s.sync.TargetCalendar, from, to)
	if err != nil {
		return s.fail(run, fmt.Errorf("snapshot target: %w", err))
	}
	mappings, err := s.store.ListMappings(s.sync.ID)
	if err != nil {
		return s.fail(run, fmt.Errorf("snapshot mappings: %w", err))
	}

	plan := engine.BuildPlan(engine.Input{
		SyncID:           s.sync.ID,
		OwnerTag:         s.sync.ID,
		TargetCalendarID: s.sync.TargetCalendar,
		Mode:             s.sync.SyncMode,
		BlockerTitle:     s.sync.BlockerTitle,
		Rules:            s.sync.Rules,
		Windows:          s.sync.TimeWindows,
		Location:         s.location,
		Now:              started,
		Source:           occurrences,
		Targets:          targets,
		Mappings:         mappings,
	})

	summary := plan.Summary()
	s.log.Info().
		Int("source_occurrences", len(occurrences)).
		Int("target_events", len(targets)).
		Int("creates", summary.Creates).
		Int("updates", summary.Updates).
		Int("deletes", summary.Deletes).
		Bool("dry_run", dryRun).
		Msg("plan built")

	if dryRun {
		for _, a := range plan.Actions {
			s.log.Info().Str("action", string(a.Kind)).Str("key", a.Key).Str("reason", a.Reason).Msg("dry run")
		}
		run.Message = "dry run"
		run.FinishedAt = s.now()
		return run, nil
	}

	s.apply(run, &plan)

	run.FinishedAt = s.now()
	if err := s.store.RecordRun(run); err != nil {
		s.log.Error().Err(err).Msg("record run")
	}
	s.notifyRun(run)
	return run, nil
}

// apply executes the plan sequentially. Mapping changes are persisted only
// after the matching provider call succeeds, so a crash mid-apply leaves the
// mapping table consistent with whatever actually happened; the next run
// re-derives the rest.
func (s *SyncService) apply(run *domain.SyncRun, plan *engine.Plan) {
	for i := range plan.Actions {
		a := &plan.Actions[i]
		switch a.Kind {
		case engine.ActionCreate:
			eventID, err := s.target.CreateEvent(s.sync.TargetCalendar, a.Desired)
			if err != nil {
				s.actionFailed(run, a, err)
				continue
			}
			s.persistMapping(run, domain.MappingRow{
				SyncID:        s.sync.ID,
				SourceEventID: a.Source.SourceID,
				OccurrenceKey: a.Key,
				TargetEventID: eventID,
				UpdatedAt:     s.now(),
			})
			run.Created++

		case engine.ActionUpdate:
			if err := s.target.UpdateEvent(s.sync.TargetCalendar, a.Desired); err != nil {
				s.actionFailed(run, a, err)
				continue
			}
			s.persistMapping(run, domain.MappingRow{
				SyncID:        s.sync.ID,
				SourceEventID: a.Source.SourceID,
				OccurrenceKey: a.Key,
				TargetEventID: a.Desired.ID,
				UpdatedAt:     s.now(),
			})
			run.Updated++

		case engine.ActionDelete:
			// Never retried within a run; safety beats promptness.
			if err := s.target.DeleteEvent(s.sync.TargetCalendar, a.Target.ID); err != nil {
				s.actionFailed(run, a, err)
				continue
			}
			if err := s.store.DeleteMapping(s.sync.ID, a.Key); err != nil {
				s.log.Error().Err(err).Str("key", a.Key).Msg("remove mapping")
				run.Failed++
				continue
			}
			run.Deleted++
		}
	}

	for _, row := range plan.Repairs {
		s.persistMapping(run, row)
	}
}

func (s *SyncService) persistMapping(run *domain.SyncRun, row domain.MappingRow) {
	if err := s.store.UpsertMapping(row); err != nil {
		s.log.Error().Err(err).Str("key", row.OccurrenceKey).Msg("persist mapping")
		run.Failed++
	}
}

func (s *SyncService) actionFailed(run *domain.SyncRun, a *engine.Action, err error) {
	s.log.Error().Err(err).Str("action", string(a.Kind)).Str("key", a.Key).Msg("apply action")
	run.Failed++
}

func (s *SyncService) fail(run *domain.SyncRun, err error) (*domain.SyncRun, error) {
	s.log.Error().Err(err).Msg("run failed")
	run.Status = domain.RunStatusFailed
	run.Message = err.Error()
	run.FinishedAt = s.now()
	if recErr := s.store.RecordRun(run); recErr != nil {
		s.log.Error().Err(recErr).Msg("record failed run")
	}
	s.notifyRun(run)
	return run, err
}

func (s *SyncService) notifyRun(run *domain.SyncRun) {
	changed := run.Created+run.Updated+run.Deleted+run.Failed > 0
	if run.Status == domain.RunStatusOK && !changed {
		return
	}
	if err := s.notifier.Notify(run.Summary()); err != nil {
		s.log.Error().Err(err).Msg("notify")
	}
}
