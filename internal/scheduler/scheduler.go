// Package scheduler drives the configured syncs on their intervals. Each sync
// gets its own cron entry; a tick that arrives while the previous run is still
// going is dropped, and consecutively failing syncs are held back with an
// exponential backoff so a broken server is not hammered every interval.
package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/kellertobias/calsync/internal/domain"
)

const (
	backoffBase   = time.Minute
	backoffFactor = 2
	backoffCap    = time.Hour
	jitterFrac    = 0.2
)

// Runner executes one sync cycle. Satisfied by *service.SyncService.
type Runner interface {
	Run(dryRun bool) (*domain.SyncRun, error)
}

type entry struct {
	id     string
	runner Runner

	mu       sync.Mutex
	inFlight bool
	failures int
	holdOff  time.Time
}

type Scheduler struct {
	cron    *cron.Cron
	entries []*entry
	log     zerolog.Logger
	now     func() time.Time
}

func New(location *time.Location, log zerolog.Logger) *Scheduler {
	if location == nil {
		location = time.UTC
	}
	return &Scheduler{
		cron: cron.New(cron.WithLocation(location)),
		log:  log,
		now:  time.Now,
	}
}

// Add registers a sync to run every intervalMinutes.
func (s *Scheduler) Add(id string, intervalMinutes int, runner Runner) error {
	e := &entry{id: id, runner: runner}
	spec := fmt.Sprintf("@every %dm", intervalMinutes)
	if _, err := s.cron.AddFunc(spec, func() { s.tick(e) }); err != nil {
		return fmt.Errorf("schedule sync %s: %w", id, err)
	}
	s.entries = append(s.entries, e)
	return nil
}

// Start runs every registered sync once immediately, then hands off to cron
// and blocks until ctx is cancelled. In-flight runs are allowed to finish
// before Start returns.
func (s *Scheduler) Start(ctx context.Context) error {
	for _, e := range s.entries {
		s.tick(e)
	}

	s.cron.Start()
	s.log.Info().Int("syncs", len(s.entries)).Msg("scheduler started")

	<-ctx.Done()
	stopped := s.cron.Stop()
	<-stopped.Done()
	s.log.Info().Msg("scheduler stopped")
	return nil
}

func (s *Scheduler) tick(e *entry) {
	e.mu.Lock()
	if e.inFlight {
		e.mu.Unlock()
		s.log.Warn().Str("sync", e.id).Msg("previous run still in progress, skipping tick")
		return
	}
	if hold := e.holdOff; s.now().Before(hold) {
		e.mu.Unlock()
		s.log.Info().Str("sync", e.id).Time("until", hold).Msg("backing off after failures")
		return
	}
	e.inFlight = true
	e.mu.Unlock()

	run, err := e.runner.Run(false)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inFlight = false
	if err != nil {
		e.failures++
		delay := backoffDelay(e.failures)
		e.holdOff = s.now().Add(delay)
		s.log.Error().Err(err).Str("sync", e.id).Int("failures", e.failures).Dur("backoff", delay).Msg("sync run failed")
		return
	}
	e.failures = 0
	e.holdOff = time.Time{}
	if run.Created+run.Updated+run.Deleted+run.Failed > 0 {
		s.log.Info().Str("sync", e.id).Str("summary", run.Summary()).Msg("sync run finished")
	}
}

// backoffDelay returns the wait after n consecutive failures: exponential from
// backoffBase, capped at backoffCap, with up to jitterFrac of random spread in
// either direction so restarted daemons do not retry in lockstep.
func backoffDelay(n int) time.Duration {
	d := backoffBase
	for i := 1; i < n; i++ {
		d *= backoffFactor
		if d >= backoffCap {
			d = backoffCap
			break
		}
	}
	jitter := 1 + jitterFrac*(2*rand.Float64()-1)
	return time.Duration(float64(d) * jitter)
}
