// Package engine contains the reconciliation core: pure decision logic that
// turns a source-occurrence snapshot, a target-event snapshot and a mapping
// snapshot into an ordered create/update/delete plan. Nothing in this package
// performs I/O or reads the clock; time is always passed in.
package engine

import (
	"time"

	"github.com/kellertobias/calsync/internal/domain"
)

// Key identifies one source occurrence across runs and devices. The instant is
// normalized to UTC with second precision so the same logical occurrence
// collides to the same key regardless of local timezone or DST state.
type Key struct {
	SourceID string
	Instant  time.Time
}

// DeriveKey builds the occurrence key for a source event. The occurrence
// instant wins when present (recurring instance), else the event start, else
// now (a non-recurring event without a start is treated as a degenerate single
// occurrence). Always returns a value.
func DeriveKey(sourceID string, occurrence, start, now time.Time) Key {
	instant := occurrence
	if instant.IsZero() {
		instant = start
	}
	if instant.IsZero() {
		instant = now
	}
	return Key{SourceID: sourceID, Instant: instant.UTC().Truncate(time.Second)}
}

// KeyFor derives the key for an occurrence snapshot.
func KeyFor(occ *domain.Occurrence, now time.Time) Key {
	return DeriveKey(occ.SourceID, occ.Occurrence, occ.Start, now)
}

// String renders the key in its persisted form, "sourceID|instant".
func (k Key) String() string {
	return k.SourceID + "|" + k.Instant.Format(time.RFC3339)
}
