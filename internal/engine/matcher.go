package engine

import (
	"time"

	"github.com/kellertobias/calsync/internal/domain"
)

// ResolveTwin finds the current target event for a source occurrence key.
//
// The mapping table is the primary path: a row for the key pointing at an
// event present in the snapshot wins. When that misses, a loose match over
// marker-tagged target events by (title, start) absorbs target identifier
// rotation so churn does not manufacture duplicates. The loose match accepts a
// small risk of grabbing an identical-looking unrelated event; creating
// duplicates after every identifier change is the far larger risk. When
// several tagged targets share (title, start), the lexicographically smallest
// event ID wins, which is deterministic across snapshot orderings.
func ResolveTwin(
	key Key,
	wantTitle string,
	start time.Time,
	mappings map[string]domain.MappingRow,
	targetsByID map[string]*domain.TargetEvent,
	targets []domain.TargetEvent,
	ownerTag string,
) *domain.TargetEvent {
	if row, ok := mappings[key.String()]; ok {
		if twin, ok := targetsByID[row.TargetEventID]; ok {
			return twin
		}
	}

	var best *domain.TargetEvent
	for i := range targets {
		twin := &targets[i]
		m, ok := DecodeMarker(twin.Notes, twin.URL)
		if !ok {
			continue
		}
		if m.Owner != "" && m.Owner != ownerTag {
			continue
		}
		if twin.Title != wantTitle || !twin.Start.Equal(start) {
			continue
		}
		if best == nil || twin.ID < best.ID {
			best = twin
		}
	}
	return best
}
