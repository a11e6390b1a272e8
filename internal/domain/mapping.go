package domain

import "time"

// MappingRow links a source occurrence key to the target event created for it.
// It is the authoritative ownership record: a target event may only be deleted
// if a mapping row exists for its key, its calendar matches the configured
// target and it carries a recognized marker.
type MappingRow struct {
	SyncID        string
	SourceEventID string
	OccurrenceKey string
	TargetEventID string
	UpdatedAt     time.Time
}
