package domain

import (
	"fmt"
	"time"
)

// SyncMode selects what a managed target event carries.
type SyncMode string

const (
	// ModeFull mirrors title, times, location and notes.
	ModeFull SyncMode = "full"
	// ModeBlocker creates anonymized events from a title template, times only.
	ModeBlocker SyncMode = "blocker"
)

// RunStatus is the outcome of one reconciliation-and-apply cycle.
type RunStatus string

const (
	RunStatusOK     RunStatus = "ok"
	RunStatusFailed RunStatus = "failed"
)

// SyncRun is the per-run summary recorded for diagnostics.
type SyncRun struct {
	ID         string
	SyncID     string
	Status     RunStatus
	Message    string
	Created    int
	Updated    int
	Deleted    int
	Failed     int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary returns a one-line human-readable digest.
func (r *SyncRun) Summary() string {
	return fmt.Sprintf("sync %s: %s (created %d, updated %d, deleted %d, failed %d)",
		r.SyncID, r.Status, r.Created, r.Updated, r.Deleted, r.Failed)
}
