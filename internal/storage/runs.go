package storage

import (
	"fmt"

	"github.com/kellertobias/calsync/internal/domain"
)

// RecordRun persists the per-run summary.
func (s *Storage) RecordRun(run *domain.SyncRun) error {
	_, err := s.db.Exec(`
		INSERT INTO runs (id, sync_id, status, message, created, updated, deleted, failed, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.SyncID, string(run.Status), run.Message,
		run.Created, run.Updated, run.Deleted, run.Failed,
		run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// RecentRuns returns the latest n runs for a sync, newest first.
func (s *Storage) RecentRuns(syncID string, n int) ([]domain.SyncRun, error) {
	rows, err := s.db.Query(`
		SELECT id, sync_id, status, message, created, updated, deleted, failed, started_at, finished_at
		FROM runs WHERE sync_id = ? ORDER BY started_at DESC LIMIT ?`, syncID, n)
	if err != nil {
		return nil, fmt.Errorf("recent runs: %w", err)
	}
	defer rows.Close()

	var result []domain.SyncRun
	for rows.Next() {
		var run domain.SyncRun
		var status string
		if err := rows.Scan(&run.ID, &run.SyncID, &status, &run.Message,
			&run.Created, &run.Updated, &run.Deleted, &run.Failed,
			&run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = domain.RunStatus(status)
		result = append(result, run)
	}
	return result, rows.Err()
}
