package storage

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/kellertobias/calsync/internal/domain"
)

// ListMappings returns every mapping row for a sync, ordered by occurrence key
// so plans iterate them deterministically.
func (s *Storage) ListMappings(syncID string) ([]domain.MappingRow, error) {
	rows, err := s.db.Query(`
		SELECT sync_id, source_event_id, occurrence_key, target_event_id, updated_at
		FROM mappings WHERE sync_id = ? ORDER BY occurrence_key`, syncID)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	var result []domain.MappingRow
	for rows.Next() {
		var row domain.MappingRow
		if err := rows.Scan(&row.SyncID, &row.SourceEventID, &row.OccurrenceKey, &row.TargetEventID, &row.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// GetMapping returns the row for one occurrence key.
func (s *Storage) GetMapping(syncID, occurrenceKey string) (*domain.MappingRow, error) {
	var row domain.MappingRow
	err := s.db.QueryRow(`
		SELECT sync_id, source_event_id, occurrence_key, target_event_id, updated_at
		FROM mappings WHERE sync_id = ? AND occurrence_key = ?`, syncID, occurrenceKey).
		Scan(&row.SyncID, &row.SourceEventID, &row.OccurrenceKey, &row.TargetEventID, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get mapping: %w", err)
	}
	return &row, nil
}

// UpsertMapping inserts or replaces the row for (sync_id, occurrence_key).
func (s *Storage) UpsertMapping(row domain.MappingRow) error {
	_, err := s.db.Exec(`
		INSERT INTO mappings (sync_id, source_event_id, occurrence_key, target_event_id, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(sync_id, occurrence_key) DO UPDATE SET
			source_event_id = excluded.source_event_id,
			target_event_id = excluded.target_event_id,
			updated_at = excluded.updated_at`,
		row.SyncID, row.SourceEventID, row.OccurrenceKey, row.TargetEventID, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert mapping: %w", err)
	}
	return nil
}

// DeleteMapping removes the row for one occurrence key.
func (s *Storage) DeleteMapping(syncID, occurrenceKey string) error {
	_, err := s.db.Exec(`DELETE FROM mappings WHERE sync_id = ? AND occurrence_key = ?`, syncID, occurrenceKey)
	if err != nil {
		return fmt.Errorf("delete mapping: %w", err)
	}
	return nil
}
