package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("storage: not found")

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping db: %w", err)
	}

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS mappings (
			sync_id TEXT NOT NULL,
			source_event_id TEXT NOT NULL,
			occurrence_key TEXT NOT NULL,
			target_event_id TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (sync_id, occurrence_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_sync_id ON mappings(sync_id)`,
		`CREATE INDEX IF NOT EXISTS idx_mappings_target ON mappings(sync_id, target_event_id)`,
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			sync_id TEXT NOT NULL,
			status TEXT NOT NULL,
			message TEXT DEFAULT '',
			created INTEGER DEFAULT 0,
			updated INTEGER DEFAULT 0,
			deleted INTEGER DEFAULT 0,
			failed INTEGER DEFAULT 0,
			started_at DATETIME NOT NULL,
			finished_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_sync_id ON runs(sync_id, started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("exec %q: %w", m[:40], err)
		}
	}
	return nil
}
