// Package store persists adapter state and an audit log of normalized
// events in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flemzord/obgram/pkg/onebot"

	_ "modernc.org/sqlite" // SQLite driver registration
)

const defaultBusyTimeout = 5000 // milliseconds

const offsetKey = "telegram_update_offset"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS adapter_state (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	)`,

	`CREATE TABLE IF NOT EXISTS events (
		id          TEXT    NOT NULL,
		received_at TEXT    NOT NULL,
		type        TEXT    NOT NULL,
		detail_type TEXT    NOT NULL DEFAULT '',
		payload     TEXT    NOT NULL,
		PRIMARY KEY (id, received_at)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_events_received ON events(received_at)`,
}

// Store is a SQLite-backed persistence layer for the adapter: the polling
// offset survives restarts, and every normalized event is appended to an
// audit table that a retention job prunes.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) the database at path. The database
// uses WAL mode, a 5 s busy timeout, and a single connection (SQLite
// serialises writes). The schema is applied idempotently.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	ctx := context.TODO()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: enable WAL: %w", err)
	}

	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", defaultBusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: set busy_timeout: %w", err)
	}

	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: migrate: %w", err)
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LastUpdateID returns the last persisted polling offset, or 0 when none
// has been saved yet.
func (s *Store) LastUpdateID(ctx context.Context) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		"SELECT CAST(value AS INTEGER) FROM adapter_state WHERE key = ?", offsetKey,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("store: read update offset: %w", err)
	}
	return id, nil
}

// SaveUpdateID persists the polling offset.
func (s *Store) SaveUpdateID(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO adapter_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		offsetKey, fmt.Sprintf("%d", id), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store: save update offset: %w", err)
	}
	return nil
}

// AppendEvent records a normalized event in the audit table.
func (s *Store) AppendEvent(ctx context.Context, ev *onebot.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("store: marshal event %s: %w", ev.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO events (id, received_at, type, detail_type, payload)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ID,
		time.Now().UTC().Format(time.RFC3339Nano),
		string(ev.Type),
		ev.DetailType,
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("store: append event %s: %w", ev.ID, err)
	}
	return nil
}

// PurgeEventsBefore deletes audit rows received before cutoff and reports
// how many were removed.
func (s *Store) PurgeEventsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE received_at < ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("store: purge events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("store: purge events: %w", err)
	}
	return n, nil
}
