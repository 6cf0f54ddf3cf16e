package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	ferrors "git.home.luguber.info/inful/assetbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/assetbuilder/internal/retry"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	mu    sync.RWMutex
	now   func() time.Time
	retry retry.Policy // for writes racing another process on the same file
}

// NewSQLiteStore opens the run history database, creating it and its parent
// directory as needed. Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "could not create history directory").
				WithContext("path", dbPath).
				Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "could not open run history database").
			WithContext("path", dbPath).
			Build()
	}
	// a single connection keeps ":memory:" databases shared across queries
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{
		db:    db,
		now:   time.Now,
		retry: retry.NewPolicy(retry.BackoffExponential, 25*time.Millisecond, 400*time.Millisecond, 5),
	}
	if err := store.initialize(); err != nil {
		_ = db.Close() // Best effort cleanup on initialization error
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to initialize run history schema").Build()
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		payload BLOB NOT NULL,
		metadata TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_run_id ON events(run_id);
	CREATE INDEX IF NOT EXISTS idx_timestamp ON events(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append records e. Events without a timestamp are stamped with the store clock.
func (s *SQLiteStore) Append(ctx context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var metadataJSON []byte
	if md := e.Metadata; md != nil {
		var err error
		metadataJSON, err = json.Marshal(md)
		if err != nil {
			return ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to marshal event metadata").Build()
		}
	}

	ts := e.At
	if ts.IsZero() {
		ts = s.now()
	}
	err := s.retry.Do(ctx, isBusy, func() error {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO events (run_id, event_type, timestamp, payload, metadata) VALUES (?, ?, ?, ?, ?)",
			e.RunID, e.Type, ts.UnixMilli(), []byte(e.Payload), metadataJSON,
		)
		return err
	})
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to append event").
			WithContext("run_id", e.RunID).
			WithContext("type", e.Type).
			Build()
	}
	return nil
}

// GetByRunID retrieves all events of a run.
func (s *SQLiteStore) GetByRunID(ctx context.Context, runID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, event_type, timestamp, payload, metadata FROM events WHERE run_id = ? ORDER BY id",
		runID,
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to query events").Build()
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

// GetRange retrieves events within a time range.
func (s *SQLiteStore) GetRange(ctx context.Context, start, end time.Time) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, run_id, event_type, timestamp, payload, metadata FROM events WHERE timestamp >= ? AND timestamp <= ? ORDER BY id",
		start.UnixMilli(), end.UnixMilli(),
	)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to query events").Build()
	}
	defer rows.Close()

	return s.scanEvents(rows)
}

func (s *SQLiteStore) scanEvents(rows *sql.Rows) ([]Event, error) {
	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		var payload, metadataJSON []byte

		if err := rows.Scan(&e.Seq, &e.RunID, &e.Type, &ts, &payload, &metadataJSON); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to scan event rows").Build()
		}
		e.At = time.UnixMilli(ts).UTC()
		e.Payload = payload

		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &e.Metadata); err != nil {
				return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to unmarshal event metadata").Build()
			}
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryEventStore, "failed to iterate event rows").Build()
	}
	return events, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// isBusy reports SQLite lock contention, which clears once the other writer commits.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
