// Package store persists canonical records in a single-file SQLite database.
// The store is ephemeral by contract: each consumer run starts from a fresh
// file, and the natural key (author, timestamp, message) makes writes
// idempotent under at-least-once delivery.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tinytelemetry/snowpulse/internal/store/migrate"
)

const defaultQueryTimeout = 30 * time.Second

// Store manages the SQLite connection and provides the upsert and query
// surface the consumer needs.
type Store struct {
	db           *sql.DB
	path         string
	QueryTimeout time.Duration
}

// Open deletes any prior store file at path, recreates it, and applies the
// schema migrations. Pass ":memory:" for an in-memory store in tests.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("store: path is empty")
	}

	if path != ":memory:" {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("store: remove prior store: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	// SQLite allows one writer; a single connection avoids lock contention.
	db.SetMaxOpenConns(1)

	if err := migrate.NewRunner(db).Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}

	return &Store{
		db:           db,
		path:         path,
		QueryTimeout: defaultQueryTimeout,
	}, nil
}

// Path returns the store file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}
