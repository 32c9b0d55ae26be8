// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history owns the shared search_history log: the append-only
// table the search workflow writes into and paper-relay reads, deletes,
// sweeps, and exports.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-relay/pkg/types"
)

// DefaultBusyTimeout is how long a statement waits on a lock held by the
// workflow writer.
const DefaultBusyTimeout = 20 * time.Second

// schemaVersion is the latest PRAGMA user_version.
const schemaVersion = 2

// ErrNotFound is returned when a record or favorite does not exist.
var ErrNotFound = errors.New("record not found")

// Store manages the search history SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at cfg.Path and migrates its schema.
// A database created by an older writer (no user_version) is upgraded in
// place.
func Open(cfg types.StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is empty")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = DefaultBusyTimeout
	}
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d", cfg.Path, busy.Milliseconds())
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: cfg.Path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// SchemaVersion returns the database's PRAGMA user_version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, fmt.Errorf("reading user_version: %w", err)
	}
	return v, nil
}

func (s *Store) migrate() error {
	version, err := s.SchemaVersion(context.Background())
	if err != nil {
		return err
	}

	if version < 1 {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS search_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				query TEXT NOT NULL,
				search_query TEXT NOT NULL,
				top_results TEXT,
				created_at TEXT DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS favorites (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				query TEXT,
				title TEXT NOT NULL,
				authors_venue_year TEXT,
				year TEXT,
				source TEXT,
				link TEXT,
				snippet TEXT,
				created_at TEXT DEFAULT CURRENT_TIMESTAMP
			)`,
		}
		for _, stmt := range statements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("executing schema statement: %w", err)
			}
		}
	}

	if version < 2 {
		has, err := s.hasColumn("search_history", "request_id")
		if err != nil {
			return err
		}
		if !has {
			if _, err := s.db.Exec(`ALTER TABLE search_history ADD COLUMN request_id TEXT`); err != nil {
				return fmt.Errorf("adding request_id column: %w", err)
			}
		}
	}

	if version < schemaVersion {
		if _, err := s.db.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
			return fmt.Errorf("setting user_version: %w", err)
		}
	}
	return nil
}

func (s *Store) hasColumn(table, column string) (bool, error) {
	rows, err := s.db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return false, fmt.Errorf("reading %s columns: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// IsBusy reports whether err is SQLite lock contention, the expected
// failure while the workflow holds the write lock.
func IsBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}
