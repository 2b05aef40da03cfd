// Package sqlite persists pgd's host-wide state in a single SQLite database:
// the last observed state of every instance and the port lease registry.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// FileName is the database file under the data directory.
const FileName = "state.db"

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open state db: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set state db journal mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set state db busy timeout: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS instances (
	project_key TEXT PRIMARY KEY,
	container_id TEXT NOT NULL,
	container_name TEXT NOT NULL,
	postgres_version TEXT NOT NULL,
	host_port INTEGER NOT NULL,
	status TEXT NOT NULL,
	last_seen_at TEXT NOT NULL,
	created_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize instances schema: %w", err)
	}
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS port_leases (
	owner TEXT PRIMARY KEY,
	project TEXT NOT NULL,
	port INTEGER NOT NULL,
	bound_at TEXT NOT NULL
)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize port leases schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenDir opens the database file inside dataDir.
func OpenDir(dataDir string) (*Store, error) {
	return Open(filepath.Join(dataDir, FileName))
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Instances() *InstanceStore {
	return &InstanceStore{db: s.db}
}

func (s *Store) Leases() *LeaseStore {
	return &LeaseStore{db: s.db, alive: configExists}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}
