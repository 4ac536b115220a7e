package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

const fileName = "attendance.db"

// Store owns the SQLite database file that holds all attendance data.
// Opening is idempotent: the schema is created only where it is absent, so an
// existing database is never rewritten.
type Store struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// DefaultPath returns the store file location inside the per-user
// application-data directory.
func DefaultPath() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(base, "rollcall", fileName), nil
}

// New ensures the parent directory exists, opens the database with
// write-ahead journaling and runs the schema. Any failure is returned to the
// caller; at startup it is fatal.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

func open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}
	return db, nil
}

// migrate is create-if-not-exists only, never alter. member_id declares its
// reference but foreign keys are not enforced: deleting a member orphans its
// attendance rows. The unique index makes the one-mark-per-member-per-day
// rule hold even when two marks race past the service-level check.
func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id             TEXT PRIMARY KEY,
		name           TEXT,
		role           TEXT NOT NULL,
		prefect_number TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS attendance (
		id        TEXT NOT NULL PRIMARY KEY,
		member_id TEXT NOT NULL REFERENCES members(id),
		date      TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		status    TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_member_date ON attendance(member_id, date);

	CREATE TABLE IF NOT EXISTS backups (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		path       TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// DB returns the current connection pool. Callers must not retain it across
// a Replace.
func (s *Store) DB() *sql.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.DB().PingContext(ctx)
}

// Checkpoint flushes the write-ahead log into the main database file so that
// the file alone is a complete snapshot.
func (s *Store) Checkpoint(ctx context.Context) error {
	_, err := s.DB().ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`)
	return err
}

// Replace swaps the database file for the given raw bytes and reopens the
// pool. This is a cold file-level clone: no schema logic runs and no
// compatibility check is made against the incoming blob.
func (s *Store) Replace(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	for _, sidecar := range []string{s.path + "-wal", s.path + "-shm"} {
		if err := os.Remove(sidecar); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", sidecar, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write db file: %w", err)
	}

	db, err := open(s.path)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
