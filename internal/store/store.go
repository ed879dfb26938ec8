// Package store persists novels, chapters, analyses and summaries in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// FileName is the database file created inside a data directory.
const FileName = "novelparser.db"

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Config configures a Store.
type Config struct {
	// Path is the sqlite file. Parent directories are created.
	Path   string
	Logger *slog.Logger

	// BusyAttempts bounds retries of writes that hit SQLITE_BUSY.
	// Defaults to 5.
	BusyAttempts uint
}

// Store is safe for concurrent use.
type Store struct {
	db       *sql.DB
	logger   *slog.Logger
	attempts uint
}

// Open opens (creating if needed) the database and applies the schema.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("store path is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BusyAttempts == 0 {
		cfg.BusyAttempts = 5
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps the per-connection pragmas (foreign_keys in
	// particular) in force for every statement.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	cfg.Logger.Debug("store opened", "path", cfg.Path)
	return &Store{db: db, logger: cfg.Logger, attempts: cfg.BusyAttempts}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// write runs fn, retrying while sqlite reports the database as busy.
func (s *Store) write(ctx context.Context, op string, fn func() error) error {
	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(s.attempts),
		retry.Delay(50*time.Millisecond),
		retry.RetryIf(isBusy),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("database busy, retrying", "op", op, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// inTx runs fn inside a transaction, retried as a whole when busy.
func (s *Store) inTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	return s.write(ctx, op, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if err := fn(tx); err != nil {
			tx.Rollback()
			return err
		}
		return tx.Commit()
	})
}

// timeLayout has a fixed-width fraction so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
