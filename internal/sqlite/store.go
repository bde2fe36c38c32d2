// Package sqlite implements the relational store: one SQLite connection per
// process holding the migrated corpus, the user data, and an FTS5 search
// index over verse text.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

// FileName is the store file inside the data directory.
const FileName = "biblia.db"

// timeLayout is how timestamps are stored. It sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func init() {
	sqlx.BindDriver(driverName, sqlx.QUESTION)
}

var _ types.Backend = (*Store)(nil)

// Store is the relational store. The zero value is not usable; create one
// with New and call Open.
type Store struct {
	mu          sync.RWMutex
	path        string
	busyTimeout time.Duration
	db          *sqlx.DB
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithBusyTimeout sets how long a statement waits on a locked database.
func WithBusyTimeout(d time.Duration) Option {
	return func(s *Store) { s.busyTimeout = d }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the time source for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates a closed store for <dataDir>/biblia.db.
func New(dataDir string, opts ...Option) *Store {
	if dataDir == "" {
		dataDir = "."
	}
	s := &Store{
		path:        filepath.Join(dataDir, FileName),
		busyTimeout: types.DefaultBusyTimeout,
		logger:      logging.Component("sqlite"),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the store file path.
func (s *Store) Path() string { return s.path }

// Driver returns the name of the compiled-in SQL driver.
func (s *Store) Driver() string { return driverType }

// Open opens the connection, applies pragmas, creates the schema if absent
// and seeds default settings. Open on an open store is a no-op. Failures
// are returned as *types.StoreUnavailableError.
func (s *Store) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return s.unavailable(err)
	}

	db, err := sqlx.Open(driverName, dsn(s.path, s.busyTimeout))
	if err != nil {
		return s.unavailable(err)
	}
	// One physical connection: SQLite serializes writers anyway and a
	// single connection keeps pragmas and transactions on one handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return s.unavailable(err)
	}
	if err := s.applyPragmas(ctx, db); err != nil {
		db.Close()
		return s.unavailable(err)
	}
	if err := createSchema(ctx, db); err != nil {
		db.Close()
		return s.unavailable(err)
	}
	if err := seedDefaultSettings(ctx, db, s.now()); err != nil {
		db.Close()
		return s.unavailable(err)
	}

	s.db = db
	s.logger.Info("store opened", "path", s.path, "driver", driverType)
	return nil
}

func (s *Store) unavailable(err error) error {
	return &types.StoreUnavailableError{Path: s.path, Err: err}
}

// applyPragmas configures the connection for a single local writer.
func (s *Store) applyPragmas(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", s.busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func createSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schemaDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	for _, stmt := range indexDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

// Close checkpoints the write-ahead log and closes the connection. Close is
// idempotent. The checkpoint is best-effort.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		s.logger.Warn("wal checkpoint failed", "error", err)
	}
	err := s.db.Close()
	s.db = nil
	if err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	s.logger.Info("store closed", "path", s.path)
	return nil
}

// IsOpen reports whether the store holds an open connection.
func (s *Store) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// withDB runs fn with the open connection, holding the read lock so Close
// waits for it.
func (s *Store) withDB(fn func(db *sqlx.DB) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return types.ErrStoreClosed
	}
	return fn(s.db)
}

// Execute runs a statement that returns no rows.
func (s *Store) Execute(ctx context.Context, query string, args ...any) error {
	return s.withDB(func(db *sqlx.DB) error {
		if _, err := db.ExecContext(ctx, query, args...); err != nil {
			return &types.QueryError{Op: "execute", Err: err}
		}
		return nil
	})
}

// QueryOne scans the first row into dest. It reports false, with no error,
// when there is no row.
func (s *Store) QueryOne(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	found := false
	err := s.withDB(func(db *sqlx.DB) error {
		if err := db.GetContext(ctx, dest, query, args...); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return &types.QueryError{Op: "query one", Err: err}
		}
		found = true
		return nil
	})
	return found, err
}

// QueryMany scans all rows into dest, a pointer to a slice.
func (s *Store) QueryMany(ctx context.Context, dest any, query string, args ...any) error {
	return s.withDB(func(db *sqlx.DB) error {
		if err := db.SelectContext(ctx, dest, query, args...); err != nil {
			return &types.QueryError{Op: "query many", Err: err}
		}
		return nil
	})
}

// InTx runs fn inside one transaction. It commits when fn returns nil and
// rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return s.withDB(func(db *sqlx.DB) error {
		tx, err := db.BeginTxx(ctx, nil)
		if err != nil {
			return &types.QueryError{Op: "begin", Err: err}
		}
		defer tx.Rollback()

		if err := fn(tx); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return &types.QueryError{Op: "commit", Err: err}
		}
		return nil
	})
}

func (s *Store) stamp() string {
	return formatTime(s.now())
}

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
