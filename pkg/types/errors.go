package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors. The structured errors below unwrap to these so callers
// can match with errors.Is.
var (
	ErrCorpusNotFound     = errors.New("corpus not found")
	ErrCorpusMalformed    = errors.New("corpus malformed")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrStoreClosed        = errors.New("store is closed")
	ErrQuery              = errors.New("query failed")
	ErrMigrationTimeout   = errors.New("migration timed out")
	ErrMigrationFailed    = errors.New("migration failed")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrBackendUnavailable = errors.New("no backend available")
)

// CorpusNotFoundError lists every candidate path that was tried.
type CorpusNotFoundError struct {
	Candidates []string
}

func (e *CorpusNotFoundError) Error() string {
	return fmt.Sprintf("corpus not found in any of: %s", strings.Join(e.Candidates, ", "))
}

func (e *CorpusNotFoundError) Unwrap() error { return ErrCorpusNotFound }

// CorpusMalformedError reports a corpus file that could not be decoded.
type CorpusMalformedError struct {
	Path string
	Err  error
}

func (e *CorpusMalformedError) Error() string {
	return fmt.Sprintf("corpus malformed: %s: %v", e.Path, e.Err)
}

func (e *CorpusMalformedError) Unwrap() error { return e.Err }

func (e *CorpusMalformedError) Is(target error) bool { return target == ErrCorpusMalformed }

// StoreUnavailableError reports that the relational store could not be
// opened or configured.
type StoreUnavailableError struct {
	Path string
	Err  error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable: %s: %v", e.Path, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

func (e *StoreUnavailableError) Is(target error) bool { return target == ErrStoreUnavailable }

// QueryError carries the driver message of a failed statement.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func (e *QueryError) Is(target error) bool { return target == ErrQuery }

// MigrationTimeoutError reports a migration run that exceeded its budget.
type MigrationTimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *MigrationTimeoutError) Error() string {
	return fmt.Sprintf("migration exceeded %s: %v", e.Timeout, e.Err)
}

func (e *MigrationTimeoutError) Unwrap() error { return e.Err }

func (e *MigrationTimeoutError) Is(target error) bool { return target == ErrMigrationTimeout }

// MigrationFailedError reports the step at which a migration run failed.
type MigrationFailedError struct {
	Step string
	Err  error
}

func (e *MigrationFailedError) Error() string {
	return fmt.Sprintf("migration failed at %s: %v", e.Step, e.Err)
}

func (e *MigrationFailedError) Unwrap() error { return e.Err }

func (e *MigrationFailedError) Is(target error) bool { return target == ErrMigrationFailed }

// NotFoundError reports a missing entity.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// ValidationError reports an invalid argument.
type ValidationError struct {
	Field   string
	Value   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("invalid input: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// lockContentionMarkers are substrings of driver messages that mean another
// connection holds the database lock. The three drivers phrase it slightly
// differently.
var lockContentionMarkers = []string{
	"database is locked",
	"database table is locked",
	"sqlite_busy",
	"sqlite_locked",
}

// IsLockContention reports whether err is a busy/locked database error.
func IsLockContention(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range lockContentionMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
