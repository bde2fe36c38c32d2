package types

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypedErrorsMatchSentinels(t *testing.T) {
	driverErr := errors.New("no such table: verses")

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"corpus not found", &CorpusNotFoundError{Candidates: []string{"a", "b"}}, ErrCorpusNotFound},
		{"corpus malformed", &CorpusMalformedError{Path: "KJA.json", Err: driverErr}, ErrCorpusMalformed},
		{"store unavailable", &StoreUnavailableError{Path: "biblia.db", Err: driverErr}, ErrStoreUnavailable},
		{"query", &QueryError{Op: "list books", Err: driverErr}, ErrQuery},
		{"migration timeout", &MigrationTimeoutError{Timeout: time.Minute, Err: driverErr}, ErrMigrationTimeout},
		{"migration failed", &MigrationFailedError{Step: "insert verses", Err: driverErr}, ErrMigrationFailed},
		{"not found", &NotFoundError{Resource: "book", ID: "99"}, ErrNotFound},
		{"validation", &ValidationError{Field: "verse_id", Message: "must be positive"}, ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
		})
	}
}

func TestTypedErrorsKeepCause(t *testing.T) {
	cause := errors.New("disk I/O error")
	err := &QueryError{Op: "insert favorite", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk I/O error")
}

func TestIsLockContention(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"modernc busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"mattn locked", errors.New("database is locked"), true},
		{"table locked", errors.New("database table is locked"), true},
		{"wrapped", fmt.Errorf("check: %w", errors.New("sqlite_busy")), true},
		{"other", errors.New("no such table: books"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLockContention(tt.err))
		})
	}
}
