package types

import (
	"errors"
	"time"
)

// Config holds backend selection, file locations and the timeout budgets
// of the persistence layer.
type Config struct {
	Backend      string `json:"backend" yaml:"backend"`
	DataDir      string `json:"data_dir" yaml:"data_dir"`
	CorpusPath   string `json:"corpus_path,omitempty" yaml:"corpus_path,omitempty"`
	ResourcesDir string `json:"resources_dir,omitempty" yaml:"resources_dir,omitempty"`

	// OpenTimeout bounds opening the relational store.
	OpenTimeout time.Duration `json:"open_timeout" yaml:"open_timeout"`
	// InitWaitTimeout bounds how long a caller waits for a concurrent
	// initialization before being served by the secondary store.
	InitWaitTimeout time.Duration `json:"init_wait_timeout" yaml:"init_wait_timeout"`
	// MigrationTimeout bounds a whole migration run.
	MigrationTimeout time.Duration `json:"migration_timeout" yaml:"migration_timeout"`
	// BusyTimeout is the store's busy-wait for a locked database.
	BusyTimeout time.Duration `json:"busy_timeout" yaml:"busy_timeout"`

	ContentionPolicy ContentionPolicy `json:"contention_policy" yaml:"contention_policy"`
}

// Backend modes.
const (
	// BackendAuto tries the relational store and falls back to the
	// secondary store.
	BackendAuto   = "auto"
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// ContentionPolicy decides what a lock-contention error means while
// checking whether a migration is needed.
type ContentionPolicy string

const (
	// AssumeMigrated treats contention as "not needed". It avoids
	// migration storms but can mask an empty store under load.
	AssumeMigrated ContentionPolicy = "assume-migrated"
	// AssumeNeeded treats contention like any other check failure.
	AssumeNeeded ContentionPolicy = "assume-needed"
)

// Default budgets.
const (
	DefaultOpenTimeout      = 15 * time.Second
	DefaultInitWaitTimeout  = 30 * time.Second
	DefaultMigrationTimeout = 5 * time.Minute
	DefaultBusyTimeout      = 30 * time.Second
)

// CorpusFileName is the name of the corpus resource.
const CorpusFileName = "KJA.json"

// Config validation errors.
var (
	ErrBackendUnknown          = errors.New("unknown backend")
	ErrContentionPolicyUnknown = errors.New("unknown contention policy")
	ErrTimeoutInvalid          = errors.New("timeouts must be positive")
)

var knownBackends = map[string]bool{
	BackendAuto:   true,
	BackendSQLite: true,
	BackendJSON:   true,
}

// DefaultConfig returns a Config with every budget at its default.
func DefaultConfig() Config {
	return Config{}.WithDefaults()
}

// WithDefaults returns a copy of c with zero fields replaced by defaults.
func (c Config) WithDefaults() Config {
	if c.Backend == "" {
		c.Backend = BackendAuto
	}
	if c.OpenTimeout == 0 {
		c.OpenTimeout = DefaultOpenTimeout
	}
	if c.InitWaitTimeout == 0 {
		c.InitWaitTimeout = DefaultInitWaitTimeout
	}
	if c.MigrationTimeout == 0 {
		c.MigrationTimeout = DefaultMigrationTimeout
	}
	if c.BusyTimeout == 0 {
		c.BusyTimeout = DefaultBusyTimeout
	}
	if c.ContentionPolicy == "" {
		c.ContentionPolicy = AssumeMigrated
	}
	return c
}

// Validate checks that the Config is well-formed. Zero values are accepted;
// WithDefaults fills them.
func (c Config) Validate() error {
	if c.Backend != "" && !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	switch c.ContentionPolicy {
	case "", AssumeMigrated, AssumeNeeded:
	default:
		return ErrContentionPolicyUnknown
	}
	if c.OpenTimeout < 0 || c.InitWaitTimeout < 0 || c.MigrationTimeout < 0 || c.BusyTimeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}
