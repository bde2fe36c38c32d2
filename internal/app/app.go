// Package app wires the persistence layer from a types.Config: the corpus
// loader, the relational store, the migration engine, the secondary store
// and the facade over them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mesh-intelligence/biblia/internal/corpus"
	"github.com/mesh-intelligence/biblia/internal/jsonstore"
	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/internal/migrate"
	"github.com/mesh-intelligence/biblia/internal/paths"
	"github.com/mesh-intelligence/biblia/internal/service"
	"github.com/mesh-intelligence/biblia/internal/sqlite"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

// App holds the wired components.
type App struct {
	Config  types.Config
	Loader  *corpus.Loader
	Store   *sqlite.Store
	Engine  *migrate.Engine
	Service *service.Service

	logger *slog.Logger
}

// New validates cfg, fills defaults and builds the components. Nothing is
// opened until the facade is first used.
func New(cfg types.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cfg = cfg.WithDefaults()

	if cfg.DataDir == "" {
		cfg.DataDir = paths.DefaultDataDir()
	}

	loader := corpus.NewLoader(
		paths.CorpusCandidates(cfg.CorpusPath, cfg.ResourcesDir),
		corpus.WithLogger(logger.With("component", "corpus")),
	)
	store := sqlite.New(cfg.DataDir,
		sqlite.WithBusyTimeout(cfg.BusyTimeout),
		sqlite.WithLogger(logger.With("component", "sqlite")),
	)
	engine := migrate.NewEngine(
		migrate.WithTimeout(cfg.MigrationTimeout),
		migrate.WithContentionPolicy(cfg.ContentionPolicy),
		migrate.WithLogger(logger.With("component", "migrate")),
	)

	dataDir := cfg.DataDir
	secondary := func(ctx context.Context) (types.Backend, error) {
		s, err := jsonstore.Open(ctx, dataDir, loader, jsonstore.WithLogger(logger.With("component", "jsonstore")))
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	svc := service.New(store, secondary, engine, loader,
		service.WithMode(cfg.Backend),
		service.WithOpenTimeout(cfg.OpenTimeout),
		service.WithWaitTimeout(cfg.InitWaitTimeout),
		service.WithLogger(logger.With("component", "service")),
	)

	return &App{
		Config:  cfg,
		Loader:  loader,
		Store:   store,
		Engine:  engine,
		Service: svc,
		logger:  logger,
	}, nil
}

// Migrate opens the relational store and migrates it, unconditionally
// when force is set. It bypasses the facade and its fallback.
func (a *App) Migrate(ctx context.Context, force bool) (migrate.Outcome, error) {
	if err := a.Store.Open(ctx); err != nil {
		return migrate.Outcome{}, err
	}
	if !force {
		return a.Engine.EnsureMigrated(ctx, a.Store, a.Loader)
	}
	report, err := a.Engine.Run(ctx, a.Store, a.Loader)
	if err != nil {
		return migrate.Outcome{}, err
	}
	return migrate.Outcome{Migrated: true, Report: report}, nil
}

// Migrations returns the relational store's migration log.
func (a *App) Migrations(ctx context.Context) ([]types.MigrationRecord, error) {
	if err := a.Store.Open(ctx); err != nil {
		return nil, err
	}
	return a.Store.Migrations(ctx)
}

// Close closes the facade and the relational store.
func (a *App) Close() error {
	return errors.Join(a.Service.Close(), a.Store.Close())
}
