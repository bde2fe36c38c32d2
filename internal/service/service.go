// Package service is the facade the application talks to. It picks a
// backend once per process, the relational store when it opens and holds
// a migrated corpus, the secondary store otherwise, and wraps every
// operation in a Result envelope.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mesh-intelligence/biblia/internal/corpus"
	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/internal/migrate"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

// PrimaryStore is the relational store as the facade uses it.
type PrimaryStore interface {
	types.Backend
	migrate.Target
	Open(ctx context.Context) error
}

// SecondaryFunc constructs the secondary store.
type SecondaryFunc func(ctx context.Context) (types.Backend, error)

// phase is the facade's initialization state. Only the ready phases hold a
// backend.
type phase interface{ name() string }

type uninitialized struct{}

type initializing struct{ done chan struct{} }

type readyPrimary struct{ backend types.Backend }

type readySecondary struct {
	backend types.Backend
	cause   error
}

type readyDegraded struct{ cause error }

func (uninitialized) name() string  { return "uninitialized" }
func (initializing) name() string   { return "initializing" }
func (readyPrimary) name() string   { return "ready" }
func (readySecondary) name() string { return "ready" }
func (readyDegraded) name() string  { return "degraded" }

// Service is the facade. The zero value is not usable; create one with New.
type Service struct {
	primary       PrimaryStore
	openSecondary SecondaryFunc
	engine        *migrate.Engine
	source        corpus.Source

	mode        string
	openTimeout time.Duration
	waitTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu    sync.Mutex
	phase phase

	secMu     sync.Mutex
	secondary types.Backend
}

// Option configures a Service.
type Option func(*Service)

// WithMode selects the backend: types.BackendAuto, BackendSQLite or
// BackendJSON.
func WithMode(mode string) Option {
	return func(s *Service) {
		if mode != "" {
			s.mode = mode
		}
	}
}

// WithOpenTimeout bounds opening the relational store.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.openTimeout = d
		}
	}
}

// WithWaitTimeout bounds how long a call waits for initialization before it
// is served by the secondary store.
func WithWaitTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.waitTimeout = d
		}
	}
}

// WithLogger sets the facade's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithClock sets the clock used for the verse of the day and history.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates an uninitialized facade. primary may be nil in
// types.BackendJSON mode.
func New(primary PrimaryStore, secondary SecondaryFunc, engine *migrate.Engine, source corpus.Source, opts ...Option) *Service {
	s := &Service{
		primary:       primary,
		openSecondary: secondary,
		engine:        engine,
		source:        source,
		mode:          types.BackendAuto,
		openTimeout:   types.DefaultOpenTimeout,
		waitTimeout:   types.DefaultInitWaitTimeout,
		logger:        logging.Component("service"),
		now:           time.Now,
		phase:         uninitialized{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = migrate.NewEngine(migrate.WithLogger(s.logger))
	}
	return s
}

// Initialize selects the backend. The first call starts initialization;
// later calls wait for it, or return at once when it is done. It returns an
// error only when neither backend is available.
func (s *Service) Initialize(ctx context.Context) error {
	_, err := s.backend(ctx)
	return err
}

// backend returns the backend serving the next call. A caller that waits
// longer than the wait budget is served by the secondary store while
// initialization carries on.
func (s *Service) backend(ctx context.Context) (types.Backend, error) {
	s.mu.Lock()
	var done chan struct{}
	switch p := s.phase.(type) {
	case readyPrimary:
		s.mu.Unlock()
		return p.backend, nil
	case readySecondary:
		s.mu.Unlock()
		return p.backend, nil
	case readyDegraded:
		s.mu.Unlock()
		return nil, p.cause
	case initializing:
		done = p.done
	default:
		done = make(chan struct{})
		s.phase = initializing{done: done}
		go s.initialize(done)
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.waitTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return s.backend(ctx)
	case <-timer.C:
		s.logger.Warn("initialization wait budget exceeded, serving from secondary store", "wait", s.waitTimeout.String())
		return s.sharedSecondary(ctx)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// initialize runs once per process and resolves done.
func (s *Service) initialize(done chan struct{}) {
	defer close(done)
	start := s.now()
	ctx := context.Background()

	var next phase
	switch s.mode {
	case types.BackendJSON:
		next = s.fallback(ctx, nil)
	default:
		cause := s.startPrimary(ctx)
		switch {
		case cause == nil:
			next = readyPrimary{backend: s.primary}
		case s.mode == types.BackendSQLite:
			next = readyDegraded{cause: cause}
		default:
			next = s.fallback(ctx, cause)
		}
	}

	s.mu.Lock()
	s.phase = next
	s.mu.Unlock()

	switch p := next.(type) {
	case readyPrimary:
		logging.BackendSelected(s.logger, types.BackendSQLite, s.now().Sub(start), nil)
	case readySecondary:
		logging.BackendSelected(s.logger, types.BackendJSON, s.now().Sub(start), p.cause)
	case readyDegraded:
		s.logger.Error("no backend available", "error", p.cause)
	}
}

// startPrimary opens and migrates the relational store. On failure the
// store is closed and the cause returned.
func (s *Service) startPrimary(ctx context.Context) error {
	if s.primary == nil {
		return &types.StoreUnavailableError{Err: errors.New("no relational store configured")}
	}
	if err := s.openPrimary(ctx); err != nil {
		return err
	}
	if _, err := s.engine.EnsureMigrated(ctx, s.primary, s.source); err != nil {
		if cerr := s.primary.Close(); cerr != nil {
			s.logger.Debug("closing store after failed migration", "error", cerr)
		}
		return err
	}
	return nil
}

// openPrimary runs Open under the open timeout. A store whose Open ignores
// its context and returns late is closed when it does.
func (s *Service) openPrimary(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.openTimeout)
	defer cancel()

	result := make(chan error, 1)
	go func() { result <- s.primary.Open(ctx) }()

	select {
	case err := <-result:
		if err != nil {
			s.primary.Close()
		}
		return err
	case <-ctx.Done():
		go func() {
			if err := <-result; err == nil {
				s.primary.Close()
			}
		}()
		return &types.StoreUnavailableError{Err: fmt.Errorf("open timed out after %s: %w", s.openTimeout, ctx.Err())}
	}
}

// fallback settles on the secondary store, or degrades when it cannot be
// built either.
func (s *Service) fallback(ctx context.Context, cause error) phase {
	if cause != nil {
		s.logger.Warn("relational store unavailable, falling back", "error", cause)
	}
	b, err := s.sharedSecondary(ctx)
	if err != nil {
		if cause != nil {
			err = fmt.Errorf("%w (relational store: %v)", err, cause)
		}
		return readyDegraded{cause: err}
	}
	return readySecondary{backend: b, cause: cause}
}

// sharedSecondary returns the process-wide secondary store, building it on
// first use. A failed build is retried by the next caller.
func (s *Service) sharedSecondary(ctx context.Context) (types.Backend, error) {
	s.secMu.Lock()
	defer s.secMu.Unlock()
	if s.secondary != nil {
		return s.secondary, nil
	}
	if s.openSecondary == nil {
		return nil, types.ErrBackendUnavailable
	}
	b, err := s.openSecondary(ctx)
	if err != nil {
		return nil, err
	}
	s.secondary = b
	return b, nil
}

// Status describes the facade's backend selection.
type Status struct {
	Phase   string `json:"phase"`
	Backend string `json:"backend,omitempty"`
	Cause   string `json:"cause,omitempty"`
	// Migration is the state of the latest migration run.
	Migration string `json:"migration"`
}

// Status reports the current phase without starting initialization.
func (s *Service) Status() Status {
	s.mu.Lock()
	p := s.phase
	s.mu.Unlock()

	st := Status{Phase: p.name(), Migration: s.engine.State().String()}
	switch p := p.(type) {
	case readyPrimary:
		st.Backend = types.BackendSQLite
	case readySecondary:
		st.Backend = types.BackendJSON
		if p.cause != nil {
			st.Cause = p.cause.Error()
		}
	case readyDegraded:
		st.Cause = p.cause.Error()
	}
	return st
}

// BackendKind returns the active backend name, or "" before one is chosen.
func (s *Service) BackendKind() string {
	return s.Status().Backend
}

// Close waits for a running initialization, then closes both stores.
// Later calls fail with types.ErrStoreClosed.
func (s *Service) Close() error {
	s.mu.Lock()
	if p, ok := s.phase.(initializing); ok {
		s.mu.Unlock()
		<-p.done
		s.mu.Lock()
	}
	p := s.phase
	s.phase = readyDegraded{cause: types.ErrStoreClosed}
	s.mu.Unlock()

	var errs []error
	if _, ok := p.(readyPrimary); ok {
		errs = append(errs, s.primary.Close())
	}
	s.secMu.Lock()
	if s.secondary != nil {
		errs = append(errs, s.secondary.Close())
		s.secondary = nil
	}
	s.secMu.Unlock()
	return errors.Join(errs...)
}
