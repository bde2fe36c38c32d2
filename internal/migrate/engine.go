// Package migrate moves the JSON corpus into the relational store. A run
// clears any earlier corpus, inserts books, chapters and verses, and rebuilds
// the search index. Concurrent callers share one in-flight run.
package migrate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/biblia/internal/corpus"
	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

// cleanupTimeout bounds the best-effort steps that follow a run: the clear
// after a failure and the post-run record after a success.
const cleanupTimeout = 30 * time.Second

// DefaultSmokeTerm is searched after a run to confirm the index answers.
const DefaultSmokeTerm = "Deus"

// flightKey is the single-flight key. Forced and checked runs share it.
const flightKey = "migrate"

// Target is the store a migration writes into.
type Target interface {
	CoreTablesExist(ctx context.Context) (bool, error)
	CountBooks(ctx context.Context) (int, error)
	CountVerses(ctx context.Context) (int, error)
	ClearCorpus(ctx context.Context) error
	InsertBook(ctx context.Context, b types.Book) (int64, error)
	LoadChapters(ctx context.Context, fn func(w types.CorpusWriter) error) error
	RebuildSearchIndex(ctx context.Context) error
	RecordMigration(ctx context.Context, rec types.MigrationRecord) error
	Statistics(ctx context.Context) (types.Statistics, error)
	Search(ctx context.Context, params types.SearchParams) ([]types.SearchResult, error)
}

// State is the engine's position in a run.
type State int

const (
	Idle State = iota
	Running
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// Report describes a committed run.
type Report struct {
	types.MigrationRecord
	// Statistics is nil when the post-run count failed.
	Statistics *types.Statistics `json:"statistics,omitempty"`
	// SmokeHits is the result count of the post-run search, -1 if it failed.
	SmokeHits int           `json:"smoke_hits"`
	Duration  time.Duration `json:"duration_ns"`
}

// Outcome is the result of EnsureMigrated.
type Outcome struct {
	// Migrated is false when the store already held a corpus.
	Migrated bool    `json:"migrated"`
	Report   *Report `json:"report,omitempty"`
}

// Engine runs migrations.
type Engine struct {
	group     singleflight.Group
	timeout   time.Duration
	policy    types.ContentionPolicy
	smokeTerm string
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string

	mu    sync.Mutex
	state State
	runs  int
	last  *Report
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout bounds a whole run.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithContentionPolicy sets how lock contention during IsNeeded is read.
func WithContentionPolicy(p types.ContentionPolicy) Option {
	return func(e *Engine) {
		if p != "" {
			e.policy = p
		}
	}
}

// WithSmokeTerm sets the post-run search term. An empty term skips it.
func WithSmokeTerm(term string) Option {
	return func(e *Engine) { e.smokeTerm = term }
}

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock sets the time source for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an idle engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		timeout:   types.DefaultMigrationTimeout,
		policy:    types.AssumeMigrated,
		smokeTerm: DefaultSmokeTerm,
		logger:    logging.Component("migrate"),
		now:       time.Now,
		newID:     newRunID,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newRunID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// State returns the state of the latest run.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Runs returns how many runs have started.
func (e *Engine) Runs() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.runs
}

// LastReport returns the report of the latest committed run, or nil.
func (e *Engine) LastReport() *Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// IsNeeded reports whether target lacks a migrated corpus: a core table is
// missing or there are no verses. A failed check counts as needed, except
// lock contention, which follows the contention policy.
func (e *Engine) IsNeeded(ctx context.Context, target Target) (bool, error) {
	exists, err := target.CoreTablesExist(ctx)
	if err != nil {
		return e.checkFailed(err), nil
	}
	if !exists {
		return true, nil
	}
	n, err := target.CountVerses(ctx)
	if err != nil {
		return e.checkFailed(err), nil
	}
	return n == 0, nil
}

func (e *Engine) checkFailed(err error) bool {
	if types.IsLockContention(err) {
		needed := e.policy == types.AssumeNeeded
		e.logger.Warn("migration check hit lock contention", "policy", string(e.policy), "needed", needed, "error", err)
		return needed
	}
	e.logger.Warn("migration check failed, assuming needed", "error", err)
	return true
}

// Run migrates unconditionally. Callers arriving while a run is in flight
// share its result.
func (e *Engine) Run(ctx context.Context, target Target, source corpus.Source) (*Report, error) {
	out, err := e.do(ctx, target, source, true)
	if err != nil {
		return nil, err
	}
	return out.Report, nil
}

// EnsureMigrated runs a migration only when IsNeeded says so.
func (e *Engine) EnsureMigrated(ctx context.Context, target Target, source corpus.Source) (Outcome, error) {
	return e.do(ctx, target, source, false)
}

// do joins or starts the single flight. The flight runs on a context that
// ignores the caller's cancellation; a caller whose ctx ends stops waiting
// but the run continues for the others.
func (e *Engine) do(ctx context.Context, target Target, source corpus.Source, force bool) (Outcome, error) {
	detached := context.WithoutCancel(ctx)
	ch := e.group.DoChan(flightKey, func() (any, error) {
		if !force {
			needed, err := e.IsNeeded(detached, target)
			if err != nil {
				return Outcome{}, err
			}
			if !needed {
				e.logger.Debug("migration not needed")
				return Outcome{}, nil
			}
		}
		report, err := e.run(detached, target, source)
		if err != nil {
			return Outcome{}, err
		}
		return Outcome{Migrated: true, Report: report}, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Outcome{}, res.Err
		}
		return res.Val.(Outcome), nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

// run performs one migration under the engine timeout and rolls back on
// failure.
func (e *Engine) run(parent context.Context, target Target, source corpus.Source) (*Report, error) {
	runID := e.newID()
	e.mu.Lock()
	e.runs++
	e.state = Running
	e.mu.Unlock()

	started := e.now()
	logging.MigrationEvent(e.logger, runID, "started", "timeout", e.timeout.String())

	ctx, cancel := context.WithTimeout(parent, e.timeout)
	defer cancel()

	report, wrote, err := e.migrate(ctx, runID, target, source)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = &types.MigrationTimeoutError{Timeout: e.timeout, Err: err}
		}
		if wrote {
			e.rollback(target, runID)
		}
		e.setState(RolledBack)
		logging.MigrationEvent(e.logger, runID, "rolled back", "error", err, "cleared", wrote)
		return nil, err
	}

	report.StartedAt = started
	report.FinishedAt = e.now()
	report.Duration = report.FinishedAt.Sub(started)
	e.record(target, report)

	e.mu.Lock()
	e.state = Committed
	e.last = report
	e.mu.Unlock()
	logging.MigrationEvent(e.logger, runID, "committed",
		"books", report.Books,
		"chapters", report.Chapters,
		"verses", report.Verses,
		"skipped", len(report.Skipped),
		"index_built", report.IndexBuilt,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}

// migrate does the work of a run. wrote reports whether the store was
// touched; only then does a failed run need rollback.
func (e *Engine) migrate(ctx context.Context, runID string, target Target, source corpus.Source) (report *Report, wrote bool, err error) {
	c, err := source.Load(ctx)
	if err != nil {
		return nil, false, &types.MigrationFailedError{Step: "load corpus", Err: err}
	}
	log := e.logger.With("run_id", runID)
	log.Info("corpus loaded", "path", c.Path, "books", len(c.Books), "verses", c.VerseCount())

	n, err := target.CountBooks(ctx)
	if err != nil {
		return nil, false, &types.MigrationFailedError{Step: "count books", Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, false, &types.MigrationFailedError{Step: "count books", Err: err}
	}

	wrote = true
	if n > 0 {
		log.Info("clearing previous corpus", "books", n)
		if err := target.ClearCorpus(ctx); err != nil {
			return nil, wrote, &types.MigrationFailedError{Step: "clear", Err: err}
		}
	}

	report = &Report{SmokeHits: -1}
	report.ID = runID
	report.CorpusHash = c.Hash
	report.CorpusPath = c.Path

	books, err := e.insertBooks(ctx, log, target, c, report)
	if err != nil {
		return nil, wrote, err
	}

	err = target.LoadChapters(ctx, func(w types.CorpusWriter) error {
		for _, b := range books {
			for i, verses := range b.src.Chapters {
				if err := ctx.Err(); err != nil {
					return err
				}
				chapter := i + 1
				if err := w.InsertChapter(ctx, b.id, chapter, len(verses)); err != nil {
					return err
				}
				for j, text := range verses {
					if err := w.InsertVerse(ctx, b.id, chapter, j+1, text); err != nil {
						return err
					}
				}
				report.Chapters++
				report.Verses += len(verses)
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrote, &types.MigrationFailedError{Step: "insert chapters", Err: err}
	}

	if err := target.RebuildSearchIndex(ctx); err != nil {
		log.Warn("search index rebuild failed", "error", err)
	} else {
		report.IndexBuilt = true
	}
	return report, wrote, nil
}

type insertedBook struct {
	id  int64
	src corpus.Book
}

// insertBooks writes one row per corpus book that resolves to a canonical
// book. Unmapped abbreviations and second spellings of a book already
// inserted are skipped and listed in the report.
func (e *Engine) insertBooks(ctx context.Context, log *slog.Logger, target Target, c *corpus.Corpus, report *Report) ([]insertedBook, error) {
	seen := make(map[int]string)
	var out []insertedBook
	for _, b := range c.Books {
		if err := ctx.Err(); err != nil {
			return nil, &types.MigrationFailedError{Step: "insert books", Err: err}
		}
		entry, ok := corpus.Lookup(b.Abbrev)
		if !ok {
			log.Warn("skipping unmapped book", "abbrev", b.Abbrev)
			report.Skipped = append(report.Skipped, b.Abbrev)
			continue
		}
		if prev, dup := seen[entry.Order]; dup {
			log.Warn("skipping duplicate book", "abbrev", b.Abbrev, "first", prev)
			report.Skipped = append(report.Skipped, b.Abbrev)
			continue
		}
		seen[entry.Order] = b.Abbrev

		id, err := target.InsertBook(ctx, types.Book{
			Name:           entry.Name,
			Abbreviation:   entry.Abbrev,
			Testament:      entry.Testament,
			CanonicalOrder: entry.Order,
			TotalChapters:  len(b.Chapters),
		})
		if err != nil {
			return nil, &types.MigrationFailedError{Step: "insert books", Err: err}
		}
		out = append(out, insertedBook{id: id, src: b})
		report.Books++
	}
	return out, nil
}

// record runs the non-critical post-run steps: statistics, a smoke search
// and the migration log row. It gets its own context since the run's
// deadline may already be close.
func (e *Engine) record(target Target, report *Report) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	log := e.logger.With("run_id", report.ID)

	if st, err := target.Statistics(ctx); err != nil {
		log.Warn("post-migration statistics failed", "error", err)
	} else {
		report.Statistics = &st
		log.Info("post-migration statistics",
			"books", st.TotalBooks,
			"old_testament", st.OldTestament,
			"new_testament", st.NewTestament,
			"chapters", st.TotalChapters,
			"verses", st.TotalVerses,
		)
	}

	if e.smokeTerm != "" && report.IndexBuilt {
		results, err := target.Search(ctx, types.SearchParams{Term: e.smokeTerm})
		if err != nil {
			log.Warn("smoke search failed", "term", e.smokeTerm, "error", err)
		} else {
			report.SmokeHits = len(results)
			log.Info("smoke search", "term", e.smokeTerm, "hits", len(results))
		}
	}

	if err := target.RecordMigration(ctx, report.MigrationRecord); err != nil {
		log.Warn("recording migration failed", "error", err)
	}
}

// rollback clears whatever a failed run wrote, on a fresh context so that
// a run that timed out can still be cleaned up.
func (e *Engine) rollback(target Target, runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	if err := target.ClearCorpus(ctx); err != nil {
		e.logger.Error("migration cleanup failed", "run_id", runID, "error", err)
	}
}
