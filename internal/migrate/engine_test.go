package migrate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/biblia/internal/corpus"
	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/internal/sqlite"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

var smallCorpus = corpus.Static{
	{Abbrev: "Gn", Chapters: [][]string{
		{"No princípio criou Deus os céus e a terra.", "E a terra era sem forma e vazia.", "E disse Deus: Haja luz."},
		{"Assim os céus e a terra foram acabados."},
	}},
	{Abbrev: "Ex", Chapters: [][]string{
		{"Estes pois são os nomes dos filhos de Israel."},
	}},
	{Abbrev: "Jo", Chapters: [][]string{
		{"No princípio era o Verbo."},
		{"E ao terceiro dia fizeram-se umas bodas."},
		{"Porque Deus amou o mundo de tal maneira."},
	}},
}

func newTestEngine(opts ...Option) *Engine {
	return NewEngine(append([]Option{WithLogger(logging.Discard())}, opts...)...)
}

func openStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s := sqlite.New(t.TempDir(), sqlite.WithLogger(logging.Discard()))
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// gatedSource blocks Load until release is closed.
type gatedSource struct {
	corpus.Source
	release chan struct{}
	loads   int
	mu      sync.Mutex
}

func (g *gatedSource) Load(ctx context.Context) (*corpus.Corpus, error) {
	g.mu.Lock()
	g.loads++
	g.mu.Unlock()
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Source.Load(ctx)
}

func TestEngine_SingleChapter(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	ctx := context.Background()

	out, err := e.EnsureMigrated(ctx, store, corpus.Static{
		{Abbrev: "Gn", Chapters: [][]string{{"one", "two", "three"}}},
	})
	require.NoError(t, err)
	require.True(t, out.Migrated)
	assert.Equal(t, Committed, e.State())

	books, err := store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Gênesis", books[0].Name)
	assert.Equal(t, types.OldTestament, books[0].Testament)

	verses, err := store.ListVersesInChapter(ctx, books[0].ID, 1)
	require.NoError(t, err)
	require.Len(t, verses, 3)
	for i, v := range verses {
		assert.Equal(t, i+1, v.Number)
	}
	assert.Equal(t, "three", verses[2].Text)
}

func TestEngine_Completeness(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	ctx := context.Background()

	report, err := e.Run(ctx, store, smallCorpus)
	require.NoError(t, err)

	c, err := smallCorpus.Load(ctx)
	require.NoError(t, err)

	verses, err := store.CountVerses(ctx)
	require.NoError(t, err)
	assert.Equal(t, c.VerseCount(), verses)

	books, err := store.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(smallCorpus), books)

	assert.Equal(t, 3, report.Books)
	assert.Equal(t, c.ChapterCount(), report.Chapters)
	assert.Equal(t, c.VerseCount(), report.Verses)
	assert.Equal(t, c.Hash, report.CorpusHash)
	assert.True(t, report.IndexBuilt)
	assert.Equal(t, 3, report.SmokeHits)
	require.NotNil(t, report.Statistics)
	assert.Equal(t, 2, report.Statistics.OldTestament)
	assert.Equal(t, 1, report.Statistics.NewTestament)

	log, err := store.Migrations(ctx)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, report.ID, log[0].ID)
	assert.Equal(t, report.Verses, log[0].Verses)
}

func TestEngine_SkipsUnmappedAndDuplicateBooks(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	ctx := context.Background()

	report, err := e.Run(ctx, store, corpus.Static{
		{Abbrev: "Ex", Chapters: [][]string{{"a"}}},
		{Abbrev: "Xx", Chapters: [][]string{{"b"}}},
		{Abbrev: "Êx", Chapters: [][]string{{"c"}}},
		{Abbrev: "mt", Chapters: [][]string{{"d", "e"}}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Xx", "Êx"}, report.Skipped)
	assert.Equal(t, 2, report.Books)
	assert.Equal(t, 3, report.Verses)

	books, err := store.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, 2, books[0].CanonicalOrder)
	assert.Equal(t, "Mt", books[1].Abbreviation)
}

func TestEngine_SecondEnsureIsNoop(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	ctx := context.Background()

	out, err := e.EnsureMigrated(ctx, store, smallCorpus)
	require.NoError(t, err)
	require.True(t, out.Migrated)
	before, err := store.Statistics(ctx)
	require.NoError(t, err)

	needed, err := e.IsNeeded(ctx, store)
	require.NoError(t, err)
	assert.False(t, needed)

	out, err = e.EnsureMigrated(ctx, store, smallCorpus)
	require.NoError(t, err)
	assert.False(t, out.Migrated)
	assert.Nil(t, out.Report)
	assert.Equal(t, 1, e.Runs())

	after, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEngine_ConcurrentCallersShareOneRun(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	src := &gatedSource{Source: smallCorpus, release: make(chan struct{})}

	const callers = 8
	var wg sync.WaitGroup
	outcomes := make([]Outcome, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = e.EnsureMigrated(context.Background(), store, src)
		}(i)
	}

	require.Eventually(t, func() bool { return e.State() == Running }, 5*time.Second, time.Millisecond)
	close(src.release)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
	}
	assert.Equal(t, 1, e.Runs())
	assert.Equal(t, 1, src.loads)

	n, err := store.CountBooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestEngine_CallerCancelDoesNotAbortRun(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	src := &gatedSource{Source: smallCorpus, release: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := e.EnsureMigrated(ctx, store, src)
		done <- err
	}()

	require.Eventually(t, func() bool { return e.State() == Running }, 5*time.Second, time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	close(src.release)
	require.Eventually(t, func() bool { return e.State() == Committed }, 5*time.Second, time.Millisecond)

	n, err := store.CountVerses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestEngine_RemigrationClearsUserData(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.Run(ctx, store, smallCorpus)
	require.NoError(t, err)
	require.NoError(t, store.AddFavorite(ctx, 1))

	_, err = e.Run(ctx, store, smallCorpus)
	require.NoError(t, err)
	assert.Equal(t, 2, e.Runs())

	st, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalBooks)
	assert.Equal(t, 7, st.TotalVerses)
	assert.Zero(t, st.TotalFavorites)
}

// failingTarget fails the verse insert after a number of successful ones.
type failingTarget struct {
	*sqlite.Store
	verses int
	index  error
}

func (f *failingTarget) LoadChapters(ctx context.Context, fn func(w types.CorpusWriter) error) error {
	return f.Store.LoadChapters(ctx, func(w types.CorpusWriter) error {
		return fn(&failingWriter{CorpusWriter: w, left: f.verses})
	})
}

func (f *failingTarget) RebuildSearchIndex(ctx context.Context) error {
	if f.index != nil {
		return f.index
	}
	return f.Store.RebuildSearchIndex(ctx)
}

type failingWriter struct {
	types.CorpusWriter
	left int
}

func (w *failingWriter) InsertVerse(ctx context.Context, bookID int64, chapter, number int, text string) error {
	if w.left == 0 {
		return errors.New("disk full")
	}
	w.left--
	return w.CorpusWriter.InsertVerse(ctx, bookID, chapter, number, text)
}

func TestEngine_FailureRollsBack(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.Run(ctx, &failingTarget{Store: store, verses: 4}, smallCorpus)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMigrationFailed)

	var failed *types.MigrationFailedError
	require.True(t, errors.As(err, &failed))
	assert.Equal(t, "insert chapters", failed.Step)
	assert.Equal(t, RolledBack, e.State())
	assert.Nil(t, e.LastReport())

	books, err := store.CountBooks(ctx)
	require.NoError(t, err)
	assert.Zero(t, books)
	verses, err := store.CountVerses(ctx)
	require.NoError(t, err)
	assert.Zero(t, verses)

	needed, err := e.IsNeeded(ctx, store)
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestEngine_IndexFailureIsNotFatal(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()

	report, err := e.Run(context.Background(), &failingTarget{Store: store, verses: -1, index: errors.New("no fts5")}, smallCorpus)
	require.NoError(t, err)
	assert.False(t, report.IndexBuilt)
	assert.Equal(t, -1, report.SmokeHits)
	assert.Equal(t, 7, report.Verses)
	assert.Equal(t, Committed, e.State())
}

func TestEngine_CorpusNotFound(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()

	src := corpus.NewLoader([]string{t.TempDir() + "/missing.json"}, corpus.WithLogger(logging.Discard()))
	_, err := e.Run(context.Background(), store, src)
	assert.ErrorIs(t, err, types.ErrMigrationFailed)
	assert.ErrorIs(t, err, types.ErrCorpusNotFound)
	assert.Equal(t, RolledBack, e.State())
}

func TestEngine_FailedLoadKeepsExistingStore(t *testing.T) {
	store := openStore(t)
	e := newTestEngine()
	ctx := context.Background()

	_, err := e.Run(ctx, store, smallCorpus)
	require.NoError(t, err)
	require.NoError(t, store.AddFavorite(ctx, 1))

	src := corpus.NewLoader([]string{t.TempDir() + "/missing.json"}, corpus.WithLogger(logging.Discard()))
	_, err = e.Run(ctx, store, src)
	require.ErrorIs(t, err, types.ErrCorpusNotFound)
	assert.Equal(t, RolledBack, e.State())

	st, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.TotalBooks)
	assert.Equal(t, 7, st.TotalVerses)
	assert.Equal(t, 1, st.TotalFavorites)

	fav, err := store.IsFavorite(ctx, 1)
	require.NoError(t, err)
	assert.True(t, fav)
}

func TestEngine_FailedLoadDoesNotClear(t *testing.T) {
	target := &fakeTarget{}
	e := newTestEngine()

	_, err := e.Run(context.Background(), target, errSource{err: errors.New("bad json")})
	require.ErrorIs(t, err, types.ErrMigrationFailed)
	assert.Zero(t, target.cleared)
}

type errSource struct{ err error }

func (s errSource) Load(context.Context) (*corpus.Corpus, error) { return nil, s.err }

// slowIndexTarget spends the whole run budget in the index rebuild and
// then reports success, leaving the post-run steps past the deadline.
type slowIndexTarget struct {
	*fakeTarget
	recordErr error
	recorded  bool
}

func (s *slowIndexTarget) RebuildSearchIndex(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (s *slowIndexTarget) RecordMigration(ctx context.Context, _ types.MigrationRecord) error {
	s.recorded = true
	s.recordErr = ctx.Err()
	return s.recordErr
}

func TestEngine_RecordOutlivesRunDeadline(t *testing.T) {
	target := &slowIndexTarget{fakeTarget: &fakeTarget{}}
	e := newTestEngine(WithTimeout(50 * time.Millisecond))

	report, err := e.Run(context.Background(), target, smallCorpus)
	require.NoError(t, err)
	assert.Equal(t, Committed, e.State())
	require.NotNil(t, report.Statistics)
	assert.True(t, target.recorded)
	assert.NoError(t, target.recordErr)
}

// fakeTarget is a Target whose calls are scripted.
type fakeTarget struct {
	existsErr error
	blockLoad bool

	mu      sync.Mutex
	cleared int
}

func (f *fakeTarget) CoreTablesExist(context.Context) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	return true, nil
}
func (f *fakeTarget) CountBooks(context.Context) (int, error)  { return 0, nil }
func (f *fakeTarget) CountVerses(context.Context) (int, error) { return 0, nil }
func (f *fakeTarget) ClearCorpus(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
	return nil
}
func (f *fakeTarget) InsertBook(context.Context, types.Book) (int64, error) { return 1, nil }
func (f *fakeTarget) LoadChapters(ctx context.Context, fn func(types.CorpusWriter) error) error {
	if f.blockLoad {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}
func (f *fakeTarget) RebuildSearchIndex(context.Context) error {
	return nil
}
func (f *fakeTarget) RecordMigration(context.Context, types.MigrationRecord) error {
	return nil
}
func (f *fakeTarget) Statistics(context.Context) (types.Statistics, error) {
	return types.Statistics{}, nil
}
func (f *fakeTarget) Search(context.Context, types.SearchParams) ([]types.SearchResult, error) {
	return nil, nil
}

func TestEngine_Timeout(t *testing.T) {
	target := &fakeTarget{blockLoad: true}
	e := newTestEngine(WithTimeout(50 * time.Millisecond))

	_, err := e.Run(context.Background(), target, smallCorpus)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMigrationTimeout)

	var timeout *types.MigrationTimeoutError
	require.True(t, errors.As(err, &timeout))
	assert.Equal(t, 50*time.Millisecond, timeout.Timeout)
	assert.Equal(t, RolledBack, e.State())
	assert.Equal(t, 1, target.cleared)
}

func TestEngine_IsNeededContention(t *testing.T) {
	locked := errors.New("database is locked (5) (SQLITE_BUSY)")

	tests := []struct {
		name   string
		err    error
		policy types.ContentionPolicy
		want   bool
	}{
		{"default policy assumes migrated", locked, "", false},
		{"assume migrated", locked, types.AssumeMigrated, false},
		{"assume needed", locked, types.AssumeNeeded, true},
		{"other errors mean needed", errors.New("disk I/O error"), types.AssumeMigrated, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(WithContentionPolicy(tt.policy))
			needed, err := e.IsNeeded(context.Background(), &fakeTarget{existsErr: tt.err})
			require.NoError(t, err)
			assert.Equal(t, tt.want, needed)
		})
	}
}

func TestEngine_IsNeededOnFreshStore(t *testing.T) {
	store := openStore(t)
	needed, err := newTestEngine().IsNeeded(context.Background(), store)
	require.NoError(t, err)
	assert.True(t, needed)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "committed", Committed.String())
	assert.Equal(t, "rolled-back", RolledBack.String())
}
