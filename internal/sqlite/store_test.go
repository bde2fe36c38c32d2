package sqlite

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

type testBook struct {
	book     types.Book
	chapters [][]string
}

// Verse ids in a fresh store: Gn 1:1..1:3 are 1..3, Gn 2:1 is 4,
// Jo 1:1 is 5 and Jo 1:2 is 6.
var testCorpus = []testBook{
	{
		book: types.Book{Name: "Gênesis", Abbreviation: "Gn", Testament: types.OldTestament, CanonicalOrder: 1, TotalChapters: 2},
		chapters: [][]string{
			{
				"In the beginning God created the heaven and the earth.",
				"And the earth was without form, and void.",
				"And the Spirit moved upon the face of the waters.",
			},
			{"Thus the heavens and the earth were finished."},
		},
	},
	{
		book: types.Book{Name: "João", Abbreviation: "Jo", Testament: types.NewTestament, CanonicalOrder: 43, TotalChapters: 1},
		chapters: [][]string{
			{
				"In the beginning was the Word.",
				"The same was in the beginning with the Lord.",
			},
		},
	},
}

func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	t := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func openTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{
		WithLogger(logging.Discard()),
		WithClock(steppingClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))),
	}, opts...)
	s := New(t.TempDir(), opts...)
	require.NoError(t, s.Open(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

// seedStore writes books through the same calls the migration engine makes
// and returns the book ids by abbreviation.
func seedStore(t *testing.T, s *Store, books []testBook) map[string]int64 {
	t.Helper()
	ctx := context.Background()
	ids := make(map[string]int64, len(books))
	for _, b := range books {
		id, err := s.InsertBook(ctx, b.book)
		require.NoError(t, err)
		ids[b.book.Abbreviation] = id
	}
	err := s.LoadChapters(ctx, func(w types.CorpusWriter) error {
		for _, b := range books {
			id := ids[b.book.Abbreviation]
			for c, verses := range b.chapters {
				if err := w.InsertChapter(ctx, id, c+1, len(verses)); err != nil {
					return err
				}
				for v, text := range verses {
					if err := w.InsertVerse(ctx, id, c+1, v+1, text); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.RebuildSearchIndex(ctx))
	return ids
}

func TestStore_OpenCreatesFile(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, WithLogger(logging.Discard()))
	assert.False(t, s.IsOpen())

	require.NoError(t, s.Open(context.Background()))
	defer s.Close()

	assert.True(t, s.IsOpen())
	_, err := os.Stat(s.Path())
	assert.NoError(t, err)

	// A second Open is a no-op.
	assert.NoError(t, s.Open(context.Background()))
}

func TestStore_Pragmas(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	var mode string
	_, err := s.QueryOne(ctx, &mode, "PRAGMA journal_mode")
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	var fk int
	_, err = s.QueryOne(ctx, &fk, "PRAGMA foreign_keys")
	require.NoError(t, err)
	assert.Equal(t, 1, fk)
}

func TestStore_CloseIsIdempotent(t *testing.T) {
	s := New(t.TempDir(), WithLogger(logging.Discard()))
	require.NoError(t, s.Open(context.Background()))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.False(t, s.IsOpen())

	_, err := s.ListBooks(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreClosed)
}

func TestStore_OpenFailsOnBadPath(t *testing.T) {
	dir := t.TempDir()
	blocker := dir + "/file"
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := New(blocker, WithLogger(logging.Discard()))
	err := s.Open(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrStoreUnavailable)

	var unavailable *types.StoreUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, s.Path(), unavailable.Path)
}

func TestStore_DefaultSettings(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := New(dir, WithLogger(logging.Discard()))
	require.NoError(t, s.Open(ctx))

	for _, want := range types.DefaultSettings {
		got, found, err := s.GetSetting(ctx, want.Key)
		require.NoError(t, err)
		assert.True(t, found, want.Key)
		assert.Equal(t, want.Value, got, want.Key)
	}

	require.NoError(t, s.SetSetting(ctx, types.SettingTheme, "dark"))
	require.NoError(t, s.Close())

	// Reopening seeds only absent keys.
	s = New(dir, WithLogger(logging.Discard()))
	require.NoError(t, s.Open(ctx))
	defer s.Close()

	got, found, err := s.GetSetting(ctx, types.SettingTheme)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "dark", got)

	_, found, err = s.GetSetting(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	assert.ErrorIs(t, s.SetSetting(ctx, "", "x"), types.ErrInvalidInput)
}

func TestStore_CoreTables(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	ok, err := s.CoreTablesExist(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	n, err := s.CountBooks(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_Reader(t *testing.T) {
	s := openTestStore(t)
	ids := seedStore(t, s, testCorpus)
	ctx := context.Background()

	books, err := s.ListBooks(ctx)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Gn", books[0].Abbreviation)
	assert.Equal(t, "Jo", books[1].Abbreviation)
	assert.Equal(t, types.NewTestament, books[1].Testament)

	book, err := s.GetBook(ctx, ids["Gn"])
	require.NoError(t, err)
	assert.Equal(t, "Gênesis", book.Name)
	assert.Equal(t, 2, book.TotalChapters)

	_, err = s.GetBook(ctx, 999)
	assert.ErrorIs(t, err, types.ErrNotFound)

	verses, err := s.ListVersesInChapter(ctx, ids["Gn"], 1)
	require.NoError(t, err)
	require.Len(t, verses, 3)
	for i, v := range verses {
		assert.Equal(t, i+1, v.Number)
	}

	verses, err = s.ListVersesInChapter(ctx, ids["Gn"], 9)
	require.NoError(t, err)
	assert.Empty(t, verses)

	v, err := s.GetVerse(ctx, ids["Jo"], 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "João 1:2", v.Reference())
	assert.Equal(t, int64(6), v.ID)

	_, err = s.GetVerse(ctx, ids["Jo"], 1, 9)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStore_Search(t *testing.T) {
	s := openTestStore(t)
	ids := seedStore(t, s, testCorpus)
	ctx := context.Background()

	refs := func(results []types.SearchResult) []string {
		out := make([]string, len(results))
		for i, r := range results {
			out[i] = types.VerseDetail{
				Verse:    types.Verse{Chapter: r.Chapter, Number: r.Number},
				BookName: r.BookName,
			}.Reference()
		}
		return out
	}

	tests := []struct {
		name   string
		params types.SearchParams
		want   []string
	}{
		{
			name:   "single word",
			params: types.SearchParams{Term: "God"},
			want:   []string{"Gênesis 1:1"},
		},
		{
			name:   "case folded",
			params: types.SearchParams{Term: "god"},
			want:   []string{"Gênesis 1:1"},
		},
		{
			name:   "prefix match in canonical order",
			params: types.SearchParams{Term: "begin"},
			want:   []string{"Gênesis 1:1", "João 1:1", "João 1:2"},
		},
		{
			name:   "words are combined",
			params: types.SearchParams{Term: "beginning Lord"},
			want:   []string{"João 1:2"},
		},
		{
			name:   "exact phrase",
			params: types.SearchParams{Term: "the earth was", Exact: true},
			want:   []string{"Gênesis 1:2"},
		},
		{
			name:   "testament filter",
			params: types.SearchParams{Term: "beginning", Testament: types.NewTestament},
			want:   []string{"João 1:1", "João 1:2"},
		},
		{
			name:   "book filter",
			params: types.SearchParams{Term: "earth", BookID: ids["Gn"]},
			want:   []string{"Gênesis 1:1", "Gênesis 1:2", "Gênesis 2:1"},
		},
		{
			name:   "short words only",
			params: types.SearchParams{Term: "in a"},
			want:   []string{},
		},
		{
			name:   "punctuation only",
			params: types.SearchParams{Term: `""" ***`},
			want:   []string{},
		},
		{
			name:   "quotes are escaped",
			params: types.SearchParams{Term: `"God"`, Exact: true},
			want:   []string{"Gênesis 1:1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := s.Search(ctx, tt.params)
			require.NoError(t, err)
			assert.Equal(t, tt.want, refs(results))
		})
	}

	_, err := s.Search(ctx, types.SearchParams{Term: "God", Testament: "Apocrypha"})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

func TestStore_Favorites(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s, testCorpus)
	ctx := context.Background()

	require.NoError(t, s.AddFavorite(ctx, 1))
	require.NoError(t, s.AddFavorite(ctx, 1))
	require.NoError(t, s.AddFavorite(ctx, 5))

	favs, err := s.ListFavorites(ctx)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, int64(5), favs[0].VerseID, "newest first")
	assert.Equal(t, "João", favs[0].BookName)
	assert.Equal(t, "In the beginning was the Word.", favs[0].Text)

	require.NoError(t, s.RemoveFavorite(ctx, 5))
	ok, err := s.IsFavorite(ctx, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.IsFavorite(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.ErrorIs(t, s.AddFavorite(ctx, 999), types.ErrNotFound)
	assert.NoError(t, s.RemoveFavorite(ctx, 999))
}

func TestStore_Annotations(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s, testCorpus)
	ctx := context.Background()

	first, err := s.AddAnnotation(ctx, types.AnnotationInput{VerseID: 1, Title: "Creation", Body: "first note"})
	require.NoError(t, err)
	assert.Equal(t, "Gênesis", first.BookName)
	assert.Equal(t, first.CreatedAt, first.UpdatedAt)

	second, err := s.AddAnnotation(ctx, types.AnnotationInput{VerseID: 1, Body: "second note"})
	require.NoError(t, err)
	_, err = s.AddAnnotation(ctx, types.AnnotationInput{VerseID: 5, Body: "word"})
	require.NoError(t, err)

	forVerse, err := s.ListAnnotationsForVerse(ctx, 1)
	require.NoError(t, err)
	require.Len(t, forVerse, 2)
	assert.Equal(t, second.ID, forVerse[0].ID)
	assert.Equal(t, first.ID, forVerse[1].ID)

	updated, err := s.UpdateAnnotation(ctx, first.ID, "Creation", "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Body)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt))

	all, err := s.ListAnnotations(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID, "most recently updated first")

	_, err = s.UpdateAnnotation(ctx, 999, "", "x")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = s.UpdateAnnotation(ctx, first.ID, "", "")
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.AddAnnotation(ctx, types.AnnotationInput{VerseID: 1})
	assert.ErrorIs(t, err, types.ErrInvalidInput)
	_, err = s.AddAnnotation(ctx, types.AnnotationInput{VerseID: 999, Body: "x"})
	assert.ErrorIs(t, err, types.ErrNotFound)

	require.NoError(t, s.RemoveAnnotation(ctx, first.ID))
	all, err = s.ListAnnotations(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStore_HistoryBound(t *testing.T) {
	s := openTestStore(t)
	ids := seedStore(t, s, testCorpus)
	ctx := context.Background()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)

	for c := 1; c <= 60; c++ {
		require.NoError(t, s.AddHistoryEntry(ctx, ids["Gn"], c, base.Add(time.Duration(c)*time.Minute)))
	}

	history, err := s.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, types.HistoryLimit)
	assert.Equal(t, 60, history[0].Chapter)
	assert.Equal(t, 11, history[len(history)-1].Chapter)

	// Revisiting moves the chapter to the front without duplicating it.
	require.NoError(t, s.AddHistoryEntry(ctx, ids["Gn"], 30, base.Add(2*time.Hour)))
	history, err = s.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, types.HistoryLimit)
	assert.Equal(t, 30, history[0].Chapter)

	seen := map[int]bool{}
	for _, h := range history {
		assert.False(t, seen[h.Chapter], "duplicate chapter %d", h.Chapter)
		seen[h.Chapter] = true
		assert.Equal(t, "Gênesis", h.BookName)
	}

	assert.ErrorIs(t, s.AddHistoryEntry(ctx, 999, 1, base), types.ErrNotFound)
	assert.ErrorIs(t, s.AddHistoryEntry(ctx, ids["Gn"], 0, base), types.ErrInvalidInput)
}

func TestStore_VerseOfDay(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s, testCorpus)
	ctx := context.Background()
	day := time.Date(2026, 2, 3, 12, 0, 0, 0, time.UTC)

	a, err := s.VerseOfDay(ctx, day)
	require.NoError(t, err)
	b, err := s.VerseOfDay(ctx, day.Add(6*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// Day 34 of 6 verses is index 4, the fifth verse.
	assert.Equal(t, int64(5), a.Verse.ID)
	assert.Equal(t, "João 1:1", a.Reference)
}

func TestStore_VerseOfDayEmpty(t *testing.T) {
	s := openTestStore(t)
	_, err := s.VerseOfDay(context.Background(), time.Now())
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestStore_Statistics(t *testing.T) {
	s := openTestStore(t)
	ids := seedStore(t, s, testCorpus)
	ctx := context.Background()

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Nil(t, st.LastAccess)

	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	require.NoError(t, s.AddFavorite(ctx, 2))
	require.NoError(t, s.AddHistoryEntry(ctx, ids["Gn"], 1, at.Add(-time.Hour)))
	require.NoError(t, s.AddHistoryEntry(ctx, ids["Jo"], 1, at))

	st, err = s.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.TotalBooks)
	assert.Equal(t, 1, st.OldTestament)
	assert.Equal(t, 1, st.NewTestament)
	assert.Equal(t, 3, st.TotalChapters)
	assert.Equal(t, 6, st.TotalVerses)
	assert.Equal(t, 1, st.TotalFavorites)
	assert.Equal(t, 2, st.HistoryEntries)
	assert.Equal(t, 2, st.BooksVisited)
	require.NotNil(t, st.LastAccess)
	assert.True(t, at.Equal(*st.LastAccess))
	assert.Equal(t, types.BackendSQLite, st.Backend)
}

func TestStore_LoadChaptersRollsBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id, err := s.InsertBook(ctx, testCorpus[0].book)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.LoadChapters(ctx, func(w types.CorpusWriter) error {
		require.NoError(t, w.InsertChapter(ctx, id, 1, 1))
		require.NoError(t, w.InsertVerse(ctx, id, 1, 1, "text"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.CountVerses(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.TotalChapters)
}

func TestStore_ClearCorpus(t *testing.T) {
	s := openTestStore(t)
	ids := seedStore(t, s, testCorpus)
	ctx := context.Background()

	require.NoError(t, s.AddFavorite(ctx, 1))
	_, err := s.AddAnnotation(ctx, types.AnnotationInput{VerseID: 1, Body: "x"})
	require.NoError(t, err)
	require.NoError(t, s.AddHistoryEntry(ctx, ids["Gn"], 1, time.Now()))
	require.NoError(t, s.SetSetting(ctx, types.SettingTheme, "dark"))

	require.NoError(t, s.ClearCorpus(ctx))

	st, err := s.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.TotalBooks)
	assert.Zero(t, st.TotalVerses)
	assert.Zero(t, st.TotalFavorites)
	assert.Zero(t, st.TotalAnnotations)
	assert.Zero(t, st.HistoryEntries)

	results, err := s.Search(ctx, types.SearchParams{Term: "God"})
	require.NoError(t, err)
	assert.Empty(t, results)

	// Settings survive a re-migration.
	theme, _, err := s.GetSetting(ctx, types.SettingTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", theme)
}

func TestStore_ClearCorpusWithoutSearchIndex(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s, testCorpus)
	ctx := context.Background()

	require.NoError(t, s.Execute(ctx, dropSearch))
	require.NoError(t, s.ClearCorpus(ctx))
}

func TestStore_RebuildSearchIndexRecreates(t *testing.T) {
	s := openTestStore(t)
	seedStore(t, s, testCorpus)
	ctx := context.Background()

	require.NoError(t, s.Execute(ctx, dropSearch))
	require.NoError(t, s.RebuildSearchIndex(ctx))

	results, err := s.Search(ctx, types.SearchParams{Term: "God"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].VerseID)
}

func TestStore_Migrations(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	rec := types.MigrationRecord{
		ID:         "run-1",
		StartedAt:  start,
		FinishedAt: start.Add(2 * time.Second),
		Books:      66,
		Chapters:   1189,
		Verses:     31102,
		Skipped:    []string{"Xx", "Yy"},
		CorpusHash: "abc",
		CorpusPath: "/tmp/KJA.json",
		IndexBuilt: true,
	}
	require.NoError(t, s.RecordMigration(ctx, rec))
	require.NoError(t, s.RecordMigration(ctx, types.MigrationRecord{ID: "run-0", StartedAt: start.Add(-time.Hour), FinishedAt: start}))

	got, err := s.Migrations(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "run-1", got[0].ID)
	assert.Equal(t, []string{"Xx", "Yy"}, got[0].Skipped)
	assert.True(t, got[0].IndexBuilt)
	assert.True(t, start.Equal(got[0].StartedAt))
	assert.Nil(t, got[1].Skipped)
}
