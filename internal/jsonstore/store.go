// Package jsonstore is the secondary backend. It serves the corpus from
// memory and keeps user data in JSONL snapshot files, so it works wherever
// the relational store cannot be opened.
package jsonstore

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/biblia/internal/corpus"
	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

var _ types.Backend = (*Store)(nil)

// bookData is a book with the positions of its verses, per chapter.
type bookData struct {
	book     types.Book
	chapters [][]int
}

// Store is the secondary backend. Verse and book ids are positions in the
// corpus, starting at 1.
type Store struct {
	mu      sync.RWMutex
	dataDir string
	logger  *slog.Logger
	now     func() time.Time
	closed  bool

	corpusPath string
	books      []bookData
	canonical  []int
	verses     []types.Verse
	folded     []string

	favorites   []types.Favorite
	annotations []types.Annotation
	history     []types.HistoryEntry
	settings    []types.Setting
	nextID      struct{ favorite, annotation, history int64 }
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithClock sets the time source for created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Open loads the corpus from source and the snapshot files from dataDir.
// It fails only when the corpus cannot be loaded.
func Open(ctx context.Context, dataDir string, source corpus.Source, opts ...Option) (*Store, error) {
	s := &Store{
		dataDir: dataDir,
		logger:  logging.Component("jsonstore"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	c, err := source.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.index(c)
	s.loadSnapshots()

	s.logger.Info("secondary store opened",
		"corpus", c.Path,
		"books", len(s.books),
		"verses", len(s.verses),
		"data_dir", dataDir,
	)
	return s, nil
}

// index builds the in-memory book and verse tables. A corpus book is kept
// only when it resolves to a canonical entry not already taken by an
// earlier spelling, the same rule the migration applies, so ids line up
// with the relational store. Testaments still come from the key list.
func (s *Store) index(c *corpus.Corpus) {
	s.corpusPath = c.Path
	fold := cases.Fold()
	s.books = make([]bookData, 0, len(c.Books))
	s.verses = make([]types.Verse, 0, c.VerseCount())
	s.folded = make([]string, 0, c.VerseCount())

	seen := make(map[int]string)
	for _, b := range c.Books {
		e, ok := corpus.Lookup(b.Abbrev)
		if !ok {
			s.logger.Warn("skipping unmapped book", "abbrev", b.Abbrev)
			continue
		}
		if prev, dup := seen[e.Order]; dup {
			s.logger.Warn("skipping duplicate book", "abbrev", b.Abbrev, "first", prev)
			continue
		}
		seen[e.Order] = b.Abbrev

		id := int64(len(s.books) + 1)
		data := bookData{
			book: types.Book{
				ID:             id,
				Name:           e.Name,
				Abbreviation:   e.Abbrev,
				Testament:      corpus.KeyTestament(b.Abbrev),
				CanonicalOrder: e.Order,
				TotalChapters:  len(b.Chapters),
			},
			chapters: make([][]int, len(b.Chapters)),
		}
		for ch, texts := range b.Chapters {
			positions := make([]int, len(texts))
			for n, text := range texts {
				positions[n] = len(s.verses)
				s.verses = append(s.verses, types.Verse{
					ID:      int64(len(s.verses) + 1),
					BookID:  id,
					Chapter: ch + 1,
					Number:  n + 1,
					Text:    text,
				})
				s.folded = append(s.folded, fold.String(text))
			}
			data.chapters[ch] = positions
		}
		s.books = append(s.books, data)
	}

	s.canonical = make([]int, len(s.books))
	for i := range s.canonical {
		s.canonical[i] = i
	}
	sort.SliceStable(s.canonical, func(i, j int) bool {
		return s.books[s.canonical[i]].book.CanonicalOrder < s.books[s.canonical[j]].book.CanonicalOrder
	})
}

// loadSnapshots reads the user data files. Unreadable files start empty.
func (s *Store) loadSnapshots() {
	s.favorites = load[types.Favorite](s, FavoritesFile)
	s.annotations = load[types.Annotation](s, AnnotationsFile)
	s.history = load[types.HistoryEntry](s, HistoryFile)
	s.settings = load[types.Setting](s, SettingsFile)

	// Drop records that point outside this corpus.
	s.favorites = filter(s.favorites, func(f types.Favorite) bool { return s.hasVerse(f.VerseID) })
	s.annotations = filter(s.annotations, func(a types.Annotation) bool { return s.hasVerse(a.VerseID) })
	s.history = filter(s.history, func(h types.HistoryEntry) bool { return s.hasBook(h.BookID) })
	sortHistory(s.history)
	if len(s.history) > types.HistoryLimit {
		s.history = s.history[:types.HistoryLimit]
	}

	for _, f := range s.favorites {
		s.nextID.favorite = max(s.nextID.favorite, f.ID)
	}
	for _, a := range s.annotations {
		s.nextID.annotation = max(s.nextID.annotation, a.ID)
	}
	for _, h := range s.history {
		s.nextID.history = max(s.nextID.history, h.ID)
	}

	for _, d := range types.DefaultSettings {
		if _, ok := s.setting(d.Key); !ok {
			s.settings = append(s.settings, d)
		}
	}
}

func load[T any](s *Store, name string) []T {
	path := filepath.Join(s.dataDir, name)
	records, skipped, err := readJSONL[T](path)
	if err != nil {
		s.logger.Warn("snapshot unreadable, starting empty", "file", path, "error", err)
		return nil
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed snapshot lines", "file", path, "lines", skipped)
	}
	return records
}

func filter[T any](in []T, keep func(T) bool) []T {
	out := in[:0]
	for _, v := range in {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// persist writes one snapshot file.
func persist[T any](s *Store, name string, records []T) error {
	if err := writeJSONL(filepath.Join(s.dataDir, name), records); err != nil {
		return &types.QueryError{Op: "write " + name, Err: err}
	}
	return nil
}

// Close releases the store. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// read runs fn under the read lock.
func (s *Store) read(fn func() error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return types.ErrStoreClosed
	}
	return fn()
}

// write runs fn under the write lock.
func (s *Store) write(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return types.ErrStoreClosed
	}
	return fn()
}

func (s *Store) hasBook(id int64) bool {
	return id >= 1 && id <= int64(len(s.books))
}

func (s *Store) hasVerse(id int64) bool {
	return id >= 1 && id <= int64(len(s.verses))
}

func (s *Store) bookOf(id int64) (bookData, error) {
	if !s.hasBook(id) {
		return bookData{}, &types.NotFoundError{Resource: "book", ID: fmt.Sprint(id)}
	}
	return s.books[id-1], nil
}

func (s *Store) verse(id int64) types.Verse {
	return s.verses[id-1]
}

func (s *Store) detail(v types.Verse) types.VerseDetail {
	b := s.books[v.BookID-1].book
	return types.VerseDetail{Verse: v, BookName: b.Name, BookAbbreviation: b.Abbreviation}
}

func (s *Store) requireVerse(id int64) error {
	if !s.hasVerse(id) {
		return &types.NotFoundError{Resource: "verse", ID: fmt.Sprint(id)}
	}
	return nil
}
