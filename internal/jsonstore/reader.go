package jsonstore

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// CorpusPath returns where the corpus was loaded from.
func (s *Store) CorpusPath() string { return s.corpusPath }

// ListBooks returns every book in canonical order.
func (s *Store) ListBooks(ctx context.Context) ([]types.Book, error) {
	var out []types.Book
	err := s.read(func() error {
		out = make([]types.Book, len(s.canonical))
		for i, bi := range s.canonical {
			out[i] = s.books[bi].book
		}
		return nil
	})
	return out, err
}

// GetBook returns one book.
func (s *Store) GetBook(ctx context.Context, id int64) (types.Book, error) {
	var out types.Book
	err := s.read(func() error {
		b, err := s.bookOf(id)
		out = b.book
		return err
	})
	return out, err
}

// ListVersesInChapter returns a chapter's verses. An unknown book or
// chapter yields an empty slice.
func (s *Store) ListVersesInChapter(ctx context.Context, bookID int64, chapter int) ([]types.Verse, error) {
	out := []types.Verse{}
	err := s.read(func() error {
		if !s.hasBook(bookID) {
			return nil
		}
		chapters := s.books[bookID-1].chapters
		if chapter < 1 || chapter > len(chapters) {
			return nil
		}
		for _, pos := range chapters[chapter-1] {
			out = append(out, s.verses[pos])
		}
		return nil
	})
	return out, err
}

// GetVerse returns one verse with its book name.
func (s *Store) GetVerse(ctx context.Context, bookID int64, chapter, number int) (types.VerseDetail, error) {
	var out types.VerseDetail
	err := s.read(func() error {
		notFound := &types.NotFoundError{Resource: "verse", ID: fmt.Sprintf("%d %d:%d", bookID, chapter, number)}
		if !s.hasBook(bookID) {
			return notFound
		}
		chapters := s.books[bookID-1].chapters
		if chapter < 1 || chapter > len(chapters) || number < 1 || number > len(chapters[chapter-1]) {
			return notFound
		}
		out = s.detail(s.verses[chapters[chapter-1][number-1]])
		return nil
	})
	return out, err
}

// Search scans the verses with Unicode case folding. An exact search
// matches the whole term as a substring; otherwise every word of three or
// more characters must occur. Results follow canonical book order, then
// chapter and verse.
func (s *Store) Search(ctx context.Context, params types.SearchParams) ([]types.SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	needles := searchNeedles(params)
	results := []types.SearchResult{}
	if len(needles) == 0 {
		return results, nil
	}

	err := s.read(func() error {
		for _, bi := range s.canonical {
			if err := ctx.Err(); err != nil {
				return err
			}
			b := s.books[bi]
			if params.BookID > 0 && b.book.ID != params.BookID {
				continue
			}
			if params.Testament != "" && b.book.Testament != params.Testament {
				continue
			}
			for _, positions := range b.chapters {
				for _, i := range positions {
					if !containsAll(s.folded[i], needles) {
						continue
					}
					v := s.verses[i]
					results = append(results, types.SearchResult{
						VerseID:          v.ID,
						BookName:         b.book.Name,
						BookAbbreviation: b.book.Abbreviation,
						Chapter:          v.Chapter,
						Number:           v.Number,
						Text:             v.Text,
					})
					if len(results) == types.SearchLimit {
						return nil
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func searchNeedles(p types.SearchParams) []string {
	fold := cases.Fold()
	if p.Exact {
		term := strings.TrimSpace(p.Term)
		if !hasSearchable(term) {
			return nil
		}
		return []string{fold.String(term)}
	}
	var out []string
	for _, w := range p.Words() {
		if hasSearchable(w) {
			out = append(out, fold.String(w))
		}
	}
	return out
}

func containsAll(text string, needles []string) bool {
	for _, n := range needles {
		if !strings.Contains(text, n) {
			return false
		}
	}
	return true
}

func hasSearchable(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsNumber(r)
	}) >= 0
}

// VerseOfDay returns the verse at types.VerseOfDayIndex in id order.
func (s *Store) VerseOfDay(ctx context.Context, day time.Time) (types.VerseOfDay, error) {
	var out types.VerseOfDay
	err := s.read(func() error {
		if len(s.verses) == 0 {
			return &types.NotFoundError{Resource: "verse of day"}
		}
		d := s.detail(s.verses[types.VerseOfDayIndex(day, len(s.verses))])
		out = types.VerseOfDay{Verse: d.Verse, BookName: d.BookName, Reference: d.Reference()}
		return nil
	})
	return out, err
}
