package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// ListBooks returns all books in canonical order.
func (s *Store) ListBooks(ctx context.Context) ([]types.Book, error) {
	var rows []bookRow
	if err := s.QueryMany(ctx, &rows, selectBooks); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	books := make([]types.Book, len(rows))
	for i, r := range rows {
		books[i] = r.book()
	}
	return books, nil
}

// GetBook returns one book.
func (s *Store) GetBook(ctx context.Context, id int64) (types.Book, error) {
	var row bookRow
	found, err := s.QueryOne(ctx, &row, selectBookByID, id)
	if err != nil {
		return types.Book{}, fmt.Errorf("get book: %w", err)
	}
	if !found {
		return types.Book{}, &types.NotFoundError{Resource: "book", ID: strconv.FormatInt(id, 10)}
	}
	return row.book(), nil
}

// ListVersesInChapter returns a chapter's verses in verse order. An unknown
// chapter yields an empty slice.
func (s *Store) ListVersesInChapter(ctx context.Context, bookID int64, chapter int) ([]types.Verse, error) {
	var rows []verseRow
	if err := s.QueryMany(ctx, &rows, selectChapter, bookID, chapter); err != nil {
		return nil, fmt.Errorf("list verses: %w", err)
	}
	verses := make([]types.Verse, len(rows))
	for i, r := range rows {
		verses[i] = r.verse()
	}
	return verses, nil
}

// GetVerse returns one verse with its book name.
func (s *Store) GetVerse(ctx context.Context, bookID int64, chapter, number int) (types.VerseDetail, error) {
	var row verseRow
	found, err := s.QueryOne(ctx, &row, selectVerseRef, bookID, chapter, number)
	if err != nil {
		return types.VerseDetail{}, fmt.Errorf("get verse: %w", err)
	}
	if !found {
		return types.VerseDetail{}, &types.NotFoundError{
			Resource: "verse",
			ID:       fmt.Sprintf("%d %d:%d", bookID, chapter, number),
		}
	}
	return row.detail(), nil
}

// Search queries the full-text index.
func (s *Store) Search(ctx context.Context, params types.SearchParams) ([]types.SearchResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	query, args, ok := searchQuery(params)
	if !ok {
		return []types.SearchResult{}, nil
	}
	var rows []searchRow
	if err := s.QueryMany(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	results := make([]types.SearchResult, len(rows))
	for i, r := range rows {
		results[i] = r.result()
	}
	return results, nil
}

// VerseOfDay returns the verse at types.VerseOfDayIndex in id order.
func (s *Store) VerseOfDay(ctx context.Context, day time.Time) (types.VerseOfDay, error) {
	total, err := s.count(ctx, countVerses)
	if err != nil {
		return types.VerseOfDay{}, fmt.Errorf("verse of day: %w", err)
	}
	if total == 0 {
		return types.VerseOfDay{}, &types.NotFoundError{Resource: "verse of day"}
	}

	var row verseRow
	found, err := s.QueryOne(ctx, &row, selectVerseAt, types.VerseOfDayIndex(day, total))
	if err != nil {
		return types.VerseOfDay{}, fmt.Errorf("verse of day: %w", err)
	}
	if !found {
		return types.VerseOfDay{}, &types.NotFoundError{Resource: "verse of day"}
	}
	d := row.detail()
	return types.VerseOfDay{Verse: d.Verse, BookName: d.BookName, Reference: d.Reference()}, nil
}

// count runs a single-value COUNT query.
func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	if _, err := s.QueryOne(ctx, &n, query, args...); err != nil {
		return 0, err
	}
	return n, nil
}
