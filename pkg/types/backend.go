package types

import (
	"context"
	"time"
)

// Backend is the read/write contract shared by the relational store and the
// secondary (fallback) store. The service facade routes every call to
// exactly one Backend for the lifetime of the process.
type Backend interface {
	// ListBooks returns all books in canonical order.
	ListBooks(ctx context.Context) ([]Book, error)

	// GetBook returns the book with the given id or a *NotFoundError.
	GetBook(ctx context.Context, id int64) (Book, error)

	// ListVersesInChapter returns the verses of a chapter in verse order.
	ListVersesInChapter(ctx context.Context, bookID int64, chapter int) ([]Verse, error)

	// GetVerse returns one verse joined with its book name.
	GetVerse(ctx context.Context, bookID int64, chapter, number int) (VerseDetail, error)

	// Search returns at most SearchLimit verses matching params, ordered by
	// canonical book order, chapter and verse.
	Search(ctx context.Context, params SearchParams) ([]SearchResult, error)

	ListFavorites(ctx context.Context) ([]Favorite, error)

	// AddFavorite marks a verse. Adding an existing favorite is a no-op.
	AddFavorite(ctx context.Context, verseID int64) error

	// RemoveFavorite unmarks a verse. Removing a missing favorite is a no-op.
	RemoveFavorite(ctx context.Context, verseID int64) error

	IsFavorite(ctx context.Context, verseID int64) (bool, error)

	// ListAnnotations returns all annotations, most recently updated first.
	ListAnnotations(ctx context.Context) ([]Annotation, error)

	// ListAnnotationsForVerse returns a verse's annotations, newest first.
	ListAnnotationsForVerse(ctx context.Context, verseID int64) ([]Annotation, error)

	AddAnnotation(ctx context.Context, in AnnotationInput) (Annotation, error)
	UpdateAnnotation(ctx context.Context, id int64, title, body string) (Annotation, error)
	RemoveAnnotation(ctx context.Context, id int64) error

	// AddHistoryEntry records that a chapter was opened at the given time,
	// replacing any earlier entry for the same chapter and trimming the
	// history to HistoryLimit entries.
	AddHistoryEntry(ctx context.Context, bookID int64, chapter int, at time.Time) error

	// ListHistory returns the retained entries, most recent first.
	ListHistory(ctx context.Context) ([]HistoryEntry, error)

	// VerseOfDay returns the verse selected for the calendar day of day
	// using VerseOfDayIndex.
	VerseOfDay(ctx context.Context, day time.Time) (VerseOfDay, error)

	// GetSetting returns the value for key and whether it exists.
	GetSetting(ctx context.Context, key string) (string, bool, error)

	// SetSetting upserts a setting.
	SetSetting(ctx context.Context, key, value string) error

	Statistics(ctx context.Context) (Statistics, error)

	// Close releases backend resources. Close is idempotent.
	Close() error
}
