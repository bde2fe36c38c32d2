package service

import (
	"context"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// ListBooks returns all books in canonical order.
func (s *Service) ListBooks(ctx context.Context) Result[[]types.Book] {
	return call(ctx, s, "list-books", func(ctx context.Context, b types.Backend) ([]types.Book, error) {
		return b.ListBooks(ctx)
	})
}

// GetBook returns one book.
func (s *Service) GetBook(ctx context.Context, id int64) Result[types.Book] {
	return call(ctx, s, "get-book", func(ctx context.Context, b types.Backend) (types.Book, error) {
		return b.GetBook(ctx, id)
	})
}

// ListVersesInChapter returns the verses of one chapter.
func (s *Service) ListVersesInChapter(ctx context.Context, bookID int64, chapter int) Result[[]types.Verse] {
	return call(ctx, s, "list-verses-in-chapter", func(ctx context.Context, b types.Backend) ([]types.Verse, error) {
		return b.ListVersesInChapter(ctx, bookID, chapter)
	})
}

// GetVerse returns one verse with its book name.
func (s *Service) GetVerse(ctx context.Context, bookID int64, chapter, number int) Result[types.VerseDetail] {
	return call(ctx, s, "get-verse", func(ctx context.Context, b types.Backend) (types.VerseDetail, error) {
		return b.GetVerse(ctx, bookID, chapter, number)
	})
}

// Search finds verses matching params.
func (s *Service) Search(ctx context.Context, params types.SearchParams) Result[[]types.SearchResult] {
	return call(ctx, s, "search", func(ctx context.Context, b types.Backend) ([]types.SearchResult, error) {
		return b.Search(ctx, params)
	})
}

// ListFavorites returns the favorites, newest first.
func (s *Service) ListFavorites(ctx context.Context) Result[[]types.Favorite] {
	return call(ctx, s, "list-favorites", func(ctx context.Context, b types.Backend) ([]types.Favorite, error) {
		return b.ListFavorites(ctx)
	})
}

// AddFavorite marks a verse.
func (s *Service) AddFavorite(ctx context.Context, verseID int64) Result[Empty] {
	return exec(ctx, s, "add-favorite", func(ctx context.Context, b types.Backend) error {
		return b.AddFavorite(ctx, verseID)
	})
}

// RemoveFavorite unmarks a verse.
func (s *Service) RemoveFavorite(ctx context.Context, verseID int64) Result[Empty] {
	return exec(ctx, s, "remove-favorite", func(ctx context.Context, b types.Backend) error {
		return b.RemoveFavorite(ctx, verseID)
	})
}

// IsFavorite reports whether a verse is marked.
func (s *Service) IsFavorite(ctx context.Context, verseID int64) Result[bool] {
	return call(ctx, s, "is-favorite", func(ctx context.Context, b types.Backend) (bool, error) {
		return b.IsFavorite(ctx, verseID)
	})
}

// ListAnnotations returns every annotation.
func (s *Service) ListAnnotations(ctx context.Context) Result[[]types.Annotation] {
	return call(ctx, s, "list-annotations", func(ctx context.Context, b types.Backend) ([]types.Annotation, error) {
		return b.ListAnnotations(ctx)
	})
}

// ListAnnotationsForVerse returns one verse's annotations.
func (s *Service) ListAnnotationsForVerse(ctx context.Context, verseID int64) Result[[]types.Annotation] {
	return call(ctx, s, "list-annotations-for-verse", func(ctx context.Context, b types.Backend) ([]types.Annotation, error) {
		return b.ListAnnotationsForVerse(ctx, verseID)
	})
}

// AddAnnotation creates an annotation.
func (s *Service) AddAnnotation(ctx context.Context, in types.AnnotationInput) Result[types.Annotation] {
	return call(ctx, s, "add-annotation", func(ctx context.Context, b types.Backend) (types.Annotation, error) {
		return b.AddAnnotation(ctx, in)
	})
}

// UpdateAnnotation replaces an annotation's title and body.
func (s *Service) UpdateAnnotation(ctx context.Context, id int64, title, body string) Result[types.Annotation] {
	return call(ctx, s, "update-annotation", func(ctx context.Context, b types.Backend) (types.Annotation, error) {
		return b.UpdateAnnotation(ctx, id, title, body)
	})
}

// RemoveAnnotation deletes an annotation.
func (s *Service) RemoveAnnotation(ctx context.Context, id int64) Result[Empty] {
	return exec(ctx, s, "remove-annotation", func(ctx context.Context, b types.Backend) error {
		return b.RemoveAnnotation(ctx, id)
	})
}

// AddHistoryEntry records that a chapter was opened now.
func (s *Service) AddHistoryEntry(ctx context.Context, bookID int64, chapter int) Result[Empty] {
	return exec(ctx, s, "add-history-entry", func(ctx context.Context, b types.Backend) error {
		return b.AddHistoryEntry(ctx, bookID, chapter, s.now())
	})
}

// ListHistory returns the reading history, most recent first.
func (s *Service) ListHistory(ctx context.Context) Result[[]types.HistoryEntry] {
	return call(ctx, s, "list-history", func(ctx context.Context, b types.Backend) ([]types.HistoryEntry, error) {
		return b.ListHistory(ctx)
	})
}

// GetVerseOfDay returns today's verse.
func (s *Service) GetVerseOfDay(ctx context.Context) Result[types.VerseOfDay] {
	return call(ctx, s, "get-verse-of-day", func(ctx context.Context, b types.Backend) (types.VerseOfDay, error) {
		return b.VerseOfDay(ctx, s.now())
	})
}

// GetSetting returns a setting. Data is nil when the key is not set.
func (s *Service) GetSetting(ctx context.Context, key string) Result[string] {
	var found bool
	res := call(ctx, s, "get-setting", func(ctx context.Context, b types.Backend) (string, error) {
		v, ok, err := b.GetSetting(ctx, key)
		found = ok
		return v, err
	})
	if res.Success && !found {
		res.Data = nil
	}
	return res
}

// SetSetting upserts a setting.
func (s *Service) SetSetting(ctx context.Context, key, value string) Result[Empty] {
	return exec(ctx, s, "set-setting", func(ctx context.Context, b types.Backend) error {
		return b.SetSetting(ctx, key, value)
	})
}

// GetStatistics summarizes the active backend.
func (s *Service) GetStatistics(ctx context.Context) Result[types.Statistics] {
	return call(ctx, s, "get-statistics", func(ctx context.Context, b types.Backend) (types.Statistics, error) {
		return b.Statistics(ctx)
	})
}
