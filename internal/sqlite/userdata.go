package sqlite

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// requireVerse returns a *types.NotFoundError when verseID does not exist.
func (s *Store) requireVerse(ctx context.Context, verseID int64) error {
	n, err := s.count(ctx, verseExists, verseID)
	if err != nil {
		return err
	}
	if n == 0 {
		return &types.NotFoundError{Resource: "verse", ID: strconv.FormatInt(verseID, 10)}
	}
	return nil
}

// ListFavorites returns favorites with their verse text, newest first.
func (s *Store) ListFavorites(ctx context.Context) ([]types.Favorite, error) {
	var rows []favoriteRow
	if err := s.QueryMany(ctx, &rows, selectFavorites); err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	out := make([]types.Favorite, len(rows))
	for i, r := range rows {
		out[i] = r.favorite()
	}
	return out, nil
}

// AddFavorite marks a verse. The unique constraint on verse_id makes a
// second add a no-op.
func (s *Store) AddFavorite(ctx context.Context, verseID int64) error {
	if err := s.requireVerse(ctx, verseID); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	if err := s.Execute(ctx, insertFavorite, verseID, s.stamp()); err != nil {
		return fmt.Errorf("add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unmarks a verse.
func (s *Store) RemoveFavorite(ctx context.Context, verseID int64) error {
	if err := s.Execute(ctx, deleteFavorite, verseID); err != nil {
		return fmt.Errorf("remove favorite: %w", err)
	}
	return nil
}

// IsFavorite reports whether a verse is marked.
func (s *Store) IsFavorite(ctx context.Context, verseID int64) (bool, error) {
	n, err := s.count(ctx, countFavorite, verseID)
	if err != nil {
		return false, fmt.Errorf("is favorite: %w", err)
	}
	return n > 0, nil
}

// ListAnnotations returns all annotations, most recently updated first.
func (s *Store) ListAnnotations(ctx context.Context) ([]types.Annotation, error) {
	return s.listAnnotations(ctx, selectAnnotations)
}

// ListAnnotationsForVerse returns one verse's annotations, newest first.
func (s *Store) ListAnnotationsForVerse(ctx context.Context, verseID int64) ([]types.Annotation, error) {
	return s.listAnnotations(ctx, selectAnnotationsByVerse, verseID)
}

func (s *Store) listAnnotations(ctx context.Context, query string, args ...any) ([]types.Annotation, error) {
	var rows []annotationRow
	if err := s.QueryMany(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	out := make([]types.Annotation, len(rows))
	for i, r := range rows {
		out[i] = r.annotation()
	}
	return out, nil
}

func (s *Store) getAnnotation(ctx context.Context, id int64) (types.Annotation, error) {
	var row annotationRow
	found, err := s.QueryOne(ctx, &row, selectAnnotationByID, id)
	if err != nil {
		return types.Annotation{}, err
	}
	if !found {
		return types.Annotation{}, &types.NotFoundError{Resource: "annotation", ID: strconv.FormatInt(id, 10)}
	}
	return row.annotation(), nil
}

// AddAnnotation creates an annotation and returns it.
func (s *Store) AddAnnotation(ctx context.Context, in types.AnnotationInput) (types.Annotation, error) {
	if err := in.Validate(); err != nil {
		return types.Annotation{}, err
	}
	if err := s.requireVerse(ctx, in.VerseID); err != nil {
		return types.Annotation{}, fmt.Errorf("add annotation: %w", err)
	}

	var id int64
	stamp := s.stamp()
	err := s.InTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, insertAnnotation, in.VerseID, in.Title, in.Body, stamp, stamp)
		if err != nil {
			return &types.QueryError{Op: "insert annotation", Err: err}
		}
		id, err = res.LastInsertId()
		if err != nil {
			return &types.QueryError{Op: "insert annotation", Err: err}
		}
		return nil
	})
	if err != nil {
		return types.Annotation{}, fmt.Errorf("add annotation: %w", err)
	}
	return s.getAnnotation(ctx, id)
}

// UpdateAnnotation replaces an annotation's title and body.
func (s *Store) UpdateAnnotation(ctx context.Context, id int64, title, body string) (types.Annotation, error) {
	if body == "" {
		return types.Annotation{}, &types.ValidationError{Field: "body", Message: "must not be empty"}
	}
	var affected int64
	err := s.InTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, updateAnnotation, title, body, s.stamp(), id)
		if err != nil {
			return &types.QueryError{Op: "update annotation", Err: err}
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return &types.QueryError{Op: "update annotation", Err: err}
		}
		return nil
	})
	if err != nil {
		return types.Annotation{}, fmt.Errorf("update annotation: %w", err)
	}
	if affected == 0 {
		return types.Annotation{}, &types.NotFoundError{Resource: "annotation", ID: strconv.FormatInt(id, 10)}
	}
	return s.getAnnotation(ctx, id)
}

// RemoveAnnotation deletes an annotation. Removing a missing one is a no-op.
func (s *Store) RemoveAnnotation(ctx context.Context, id int64) error {
	if err := s.Execute(ctx, deleteAnnotation, id); err != nil {
		return fmt.Errorf("remove annotation: %w", err)
	}
	return nil
}

// AddHistoryEntry records a chapter visit, replacing an earlier entry for
// the same chapter, then trims to types.HistoryLimit entries.
func (s *Store) AddHistoryEntry(ctx context.Context, bookID int64, chapter int, at time.Time) error {
	if chapter <= 0 {
		return &types.ValidationError{Field: "chapter", Message: "must be positive"}
	}
	n, err := s.count(ctx, bookExists, bookID)
	if err != nil {
		return fmt.Errorf("add history entry: %w", err)
	}
	if n == 0 {
		return &types.NotFoundError{Resource: "book", ID: strconv.FormatInt(bookID, 10)}
	}
	err = s.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, deleteHistoryChapter, bookID, chapter); err != nil {
			return &types.QueryError{Op: "replace history entry", Err: err}
		}
		if _, err := tx.ExecContext(ctx, insertHistory, bookID, chapter, formatTime(at)); err != nil {
			return &types.QueryError{Op: "insert history entry", Err: err}
		}
		if _, err := tx.ExecContext(ctx, trimHistory, types.HistoryLimit); err != nil {
			return &types.QueryError{Op: "trim history", Err: err}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("add history entry: %w", err)
	}
	return nil
}

// ListHistory returns the retained history, most recent first.
func (s *Store) ListHistory(ctx context.Context) ([]types.HistoryEntry, error) {
	var rows []historyRow
	if err := s.QueryMany(ctx, &rows, selectHistory, types.HistoryLimit); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]types.HistoryEntry, len(rows))
	for i, r := range rows {
		out[i] = r.entry()
	}
	return out, nil
}

// GetSetting returns a setting value and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value string
	found, err := s.QueryOne(ctx, &value, selectSetting, key)
	if err != nil {
		return "", false, fmt.Errorf("get setting: %w", err)
	}
	return value, found, nil
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return &types.ValidationError{Field: "key", Message: "must not be empty"}
	}
	if err := s.Execute(ctx, upsertSetting, key, value, s.stamp()); err != nil {
		return fmt.Errorf("set setting: %w", err)
	}
	return nil
}

// Statistics summarizes the store.
func (s *Store) Statistics(ctx context.Context) (types.Statistics, error) {
	var st types.Statistics
	counts := []struct {
		dst   *int
		query string
		args  []any
	}{
		{&st.TotalBooks, countBooks, nil},
		{&st.OldTestament, countBooksBy, []any{string(types.OldTestament)}},
		{&st.NewTestament, countBooksBy, []any{string(types.NewTestament)}},
		{&st.TotalChapters, countChapters, nil},
		{&st.TotalVerses, countVerses, nil},
		{&st.TotalFavorites, countFavorites, nil},
		{&st.TotalAnnotations, countAnnotations, nil},
		{&st.HistoryEntries, countHistory, nil},
		{&st.BooksVisited, countBooksVisited, nil},
	}
	for _, c := range counts {
		n, err := s.count(ctx, c.query, c.args...)
		if err != nil {
			return types.Statistics{}, fmt.Errorf("statistics: %w", err)
		}
		*c.dst = n
	}

	var last string
	if _, err := s.QueryOne(ctx, &last, selectLastAccess); err != nil {
		return types.Statistics{}, fmt.Errorf("statistics: %w", err)
	}
	if last != "" {
		t := parseTime(last)
		st.LastAccess = &t
	}
	st.Backend = types.BackendSQLite
	return st, nil
}
