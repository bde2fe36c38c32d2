package jsonstore

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// Each mutation builds the new collection, writes its snapshot, and only
// then swaps it in, so a failed write leaves memory and disk agreeing.

func (s *Store) favorite(f types.Favorite) types.Favorite {
	d := s.detail(s.verse(f.VerseID))
	f.BookName, f.Chapter, f.Number, f.Text = d.BookName, d.Chapter, d.Number, d.Text
	return f
}

func (s *Store) annotation(a types.Annotation) types.Annotation {
	d := s.detail(s.verse(a.VerseID))
	a.BookName, a.Chapter, a.Number, a.Text = d.BookName, d.Chapter, d.Number, d.Text
	return a
}

// ListFavorites returns favorites with their verse text, newest first.
func (s *Store) ListFavorites(ctx context.Context) ([]types.Favorite, error) {
	var out []types.Favorite
	err := s.read(func() error {
		out = make([]types.Favorite, len(s.favorites))
		for i, f := range s.favorites {
			out[i] = s.favorite(f)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

// AddFavorite marks a verse. Marking it again is a no-op.
func (s *Store) AddFavorite(ctx context.Context, verseID int64) error {
	return s.write(func() error {
		if err := s.requireVerse(verseID); err != nil {
			return fmt.Errorf("add favorite: %w", err)
		}
		if slices.ContainsFunc(s.favorites, func(f types.Favorite) bool { return f.VerseID == verseID }) {
			return nil
		}
		id := s.nextID.favorite + 1
		next := append(slices.Clone(s.favorites), types.Favorite{ID: id, VerseID: verseID, CreatedAt: s.now().UTC()})
		if err := persist(s, FavoritesFile, next); err != nil {
			return fmt.Errorf("add favorite: %w", err)
		}
		s.favorites, s.nextID.favorite = next, id
		return nil
	})
}

// RemoveFavorite unmarks a verse.
func (s *Store) RemoveFavorite(ctx context.Context, verseID int64) error {
	return s.write(func() error {
		next := slices.DeleteFunc(slices.Clone(s.favorites), func(f types.Favorite) bool { return f.VerseID == verseID })
		if len(next) == len(s.favorites) {
			return nil
		}
		if err := persist(s, FavoritesFile, next); err != nil {
			return fmt.Errorf("remove favorite: %w", err)
		}
		s.favorites = next
		return nil
	})
}

// IsFavorite reports whether a verse is marked.
func (s *Store) IsFavorite(ctx context.Context, verseID int64) (bool, error) {
	var ok bool
	err := s.read(func() error {
		ok = slices.ContainsFunc(s.favorites, func(f types.Favorite) bool { return f.VerseID == verseID })
		return nil
	})
	return ok, err
}

// ListAnnotations returns all annotations, most recently updated first.
func (s *Store) ListAnnotations(ctx context.Context) ([]types.Annotation, error) {
	var out []types.Annotation
	err := s.read(func() error {
		out = s.joinAnnotations(func(types.Annotation) bool { return true })
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
				return out[i].UpdatedAt.After(out[j].UpdatedAt)
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

// ListAnnotationsForVerse returns one verse's annotations, newest first.
func (s *Store) ListAnnotationsForVerse(ctx context.Context, verseID int64) ([]types.Annotation, error) {
	var out []types.Annotation
	err := s.read(func() error {
		out = s.joinAnnotations(func(a types.Annotation) bool { return a.VerseID == verseID })
		sort.SliceStable(out, func(i, j int) bool {
			if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].ID > out[j].ID
		})
		return nil
	})
	return out, err
}

func (s *Store) joinAnnotations(keep func(types.Annotation) bool) []types.Annotation {
	out := []types.Annotation{}
	for _, a := range s.annotations {
		if keep(a) {
			out = append(out, s.annotation(a))
		}
	}
	return out
}

// AddAnnotation creates an annotation and returns it.
func (s *Store) AddAnnotation(ctx context.Context, in types.AnnotationInput) (types.Annotation, error) {
	if err := in.Validate(); err != nil {
		return types.Annotation{}, err
	}
	var out types.Annotation
	err := s.write(func() error {
		if err := s.requireVerse(in.VerseID); err != nil {
			return fmt.Errorf("add annotation: %w", err)
		}
		now := s.now().UTC()
		a := types.Annotation{
			ID:        s.nextID.annotation + 1,
			VerseID:   in.VerseID,
			Title:     in.Title,
			Body:      in.Body,
			CreatedAt: now,
			UpdatedAt: now,
		}
		next := append(slices.Clone(s.annotations), a)
		if err := persist(s, AnnotationsFile, next); err != nil {
			return fmt.Errorf("add annotation: %w", err)
		}
		s.annotations, s.nextID.annotation = next, a.ID
		out = s.annotation(a)
		return nil
	})
	return out, err
}

// UpdateAnnotation replaces an annotation's title and body.
func (s *Store) UpdateAnnotation(ctx context.Context, id int64, title, body string) (types.Annotation, error) {
	if body == "" {
		return types.Annotation{}, &types.ValidationError{Field: "body", Message: "must not be empty"}
	}
	var out types.Annotation
	err := s.write(func() error {
		i := slices.IndexFunc(s.annotations, func(a types.Annotation) bool { return a.ID == id })
		if i < 0 {
			return &types.NotFoundError{Resource: "annotation", ID: fmt.Sprint(id)}
		}
		next := slices.Clone(s.annotations)
		next[i].Title, next[i].Body, next[i].UpdatedAt = title, body, s.now().UTC()
		if err := persist(s, AnnotationsFile, next); err != nil {
			return fmt.Errorf("update annotation: %w", err)
		}
		s.annotations = next
		out = s.annotation(next[i])
		return nil
	})
	return out, err
}

// RemoveAnnotation deletes an annotation. Removing a missing one is a no-op.
func (s *Store) RemoveAnnotation(ctx context.Context, id int64) error {
	return s.write(func() error {
		next := slices.DeleteFunc(slices.Clone(s.annotations), func(a types.Annotation) bool { return a.ID == id })
		if len(next) == len(s.annotations) {
			return nil
		}
		if err := persist(s, AnnotationsFile, next); err != nil {
			return fmt.Errorf("remove annotation: %w", err)
		}
		s.annotations = next
		return nil
	})
}

// sortHistory orders entries most recent first.
func sortHistory(h []types.HistoryEntry) {
	sort.SliceStable(h, func(i, j int) bool {
		if !h[i].AccessedAt.Equal(h[j].AccessedAt) {
			return h[i].AccessedAt.After(h[j].AccessedAt)
		}
		return h[i].ID > h[j].ID
	})
}

// AddHistoryEntry records a chapter visit, replacing an earlier entry for
// the same chapter, then trims to types.HistoryLimit entries.
func (s *Store) AddHistoryEntry(ctx context.Context, bookID int64, chapter int, at time.Time) error {
	if chapter <= 0 {
		return &types.ValidationError{Field: "chapter", Message: "must be positive"}
	}
	return s.write(func() error {
		if !s.hasBook(bookID) {
			return &types.NotFoundError{Resource: "book", ID: fmt.Sprint(bookID)}
		}
		id := s.nextID.history + 1
		next := slices.DeleteFunc(slices.Clone(s.history), func(h types.HistoryEntry) bool {
			return h.BookID == bookID && h.Chapter == chapter
		})
		next = append(next, types.HistoryEntry{ID: id, BookID: bookID, Chapter: chapter, AccessedAt: at.UTC()})
		sortHistory(next)
		if len(next) > types.HistoryLimit {
			next = next[:types.HistoryLimit]
		}
		if err := persist(s, HistoryFile, next); err != nil {
			return fmt.Errorf("add history entry: %w", err)
		}
		s.history, s.nextID.history = next, id
		return nil
	})
}

// ListHistory returns the retained history, most recent first.
func (s *Store) ListHistory(ctx context.Context) ([]types.HistoryEntry, error) {
	var out []types.HistoryEntry
	err := s.read(func() error {
		out = make([]types.HistoryEntry, len(s.history))
		for i, h := range s.history {
			h.BookName = s.books[h.BookID-1].book.Name
			out[i] = h
		}
		return nil
	})
	return out, err
}

func (s *Store) setting(key string) (string, bool) {
	for _, st := range s.settings {
		if st.Key == key {
			return st.Value, true
		}
	}
	return "", false
}

// GetSetting returns a setting value and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := s.read(func() error {
		value, found = s.setting(key)
		return nil
	})
	return value, found, err
}

// SetSetting upserts a setting.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if key == "" {
		return &types.ValidationError{Field: "key", Message: "must not be empty"}
	}
	return s.write(func() error {
		next := slices.Clone(s.settings)
		i := slices.IndexFunc(next, func(st types.Setting) bool { return st.Key == key })
		if i < 0 {
			next = append(next, types.Setting{Key: key, Value: value})
		} else {
			next[i].Value = value
		}
		if err := persist(s, SettingsFile, next); err != nil {
			return fmt.Errorf("set setting: %w", err)
		}
		s.settings = next
		return nil
	})
}

// Statistics summarizes the store.
func (s *Store) Statistics(ctx context.Context) (types.Statistics, error) {
	var st types.Statistics
	err := s.read(func() error {
		st.TotalBooks = len(s.books)
		for _, b := range s.books {
			switch b.book.Testament {
			case types.OldTestament:
				st.OldTestament++
			case types.NewTestament:
				st.NewTestament++
			}
			st.TotalChapters += len(b.chapters)
		}
		st.TotalVerses = len(s.verses)
		st.TotalFavorites = len(s.favorites)
		st.TotalAnnotations = len(s.annotations)
		st.HistoryEntries = len(s.history)

		visited := make(map[int64]bool)
		for _, h := range s.history {
			visited[h.BookID] = true
			if st.LastAccess == nil || h.AccessedAt.After(*st.LastAccess) {
				t := h.AccessedAt
				st.LastAccess = &t
			}
		}
		st.BooksVisited = len(visited)
		st.Backend = types.BackendJSON
		return nil
	})
	return st, err
}
