package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// This file holds the operations the migration engine drives.

// CoreTablesExist reports whether books, chapters and verses all exist.
func (s *Store) CoreTablesExist(ctx context.Context) (bool, error) {
	n, err := s.count(ctx, countCoreTables, coreTables[0], coreTables[1], coreTables[2])
	if err != nil {
		return false, err
	}
	return n == len(coreTables), nil
}

// CountBooks returns the number of book rows.
func (s *Store) CountBooks(ctx context.Context) (int, error) {
	return s.count(ctx, countBooks)
}

// CountVerses returns the number of verse rows.
func (s *Store) CountVerses(ctx context.Context) (int, error) {
	return s.count(ctx, countVerses)
}

// ClearCorpus empties the migrated tables and the user data that refers to
// them, children first, then the search index. A missing search index is
// not an error.
func (s *Store) ClearCorpus(ctx context.Context) error {
	err := s.InTx(ctx, func(tx *sqlx.Tx) error {
		for _, table := range clearOrder {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return &types.QueryError{Op: "clear " + table, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := s.Execute(ctx, clearSearch); err != nil && !isNoSuchTable(err) {
		return err
	}
	return nil
}

// InsertBook inserts one book and returns its id.
func (s *Store) InsertBook(ctx context.Context, b types.Book) (int64, error) {
	var id int64
	err := s.withDB(func(db *sqlx.DB) error {
		res, err := db.ExecContext(ctx, insertBook, b.Name, b.Abbreviation, string(b.Testament), b.CanonicalOrder, b.TotalChapters)
		if err != nil {
			return &types.QueryError{Op: "insert book " + b.Abbreviation, Err: err}
		}
		id, err = res.LastInsertId()
		if err != nil {
			return &types.QueryError{Op: "insert book " + b.Abbreviation, Err: err}
		}
		return nil
	})
	return id, err
}

// LoadChapters runs fn inside one transaction with a writer for chapters
// and verses. Any error from fn rolls back every row it wrote.
func (s *Store) LoadChapters(ctx context.Context, fn func(w types.CorpusWriter) error) error {
	return s.InTx(ctx, func(tx *sqlx.Tx) error {
		chapterStmt, err := tx.PreparexContext(ctx, insertChapter)
		if err != nil {
			return &types.QueryError{Op: "prepare chapter insert", Err: err}
		}
		defer chapterStmt.Close()

		verseStmt, err := tx.PreparexContext(ctx, insertVerse)
		if err != nil {
			return &types.QueryError{Op: "prepare verse insert", Err: err}
		}
		defer verseStmt.Close()

		return fn(&txWriter{chapter: chapterStmt, verse: verseStmt})
	})
}

// txWriter writes through statements prepared on one transaction.
type txWriter struct {
	chapter *sqlx.Stmt
	verse   *sqlx.Stmt
}

func (w *txWriter) InsertChapter(ctx context.Context, bookID int64, number, totalVerses int) error {
	if _, err := w.chapter.ExecContext(ctx, bookID, number, totalVerses); err != nil {
		return &types.QueryError{Op: fmt.Sprintf("insert chapter %d/%d", bookID, number), Err: err}
	}
	return nil
}

func (w *txWriter) InsertVerse(ctx context.Context, bookID int64, chapter, number int, text string) error {
	if _, err := w.verse.ExecContext(ctx, bookID, chapter, number, text); err != nil {
		return &types.QueryError{Op: fmt.Sprintf("insert verse %d/%d:%d", bookID, chapter, number), Err: err}
	}
	return nil
}

// RebuildSearchIndex regenerates the search index from the verse and book
// rows, creating the virtual table first if needed. If the rebuild fails
// the table is dropped, recreated and rebuilt once more.
func (s *Store) RebuildSearchIndex(ctx context.Context) error {
	err := s.rebuildSearch(ctx)
	if err == nil {
		return nil
	}
	s.logger.Warn("search index rebuild failed, recreating", "error", err)
	if dropErr := s.Execute(ctx, dropSearch); dropErr != nil {
		return fmt.Errorf("rebuild search index: %w", errors.Join(err, dropErr))
	}
	if err := s.rebuildSearch(ctx); err != nil {
		return fmt.Errorf("rebuild search index: %w", err)
	}
	return nil
}

func (s *Store) rebuildSearch(ctx context.Context) error {
	return s.InTx(ctx, func(tx *sqlx.Tx) error {
		for _, stmt := range []string{createSearch, clearSearch, populateSearch} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return &types.QueryError{Op: "rebuild search index", Err: err}
			}
		}
		return nil
	})
}

// RecordMigration appends a run to the migration log.
func (s *Store) RecordMigration(ctx context.Context, rec types.MigrationRecord) error {
	return s.Execute(ctx, insertMigration,
		rec.ID,
		formatTime(rec.StartedAt),
		formatTime(rec.FinishedAt),
		rec.Books,
		rec.Chapters,
		rec.Verses,
		strings.Join(rec.Skipped, ","),
		rec.CorpusHash,
		rec.CorpusPath,
		rec.IndexBuilt,
	)
}

// Migrations returns the migration log, newest first.
func (s *Store) Migrations(ctx context.Context) ([]types.MigrationRecord, error) {
	var rows []migrationRow
	if err := s.QueryMany(ctx, &rows, selectMigrations); err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	out := make([]types.MigrationRecord, len(rows))
	for i, r := range rows {
		out[i] = r.record()
	}
	return out, nil
}

func isNoSuchTable(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such table")
}
