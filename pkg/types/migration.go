package types

import (
	"context"
	"time"
)

// MigrationRecord is one entry of the store's migration log.
type MigrationRecord struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Books      int       `json:"books"`
	Chapters   int       `json:"chapters"`
	Verses     int       `json:"verses"`
	Skipped    []string  `json:"skipped,omitempty"`
	CorpusHash string    `json:"corpus_hash"`
	CorpusPath string    `json:"corpus_path"`
	IndexBuilt bool      `json:"index_built"`
}

// CorpusWriter receives chapters and verses during a migration. All calls
// made through one CorpusWriter belong to a single transaction.
type CorpusWriter interface {
	InsertChapter(ctx context.Context, bookID int64, number, totalVerses int) error
	InsertVerse(ctx context.Context, bookID int64, chapter, number int, text string) error
}
