package types

import "fmt"

// Testament classifies a book as part of the Old or New Testament.
type Testament string

// Testament values.
const (
	OldTestament Testament = "Old"
	NewTestament Testament = "New"
)

// Valid reports whether t is a recognized testament. The empty value is
// not valid; callers that treat it as "any" check for it first.
func (t Testament) Valid() bool {
	return t == OldTestament || t == NewTestament
}

// Book is one book of the corpus.
type Book struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Abbreviation   string    `json:"abbreviation"`
	Testament      Testament `json:"testament"`
	CanonicalOrder int       `json:"canonical_order"`
	TotalChapters  int       `json:"total_chapters"`
}

// Chapter is one chapter of a book. Unique by (BookID, Number).
type Chapter struct {
	ID          int64 `json:"id"`
	BookID      int64 `json:"book_id"`
	Number      int   `json:"number"`
	TotalVerses int   `json:"total_verses"`
}

// Verse is the unit of text and of full-text search.
// Unique by (BookID, Chapter, Number).
type Verse struct {
	ID      int64  `json:"id"`
	BookID  int64  `json:"book_id"`
	Chapter int    `json:"chapter"`
	Number  int    `json:"number"`
	Text    string `json:"text"`
}

// VerseDetail is a verse joined with the name of its book.
type VerseDetail struct {
	Verse
	BookName         string `json:"book_name"`
	BookAbbreviation string `json:"book_abbreviation"`
}

// Reference formats the verse as "<book> <chapter>:<verse>".
func (v VerseDetail) Reference() string {
	return fmt.Sprintf("%s %d:%d", v.BookName, v.Chapter, v.Number)
}
