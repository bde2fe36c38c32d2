package types

import (
	"strings"
	"time"
	"unicode/utf8"
)

// SearchLimit caps the number of results a search returns.
const SearchLimit = 100

// minSearchWordLen is the shortest word that takes part in a non-exact search.
const minSearchWordLen = 3

// SearchParams describes a verse search. BookID 0 and an empty Testament
// mean "any".
type SearchParams struct {
	Term      string    `json:"term"`
	Exact     bool      `json:"exact"`
	BookID    int64     `json:"book_id,omitempty"`
	Testament Testament `json:"testament,omitempty"`
}

// Validate checks the filters. An empty term is valid and matches nothing.
func (p SearchParams) Validate() error {
	if p.Testament != "" && !p.Testament.Valid() {
		return &ValidationError{Field: "testament", Value: string(p.Testament), Message: "must be Old or New"}
	}
	if p.BookID < 0 {
		return &ValidationError{Field: "book_id", Message: "must not be negative"}
	}
	return nil
}

// Words returns the words of a non-exact search term: whitespace separated
// and longer than two characters.
func (p SearchParams) Words() []string {
	var words []string
	for _, w := range strings.Fields(p.Term) {
		if utf8.RuneCountInString(w) >= minSearchWordLen {
			words = append(words, w)
		}
	}
	return words
}

// SearchResult is one verse matched by a search.
type SearchResult struct {
	VerseID          int64  `json:"verse_id"`
	BookName         string `json:"book_name"`
	BookAbbreviation string `json:"book_abbreviation"`
	Chapter          int    `json:"chapter"`
	Number           int    `json:"number"`
	Text             string `json:"text"`
}

// VerseOfDay is the verse selected for a calendar day.
type VerseOfDay struct {
	Verse     Verse  `json:"verse"`
	BookName  string `json:"book_name"`
	Reference string `json:"reference"`
}

// VerseOfDayIndex returns the zero-based position, in verse id order, of the
// verse selected for day. Both backends use it so a given calendar day
// yields the same verse wherever it is served from.
func VerseOfDayIndex(day time.Time, totalVerses int) int {
	if totalVerses <= 0 {
		return 0
	}
	return day.YearDay() % totalVerses
}

// Statistics summarizes the store contents.
type Statistics struct {
	TotalBooks       int        `json:"total_books"`
	OldTestament     int        `json:"old_testament_books"`
	NewTestament     int        `json:"new_testament_books"`
	TotalChapters    int        `json:"total_chapters"`
	TotalVerses      int        `json:"total_verses"`
	TotalFavorites   int        `json:"total_favorites"`
	TotalAnnotations int        `json:"total_annotations"`
	HistoryEntries   int        `json:"history_entries"`
	BooksVisited     int        `json:"books_visited"`
	LastAccess       *time.Time `json:"last_access,omitempty"`
	Backend          string     `json:"backend,omitempty"`
}
