package sqlite

import (
	"strings"
	"unicode"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// SQL text lives here, one block per entity, so near-identical statements
// do not drift apart across callers.

// Books.
const (
	bookColumns    = `b.id, b.name, b.abbreviation, b.testament, b.canonical_order, b.total_chapters`
	selectBooks    = `SELECT ` + bookColumns + ` FROM books b ORDER BY b.canonical_order, b.id`
	selectBookByID = `SELECT ` + bookColumns + ` FROM books b WHERE b.id = ?`
	insertBook     = `INSERT INTO books (name, abbreviation, testament, canonical_order, total_chapters) VALUES (?, ?, ?, ?, ?)`
	countBooks     = `SELECT COUNT(*) FROM books`
	countBooksBy   = `SELECT COUNT(*) FROM books WHERE testament = ?`
	bookExists     = `SELECT COUNT(*) FROM books WHERE id = ?`
)

type bookRow struct {
	ID             int64  `db:"id"`
	Name           string `db:"name"`
	Abbreviation   string `db:"abbreviation"`
	Testament      string `db:"testament"`
	CanonicalOrder int    `db:"canonical_order"`
	TotalChapters  int    `db:"total_chapters"`
}

func (r bookRow) book() types.Book {
	return types.Book{
		ID:             r.ID,
		Name:           r.Name,
		Abbreviation:   r.Abbreviation,
		Testament:      types.Testament(r.Testament),
		CanonicalOrder: r.CanonicalOrder,
		TotalChapters:  r.TotalChapters,
	}
}

// Chapters and verses.
const (
	insertChapter  = `INSERT INTO chapters (book_id, number, total_verses) VALUES (?, ?, ?)`
	countChapters  = `SELECT COUNT(*) FROM chapters`
	insertVerse    = `INSERT INTO verses (book_id, chapter, number, text) VALUES (?, ?, ?, ?)`
	countVerses    = `SELECT COUNT(*) FROM verses`
	verseColumns   = `v.id, v.book_id, v.chapter, v.number, v.text`
	selectChapter  = `SELECT ` + verseColumns + ` FROM verses v WHERE v.book_id = ? AND v.chapter = ? ORDER BY v.number`
	selectVerseRef = `SELECT ` + verseColumns + `, b.name AS book_name, b.abbreviation AS book_abbreviation
FROM verses v JOIN books b ON b.id = v.book_id
WHERE v.book_id = ? AND v.chapter = ? AND v.number = ?`
	selectVerseAt = `SELECT ` + verseColumns + `, b.name AS book_name, b.abbreviation AS book_abbreviation
FROM verses v JOIN books b ON b.id = v.book_id
ORDER BY v.id LIMIT 1 OFFSET ?`
	verseExists = `SELECT COUNT(*) FROM verses WHERE id = ?`
)

type verseRow struct {
	ID               int64  `db:"id"`
	BookID           int64  `db:"book_id"`
	Chapter          int    `db:"chapter"`
	Number           int    `db:"number"`
	Text             string `db:"text"`
	BookName         string `db:"book_name"`
	BookAbbreviation string `db:"book_abbreviation"`
}

func (r verseRow) verse() types.Verse {
	return types.Verse{ID: r.ID, BookID: r.BookID, Chapter: r.Chapter, Number: r.Number, Text: r.Text}
}

func (r verseRow) detail() types.VerseDetail {
	return types.VerseDetail{Verse: r.verse(), BookName: r.BookName, BookAbbreviation: r.BookAbbreviation}
}

// Favorites.
const (
	selectFavorites = `SELECT f.id, f.verse_id, f.created_at, b.name AS book_name, v.chapter, v.number, v.text
FROM favorites f
JOIN verses v ON v.id = f.verse_id
JOIN books b ON b.id = v.book_id
ORDER BY f.created_at DESC, f.id DESC`
	insertFavorite = `INSERT INTO favorites (verse_id, created_at) VALUES (?, ?) ON CONFLICT(verse_id) DO NOTHING`
	deleteFavorite = `DELETE FROM favorites WHERE verse_id = ?`
	countFavorite  = `SELECT COUNT(*) FROM favorites WHERE verse_id = ?`
	countFavorites = `SELECT COUNT(*) FROM favorites`
)

type favoriteRow struct {
	ID        int64  `db:"id"`
	VerseID   int64  `db:"verse_id"`
	CreatedAt string `db:"created_at"`
	BookName  string `db:"book_name"`
	Chapter   int    `db:"chapter"`
	Number    int    `db:"number"`
	Text      string `db:"text"`
}

func (r favoriteRow) favorite() types.Favorite {
	return types.Favorite{
		ID:        r.ID,
		VerseID:   r.VerseID,
		CreatedAt: parseTime(r.CreatedAt),
		BookName:  r.BookName,
		Chapter:   r.Chapter,
		Number:    r.Number,
		Text:      r.Text,
	}
}

// Annotations.
const (
	annotationSelect = `SELECT a.id, a.verse_id, a.title, a.body, a.created_at, a.updated_at,
       b.name AS book_name, v.chapter, v.number, v.text
FROM annotations a
JOIN verses v ON v.id = a.verse_id
JOIN books b ON b.id = v.book_id`
	selectAnnotations        = annotationSelect + ` ORDER BY a.updated_at DESC, a.id DESC`
	selectAnnotationsByVerse = annotationSelect + ` WHERE a.verse_id = ? ORDER BY a.created_at DESC, a.id DESC`
	selectAnnotationByID     = annotationSelect + ` WHERE a.id = ?`
	insertAnnotation         = `INSERT INTO annotations (verse_id, title, body, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	updateAnnotation         = `UPDATE annotations SET title = ?, body = ?, updated_at = ? WHERE id = ?`
	deleteAnnotation         = `DELETE FROM annotations WHERE id = ?`
	countAnnotations         = `SELECT COUNT(*) FROM annotations`
)

type annotationRow struct {
	ID        int64  `db:"id"`
	VerseID   int64  `db:"verse_id"`
	Title     string `db:"title"`
	Body      string `db:"body"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
	BookName  string `db:"book_name"`
	Chapter   int    `db:"chapter"`
	Number    int    `db:"number"`
	Text      string `db:"text"`
}

func (r annotationRow) annotation() types.Annotation {
	return types.Annotation{
		ID:        r.ID,
		VerseID:   r.VerseID,
		Title:     r.Title,
		Body:      r.Body,
		CreatedAt: parseTime(r.CreatedAt),
		UpdatedAt: parseTime(r.UpdatedAt),
		BookName:  r.BookName,
		Chapter:   r.Chapter,
		Number:    r.Number,
		Text:      r.Text,
	}
}

// Reading history.
const (
	deleteHistoryChapter = `DELETE FROM reading_history WHERE book_id = ? AND chapter = ?`
	insertHistory        = `INSERT INTO reading_history (book_id, chapter, accessed_at) VALUES (?, ?, ?)`
	trimHistory          = `DELETE FROM reading_history WHERE id NOT IN (
    SELECT id FROM reading_history ORDER BY accessed_at DESC, id DESC LIMIT ?
)`
	selectHistory = `SELECT h.id, h.book_id, h.chapter, h.accessed_at, b.name AS book_name
FROM reading_history h
JOIN books b ON b.id = h.book_id
ORDER BY h.accessed_at DESC, h.id DESC
LIMIT ?`
	countHistory      = `SELECT COUNT(*) FROM reading_history`
	countBooksVisited = `SELECT COUNT(DISTINCT book_id) FROM reading_history`
	selectLastAccess  = `SELECT COALESCE(MAX(accessed_at), '') FROM reading_history`
)

type historyRow struct {
	ID         int64  `db:"id"`
	BookID     int64  `db:"book_id"`
	Chapter    int    `db:"chapter"`
	AccessedAt string `db:"accessed_at"`
	BookName   string `db:"book_name"`
}

func (r historyRow) entry() types.HistoryEntry {
	return types.HistoryEntry{
		ID:         r.ID,
		BookID:     r.BookID,
		Chapter:    r.Chapter,
		AccessedAt: parseTime(r.AccessedAt),
		BookName:   r.BookName,
	}
}

// Settings.
const (
	selectSetting         = `SELECT value FROM settings WHERE key = ?`
	upsertSetting         = `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	insertSettingIfAbsent = `INSERT OR IGNORE INTO settings (key, value, updated_at) VALUES (?, ?, ?)`
)

// Schema checks, migration log and search index maintenance.
const (
	countCoreTables = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN (?, ?, ?)`
	insertMigration = `INSERT INTO migrations (id, started_at, finished_at, books, chapters, verses, skipped, corpus_hash, corpus_path, index_built)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	selectMigrations = `SELECT id, started_at, finished_at, books, chapters, verses, skipped, corpus_hash, corpus_path, index_built
FROM migrations ORDER BY started_at DESC`
	clearSearch    = `DELETE FROM verses_fts`
	dropSearch     = `DROP TABLE IF EXISTS verses_fts`
	populateSearch = `INSERT INTO verses_fts (rowid, book_name, chapter, number, text)
SELECT v.id, b.name, v.chapter, v.number, v.text
FROM verses v JOIN books b ON b.id = v.book_id`
)

type migrationRow struct {
	ID         string `db:"id"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
	Books      int    `db:"books"`
	Chapters   int    `db:"chapters"`
	Verses     int    `db:"verses"`
	Skipped    string `db:"skipped"`
	CorpusHash string `db:"corpus_hash"`
	CorpusPath string `db:"corpus_path"`
	IndexBuilt bool   `db:"index_built"`
}

func (r migrationRow) record() types.MigrationRecord {
	rec := types.MigrationRecord{
		ID:         r.ID,
		StartedAt:  parseTime(r.StartedAt),
		FinishedAt: parseTime(r.FinishedAt),
		Books:      r.Books,
		Chapters:   r.Chapters,
		Verses:     r.Verses,
		CorpusHash: r.CorpusHash,
		CorpusPath: r.CorpusPath,
		IndexBuilt: r.IndexBuilt,
	}
	if r.Skipped != "" {
		rec.Skipped = strings.Split(r.Skipped, ",")
	}
	return rec
}

// searchQuery builds the full-text query and its arguments. ok is false
// when the term has nothing searchable, in which case the search returns
// no results without touching the index.
func searchQuery(p types.SearchParams) (query string, args []any, ok bool) {
	match := matchExpression(p)
	if match == "" {
		return "", nil, false
	}

	var b strings.Builder
	b.WriteString(`SELECT v.id AS verse_id, b.name AS book_name, b.abbreviation AS book_abbreviation,
       v.chapter, v.number, v.text
FROM verses_fts
JOIN verses v ON v.id = verses_fts.rowid
JOIN books b ON b.id = v.book_id
WHERE verses_fts.text MATCH ?`)
	args = append(args, match)

	if p.BookID > 0 {
		b.WriteString(` AND b.id = ?`)
		args = append(args, p.BookID)
	}
	if p.Testament != "" {
		b.WriteString(` AND b.testament = ?`)
		args = append(args, string(p.Testament))
	}
	b.WriteString(` ORDER BY b.canonical_order, v.chapter, v.number LIMIT ?`)
	args = append(args, types.SearchLimit)
	return b.String(), args, true
}

// matchExpression turns a search term into an FTS5 query. Exact searches
// become one phrase. Other searches AND together a prefix query per word.
func matchExpression(p types.SearchParams) string {
	if p.Exact {
		term := strings.TrimSpace(p.Term)
		if !hasSearchable(term) {
			return ""
		}
		return quote(term)
	}

	var parts []string
	for _, w := range p.Words() {
		if !hasSearchable(w) {
			continue
		}
		parts = append(parts, quote(w)+"*")
	}
	return strings.Join(parts, " ")
}

// quote wraps s as an FTS5 string, doubling embedded quotes.
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// hasSearchable reports whether s contains a character the tokenizer keeps.
func hasSearchable(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return true
		}
	}
	return false
}

type searchRow struct {
	VerseID          int64  `db:"verse_id"`
	BookName         string `db:"book_name"`
	BookAbbreviation string `db:"book_abbreviation"`
	Chapter          int    `db:"chapter"`
	Number           int    `db:"number"`
	Text             string `db:"text"`
}

func (r searchRow) result() types.SearchResult {
	return types.SearchResult{
		VerseID:          r.VerseID,
		BookName:         r.BookName,
		BookAbbreviation: r.BookAbbreviation,
		Chapter:          r.Chapter,
		Number:           r.Number,
		Text:             r.Text,
	}
}
