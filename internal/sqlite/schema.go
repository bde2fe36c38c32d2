package sqlite

// Table names, in the order a re-migration clears them.
const (
	tableHistory     = "reading_history"
	tableAnnotations = "annotations"
	tableFavorites   = "favorites"
	tableVerses      = "verses"
	tableChapters    = "chapters"
	tableBooks       = "books"
	tableSettings    = "settings"
	tableMigrations  = "migrations"
	tableSearch      = "verses_fts"
)

// Schema DDL. Every statement is idempotent.
const (
	createBooks = `CREATE TABLE IF NOT EXISTS books (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    abbreviation TEXT NOT NULL UNIQUE,
    testament TEXT NOT NULL CHECK (testament IN ('Old', 'New')),
    canonical_order INTEGER NOT NULL,
    total_chapters INTEGER NOT NULL DEFAULT 0
);`

	createChapters = `CREATE TABLE IF NOT EXISTS chapters (
    id INTEGER PRIMARY KEY,
    book_id INTEGER NOT NULL,
    number INTEGER NOT NULL,
    total_verses INTEGER NOT NULL DEFAULT 0,
    UNIQUE (book_id, number),
    FOREIGN KEY (book_id) REFERENCES books(id)
);`

	createVerses = `CREATE TABLE IF NOT EXISTS verses (
    id INTEGER PRIMARY KEY,
    book_id INTEGER NOT NULL,
    chapter INTEGER NOT NULL,
    number INTEGER NOT NULL,
    text TEXT NOT NULL,
    UNIQUE (book_id, chapter, number),
    FOREIGN KEY (book_id) REFERENCES books(id)
);`

	createFavorites = `CREATE TABLE IF NOT EXISTS favorites (
    id INTEGER PRIMARY KEY,
    verse_id INTEGER NOT NULL UNIQUE,
    created_at TEXT NOT NULL,
    FOREIGN KEY (verse_id) REFERENCES verses(id)
);`

	createAnnotations = `CREATE TABLE IF NOT EXISTS annotations (
    id INTEGER PRIMARY KEY,
    verse_id INTEGER NOT NULL,
    title TEXT NOT NULL DEFAULT '',
    body TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    FOREIGN KEY (verse_id) REFERENCES verses(id)
);`

	createHistory = `CREATE TABLE IF NOT EXISTS reading_history (
    id INTEGER PRIMARY KEY,
    book_id INTEGER NOT NULL,
    chapter INTEGER NOT NULL,
    accessed_at TEXT NOT NULL,
    FOREIGN KEY (book_id) REFERENCES books(id)
);`

	createSettings = `CREATE TABLE IF NOT EXISTS settings (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`

	createMigrations = `CREATE TABLE IF NOT EXISTS migrations (
    id TEXT PRIMARY KEY,
    started_at TEXT NOT NULL,
    finished_at TEXT NOT NULL,
    books INTEGER NOT NULL,
    chapters INTEGER NOT NULL,
    verses INTEGER NOT NULL,
    skipped TEXT NOT NULL DEFAULT '',
    corpus_hash TEXT NOT NULL DEFAULT '',
    corpus_path TEXT NOT NULL DEFAULT '',
    index_built INTEGER NOT NULL DEFAULT 0
);`

	// The search index stores its own copy of the text so it can be
	// rebuilt and queried without triggers. rowid is the verse id.
	createSearch = `CREATE VIRTUAL TABLE IF NOT EXISTS verses_fts USING fts5(
    book_name,
    chapter UNINDEXED,
    number UNINDEXED,
    text,
    tokenize = 'unicode61 remove_diacritics 0'
);`
)

// Index DDL.
const (
	indexBooksOrder      = `CREATE INDEX IF NOT EXISTS idx_books_order ON books(canonical_order);`
	indexVersesChapter   = `CREATE INDEX IF NOT EXISTS idx_verses_book_chapter ON verses(book_id, chapter);`
	indexAnnotationVerse = `CREATE INDEX IF NOT EXISTS idx_annotations_verse ON annotations(verse_id);`
	indexHistoryBook     = `CREATE INDEX IF NOT EXISTS idx_history_book ON reading_history(book_id, chapter);`
	indexHistoryAccessed = `CREATE INDEX IF NOT EXISTS idx_history_accessed ON reading_history(accessed_at);`
)

// schemaDDL lists table creation in dependency order.
var schemaDDL = []string{
	createBooks,
	createChapters,
	createVerses,
	createFavorites,
	createAnnotations,
	createHistory,
	createSettings,
	createMigrations,
	createSearch,
}

var indexDDL = []string{
	indexBooksOrder,
	indexVersesChapter,
	indexAnnotationVerse,
	indexHistoryBook,
	indexHistoryAccessed,
}

// coreTables must all exist for the store to hold a migrated corpus.
var coreTables = []string{tableBooks, tableChapters, tableVerses}

// clearOrder lists the tables a re-migration empties, children first.
var clearOrder = []string{
	tableHistory,
	tableAnnotations,
	tableFavorites,
	tableVerses,
	tableChapters,
	tableBooks,
}
