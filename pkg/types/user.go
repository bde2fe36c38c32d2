package types

import "time"

// HistoryLimit is the number of reading history entries retained.
const HistoryLimit = 50

// Favorite marks a verse. A verse is favorited at most once.
// The verse fields are joined in when listing.
type Favorite struct {
	ID        int64     `json:"id"`
	VerseID   int64     `json:"verse_id"`
	CreatedAt time.Time `json:"created_at"`

	BookName string `json:"book_name,omitempty"`
	Chapter  int    `json:"chapter,omitempty"`
	Number   int    `json:"number,omitempty"`
	Text     string `json:"text,omitempty"`
}

// Annotation is a user note attached to a verse. Many per verse allowed.
type Annotation struct {
	ID        int64     `json:"id"`
	VerseID   int64     `json:"verse_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	BookName string `json:"book_name,omitempty"`
	Chapter  int    `json:"chapter,omitempty"`
	Number   int    `json:"number,omitempty"`
	Text     string `json:"text,omitempty"`
}

// AnnotationInput carries the user-editable fields of an annotation.
type AnnotationInput struct {
	VerseID int64  `json:"verse_id"`
	Title   string `json:"title"`
	Body    string `json:"body"`
}

// Validate checks the fields required to create an annotation.
func (in AnnotationInput) Validate() error {
	if in.VerseID <= 0 {
		return &ValidationError{Field: "verse_id", Message: "must be positive"}
	}
	if in.Body == "" {
		return &ValidationError{Field: "body", Message: "must not be empty"}
	}
	return nil
}

// HistoryEntry records that a chapter was opened. At most HistoryLimit
// entries are retained, one per (BookID, Chapter).
type HistoryEntry struct {
	ID         int64     `json:"id"`
	BookID     int64     `json:"book_id"`
	Chapter    int       `json:"chapter"`
	AccessedAt time.Time `json:"accessed_at"`
	BookName   string    `json:"book_name,omitempty"`
}

// Setting is a key/value preference with upsert semantics.
type Setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Recognized setting keys.
const (
	SettingTheme            = "theme"
	SettingFontSize         = "font_size"
	SettingFontFamily       = "font_family"
	SettingShowVerseNumbers = "show_verse_numbers"
	SettingBibleVersion     = "bible_version"
)

// DefaultSettings are seeded into a fresh store, in this order.
var DefaultSettings = []Setting{
	{Key: SettingTheme, Value: "light"},
	{Key: SettingFontSize, Value: "medium"},
	{Key: SettingFontFamily, Value: "system-ui"},
	{Key: SettingShowVerseNumbers, Value: "true"},
	{Key: SettingBibleVersion, Value: "King James em Português"},
}
