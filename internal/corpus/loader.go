// Package corpus reads the static Bible corpus and holds the canonical
// mapping table used to classify its books.
//
// The corpus is a JSON array of books, each with an abbreviation and an
// ordered list of chapters, each chapter an ordered list of verse strings:
//
//	[{"abbrev": "Gn", "chapters": [["No princípio...", "..."], ...]}, ...]
//
// A file may also be shipped xz-compressed next to the plain name.
package corpus

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/ulikunitz/xz"
	"github.com/zeebo/blake3"

	"github.com/mesh-intelligence/biblia/internal/logging"
	"github.com/mesh-intelligence/biblia/pkg/types"
)

// xzSuffix is appended to a candidate path to find its compressed variant.
const xzSuffix = ".xz"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Book is one corpus entry.
type Book struct {
	Abbrev   string     `json:"abbrev"`
	Name     string     `json:"name,omitempty"`
	Chapters [][]string `json:"chapters"`
}

// VerseCount returns the number of verses in the book.
func (b Book) VerseCount() int {
	n := 0
	for _, ch := range b.Chapters {
		n += len(ch)
	}
	return n
}

// Corpus is a loaded corpus plus where it came from.
type Corpus struct {
	Books []Book
	// Path is the file the corpus was read from.
	Path string
	// Hash is the hex blake3-256 digest of the decoded JSON bytes.
	Hash string
}

// VerseCount returns the number of verses in the corpus.
func (c *Corpus) VerseCount() int {
	n := 0
	for _, b := range c.Books {
		n += b.VerseCount()
	}
	return n
}

// ChapterCount returns the number of chapters in the corpus.
func (c *Corpus) ChapterCount() int {
	n := 0
	for _, b := range c.Books {
		n += len(b.Chapters)
	}
	return n
}

// Source supplies a corpus. *Loader is the production implementation.
type Source interface {
	Load(ctx context.Context) (*Corpus, error)
}

// Loader reads the corpus from the first existing candidate path.
type Loader struct {
	candidates []string
	logger     *slog.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the loader's logger.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.logger = l }
}

// NewLoader creates a Loader that tries candidates in order.
func NewLoader(candidates []string, opts ...Option) *Loader {
	l := &Loader{
		candidates: candidates,
		logger:     logging.Component("corpus"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Candidates returns the paths the loader tries, in order.
func (l *Loader) Candidates() []string {
	return append([]string(nil), l.candidates...)
}

// Load reads and decodes the corpus. It returns a *types.CorpusNotFoundError
// when no candidate exists and a *types.CorpusMalformedError when the first
// existing file cannot be decoded.
func (l *Loader) Load(ctx context.Context) (*Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var tried []string
	for _, candidate := range l.candidates {
		for _, path := range []string{candidate, candidate + xzSuffix} {
			tried = append(tried, path)
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				continue
			}
			l.logger.Debug("loading corpus", "path", path)
			c, err := readFile(path)
			if err != nil {
				return nil, err
			}
			l.logger.Info("corpus loaded", "path", path, "books", len(c.Books), "verses", c.VerseCount())
			return c, nil
		}
	}
	return nil, &types.CorpusNotFoundError{Candidates: tried}
}

// readFile reads one corpus file, decompressing .xz files.
func readFile(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &types.CorpusNotFoundError{Candidates: []string{path}}
		}
		return nil, &types.CorpusMalformedError{Path: path, Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, xzSuffix) {
		xr, err := xz.NewReader(f)
		if err != nil {
			return nil, &types.CorpusMalformedError{Path: path, Err: fmt.Errorf("xz: %w", err)}
		}
		r = xr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &types.CorpusMalformedError{Path: path, Err: err}
	}

	books, err := Decode(data)
	if err != nil {
		return nil, &types.CorpusMalformedError{Path: path, Err: err}
	}
	return &Corpus{Books: books, Path: path, Hash: Fingerprint(data)}, nil
}

// Decode parses corpus JSON. A leading UTF-8 byte order mark is ignored.
func Decode(data []byte) ([]Book, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("expected a JSON array of books")
	}
	var books []Book
	if err := json.Unmarshal(trimmed, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Fingerprint returns the hex blake3-256 digest of data.
func Fingerprint(data []byte) string {
	sum := blake3.Sum256(bytes.TrimPrefix(data, utf8BOM))
	return hex.EncodeToString(sum[:])
}

// Static is a Source over books already in memory.
type Static []Book

// Load returns the books with a fingerprint of their JSON encoding.
func (s Static) Load(ctx context.Context) (*Corpus, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := json.Marshal([]Book(s))
	if err != nil {
		return nil, err
	}
	return &Corpus{Books: s, Path: "memory", Hash: Fingerprint(data)}, nil
}
