package corpus

import (
	"strings"

	"github.com/mesh-intelligence/biblia/pkg/types"
)

// Entry is one row of the canonical mapping table.
type Entry struct {
	Abbrev    string
	Name      string
	Testament types.Testament
	Order     int
}

// canon maps corpus abbreviations to canonical books: 39 Old and 27 New
// Testament books plus two alternate spellings (Êx, 1Tn) that resolve to
// the same canonical order as their primary entry.
var canon = []Entry{
	{"Gn", "Gênesis", types.OldTestament, 1},
	{"Ex", "Êxodo", types.OldTestament, 2},
	{"Êx", "Êxodo", types.OldTestament, 2},
	{"Lv", "Levítico", types.OldTestament, 3},
	{"Nm", "Números", types.OldTestament, 4},
	{"Dt", "Deuteronômio", types.OldTestament, 5},
	{"Js", "Josué", types.OldTestament, 6},
	{"Jz", "Juízes", types.OldTestament, 7},
	{"Rt", "Rute", types.OldTestament, 8},
	{"1Sm", "1 Samuel", types.OldTestament, 9},
	{"2Sm", "2 Samuel", types.OldTestament, 10},
	{"1Rs", "1 Reis", types.OldTestament, 11},
	{"2Rs", "2 Reis", types.OldTestament, 12},
	{"1Cr", "1 Crônicas", types.OldTestament, 13},
	{"2Cr", "2 Crônicas", types.OldTestament, 14},
	{"Ed", "Esdras", types.OldTestament, 15},
	{"Ne", "Neemias", types.OldTestament, 16},
	{"Et", "Ester", types.OldTestament, 17},
	{"Jó", "Jó", types.OldTestament, 18},
	{"Sl", "Salmos", types.OldTestament, 19},
	{"Pv", "Provérbios", types.OldTestament, 20},
	{"Ec", "Eclesiastes", types.OldTestament, 21},
	{"Ct", "Cantares", types.OldTestament, 22},
	{"Is", "Isaías", types.OldTestament, 23},
	{"Jr", "Jeremias", types.OldTestament, 24},
	{"Lm", "Lamentações", types.OldTestament, 25},
	{"Ez", "Ezequiel", types.OldTestament, 26},
	{"Dn", "Daniel", types.OldTestament, 27},
	{"Os", "Oséias", types.OldTestament, 28},
	{"Jl", "Joel", types.OldTestament, 29},
	{"Am", "Amós", types.OldTestament, 30},
	{"Ob", "Obadias", types.OldTestament, 31},
	{"Jn", "Jonas", types.OldTestament, 32},
	{"Mq", "Miquéias", types.OldTestament, 33},
	{"Na", "Naum", types.OldTestament, 34},
	{"Hc", "Habacuque", types.OldTestament, 35},
	{"Sf", "Sofonias", types.OldTestament, 36},
	{"Ag", "Ageu", types.OldTestament, 37},
	{"Zc", "Zacarias", types.OldTestament, 38},
	{"Ml", "Malaquias", types.OldTestament, 39},

	{"Mt", "Mateus", types.NewTestament, 40},
	{"Mc", "Marcos", types.NewTestament, 41},
	{"Lc", "Lucas", types.NewTestament, 42},
	{"Jo", "João", types.NewTestament, 43},
	{"At", "Atos", types.NewTestament, 44},
	{"Rm", "Romanos", types.NewTestament, 45},
	{"1Co", "1 Coríntios", types.NewTestament, 46},
	{"2Co", "2 Coríntios", types.NewTestament, 47},
	{"Gl", "Gálatas", types.NewTestament, 48},
	{"Ef", "Efésios", types.NewTestament, 49},
	{"Fp", "Filipenses", types.NewTestament, 50},
	{"Cl", "Colossenses", types.NewTestament, 51},
	{"1Ts", "1 Tessalonicenses", types.NewTestament, 52},
	{"2Ts", "2 Tessalonicenses", types.NewTestament, 53},
	{"1Tm", "1 Timóteo", types.NewTestament, 54},
	{"1Tn", "1 Timóteo", types.NewTestament, 54},
	{"2Tm", "2 Timóteo", types.NewTestament, 55},
	{"Tt", "Tito", types.NewTestament, 56},
	{"Fm", "Filemom", types.NewTestament, 57},
	{"Hb", "Hebreus", types.NewTestament, 58},
	{"Tg", "Tiago", types.NewTestament, 59},
	{"1Pe", "1 Pedro", types.NewTestament, 60},
	{"2Pe", "2 Pedro", types.NewTestament, 61},
	{"1Jo", "1 João", types.NewTestament, 62},
	{"2Jo", "2 João", types.NewTestament, 63},
	{"3Jo", "3 João", types.NewTestament, 64},
	{"Jd", "Judas", types.NewTestament, 65},
	{"Ap", "Apocalipse", types.NewTestament, 66},
}

var canonByAbbrev = func() map[string]Entry {
	m := make(map[string]Entry, len(canon))
	for _, e := range canon {
		m[e.Abbrev] = e
	}
	return m
}()

// Lookup resolves a corpus abbreviation. Matching is exact first, then
// case-insensitive.
func Lookup(abbrev string) (Entry, bool) {
	if e, ok := canonByAbbrev[abbrev]; ok {
		return e, true
	}
	for _, e := range canon {
		if strings.EqualFold(e.Abbrev, abbrev) {
			return e, true
		}
	}
	return Entry{}, false
}

// CanonicalBooks returns one entry per canonical book, primary spellings
// only, in canonical order.
func CanonicalBooks() []Entry {
	out := make([]Entry, 0, 66)
	last := 0
	for _, e := range canon {
		if e.Order == last {
			continue
		}
		last = e.Order
		out = append(out, e)
	}
	return out
}

// oldTestamentKeys is the fixed key list the secondary store classifies
// testaments with: the English book keys plus the primary corpus
// abbreviations, all lower case. Alternate spellings are not on it, so the
// secondary store reports them as New Testament while the canonical table
// may disagree.
var oldTestamentKeys = map[string]bool{
	"genesis": true, "exodus": true, "leviticus": true, "numbers": true,
	"deuteronomy": true, "joshua": true, "judges": true, "ruth": true,
	"1samuel": true, "2samuel": true, "1kings": true, "2kings": true,
	"1chronicles": true, "2chronicles": true, "ezra": true, "nehemiah": true,
	"esther": true, "job": true, "psalms": true, "proverbs": true,
	"ecclesiastes": true, "song": true, "isaiah": true, "jeremiah": true,
	"lamentations": true, "ezekiel": true, "daniel": true, "hosea": true,
	"joel": true, "amos": true, "obadiah": true, "jonah": true,
	"micah": true, "nahum": true, "habakkuk": true, "zephaniah": true,
	"haggai": true, "zechariah": true, "malachi": true,

	"gn": true, "ex": true, "lv": true, "nm": true, "dt": true, "js": true,
	"jz": true, "rt": true, "1sm": true, "2sm": true, "1rs": true, "2rs": true,
	"1cr": true, "2cr": true, "ed": true, "ne": true, "et": true, "jó": true,
	"sl": true, "pv": true, "ec": true, "ct": true, "is": true, "jr": true,
	"lm": true, "ez": true, "dn": true, "os": true, "jl": true, "am": true,
	"ob": true, "jn": true, "mq": true, "na": true, "hc": true, "sf": true,
	"ag": true, "zc": true, "ml": true,
}

// KeyTestament classifies a corpus key by the fixed Old Testament key list.
// Anything not on the list is New Testament.
func KeyTestament(key string) types.Testament {
	if oldTestamentKeys[strings.ToLower(key)] {
		return types.OldTestament
	}
	return types.NewTestament
}
