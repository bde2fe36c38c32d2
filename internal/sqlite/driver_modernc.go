//go:build !cgo_sqlite && !wasm_sqlite

// Pure Go SQLite driver using modernc.org/sqlite. This is the default.
package sqlite

import (
	"fmt"
	"net/url"
	"time"

	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"
	driverType = "purego"
)

// dsn builds a modernc DSN. Connection-scoped pragmas go in the DSN so a
// replacement connection gets them too.
func dsn(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}
