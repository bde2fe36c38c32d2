//go:build wasm_sqlite && !cgo_sqlite

// SQLite compiled to WebAssembly, using ncruces/go-sqlite3 on wazero.
//
// Build with: go build -tags wasm_sqlite
package sqlite

import (
	"fmt"
	"net/url"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	driverName = "sqlite3"
	driverType = "wasm"
)

func dsn(path string, busyTimeout time.Duration) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout.Milliseconds()))
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(NORMAL)")
	return "file:" + path + "?" + q.Encode()
}
