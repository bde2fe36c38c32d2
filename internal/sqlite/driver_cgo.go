//go:build cgo_sqlite

// CGO SQLite driver using mattn/go-sqlite3.
//
// Build with: go build -tags "cgo_sqlite sqlite_fts5"
// Requires: CGO_ENABLED=1
package sqlite

import (
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const (
	driverName = "sqlite3"
	driverType = "cgo"
)

func dsn(path string, busyTimeout time.Duration) string {
	return fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on&_journal_mode=WAL&_synchronous=NORMAL",
		path, busyTimeout.Milliseconds())
}
