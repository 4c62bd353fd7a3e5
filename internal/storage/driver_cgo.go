//go:build !purego

package storage

// Default build: CGO SQLite via github.com/mattn/go-sqlite3.

import (
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DriverName is the database/sql driver used to open profile databases.
const DriverName = "sqlite3"

// dsn builds the connection string for path. Foreign keys and the busy
// timeout are per-connection settings, so they ride on the DSN rather than
// a one-off PRAGMA.
func dsn(path string, busyTimeoutMS int) string {
	return fmt.Sprintf("%s?_foreign_keys=on&_busy_timeout=%d", path, busyTimeoutMS)
}
