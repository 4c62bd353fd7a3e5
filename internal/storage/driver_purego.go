//go:build purego

package storage

// Built with -tags purego: pure Go SQLite via modernc.org/sqlite, no C
// toolchain required.

import (
	"fmt"

	_ "modernc.org/sqlite"
)

// DriverName is the database/sql driver used to open profile databases.
const DriverName = "sqlite"

func dsn(path string, busyTimeoutMS int) string {
	return fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)", path, busyTimeoutMS)
}
