package cli

import (
	"bytes"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/profilestore/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// openRawDB opens the profile database in dir directly, bypassing the store.
func openRawDB(t *testing.T, dir string) *sql.DB {
	t.Helper()
	db, err := sql.Open(storage.DriverName, filepath.Join(dir, storage.FileName))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}
