// Package sqlitetest provides utilities for testing components which use
// sqlite Databases: temporary and shared in-memory databases, and full-table
// snapshots for comparing database contents.
package sqlitetest

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.gazette.dev/sqlite/sqlite"
)

// TempPath returns a database path within a temporary directory of the test,
// which is removed when the test completes.
func TempPath(t testing.TB) string {
	return filepath.Join(t.TempDir(), "test.db")
}

// SharedMemoryURI returns a URI of a named, shared-cache in-memory database
// which is unique to the caller. Databases opened with the same URI share
// the in-memory database, which exists while any of them remains open.
func SharedMemoryURI() string {
	return fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
}

// NewDatabase opens a Database of |path| with the Config. The Database is
// closed when the test completes, if it remains open.
func NewDatabase(t testing.TB, path string, cfg sqlite.Config) *sqlite.Database {
	var db, err = sqlite.Open(path, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		if db.IsOpen() {
			require.NoError(t, db.Close())
		}
	})
	return db
}

// NewTempDatabase opens a Database of a TempPath with the Config.
func NewTempDatabase(t testing.TB, cfg sqlite.Config) *sqlite.Database {
	return NewDatabase(t, TempPath(t), cfg)
}

// Rows of a table snapshot, each holding every column of the row.
type Rows [][]sqlite.Value

// Snapshot returns all rows of |table|, ordered by each of its columns.
func Snapshot(t require.TestingT, db *sqlite.Database, table string) Rows {
	var s, err = db.Prepare(fmt.Sprintf("SELECT * FROM %s", table))
	require.NoError(t, err)

	var order = ""
	for i := range s.ColumnCount() {
		if i != 0 {
			order += ", "
		}
		order += fmt.Sprint(i + 1)
	}
	require.NoError(t, s.Close())

	s, err = db.Prepare(fmt.Sprintf("SELECT * FROM %s ORDER BY %s", table, order))
	require.NoError(t, err)
	defer s.Close()

	var out Rows
	for {
		var row, err = s.Next()
		require.NoError(t, err)

		if !row {
			return out
		}
		var values = make([]sqlite.Value, s.ColumnCount())
		for col := range values {
			values[col] = s.FetchValue(col)
		}
		out = append(out, values)
	}
}

// SnapshotAll returns Snapshots of every user table of the Database,
// optionally excluding |skip| tables.
func SnapshotAll(t require.TestingT, db *sqlite.Database, skip ...string) map[string]Rows {
	var tables, err = db.TableNames()
	require.NoError(t, err)

	var out = make(map[string]Rows)
tables:
	for _, table := range tables {
		for _, s := range skip {
			if s == table {
				continue tables
			}
		}
		out[table] = Snapshot(t, db, table)
	}
	return out
}

// Count returns the number of rows of |table|.
func Count(t require.TestingT, db *sqlite.Database, table string) int {
	var s, err = sqlite.NewReadStatement(db, "SELECT count(*) FROM "+table, 1, 0)
	require.NoError(t, err)
	defer s.Close()

	n, err := sqlite.QueryValue[int](s)
	require.NoError(t, err)
	return n
}
