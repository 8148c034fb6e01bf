package sqlite_test

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"go.gazette.dev/sqlite/sqlite"
	"go.gazette.dev/sqlite/sqlitetest"
)

func TestFileFormatInteroperability(t *testing.T) {
	var path = sqlitetest.TempPath(t)
	var db = sqlitetest.NewDatabase(t, path, sqlite.Config{JournalMode: sqlite.JournalModeWal})

	require.NoError(t, db.ExecuteScript(`
		CREATE TABLE kv(k TEXT PRIMARY KEY, v BLOB, n REAL);
		INSERT INTO kv VALUES ('a', x'0001', 1.5), ('b', NULL, -2);
	`))

	// Another SQLite implementation reads the database written here.
	var other, err = sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer other.Close()

	if err = other.Ping(); err != nil {
		t.Skipf("cgo sqlite3 driver is unavailable: %s", err)
	}

	var v []byte
	var n float64
	require.NoError(t, other.QueryRow("SELECT v, n FROM kv WHERE k = ?", "a").Scan(&v, &n))
	require.Equal(t, []byte{0, 1}, v)
	require.Equal(t, 1.5, n)

	// And writes made there are visible here.
	_, err = other.Exec("INSERT INTO kv VALUES ('c', x'ff', 0)")
	require.NoError(t, err)

	count, err := sqlite.NewReadStatement(db, "SELECT count(*) FROM kv", 1, 0)
	require.NoError(t, err)
	defer count.Close()

	total, err := sqlite.QueryValue[int](count)
	require.NoError(t, err)
	require.Equal(t, 3, total)
}
