package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.gazette.dev/sqlite/sqlite"
	"go.gazette.dev/sqlite/sqlitetest"
)

func newNamesTable(t *testing.T) (*sqlite.Database, *sqlite.WriteStatement) {
	var db = sqlitetest.NewTempDatabase(t, sqlite.Config{JournalMode: sqlite.JournalModeWal})

	var table = &sqlite.Table{Name: "t"}
	table.AddColumn("id", sqlite.ColumnInteger, sqlite.PrimaryKey{})
	table.AddColumn("name", sqlite.ColumnText, sqlite.NotNull{})
	require.NoError(t, table.Initialize(db))

	var insert, err = sqlite.NewWriteStatement(db, "INSERT INTO t VALUES (?, ?)", 2)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, insert.Close()) })

	return db, insert
}

func TestInsertsWithinTransactionAreReadBack(t *testing.T) {
	var db, insert = newNamesTable(t)

	require.NoError(t, sqlite.WithImmediateTransaction(db, func() error {
		if err := insert.Write(1, "a"); err != nil {
			return err
		}
		return insert.Write(2, "b")
	}))

	var names, err = sqlite.NewReadStatement(db, "SELECT name FROM t ORDER BY id", 1, 0)
	require.NoError(t, err)
	defer names.Close()

	out, err := sqlite.QueryValues[string](names)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, out)
}

func TestFailedInsertRollsBackTransaction(t *testing.T) {
	var db, insert = newNamesTable(t)
	require.NoError(t, insert.Write(1, "a"))

	var err = sqlite.WithImmediateTransaction(db, func() error {
		if err := insert.Write(2, "b"); err != nil {
			return err
		}
		return insert.Write(1, nil)
	})
	require.True(t,
		sqlite.IsKind(err, sqlite.PrimaryKeyConstraintPreventsModification) ||
			sqlite.IsKind(err, sqlite.NotNullConstraintPreventsModification), err)

	require.Equal(t, 1, sqlitetest.Count(t, db, "t"))
	require.False(t, db.IsLocked())
}
