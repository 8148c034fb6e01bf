package sqlite_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.gazette.dev/sqlite/sqlite"
	"go.gazette.dev/sqlite/sqlitetest"
)

func TestTableBuilderSQL(t *testing.T) {
	var users = &sqlite.Table{Name: "users", IfNotExists: true}
	var id = users.AddColumn("id", sqlite.ColumnInteger, sqlite.PrimaryKey{Autoincrement: true})
	var email = users.AddColumn("email", sqlite.ColumnText, sqlite.NotNull{}, sqlite.Unique{},
		sqlite.Collate{Name: "NOCASE"})
	var karma = users.AddColumn("karma", sqlite.ColumnReal,
		sqlite.DefaultValue{Value: sqlite.FloatValue(1)}, sqlite.Check{Expression: "karma >= 0"})
	users.AddColumn("nick", sqlite.ColumnNone,
		sqlite.DefaultValue{Value: sqlite.StringValue("it's me")})
	users.AddColumn("created", sqlite.ColumnInteger, sqlite.DefaultExpression{Expression: "unixepoch()"})
	users.AddColumn("domain", sqlite.ColumnText, sqlite.GeneratedAlways{
		Expression: "substr(email, instr(email, '@') + 1)",
		Storage:    sqlite.GeneratedStored,
	})
	users.AddIndex(karma).Condition = "karma > 10"
	users.AddUniqueIndex(email, karma)

	var sql, err = users.CreateTableSQL()
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE IF NOT EXISTS users("+
		"id INTEGER PRIMARY KEY AUTOINCREMENT, "+
		"email TEXT NOT NULL UNIQUE COLLATE NOCASE, "+
		"karma REAL DEFAULT 1.0 CHECK (karma >= 0), "+
		"nick DEFAULT 'it''s me', "+
		"created INTEGER DEFAULT (unixepoch()), "+
		"domain TEXT GENERATED ALWAYS AS (substr(email, instr(email, '@') + 1)) STORED)", sql)

	sql, err = users.Indices[0].SQL()
	require.NoError(t, err)
	require.Equal(t, "CREATE INDEX IF NOT EXISTS index_users_karma ON users(karma) WHERE karma > 10", sql)

	sql, err = users.Indices[1].SQL()
	require.NoError(t, err)
	require.Equal(t, "CREATE UNIQUE INDEX IF NOT EXISTS index_users_email_karma ON users(email, karma)", sql)

	var posts = &sqlite.Table{Name: "posts", WithoutRowID: true}
	var author = posts.AddColumn("author", sqlite.ColumnInteger, sqlite.NotNull{}, sqlite.ForeignKey{
		Column:      id,
		OnDelete:    sqlite.Cascade,
		OnUpdate:    sqlite.SetNull,
		Enforcement: sqlite.EnforcementDeferred,
	})
	var seq = posts.AddColumn("seq", sqlite.ColumnInteger)
	posts.AddColumn("body", sqlite.ColumnBlob, sqlite.DefaultValue{Value: sqlite.BlobValue([]byte{0xca, 0xfe})})
	posts.AddColumn("tag", sqlite.ColumnText, sqlite.ForeignKey{Table: "tags"})
	posts.AddPrimaryKey(author, seq)

	sql, err = posts.CreateTableSQL()
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE posts("+
		"author INTEGER NOT NULL REFERENCES users(id) ON UPDATE SET NULL ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED, "+
		"seq INTEGER, "+
		"body BLOB DEFAULT x'cafe', "+
		"tag TEXT REFERENCES tags, "+
		"PRIMARY KEY(author, seq)) WITHOUT ROWID", sql)

	var tmp = &sqlite.Table{Name: "scratch", Temporary: true}
	var a = tmp.AddColumn("a", sqlite.ColumnNumeric)
	var b = tmp.AddColumn("b", sqlite.ColumnNumeric)
	tmp.AddUnique(a, b)

	sql, err = tmp.CreateTableSQL()
	require.NoError(t, err)
	require.Equal(t, "CREATE TEMPORARY TABLE scratch(a NUMERIC, b NUMERIC, UNIQUE(a, b))", sql)
}

func TestTableBuilderValidation(t *testing.T) {
	var users = &sqlite.Table{Name: "users"}
	var name = users.AddColumn("name", sqlite.ColumnText)

	var posts = &sqlite.Table{Name: "posts"}
	posts.AddColumn("author", sqlite.ColumnText, sqlite.ForeignKey{Column: name})

	var _, err = posts.CreateTableSQL()
	require.True(t, sqlite.IsKind(err, sqlite.ForeignKeyColumnIsNotUnique))

	_, err = (&sqlite.Table{Name: "empty"}).CreateTableSQL()
	require.True(t, sqlite.IsKind(err, sqlite.StatementIsMisused))
	_, err = (&sqlite.Table{}).CreateTableSQL()
	require.True(t, sqlite.IsKind(err, sqlite.StatementIsMisused))
	_, err = sqlite.Index{Table: "users"}.SQL()
	require.True(t, sqlite.IsKind(err, sqlite.StatementIsMisused))
}

func TestTableInitialize(t *testing.T) {
	var db = sqlitetest.NewTempDatabase(t, sqlite.Config{})

	var users = &sqlite.Table{Name: "users", IfNotExists: true}
	var id = users.AddColumn("id", sqlite.ColumnInteger, sqlite.PrimaryKey{})
	var email = users.AddColumn("email", sqlite.ColumnText, sqlite.NotNull{})
	users.AddUniqueIndex(email)

	var posts = &sqlite.Table{Name: "posts", IfNotExists: true}
	posts.AddColumn("author", sqlite.ColumnInteger, sqlite.ForeignKey{Column: id, OnDelete: sqlite.Cascade})
	posts.AddColumn("body", sqlite.ColumnText)

	require.False(t, users.IsReady())
	require.NoError(t, users.Initialize(db))
	require.NoError(t, posts.Initialize(db))
	require.True(t, users.IsReady())

	// Initialization is idempotent.
	require.NoError(t, users.Initialize(db))

	var tables, err = db.TableNames()
	require.NoError(t, err)
	require.Equal(t, []string{"posts", "users"}, tables)

	require.NoError(t, db.SetPragmaValue("foreign_keys", "1"))
	require.NoError(t, db.ExecuteScript(`
		INSERT INTO users VALUES (1, 'a@example.com');
		INSERT INTO posts VALUES (1, 'hello');
	`))
	err = db.Execute("INSERT INTO users VALUES (2, 'a@example.com')")
	require.True(t, sqlite.IsKind(err, sqlite.UniqueConstraintPreventsModification))

	err = db.Execute("INSERT INTO posts VALUES (7, 'orphan')")
	require.True(t, sqlite.IsKind(err, sqlite.ForeignKeyConstraintPreventsModification))

	require.NoError(t, db.Execute("DELETE FROM users"))
	require.Equal(t, 0, sqlitetest.Count(t, db, "posts"))
}

func TestTableNonFiniteFloatDefaults(t *testing.T) {
	var limits = &sqlite.Table{Name: "limits"}
	limits.AddColumn("hi", sqlite.ColumnReal, sqlite.DefaultValue{Value: sqlite.FloatValue(math.Inf(1))})
	limits.AddColumn("lo", sqlite.ColumnReal, sqlite.DefaultValue{Value: sqlite.FloatValue(math.Inf(-1))})
	limits.AddColumn("nan", sqlite.ColumnReal, sqlite.DefaultValue{Value: sqlite.FloatValue(math.NaN())})

	var sql, err = limits.CreateTableSQL()
	require.NoError(t, err)
	require.Equal(t, "CREATE TABLE limits("+
		"hi REAL DEFAULT 9e999, "+
		"lo REAL DEFAULT -9e999, "+
		"nan REAL DEFAULT NULL)", sql)

	var db = sqlitetest.NewTempDatabase(t, sqlite.Config{})
	require.NoError(t, limits.Initialize(db))
	require.NoError(t, db.Execute("INSERT INTO limits DEFAULT VALUES"))

	require.Equal(t, sqlitetest.Rows{
		{sqlite.FloatValue(math.Inf(1)), sqlite.FloatValue(math.Inf(-1)), sqlite.NullValue()},
	}, sqlitetest.Snapshot(t, db, "limits"))
}
