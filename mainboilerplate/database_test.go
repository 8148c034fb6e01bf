package mainboilerplate

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/require"
	"go.gazette.dev/sqlite/codecs"
	"go.gazette.dev/sqlite/sqlite"
)

func TestDatabaseConfigParsing(t *testing.T) {
	var cfg struct {
		Database DatabaseConfig `group:"Database" namespace:"db" env-namespace:"DB"`
	}
	var parser = flags.NewParser(&cfg, flags.None)

	var _, err = parser.ParseArgs([]string{
		"--db.path=/tmp/foo.db",
		"--db.journal-mode=wal",
		"--db.busy-timeout=250ms",
		"--db.sessions-table=changes",
		"--db.sessions-codec=GZIP",
	})
	require.NoError(t, err)

	require.Equal(t, DatabaseConfig{
		Path:          "/tmp/foo.db",
		JournalMode:   "wal",
		LockingMode:   "default",
		BusyTimeout:   250 * time.Millisecond,
		CacheSize:     64,
		SessionsTable: "changes",
		SessionsCodec: codecs.Gzip,
	}, cfg.Database)

	dbCfg, err := cfg.Database.Config()
	require.NoError(t, err)
	require.Equal(t, sqlite.Config{
		JournalMode:        sqlite.JournalModeWal,
		BusyTimeout:        250 * time.Millisecond,
		StatementCacheSize: 64,
	}, dbCfg)

	// Unknown choices and codecs are rejected by the parser.
	_, err = parser.ParseArgs([]string{"--db.path=x", "--db.journal-mode=bogus"})
	require.Error(t, err)
	_, err = parser.ParseArgs([]string{"--db.path=x", "--db.sessions-codec=lz4"})
	require.Error(t, err)

	cfg.Database.BusyTimeout = -time.Second
	_, err = cfg.Database.Config()
	require.EqualError(t, err, "invalid BusyTimeout (-1s; expected >= 0)")
}

func TestDatabaseConfigOpen(t *testing.T) {
	var cfg = DatabaseConfig{
		Path:          filepath.Join(t.TempDir(), "test.db"),
		JournalMode:   "wal",
		LockingMode:   "normal",
		CacheSize:     8,
		SessionsTable: "changes",
		SessionsCodec: codecs.Snappy,
	}
	var db, sessions = cfg.MustOpen()
	defer db.Close()

	require.NotNil(t, sessions)
	require.Equal(t, "changes", sessions.Table())

	var mode, err = db.JournalMode()
	require.NoError(t, err)
	require.Equal(t, sqlite.JournalModeWal, mode)

	tables, err := db.TableNames()
	require.NoError(t, err)
	require.Equal(t, []string{"changes"}, tables)

	// Without a sessions table, no Sessions are returned.
	cfg.SessionsTable = ""
	db2, sessions2, err := cfg.Open()
	require.NoError(t, err)
	require.Nil(t, sessions2)
	require.NoError(t, db2.Close())

	cfg.JournalMode = "bogus"
	_, _, err = cfg.Open()
	require.True(t, sqlite.IsKind(err, sqlite.PragmaValueNotSet))

	require.Panics(t, func() {
		DatabaseConfig{Path: cfg.Path, JournalMode: "bogus"}.MustOpen()
	})
}
