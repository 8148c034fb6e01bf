package mainboilerplate

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/sqlite/codecs"
	"go.gazette.dev/sqlite/sqlite"
)

// DatabaseConfig configures the opening of a sqlite.Database, and of its
// Sessions if SessionsTable is set.
type DatabaseConfig struct {
	Path          string        `long:"path" env:"PATH" required:"true" description:"Path of the database file, or a file: URI"`
	JournalMode   string        `long:"journal-mode" env:"JOURNAL_MODE" default:"delete" choice:"delete" choice:"truncate" choice:"persist" choice:"memory" choice:"wal" description:"Journal mode of the database"`
	LockingMode   string        `long:"locking-mode" env:"LOCKING_MODE" default:"default" choice:"default" choice:"normal" choice:"exclusive" description:"Locking mode of the database"`
	BusyTimeout   time.Duration `long:"busy-timeout" env:"BUSY_TIMEOUT" default:"5s" description:"Time to wait on a contended lock before giving up. Zero waits indefinitely"`
	SharedCache   bool          `long:"shared-cache" env:"SHARED_CACHE" description:"Open the database in shared-cache mode"`
	ReadOnly      bool          `long:"read-only" env:"READ_ONLY" description:"Open the database read-only"`
	CacheSize     int           `long:"statement-cache" env:"STATEMENT_CACHE" default:"64" description:"Number of prepared statements to cache"`
	SessionsTable string        `long:"sessions-table" env:"SESSIONS_TABLE" description:"Table of recorded ChangeSets. Sessions are disabled if empty"`
	SessionsCodec codecs.Codec  `long:"sessions-codec" env:"SESSIONS_CODEC" default:"snappy" description:"Compression codec of recorded ChangeSets (none, gzip, snappy, or zstandard)"`
}

// Config returns the sqlite.Config of the DatabaseConfig.
func (cfg DatabaseConfig) Config() (sqlite.Config, error) {
	var journal, err = sqlite.ParseJournalMode(cfg.JournalMode)
	if err != nil {
		return sqlite.Config{}, err
	}
	locking, err := sqlite.ParseLockingMode(cfg.LockingMode)
	if err != nil {
		return sqlite.Config{}, err
	}
	var out = sqlite.Config{
		JournalMode:        journal,
		LockingMode:        locking,
		BusyTimeout:        cfg.BusyTimeout,
		SharedCache:        cfg.SharedCache,
		ReadOnly:           cfg.ReadOnly,
		StatementCacheSize: cfg.CacheSize,
	}
	return out, out.Validate()
}

// Open the configured Database. Sessions are returned only if a
// SessionsTable is configured, and their log table is created if the
// Database is writable.
func (cfg DatabaseConfig) Open() (*sqlite.Database, *sqlite.Sessions, error) {
	var dbCfg, err = cfg.Config()
	if err != nil {
		return nil, nil, errors.WithMessage(err, "DatabaseConfig")
	}
	db, err := sqlite.Open(cfg.Path, dbCfg)
	if err != nil {
		return nil, nil, errors.WithMessagef(err, "opening %s", cfg.Path)
	}
	if cfg.SessionsTable == "" {
		return db, nil, nil
	}

	sessions, err := sqlite.NewSessions(db, sqlite.SessionsConfig{
		Table: cfg.SessionsTable,
		Codec: cfg.SessionsCodec,
	})
	if err == nil && !cfg.ReadOnly {
		err = sessions.CreateSessionTable()
	}
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return db, sessions, nil
}

// MustOpen opens the configured Database, and panics on error.
func (cfg DatabaseConfig) MustOpen() (*sqlite.Database, *sqlite.Sessions) {
	var db, sessions, err = cfg.Open()
	Must(err, "failed to open database", "path", cfg.Path)

	log.WithFields(log.Fields{
		"path":     cfg.Path,
		"journal":  cfg.JournalMode,
		"locking":  cfg.LockingMode,
		"sessions": cfg.SessionsTable,
	}).Debug("opened database")

	return db, sessions
}
