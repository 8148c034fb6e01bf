package sqlite

import (
	"strings"
	"time"

	"github.com/pkg/errors"
)

// JournalMode is the engine's strategy for crash-safe writes.
// See https://www.sqlite.org/pragma.html#pragma_journal_mode.
type JournalMode int

const (
	JournalModeDelete JournalMode = iota
	JournalModeTruncate
	JournalModePersist
	JournalModeMemory
	JournalModeWal
)

var journalModeNames = []string{"delete", "truncate", "persist", "memory", "wal"}

func (m JournalMode) String() string {
	if int(m) < 0 || int(m) >= len(journalModeNames) {
		return "JournalMode(invalid)"
	}
	return journalModeNames[m]
}

// ParseJournalMode parses the case-insensitive PRAGMA name of a JournalMode.
func ParseJournalMode(s string) (JournalMode, error) {
	for i, n := range journalModeNames {
		if strings.EqualFold(n, s) {
			return JournalMode(i), nil
		}
	}
	return 0, newError(PragmaValueNotSet, 0, "unknown journal mode "+s)
}

// LockingMode is the engine's file locking mode.
// See https://www.sqlite.org/pragma.html#pragma_locking_mode.
type LockingMode int

const (
	// LockingModeDefault leaves the engine's default locking mode in place.
	LockingModeDefault LockingMode = iota
	LockingModeNormal
	LockingModeExclusive
)

var lockingModeNames = []string{"default", "normal", "exclusive"}

func (m LockingMode) String() string {
	if int(m) < 0 || int(m) >= len(lockingModeNames) {
		return "LockingMode(invalid)"
	}
	return lockingModeNames[m]
}

// ParseLockingMode parses the case-insensitive PRAGMA name of a LockingMode.
func ParseLockingMode(s string) (LockingMode, error) {
	for i, n := range lockingModeNames {
		if strings.EqualFold(n, s) {
			return LockingMode(i), nil
		}
	}
	return 0, newError(PragmaValueNotSet, 0, "unknown locking mode "+s)
}

// Config of a Database. The zero value is a usable configuration of a
// read-write database in rollback-journal ("delete") mode, which blocks on
// lock contention until interrupted.
type Config struct {
	// JournalMode applied when the Database is opened.
	JournalMode JournalMode
	// LockingMode applied when the Database is opened.
	LockingMode LockingMode
	// BusyTimeout bounds how long the engine waits on a contended lock before
	// consulting the Database's BusyHandler. Zero blocks until the lock is
	// acquired or the Database is interrupted.
	BusyTimeout time.Duration
	// SharedCache opens the connection in shared-cache mode. Table-level lock
	// contention among shared-cache connections is waited out with the
	// engine's unlock-notify primitive.
	SharedCache bool
	// ReadOnly opens the connection read-only.
	ReadOnly bool
	// AssertLocked requires that the Database be Locked while statements are
	// prepared, failing preparation with DatabaseIsNotLocked otherwise.
	AssertLocked bool
	// StatementCacheSize is the number of prepared statements retained by
	// Database.Execute. If zero, DefaultStatementCacheSize is used.
	StatementCacheSize int
}

// DefaultStatementCacheSize is the default Config.StatementCacheSize.
const DefaultStatementCacheSize = 64

// Validate returns an error if the Config is not well-formed.
func (c Config) Validate() error {
	if c.JournalMode < JournalModeDelete || c.JournalMode > JournalModeWal {
		return errors.Errorf("invalid JournalMode (%d)", c.JournalMode)
	} else if c.LockingMode < LockingModeDefault || c.LockingMode > LockingModeExclusive {
		return errors.Errorf("invalid LockingMode (%d)", c.LockingMode)
	} else if c.BusyTimeout < 0 {
		return errors.Errorf("invalid BusyTimeout (%s; expected >= 0)", c.BusyTimeout)
	} else if c.StatementCacheSize < 0 {
		return errors.Errorf("invalid StatementCacheSize (%d; expected >= 0)", c.StatementCacheSize)
	}
	return nil
}
