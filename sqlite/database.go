package sqlite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"zombiezen.com/go/sqlite"
)

// BusyHandler is consulted when a statement step or preparation fails because
// the database is busy, after the engine's own waiting (see Config.BusyTimeout)
// gave up. Steps within an explicit transaction are never retried, and surface
// StatementIsBusy instead. |attempt| is zero for the first retry. Returning
// true retries, and returning false surfaces the busy error.
type BusyHandler func(attempt int) bool

// DefaultBusyHandler sleeps briefly, backing off with |attempt|,
// and retries indefinitely.
func DefaultBusyHandler(attempt int) bool {
	var d = time.Duration(attempt+1) * 5 * time.Millisecond
	if d > maxBusyBackoff {
		d = maxBusyBackoff
	}
	time.Sleep(d)
	return true
}

// Database owns a single native SQLite connection. It's the
// TransactionInterface through which transaction guards begin, commit and
// roll back, and it serializes logical writers through an advisory lock.
//
// Statements of a Database must be used by one goroutine at a time. Callers
// wanting concurrency open several Databases against the same file.
type Database struct {
	cfg  Config
	path string
	conn *sqlite.Conn

	mu     sync.Mutex // Advisory writer lock.
	locked atomic.Bool

	busyHandler BusyHandler
	sessions    *Sessions

	stmtsMu sync.Mutex
	stmts   map[*Statement]struct{} // Live Statements, finalized on Close.
	cache   *lru.Cache              // SQL text => *Statement, of Execute.

	beginDeferred  *Statement
	beginImmediate *Statement
	beginExclusive *Statement
	commit         *Statement
	rollback       *Statement
}

// NewDatabase returns a Database with the Config, which must be Opened before use.
func NewDatabase(cfg Config) *Database {
	return &Database{
		cfg:         cfg,
		busyHandler: DefaultBusyHandler,
		stmts:       make(map[*Statement]struct{}),
	}
}

// Open a Database at |path| with the Config. |path| may be a file path,
// ":memory:", or a "file:" URI.
func Open(path string, cfg Config) (*Database, error) {
	var db = NewDatabase(cfg)
	if err := db.Open(path); err != nil {
		return nil, err
	}
	return db, nil
}

// Open the Database at |path|.
func (db *Database) Open(path string) error {
	if db.conn != nil {
		return newError(DatabaseIsAlreadyOpen, 0, "database "+db.path+" is already open")
	} else if path == "" {
		return newError(DatabaseFilePathIsEmpty, 0, "database path is empty")
	} else if err := db.cfg.Validate(); err != nil {
		return errors.WithMessage(err, "Config.Validate")
	}

	if !isMemoryPath(path) && !strings.HasPrefix(path, "file:") {
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			return newError(WrongFilePath, 0, fmt.Sprintf("directory of %s: %s", path, err))
		}
	}

	var flags = sqlite.OpenReadWrite | sqlite.OpenCreate | sqlite.OpenURI | sqlite.OpenNoMutex
	if db.cfg.ReadOnly {
		flags = sqlite.OpenReadOnly | sqlite.OpenURI | sqlite.OpenNoMutex
	}
	if db.cfg.SharedCache {
		flags |= sqlite.OpenSharedCache
	}

	var conn, err = sqlite.OpenConn(path, flags)
	if err != nil {
		var e = errorFromNative(err)
		e.Message = path + ": " + e.Message
		return e
	}
	db.conn, db.path = conn, path

	if db.cfg.BusyTimeout != 0 {
		conn.SetBusyTimeout(db.cfg.BusyTimeout)
	} else {
		conn.SetBlockOnBusy()
	}

	if err = db.initialize(); err != nil {
		db.closeConn()
		return err
	}

	log.WithFields(log.Fields{
		"path":        path,
		"journalMode": db.cfg.JournalMode,
		"lockingMode": db.cfg.LockingMode,
		"sharedCache": db.cfg.SharedCache,
		"readOnly":    db.cfg.ReadOnly,
	}).Info("opened database")

	return nil
}

func (db *Database) initialize() error {
	var size = db.cfg.StatementCacheSize
	if size == 0 {
		size = DefaultStatementCacheSize
	}
	var err error
	if db.cache, err = lru.NewWithEvict(size, func(_, value interface{}) {
		_ = value.(*Statement).Close()
	}); err != nil {
		return errors.WithMessage(err, "building statement cache")
	}

	for _, s := range []struct {
		stmt **Statement
		sql  string
	}{
		{&db.beginDeferred, "BEGIN"},
		{&db.beginImmediate, "BEGIN IMMEDIATE"},
		{&db.beginExclusive, "BEGIN EXCLUSIVE"},
		{&db.commit, "COMMIT"},
		{&db.rollback, "ROLLBACK"},
	} {
		if *s.stmt, err = db.prepare(s.sql, callerLocation(1), true); err != nil {
			return err
		}
	}

	if !db.cfg.ReadOnly && !isMemoryPath(db.path) {
		if err = db.setPragma("journal_mode", db.cfg.JournalMode.String(), true); err != nil {
			return err
		}
	}
	if db.cfg.LockingMode != LockingModeDefault {
		if err = db.setPragma("locking_mode", db.cfg.LockingMode.String(), true); err != nil {
			return err
		}
	}
	return nil
}

// Close the Database, finalizing every Statement which remains open and
// releasing an active Session of its Sessions.
func (db *Database) Close() error {
	if db.conn == nil {
		return newError(DatabaseIsAlreadyClosed, 0, "database is already closed")
	}
	if db.sessions != nil {
		db.sessions.release()
	}
	var err = db.closeConn()

	log.WithFields(log.Fields{"path": db.path, "err": err}).Info("closed database")
	return err
}

func (db *Database) closeConn() error {
	if db.cache != nil {
		db.cache.Purge()
	}
	db.stmtsMu.Lock()
	var live = make([]*Statement, 0, len(db.stmts))
	for s := range db.stmts {
		live = append(live, s)
	}
	db.stmtsMu.Unlock()

	for _, s := range live {
		if err := s.Close(); err != nil {
			log.WithFields(log.Fields{
				"sql":      s.sql,
				"location": s.location,
				"err":      err,
			}).Warn("failed to finalize statement")
		}
	}

	var err = db.conn.Close()
	db.conn = nil

	if err != nil {
		return errorFromNative(err)
	}
	return nil
}

// IsOpen is true if the Database is open.
func (db *Database) IsOpen() bool { return db.conn != nil }

// Path of the Database, as provided to Open.
func (db *Database) Path() string { return db.path }

// Config of the Database.
func (db *Database) Config() Config { return db.cfg }

// Lock the advisory writer lock of the Database.
// The lock is not reentrant.
func (db *Database) Lock() {
	db.mu.Lock()
	db.locked.Store(true)
}

// Unlock the advisory writer lock of the Database.
func (db *Database) Unlock() {
	db.locked.Store(false)
	db.mu.Unlock()
}

// IsLocked is true if the advisory writer lock is held.
func (db *Database) IsLocked() bool { return db.locked.Load() }

// SetBusyHandler installs the BusyHandler of the Database.
// A nil |h| restores DefaultBusyHandler.
func (db *Database) SetBusyHandler(h BusyHandler) {
	if h == nil {
		h = DefaultBusyHandler
	}
	db.busyHandler = h
}

// SetInterrupt installs a channel which, when closed, interrupts statements
// in flight or subsequently stepped, failing them with ExecutionInterrupted.
// It returns the previously installed channel. A nil |done| removes the
// interrupt.
func (db *Database) SetInterrupt(done <-chan struct{}) <-chan struct{} {
	if db.conn == nil {
		return nil
	}
	return db.conn.SetInterrupt(done)
}

// Execute a single SQL statement to completion. Prepared statements of
// Execute are retained in an LRU cache keyed on |sql|.
func (db *Database) Execute(sql string) error {
	var stmt, err = db.cachedStatement(sql, callerLocation(1))
	if err != nil {
		return err
	}
	return stmt.Execute()
}

func (db *Database) cachedStatement(sql, location string) (*Statement, error) {
	if db.conn == nil {
		return nil, newError(DatabaseIsNotOpen, 0, "database is not open")
	}
	if v, ok := db.cache.Get(sql); ok {
		statementCacheHitsTotal.Inc()
		return v.(*Statement), nil
	}
	var stmt, err = db.prepare(sql, location, false)
	if err != nil {
		return nil, err
	}
	db.cache.Add(sql, stmt)
	return stmt, nil
}

// ExecuteScript executes each of the semicolon-separated statements of |sql|
// in order, stopping at the first which fails.
func (db *Database) ExecuteScript(sql string) error {
	if db.conn == nil {
		return newError(DatabaseIsNotOpen, 0, "database is not open")
	} else if err := db.checkLocked(); err != nil {
		return err
	}
	var location = callerLocation(1)

	for rest := strings.TrimSpace(sql); rest != ""; {
		var stmt, trailing, err = db.prepareNative(rest)
		if err != nil {
			return withStatementContext(err, rest, location)
		}
		var text = rest[:len(rest)-trailing]

		if stmt != nil {
			statementsPreparedTotal.Inc()
			for {
				var row, err = db.step(stmt)
				if err != nil {
					_ = stmt.Finalize()
					return withStatementContext(err, strings.TrimSpace(text), location)
				} else if !row {
					break
				}
			}
			if ferr := stmt.Finalize(); ferr != nil {
				return withStatementContext(errorFromNative(ferr), strings.TrimSpace(text), location)
			}
		}
		if trailing >= len(rest) {
			break
		}
		rest = strings.TrimSpace(rest[len(rest)-trailing:])
	}
	return nil
}

// LastInsertedRowID returns the rowid of the most recent successful INSERT.
func (db *Database) LastInsertedRowID() int64 { return db.conn.LastInsertRowID() }

// ChangesCount returns the number of rows modified by the most recently
// completed INSERT, UPDATE or DELETE.
func (db *Database) ChangesCount() int { return db.conn.Changes() }

// TotalChangesCount returns the number of rows modified since the Database was opened.
func (db *Database) TotalChangesCount() (int64, error) {
	var s, err = db.prepare("SELECT total_changes()", callerLocation(1), true)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	if _, err = s.Next(); err != nil {
		return 0, err
	}
	return s.FetchInt64(0), nil
}

// TableNames returns the names of user tables of the main database, in sorted order.
func (db *Database) TableNames() ([]string, error) {
	var s, err = db.prepare(`SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`, callerLocation(1), true)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	var out []string
	for {
		var row, err = s.Next()
		if err != nil {
			return nil, err
		} else if !row {
			return out, nil
		}
		out = append(out, s.FetchText(0))
	}
}

// PragmaValue returns the value of PRAGMA |name|.
func (db *Database) PragmaValue(name string) (string, error) {
	return db.pragma(name, false)
}

// SetPragmaValue sets PRAGMA |name| to |value|, and verifies the PRAGMA
// reads back as |value|. If not, PragmaValueNotSet is returned.
func (db *Database) SetPragmaValue(name, value string) error {
	return db.setPragma(name, value, false)
}

func (db *Database) pragma(name string, internal bool) (string, error) {
	return db.queryText("PRAGMA "+name, callerLocation(2), internal)
}

// queryText returns the first column of the first row of |sql| as text,
// or empty if there are no rows.
func (db *Database) queryText(sql, location string, internal bool) (string, error) {
	var s, err = db.prepare(sql, location, internal)
	if err != nil {
		return "", err
	}
	defer s.Close()

	if row, err := s.Next(); err != nil {
		return "", err
	} else if !row {
		return "", nil
	}
	return s.FetchText(0), nil
}

func (db *Database) setPragma(name, value string, internal bool) error {
	var s, err = db.prepare(fmt.Sprintf("PRAGMA %s = '%s'", name, strings.ReplaceAll(value, "'", "''")),
		callerLocation(2), internal)
	if err != nil {
		return err
	}
	err = s.Execute()
	_ = s.Close()

	if err != nil {
		return err
	}
	if got, err := db.pragma(name, internal); err != nil {
		return err
	} else if !strings.EqualFold(got, value) {
		return newError(PragmaValueNotSet, 0,
			fmt.Sprintf("PRAGMA %s is %q after setting %q", name, got, value))
	}

	log.WithFields(log.Fields{"path": db.path, "pragma": name, "value": value}).Debug("set pragma")
	return nil
}

// SetJournalMode sets the JournalMode of the Database.
func (db *Database) SetJournalMode(m JournalMode) error {
	return db.SetPragmaValue("journal_mode", m.String())
}

// JournalMode returns the current JournalMode of the Database.
func (db *Database) JournalMode() (JournalMode, error) {
	var v, err = db.PragmaValue("journal_mode")
	if err != nil {
		return 0, err
	}
	return ParseJournalMode(v)
}

// SetLockingMode sets the LockingMode of the Database.
// LockingModeDefault is set as LockingModeNormal.
func (db *Database) SetLockingMode(m LockingMode) error {
	if m == LockingModeDefault {
		m = LockingModeNormal
	}
	return db.SetPragmaValue("locking_mode", m.String())
}

// LockingMode returns the current LockingMode of the Database.
func (db *Database) LockingMode() (LockingMode, error) {
	var v, err = db.PragmaValue("locking_mode")
	if err != nil {
		return 0, err
	}
	return ParseLockingMode(v)
}

// WalCheckpointFull runs a FULL checkpoint of the write-ahead log. It fails
// with DatabaseIsBusy if the checkpoint couldn't complete.
func (db *Database) WalCheckpointFull() error {
	var s, err = db.prepare("PRAGMA wal_checkpoint(FULL)", callerLocation(1), false)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err = s.Next(); err != nil {
		return err
	} else if s.FetchInt64(0) != 0 {
		return newError(DatabaseIsBusy, codeBusy, "wal checkpoint was blocked by a reader or writer")
	}
	return nil
}

// DeferredBegin begins a deferred transaction.
func (db *Database) DeferredBegin() error { return db.execInternal(db.beginDeferred) }

// ImmediateBegin begins an immediate transaction.
func (db *Database) ImmediateBegin() error { return db.execInternal(db.beginImmediate) }

// ExclusiveBegin begins an exclusive transaction.
func (db *Database) ExclusiveBegin() error { return db.execInternal(db.beginExclusive) }

// Commit the current transaction.
func (db *Database) Commit() error { return db.execInternal(db.commit) }

// Rollback the current transaction. Rollback is a no-op if the engine
// already rolled the transaction back, and isn't prevented by an interrupt.
func (db *Database) Rollback() error {
	if db.conn == nil {
		return newError(DatabaseIsNotOpen, 0, "database is not open")
	} else if db.conn.AutocommitEnabled() {
		return nil // Nothing to roll back.
	}
	var prev = db.conn.SetInterrupt(nil)
	defer db.conn.SetInterrupt(prev)

	return db.execInternal(db.rollback)
}

// ImmediateSessionBegin begins an immediate transaction and creates a
// session of the Database's Sessions, recording the transaction's changes.
func (db *Database) ImmediateSessionBegin() error {
	if db.sessions == nil {
		return newError(ChangeSetIsMisused, 0, "no Sessions are attached to the database")
	} else if err := db.ImmediateBegin(); err != nil {
		return err
	} else if err = db.sessions.Create(); err != nil {
		_ = db.Rollback()
		return err
	}
	return nil
}

// SessionCommit persists the recorded session and commits the transaction.
func (db *Database) SessionCommit() error {
	if db.sessions == nil {
		return newError(ChangeSetIsMisused, 0, "no Sessions are attached to the database")
	} else if err := db.sessions.Commit(); err != nil {
		return err
	}
	return db.Commit()
}

// SessionRollback discards the recorded session and rolls back the transaction.
func (db *Database) SessionRollback() error {
	if db.sessions != nil {
		db.sessions.Rollback()
	}
	return db.Rollback()
}

func (db *Database) execInternal(s *Statement) error {
	if db.conn == nil {
		return newError(DatabaseIsNotOpen, 0, "database is not open")
	}
	return s.Execute()
}

// step the native statement, consulting the BusyHandler while the database
// is busy. Only statements outside of an explicit transaction are retried:
// within one, the connection may hold locks its contender waits on, and the
// engine reports BUSY without waiting exactly when waiting could deadlock.
func (db *Database) step(stmt *sqlite.Stmt) (bool, *Error) {
	for attempt := 0; ; attempt++ {
		var row, err = stmt.Step()
		if err == nil {
			return row, nil
		} else if int(sqlite.ErrCode(err)) != codeBusy || !db.conn.AutocommitEnabled() || !db.busyHandler(attempt) {
			return false, errorFromNative(err)
		}

		busyRetriesTotal.Inc()
		log.WithFields(log.Fields{
			"path":    db.path,
			"attempt": attempt,
		}).Debug("database is busy (will retry)")

		_ = stmt.Reset()
	}
}

// prepareNative prepares the first statement of |sql|. Preparation reads the
// schema, and a schema which can't be read because the database is busy is
// retried as directed by the BusyHandler.
func (db *Database) prepareNative(sql string) (*sqlite.Stmt, int, *Error) {
	for attempt := 0; ; attempt++ {
		var stmt, trailing, err = db.conn.PrepareTransient(sql)
		if err == nil {
			return stmt, trailing, nil
		}

		switch int(sqlite.ErrCode(err)) & 0xff {
		case codeBusy, codeSchema:
		case codeError:
			// A busy schema read may surface as a stale-schema error,
			// such as "no such table".
			if !db.schemaIsBusy() {
				return nil, 0, errorFromNative(err)
			}
		default:
			return nil, 0, errorFromNative(err)
		}

		if !db.busyHandler(attempt) {
			return nil, 0, newError(DatabaseIsBusy, codeBusy,
				"database is busy and its schema could not be read: "+nativeMessage(err))
		}
		busyRetriesTotal.Inc()
		log.WithFields(log.Fields{
			"path":    db.path,
			"attempt": attempt,
			"err":     nativeMessage(err),
		}).Debug("database schema is busy (will retry)")
	}
}

// schemaIsBusy returns whether reading the schema cookie fails because the
// database is busy.
func (db *Database) schemaIsBusy() bool {
	var stmt, _, err = db.conn.PrepareTransient("PRAGMA schema_version")
	if err != nil {
		return int(sqlite.ErrCode(err))&0xff == codeBusy
	}
	defer func() { _ = stmt.Finalize() }()

	_, err = stmt.Step()
	return err != nil && int(sqlite.ErrCode(err))&0xff == codeBusy
}

func (db *Database) checkLocked() error {
	if db.cfg.AssertLocked && !db.IsLocked() {
		return newError(DatabaseIsNotLocked, 0, "database must be locked to prepare statements")
	}
	return nil
}

func (db *Database) track(s *Statement) {
	db.stmtsMu.Lock()
	db.stmts[s] = struct{}{}
	db.stmtsMu.Unlock()
}

func (db *Database) untrack(s *Statement) {
	db.stmtsMu.Lock()
	delete(db.stmts, s)
	db.stmtsMu.Unlock()
}

func isMemoryPath(path string) bool {
	return path == ":memory:" ||
		strings.HasPrefix(path, "file::memory:") ||
		strings.Contains(path, "mode=memory")
}

const maxBusyBackoff = 100 * time.Millisecond
