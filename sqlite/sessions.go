package sqlite

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.gazette.dev/sqlite/codecs"
	"zombiezen.com/go/sqlite"
)

// SessionsConfig configures Sessions.
type SessionsConfig struct {
	// Table is the name of the log table of persisted ChangeSets.
	// If empty, DefaultSessionsTable is used.
	Table string
	// Tables whose changes are recorded. If empty, all user tables other
	// than the log table are recorded.
	Tables []string
	// Codec with which ChangeSets are compressed in the log table.
	Codec codecs.Codec
}

// DefaultSessionsTable is the default SessionsConfig.Table.
const DefaultSessionsTable = "sessions"

// Sessions records the changes of transactions into ChangeSets, which are
// persisted into a log table and may be re-applied or reverted.
//
// At most one session is active at a time. Sessions are usually driven by
// ImmediateSessionTransaction guards of their Database, which Create a
// session when they begin and Commit or Rollback it when they end.
type Sessions struct {
	db      *Database
	cfg     SessionsConfig
	session *sqlite.Session
}

// NewSessions returns Sessions of the Database, which are attached to it
// for use by its session transactions.
func NewSessions(db *Database, cfg SessionsConfig) (*Sessions, error) {
	if cfg.Table == "" {
		cfg.Table = DefaultSessionsTable
	}
	if err := cfg.Codec.Validate(); err != nil {
		return nil, errors.WithMessage(err, "SessionsConfig.Codec")
	}
	var s = &Sessions{db: db, cfg: cfg}
	db.sessions = s
	return s, nil
}

// Table returns the name of the ChangeSet log table.
func (s *Sessions) Table() string { return s.cfg.Table }

// CreateSessionTable creates the ChangeSet log table, if it doesn't exist.
func (s *Sessions) CreateSessionTable() error {
	var t = &Table{Name: s.cfg.Table, IfNotExists: true}
	t.AddColumn("id", ColumnInteger, PrimaryKey{})
	t.AddColumn("changeset", ColumnBlob, NotNull{})
	t.AddColumn("codec", ColumnInteger, NotNull{}, DefaultValue{Value: IntegerValue(0)})

	return t.Initialize(s.db)
}

// Create a session which records changes of the configured tables.
func (s *Sessions) Create() error {
	if s.db.conn == nil {
		return newError(DatabaseIsNotOpen, 0, "database is not open")
	} else if s.session != nil {
		return newError(ChangeSetIsMisused, codeMisuse, "a session is already active")
	}
	var tables = s.cfg.Tables
	if len(tables) == 0 {
		var all, err = s.db.TableNames()
		if err != nil {
			return err
		}
		for _, t := range all {
			if t != s.cfg.Table {
				tables = append(tables, t)
			}
		}
	}

	var session, err = s.db.conn.CreateSession("")
	if err != nil {
		return sessionError(err)
	}
	for _, t := range tables {
		if err = session.Attach(t); err != nil {
			session.Delete()
			return sessionError(err)
		}
	}
	s.session = session
	return nil
}

// IsActive is true if a session is recording.
func (s *Sessions) IsActive() bool { return s.session != nil }

// Commit the active session. If it recorded changes, they're persisted as a
// new ChangeSet of the log table. A session without changes persists nothing.
// The session is released in either case.
func (s *Sessions) Commit() error {
	if s.session == nil {
		return newError(ChangeSetIsMisused, codeMisuse, "no session is active")
	}
	defer s.release()

	var buf bytes.Buffer
	if err := s.session.WriteChangeset(&buf); err != nil {
		return sessionError(err)
	} else if buf.Len() == 0 {
		return nil
	}
	changeSetBytes.Observe(float64(buf.Len()))

	var enc, err = codecs.Encode(buf.Bytes(), s.cfg.Codec)
	if err != nil {
		return errors.WithMessage(err, "compressing changeset")
	}
	insert, err := s.db.prepare(fmt.Sprintf("INSERT INTO %s(changeset, codec) VALUES (?, ?)", s.cfg.Table),
		callerLocation(1), true)
	if err != nil {
		return err
	}
	defer insert.Close()

	if err = insert.BindValues(enc, int64(s.cfg.Codec)); err != nil {
		return err
	}
	return insert.Execute()
}

// Rollback releases the active session without persisting it.
func (s *Sessions) Rollback() { s.release() }

func (s *Sessions) release() {
	if s.session != nil {
		s.session.Delete()
		s.session = nil
	}
}

// ChangeSets returns all persisted ChangeSets, oldest first.
func (s *Sessions) ChangeSets() ([]ChangeSet, error) {
	var q, err = s.db.prepare(fmt.Sprintf("SELECT id, changeset, codec FROM %s ORDER BY id", s.cfg.Table),
		callerLocation(1), true)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	var out []ChangeSet
	for {
		if row, err := q.Next(); err != nil {
			return nil, err
		} else if !row {
			return out, nil
		}
		var stored = q.FetchBlob(1)
		var codec = codecs.Codec(q.FetchInt64(2))

		data, err := codecs.Decode(stored, codec)
		if err != nil {
			return nil, errors.WithMessagef(err, "decompressing changeset %d", q.FetchInt64(0))
		}
		out = append(out, ChangeSet{ID: q.FetchInt64(0), StoredSize: len(stored), data: data})
	}
}

// DeleteAll deletes all persisted ChangeSets.
func (s *Sessions) DeleteAll() error {
	var del, err = s.db.prepare("DELETE FROM "+s.cfg.Table, callerLocation(1), true)
	if err != nil {
		return err
	}
	defer del.Close()

	return del.Execute()
}

// Apply re-applies all persisted ChangeSets, oldest first.
func (s *Sessions) Apply() error { return s.replay(false) }

// Revert applies the inverse of all persisted ChangeSets, newest first,
// undoing their changes.
func (s *Sessions) Revert() error { return s.replay(true) }

// ApplyAndUpdateSessions creates a session, re-applies all persisted
// ChangeSets, deletes them, and commits the session: the log table is left
// holding a single ChangeSet of the applied changes, if there were any.
func (s *Sessions) ApplyAndUpdateSessions() error {
	if err := s.Create(); err != nil {
		return err
	} else if err = s.Apply(); err != nil {
		s.Rollback()
		return err
	} else if err = s.DeleteAll(); err != nil {
		s.Rollback()
		return err
	}
	return s.Commit()
}

func (s *Sessions) replay(invert bool) error {
	var changeSets, err = s.ChangeSets()
	if err != nil {
		return err
	}
	var direction = "apply"
	if invert {
		direction = "revert"
		slices.Reverse(changeSets)
	}

	for _, cs := range changeSets {
		if err = s.ApplyChangeSet(cs, invert); err != nil {
			return errors.WithMessagef(err, "%s changeset %d", direction, cs.ID)
		}
		changeSetsAppliedTotal.WithLabelValues(direction).Inc()
	}

	log.WithFields(log.Fields{
		"path":       s.db.path,
		"direction":  direction,
		"changeSets": len(changeSets),
	}).Debug("replayed changesets")

	return nil
}

// ApplyChangeSet applies |cs| to the Database, or its inverse if |invert|.
// Changes to the log table are skipped. Conflicts are resolved with a
// fixed policy: conflicting data and rows are replaced, and changes of rows
// which are not found or which violate constraints are omitted.
func (s *Sessions) ApplyChangeSet(cs ChangeSet, invert bool) error {
	var filter = func(table string) bool { return table != s.cfg.Table }

	if invert {
		// Inversion is materialized first: the connection's streaming
		// inverse-apply reads from its own output and never returns.
		var err error
		if cs, err = cs.Invert(); err != nil {
			return err
		}
	}
	if err := s.db.conn.ApplyChangeset(bytes.NewReader(cs.data), filter, resolveConflict); err != nil {
		return sessionError(err)
	}
	return nil
}

func resolveConflict(ct sqlite.ConflictType, _ *sqlite.ChangesetIterator) sqlite.ConflictAction {
	switch ct {
	case sqlite.ChangesetData, sqlite.ChangesetConflict:
		return sqlite.ChangesetReplace
	case sqlite.ChangesetNotFound, sqlite.ChangesetConstraint, sqlite.ChangesetForeignKey:
		return sqlite.ChangesetOmit
	}
	return sqlite.ChangesetAbort
}

// sessionError maps a failure of the session extension onto an *Error.
func sessionError(err error) *Error {
	var code = int(sqlite.ErrCode(err))

	switch code & 0xff {
	case codeSchema:
		return newError(CannotApplyChangeSet, code, nativeMessage(err))
	case codeMisuse:
		return newError(ChangeSetIsMisused, code, nativeMessage(err))
	}
	return newError(UnknownError, code, nativeMessage(err))
}
