package sqlite

import (
	"fmt"
)

// ReadStatement is a Statement which doesn't modify the database, having a
// fixed number of result columns and bound parameters. Rows are read with
// QueryValue, QueryOptionalValue, QueryValues, ReadCallback and QueryRange.
type ReadStatement struct{ stmt *Statement }

// WriteStatement is a Statement which modifies the database and returns no
// rows, having a fixed number of bound parameters.
type WriteStatement struct{ stmt *Statement }

// ReadWriteStatement is a Statement which may both modify the database and
// return rows, such as INSERT ... RETURNING. It's read with the same helpers
// as ReadStatement.
type ReadWriteStatement struct{ stmt *Statement }

// Query is a Statement from which rows are read.
// It's implemented by *ReadStatement and *ReadWriteStatement.
type Query interface {
	query() *Statement
}

// NewReadStatement prepares a ReadStatement of |sql|, verifying it has
// |resultCount| result columns and |bindCount| parameters, and that it
// doesn't modify the database.
func NewReadStatement(db *Database, sql string, resultCount, bindCount int) (*ReadStatement, error) {
	var s, err = prepareChecked(db, sql, callerLocation(1), resultCount, bindCount)
	if err != nil {
		return nil, err
	}
	if writes, err := s.writes(); err != nil {
		_ = s.Close()
		return nil, err
	} else if writes {
		_ = s.Close()
		return nil, s.wrap(newError(NotReadOnlySqlStatement, 0, "statement modifies the database"))
	}
	return &ReadStatement{stmt: s}, nil
}

// NewWriteStatement prepares a WriteStatement of |sql|, verifying it has
// |bindCount| parameters, no result columns, and that it modifies the database.
func NewWriteStatement(db *Database, sql string, bindCount int) (*WriteStatement, error) {
	var s, err = prepareChecked(db, sql, callerLocation(1), 0, bindCount)
	if err != nil {
		return nil, err
	}
	if writes, err := s.writes(); err != nil {
		_ = s.Close()
		return nil, err
	} else if !writes {
		_ = s.Close()
		return nil, s.wrap(newError(NotWriteSqlStatement, 0, "statement doesn't modify the database"))
	}
	return &WriteStatement{stmt: s}, nil
}

// NewReadWriteStatement prepares a ReadWriteStatement of |sql|, verifying
// it has |resultCount| result columns and |bindCount| parameters.
func NewReadWriteStatement(db *Database, sql string, resultCount, bindCount int) (*ReadWriteStatement, error) {
	var s, err = prepareChecked(db, sql, callerLocation(1), resultCount, bindCount)
	if err != nil {
		return nil, err
	}
	return &ReadWriteStatement{stmt: s}, nil
}

func prepareChecked(db *Database, sql, location string, resultCount, bindCount int) (*Statement, error) {
	var s, err = db.prepare(sql, location, false)
	if err != nil {
		return nil, err
	}
	if s.columns != resultCount {
		_ = s.Close()
		return nil, s.wrap(newError(WrongColumnCount, 0,
			fmt.Sprintf("statement has %d result columns, not %d", s.columns, resultCount)))
	} else if s.params != bindCount {
		_ = s.Close()
		return nil, s.wrap(newError(WrongBindingParameterCount, 0,
			fmt.Sprintf("statement has %d parameters, not %d", s.params, bindCount)))
	}
	return s, nil
}

// writes determines whether the Statement modifies the database, by
// inspecting its compiled program for a Transaction opcode which opens a
// write transaction (having a non-zero P2 operand).
func (s *Statement) writes() (bool, error) {
	var explain, err = s.db.prepare("EXPLAIN "+s.sql, s.location, true)
	if err != nil {
		return false, err
	}
	defer explain.Close()

	for {
		if row, err := explain.Next(); err != nil {
			return false, err
		} else if !row {
			return false, nil
		} else if explain.FetchText(explainOpcode) == "Transaction" && explain.FetchInt64(explainP2) != 0 {
			return true, nil
		}
	}
}

// Columns of an EXPLAIN listing.
const (
	explainOpcode = 1
	explainP2     = 3
)

// Statement returns the underlying Statement.
func (r *ReadStatement) Statement() *Statement { return r.stmt }

// Close the ReadStatement.
func (r *ReadStatement) Close() error { return r.stmt.Close() }

func (r *ReadStatement) query() *Statement { return r.stmt }

// Statement returns the underlying Statement.
func (w *WriteStatement) Statement() *Statement { return w.stmt }

// Close the WriteStatement.
func (w *WriteStatement) Close() error { return w.stmt.Close() }

// Write binds |args| and executes the WriteStatement.
func (w *WriteStatement) Write(args ...interface{}) error {
	if err := w.stmt.BindValues(args...); err != nil {
		w.stmt.Reset()
		return err
	}
	return w.stmt.Execute()
}

// WriteWithTransaction is Write within an immediate transaction of the
// Statement's Database, which is committed if the Write succeeds.
func (w *WriteStatement) WriteWithTransaction(args ...interface{}) error {
	return WithImmediateTransaction(w.stmt.db, func() error { return w.Write(args...) })
}

// Statement returns the underlying Statement.
func (rw *ReadWriteStatement) Statement() *Statement { return rw.stmt }

// Close the ReadWriteStatement.
func (rw *ReadWriteStatement) Close() error { return rw.stmt.Close() }

// Execute binds |args| and steps the ReadWriteStatement to completion,
// discarding any rows.
func (rw *ReadWriteStatement) Execute(args ...interface{}) error {
	if err := rw.stmt.BindValues(args...); err != nil {
		rw.stmt.Reset()
		return err
	}
	return rw.stmt.Execute()
}

func (rw *ReadWriteStatement) query() *Statement { return rw.stmt }
