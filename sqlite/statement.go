package sqlite

import (
	"fmt"
	"math"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"zombiezen.com/go/sqlite"
)

// Statement owns one prepared native statement of a Database. It binds
// parameters (with 1-based indices), steps through result rows, and fetches
// typed columns (with 0-based indices) of the current row.
//
// A Statement is used by one goroutine at a time. Its lifecycle is
// Prepare, then any number of (bind, Next until exhausted, Reset) cycles,
// then Close. Fetches and column types of a closed Statement are zero values,
// and its Next fails with StatementIsMisused.
type Statement struct {
	db       *Database
	stmt     *sqlite.Stmt
	sql      string
	location string
	columns  int
	params   int
	// High-water mark of rows returned by QueryValues.
	maxRows int
}

// Prepare a Statement of |sql|, which must be a single SQL statement.
// If Config.AssertLocked is set, the Database must be Locked.
func (db *Database) Prepare(sql string) (*Statement, error) {
	return db.prepare(sql, callerLocation(1), false)
}

func (db *Database) prepare(sql, location string, internal bool) (*Statement, error) {
	if db.conn == nil {
		return nil, withStatementContext(newError(DatabaseIsNotOpen, 0, "database is not open"), sql, location)
	} else if !internal {
		if err := db.checkLocked(); err != nil {
			return nil, withStatementContext(err.(*Error), sql, location)
		}
	}

	// Shared-cache lock contention is waited out by the engine through
	// unlock-notify; a LOCKED result which still surfaces cannot progress.
	var stmt, trailing, err = db.prepareNative(sql)
	if err != nil {
		return nil, withStatementContext(err, sql, location)
	} else if stmt == nil {
		return nil, withStatementContext(newError(StatementIsMisused, 0, "sql has no statement"), sql, location)
	} else if tail := strings.TrimSpace(sql[len(sql)-trailing:]); strings.Trim(tail, ";") != "" {
		_ = stmt.Finalize()
		return nil, withStatementContext(newError(StatementIsMisused, 0,
			"sql has more than one statement (remainder "+strconv.Quote(tail)+")"), sql, location)
	}
	statementsPreparedTotal.Inc()

	var s = &Statement{
		db:       db,
		stmt:     stmt,
		sql:      sql,
		location: location,
		columns:  stmt.ColumnCount(),
		params:   stmt.BindParamCount(),
	}
	db.track(s)
	return s, nil
}

// SQL text of the Statement.
func (s *Statement) SQL() string { return s.sql }

// Location ("file:line") at which the Statement was prepared.
func (s *Statement) Location() string { return s.location }

// ColumnCount returns the number of result columns of the Statement.
func (s *Statement) ColumnCount() int { return s.columns }

// BindParameterCount returns the number of bound parameters of the Statement.
func (s *Statement) BindParameterCount() int { return s.params }

// Close finalizes the Statement. Close of a closed Statement is a no-op.
func (s *Statement) Close() error {
	if s.stmt == nil {
		return nil
	}
	var err = s.stmt.Finalize()
	s.stmt = nil
	s.db.untrack(s)

	if err != nil {
		return s.wrap(errorFromNative(err))
	}
	return nil
}

// Reset the Statement to its pre-execution state and clear its bindings.
// Reset never fails: errors of the prior step were already returned by Next.
func (s *Statement) Reset() {
	if s.stmt == nil {
		return
	}
	_ = s.stmt.Reset()
	_ = s.stmt.ClearBindings()
}

// Next steps the Statement, returning true if a row is available and false
// if the Statement is exhausted. Busy databases are retried as directed by
// the Database's BusyHandler.
func (s *Statement) Next() (bool, error) {
	if s.stmt == nil {
		return false, s.misused("statement is closed")
	}
	var row, err = s.db.step(s.stmt)
	if err != nil {
		return false, s.wrap(err)
	}
	return row, nil
}

// Execute steps the Statement to completion, and then Resets it.
func (s *Statement) Execute() error {
	defer s.Reset()

	for {
		if row, err := s.Next(); err != nil {
			return err
		} else if !row {
			return nil
		}
	}
}

// BindNull binds NULL to parameter |index|.
func (s *Statement) BindNull(index int) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.stmt.BindNull(index)
	return nil
}

// BindInt32 binds |v| to parameter |index|.
func (s *Statement) BindInt32(index int, v int32) error { return s.BindInt64(index, int64(v)) }

// BindInt64 binds |v| to parameter |index|.
func (s *Statement) BindInt64(index int, v int64) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.stmt.BindInt64(index, v)
	return nil
}

// BindFloat binds |v| to parameter |index|.
func (s *Statement) BindFloat(index int, v float64) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.stmt.BindFloat(index, v)
	return nil
}

// BindText binds |v| to parameter |index|.
func (s *Statement) BindText(index int, v string) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.stmt.BindText(index, v)
	return nil
}

// BindBlob binds |v| to parameter |index|. A nil |v| binds an empty blob.
func (s *Statement) BindBlob(index int, v []byte) error {
	if err := s.checkIndex(index); err != nil {
		return err
	}
	s.stmt.BindBytes(index, v)
	return nil
}

// BindValue binds |v| to parameter |index|.
func (s *Statement) BindValue(index int, v Value) error { return s.BindValueView(index, v.View()) }

// BindValueView binds |v| to parameter |index|.
func (s *Statement) BindValueView(index int, v ValueView) error {
	switch v.typ {
	case IntegerType:
		return s.BindInt64(index, v.i)
	case FloatType:
		return s.BindFloat(index, v.f)
	case StringType:
		return s.BindText(index, v.s)
	case BlobType:
		return s.BindBlob(index, v.b)
	}
	return s.BindNull(index)
}

// BindID binds |id| to parameter |index|. Invalid IDs bind as NULL.
func (s *Statement) BindID(index int, id interface {
	IsValid() bool
	Int64() int64
}) error {
	if !id.IsValid() {
		return s.BindNull(index)
	}
	return s.BindInt64(index, id.Int64())
}

// Bind |v| to parameter |index|, dispatching on its dynamic type. Supported
// are nil, Value, ValueView, IDs, booleans, integer and float kinds
// (including named enum types), strings, []byte, and pointers to any of
// these (where a nil pointer binds NULL).
func (s *Statement) Bind(index int, v interface{}) error {
	switch vv := v.(type) {
	case nil:
		return s.BindNull(index)
	case Value:
		return s.BindValue(index, vv)
	case ValueView:
		return s.BindValueView(index, vv)
	case identifier:
		return s.BindID(index, vv)
	case []byte:
		return s.BindBlob(index, vv)
	}

	var rv = reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		if rv.Bool() {
			return s.BindInt64(index, 1)
		}
		return s.BindInt64(index, 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return s.BindInt64(index, rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if u := rv.Uint(); u > math.MaxInt64 {
			return s.wrap(newError(CannotConvert, 0, fmt.Sprintf("parameter %d: %d overflows int64", index, u)))
		} else {
			return s.BindInt64(index, int64(u))
		}
	case reflect.Float32, reflect.Float64:
		return s.BindFloat(index, rv.Float())
	case reflect.String:
		return s.BindText(index, rv.String())
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return s.BindBlob(index, rv.Bytes())
		}
	case reflect.Pointer:
		if rv.IsNil() {
			return s.BindNull(index)
		}
		return s.Bind(index, rv.Elem().Interface())
	}
	return s.wrap(newError(CannotConvert, 0, fmt.Sprintf("parameter %d: cannot bind %T", index, v)))
}

// BindValues binds |args| to parameters 1 through len(|args|), which must
// equal the Statement's BindParameterCount.
func (s *Statement) BindValues(args ...interface{}) error {
	if len(args) != s.params {
		return s.wrap(newError(WrongBindingParameterCount, 0,
			fmt.Sprintf("got %d arguments but statement has %d parameters", len(args), s.params)))
	}
	for i, arg := range args {
		if err := s.Bind(i+1, arg); err != nil {
			return err
		}
	}
	return nil
}

// ColumnType returns the ValueType of column |col| of the current row.
func (s *Statement) ColumnType(col int) ValueType {
	if s.stmt == nil {
		return NullType
	}
	switch s.stmt.ColumnType(col) {
	case sqlite.TypeInteger:
		return IntegerType
	case sqlite.TypeFloat:
		return FloatType
	case sqlite.TypeText:
		return StringType
	case sqlite.TypeBlob:
		return BlobType
	}
	return NullType
}

// ColumnName returns the name of result column |col|.
func (s *Statement) ColumnName(col int) string {
	if s.stmt == nil {
		return ""
	}
	return s.stmt.ColumnName(col)
}

// ColumnNames returns the names of all result columns.
func (s *Statement) ColumnNames() []string {
	var out = make([]string, s.columns)
	for i := range out {
		out[i] = s.ColumnName(i)
	}
	return out
}

// FetchInt64 returns column |col| of the current row as an integer.
func (s *Statement) FetchInt64(col int) int64 {
	if s.stmt == nil {
		return 0
	}
	return s.stmt.ColumnInt64(col)
}

// FetchInt returns column |col| of the current row as an int.
func (s *Statement) FetchInt(col int) int { return int(s.FetchInt64(col)) }

// FetchFloat returns column |col| of the current row as a float.
func (s *Statement) FetchFloat(col int) float64 {
	if s.stmt == nil {
		return 0
	}
	return s.stmt.ColumnFloat(col)
}

// FetchText returns column |col| of the current row as text.
// The text of a BLOB column is empty.
func (s *Statement) FetchText(col int) string {
	if s.stmt == nil || s.stmt.ColumnType(col) == sqlite.TypeBlob {
		return ""
	}
	return s.stmt.ColumnText(col)
}

// FetchBlob returns a copy of column |col| of the current row as a blob.
// The blob of a TEXT or NULL column is nil.
func (s *Statement) FetchBlob(col int) []byte {
	if s.stmt == nil {
		return nil
	}
	switch s.stmt.ColumnType(col) {
	case sqlite.TypeText, sqlite.TypeNull:
		return nil
	}
	var b = make([]byte, s.stmt.ColumnLen(col))
	s.stmt.ColumnBytes(col, b)
	return b
}

// FetchValue returns column |col| of the current row as an owning Value.
func (s *Statement) FetchValue(col int) Value { return s.FetchValueView(col).ToValue() }

// FetchValueView returns column |col| of the current row as a ValueView,
// which is valid until the next Next or Reset of the Statement.
func (s *Statement) FetchValueView(col int) ValueView {
	if s.stmt == nil {
		return NullValueView()
	}
	switch s.stmt.ColumnType(col) {
	case sqlite.TypeInteger:
		return IntegerValueView(s.stmt.ColumnInt64(col))
	case sqlite.TypeFloat:
		return FloatValueView(s.stmt.ColumnFloat(col))
	case sqlite.TypeText:
		return StringValueView(s.stmt.ColumnText(col))
	case sqlite.TypeBlob:
		return BlobValueView(s.FetchBlob(col))
	}
	return NullValueView()
}

func (s *Statement) checkIndex(index int) error {
	if s.stmt == nil {
		return s.misused("statement is closed")
	} else if index < 1 || index > s.params {
		return s.wrap(newError(BindingIndexIsOutOfRange, codeRange,
			fmt.Sprintf("parameter index %d is not within [1, %d]", index, s.params)))
	}
	return nil
}

func (s *Statement) misused(msg string) *Error {
	return s.wrap(newError(StatementIsMisused, 0, msg))
}

func (s *Statement) wrap(err *Error) *Error {
	return withStatementContext(err, s.sql, s.location)
}

func withStatementContext(err *Error, sql, location string) *Error {
	if err.SQL == "" {
		err.SQL = sql
	}
	if err.Location == "" {
		err.Location = location
	}
	return err
}

// callerLocation returns the "file:line" of the caller |skip| frames above
// the function calling callerLocation.
func callerLocation(skip int) string {
	var _, file, line, ok = runtime.Caller(skip + 1)
	if !ok {
		return "unknown"
	}
	return filepath.Base(file) + ":" + strconv.Itoa(line)
}
