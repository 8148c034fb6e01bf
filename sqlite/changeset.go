package sqlite

import (
	"bytes"
	"fmt"
	"iter"

	"zombiezen.com/go/sqlite"
)

// ChangeSet is an immutable, serialized set of row-level changes recorded
// by a session. Its encoding is opaque and owned by the engine: ChangeSets
// are produced and consumed only through Sessions of the same engine.
type ChangeSet struct {
	// ID of the ChangeSet within its Sessions log table, or zero if it
	// isn't persisted.
	ID int64
	// StoredSize is the persisted (compressed) size of the ChangeSet.
	StoredSize int

	data []byte
}

// NewChangeSet returns a ChangeSet of serialized |data|.
func NewChangeSet(data []byte) ChangeSet { return ChangeSet{data: data, StoredSize: len(data)} }

// Data returns the serialized ChangeSet, which must not be modified.
func (c ChangeSet) Data() []byte { return c.data }

// Size returns the serialized size of the ChangeSet.
func (c ChangeSet) Size() int { return len(c.data) }

// Invert returns the logical undo of the ChangeSet: inserts become
// deletes, deletes become inserts, and updates swap old and new values.
func (c ChangeSet) Invert() (ChangeSet, error) {
	var buf bytes.Buffer
	if err := sqlite.InvertChangeset(&buf, bytes.NewReader(c.data)); err != nil {
		return ChangeSet{}, sessionError(err)
	}
	return NewChangeSet(buf.Bytes()), nil
}

// Operation is the kind of row change of a ChangeSetTuple.
type Operation int

const (
	OperationInsert Operation = iota
	OperationUpdate
	OperationDelete
)

func (o Operation) String() string {
	switch o {
	case OperationInsert:
		return "INSERT"
	case OperationUpdate:
		return "UPDATE"
	case OperationDelete:
		return "DELETE"
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// ChangeSetTuple is the change of a single row within a ChangeSet.
type ChangeSetTuple struct {
	// Table of the changed row.
	Table string
	// Operation of the change.
	Operation Operation
	// Indirect is true if the change was made by a trigger or foreign key
	// action, rather than directly by a statement.
	Indirect bool

	columns int
	old     []Value // Nil for OperationInsert.
	new     []Value // Nil for OperationDelete.
}

// ColumnCount returns the number of columns of the changed table.
func (t ChangeSetTuple) ColumnCount() int { return t.columns }

// Old returns the value of column |col| before the change. Old values are
// absent for inserts. For updates, the old values of primary key columns
// and changed columns are present, and others are NULL.
func (t ChangeSetTuple) Old(col int) (Value, error) {
	return t.value(t.old, col, "old")
}

// New returns the value of column |col| after the change. New values are
// absent for deletes. For updates, the new values of changed columns are
// present, and others are NULL.
func (t ChangeSetTuple) New(col int) (Value, error) {
	return t.value(t.new, col, "new")
}

func (t ChangeSetTuple) value(values []Value, col int, which string) (Value, error) {
	if col < 0 || col >= t.columns {
		return Value{}, newError(ChangeSetTupleIsOutOfRange, codeRange,
			fmt.Sprintf("column %d of %s is not within [0, %d)", col, t.Table, t.columns))
	} else if values == nil {
		return Value{}, newError(ChangeSetTupleIsMisused, codeMisuse,
			fmt.Sprintf("%s tuple of %s has no %s values", t.Operation, t.Table, which))
	}
	return values[col], nil
}

// Tuples returns a sequence of the ChangeSet's row changes. Iteration
// stops at the first error, which is yielded.
func (c ChangeSet) Tuples() iter.Seq2[ChangeSetTuple, error] {
	return func(yield func(ChangeSetTuple, error) bool) {
		var it, err = sqlite.NewChangesetIterator(bytes.NewReader(c.data))
		if err != nil {
			yield(ChangeSetTuple{}, newError(CannotCreateChangeSetIterator, int(sqlite.ErrCode(err)), nativeMessage(err)))
			return
		}
		defer it.Close()

		for {
			if more, err := it.Next(); err != nil {
				yield(ChangeSetTuple{}, newError(CannotGetChangeSetOperation, int(sqlite.ErrCode(err)), nativeMessage(err)))
				return
			} else if !more {
				return
			} else if tuple, err := readTuple(it); err != nil {
				yield(ChangeSetTuple{}, err)
				return
			} else if !yield(tuple, nil) {
				return
			}
		}
	}
}

func readTuple(it *sqlite.ChangesetIterator) (ChangeSetTuple, error) {
	var op, err = it.Operation()
	if err != nil {
		return ChangeSetTuple{}, newError(CannotGetChangeSetOperation, int(sqlite.ErrCode(err)), nativeMessage(err))
	}
	var t = ChangeSetTuple{
		Table:    op.TableName,
		Indirect: op.Indirect,
		columns:  op.NumColumns,
	}
	switch op.Type {
	case sqlite.OpInsert:
		t.Operation = OperationInsert
	case sqlite.OpUpdate:
		t.Operation = OperationUpdate
	case sqlite.OpDelete:
		t.Operation = OperationDelete
	default:
		return ChangeSetTuple{}, newError(CannotGetChangeSetOperation, 0,
			fmt.Sprintf("unexpected operation %v of table %s", op.Type, op.TableName))
	}

	if t.Operation != OperationInsert {
		if t.old, err = readValues(op.NumColumns, it.Old); err != nil {
			return ChangeSetTuple{}, err
		}
	}
	if t.Operation != OperationDelete {
		if t.new, err = readValues(op.NumColumns, it.New); err != nil {
			return ChangeSetTuple{}, err
		}
	}
	return t, nil
}

func readValues(n int, fn func(int) (sqlite.Value, error)) ([]Value, error) {
	var out = make([]Value, n)
	for col := range out {
		var v, err = fn(col)
		if err != nil {
			return nil, newError(CannotGetChangeSetOperation, int(sqlite.ErrCode(err)), nativeMessage(err))
		}
		out[col] = valueFromNative(v)
	}
	return out, nil
}

// valueFromNative copies a native value, treating absent values as NULL.
func valueFromNative(v sqlite.Value) Value {
	switch v.Type() {
	case sqlite.TypeInteger:
		return IntegerValue(v.Int64())
	case sqlite.TypeFloat:
		return FloatValue(v.Float())
	case sqlite.TypeText:
		return StringValue(v.Text())
	case sqlite.TypeBlob:
		return BlobValue(v.Blob())
	}
	return NullValue()
}
