package sqlite

import (
	"iter"
)

// CallbackControl is returned by ReadCallback callbacks.
type CallbackControl bool

const (
	// CallbackContinue continues to the next row.
	CallbackContinue CallbackControl = false
	// CallbackAbort stops without stepping remaining rows.
	CallbackAbort CallbackControl = true
)

// QueryValue binds |args| and returns the first row decoded as a T,
// or the zero-valued T if there are no rows.
func QueryValue[T any](q Query, args ...interface{}) (T, error) {
	var v, _, err = QueryOptionalValue[T](q, args...)
	return v, err
}

// QueryOptionalValue binds |args| and returns the first row decoded as a T,
// and true, or the zero-valued T and false if there are no rows.
func QueryOptionalValue[T any](q Query, args ...interface{}) (T, bool, error) {
	var s = q.query()
	var zero T
	defer s.Reset()

	if err := s.BindValues(args...); err != nil {
		return zero, false, err
	} else if row, err := s.Next(); err != nil || !row {
		return zero, false, err
	} else if v, err := decodeRow[T](s); err != nil {
		return zero, false, err
	} else {
		return v, true, nil
	}
}

// QueryValues binds |args| and returns all rows decoded as Ts.
func QueryValues[T any](q Query, args ...interface{}) ([]T, error) {
	var s = q.query()
	defer s.Reset()

	if err := s.BindValues(args...); err != nil {
		return nil, err
	}
	// Size for the largest result yet returned by this Statement.
	var out = make([]T, 0, s.maxRows)

	for {
		if row, err := s.Next(); err != nil {
			return nil, err
		} else if !row {
			break
		} else if v, err := decodeRow[T](s); err != nil {
			return nil, err
		} else {
			out = append(out, v)
		}
	}
	if len(out) > s.maxRows {
		s.maxRows = len(out)
	}
	return out, nil
}

// ReadCallback binds |args| and invokes |fn| with each row decoded as a T,
// until rows are exhausted or |fn| returns CallbackAbort.
func ReadCallback[T any](q Query, fn func(T) CallbackControl, args ...interface{}) error {
	var s = q.query()
	defer s.Reset()

	if err := s.BindValues(args...); err != nil {
		return err
	}
	for {
		if row, err := s.Next(); err != nil || !row {
			return err
		} else if v, err := decodeRow[T](s); err != nil {
			return err
		} else if fn(v) == CallbackAbort {
			return nil
		}
	}
}

// QueryRange binds |args| and returns a single-pass sequence of rows decoded
// as Ts. Each iteration steps the Statement once. An error ends the
// sequence, and the Statement is Reset when the sequence ends. Ranging the
// returned sequence a second time yields StatementIsMisused.
//
//	for v, err := range sqlite.QueryRange[string](stmt, 42) {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
func QueryRange[T any](q Query, args ...interface{}) iter.Seq2[T, error] {
	var s = q.query()
	var consumed bool

	return func(yield func(T, error) bool) {
		var zero T
		if consumed {
			yield(zero, s.misused("range was already iterated"))
			return
		}
		consumed = true
		defer s.Reset()

		if err := s.BindValues(args...); err != nil {
			yield(zero, err)
			return
		}
		for {
			if row, err := s.Next(); err != nil {
				yield(zero, err)
				return
			} else if !row {
				return
			} else if v, err := decodeRow[T](s); err != nil {
				yield(zero, err)
				return
			} else if !yield(v, nil) {
				return
			}
		}
	}
}

// QueryValueWithTransaction is QueryValue within a committed deferred transaction.
func QueryValueWithTransaction[T any](q Query, args ...interface{}) (out T, err error) {
	err = WithDeferredTransaction(q.query().db, func() error {
		out, err = QueryValue[T](q, args...)
		return err
	})
	return
}

// QueryOptionalValueWithTransaction is QueryOptionalValue within a committed
// deferred transaction.
func QueryOptionalValueWithTransaction[T any](q Query, args ...interface{}) (out T, ok bool, err error) {
	err = WithDeferredTransaction(q.query().db, func() error {
		out, ok, err = QueryOptionalValue[T](q, args...)
		return err
	})
	return
}

// QueryValuesWithTransaction is QueryValues within a committed deferred transaction.
func QueryValuesWithTransaction[T any](q Query, args ...interface{}) (out []T, err error) {
	err = WithDeferredTransaction(q.query().db, func() error {
		out, err = QueryValues[T](q, args...)
		return err
	})
	return
}

// ReadCallbackWithTransaction is ReadCallback within a committed deferred transaction.
func ReadCallbackWithTransaction[T any](q Query, fn func(T) CallbackControl, args ...interface{}) error {
	return WithDeferredTransaction(q.query().db, func() error {
		return ReadCallback(q, fn, args...)
	})
}

// QueryRangeWithTransaction is QueryRange within a deferred transaction,
// which is held for the duration of the range loop. The transaction commits
// when the loop ends without an error or panic, and otherwise rolls back.
// A failure to commit is yielded if the loop ran to completion.
func QueryRangeWithTransaction[T any](q Query, args ...interface{}) iter.Seq2[T, error] {
	var seq = QueryRange[T](q, args...)

	return func(yield func(T, error) bool) {
		var zero T
		var txn, err = NewDeferredTransaction(q.query().db)
		if err != nil {
			yield(zero, err)
			return
		}
		defer txn.End(&err)

		var stopped bool
		for v, rangeErr := range seq {
			if rangeErr != nil {
				err = rangeErr
				yield(zero, err)
				return
			} else if !yield(v, nil) {
				stopped = true
				break
			}
		}
		if err = txn.Commit(); err != nil && !stopped {
			yield(zero, err)
		}
	}
}
