package sqlite

import (
	"fmt"
	"reflect"
	"sync"
)

var (
	valueType     = reflect.TypeOf(Value{})
	valueViewType = reflect.TypeOf(ValueView{})
)

// rowDecoder decodes the current row of a Statement into a reflect.Value.
type rowDecoder struct {
	columns int // Required column count.
	decode  func(s *Statement, into reflect.Value)
}

var rowDecoders sync.Map // reflect.Type => *rowDecoder

// decodeRow decodes the current row of |s| into a T. Scalar Ts are decoded
// from a single result column. Struct Ts (other than Value and ValueView)
// are decoded positionally, with one result column per exported field.
func decodeRow[T any](s *Statement) (T, error) {
	var out T
	var dec, err = decoderOf(reflect.TypeOf(&out).Elem())
	if err != nil {
		return out, s.wrap(err.(*Error))
	} else if dec.columns != s.columns {
		return out, s.wrap(newError(WrongColumnCount, 0,
			fmt.Sprintf("%T decodes %d columns, but statement has %d", out, dec.columns, s.columns)))
	}
	dec.decode(s, reflect.ValueOf(&out).Elem())
	return out, nil
}

func decoderOf(t reflect.Type) (*rowDecoder, error) {
	if d, ok := rowDecoders.Load(t); ok {
		return d.(*rowDecoder), nil
	}
	var d *rowDecoder

	if t.Kind() == reflect.Struct && t != valueType && t != valueViewType {
		var fields []int
		var decoders []func(*Statement, int, reflect.Value)

		for i := 0; i != t.NumField(); i++ {
			var f = t.Field(i)
			if !f.IsExported() {
				continue
			}
			var fd, err = columnDecoderOf(f.Type)
			if err != nil {
				return nil, newError(CannotConvert, 0, fmt.Sprintf("field %s.%s: %s", t, f.Name, err))
			}
			fields = append(fields, i)
			decoders = append(decoders, fd)
		}
		d = &rowDecoder{
			columns: len(fields),
			decode: func(s *Statement, into reflect.Value) {
				for col, field := range fields {
					decoders[col](s, col, into.Field(field))
				}
			},
		}
	} else {
		var cd, err = columnDecoderOf(t)
		if err != nil {
			return nil, newError(CannotConvert, 0, err.Error())
		}
		d = &rowDecoder{
			columns: 1,
			decode:  func(s *Statement, into reflect.Value) { cd(s, 0, into) },
		}
	}

	rowDecoders.Store(t, d)
	return d, nil
}

// columnDecoderOf returns a function which decodes a single column into a
// reflect.Value of type |t|.
func columnDecoderOf(t reflect.Type) (func(*Statement, int, reflect.Value), error) {
	switch t {
	case valueType:
		return func(s *Statement, col int, v reflect.Value) { v.Set(reflect.ValueOf(s.FetchValue(col))) }, nil
	case valueViewType:
		return func(s *Statement, col int, v reflect.Value) { v.Set(reflect.ValueOf(s.FetchValueView(col))) }, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return func(s *Statement, col int, v reflect.Value) { v.SetBool(s.FetchInt64(col) != 0) }, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(s *Statement, col int, v reflect.Value) { v.SetInt(s.FetchInt64(col)) }, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(s *Statement, col int, v reflect.Value) { v.SetUint(uint64(s.FetchInt64(col))) }, nil
	case reflect.Float32, reflect.Float64:
		return func(s *Statement, col int, v reflect.Value) { v.SetFloat(s.FetchFloat(col)) }, nil
	case reflect.String:
		return func(s *Statement, col int, v reflect.Value) { v.SetString(s.FetchText(col)) }, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return func(s *Statement, col int, v reflect.Value) { v.SetBytes(s.FetchBlob(col)) }, nil
		}
	case reflect.Pointer:
		// Pointers decode NULL columns as nil.
		var elem, err = columnDecoderOf(t.Elem())
		if err != nil {
			return nil, err
		}
		return func(s *Statement, col int, v reflect.Value) {
			if s.ColumnType(col) == NullType {
				v.SetZero()
				return
			}
			var p = reflect.New(t.Elem())
			elem(s, col, p.Elem())
			v.Set(p)
		}, nil
	}
	return nil, fmt.Errorf("cannot decode a column into %s", t)
}
