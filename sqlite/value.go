package sqlite

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
)

// ValueType is the dynamic type tag of a Value or ValueView. It mirrors the
// fundamental datatypes of the SQLite engine.
type ValueType int

const (
	NullType ValueType = iota
	IntegerType
	FloatType
	StringType
	BlobType
)

func (t ValueType) String() string {
	switch t {
	case NullType:
		return "NULL"
	case IntegerType:
		return "INTEGER"
	case FloatType:
		return "FLOAT"
	case StringType:
		return "STRING"
	case BlobType:
		return "BLOB"
	}
	return "ValueType(" + strconv.Itoa(int(t)) + ")"
}

// Value is an owning, tagged value which is bound to or fetched from a
// Statement. Blob contents are copied on construction, so a Value remains
// valid independent of any statement or caller-owned buffer.
// The zero Value is NULL.
type Value struct {
	typ ValueType
	i   int64
	f   float64
	s   string
	b   []byte
}

// NullValue returns a NULL Value.
func NullValue() Value { return Value{} }

// IntegerValue returns an INTEGER Value.
func IntegerValue(i int64) Value { return Value{typ: IntegerType, i: i} }

// FloatValue returns a FLOAT Value.
func FloatValue(f float64) Value { return Value{typ: FloatType, f: f} }

// StringValue returns a STRING Value.
func StringValue(s string) Value { return Value{typ: StringType, s: s} }

// BlobValue returns a BLOB Value holding a copy of |b|.
func BlobValue(b []byte) Value {
	return Value{typ: BlobType, b: append(make([]byte, 0, len(b)), b...)}
}

// ValueFromVariant converts a generic Go value into a Value. Supported
// inputs are nil, bool, signed and unsigned integers, floats, string,
// []byte, Value and ValueView. Any other input (or an unsigned integer which
// overflows int64) fails with a CannotConvert error.
func ValueFromVariant(v interface{}) (Value, error) {
	switch vv := v.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return vv, nil
	case ValueView:
		return vv.ToValue(), nil
	case bool:
		if vv {
			return IntegerValue(1), nil
		}
		return IntegerValue(0), nil
	case int:
		return IntegerValue(int64(vv)), nil
	case int8:
		return IntegerValue(int64(vv)), nil
	case int16:
		return IntegerValue(int64(vv)), nil
	case int32:
		return IntegerValue(int64(vv)), nil
	case int64:
		return IntegerValue(vv), nil
	case uint:
		return unsignedValue(uint64(vv))
	case uint8:
		return IntegerValue(int64(vv)), nil
	case uint16:
		return IntegerValue(int64(vv)), nil
	case uint32:
		return IntegerValue(int64(vv)), nil
	case uint64:
		return unsignedValue(vv)
	case float32:
		return FloatValue(float64(vv)), nil
	case float64:
		return FloatValue(vv), nil
	case string:
		return StringValue(vv), nil
	case []byte:
		if vv == nil {
			return NullValue(), nil
		}
		return BlobValue(vv), nil
	}
	return Value{}, newError(CannotConvert, 0, fmt.Sprintf("cannot convert %T to a sqlite.Value", v))
}

func unsignedValue(u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return Value{}, newError(CannotConvert, 0, fmt.Sprintf("unsigned value %d overflows int64", u))
	}
	return IntegerValue(int64(u)), nil
}

// Type returns the type tag of the Value.
func (v Value) Type() ValueType { return v.typ }

// IsNull is true if the Value is NULL.
func (v Value) IsNull() bool { return v.typ == NullType }

// ToInteger returns the INTEGER payload. It panics if the Value is not an INTEGER.
func (v Value) ToInteger() int64 {
	v.mustBe(IntegerType)
	return v.i
}

// ToFloat returns the FLOAT payload. It panics if the Value is not a FLOAT.
func (v Value) ToFloat() float64 {
	v.mustBe(FloatType)
	return v.f
}

// ToString returns the STRING payload. It panics if the Value is not a STRING.
func (v Value) ToString() string {
	v.mustBe(StringType)
	return v.s
}

// ToBlob returns the BLOB payload. It panics if the Value is not a BLOB.
// The returned slice is owned by the Value and must not be modified.
func (v Value) ToBlob() []byte {
	v.mustBe(BlobType)
	return v.b
}

// View returns a ValueView which borrows from this Value.
func (v Value) View() ValueView {
	return ValueView{typ: v.typ, i: v.i, f: v.f, s: v.s, b: v.b}
}

// Equal is true if |v| and |o| have the same type and payload.
func (v Value) Equal(o Value) bool { return v.View().Equal(o.View()) }

func (v Value) String() string { return v.View().String() }

func (v Value) mustBe(t ValueType) {
	if v.typ != t {
		panic(fmt.Sprintf("sqlite.Value is %s, not %s", v.typ, t))
	}
}

// ValueView is a borrowing form of Value. A ValueView fetched from a
// Statement references memory of the statement's current row, and is valid
// only until the next Next or Reset of that statement. A ValueView built by
// the caller references the caller's buffer, which must not be mutated while
// the view (or a statement it's bound to) is in use.
type ValueView struct {
	typ ValueType
	i   int64
	f   float64
	s   string
	b   []byte
}

// NullValueView returns a NULL ValueView.
func NullValueView() ValueView { return ValueView{} }

// IntegerValueView returns an INTEGER ValueView.
func IntegerValueView(i int64) ValueView { return ValueView{typ: IntegerType, i: i} }

// FloatValueView returns a FLOAT ValueView.
func FloatValueView(f float64) ValueView { return ValueView{typ: FloatType, f: f} }

// StringValueView returns a STRING ValueView.
func StringValueView(s string) ValueView { return ValueView{typ: StringType, s: s} }

// BlobValueView returns a BLOB ValueView which references |b| without a copy.
func BlobValueView(b []byte) ValueView { return ValueView{typ: BlobType, b: b} }

// Type returns the type tag of the ValueView.
func (v ValueView) Type() ValueType { return v.typ }

// IsNull is true if the ValueView is NULL.
func (v ValueView) IsNull() bool { return v.typ == NullType }

// ToInteger returns the INTEGER payload. It panics if the view is not an INTEGER.
func (v ValueView) ToInteger() int64 {
	v.mustBe(IntegerType)
	return v.i
}

// ToFloat returns the FLOAT payload. It panics if the view is not a FLOAT.
func (v ValueView) ToFloat() float64 {
	v.mustBe(FloatType)
	return v.f
}

// ToStringView returns the STRING payload. It panics if the view is not a STRING.
func (v ValueView) ToStringView() string {
	v.mustBe(StringType)
	return v.s
}

// ToBlobView returns the borrowed BLOB payload. It panics if the view is not a BLOB.
func (v ValueView) ToBlobView() []byte {
	v.mustBe(BlobType)
	return v.b
}

// ToValue copies the view into an owning Value.
func (v ValueView) ToValue() Value {
	if v.typ == BlobType {
		return BlobValue(v.b)
	}
	return Value{typ: v.typ, i: v.i, f: v.f, s: v.s}
}

// Equal is true if |v| and |o| have the same type and payload.
// Floats compare bit-exactly, such that NaN payloads compare equal to themselves.
func (v ValueView) Equal(o ValueView) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case IntegerType:
		return v.i == o.i
	case FloatType:
		return math.Float64bits(v.f) == math.Float64bits(o.f)
	case StringType:
		return v.s == o.s
	case BlobType:
		return bytes.Equal(v.b, o.b)
	}
	return true
}

func (v ValueView) String() string {
	switch v.typ {
	case IntegerType:
		return strconv.FormatInt(v.i, 10)
	case FloatType:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case StringType:
		return v.s
	case BlobType:
		return fmt.Sprintf("x'%x'", v.b)
	}
	return "NULL"
}

func (v ValueView) mustBe(t ValueType) {
	if v.typ != t {
		panic(fmt.Sprintf("sqlite.ValueView is %s, not %s", v.typ, t))
	}
}

// ID is an identifier-wrapper type which distinguishes row IDs of different
// tables at compile time. IDs less than one are invalid, and bind as NULL.
// A NULL column decodes into the invalid ID zero.
//
//	type sourceTag struct{}
//	type SourceID = sqlite.ID[sourceTag]
type ID[Tag any] int64

// IsValid is true if the ID refers to a row.
func (id ID[Tag]) IsValid() bool { return id > 0 }

// Int64 returns the underlying row ID.
func (id ID[Tag]) Int64() int64 { return int64(id) }

// identifier is implemented by ID, and by user types which wrap row IDs.
type identifier interface {
	IsValid() bool
	Int64() int64
}
