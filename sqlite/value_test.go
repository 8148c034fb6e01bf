package sqlite_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"go.gazette.dev/sqlite/sqlite"
)

func TestValueConstructionAndAccess(t *testing.T) {
	var v = sqlite.IntegerValue(42)
	require.Equal(t, sqlite.IntegerType, v.Type())
	require.Equal(t, int64(42), v.ToInteger())
	require.False(t, v.IsNull())

	require.Equal(t, 1.5, sqlite.FloatValue(1.5).ToFloat())
	require.Equal(t, "hello", sqlite.StringValue("hello").ToString())
	require.True(t, sqlite.NullValue().IsNull())
	require.True(t, sqlite.Value{}.IsNull())

	// Accessing a payload of another type panics.
	require.Panics(t, func() { sqlite.StringValue("x").ToInteger() })
	require.Panics(t, func() { sqlite.NullValue().ToBlob() })
	require.Panics(t, func() { sqlite.IntegerValueView(1).ToStringView() })
}

func TestBlobValuesOwnOrBorrow(t *testing.T) {
	var buf = []byte("abc")
	var owned = sqlite.BlobValue(buf)
	var view = sqlite.BlobValueView(buf)

	buf[0] = 'X'
	require.Equal(t, []byte("abc"), owned.ToBlob())
	require.Equal(t, []byte("Xbc"), view.ToBlobView())

	// ToValue copies the borrowed payload.
	var copied = view.ToValue()
	buf[1] = 'Y'
	require.Equal(t, []byte("Xbc"), copied.ToBlob())

	// An empty blob is still a BLOB, and not NULL.
	require.Equal(t, sqlite.BlobType, sqlite.BlobValue(nil).Type())
}

func TestValueEquality(t *testing.T) {
	require.True(t, sqlite.IntegerValue(1).Equal(sqlite.IntegerValue(1)))
	require.False(t, sqlite.IntegerValue(1).Equal(sqlite.FloatValue(1)))
	require.True(t, sqlite.NullValue().Equal(sqlite.Value{}))
	require.True(t, sqlite.BlobValue([]byte{1, 2}).Equal(sqlite.BlobValue([]byte{1, 2})))
	require.True(t, sqlite.FloatValue(math.NaN()).Equal(sqlite.FloatValue(math.NaN())))

	require.Equal(t, "NULL", sqlite.NullValue().String())
	require.Equal(t, "x'0102'", sqlite.BlobValue([]byte{1, 2}).String())
}

func TestValueFromVariant(t *testing.T) {
	type enum uint8

	for _, tc := range []struct {
		in     interface{}
		expect sqlite.Value
	}{
		{nil, sqlite.NullValue()},
		{true, sqlite.IntegerValue(1)},
		{false, sqlite.IntegerValue(0)},
		{int8(-3), sqlite.IntegerValue(-3)},
		{uint32(7), sqlite.IntegerValue(7)},
		{uint64(math.MaxInt64), sqlite.IntegerValue(math.MaxInt64)},
		{float32(0.5), sqlite.FloatValue(0.5)},
		{"str", sqlite.StringValue("str")},
		{[]byte("blob"), sqlite.BlobValue([]byte("blob"))},
		{[]byte(nil), sqlite.NullValue()},
		{sqlite.StringValueView("view"), sqlite.StringValue("view")},
	} {
		var v, err = sqlite.ValueFromVariant(tc.in)
		require.NoError(t, err)
		require.True(t, tc.expect.Equal(v), "%v: %v != %v", tc.in, tc.expect, v)
	}

	var _, err = sqlite.ValueFromVariant(uint64(math.MaxInt64) + 1)
	require.True(t, sqlite.IsKind(err, sqlite.CannotConvert))

	_, err = sqlite.ValueFromVariant(struct{}{})
	require.True(t, sqlite.IsKind(err, sqlite.CannotConvert))
	require.True(t, sqlite.IsCategory(err, sqlite.Conversion))

	// Named types other than the enumerated kinds aren't converted.
	_, err = sqlite.ValueFromVariant(enum(1))
	require.True(t, sqlite.IsKind(err, sqlite.CannotConvert))
}

func TestIDValidity(t *testing.T) {
	type userTag struct{}
	type UserID = sqlite.ID[userTag]

	require.False(t, UserID(0).IsValid())
	require.False(t, UserID(-1).IsValid())
	require.True(t, UserID(1).IsValid())
	require.Equal(t, int64(12), UserID(12).Int64())
}
