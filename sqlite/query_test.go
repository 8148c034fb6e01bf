package sqlite_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.gazette.dev/sqlite/sqlite"
	"go.gazette.dev/sqlite/sqlitetest"
)

type personTag struct{}

type PersonID = sqlite.ID[personTag]

type person struct {
	ID       PersonID
	Name     string
	Age      *int64
	Verified bool

	ignored string
}

func newPeopleDatabase(t *testing.T) *sqlite.Database {
	var db = sqlitetest.NewTempDatabase(t, sqlite.Config{})
	require.NoError(t, db.ExecuteScript(`
		CREATE TABLE people(id INTEGER PRIMARY KEY, name TEXT NOT NULL, age INTEGER, verified INTEGER NOT NULL);
		INSERT INTO people VALUES (1, 'ann', 31, 1), (2, 'bob', NULL, 0), (3, 'cat', 27, 1);
	`))
	return db
}

func TestQueryValueDecoding(t *testing.T) {
	var db = newPeopleDatabase(t)

	var byID, err = sqlite.NewReadStatement(db,
		"SELECT id, name, age, verified FROM people WHERE id = ?", 4, 1)
	require.NoError(t, err)
	defer byID.Close()

	p, err := sqlite.QueryValue[person](byID, PersonID(1))
	require.NoError(t, err)
	require.Equal(t, PersonID(1), p.ID)
	require.Equal(t, "ann", p.Name)
	require.Equal(t, int64(31), *p.Age)
	require.True(t, p.Verified)

	p, err = sqlite.QueryValue[person](byID, 2)
	require.NoError(t, err)
	require.Nil(t, p.Age)
	require.False(t, p.Verified)

	// No rows decode as the zero value.
	p, err = sqlite.QueryValue[person](byID, 99)
	require.NoError(t, err)
	require.Equal(t, person{}, p)

	_, ok, err := sqlite.QueryOptionalValue[person](byID, 99)
	require.NoError(t, err)
	require.False(t, ok)

	p, ok, err = sqlite.QueryOptionalValue[person](byID, 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "cat", p.Name)

	// Scalars require a single column.
	_, err = sqlite.QueryValue[string](byID, 1)
	require.True(t, sqlite.IsKind(err, sqlite.WrongColumnCount))
	// Unsupported types don't decode.
	_, err = sqlite.QueryValue[map[string]int](byID, 1)
	require.True(t, sqlite.IsKind(err, sqlite.CannotConvert))
	// Arguments must match parameters.
	_, err = sqlite.QueryValue[person](byID)
	require.True(t, sqlite.IsKind(err, sqlite.WrongBindingParameterCount))
}

func TestQueryValuesAndCallbacks(t *testing.T) {
	var db = newPeopleDatabase(t)

	var names, err = sqlite.NewReadStatement(db,
		"SELECT name FROM people WHERE verified = ? ORDER BY id", 1, 1)
	require.NoError(t, err)
	defer names.Close()

	out, err := sqlite.QueryValues[string](names, true)
	require.NoError(t, err)
	require.Equal(t, []string{"ann", "cat"}, out)

	out, err = sqlite.QueryValues[string](names, false)
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, out)

	values, err := sqlite.QueryValues[sqlite.Value](names, 2)
	require.NoError(t, err)
	require.Empty(t, values)

	var seen []string
	require.NoError(t, sqlite.ReadCallback(names, func(name string) sqlite.CallbackControl {
		seen = append(seen, name)
		return sqlite.CallbackAbort
	}, 1))
	require.Equal(t, []string{"ann"}, seen)

	seen = nil
	require.NoError(t, sqlite.ReadCallbackWithTransaction(names, func(name string) sqlite.CallbackControl {
		seen = append(seen, name)
		return sqlite.CallbackContinue
	}, 1))
	require.Equal(t, []string{"ann", "cat"}, seen)

	out, err = sqlite.QueryValuesWithTransaction[string](names, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"bob"}, out)

	name, err := sqlite.QueryValueWithTransaction[string](names, 1)
	require.NoError(t, err)
	require.Equal(t, "ann", name)

	_, ok, err := sqlite.QueryOptionalValueWithTransaction[string](names, 5)
	require.NoError(t, err)
	require.False(t, ok)

	// Transaction helpers released the lock.
	require.False(t, db.IsLocked())
}

func TestQueryRange(t *testing.T) {
	var db = newPeopleDatabase(t)

	var ages, err = sqlite.NewReadStatement(db,
		"SELECT id, age FROM people WHERE id >= ? ORDER BY id", 2, 1)
	require.NoError(t, err)
	defer ages.Close()

	type row struct {
		ID  int
		Age *int
	}
	var seq = sqlite.QueryRange[row](ages, 1)

	var ids []int
	for r, err := range seq {
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	require.Equal(t, []int{1, 2, 3}, ids)

	// A range is single-pass.
	for _, err := range seq {
		require.True(t, sqlite.IsKind(err, sqlite.StatementIsMisused))
	}

	// Breaking from a range resets the statement for re-use.
	for r, err := range sqlite.QueryRange[row](ages, 2) {
		require.NoError(t, err)
		require.Equal(t, 2, r.ID)
		require.Nil(t, r.Age)
		break
	}
	ids = nil
	for r, err := range sqlite.QueryRangeWithTransaction[row](ages, 3) {
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}
	require.Equal(t, []int{3}, ids)
	require.False(t, db.IsLocked())

	// Decode failures end the range with an error.
	var failed bool
	for _, err := range sqlite.QueryRange[string](ages, 1) {
		require.True(t, sqlite.IsKind(err, sqlite.WrongColumnCount))
		failed = true
	}
	require.True(t, failed)
}
