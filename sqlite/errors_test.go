package sqlite

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestResultCodeMapping(t *testing.T) {
	for _, tc := range []struct {
		code   int
		expect Kind
	}{
		{codeBusy, StatementIsBusy},
		{codeBusyTimeout, DatabaseIsBusyTimeout},
		{codeLocked, DeadLock},
		{codeLockedSharedCache, DeadLock},
		{codeConstraintUnique, UniqueConstraintPreventsModification},
		{codeConstraintNotNull, NotNullConstraintPreventsModification},
		{codeConstraintForeignKey, ForeignKeyConstraintPreventsModification},
		{codeIOErrShmMap, InputOutputCannotMapSharedMemory},
		{codeCantOpenIsDir, CannotOpenIsDirectory},
		{codeReadOnlyDirectory, ReadOnlyDirectory},
		{codeInterrupt, ExecutionInterrupted},
		{codeRange, BindingIndexIsOutOfRange},
		{codeNotADB, NotADatabase},
		// Unknown extended codes fall back to their primary code.
		{codeConstraint | 99<<8, ConstraintPreventsModification},
		{codeIOErr | 99<<8, InputOutputError},
		// Codes not otherwise mapped.
		{0, UnknownError},
		{99, UnknownError},
	} {
		require.Equal(t, tc.expect, kindOfCode(tc.code), "code %d", tc.code)
	}
}

func TestKindsHaveNamesAndCategories(t *testing.T) {
	for kind, info := range kindInfos {
		require.Equal(t, info.name, kind.String())
	}
	for _, kind := range resultKinds {
		var _, ok = kindInfos[kind]
		require.True(t, ok, "kind %d", kind)
	}

	require.Equal(t, Contention, DeadLock.Category())
	require.Equal(t, ConstraintCategory, UniqueConstraintPreventsModification.Category())
	require.Equal(t, Misuse, WrongColumnCount.Category())
	require.Equal(t, InputOutput, DatabaseIsCorrupt.Category())
	require.Equal(t, Connection, CannotOpen.Category())
	require.Equal(t, Session, CannotApplyChangeSet.Category())
	require.Equal(t, "io", InputOutput.String())
	require.Equal(t, "Kind(100000)", Kind(100000).String())
}

func TestErrorFormattingAndMatching(t *testing.T) {
	var err = withStatementContext(
		newError(UniqueConstraintPreventsModification, codeConstraintUnique, "UNIQUE constraint failed: t.a"),
		"INSERT INTO t(a) VALUES (?)", "foo.go:12")

	require.Equal(t, `sqlite: UniqueConstraintPreventsModification: UNIQUE constraint failed: t.a`+
		` (sql "INSERT INTO t(a) VALUES (?)") at foo.go:12`, err.Error())

	// Context is set once, by the innermost operation.
	withStatementContext(err, "other", "bar.go:1")
	require.Equal(t, "foo.go:12", err.Location)

	var wrapped = errors.WithMessage(err, "inserting")
	require.True(t, IsKind(wrapped, UniqueConstraintPreventsModification))
	require.True(t, IsCategory(wrapped, ConstraintCategory))
	require.True(t, errors.Is(wrapped, &Error{Kind: UniqueConstraintPreventsModification}))
	require.False(t, errors.Is(wrapped, &Error{Kind: DeadLock}))

	var kind, ok = KindOf(errors.New("other"))
	require.False(t, ok)
	require.Equal(t, UnknownError, kind)
	require.Nil(t, errorFromNative(nil))
	require.Equal(t, err, errorFromNative(err))
}
