package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestStatementCacheAndMetrics(t *testing.T) {
	var db, err = Open(filepath.Join(t.TempDir(), "test.db"), Config{StatementCacheSize: 2})
	require.NoError(t, err)
	defer db.Close()

	var hits = testutil.ToFloat64(statementCacheHitsTotal)
	var prepared = testutil.ToFloat64(statementsPreparedTotal)

	require.NoError(t, db.Execute("CREATE TABLE t(a)"))
	require.NoError(t, db.Execute("INSERT INTO t VALUES (1)"))
	require.NoError(t, db.Execute("INSERT INTO t VALUES (1)"))
	require.Equal(t, hits+1, testutil.ToFloat64(statementCacheHitsTotal))
	require.Equal(t, prepared+2, testutil.ToFloat64(statementsPreparedTotal))

	// A third statement evicts the least-recently used, and closes it.
	require.NoError(t, db.Execute("INSERT INTO t VALUES (2)"))
	require.Equal(t, 2, db.cache.Len())
	require.False(t, db.cache.Contains("CREATE TABLE t(a)"))

	var commits = testutil.ToFloat64(transactionsTotal.WithLabelValues("immediate", outcomeCommit))
	var rollbacks = testutil.ToFloat64(transactionsTotal.WithLabelValues("deferred", outcomeRollback))

	require.NoError(t, WithImmediateTransaction(db, func() error { return nil }))
	require.Error(t, WithDeferredTransaction(db, func() error {
		return db.Execute("INSERT INTO missing VALUES (1)")
	}))
	require.Equal(t, commits+1, testutil.ToFloat64(transactionsTotal.WithLabelValues("immediate", outcomeCommit)))
	require.Equal(t, rollbacks+1, testutil.ToFloat64(transactionsTotal.WithLabelValues("deferred", outcomeRollback)))

	var misuse = testutil.ToFloat64(errorsTotal.WithLabelValues("misuse"))
	_, err = db.Prepare("SELECT 1; SELECT 2")
	require.Error(t, err)
	require.Equal(t, misuse+1, testutil.ToFloat64(errorsTotal.WithLabelValues("misuse")))
}

func TestStatementWriteDetection(t *testing.T) {
	var db, err = Open(":memory:", Config{})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.ExecuteScript("CREATE TABLE t(a); CREATE TABLE u(b)"))

	for _, tc := range []struct {
		sql    string
		writes bool
	}{
		{"SELECT 1", false},
		{"SELECT a FROM t", false},
		{"SELECT a FROM t JOIN u ON a = b", false},
		{"WITH x(n) AS (SELECT 1) SELECT n FROM x", false},
		{"PRAGMA user_version", false},
		{"INSERT INTO t VALUES (1)", true},
		{"UPDATE t SET a = 2", true},
		{"DELETE FROM u", true},
		{"INSERT INTO u SELECT a FROM t", true},
		{"CREATE TABLE v(c)", true},
		{"DROP TABLE u", true},
	} {
		var s, err = db.Prepare(tc.sql)
		require.NoError(t, err, tc.sql)

		writes, err := s.writes()
		require.NoError(t, err)
		require.Equal(t, tc.writes, writes, tc.sql)
		require.NoError(t, s.Close())
	}
}

func TestLibraryInfo(t *testing.T) {
	var version, err = LibraryVersion()
	require.NoError(t, err)
	require.Regexp(t, `^3\.\d+\.\d+$`, version)

	opts, err := CompileOptions()
	require.NoError(t, err)
	require.NotEmpty(t, opts)

	require.True(t, HasCompileOption("ENABLE_SESSION"))
	require.True(t, HasCompileOption("THREADSAFE"))
	require.False(t, HasCompileOption("NOT_A_REAL_OPTION"))
}
