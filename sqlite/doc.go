// Package sqlite is an embedded SQLite access layer. A Database owns a single
// native connection, and Statements prepared against it bind typed parameters,
// step, and fetch typed columns. Lock contention is waited out rather than
// surfaced: shared-cache table locks through the engine's unlock-notify
// primitive, and file locks through the engine's busy handling and the
// Database's BusyHandler. All failures are returned as *Error, carrying a
// stable Kind mapped from the engine's extended result code.
//
// Read, Write and ReadWrite statement types check their result column and
// bound parameter arity at construction, as well as whether their SQL
// modifies the database. Generic helpers (QueryValue, QueryValues,
// ReadCallback, QueryRange and their "WithTransaction" variants) decode rows
// into scalars or structs.
//
// Transaction guards scope deferred, immediate and exclusive transactions:
// an uncommitted guard always rolls back when it ends, whether through an
// error return or a panic. Sessions record the row-level changes of a
// transaction into a log table of ChangeSets, which may later be re-applied
// or reverted.
//
// Table, Column and Index assemble CREATE TABLE and CREATE INDEX statements
// from declarative column and constraint lists.
package sqlite

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	statementsPreparedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlite_statements_prepared_total",
		Help: "Cumulative number of prepared SQLite statements.",
	})
	statementCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlite_statement_cache_hits_total",
		Help: "Cumulative number of Database.Execute calls served by a cached prepared statement.",
	})
	busyRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sqlite_busy_retries_total",
		Help: "Cumulative number of statement steps retried after the database was busy.",
	})
	transactionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlite_transactions_total",
		Help: "Cumulative number of ended transactions, by mode and outcome.",
	}, []string{"mode", "outcome"})
	transactionDurationSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sqlite_transaction_duration_seconds",
		Help:    "Duration of transactions, from begin to commit or rollback.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
	}, []string{"mode"})
	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlite_errors_total",
		Help: "Cumulative number of errors returned, by category.",
	}, []string{"category"})
	changeSetBytes = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sqlite_changeset_bytes",
		Help:    "Uncompressed size of ChangeSets committed by Sessions.",
		Buckets: prometheus.ExponentialBuckets(64, 4, 10),
	})
	changeSetsAppliedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sqlite_changesets_applied_total",
		Help: "Cumulative number of ChangeSets applied or reverted by Sessions.",
	}, []string{"direction"})
)

// Outcome labels of transactionsTotal.
const (
	outcomeCommit   = "commit"
	outcomeRollback = "rollback"
)
