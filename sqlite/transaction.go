package sqlite

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// TransactionInterface is the means by which transaction guards lock,
// begin, commit and roll back. *Database implements TransactionInterface.
type TransactionInterface interface {
	sync.Locker

	DeferredBegin() error
	ImmediateBegin() error
	ExclusiveBegin() error
	Commit() error
	Rollback() error

	ImmediateSessionBegin() error
	SessionCommit() error
	SessionRollback() error
}

// TransactionMode is the isolation mode of a Transaction.
type TransactionMode int

const (
	// Deferred transactions acquire the write lock upon their first write.
	Deferred TransactionMode = iota
	// Immediate transactions acquire the write lock when they begin.
	// Other connections may continue to read.
	Immediate
	// Exclusive transactions block all other access when they begin.
	Exclusive
	// ImmediateSession transactions are Immediate, and also record their
	// changes as a ChangeSet of the Database's Sessions.
	ImmediateSession
)

func (m TransactionMode) String() string {
	switch m {
	case Deferred:
		return "deferred"
	case Immediate:
		return "immediate"
	case Exclusive:
		return "exclusive"
	case ImmediateSession:
		return "immediate-session"
	}
	return "TransactionMode(invalid)"
}

// Transaction is a scoped transaction guard. Its constructor locks the
// TransactionInterface and begins the transaction. Exactly one of Commit,
// or an end (Close, End or Abort) without a prior Commit, finishes it:
// an uncommitted Transaction always rolls back when it ends.
//
//	func update(db *sqlite.Database) (err error) {
//	    txn, err := sqlite.NewImmediateTransaction(db)
//	    if err != nil {
//	        return err
//	    }
//	    defer txn.End(&err)
//
//	    ... // Perform writes.
//
//	    return txn.Commit()
//	}
//
// Transactions do not nest: the lock of a Database is not reentrant.
type Transaction struct {
	iface  TransactionInterface
	mode   TransactionMode
	active bool
	begun  time.Time
}

// NewDeferredTransaction locks |iface| and begins a deferred Transaction.
func NewDeferredTransaction(iface TransactionInterface) (*Transaction, error) {
	return beginTransaction(iface, Deferred)
}

// NewImmediateTransaction locks |iface| and begins an immediate Transaction.
func NewImmediateTransaction(iface TransactionInterface) (*Transaction, error) {
	return beginTransaction(iface, Immediate)
}

// NewExclusiveTransaction locks |iface| and begins an exclusive Transaction.
func NewExclusiveTransaction(iface TransactionInterface) (*Transaction, error) {
	return beginTransaction(iface, Exclusive)
}

// NewImmediateSessionTransaction locks |iface| and begins an immediate
// Transaction, which records its changes into a session.
func NewImmediateSessionTransaction(iface TransactionInterface) (*Transaction, error) {
	return beginTransaction(iface, ImmediateSession)
}

func beginTransaction(iface TransactionInterface, mode TransactionMode) (*Transaction, error) {
	iface.Lock()

	var err error
	switch mode {
	case Deferred:
		err = iface.DeferredBegin()
	case Immediate:
		err = iface.ImmediateBegin()
	case Exclusive:
		err = iface.ExclusiveBegin()
	case ImmediateSession:
		err = iface.ImmediateSessionBegin()
	}
	if err != nil {
		iface.Unlock()
		return nil, err
	}
	return &Transaction{iface: iface, mode: mode, active: true, begun: time.Now()}, nil
}

// Mode of the Transaction.
func (t *Transaction) Mode() TransactionMode { return t.mode }

// IsActive is true if the Transaction has neither committed nor ended.
func (t *Transaction) IsActive() bool { return t.active }

// Commit the Transaction and unlock its TransactionInterface. A failed
// Commit leaves the Transaction active, such that its end rolls back.
// Commit of an inactive Transaction fails with TransactionIsNotActive.
func (t *Transaction) Commit() error {
	if !t.active {
		return newError(TransactionIsNotActive, 0, "transaction was already committed or ended")
	}

	var err error
	if t.mode == ImmediateSession {
		err = t.iface.SessionCommit()
	} else {
		err = t.iface.Commit()
	}
	if err != nil {
		return err
	}
	t.finish(outcomeCommit)
	return nil
}

// Close ends the Transaction, rolling it back if it didn't commit.
// Close of an ended Transaction is a no-op.
func (t *Transaction) Close() error {
	if !t.active {
		return nil
	}
	defer t.finish(outcomeRollback)

	if t.mode == ImmediateSession {
		return t.iface.SessionRollback()
	}
	return t.iface.Rollback()
}

// End is intended to be deferred, and ends the Transaction, rolling it
// back if it didn't commit. If a panic is in flight the rollback occurs and
// the panic is re-raised. A rollback failure is stored to |errp| only if
// |errp| holds no error already: End never masks the original failure.
func (t *Transaction) End(errp *error) {
	var r = recover()

	if err := t.Close(); err != nil {
		if r == nil && *errp == nil {
			*errp = err
		} else {
			log.WithFields(log.Fields{
				"mode": t.mode,
				"err":  err,
			}).Warn("failed to roll back transaction")
		}
	}
	if r != nil {
		panic(r)
	}
}

// Abort ends the Transaction, rolling it back if it didn't commit,
// and swallows any rollback failure.
func (t *Transaction) Abort() {
	if err := t.Close(); err != nil {
		log.WithFields(log.Fields{
			"mode": t.mode,
			"err":  err,
		}).Warn("failed to roll back aborted transaction")
	}
}

func (t *Transaction) finish(outcome string) {
	t.active = false
	t.iface.Unlock()

	transactionsTotal.WithLabelValues(t.mode.String(), outcome).Inc()
	transactionDurationSeconds.WithLabelValues(t.mode.String()).Observe(time.Since(t.begun).Seconds())
}

// WithDeferredTransaction runs |fn| within a deferred Transaction of
// |iface|, which commits if |fn| returns nil and otherwise rolls back.
func WithDeferredTransaction(iface TransactionInterface, fn func() error) error {
	return withTransaction(iface, Deferred, fn)
}

// WithImmediateTransaction runs |fn| within an immediate Transaction of
// |iface|, which commits if |fn| returns nil and otherwise rolls back.
func WithImmediateTransaction(iface TransactionInterface, fn func() error) error {
	return withTransaction(iface, Immediate, fn)
}

// WithExclusiveTransaction runs |fn| within an exclusive Transaction of
// |iface|, which commits if |fn| returns nil and otherwise rolls back.
func WithExclusiveTransaction(iface TransactionInterface, fn func() error) error {
	return withTransaction(iface, Exclusive, fn)
}

// WithImmediateSessionTransaction runs |fn| within an immediate session
// Transaction of |iface|, which commits (persisting its ChangeSet) if |fn|
// returns nil and otherwise rolls back.
func WithImmediateSessionTransaction(iface TransactionInterface, fn func() error) error {
	return withTransaction(iface, ImmediateSession, fn)
}

func withTransaction(iface TransactionInterface, mode TransactionMode, fn func() error) (err error) {
	var txn *Transaction
	if txn, err = beginTransaction(iface, mode); err != nil {
		return err
	}
	defer txn.End(&err)

	if err = fn(); err != nil {
		return err
	}
	return txn.Commit()
}
