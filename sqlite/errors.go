package sqlite

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Kind enumerates the kinds of Error returned by this package. Kinds are
// stable and are the intended means by which callers distinguish failures:
//
//	if sqlite.IsKind(err, sqlite.UniqueConstraintPreventsModification) {
//	    // Handle the duplicate.
//	}
type Kind int

// Category groups Kinds by how a caller is expected to react to them.
type Category int

const (
	// UnknownCategory covers results which map to no more specific category.
	UnknownCategory Category = iota
	// Contention errors are recoverable by retry. Step and prepare already
	// wait out transient contention, so a surfaced contention error means
	// waiting was exhausted or would deadlock.
	Contention
	// Misuse errors are programming errors: the caller violated an arity,
	// mode or lifecycle contract.
	Misuse
	// ConstraintCategory errors are expected, recoverable failures of mutating statements.
	ConstraintCategory
	// InputOutput errors are failures of the environment, generally fatal
	// to the current operation.
	InputOutput
	// Connection errors are configuration errors of opening or closing a Database.
	Connection
	// Conversion errors arise bridging unsupported generic values.
	Conversion
	// Session errors are failures of change capture and replay.
	Session
	// Execution errors are failures of an individual statement's execution.
	Execution
)

func (c Category) String() string {
	switch c {
	case Contention:
		return "contention"
	case Misuse:
		return "misuse"
	case ConstraintCategory:
		return "constraint"
	case InputOutput:
		return "io"
	case Connection:
		return "connection"
	case Conversion:
		return "conversion"
	case Session:
		return "session"
	case Execution:
		return "execution"
	}
	return "unknown"
}

const (
	UnknownError Kind = iota

	// Contention.
	StatementIsBusy
	DatabaseIsBusy
	DatabaseIsBusyRecovering
	DatabaseIsBusySnapshot
	DatabaseIsBusyTimeout
	DeadLock
	ConnectionsVirtualTableIsLocked

	// Misuse.
	StatementIsMisused
	WrongBindingParameterCount
	WrongColumnCount
	BindingIndexIsOutOfRange
	DatabaseIsNotLocked
	NotReadOnlySqlStatement
	NotWriteSqlStatement
	TransactionIsNotActive
	ForeignKeyColumnIsNotUnique

	// Execution.
	StatementHasError
	MissingCollatingSequence
	StatementNeedsRetry
	SnapshotIsUnavailable
	SchemeChangeError
	ExecutionInterrupted
	ExecutionToBeRolledBack
	TooBig
	DataTypeMismatch
	PermissionDenied
	AuthorizationDenied
	NoMemory
	InternalError
	FileControlNotFound

	// Constraint.
	ConstraintPreventsModification
	CheckConstraintPreventsModification
	CommitHookConstraintPreventsModification
	DataTypeConstraintPreventsModification
	ForeignKeyConstraintPreventsModification
	FunctionConstraintPreventsModification
	NotNullConstraintPreventsModification
	PinnedConstraintPreventsModification
	PrimaryKeyConstraintPreventsModification
	RowIdConstraintPreventsModification
	TriggerConstraintPreventsModification
	UniqueConstraintPreventsModification
	VirtualTableConstraintPreventsModification

	// Input / output and environment.
	InputOutputError
	InputOutputCannotRead
	InputOutputCannotShortRead
	InputOutputCannotWrite
	InputOutputCannotSynchronizeFile
	InputOutputCannotSynchronizeDirectory
	InputOutputCannotTruncate
	InputOutputCannotFstat
	InputOutputCannotUnlock
	InputOutputCannotReadLock
	InputOutputCannotDelete
	InputOutputBlocked
	InputOutputNoMemory
	InputOutputCannotAccess
	InputOutputCannotCheckReservedLock
	InputOutputCannotLock
	InputOutputCannotClose
	InputOutputCannotCloseDirectory
	InputOutputCannotOpenSharedMemory
	InputOutputCannotEnlargeSharedMemory
	InputOutputCannotLockSharedMemory
	InputOutputCannotMapSharedMemory
	InputOutputCannotSeek
	InputOutputCannotDeleteNonExistingFile
	InputOutputCannotMemoryMap
	InputOutputCannotGetTemporaryPath
	InputOutputConvPathFailed
	InputOutputVNodeError
	InputOutputCannotAuthenticate
	InputOutputCannotBeginAtomic
	InputOutputCannotCommitAtomic
	InputOutputCannotRollbackAtomic
	InputOutputDataError
	InputOutputFileSystemIsCorrupt
	DatabaseIsCorrupt
	DatabaseIsCorruptVirtualTable
	DatabaseIsCorruptSequence
	DatabaseIsCorruptIndex
	DatabaseExceedsMaximumFileSize
	DatabaseHasNoLargeFileSupport

	// Connection lifecycle.
	DatabaseFilePathIsEmpty
	DatabaseIsAlreadyOpen
	DatabaseIsAlreadyClosed
	DatabaseIsNotOpen
	WrongFilePath
	CannotOpen
	CannotOpenNoTemporaryDirectory
	CannotOpenIsDirectory
	CannotOpenFullPath
	CannotOpenConvPath
	CannotOpenSymbolicLink
	NotADatabase
	ProtocolError
	PragmaValueNotSet
	CannotWriteToReadOnlyConnection
	ReadOnlyRecovery
	ReadOnlyCannotLock
	ReadOnlyRollback
	ReadOnlyDatabaseMoved
	ReadOnlyCannotInitialize
	ReadOnlyDirectory

	// Conversion.
	CannotConvert

	// Session and changesets.
	CannotApplyChangeSet
	ChangeSetIsMisused
	CannotCreateChangeSetIterator
	CannotGetChangeSetOperation
	ChangeSetTupleIsOutOfRange
	ChangeSetTupleIsMisused
)

type kindInfo struct {
	name     string
	category Category
}

var kindInfos = map[Kind]kindInfo{
	UnknownError: {"UnknownError", UnknownCategory},

	StatementIsBusy:                 {"StatementIsBusy", Contention},
	DatabaseIsBusy:                  {"DatabaseIsBusy", Contention},
	DatabaseIsBusyRecovering:        {"DatabaseIsBusyRecovering", Contention},
	DatabaseIsBusySnapshot:          {"DatabaseIsBusySnapshot", Contention},
	DatabaseIsBusyTimeout:           {"DatabaseIsBusyTimeout", Contention},
	DeadLock:                        {"DeadLock", Contention},
	ConnectionsVirtualTableIsLocked: {"ConnectionsVirtualTableIsLocked", Contention},

	StatementIsMisused:          {"StatementIsMisused", Misuse},
	WrongBindingParameterCount:  {"WrongBindingParameterCount", Misuse},
	WrongColumnCount:            {"WrongColumnCount", Misuse},
	BindingIndexIsOutOfRange:    {"BindingIndexIsOutOfRange", Misuse},
	DatabaseIsNotLocked:         {"DatabaseIsNotLocked", Misuse},
	NotReadOnlySqlStatement:     {"NotReadOnlySqlStatement", Misuse},
	NotWriteSqlStatement:        {"NotWriteSqlStatement", Misuse},
	TransactionIsNotActive:      {"TransactionIsNotActive", Misuse},
	ForeignKeyColumnIsNotUnique: {"ForeignKeyColumnIsNotUnique", Misuse},

	StatementHasError:        {"StatementHasError", Execution},
	MissingCollatingSequence: {"MissingCollatingSequence", Execution},
	StatementNeedsRetry:      {"StatementNeedsRetry", Execution},
	SnapshotIsUnavailable:    {"SnapshotIsUnavailable", Execution},
	SchemeChangeError:        {"SchemeChangeError", Execution},
	ExecutionInterrupted:     {"ExecutionInterrupted", Execution},
	ExecutionToBeRolledBack:  {"ExecutionToBeRolledBack", Execution},
	TooBig:                   {"TooBig", Execution},
	DataTypeMismatch:         {"DataTypeMismatch", Execution},
	PermissionDenied:         {"PermissionDenied", Execution},
	AuthorizationDenied:      {"AuthorizationDenied", Execution},
	NoMemory:                 {"NoMemory", Execution},
	InternalError:            {"InternalError", Execution},
	FileControlNotFound:      {"FileControlNotFound", Execution},

	ConstraintPreventsModification:             {"ConstraintPreventsModification", ConstraintCategory},
	CheckConstraintPreventsModification:        {"CheckConstraintPreventsModification", ConstraintCategory},
	CommitHookConstraintPreventsModification:   {"CommitHookConstraintPreventsModification", ConstraintCategory},
	DataTypeConstraintPreventsModification:     {"DataTypeConstraintPreventsModification", ConstraintCategory},
	ForeignKeyConstraintPreventsModification:   {"ForeignKeyConstraintPreventsModification", ConstraintCategory},
	FunctionConstraintPreventsModification:     {"FunctionConstraintPreventsModification", ConstraintCategory},
	NotNullConstraintPreventsModification:      {"NotNullConstraintPreventsModification", ConstraintCategory},
	PinnedConstraintPreventsModification:       {"PinnedConstraintPreventsModification", ConstraintCategory},
	PrimaryKeyConstraintPreventsModification:   {"PrimaryKeyConstraintPreventsModification", ConstraintCategory},
	RowIdConstraintPreventsModification:        {"RowIdConstraintPreventsModification", ConstraintCategory},
	TriggerConstraintPreventsModification:      {"TriggerConstraintPreventsModification", ConstraintCategory},
	UniqueConstraintPreventsModification:       {"UniqueConstraintPreventsModification", ConstraintCategory},
	VirtualTableConstraintPreventsModification: {"VirtualTableConstraintPreventsModification", ConstraintCategory},

	InputOutputError:                       {"InputOutputError", InputOutput},
	InputOutputCannotRead:                  {"InputOutputCannotRead", InputOutput},
	InputOutputCannotShortRead:             {"InputOutputCannotShortRead", InputOutput},
	InputOutputCannotWrite:                 {"InputOutputCannotWrite", InputOutput},
	InputOutputCannotSynchronizeFile:       {"InputOutputCannotSynchronizeFile", InputOutput},
	InputOutputCannotSynchronizeDirectory:  {"InputOutputCannotSynchronizeDirectory", InputOutput},
	InputOutputCannotTruncate:              {"InputOutputCannotTruncate", InputOutput},
	InputOutputCannotFstat:                 {"InputOutputCannotFstat", InputOutput},
	InputOutputCannotUnlock:                {"InputOutputCannotUnlock", InputOutput},
	InputOutputCannotReadLock:              {"InputOutputCannotReadLock", InputOutput},
	InputOutputCannotDelete:                {"InputOutputCannotDelete", InputOutput},
	InputOutputBlocked:                     {"InputOutputBlocked", InputOutput},
	InputOutputNoMemory:                    {"InputOutputNoMemory", InputOutput},
	InputOutputCannotAccess:                {"InputOutputCannotAccess", InputOutput},
	InputOutputCannotCheckReservedLock:     {"InputOutputCannotCheckReservedLock", InputOutput},
	InputOutputCannotLock:                  {"InputOutputCannotLock", InputOutput},
	InputOutputCannotClose:                 {"InputOutputCannotClose", InputOutput},
	InputOutputCannotCloseDirectory:        {"InputOutputCannotCloseDirectory", InputOutput},
	InputOutputCannotOpenSharedMemory:      {"InputOutputCannotOpenSharedMemory", InputOutput},
	InputOutputCannotEnlargeSharedMemory:   {"InputOutputCannotEnlargeSharedMemory", InputOutput},
	InputOutputCannotLockSharedMemory:      {"InputOutputCannotLockSharedMemory", InputOutput},
	InputOutputCannotMapSharedMemory:       {"InputOutputCannotMapSharedMemory", InputOutput},
	InputOutputCannotSeek:                  {"InputOutputCannotSeek", InputOutput},
	InputOutputCannotDeleteNonExistingFile: {"InputOutputCannotDeleteNonExistingFile", InputOutput},
	InputOutputCannotMemoryMap:             {"InputOutputCannotMemoryMap", InputOutput},
	InputOutputCannotGetTemporaryPath:      {"InputOutputCannotGetTemporaryPath", InputOutput},
	InputOutputConvPathFailed:              {"InputOutputConvPathFailed", InputOutput},
	InputOutputVNodeError:                  {"InputOutputVNodeError", InputOutput},
	InputOutputCannotAuthenticate:          {"InputOutputCannotAuthenticate", InputOutput},
	InputOutputCannotBeginAtomic:           {"InputOutputCannotBeginAtomic", InputOutput},
	InputOutputCannotCommitAtomic:          {"InputOutputCannotCommitAtomic", InputOutput},
	InputOutputCannotRollbackAtomic:        {"InputOutputCannotRollbackAtomic", InputOutput},
	InputOutputDataError:                   {"InputOutputDataError", InputOutput},
	InputOutputFileSystemIsCorrupt:         {"InputOutputFileSystemIsCorrupt", InputOutput},
	DatabaseIsCorrupt:                      {"DatabaseIsCorrupt", InputOutput},
	DatabaseIsCorruptVirtualTable:          {"DatabaseIsCorruptVirtualTable", InputOutput},
	DatabaseIsCorruptSequence:              {"DatabaseIsCorruptSequence", InputOutput},
	DatabaseIsCorruptIndex:                 {"DatabaseIsCorruptIndex", InputOutput},
	DatabaseExceedsMaximumFileSize:         {"DatabaseExceedsMaximumFileSize", InputOutput},
	DatabaseHasNoLargeFileSupport:          {"DatabaseHasNoLargeFileSupport", InputOutput},

	DatabaseFilePathIsEmpty:         {"DatabaseFilePathIsEmpty", Connection},
	DatabaseIsAlreadyOpen:           {"DatabaseIsAlreadyOpen", Connection},
	DatabaseIsAlreadyClosed:         {"DatabaseIsAlreadyClosed", Connection},
	DatabaseIsNotOpen:               {"DatabaseIsNotOpen", Connection},
	WrongFilePath:                   {"WrongFilePath", Connection},
	CannotOpen:                      {"CannotOpen", Connection},
	CannotOpenNoTemporaryDirectory:  {"CannotOpenNoTemporaryDirectory", Connection},
	CannotOpenIsDirectory:           {"CannotOpenIsDirectory", Connection},
	CannotOpenFullPath:              {"CannotOpenFullPath", Connection},
	CannotOpenConvPath:              {"CannotOpenConvPath", Connection},
	CannotOpenSymbolicLink:          {"CannotOpenSymbolicLink", Connection},
	NotADatabase:                    {"NotADatabase", Connection},
	ProtocolError:                   {"ProtocolError", Connection},
	PragmaValueNotSet:               {"PragmaValueNotSet", Connection},
	CannotWriteToReadOnlyConnection: {"CannotWriteToReadOnlyConnection", Connection},
	ReadOnlyRecovery:                {"ReadOnlyRecovery", Connection},
	ReadOnlyCannotLock:              {"ReadOnlyCannotLock", Connection},
	ReadOnlyRollback:                {"ReadOnlyRollback", Connection},
	ReadOnlyDatabaseMoved:           {"ReadOnlyDatabaseMoved", Connection},
	ReadOnlyCannotInitialize:        {"ReadOnlyCannotInitialize", Connection},
	ReadOnlyDirectory:               {"ReadOnlyDirectory", Connection},

	CannotConvert: {"CannotConvert", Conversion},

	CannotApplyChangeSet:          {"CannotApplyChangeSet", Session},
	ChangeSetIsMisused:            {"ChangeSetIsMisused", Session},
	CannotCreateChangeSetIterator: {"CannotCreateChangeSetIterator", Session},
	CannotGetChangeSetOperation:   {"CannotGetChangeSetOperation", Session},
	ChangeSetTupleIsOutOfRange:    {"ChangeSetTupleIsOutOfRange", Session},
	ChangeSetTupleIsMisused:       {"ChangeSetTupleIsMisused", Session},
}

func (k Kind) String() string {
	if info, ok := kindInfos[k]; ok {
		return info.name
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Category of the Kind.
func (k Kind) Category() Category { return kindInfos[k].category }

// Error is returned by all operations of this package which fail.
type Error struct {
	// Kind of the failure.
	Kind Kind
	// Code is the extended SQLite result code which produced this Error,
	// or zero if the Error didn't originate from the engine.
	Code int
	// Message of the engine (where available) or of this package.
	Message string
	// SQL text of the Statement which failed, if any.
	SQL string
	// Location ("file:line") at which the failed Statement was constructed, if known.
	Location string
}

func newError(kind Kind, code int, message string) *Error {
	var err = &Error{Kind: kind, Code: code, Message: message}
	errorsTotal.WithLabelValues(kind.Category().String()).Inc()
	return err
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("sqlite: ")
	b.WriteString(e.Kind.String())

	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.SQL != "" {
		b.WriteString(" (sql ")
		b.WriteString(strconv.Quote(e.SQL))
		b.WriteString(")")
	}
	if e.Location != "" {
		b.WriteString(" at ")
		b.WriteString(e.Location)
	}
	return b.String()
}

// Is matches any *Error target having the same Kind, which allows for
// errors.Is(err, &sqlite.Error{Kind: sqlite.DeadLock}).
func (e *Error) Is(target error) bool {
	var t, ok = target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the *Error within |err|'s chain, and whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return UnknownError, false
}

// IsKind is true if |err|'s chain includes an *Error of Kind |kind|.
func IsKind(err error, kind Kind) bool {
	var k, ok = KindOf(err)
	return ok && k == kind
}

// IsCategory is true if |err|'s chain includes an *Error of a Kind in Category |c|.
func IsCategory(err error, c Category) bool {
	var k, ok = KindOf(err)
	return ok && k.Category() == c
}
