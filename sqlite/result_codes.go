package sqlite

import (
	"strings"

	"zombiezen.com/go/sqlite"
)

// Result codes of the SQLite C ABI. Extended codes carry their primary code
// in the low byte.
const (
	codeError      = 1
	codeInternal   = 2
	codePerm       = 3
	codeAbort      = 4
	codeBusy       = 5
	codeLocked     = 6
	codeNoMem      = 7
	codeReadOnly   = 8
	codeInterrupt  = 9
	codeIOErr      = 10
	codeCorrupt    = 11
	codeNotFound   = 12
	codeFull       = 13
	codeCantOpen   = 14
	codeProtocol   = 15
	codeSchema     = 17
	codeTooBig     = 18
	codeConstraint = 19
	codeMismatch   = 20
	codeMisuse     = 21
	codeNoLFS      = 22
	codeAuth       = 23
	codeRange      = 25
	codeNotADB     = 26

	codeErrorMissingCollSeq = codeError | 1<<8
	codeErrorRetry          = codeError | 2<<8
	codeErrorSnapshot       = codeError | 3<<8

	codeIOErrRead             = codeIOErr | 1<<8
	codeIOErrShortRead        = codeIOErr | 2<<8
	codeIOErrWrite            = codeIOErr | 3<<8
	codeIOErrFsync            = codeIOErr | 4<<8
	codeIOErrDirFsync         = codeIOErr | 5<<8
	codeIOErrTruncate         = codeIOErr | 6<<8
	codeIOErrFstat            = codeIOErr | 7<<8
	codeIOErrUnlock           = codeIOErr | 8<<8
	codeIOErrRdLock           = codeIOErr | 9<<8
	codeIOErrDelete           = codeIOErr | 10<<8
	codeIOErrBlocked          = codeIOErr | 11<<8
	codeIOErrNoMem            = codeIOErr | 12<<8
	codeIOErrAccess           = codeIOErr | 13<<8
	codeIOErrCheckReserved    = codeIOErr | 14<<8
	codeIOErrLock             = codeIOErr | 15<<8
	codeIOErrClose            = codeIOErr | 16<<8
	codeIOErrDirClose         = codeIOErr | 17<<8
	codeIOErrShmOpen          = codeIOErr | 18<<8
	codeIOErrShmSize          = codeIOErr | 19<<8
	codeIOErrShmLock          = codeIOErr | 20<<8
	codeIOErrShmMap           = codeIOErr | 21<<8
	codeIOErrSeek             = codeIOErr | 22<<8
	codeIOErrDeleteNoEnt      = codeIOErr | 23<<8
	codeIOErrMmap             = codeIOErr | 24<<8
	codeIOErrGetTempPath      = codeIOErr | 25<<8
	codeIOErrConvPath         = codeIOErr | 26<<8
	codeIOErrVNode            = codeIOErr | 27<<8
	codeIOErrAuth             = codeIOErr | 28<<8
	codeIOErrBeginAtomic      = codeIOErr | 29<<8
	codeIOErrCommitAtomic     = codeIOErr | 30<<8
	codeIOErrRollbackAtomic   = codeIOErr | 31<<8
	codeIOErrData             = codeIOErr | 32<<8
	codeIOErrCorruptFS        = codeIOErr | 33<<8
	codeLockedSharedCache     = codeLocked | 1<<8
	codeLockedVTab            = codeLocked | 2<<8
	codeBusyRecovery          = codeBusy | 1<<8
	codeBusySnapshot          = codeBusy | 2<<8
	codeBusyTimeout           = codeBusy | 3<<8
	codeCantOpenNoTempDir     = codeCantOpen | 1<<8
	codeCantOpenIsDir         = codeCantOpen | 2<<8
	codeCantOpenFullPath      = codeCantOpen | 3<<8
	codeCantOpenConvPath      = codeCantOpen | 4<<8
	codeCantOpenSymlink       = codeCantOpen | 6<<8
	codeCorruptVTab           = codeCorrupt | 1<<8
	codeCorruptSequence       = codeCorrupt | 2<<8
	codeCorruptIndex          = codeCorrupt | 3<<8
	codeReadOnlyRecovery      = codeReadOnly | 1<<8
	codeReadOnlyCantLock      = codeReadOnly | 2<<8
	codeReadOnlyRollback      = codeReadOnly | 3<<8
	codeReadOnlyDBMoved       = codeReadOnly | 4<<8
	codeReadOnlyCantInit      = codeReadOnly | 5<<8
	codeReadOnlyDirectory     = codeReadOnly | 6<<8
	codeAbortRollback         = codeAbort | 2<<8
	codeConstraintCheck       = codeConstraint | 1<<8
	codeConstraintCommitHook  = codeConstraint | 2<<8
	codeConstraintForeignKey  = codeConstraint | 3<<8
	codeConstraintFunction    = codeConstraint | 4<<8
	codeConstraintNotNull     = codeConstraint | 5<<8
	codeConstraintPrimaryKey  = codeConstraint | 6<<8
	codeConstraintTrigger     = codeConstraint | 7<<8
	codeConstraintUnique      = codeConstraint | 8<<8
	codeConstraintVTab        = codeConstraint | 9<<8
	codeConstraintRowID       = codeConstraint | 10<<8
	codeConstraintPinned      = codeConstraint | 11<<8
	codeConstraintDataType    = codeConstraint | 12<<8
	codeAuthUser              = codeAuth | 1<<8
)

// resultKinds maps extended, and then primary, result codes onto Kinds.
var resultKinds = map[int]Kind{
	codeError:               StatementHasError,
	codeErrorMissingCollSeq: MissingCollatingSequence,
	codeErrorRetry:          StatementNeedsRetry,
	codeErrorSnapshot:       SnapshotIsUnavailable,
	codeInternal:            InternalError,
	codePerm:                PermissionDenied,
	codeAbort:               ExecutionToBeRolledBack,
	codeAbortRollback:       ExecutionToBeRolledBack,
	codeNoMem:               NoMemory,
	codeInterrupt:           ExecutionInterrupted,
	codeNotFound:            FileControlNotFound,
	codeSchema:              SchemeChangeError,
	codeTooBig:              TooBig,
	codeMismatch:            DataTypeMismatch,
	codeMisuse:              StatementIsMisused,
	codeRange:               BindingIndexIsOutOfRange,
	codeAuth:                AuthorizationDenied,
	codeAuthUser:            AuthorizationDenied,
	codeProtocol:            ProtocolError,
	codeNotADB:              NotADatabase,

	codeBusy:              StatementIsBusy,
	codeBusyRecovery:      DatabaseIsBusyRecovering,
	codeBusySnapshot:      DatabaseIsBusySnapshot,
	codeBusyTimeout:       DatabaseIsBusyTimeout,
	codeLocked:            DeadLock,
	codeLockedSharedCache: DeadLock,
	codeLockedVTab:        ConnectionsVirtualTableIsLocked,

	codeConstraint:           ConstraintPreventsModification,
	codeConstraintCheck:      CheckConstraintPreventsModification,
	codeConstraintCommitHook: CommitHookConstraintPreventsModification,
	codeConstraintForeignKey: ForeignKeyConstraintPreventsModification,
	codeConstraintFunction:   FunctionConstraintPreventsModification,
	codeConstraintNotNull:    NotNullConstraintPreventsModification,
	codeConstraintPrimaryKey: PrimaryKeyConstraintPreventsModification,
	codeConstraintTrigger:    TriggerConstraintPreventsModification,
	codeConstraintUnique:     UniqueConstraintPreventsModification,
	codeConstraintVTab:       VirtualTableConstraintPreventsModification,
	codeConstraintRowID:      RowIdConstraintPreventsModification,
	codeConstraintPinned:     PinnedConstraintPreventsModification,
	codeConstraintDataType:   DataTypeConstraintPreventsModification,

	codeIOErr:               InputOutputError,
	codeIOErrRead:           InputOutputCannotRead,
	codeIOErrShortRead:      InputOutputCannotShortRead,
	codeIOErrWrite:          InputOutputCannotWrite,
	codeIOErrFsync:          InputOutputCannotSynchronizeFile,
	codeIOErrDirFsync:       InputOutputCannotSynchronizeDirectory,
	codeIOErrTruncate:       InputOutputCannotTruncate,
	codeIOErrFstat:          InputOutputCannotFstat,
	codeIOErrUnlock:         InputOutputCannotUnlock,
	codeIOErrRdLock:         InputOutputCannotReadLock,
	codeIOErrDelete:         InputOutputCannotDelete,
	codeIOErrBlocked:        InputOutputBlocked,
	codeIOErrNoMem:          InputOutputNoMemory,
	codeIOErrAccess:         InputOutputCannotAccess,
	codeIOErrCheckReserved:  InputOutputCannotCheckReservedLock,
	codeIOErrLock:           InputOutputCannotLock,
	codeIOErrClose:          InputOutputCannotClose,
	codeIOErrDirClose:       InputOutputCannotCloseDirectory,
	codeIOErrShmOpen:        InputOutputCannotOpenSharedMemory,
	codeIOErrShmSize:        InputOutputCannotEnlargeSharedMemory,
	codeIOErrShmLock:        InputOutputCannotLockSharedMemory,
	codeIOErrShmMap:         InputOutputCannotMapSharedMemory,
	codeIOErrSeek:           InputOutputCannotSeek,
	codeIOErrDeleteNoEnt:    InputOutputCannotDeleteNonExistingFile,
	codeIOErrMmap:           InputOutputCannotMemoryMap,
	codeIOErrGetTempPath:    InputOutputCannotGetTemporaryPath,
	codeIOErrConvPath:       InputOutputConvPathFailed,
	codeIOErrVNode:          InputOutputVNodeError,
	codeIOErrAuth:           InputOutputCannotAuthenticate,
	codeIOErrBeginAtomic:    InputOutputCannotBeginAtomic,
	codeIOErrCommitAtomic:   InputOutputCannotCommitAtomic,
	codeIOErrRollbackAtomic: InputOutputCannotRollbackAtomic,
	codeIOErrData:           InputOutputDataError,
	codeIOErrCorruptFS:      InputOutputFileSystemIsCorrupt,
	codeCorrupt:             DatabaseIsCorrupt,
	codeCorruptVTab:         DatabaseIsCorruptVirtualTable,
	codeCorruptSequence:     DatabaseIsCorruptSequence,
	codeCorruptIndex:        DatabaseIsCorruptIndex,
	codeFull:                DatabaseExceedsMaximumFileSize,
	codeNoLFS:               DatabaseHasNoLargeFileSupport,

	codeCantOpen:          CannotOpen,
	codeCantOpenNoTempDir: CannotOpenNoTemporaryDirectory,
	codeCantOpenIsDir:     CannotOpenIsDirectory,
	codeCantOpenFullPath:  CannotOpenFullPath,
	codeCantOpenConvPath:  CannotOpenConvPath,
	codeCantOpenSymlink:   CannotOpenSymbolicLink,

	codeReadOnly:          CannotWriteToReadOnlyConnection,
	codeReadOnlyRecovery:  ReadOnlyRecovery,
	codeReadOnlyCantLock:  ReadOnlyCannotLock,
	codeReadOnlyRollback:  ReadOnlyRollback,
	codeReadOnlyDBMoved:   ReadOnlyDatabaseMoved,
	codeReadOnlyCantInit:  ReadOnlyCannotInitialize,
	codeReadOnlyDirectory: ReadOnlyDirectory,
}

// kindOfCode maps an extended result |code| onto its Kind, first by the
// extended code and then by its primary code.
func kindOfCode(code int) Kind {
	if k, ok := resultKinds[code]; ok {
		return k
	} else if k, ok = resultKinds[code&0xff]; ok {
		return k
	}
	return UnknownError
}

// errorFromNative maps an error returned by the native engine onto an *Error.
// Errors which already are an *Error pass through unchanged.
func errorFromNative(err error) *Error {
	if err == nil {
		return nil
	} else if e, ok := err.(*Error); ok {
		return e
	}
	var code = int(sqlite.ErrCode(err))
	return newError(kindOfCode(code), code, nativeMessage(err))
}

// nativeMessage strips the engine's "sqlite: " prefix from its error text.
func nativeMessage(err error) string {
	return strings.TrimPrefix(err.Error(), "sqlite: ")
}
