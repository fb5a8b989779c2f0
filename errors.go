package cupboard

import cuperrors "github.com/kartikbazzad/cupboard/internal/errors"

// Kind identifies one of the five error categories spec.md §7 names:
// invalid-argument, io-error, storage-error, deadlock, transaction-closed.
type Kind = cuperrors.Kind

const (
	InvalidArgument   = cuperrors.InvalidArgument
	IoError           = cuperrors.IoError
	StorageError      = cuperrors.StorageError
	Deadlock          = cuperrors.Deadlock
	TransactionClosed = cuperrors.TransactionClosed
)

// Error is the concrete error type every operation in this package
// returns its failures as. Callers compare by kind with errors.Is
// against the sentinels below, or recover the kind directly with
// KindOf.
type Error = cuperrors.Error

// KindOf reports the Kind of err, or false if err is not (or does not
// wrap) a cupboard Error.
func KindOf(err error) (Kind, bool) { return cuperrors.KindOf(err) }

// IsDeadlock reports whether err represents lock contention that a
// with-txn retry loop should treat as spec.md's Deadlock kind.
func IsDeadlock(err error) bool { return cuperrors.IsDeadlock(err) }

// Sentinel errors for conditions named directly in spec.md, comparable
// with errors.Is.
var (
	ErrReservedShelfName = cuperrors.ErrReservedShelfName
	ErrUnindexedField    = cuperrors.ErrUnindexedField
	ErrShelfNotFound     = cuperrors.ErrShelfNotFound
	ErrIndexNotFound     = cuperrors.ErrIndexNotFound
	ErrDirIsFile         = cuperrors.ErrDirIsFile
	ErrTxnNotOpen        = cuperrors.ErrTxnNotOpen
	ErrRemoveFailed      = cuperrors.ErrRemoveFailed
	ErrPutFailed         = cuperrors.ErrPutFailed
)
