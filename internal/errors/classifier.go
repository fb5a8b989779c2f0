package errors

import (
	"errors"
	"strings"
	"syscall"
)

// ErrorCategory represents the category of an error for retry logic used
// by the opener pool (internal/pool) when reopening shelves/indices —
// distinct from the Deadlock Kind used by the transaction supervisor's
// deadlock-retry block.
type ErrorCategory int

const (
	ErrorTransient ErrorCategory = iota // Temporary errors - retry with backoff
	ErrorPermanent                      // Permanent errors - no retry
	ErrorCritical                       // System-level errors - alert immediately
	ErrorValidation                     // Data validation errors - no retry
	ErrorNetwork                        // Network-related - retry with backoff
)

// Classifier categorizes errors for intelligent retry logic.
type Classifier struct{}

// NewClassifier creates a new error classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify determines the category of an error.
func (c *Classifier) Classify(err error) ErrorCategory {
	if err == nil {
		return ErrorPermanent // Should not happen, but safe default
	}

	var sysErr syscall.Errno
	if errors.As(err, &sysErr) {
		switch sysErr {
		case syscall.EAGAIN, syscall.ENOMEM, syscall.ETIMEDOUT:
			return ErrorTransient
		case syscall.ENOENT, syscall.EINVAL, syscall.EEXIST:
			return ErrorPermanent
		case syscall.EIO, syscall.ENOSPC:
			return ErrorCritical
		}
	}

	if IsDeadlock(err) {
		return ErrorTransient
	}

	var e *Error
	if errors.As(err, &e) {
		switch e.Kind {
		case InvalidArgument, TransactionClosed:
			return ErrorPermanent
		case IoError:
			return ErrorCritical
		case StorageError:
			return ErrorTransient
		}
	}

	return ErrorPermanent
}

// ShouldRetry returns true if the error category indicates retry is appropriate.
func (c *Classifier) ShouldRetry(category ErrorCategory) bool {
	return category == ErrorTransient || category == ErrorNetwork
}

// IsCritical returns true if the error requires immediate attention.
func (c *Classifier) IsCritical(category ErrorCategory) bool {
	return category == ErrorCritical
}

// deadlockSubstrings are the substrings modernc.org/sqlite's driver errors
// contain when a transaction cannot acquire a lock. The driver does not
// expose a typed error code through database/sql, so classification here
// matches on message text. The storage adapter's wrapStorageErr
// (internal/storage/db.go) calls IsDeadlock to tag such errors Deadlock.
var deadlockSubstrings = []string{
	"database is locked",
	"database table is locked",
	"SQLITE_BUSY",
	"SQLITE_LOCKED",
}

// IsDeadlock reports whether err represents a lock-contention failure
// from the storage engine that the transaction supervisor should treat
// as spec.md's Deadlock kind.
func IsDeadlock(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) && e.Kind == Deadlock {
		return true
	}
	msg := err.Error()
	for _, s := range deadlockSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
