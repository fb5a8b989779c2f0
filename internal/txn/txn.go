// Package txn implements spec.md §4.4: transaction lifecycle plus the
// bounded deadlock-retry block with-txn wraps around it.
package txn

import (
	stderrors "errors"
	"fmt"
	"time"

	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"
	"github.com/kartikbazzad/cupboard/internal/storage"
)

// Status is the public spelling of a transaction's lifecycle state,
// observable as :open, :committed, :aborted per spec.md §4.4.
type Status = storage.TxnStatus

const (
	Open      = storage.TxnOpen
	Committed = storage.TxnCommitted
	Aborted   = storage.TxnAborted
)

// Txn is a handle to one in-flight (or finished) transaction.
type Txn = storage.Txn

// BeginOptions configures Begin, spec.md §4.4's begin(cb, {isolation, parent-txn}).
type BeginOptions struct {
	Isolation storage.IsolationLevel
	Parent    *Txn
}

// Begin starts a transaction against env, defaulting isolation to
// repeatable-read per spec.md §4.4.
func Begin(env *storage.Env, opts BeginOptions) (*Txn, error) {
	return storage.TxnBegin(env, storage.TxnOptions{Isolation: opts.Isolation, Parent: opts.Parent})
}

// Commit commits t. A nil txn means "no transaction in force" and is a
// pass-through no-op, per spec.md §4.4.
func Commit(t *Txn) error {
	if t == nil {
		return nil
	}
	if t.Status() != Open {
		return cuperrors.ErrTxnNotOpen
	}
	return storage.TxnCommit(t, storage.CommitOptions{})
}

// Rollback aborts t. A nil txn is a pass-through no-op.
func Rollback(t *Txn) error {
	if t == nil {
		return nil
	}
	if t.Status() != Open {
		return cuperrors.ErrTxnNotOpen
	}
	return storage.TxnAbort(t)
}

// WithTxnOptions configures WithTxn, spec.md §4.4's deadlock-retry block.
type WithTxnOptions struct {
	Isolation     storage.IsolationLevel
	Parent        *Txn
	MaxAttempts   int           // default 1
	RetryDelay    time.Duration // default 50ms

	// OnRetry, if set, is called once per deadlock-triggered retry
	// (never on the final exhausted attempt), letting callers count
	// retries without this package depending on a metrics type.
	OnRetry func()
}

const (
	defaultMaxAttempts = 1
	defaultRetryDelay  = 50 * time.Millisecond
)

// WithTxn runs body inside a transaction, retrying on Deadlock up to
// MaxAttempts times with a fixed delay between attempts (not
// exponential backoff — spec.md's testable property 7 requires exactly
// MaxAttempts-1 retries for a deterministic deadlock, which a fixed
// delay makes exactly countable). Every exit path commits or rolls
// back exactly once.
func WithTxn(env *storage.Env, opts WithTxnOptions, body func(t *Txn) error) error {
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		t, err := Begin(env, BeginOptions{Isolation: opts.Isolation, Parent: opts.Parent})
		if err != nil {
			return err
		}

		bodyErr := body(t)

		if bodyErr == nil && t.Status() == Open {
			bodyErr = storage.TxnCommit(t, storage.CommitOptions{})
		}

		if bodyErr == nil {
			return nil
		}

		_ = storage.TxnAbort(t)

		if !cuperrors.IsDeadlock(bodyErr) {
			return bodyErr
		}

		lastErr = bodyErr
		if attempt < maxAttempts {
			if opts.OnRetry != nil {
				opts.OnRetry()
			}
			time.Sleep(delay)
			continue
		}
	}

	return cuperrors.New(cuperrors.StorageError, exhaustedOp,
		fmt.Errorf("deadlock: exhausted %d attempt(s): %w", maxAttempts, lastErr))
}

// exhaustedOp tags the error WithTxn returns when deadlock retries are
// exhausted, distinguishing it from any other error a body or Begin may
// return (IsExhausted matches on this Op).
const exhaustedOp = "with-txn-exhausted"

// IsExhausted reports whether err is the specific error WithTxn returns
// after exhausting every deadlock retry, as opposed to a plain body
// error or a non-deadlock failure.
func IsExhausted(err error) bool {
	var e *cuperrors.Error
	if !stderrors.As(err, &e) {
		return false
	}
	return e.Op == exhaustedOp
}
