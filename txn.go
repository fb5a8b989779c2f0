package cupboard

import (
	"time"

	"github.com/kartikbazzad/cupboard/internal/storage"
	internaltxn "github.com/kartikbazzad/cupboard/internal/txn"
)

// IsolationLevel mirrors spec.md §4.4's supported transaction isolation levels.
type IsolationLevel = storage.IsolationLevel

const (
	ReadUncommitted = storage.ReadUncommitted
	ReadCommitted   = storage.ReadCommitted
	RepeatableRead  = storage.RepeatableRead
	Serializable    = storage.Serializable
)

// Txn is a handle to one in-flight (or finished) transaction, with a
// status observable as Open, Committed, or Aborted.
type Txn = storage.Txn

const (
	TxnOpen      = storage.TxnOpen
	TxnCommitted = storage.TxnCommitted
	TxnAborted   = storage.TxnAborted
)

// BeginOptions configures Begin, spec.md §4.4's begin(cb, {isolation, parent-txn}).
type BeginOptions = internaltxn.BeginOptions

// Begin starts a transaction against the cupboard's environment,
// defaulting isolation to repeatable-read.
func (cb *Cupboard) Begin(opts BeginOptions) (*Txn, error) {
	return internaltxn.Begin(cb.env, opts)
}

// Commit commits t. A nil t is a pass-through no-op.
func Commit(t *Txn) error { return internaltxn.Commit(t) }

// Rollback aborts t. A nil t is a pass-through no-op.
func Rollback(t *Txn) error { return internaltxn.Rollback(t) }

// WithTxnOptions configures WithTxn, spec.md §4.4's deadlock-retry block.
type WithTxnOptions struct {
	Isolation   IsolationLevel
	Parent      *Txn
	MaxAttempts int
	RetryDelay  time.Duration
}

// WithTxn runs body inside a transaction, retrying on Deadlock up to
// MaxAttempts times with a fixed delay between attempts, per spec.md
// §4.4. On exhaustion it returns a wrapped "deadlock: ..." error.
func (cb *Cupboard) WithTxn(opts WithTxnOptions, body func(t *Txn) error) error {
	err := internaltxn.WithTxn(cb.env, internaltxn.WithTxnOptions{
		Isolation:   opts.Isolation,
		Parent:      opts.Parent,
		MaxAttempts: opts.MaxAttempts,
		RetryDelay:  opts.RetryDelay,
		OnRetry:     cb.metrics.RecordDeadlockRetry,
	}, body)
	if err != nil && internaltxn.IsExhausted(err) {
		cb.metrics.RecordDeadlockExhausted()
	}
	return err
}
