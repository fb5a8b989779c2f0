package storage

import (
	"context"
	"database/sql"
	"sync"

	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"
)

// IsolationLevel mirrors spec.md §4.4's supported transaction isolation levels.
// RepeatableRead is the zero value, so a transaction begun without an
// explicit level runs at repeatable-read.
type IsolationLevel int

const (
	RepeatableRead IsolationLevel = iota
	ReadUncommitted
	ReadCommitted
	Serializable
)

func (l IsolationLevel) sqlLevel() sql.IsolationLevel {
	switch l {
	case ReadUncommitted:
		return sql.LevelReadUncommitted
	case ReadCommitted:
		return sql.LevelReadCommitted
	case RepeatableRead, Serializable:
		// modernc.org/sqlite serializes all writers regardless of the
		// requested isolation level; Serializable is the closest stdlib
		// level and is what every write transaction actually gets.
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

// TxnStatus is the lifecycle state of a Txn.
type TxnStatus int

const (
	TxnOpen TxnStatus = iota
	TxnCommitted
	TxnAborted
)

// TxnOptions configures TxnBegin (spec.md §6 txn-begin).
type TxnOptions struct {
	Isolation IsolationLevel
	// Parent records the logical parent of a nested begin for
	// observability. modernc.org/sqlite has no savepoint-based nested
	// transaction support exposed through database/sql, and spec.md's
	// deadlock-retry block always begins a fresh top-level transaction
	// rather than a savepoint, so Parent is informational only.
	Parent *Txn
}

// Txn wraps one storage-engine transaction.
type Txn struct {
	mu     sync.Mutex
	tx     *sql.Tx
	status TxnStatus
	env    *Env
	parent *Txn
}

// TxnBegin starts a new transaction against env.
func TxnBegin(env *Env, opts TxnOptions) (*Txn, error) {
	tx, err := env.sqlDB.BeginTx(context.Background(), &sql.TxOptions{Isolation: opts.Isolation.sqlLevel()})
	if err != nil {
		return nil, wrapStorageErr("txn-begin", err)
	}
	return &Txn{tx: tx, status: TxnOpen, env: env, parent: opts.Parent}, nil
}

// Status returns the transaction's current lifecycle state.
func (t *Txn) Status() TxnStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// CommitOptions configures TxnCommit (spec.md §6 txn-commit).
type CommitOptions struct {
	Sync bool
}

// TxnCommit commits t. A failed commit (including one caused by lock
// contention detected only at commit time) leaves t Aborted.
func TxnCommit(t *Txn, opts CommitOptions) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TxnOpen {
		return cuperrors.ErrTxnNotOpen
	}
	if err := t.tx.Commit(); err != nil {
		t.status = TxnAborted
		return wrapStorageErr("txn-commit", err)
	}
	t.status = TxnCommitted
	return nil
}

// TxnAbort rolls t back. Idempotent: aborting an already-closed
// transaction is a no-op, since cleanup paths commonly defer an abort
// after a successful commit.
func TxnAbort(t *Txn) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status != TxnOpen {
		return nil
	}
	err := t.tx.Rollback()
	t.status = TxnAborted
	return wrapStorageErr("txn-abort", err)
}
