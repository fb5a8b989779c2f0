package storage

import (
	"database/sql"
	"fmt"
)

// CompareOp is a range-scan comparator, per spec.md §6's comparison-fn
// contract for db-cursor-scan.
type CompareOp int

const (
	OpEq CompareOp = iota
	OpLt
	OpLte
	OpGt
	OpGte
)

// LockMode mirrors spec.md's lock-mode option threaded through cursor
// and transaction operations.
type LockMode int

const (
	LockReadUncommitted LockMode = iota
	LockReadCommitted
	LockSerializable
)

// SearchOptions configures CursorSearch (spec.md §6 db-cursor-search).
type SearchOptions struct {
	LockMode LockMode
}

// ScanOptions configures CursorScan (spec.md §6 db-cursor-scan).
type ScanOptions struct {
	Op       CompareOp
	LockMode LockMode
}

// Cursor streams (skey, pkey) pairs out of a secondary database, or
// (pkey, val) pairs out of a primary database, in storage-engine sort
// order. Callers must always reach CursorClose, including on abandoned
// iteration — spec.md's Invariant around guaranteed cursor release.
type Cursor struct {
	db   *DB
	txn  *Txn
	rows *sql.Rows
}

// CursorOpen allocates a cursor bound to db, not yet positioned.
func CursorOpen(db *DB, txn *Txn) (*Cursor, error) {
	return &Cursor{db: db, txn: txn}, nil
}

// CursorClose releases the cursor's open result set, if any. Safe to
// call more than once and safe to call on a cursor that was never
// positioned by Search or Scan.
func CursorClose(c *Cursor) error {
	if c == nil || c.rows == nil {
		return nil
	}
	err := c.rows.Close()
	c.rows = nil
	return wrapStorageErr("cursor-close", err)
}

// CursorSearch positions c at every pkey registered under skey (for a
// secondary database) — the equality lookup behind exact-match clauses
// in the query engine's natural join.
func CursorSearch(c *Cursor, skey []byte, opts SearchOptions) error {
	conn := c.db.env.conn(c.txn)
	q := fmt.Sprintf(`SELECT skey, pkey FROM %s WHERE skey = ? ORDER BY pkey`, quoteIdent(c.db.name))
	rows, err := conn.Query(q, skey)
	if err != nil {
		return wrapStorageErr("cursor-search", err)
	}
	c.rows = rows
	return nil
}

// CursorScan positions c at the first secondary key satisfying
// op relative to start, streaming onward in storage-engine order — the
// range lookup behind inequality clauses in the query engine's range join.
func CursorScan(c *Cursor, start []byte, opts ScanOptions) error {
	var cmp, order string
	switch opts.Op {
	case OpGte:
		cmp, order = ">=", "ASC"
	case OpGt:
		cmp, order = ">", "ASC"
	case OpLte:
		cmp, order = "<=", "DESC"
	case OpLt:
		cmp, order = "<", "DESC"
	default:
		cmp, order = "=", "ASC"
	}
	q := fmt.Sprintf(`SELECT skey, pkey FROM %s WHERE skey %s ? ORDER BY skey %s, pkey ASC`,
		quoteIdent(c.db.name), cmp, order)
	rows, err := conn(c).Query(q, start)
	if err != nil {
		return wrapStorageErr("cursor-scan", err)
	}
	c.rows = rows
	return nil
}

// CursorScanAll positions c over every entry in the database: (skey, pkey)
// pairs in secondary-key order for a secondary database, (pkey, val) pairs
// in primary-key order for a primary database.
func CursorScanAll(c *Cursor) error {
	q := fmt.Sprintf(`SELECT skey, pkey FROM %s ORDER BY skey ASC, pkey ASC`, quoteIdent(c.db.name))
	if c.db.kind == KindPrimary {
		q = fmt.Sprintf(`SELECT pkey, val FROM %s ORDER BY pkey ASC`, quoteIdent(c.db.name))
	}
	rows, err := conn(c).Query(q)
	if err != nil {
		return wrapStorageErr("cursor-scan", err)
	}
	c.rows = rows
	return nil
}

func conn(c *Cursor) execQueryer {
	return c.db.env.conn(c.txn)
}

// CursorNext advances c and returns the next (skey, pkey) pair, per
// spec.md §6's lazy-sequence contract: ok is false once the cursor is
// exhausted, at which point the caller is still responsible for CursorClose.
func CursorNext(c *Cursor) (skey, pkey []byte, ok bool, err error) {
	if c.rows == nil {
		return nil, nil, false, nil
	}
	if !c.rows.Next() {
		return nil, nil, false, wrapStorageErr("cursor-next", c.rows.Err())
	}
	if err := c.rows.Scan(&skey, &pkey); err != nil {
		return nil, nil, false, wrapStorageErr("cursor-next", err)
	}
	return skey, pkey, true, nil
}
