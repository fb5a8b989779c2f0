package cupboard

import (
	"github.com/kartikbazzad/cupboard/internal/query"
	"github.com/kartikbazzad/cupboard/internal/storage"
)

// Op is a clause's binary predicate symbol, spec.md §4.5's (op, index-name, value).
type Op int

const (
	OpEq Op = iota
	OpLt
	OpLte
	OpGt
	OpGte
	OpCustom
)

// Predicate is a user-supplied predicate for an OpCustom clause, given
// an indexed field's encoded value and the clause's encoded comparison
// value.
type Predicate func(candidate, value []byte) bool

// Clause is one term of a query against a shelf's secondary indexes:
// spec.md §4.5's (op, index-name, value). Value is the raw field value
// the caller is comparing against (a string, int, float64, bool, ...);
// Query encodes it with the same byte-order-preserving scheme used to
// build the index itself.
type Clause struct {
	Op        Op
	IndexName string
	Value     interface{}
	Predicate Predicate
}

// DominatingClauseChooser selects which clause drives a range-join's
// single index-scan cursor. The default always picks the first clause
// (spec.md's own admitted v1 simplification); callers may supply a
// selectivity-estimating chooser instead without the planner itself
// changing shape.
type DominatingClauseChooser = query.DominatingClauseChooser

// QueryOptions configures Shelf.Query, spec.md §4.5's limit/txn/lock-mode.
type QueryOptions struct {
	Limit    int
	Txn      *Txn
	LockMode storage.LockMode
	Chooser  DominatingClauseChooser
}

// Row is one query result: a primary key and its raw stored value.
type Row = query.Row

// RowStream is the lazily consumed iterator Shelf.Query and
// Shelf.RetrieveByIndex (on any-indexes) both yield through. Callers
// must call Close, including on early abandonment, to release the
// underlying cursors.
type RowStream = query.RowStream
