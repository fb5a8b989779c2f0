package query

import (
	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"
	"github.com/kartikbazzad/cupboard/internal/storage"
)

// Execute plans and runs clauses against resolver, returning a lazily
// consumed RowStream. Callers must Close the stream whether or not it
// was exhausted.
func Execute(resolver IndexResolver, clauses []Clause, opts Options) (RowStream, error) {
	if len(clauses) == 0 {
		return &emptyStream{}, nil
	}
	if IsNaturalJoin(clauses) {
		return executeNaturalJoin(resolver, clauses, opts)
	}
	return executeRangeJoin(resolver, clauses, opts)
}

type emptyStream struct{}

func (emptyStream) Next() (Row, bool, error) { return Row{}, false, nil }
func (emptyStream) Close() error              { return nil }

// executeNaturalJoin opens one index cursor per equality clause,
// positions each at its value, and merge-intersects the resulting pkey
// streams through a storage.JoinCursor (the k-way-intersection analog
// of the teacher's k-way-union query.KWayMerger).
func executeNaturalJoin(resolver IndexResolver, clauses []Clause, opts Options) (RowStream, error) {
	cursors := make([]*storage.Cursor, 0, len(clauses))
	closeAll := func() {
		for _, c := range cursors {
			storage.CursorClose(c)
		}
	}

	for _, clause := range clauses {
		idxDB, ok := resolver.Index(clause.IndexName)
		if !ok {
			closeAll()
			return nil, cuperrors.ErrIndexNotFound
		}
		cur, err := storage.CursorOpen(idxDB, opts.Txn)
		if err != nil {
			closeAll()
			return nil, err
		}
		if err := storage.CursorSearch(cur, clause.Value, storage.SearchOptions{LockMode: opts.LockMode}); err != nil {
			storage.CursorClose(cur)
			closeAll()
			return nil, err
		}
		cursors = append(cursors, cur)
	}

	jc, err := storage.JoinCursorOpen(cursors)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &naturalJoinStream{
		resolver: resolver,
		jc:       jc,
		limit:    opts.Limit,
		txn:      opts.Txn,
	}, nil
}

type naturalJoinStream struct {
	resolver IndexResolver
	jc       *storage.JoinCursor
	txn      *storage.Txn
	limit    int
	yielded  int
	closed   bool
}

func (s *naturalJoinStream) Next() (Row, bool, error) {
	if s.closed {
		return Row{}, false, nil
	}
	if s.limit > 0 && s.yielded >= s.limit {
		return Row{}, false, nil
	}
	pkey, ok, err := storage.JoinCursorNext(s.jc)
	if err != nil || !ok {
		return Row{}, false, err
	}
	val, found, err := storage.DBGet(s.resolver.Primary(), pkey, s.txn)
	if err != nil {
		return Row{}, false, err
	}
	if !found {
		// Index pointed at a primary key no longer present; skip it
		// rather than surface an inconsistency to the caller.
		return s.Next()
	}
	s.yielded++
	return Row{PrimaryKey: pkey, Value: val}, true, nil
}

func (s *naturalJoinStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return storage.JoinCursorClose(s.jc)
}

// executeRangeJoin scans the dominating clause's index (the first
// clause, a known simplification spec.md §9 calls out) and filters
// every candidate against every clause before yielding it.
func executeRangeJoin(resolver IndexResolver, clauses []Clause, opts Options) (RowStream, error) {
	chooser := opts.Chooser
	if chooser == nil {
		chooser = FirstClauseChooser{}
	}
	dominatingIdx := chooser.Choose(clauses)
	dominating := clauses[dominatingIdx]
	idxDB, ok := resolver.Index(dominating.IndexName)
	if !ok {
		return nil, cuperrors.ErrIndexNotFound
	}
	cur, err := storage.CursorOpen(idxDB, opts.Txn)
	if err != nil {
		return nil, err
	}

	if dominating.Op == OpCustom {
		if err := storage.CursorScanAll(cur); err != nil {
			storage.CursorClose(cur)
			return nil, err
		}
	} else {
		scanOpts := storage.ScanOptions{Op: dominating.scanOp(), LockMode: opts.LockMode}
		if err := storage.CursorScan(cur, dominating.Value, scanOpts); err != nil {
			storage.CursorClose(cur)
			return nil, err
		}
	}

	return &rangeJoinStream{
		resolver:      resolver,
		cursor:        cur,
		clauses:       clauses,
		dominatingIdx: dominatingIdx,
		limit:         opts.Limit,
		txn:           opts.Txn,
	}, nil
}

type rangeJoinStream struct {
	resolver      IndexResolver
	cursor        *storage.Cursor
	clauses       []Clause
	dominatingIdx int
	txn           *storage.Txn
	limit         int
	yielded       int
	closed        bool
}

func (s *rangeJoinStream) Next() (Row, bool, error) {
	if s.closed {
		return Row{}, false, nil
	}
	for {
		if s.limit > 0 && s.yielded >= s.limit {
			return Row{}, false, nil
		}
		skey, pkey, ok, err := storage.CursorNext(s.cursor)
		if err != nil || !ok {
			return Row{}, false, err
		}

		// The universal-filter property (spec.md §8 invariant 6): every
		// clause, not just the dominating one, must accept the candidate.
		if !s.clauses[s.dominatingIdx].matches(skey) {
			continue
		}

		val, found, err := storage.DBGet(s.resolver.Primary(), pkey, s.txn)
		if err != nil {
			return Row{}, false, err
		}
		if !found {
			continue
		}

		if len(s.clauses) > 1 {
			ok, err := s.satisfiesRemaining(val)
			if err != nil {
				return Row{}, false, err
			}
			if !ok {
				continue
			}
		}

		s.yielded++
		return Row{PrimaryKey: pkey, Value: val}, true, nil
	}
}

func (s *rangeJoinStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return storage.CursorClose(s.cursor)
}
