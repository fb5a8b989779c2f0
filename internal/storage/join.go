package storage

import "bytes"

// JoinCursor merges N cursors, each already streaming pkeys in
// ascending order for one equality clause, into their sorted
// intersection — the natural-join strategy of spec.md §4.5. It is a
// classic sort-merge join: every clause already produced its stream in
// pkey order via CursorSearch, so no additional sorting or buffering
// of the full result set is required.
type JoinCursor struct {
	cursors []*Cursor
	heads   [][]byte
	valid   []bool
}

// JoinCursorOpen primes the merge by reading one row from every cursor.
func JoinCursorOpen(cursors []*Cursor) (*JoinCursor, error) {
	jc := &JoinCursor{
		cursors: cursors,
		heads:   make([][]byte, len(cursors)),
		valid:   make([]bool, len(cursors)),
	}
	for i, c := range cursors {
		_, pkey, ok, err := CursorNext(c)
		if err != nil {
			return nil, err
		}
		jc.heads[i] = pkey
		jc.valid[i] = ok
	}
	return jc, nil
}

// JoinCursorNext returns the next pkey present in every underlying
// cursor's stream, or ok=false once any stream is exhausted (the
// intersection cannot grow further).
func JoinCursorNext(jc *JoinCursor) (pkey []byte, ok bool, err error) {
	for {
		for _, v := range jc.valid {
			if !v {
				return nil, false, nil
			}
		}

		max := jc.heads[0]
		for _, h := range jc.heads[1:] {
			if bytes.Compare(h, max) > 0 {
				max = h
			}
		}

		allEqual := true
		for i, h := range jc.heads {
			if bytes.Equal(h, max) {
				continue
			}
			allEqual = false
			for jc.valid[i] && bytes.Compare(jc.heads[i], max) < 0 {
				_, next, ok, err := CursorNext(jc.cursors[i])
				if err != nil {
					return nil, false, err
				}
				jc.heads[i] = next
				jc.valid[i] = ok
			}
		}

		if allEqual {
			result := max
			for i, c := range jc.cursors {
				_, next, ok, err := CursorNext(c)
				if err != nil {
					return nil, false, err
				}
				jc.heads[i] = next
				jc.valid[i] = ok
			}
			return result, true, nil
		}
	}
}

// JoinCursorClose closes every cursor the join was built from.
func JoinCursorClose(jc *JoinCursor) error {
	var firstErr error
	for _, c := range jc.cursors {
		if err := CursorClose(c); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
