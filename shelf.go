package cupboard

import (
	"strings"
	"time"

	"github.com/kartikbazzad/cupboard/internal/config"
	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"
	"github.com/kartikbazzad/cupboard/internal/indexkey"
	"github.com/kartikbazzad/cupboard/internal/metrics"
	"github.com/kartikbazzad/cupboard/internal/query"
	"github.com/kartikbazzad/cupboard/internal/shelf"
	"github.com/kartikbazzad/cupboard/internal/storage"
)

// errClassifier categorizes a failed operation's error for the
// cupboard_errors_total metric.
var errClassifier = cuperrors.NewClassifier()

// ShelfOptions is the caller-settable option set for GetShelf, spec.md
// §4.2's recognized option (read-only) plus force-reopen.
type ShelfOptions = config.ShelfOptions

// IndexOptions is the caller-settable option set for a shelf's GetIndex.
type IndexOptions = config.IndexOptions

// Shelf is a handle to one open primary record collection and its
// currently open secondary indexes.
type Shelf struct {
	inner    *shelf.Shelf
	metrics  *metrics.Exporter
	errTrack *cuperrors.ErrorTracker
}

// GetShelf implements spec.md §4.2 get-shelf: returns the already-open
// shelf if one exists, otherwise opens (creating if necessary) the
// primary database for name and reopens every index previously
// registered under it.
func (cb *Cupboard) GetShelf(name string, opts ShelfOptions) (*Shelf, error) {
	start := time.Now()
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if opts.ForceReopen {
		if sh, ok := cb.shelves[name]; ok {
			sh.Close(false)
			delete(cb.shelves, name)
		}
	}

	if sh, ok := cb.shelves[name]; ok {
		cb.recordOp("get-shelf", start, nil)
		return &Shelf{inner: sh, metrics: cb.metrics, errTrack: cb.errTrack}, nil
	}

	sh, err := shelf.Open(cb.env, cb.cat, name, opts)
	if err != nil {
		cb.recordOp("get-shelf", start, err)
		return nil, err
	}
	cb.shelves[name] = sh

	if names, err := storage.DatabaseNames(cb.env); err == nil {
		_ = cb.openDiscoveredIndices(sh, names)
	}

	cb.recordOp("get-shelf", start, nil)
	return &Shelf{inner: sh, metrics: cb.metrics, errTrack: cb.errTrack}, nil
}

// CloseShelf implements spec.md §4.2 close-shelf.
func (cb *Cupboard) CloseShelf(name string, remove bool) error {
	start := time.Now()
	cb.mu.Lock()
	defer cb.mu.Unlock()

	sh, ok := cb.shelves[name]
	if !ok {
		cb.recordOp("close-shelf", start, cuperrors.ErrShelfNotFound)
		return cuperrors.ErrShelfNotFound
	}
	if err := sh.Close(remove); err != nil {
		cb.recordOp("close-shelf", start, err)
		return err
	}
	delete(cb.shelves, name)
	cb.recordOp("close-shelf", start, nil)
	return nil
}

// RemoveShelf implements spec.md §4.2 remove-shelf: close-shelf with remove=true.
func (cb *Cupboard) RemoveShelf(name string) error {
	return cb.CloseShelf(name, true)
}

// Name returns the shelf's name.
func (s *Shelf) Name() string { return s.inner.Name() }

// GetIndex implements spec.md §4.2 get-index: opens (or returns
// already-open) the secondary database for indexName.
func (s *Shelf) GetIndex(indexName string, opts IndexOptions) error {
	_, err := s.inner.OpenIndex(indexName, opts)
	return err
}

// CloseIndex closes an open secondary index, optionally removing it.
func (s *Shelf) CloseIndex(indexName string, remove bool) error {
	return s.inner.CloseIndex(indexName, remove)
}

// IndexNames lists every index currently open on this shelf.
func (s *Shelf) IndexNames() []string { return s.inner.IndexNames() }

// Save implements spec.md §4.6 save.
func (s *Shelf) Save(rec *Record, t *Txn) error {
	start := time.Now()
	err := s.inner.Save(rec, t)
	s.record("save", start, err)
	return err
}

// Retrieve fetches a record directly by primary key.
func (s *Shelf) Retrieve(primaryKey string, t *Txn) (*Record, bool, error) {
	start := time.Now()
	rec, ok, err := s.inner.Retrieve([]byte(primaryKey), t)
	s.record("retrieve", start, err)
	return rec, ok, err
}

// RetrieveByIndex implements spec.md §4.6 retrieve(index-name, value, ...).
func (s *Shelf) RetrieveByIndex(indexName string, value interface{}, t *Txn) ([]*Record, error) {
	start := time.Now()
	recs, err := s.inner.RetrieveByIndex(indexName, value, t)
	s.record("retrieve-by-index", start, err)
	return recs, err
}

// Delete implements spec.md §4.6/§9 delete: removes rec's primary entry
// and every secondary association pointing at it.
func (s *Shelf) Delete(rec *Record, t *Txn) error {
	start := time.Now()
	err := s.inner.Delete(rec, t)
	s.record("delete", start, err)
	return err
}

// Query implements spec.md §4.5: runs clauses through the natural-join
// or range-join planner, returning a lazily consumed RowStream that the
// caller must Close.
func (s *Shelf) Query(clauses []Clause, opts QueryOptions) (RowStream, error) {
	start := time.Now()
	internalClauses, err := toInternalClauses(clauses)
	if err != nil {
		s.record("query", start, err)
		return nil, err
	}
	stream, err := s.inner.Query(internalClauses, query.Options{
		Limit:    opts.Limit,
		Txn:      opts.Txn,
		LockMode: opts.LockMode,
		Chooser:  opts.Chooser,
	})
	s.record("query", start, err)
	return stream, err
}

// record reports op's outcome and latency, plus an error-category
// count when op failed, to the cupboard's metrics exporter. s.metrics
// is nil for a Shelf built before GetShelf wired it up (none in
// practice), in which case recording is a silent no-op.
func (s *Shelf) record(op string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		category := errClassifier.Classify(err)
		s.metrics.RecordError(category)
		if s.errTrack != nil {
			s.errTrack.RecordError(err, category)
		}
	}
	s.metrics.RecordOperation(op, status, time.Since(start))
}

func toInternalClauses(clauses []Clause) ([]query.Clause, error) {
	out := make([]query.Clause, len(clauses))
	for i, c := range clauses {
		enc, err := indexkey.Encode(c.Value)
		if err != nil {
			return nil, err
		}
		out[i] = query.Clause{Op: query.Op(c.Op), IndexName: c.IndexName, Value: enc, Predicate: query.Predicate(c.Predicate)}
	}
	return out, nil
}

// reservedSeparator documents the ':' character reserved for
// "<shelf>:<index>" composite names, per spec.md §4.2.
const reservedSeparator = ":"

func isReservedShelfName(name string) bool {
	return name == shelf.ReservedCatalogName || strings.Contains(name, reservedSeparator)
}
