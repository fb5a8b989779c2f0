// Package shelf implements spec.md §4.2's shelf and index management
// and §4.6's save/retrieve/delete operations, wiring together the
// catalog, the storage adapter, and the query engine.
package shelf

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/kartikbazzad/cupboard/internal/catalog"
	"github.com/kartikbazzad/cupboard/internal/config"
	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"
	"github.com/kartikbazzad/cupboard/internal/indexkey"
	"github.com/kartikbazzad/cupboard/internal/query"
	"github.com/kartikbazzad/cupboard/internal/record"
	"github.com/kartikbazzad/cupboard/internal/storage"
)

// ReservedCatalogName is spec.md's reserved name for the catalog's own table.
const ReservedCatalogName = "_shelves"

// DefaultShelfName is the shelf spec.md §4.1 eagerly opens in a new cupboard.
const DefaultShelfName = "_default"

// ValidateName rejects names spec.md §4.2 reserves: the catalog's own
// name, any name containing ':' (the shelf:index separator), and any
// name that would be unsafe as a raw SQL identifier (path separators,
// "..", null bytes, invalid UTF-8, or an over-long name) per
// catalog.ValidateDBName.
func ValidateName(name string) error {
	if name == ReservedCatalogName || strings.Contains(name, ":") {
		return cuperrors.ErrReservedShelfName
	}
	if err := catalog.ValidateDBName(name); err != nil {
		return cuperrors.New(cuperrors.InvalidArgument, "validate-name", err)
	}
	return nil
}

// Shelf is one open primary database plus its open secondary indexes.
// It implements query.IndexResolver so the query engine can plan
// against it without importing this package.
type Shelf struct {
	mu       sync.RWMutex
	env      *storage.Env
	cat      *catalog.Catalog
	name     string
	primary  *storage.DB
	indexes  map[string]*storage.DB
	readOnly bool
}

// Open opens (creating if absent) the primary table for name, merging
// stored catalog options with the caller's, per spec.md §4.2 get-shelf.
func Open(env *storage.Env, cat *catalog.Catalog, name string, opts config.ShelfOptions) (*Shelf, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	readOnly := opts.ReadOnly
	if entry, ok := cat.Get(name); ok {
		var stored config.ShelfOptions
		if err := json.Unmarshal(entry.Options, &stored); err == nil {
			readOnly = stored.ReadOnly
		}
	}

	primary, err := storage.DBOpen(env, name, storage.DBOpenOptions{AllowCreate: true, ReadOnly: readOnly})
	if err != nil {
		return nil, err
	}

	if _, err := cat.Put(name, catalog.KindShelf, config.ShelfOptions{ReadOnly: readOnly}); err != nil {
		storage.DBClose(primary)
		return nil, err
	}

	return &Shelf{
		env:      env,
		cat:      cat,
		name:     name,
		primary:  primary,
		indexes:  make(map[string]*storage.DB),
		readOnly: readOnly,
	}, nil
}

// Name returns the shelf's name.
func (s *Shelf) Name() string { return s.name }

// Primary implements query.IndexResolver.
func (s *Shelf) Primary() *storage.DB { return s.primary }

// Index implements query.IndexResolver, returning an already-open index by name.
func (s *Shelf) Index(name string) (*storage.DB, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	db, ok := s.indexes[name]
	return db, ok
}

// IndexNames lists every index currently open on this shelf.
func (s *Shelf) IndexNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.indexes))
	for n := range s.indexes {
		names = append(names, n)
	}
	return names
}

// OpenIndex opens (creating if absent) the secondary database for
// indexName, per spec.md §4.2 get-index. An already-open index is
// returned as-is. An existing index's stored sorted-duplicates setting
// always wins over opts — "ground truth wins".
func (s *Shelf) OpenIndex(indexName string, opts config.IndexOptions) (*storage.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openIndexLocked(indexName, opts)
}

func (s *Shelf) openIndexLocked(indexName string, opts config.IndexOptions) (*storage.DB, error) {
	if db, ok := s.indexes[indexName]; ok {
		return db, nil
	}

	fullName := s.name + ":" + indexName
	requested := opts.SortedDuplicates
	if entry, ok := s.cat.Get(fullName); ok {
		var stored config.IndexOptions
		if err := json.Unmarshal(entry.Options, &stored); err == nil {
			requested = stored.SortedDuplicates
		}
	}

	secDB, err := storage.SecOpen(s.env, s.primary, indexName, storage.SecOpenOptions{
		AllowCreate:      true,
		SortedDuplicates: requested,
	})
	if err != nil {
		return nil, err
	}

	// Ground truth wins: persist whatever the live DB actually ended up with.
	if _, err := s.cat.Put(fullName, catalog.KindIndex, config.IndexOptions{SortedDuplicates: secDB.SortedDuplicates()}); err != nil {
		storage.DBClose(secDB)
		return nil, err
	}

	s.indexes[indexName] = secDB
	return secDB, nil
}

// CloseIndex closes indexName, optionally removing its table and
// catalog entry (spec.md §4.2 close-shelf's per-index step).
func (s *Shelf) CloseIndex(indexName string, remove bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeIndexLocked(indexName, remove)
}

func (s *Shelf) closeIndexLocked(indexName string, remove bool) error {
	db, ok := s.indexes[indexName]
	if !ok {
		return cuperrors.ErrIndexNotFound
	}
	if err := storage.SecClose(db); err != nil {
		return err
	}
	delete(s.indexes, indexName)

	if remove {
		fullName := s.name + ":" + indexName
		if err := storage.EnvRemoveDB(s.env, fullName, nil); err != nil {
			return cuperrors.ErrRemoveFailed
		}
		_ = s.cat.Remove(fullName)
	}
	return nil
}

// Close closes the shelf's primary DB and every open index, optionally
// removing their tables and catalog entries — spec.md §4.2 close-shelf
// / remove-shelf.
func (s *Shelf) Close(remove bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name := range s.indexes {
		if err := s.closeIndexLocked(name, remove); err != nil {
			return err
		}
	}

	if err := storage.DBClose(s.primary); err != nil {
		return err
	}
	if remove {
		if err := storage.EnvRemoveDB(s.env, s.name, nil); err != nil {
			return cuperrors.ErrRemoveFailed
		}
		_ = s.cat.Remove(s.name)
	}
	return nil
}

// Save persists rec into the shelf's primary DB and maintains every
// secondary index named in rec's metadata, per spec.md §4.6 save.
// Indices are opened lazily on first use — the unique set with
// sorted-duplicates=false, the any set with sorted-duplicates=true.
// Prior secondary associations for rec's primary key are cleared
// first, so re-saving a record after passoc!/pdissoc! correctly
// re-indexes it under its current field values.
func (s *Shelf) Save(rec *record.Record, txn *storage.Txn) error {
	pkeyBytes := []byte(rec.Meta.PrimaryKey)

	allIndexed := append(append([]string{}, rec.Meta.UniqueIndexes...), rec.Meta.AnyIndexes...)
	for _, name := range rec.Meta.UniqueIndexes {
		if _, err := s.ensureIndexOpen(name, false); err != nil {
			return err
		}
	}
	for _, name := range rec.Meta.AnyIndexes {
		if _, err := s.ensureIndexOpen(name, true); err != nil {
			return err
		}
	}

	val, err := record.Encode(rec)
	if err != nil {
		return err
	}

	status, err := storage.DBPut(s.primary, pkeyBytes, val, txn)
	if err != nil {
		return err
	}
	if status != storage.StatusSuccess {
		return cuperrors.ErrPutFailed
	}

	for _, name := range allIndexed {
		idxDB, ok := s.Index(name)
		if !ok {
			continue
		}
		if err := storage.SecDeleteByPkey(idxDB, pkeyBytes, txn); err != nil {
			return err
		}
		fv, ok := rec.Fields[name]
		if !ok {
			continue
		}
		skey, err := indexkey.Encode(fv)
		if err != nil {
			return err
		}
		if err := storage.SecPut(idxDB, skey, pkeyBytes, txn); err != nil {
			return err
		}
	}

	return nil
}

func (s *Shelf) ensureIndexOpen(name string, sortedDuplicates bool) (*storage.DB, error) {
	if db, ok := s.Index(name); ok {
		return db, nil
	}
	return s.OpenIndex(name, config.IndexOptions{SortedDuplicates: sortedDuplicates})
}

// Retrieve fetches a record directly by primary key.
func (s *Shelf) Retrieve(pkey []byte, txn *storage.Txn) (*record.Record, bool, error) {
	val, found, err := storage.DBGet(s.primary, pkey, txn)
	if err != nil || !found {
		return nil, found, err
	}
	rec, err := record.Decode(val)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// RetrieveByIndex implements spec.md §4.6 retrieve(index-name, value, ...):
// a unique index returns at most one record via a direct secondary get;
// an any index returns every matching record, routed through the query
// engine's RowStream so the underlying cursor is always closed even if
// the caller only wants the first few results — spec.md §9's fix for
// the known cursor-leak defect in the plain secondary-cursor approach.
func (s *Shelf) RetrieveByIndex(indexName string, value interface{}, txn *storage.Txn) ([]*record.Record, error) {
	idxDB, ok := s.Index(indexName)
	if !ok {
		return nil, cuperrors.ErrUnindexedField
	}

	skey, err := indexkey.Encode(value)
	if err != nil {
		return nil, err
	}

	if !idxDB.SortedDuplicates() {
		pkey, found, err := storage.SecGet(idxDB, skey, txn)
		if err != nil || !found {
			return nil, err
		}
		rec, found, err := s.Retrieve(pkey, txn)
		if err != nil || !found {
			return nil, err
		}
		return []*record.Record{rec}, nil
	}

	stream, err := query.Execute(s, []query.Clause{{Op: query.OpEq, IndexName: indexName, Value: skey}}, query.Options{Txn: txn})
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	var out []*record.Record
	for {
		row, ok, err := stream.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rec, err := record.Decode(row.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Query runs clauses against the shelf via the query engine's planner.
func (s *Shelf) Query(clauses []query.Clause, opts query.Options) (query.RowStream, error) {
	return query.Execute(s, clauses, opts)
}

// Delete removes rec's primary entry and every secondary association
// pointing at it, per spec.md §4.6/§9's delete semantics and §8
// invariant 10 (remove-shelf deletes both primary and secondary state —
// the same cleanup applies per-record here).
func (s *Shelf) Delete(rec *record.Record, txn *storage.Txn) error {
	pkeyBytes := []byte(rec.Meta.PrimaryKey)

	allIndexed := append(append([]string{}, rec.Meta.UniqueIndexes...), rec.Meta.AnyIndexes...)
	for _, name := range allIndexed {
		if idxDB, ok := s.Index(name); ok {
			if err := storage.SecDeleteByPkey(idxDB, pkeyBytes, txn); err != nil {
				return err
			}
		}
	}

	return storage.DBDelete(s.primary, pkeyBytes, txn)
}
