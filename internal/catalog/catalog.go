// Package catalog persists the name -> options registry spec.md §3
// requires every cupboard to keep: one entry per shelf, and one entry
// per "<shelf>:<index>" pair, surviving a full close/reopen cycle. The
// registry itself lives in the reserved "_shelves" table of the
// storage environment (spec.md's reserved name), so the catalog never
// needs a file format of its own.
package catalog

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/kartikbazzad/cupboard/internal/logger"
	"github.com/kartikbazzad/cupboard/internal/storage"
)

var (
	ErrCatalogLoad = errors.New("failed to load catalog")
	ErrEntryExists = errors.New("catalog entry already exists")
	ErrNotFound    = errors.New("catalog entry not found")
)

// reservedTable is spec.md's reserved name for the catalog's own
// backing table — no shelf may be named "_shelves".
const reservedTable = "_shelves"

// EntryKind distinguishes a shelf entry from an index entry within the
// single flat "_shelves" registry.
type EntryKind int

const (
	KindShelf EntryKind = iota
	KindIndex
)

// Entry is one registered name and its live configuration, exactly as
// spec.md's "ground truth wins" rule requires: once persisted, an
// entry's Options take precedence over whatever a later get-shelf or
// get-index call requests.
type Entry struct {
	Name      string
	Kind      EntryKind
	Options   json.RawMessage
	CreatedAt time.Time
}

// Catalog is the in-memory cache, backed by the "_shelves" table,
// mirroring the teacher's mutex-guarded-map registry pattern.
type Catalog struct {
	mu      sync.RWMutex
	env     *storage.Env
	table   *storage.DB
	entries map[string]*Entry
	logger  *logger.Logger
}

// New allocates a catalog bound to env. Call Load before use.
func New(env *storage.Env, log *logger.Logger) *Catalog {
	return &Catalog{
		env:     env,
		entries: make(map[string]*Entry),
		logger:  log,
	}
}

// Load opens the "_shelves" table (creating it if absent) and
// populates the in-memory cache from it.
func (c *Catalog) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	table, err := storage.DBOpen(c.env, reservedTable, storage.DBOpenOptions{AllowCreate: true})
	if err != nil {
		return ErrCatalogLoad
	}
	c.table = table

	names, err := storage.DatabaseNames(c.env)
	if err != nil {
		return ErrCatalogLoad
	}
	found := false
	for _, n := range names {
		if n == reservedTable {
			found = true
			break
		}
	}
	if !found {
		return ErrCatalogLoad
	}

	cursor, err := storage.CursorOpen(table, nil)
	if err != nil {
		return ErrCatalogLoad
	}
	defer storage.CursorClose(cursor)

	if err := storage.CursorScanAll(cursor); err != nil {
		return ErrCatalogLoad
	}

	count := 0
	for {
		key, val, ok, err := storage.CursorNext(cursor)
		if err != nil {
			return ErrCatalogLoad
		}
		if !ok {
			break
		}
		var entry Entry
		if err := json.Unmarshal(val, &entry); err != nil {
			continue
		}
		c.entries[string(key)] = &entry
		count++
	}

	c.logger.Info("catalog loaded: %d entries", count)
	return nil
}

// Put registers or overwrites the entry for name. Callers implementing
// "ground truth wins" should call Get first and only Put when the name
// is new.
func (c *Catalog) Put(name string, kind EntryKind, options interface{}) (*Entry, error) {
	raw, err := json.Marshal(options)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &Entry{Name: name, Kind: kind, Options: raw, CreatedAt: time.Now()}
	buf, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	if _, err := storage.DBPut(c.table, []byte(name), buf, nil); err != nil {
		return nil, err
	}

	c.entries[name] = entry
	c.logger.Info("catalog entry registered: %s", name)
	return entry, nil
}

// Get returns the live entry for name, if one has been registered.
func (c *Catalog) Get(name string) (*Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// Remove deletes name's catalog entry, used when a shelf or index is
// dropped from the environment.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[name]; !ok {
		return ErrNotFound
	}
	if err := storage.DBDelete(c.table, []byte(name), nil); err != nil {
		return err
	}
	delete(c.entries, name)
	return nil
}

// List returns every entry of the given kind currently registered.
func (c *Catalog) List(kind EntryKind) []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []*Entry
	for _, e := range c.entries {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Close releases the catalog's table handle. The "_shelves" table
// itself persists in the environment.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return storage.DBClose(c.table)
}
