package cupboard

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/kartikbazzad/cupboard/internal/catalog"
	"github.com/kartikbazzad/cupboard/internal/config"
	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"
	"github.com/kartikbazzad/cupboard/internal/logger"
	"github.com/kartikbazzad/cupboard/internal/metrics"
	"github.com/kartikbazzad/cupboard/internal/pool"
	"github.com/kartikbazzad/cupboard/internal/shelf"
	"github.com/kartikbazzad/cupboard/internal/storage"
)

// Config is the public alias for a cupboard's configuration, re-exported
// so callers don't need to import the internal config package directly.
type Config = config.Config

// DefaultConfig returns sane defaults for Open.
func DefaultConfig() *Config { return config.DefaultConfig() }

// Cupboard is one open environment: a catalog plus every currently
// open shelf, per spec.md §4.1.
type Cupboard struct {
	mu      sync.RWMutex
	dir     string
	env     *storage.Env
	cat     *catalog.Catalog
	shelves  map[string]*shelf.Shelf
	cfg      *Config
	log      *logger.Logger
	metrics  *metrics.Exporter
	errTrack *cuperrors.ErrorTracker
}

// Open implements spec.md §4.1's open(dir, options). If dir does not
// exist it is created; if it is an existing regular file, Open fails
// with InvalidArgument. A brand-new (empty) directory gets the
// catalog, the _default shelf, and nothing else; a pre-existing
// directory has every shelf it already contains reopened concurrently
// through a bounded worker pool.
func Open(dir string, cfg *Config) (*Cupboard, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	log := logger.Default()

	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return nil, cuperrors.ErrDirIsFile
	case err == nil:
		// exists and is a directory
	default:
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, cuperrors.Wrap(cuperrors.IoError, "open", err)
		}
	}

	envNew, err := dirIsEmpty(dir)
	if err != nil {
		return nil, cuperrors.Wrap(cuperrors.IoError, "open", err)
	}

	env, err := storage.EnvOpen(dir, storage.EnvOpenOptions{
		AllowCreate:   envNew,
		Transactional: true,
		BusyTimeout:   cfg.Cupboard.BusyTimeout,
		Extra:         cfg.Cupboard.Extra,
	})
	if err != nil {
		return nil, err
	}

	cat := catalog.New(env, log)
	if err := cat.Load(); err != nil {
		env.Close()
		return nil, cuperrors.Wrap(cuperrors.StorageError, "open", err)
	}

	cb := &Cupboard{
		dir:      dir,
		env:      env,
		cat:      cat,
		shelves:  make(map[string]*shelf.Shelf),
		cfg:      cfg,
		log:      log,
		metrics:  metrics.NewExporter(),
		errTrack: cuperrors.NewErrorTracker(),
	}

	if err := cb.bootstrap(envNew); err != nil {
		cb.closeOpenedShelves()
		cat.Close()
		env.Close()
		return nil, err
	}

	return cb, nil
}

func dirIsEmpty(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

func (cb *Cupboard) bootstrap(envNew bool) error {
	if envNew {
		_, err := cb.GetShelf(shelf.DefaultShelfName, ShelfOptions{})
		return err
	}

	names, err := storage.DatabaseNames(cb.env)
	if err != nil {
		return err
	}

	var toOpen []string
	for _, n := range names {
		if n == shelf.ReservedCatalogName || strings.Contains(n, ":") {
			continue
		}
		toOpen = append(toOpen, n)
	}
	if len(toOpen) == 0 {
		return nil
	}

	opener, err := pool.NewOpener(pool.OpenerOptions{
		Workers:    cb.cfg.Pool.Workers,
		ExpireIdle: cb.cfg.Pool.ExpireIdle,
		PreAlloc:   cb.cfg.Pool.PreAlloc,
	}, cb.log)
	if err != nil {
		return cuperrors.Wrap(cuperrors.StorageError, "open", err)
	}
	defer opener.Release()

	var mu sync.Mutex
	errs := opener.Run(toOpen, func(name string) error {
		sh, err := shelf.Open(cb.env, cb.cat, name, config.ShelfOptions{})
		if err != nil {
			return err
		}
		mu.Lock()
		cb.shelves[name] = sh
		mu.Unlock()
		return cb.openDiscoveredIndices(sh, names)
	})

	for name, err := range errs {
		cb.log.Error("failed to reopen shelf %q: %v", name, err)
		return err
	}
	return nil
}

// openDiscoveredIndices opens every secondary table whose composite
// "<shelf>:<index>" name matches sh, per spec.md §4.2's open-indices.
func (cb *Cupboard) openDiscoveredIndices(sh *shelf.Shelf, allNames []string) error {
	prefix := sh.Name() + ":"
	for _, n := range allNames {
		if !strings.HasPrefix(n, prefix) {
			continue
		}
		indexName := strings.TrimPrefix(n, prefix)
		if _, err := sh.OpenIndex(indexName, config.IndexOptions{}); err != nil {
			return err
		}
	}
	return nil
}

func (cb *Cupboard) closeOpenedShelves() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	for name, sh := range cb.shelves {
		sh.Close(false)
		delete(cb.shelves, name)
	}
}

// Close implements spec.md §4.1's close(cupboard): every shelf, then
// the catalog, then the environment. Idempotent — handles are cleared
// as they close.
func (cb *Cupboard) Close() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	for name, sh := range cb.shelves {
		if err := sh.Close(false); err != nil {
			return err
		}
		delete(cb.shelves, name)
	}

	if err := cb.cat.Close(); err != nil {
		return err
	}
	return cb.env.Close()
}

// ListShelves implements spec.md §4.2 list-shelves: every environment
// DB name except the catalog's own and any composite index name.
func (cb *Cupboard) ListShelves() ([]string, error) {
	start := time.Now()
	names, err := storage.DatabaseNames(cb.env)
	defer cb.recordOp("list-shelves", start, err)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		if n == shelf.ReservedCatalogName || strings.Contains(n, ":") {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

// Stats renders the cupboard's metrics in Prometheus text exposition format.
func (cb *Cupboard) Stats() string {
	cb.mu.RLock()
	shelves := uint64(len(cb.shelves))
	var indexes uint64
	for _, sh := range cb.shelves {
		indexes += uint64(len(sh.IndexNames()))
	}
	cb.mu.RUnlock()

	cb.metrics.SetShelvesOpen(shelves)
	cb.metrics.SetIndexesOpen(indexes)
	return cb.metrics.Export()
}

func (cb *Cupboard) recordOp(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		category := errClassifier.Classify(err)
		cb.metrics.RecordError(category)
		cb.errTrack.RecordError(err, category)
	}
	cb.metrics.RecordOperation(op, status, time.Since(start))
}

// CriticalAlerts returns every error classified ErrorCritical (an
// io-error kind, typically disk-level) seen by any Cupboard-level
// operation since open, oldest first, capped at the tracker's most
// recent 100.
func (cb *Cupboard) CriticalAlerts() []cuperrors.CriticalAlert {
	return cb.errTrack.GetCriticalAlerts()
}
