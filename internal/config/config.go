// Package config holds the option types for a cupboard and for the
// shelves and indices opened within it.
package config

import "time"

// CupboardOptions configures env-open (spec.md §4.1).
type CupboardOptions struct {
	// BusyTimeout bounds how long a transaction waits on a lock before the
	// storage engine reports it as a deadlock.
	BusyTimeout time.Duration

	// Extra carries engine-specific pragmas (e.g. "synchronous", "cache_size")
	// applied verbatim once the environment opens.
	Extra map[string]string
}

// ShelfOptions configures get-shelf (spec.md §4.2). ReadOnly and
// ForceReopen are the only recognized caller options; everything else
// comes from the catalog once a shelf has been opened once.
type ShelfOptions struct {
	ReadOnly    bool
	ForceReopen bool
}

// IndexOptions configures get-index (spec.md §4.2). SortedDuplicates is
// the only recognized per-call option; an existing index's live
// configuration always wins over a caller's request.
type IndexOptions struct {
	SortedDuplicates bool
}

// PoolOptions configures the bounded worker pool used to fan out shelf
// and index reopening at cupboard-open time.
type PoolOptions struct {
	Workers    int // 0 = auto-scale
	ExpireIdle time.Duration
	PreAlloc   bool
}

// QueryOptions configures default behavior of the query engine.
type QueryOptions struct {
	DefaultLockMode string
	MaxConcurrent   int
}

// Config is the top-level configuration for a cupboard.
type Config struct {
	DataDir  string
	Cupboard CupboardOptions
	Shelf    ShelfOptions
	Pool     PoolOptions
	Query    QueryOptions
}

// DefaultConfig returns sane defaults, one function for every nested
// struct, mirroring the teacher's own configuration convention.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data",
		Cupboard: CupboardOptions{
			BusyTimeout: 5 * time.Second,
			Extra: map[string]string{
				"journal_mode": "WAL",
				"synchronous":  "NORMAL",
			},
		},
		Shelf: ShelfOptions{
			ReadOnly:    false,
			ForceReopen: false,
		},
		Pool: PoolOptions{
			Workers:    0,
			ExpireIdle: 10 * time.Second,
			PreAlloc:   false,
		},
		Query: QueryOptions{
			DefaultLockMode: "read-uncommitted",
			MaxConcurrent:   64,
		},
	}
}
