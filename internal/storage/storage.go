// Package storage is the concrete grounding of spec.md §6's storage
// adapter contract: environments, primary and secondary databases,
// cursors, join cursors, and transactions, all backed by an embedded
// modernc.org/sqlite file. The core cupboard/shelf/index/query packages
// never touch database/sql directly — everything they need from the
// storage engine passes through this package's exported functions,
// matching spec.md's framing of the storage engine as an external
// collaborator with a fixed contract.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"

	_ "modernc.org/sqlite"
)

// Status mirrors spec.md §6's Status sentinel.
type Status int

const (
	StatusSuccess Status = iota
	StatusError
)

// EnvOpenOptions configures EnvOpen (spec.md §6 env-open).
type EnvOpenOptions struct {
	AllowCreate   bool
	Transactional bool
	BusyTimeout   time.Duration
	Extra         map[string]string
}

// Env is a handle to the storage environment: one embedded SQL engine
// instance rooted at a directory, holding every shelf and index table.
type Env struct {
	mu   sync.RWMutex
	sqlDB *sql.DB
	dir  string
	path string
}

// EnvOpen opens (or creates, if AllowCreate) the environment rooted at dir.
func EnvOpen(dir string, opts EnvOpenOptions) (*Env, error) {
	path := filepath.Join(dir, "_env.db")

	if !opts.AllowCreate {
		if _, err := os.Stat(path); err != nil {
			return nil, cuperrors.Wrap(cuperrors.IoError, "env-open", err)
		}
	}

	busyMS := int64(5000)
	if opts.BusyTimeout > 0 {
		busyMS = opts.BusyTimeout.Milliseconds()
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", path, busyMS)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, cuperrors.Wrap(cuperrors.StorageError, "env-open", err)
	}
	sqlDB.SetMaxOpenConns(1) // one writer at a time; matches the single-file embedded model

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, cuperrors.Wrap(cuperrors.StorageError, "env-open", err)
	}

	for pragma, value := range opts.Extra {
		stmt := fmt.Sprintf("PRAGMA %s=%s", pragma, value)
		if _, err := sqlDB.Exec(stmt); err != nil {
			sqlDB.Close()
			return nil, cuperrors.Wrap(cuperrors.StorageError, "env-open", err)
		}
	}

	return &Env{sqlDB: sqlDB, dir: dir, path: path}, nil
}

// Close releases the environment's handle to the underlying engine.
func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sqlDB == nil {
		return nil
	}
	err := e.sqlDB.Close()
	e.sqlDB = nil
	return cuperrors.Wrap(cuperrors.StorageError, "env-close", err)
}

// EnvClose is the package-level spelling of env.Close, matching the
// contract's function-per-verb naming.
func EnvClose(env *Env) error { return env.Close() }

// EnvRemoveDB is the package-level spelling of env.RemoveDB.
func EnvRemoveDB(env *Env, name string, txn *Txn) error { return env.RemoveDB(name, txn) }

// DatabaseNames is the package-level spelling of env.DatabaseNames.
func DatabaseNames(env *Env) ([]string, error) { return env.DatabaseNames() }

// DatabaseNames enumerates every table in the environment that
// represents a shelf or index — i.e. every user table, filtering out
// sqlite's own bookkeeping tables.
func (e *Env) DatabaseNames() ([]string, error) {
	rows, err := e.sqlDB.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, cuperrors.Wrap(cuperrors.StorageError, "database-names", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, cuperrors.Wrap(cuperrors.StorageError, "database-names", err)
		}
		names = append(names, name)
	}
	return names, cuperrors.Wrap(cuperrors.StorageError, "database-names", rows.Err())
}

// tableDDL returns the CREATE TABLE statement sqlite stored for name, and
// whether the table exists at all. Used by SecOpen to discover the
// ground-truth sorted-duplicates setting of an already-existing index.
func (e *Env) tableDDL(name string) (string, bool, error) {
	row := e.sqlDB.QueryRow(`SELECT sql FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
	var ddl string
	if err := row.Scan(&ddl); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, cuperrors.Wrap(cuperrors.StorageError, "table-ddl", err)
	}
	return ddl, true, nil
}

// RemoveDB drops the table backing name (a shelf or a "<shelf>:<index>" pair).
func (e *Env) RemoveDB(name string, txn *Txn) error {
	conn := e.conn(txn)
	_, err := conn.Exec(fmt.Sprintf(`DROP TABLE IF EXISTS %s`, quoteIdent(name)))
	return cuperrors.Wrap(cuperrors.StorageError, "env-remove-db", err)
}

// execQueryer is satisfied by both *sql.DB and *sql.Tx, letting every
// storage operation take an optional transaction uniformly.
type execQueryer interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

func (e *Env) conn(txn *Txn) execQueryer {
	if txn != nil && txn.tx != nil {
		return txn.tx
	}
	return e.sqlDB
}

func quoteIdent(name string) string {
	return `"` + name + `"`
}
