package storage

import (
	"database/sql"
	"fmt"
	"strings"

	cuperrors "github.com/kartikbazzad/cupboard/internal/errors"
)

// Kind distinguishes a primary database (a shelf) from a secondary
// database (an index registered against a shelf).
type Kind int

const (
	KindPrimary Kind = iota
	KindSecondary
)

// DBOpenOptions configures DBOpen (spec.md §6 db-open) for a primary database.
type DBOpenOptions struct {
	AllowCreate   bool
	Transactional bool
	ReadOnly      bool
}

// DB is a handle to one table in the environment: either a shelf's
// primary table (pkey -> val) or a "<shelf>:<index>" secondary table
// (skey -> pkey).
type DB struct {
	env              *Env
	name             string
	kind             Kind
	sortedDuplicates bool
	readOnly         bool
}

// Name returns the storage-level table name backing this handle.
func (d *DB) Name() string { return d.name }

// SortedDuplicates reports whether this secondary database permits more
// than one primary key per secondary key (an "any" index, spec.md's
// duplicate-permitting index kind).
func (d *DB) SortedDuplicates() bool { return d.sortedDuplicates }

// DBOpen opens (creating if AllowCreate and absent) the primary table
// backing a shelf.
func DBOpen(env *Env, name string, opts DBOpenOptions) (*DB, error) {
	_, exists, err := env.tableDDL(name)
	if err != nil {
		return nil, err
	}
	if !exists {
		if !opts.AllowCreate {
			return nil, cuperrors.ErrShelfNotFound
		}
		ddl := fmt.Sprintf(`CREATE TABLE %s (pkey BLOB PRIMARY KEY, val BLOB NOT NULL)`, quoteIdent(name))
		if _, err := env.sqlDB.Exec(ddl); err != nil {
			return nil, cuperrors.Wrap(cuperrors.StorageError, "db-open", err)
		}
	}
	return &DB{env: env, name: name, kind: KindPrimary, readOnly: opts.ReadOnly}, nil
}

// DBClose releases a primary or secondary database handle. The
// underlying table persists; there is nothing engine-side to release
// per handle beyond bookkeeping, matching an embedded single-file engine.
func DBClose(db *DB) error { return nil }

// SecClose is the contract's name for closing a secondary database handle.
func SecClose(db *DB) error { return DBClose(db) }

// DBGet reads the value stored under key, per spec.md §6 db-get.
func DBGet(db *DB, key []byte, txn *Txn) ([]byte, bool, error) {
	conn := db.env.conn(txn)
	row := conn.QueryRow(fmt.Sprintf(`SELECT val FROM %s WHERE pkey = ?`, quoteIdent(db.name)), key)
	var val []byte
	if err := row.Scan(&val); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapStorageErr("db-get", err)
	}
	return val, true, nil
}

// DBPut stores value under key, per spec.md §6 db-put.
func DBPut(db *DB, key, value []byte, txn *Txn) (Status, error) {
	conn := db.env.conn(txn)
	q := fmt.Sprintf(`INSERT INTO %s (pkey, val) VALUES (?, ?) ON CONFLICT(pkey) DO UPDATE SET val = excluded.val`, quoteIdent(db.name))
	if _, err := conn.Exec(q, key, value); err != nil {
		return StatusError, wrapStorageErr("db-put", err)
	}
	return StatusSuccess, nil
}

// DBDelete removes key from db, per spec.md §6 db-delete.
func DBDelete(db *DB, key []byte, txn *Txn) error {
	conn := db.env.conn(txn)
	q := fmt.Sprintf(`DELETE FROM %s WHERE pkey = ?`, quoteIdent(db.name))
	_, err := conn.Exec(q, key)
	return wrapStorageErr("db-delete", err)
}

// SecOpenOptions configures SecOpen (spec.md §6 sec-open / §4.2 get-index).
type SecOpenOptions struct {
	AllowCreate      bool
	SortedDuplicates bool
}

// SecOpen opens the secondary table "<primary>:<name>" backing an index.
// If the table already exists, its stored DDL shape wins over
// opts.SortedDuplicates — ground truth always overrides a caller's request.
func SecOpen(env *Env, primary *DB, secName string, opts SecOpenOptions) (*DB, error) {
	fullName := primary.name + ":" + secName
	ddl, exists, err := env.tableDDL(fullName)
	if err != nil {
		return nil, err
	}

	var dup bool
	if exists {
		dup = strings.Contains(ddl, "PRIMARY KEY(skey, pkey)")
	} else {
		if !opts.AllowCreate {
			return nil, cuperrors.ErrIndexNotFound
		}
		dup = opts.SortedDuplicates
		var create string
		if dup {
			create = fmt.Sprintf(`CREATE TABLE %s (skey BLOB NOT NULL, pkey BLOB NOT NULL, PRIMARY KEY(skey, pkey))`, quoteIdent(fullName))
		} else {
			create = fmt.Sprintf(`CREATE TABLE %s (skey BLOB NOT NULL, pkey BLOB NOT NULL, PRIMARY KEY(skey))`, quoteIdent(fullName))
		}
		if _, err := env.sqlDB.Exec(create); err != nil {
			return nil, wrapStorageErr("sec-open", err)
		}
		if _, err := env.sqlDB.Exec(fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (pkey)`,
			quoteIdent(fullName+"#by_pkey"), quoteIdent(fullName))); err != nil {
			return nil, wrapStorageErr("sec-open", err)
		}
	}

	return &DB{env: env, name: fullName, kind: KindSecondary, sortedDuplicates: dup}, nil
}

// SecGet returns the first primary key registered under skey in a
// unique secondary database, per spec.md §6 sec-get.
func SecGet(db *DB, skey []byte, txn *Txn) ([]byte, bool, error) {
	conn := db.env.conn(txn)
	q := fmt.Sprintf(`SELECT pkey FROM %s WHERE skey = ? ORDER BY pkey LIMIT 1`, quoteIdent(db.name))
	row := conn.QueryRow(q, skey)
	var pkey []byte
	if err := row.Scan(&pkey); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, wrapStorageErr("sec-get", err)
	}
	return pkey, true, nil
}

// SecPut registers the (skey, pkey) association in a secondary database.
// For a unique index this replaces any prior pkey under skey; for an
// any (sorted-duplicates) index it adds another association, ignoring
// the call if that exact pair already exists.
func SecPut(db *DB, skey, pkey []byte, txn *Txn) error {
	conn := db.env.conn(txn)
	var err error
	if db.sortedDuplicates {
		_, err = conn.Exec(fmt.Sprintf(`INSERT OR IGNORE INTO %s (skey, pkey) VALUES (?, ?)`, quoteIdent(db.name)), skey, pkey)
	} else {
		q := fmt.Sprintf(`INSERT INTO %s (skey, pkey) VALUES (?, ?) ON CONFLICT(skey) DO UPDATE SET pkey = excluded.pkey`, quoteIdent(db.name))
		_, err = conn.Exec(q, skey, pkey)
	}
	return wrapStorageErr("sec-put", err)
}

// SecDeleteByPkey removes every association for pkey from a secondary
// database, used when a record is deleted or re-indexed under a new
// secondary-key value.
func SecDeleteByPkey(db *DB, pkey []byte, txn *Txn) error {
	conn := db.env.conn(txn)
	_, err := conn.Exec(fmt.Sprintf(`DELETE FROM %s WHERE pkey = ?`, quoteIdent(db.name)), pkey)
	return wrapStorageErr("sec-delete", err)
}

// SecDelete removes a single (skey, pkey) association.
func SecDelete(db *DB, skey, pkey []byte, txn *Txn) error {
	conn := db.env.conn(txn)
	q := fmt.Sprintf(`DELETE FROM %s WHERE skey = ? AND pkey = ?`, quoteIdent(db.name))
	_, err := conn.Exec(q, skey, pkey)
	return wrapStorageErr("sec-delete", err)
}

func wrapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if cuperrors.IsDeadlock(err) {
		return cuperrors.New(cuperrors.Deadlock, op, err)
	}
	return cuperrors.New(cuperrors.StorageError, op, err)
}
