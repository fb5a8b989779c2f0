package cupboard

import "github.com/kartikbazzad/cupboard/internal/record"

// IndexKind tags how a shape field participates in secondary indexing.
type IndexKind = record.IndexKind

const (
	IndexNone   = record.IndexNone
	IndexUnique = record.IndexUnique
	IndexAny    = record.IndexAny
)

// FieldDecl declares one field of a Shape, with its index kind.
type FieldDecl = record.FieldDecl

// Shape is a record declaration: a name, its field list, and
// shape-level options merged into every instance's metadata.
type Shape = record.Shape

// InstanceOptions are the caller options to MakeInstance, excluding
// save/txn which the caller consumes directly (spec.md §4.3).
type InstanceOptions = record.InstanceOptions

// Record is one instance of a Shape: field values plus attached
// persistence metadata (primary key, index sets).
type Record = record.Record

// MakeInstance implements spec.md §4.3 make-instance: assigns a fresh
// primary key, classifies shape fields into the unique/any index sets,
// and merges shape-level options with the caller's.
func MakeInstance(shape *Shape, fields map[string]interface{}, opts InstanceOptions) *Record {
	return record.MakeInstance(shape, fields, opts)
}

// PAssoc implements spec.md §4.6 passoc!: associates new key/value
// pairs into rec in place, preserving its persistence metadata, then
// saves it — an update in place, not an insert.
func PAssoc(s *Shelf, rec *Record, kvs map[string]interface{}, t *Txn) error {
	rec.Assoc(kvs)
	return s.Save(rec, t)
}

// PDissoc implements spec.md §4.6 pdissoc!: removes keys from rec in
// place, preserving its persistence metadata, then saves it.
func PDissoc(s *Shelf, rec *Record, keys []string, t *Txn) error {
	rec.Dissoc(keys...)
	return s.Save(rec, t)
}
