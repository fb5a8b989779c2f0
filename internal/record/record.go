// Package record implements spec.md §4.3's record instantiation: shape
// declarations with field-level index tagging, and the records
// make-instance produces from them.
package record

import (
	"github.com/google/uuid"
)

// IndexKind tags how a shape's field participates in secondary
// indexing, spec.md §4.3's "index: unique|any" field declaration.
type IndexKind int

const (
	IndexNone IndexKind = iota
	IndexUnique
	IndexAny
)

// FieldDecl declares one field of a Shape.
type FieldDecl struct {
	Name  string
	Index IndexKind
}

// Shape is a record declaration: a name and its field list, mirroring
// spec.md's "declare shape Book with fields ...".
type Shape struct {
	Name   string
	Fields []FieldDecl
	// Options carries shape-level defaults merged into every instance's
	// persistence metadata, per spec.md §4.3.
	Options map[string]interface{}
}

// UniqueIndexes returns the names of every field tagged index: unique.
func (s *Shape) UniqueIndexes() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Index == IndexUnique {
			out = append(out, f.Name)
		}
	}
	return out
}

// AnyIndexes returns the names of every field tagged index: any.
func (s *Shape) AnyIndexes() []string {
	var out []string
	for _, f := range s.Fields {
		if f.Index == IndexAny {
			out = append(out, f.Name)
		}
	}
	return out
}

// Meta is the persistence metadata attached to every Record, per
// spec.md §4.3: the primary key plus the two index-field sets a query
// or retrieve operation needs to know about without re-consulting the Shape.
type Meta struct {
	ShapeName     string
	PrimaryKey    string
	UniqueIndexes []string
	AnyIndexes    []string
	Options       map[string]interface{}
}

// Record is one instance of a Shape: its field values plus attached
// persistence metadata.
type Record struct {
	Fields map[string]interface{}
	Meta   Meta
}

// InstanceOptions are the caller-supplied options to MakeInstance,
// excluding :save and :txn which are consumed by the caller
// (spec.md §4.3 explicitly excludes them from the merged metadata options).
type InstanceOptions struct {
	Extra map[string]interface{}
}

// MakeInstance builds a Record from shape and fields: a fresh UUID
// primary key, the shape's declared index sets, and shape-level
// options merged with the caller's extra options.
func MakeInstance(shape *Shape, fields map[string]interface{}, opts InstanceOptions) *Record {
	merged := make(map[string]interface{}, len(shape.Options)+len(opts.Extra))
	for k, v := range shape.Options {
		merged[k] = v
	}
	for k, v := range opts.Extra {
		merged[k] = v
	}

	return &Record{
		Fields: fields,
		Meta: Meta{
			ShapeName:     shape.Name,
			PrimaryKey:    uuid.NewString(),
			UniqueIndexes: shape.UniqueIndexes(),
			AnyIndexes:    shape.AnyIndexes(),
			Options:       merged,
		},
	}
}

// IsIndexed reports whether fieldName is declared unique or any on the
// record's shape.
func (r *Record) IsIndexed(fieldName string) bool {
	for _, n := range r.Meta.UniqueIndexes {
		if n == fieldName {
			return true
		}
	}
	for _, n := range r.Meta.AnyIndexes {
		if n == fieldName {
			return true
		}
	}
	return false
}

// IsUnique reports whether fieldName is declared a unique index.
func (r *Record) IsUnique(fieldName string) bool {
	for _, n := range r.Meta.UniqueIndexes {
		if n == fieldName {
			return true
		}
	}
	return false
}

// Assoc implements spec.md §4.6's passoc!: associates new key/value
// pairs into r in place, preserving r's persistence metadata (including
// its primary key) so a subsequent save is an update, not an insert.
func (r *Record) Assoc(kvs map[string]interface{}) *Record {
	for k, v := range kvs {
		r.Fields[k] = v
	}
	return r
}

// Dissoc implements spec.md §4.6's pdissoc!: removes keys from r in
// place, preserving r's persistence metadata.
func (r *Record) Dissoc(keys ...string) *Record {
	for _, k := range keys {
		delete(r.Fields, k)
	}
	return r
}
