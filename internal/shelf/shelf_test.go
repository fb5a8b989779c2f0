package shelf

import (
	"testing"

	"github.com/kartikbazzad/cupboard/internal/catalog"
	"github.com/kartikbazzad/cupboard/internal/config"
	"github.com/kartikbazzad/cupboard/internal/logger"
	"github.com/kartikbazzad/cupboard/internal/query"
	"github.com/kartikbazzad/cupboard/internal/record"
	"github.com/kartikbazzad/cupboard/internal/storage"
)

func openTestShelf(t *testing.T, name string) (*storage.Env, *Shelf) {
	t.Helper()
	env, err := storage.EnvOpen(t.TempDir(), storage.EnvOpenOptions{AllowCreate: true})
	if err != nil {
		t.Fatalf("EnvOpen: %v", err)
	}
	t.Cleanup(func() { env.Close() })

	cat := catalog.New(env, logger.Default())
	if err := cat.Load(); err != nil {
		t.Fatalf("catalog Load: %v", err)
	}

	sh, err := Open(env, cat, name, config.ShelfOptions{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return env, sh
}

func bookShape() *record.Shape {
	return &record.Shape{
		Name: "books",
		Fields: []record.FieldDecl{
			{Name: "isbn", Index: record.IndexUnique},
			{Name: "author", Index: record.IndexAny},
		},
	}
}

func TestValidateNameRejectsReserved(t *testing.T) {
	if err := ValidateName(ReservedCatalogName); err == nil {
		t.Fatal("expected the reserved catalog name to be rejected")
	}
	if err := ValidateName("books:isbn"); err == nil {
		t.Fatal("expected a name containing ':' to be rejected")
	}
	if err := ValidateName("../escape"); err == nil {
		t.Fatal("expected a path-traversal name to be rejected")
	}
	if err := ValidateName("books"); err != nil {
		t.Fatalf("expected a plain name to be accepted, got %v", err)
	}
}

func TestSaveAndRetrieveByPrimaryKey(t *testing.T) {
	_, sh := openTestShelf(t, "books")
	shape := bookShape()
	rec := record.MakeInstance(shape, map[string]interface{}{"isbn": "978", "author": "Herbert"}, record.InstanceOptions{})

	if err := sh.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := sh.Retrieve([]byte(rec.Meta.PrimaryKey), nil)
	if err != nil || !found {
		t.Fatalf("Retrieve: found=%v err=%v", found, err)
	}
	if got.Fields["isbn"] != "978" {
		t.Fatalf("unexpected fields: %v", got.Fields)
	}
}

func TestRetrieveByUniqueIndex(t *testing.T) {
	_, sh := openTestShelf(t, "books")
	shape := bookShape()
	rec := record.MakeInstance(shape, map[string]interface{}{"isbn": "978", "author": "Herbert"}, record.InstanceOptions{})
	if err := sh.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	results, err := sh.RetrieveByIndex("isbn", "978", nil)
	if err != nil {
		t.Fatalf("RetrieveByIndex: %v", err)
	}
	if len(results) != 1 || results[0].Meta.PrimaryKey != rec.Meta.PrimaryKey {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestRetrieveByAnyIndexReturnsAllMatches(t *testing.T) {
	_, sh := openTestShelf(t, "books")
	shape := bookShape()
	a := record.MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert"}, record.InstanceOptions{})
	b := record.MakeInstance(shape, map[string]interface{}{"isbn": "2", "author": "Herbert"}, record.InstanceOptions{})
	sh.Save(a, nil)
	sh.Save(b, nil)

	results, err := sh.RetrieveByIndex("author", "Herbert", nil)
	if err != nil {
		t.Fatalf("RetrieveByIndex: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 matches for the any index, got %d", len(results))
	}
}

func TestRetrieveByIndexUnindexedFieldFails(t *testing.T) {
	_, sh := openTestShelf(t, "books")
	if _, err := sh.RetrieveByIndex("nonexistent", "x", nil); err == nil {
		t.Fatal("expected an error retrieving by a never-opened index")
	}
}

func TestSaveReindexesOnUpdate(t *testing.T) {
	_, sh := openTestShelf(t, "books")
	shape := bookShape()
	rec := record.MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert"}, record.InstanceOptions{})
	sh.Save(rec, nil)

	rec.Assoc(map[string]interface{}{"isbn": "2"})
	if err := sh.Save(rec, nil); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	if results, err := sh.RetrieveByIndex("isbn", "1", nil); err != nil || len(results) != 0 {
		t.Fatalf("expected no match for the stale isbn, got %v err=%v", results, err)
	}
	results, err := sh.RetrieveByIndex("isbn", "2", nil)
	if err != nil || len(results) != 1 {
		t.Fatalf("expected exactly one match for the new isbn, got %v err=%v", results, err)
	}
}

func TestDeleteRemovesPrimaryAndSecondaryEntries(t *testing.T) {
	_, sh := openTestShelf(t, "books")
	shape := bookShape()
	rec := record.MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert"}, record.InstanceOptions{})
	sh.Save(rec, nil)

	if err := sh.Delete(rec, nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	_, found, err := sh.Retrieve([]byte(rec.Meta.PrimaryKey), nil)
	if err != nil || found {
		t.Fatalf("expected the primary entry to be gone, found=%v err=%v", found, err)
	}
	results, err := sh.RetrieveByIndex("isbn", "1", nil)
	if err != nil || len(results) != 0 {
		t.Fatalf("expected no secondary association after delete, got %v err=%v", results, err)
	}
}

func TestOpenIndexGroundTruthWins(t *testing.T) {
	_, sh := openTestShelf(t, "books")
	if _, err := sh.OpenIndex("author", config.IndexOptions{SortedDuplicates: true}); err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	sh.CloseIndex("author", false)

	db, err := sh.OpenIndex("author", config.IndexOptions{SortedDuplicates: false})
	if err != nil {
		t.Fatalf("reopen OpenIndex: %v", err)
	}
	if !db.SortedDuplicates() {
		t.Fatal("expected the stored sorted-duplicates setting to win over the caller's request")
	}
}

func TestQueryViaShelf(t *testing.T) {
	_, sh := openTestShelf(t, "books")
	shape := bookShape()
	rec := record.MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert"}, record.InstanceOptions{})
	sh.Save(rec, nil)

	stream, err := sh.Query([]query.Clause{{Op: query.OpEq, IndexName: "isbn", Value: []byte("1")}}, query.Options{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer stream.Close()

	row, ok, err := stream.Next()
	if err != nil || !ok {
		t.Fatalf("expected a matching row, ok=%v err=%v", ok, err)
	}
	if string(row.PrimaryKey) != rec.Meta.PrimaryKey {
		t.Fatalf("unexpected primary key: %s", row.PrimaryKey)
	}
}

// TestRetrieveByIndexNumericFieldAgreesAcrossGoTypes saves a numeric
// field the way the JSON .save path produces it (float64, what
// json.Unmarshal always yields) and retrieves it the way a literal
// query value arrives (int64), the same split the shell's .save and
// .query commands route a "year" field through.
func TestRetrieveByIndexNumericFieldAgreesAcrossGoTypes(t *testing.T) {
	_, sh := openTestShelf(t, "editions")
	shape := &record.Shape{
		Name: "editions",
		Fields: []record.FieldDecl{
			{Name: "isbn", Index: record.IndexUnique},
			{Name: "year", Index: record.IndexAny},
		},
	}
	rec := record.MakeInstance(shape, map[string]interface{}{"isbn": "978-1", "year": float64(2001)}, record.InstanceOptions{})
	if err := sh.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	results, err := sh.RetrieveByIndex("year", int64(2001), nil)
	if err != nil {
		t.Fatalf("RetrieveByIndex: %v", err)
	}
	if len(results) != 1 || results[0].Meta.PrimaryKey != rec.Meta.PrimaryKey {
		t.Fatalf("expected the record saved with year=float64(2001) to be found by year=int64(2001), got %v", results)
	}
}
