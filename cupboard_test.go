package cupboard

import (
	"os"
	"strings"
	"testing"
)

func openTestCupboard(t *testing.T) *Cupboard {
	t.Helper()
	cb, err := Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { cb.Close() })
	return cb
}

func bookShape() *Shape {
	return &Shape{
		Name: "books",
		Fields: []FieldDecl{
			{Name: "isbn", Index: IndexUnique},
			{Name: "author", Index: IndexAny},
			{Name: "year", Index: IndexAny},
		},
	}
}

func TestOpenCreatesDefaultShelf(t *testing.T) {
	cb := openTestCupboard(t)
	names, err := cb.ListShelves()
	if err != nil {
		t.Fatalf("ListShelves: %v", err)
	}
	found := false
	for _, n := range names {
		if n == "_default" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the default shelf among %v", names)
	}
}

func TestOpenRejectsRegularFileAsDir(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/not-a-dir"
	if err := os.WriteFile(path, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Open(path, nil); err != ErrDirIsFile {
		t.Fatalf("expected ErrDirIsFile, got %v", err)
	}
}

func TestGetShelfReturnsSameHandleOnSecondCall(t *testing.T) {
	cb := openTestCupboard(t)
	a, err := cb.GetShelf("books", ShelfOptions{})
	if err != nil {
		t.Fatalf("GetShelf: %v", err)
	}
	b, err := cb.GetShelf("books", ShelfOptions{})
	if err != nil {
		t.Fatalf("GetShelf: %v", err)
	}
	if a.Name() != b.Name() {
		t.Fatalf("expected the same shelf name, got %q and %q", a.Name(), b.Name())
	}
}

func TestGetShelfRejectsReservedName(t *testing.T) {
	cb := openTestCupboard(t)
	if _, err := cb.GetShelf("_shelves", ShelfOptions{}); err == nil {
		t.Fatal("expected an error opening the reserved catalog name as a shelf")
	}
}

func TestSaveAndRetrieve(t *testing.T) {
	cb := openTestCupboard(t)
	sh, err := cb.GetShelf("books", ShelfOptions{})
	if err != nil {
		t.Fatalf("GetShelf: %v", err)
	}

	shape := bookShape()
	rec := MakeInstance(shape, map[string]interface{}{
		"isbn": "9780441013593", "author": "Frank Herbert", "year": int64(1965),
	}, InstanceOptions{})

	if err := sh.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, found, err := sh.Retrieve(rec.Meta.PrimaryKey, nil)
	if err != nil || !found {
		t.Fatalf("Retrieve: found=%v err=%v", found, err)
	}
	if got.Fields["isbn"] != "9780441013593" {
		t.Fatalf("unexpected fields: %v", got.Fields)
	}
}

func TestRetrieveByUniqueIndex(t *testing.T) {
	cb := openTestCupboard(t)
	sh, _ := cb.GetShelf("books", ShelfOptions{})
	shape := bookShape()
	rec := MakeInstance(shape, map[string]interface{}{"isbn": "x", "author": "Herbert", "year": int64(1965)}, InstanceOptions{})
	if err := sh.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}

	results, err := sh.RetrieveByIndex("isbn", "x", nil)
	if err != nil || len(results) != 1 {
		t.Fatalf("RetrieveByIndex: results=%v err=%v", results, err)
	}
}

func TestQueryNaturalJoin(t *testing.T) {
	cb := openTestCupboard(t)
	sh, _ := cb.GetShelf("books", ShelfOptions{})
	shape := bookShape()
	sh.Save(MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert", "year": int64(1965)}, InstanceOptions{}), nil)
	sh.Save(MakeInstance(shape, map[string]interface{}{"isbn": "2", "author": "Herbert", "year": int64(1969)}, InstanceOptions{}), nil)
	sh.Save(MakeInstance(shape, map[string]interface{}{"isbn": "3", "author": "Clarke", "year": int64(1965)}, InstanceOptions{}), nil)

	stream, err := sh.Query([]Clause{
		{Op: OpEq, IndexName: "author", Value: "Herbert"},
		{Op: OpEq, IndexName: "year", Value: int64(1965)},
	}, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer stream.Close()

	count := 0
	for {
		_, ok, err := stream.Next()
		if err != nil {
			t.Fatalf("stream.Next: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 1 {
		t.Fatalf("expected exactly one Herbert/1965 match, got %d", count)
	}
}

func TestQueryRangeJoin(t *testing.T) {
	cb := openTestCupboard(t)
	sh, _ := cb.GetShelf("books", ShelfOptions{})
	shape := bookShape()
	sh.Save(MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert", "year": int64(1965)}, InstanceOptions{}), nil)
	sh.Save(MakeInstance(shape, map[string]interface{}{"isbn": "2", "author": "Herbert", "year": int64(2001)}, InstanceOptions{}), nil)
	sh.Save(MakeInstance(shape, map[string]interface{}{"isbn": "3", "author": "Herbert", "year": int64(2010)}, InstanceOptions{}), nil)

	stream, err := sh.Query([]Clause{
		{Op: OpGte, IndexName: "year", Value: int64(2000)},
	}, QueryOptions{})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer stream.Close()

	count := 0
	for {
		_, ok, err := stream.Next()
		if err != nil {
			t.Fatalf("stream.Next: %v", err)
		}
		if !ok {
			break
		}
		count++
	}
	if count != 2 {
		t.Fatalf("expected 2 books from the year 2000 onward, got %d", count)
	}
}

func TestPAssocPDissoc(t *testing.T) {
	cb := openTestCupboard(t)
	sh, _ := cb.GetShelf("books", ShelfOptions{})
	shape := bookShape()
	rec := MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert", "year": int64(1965)}, InstanceOptions{})
	sh.Save(rec, nil)

	if err := PAssoc(sh, rec, map[string]interface{}{"edition": 2}, nil); err != nil {
		t.Fatalf("PAssoc: %v", err)
	}
	got, _, err := sh.Retrieve(rec.Meta.PrimaryKey, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if _, ok := got.Fields["edition"]; !ok {
		t.Fatal("expected the passoc! field to persist")
	}

	if err := PDissoc(sh, rec, []string{"edition"}, nil); err != nil {
		t.Fatalf("PDissoc: %v", err)
	}
	got, _, err = sh.Retrieve(rec.Meta.PrimaryKey, nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if _, ok := got.Fields["edition"]; ok {
		t.Fatal("expected the pdissoc! field to be gone")
	}
}

func TestDelete(t *testing.T) {
	cb := openTestCupboard(t)
	sh, _ := cb.GetShelf("books", ShelfOptions{})
	shape := bookShape()
	rec := MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert", "year": int64(1965)}, InstanceOptions{})
	sh.Save(rec, nil)

	if err := sh.Delete(rec, nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, found, err := sh.Retrieve(rec.Meta.PrimaryKey, nil)
	if err != nil || found {
		t.Fatalf("expected record gone after delete, found=%v err=%v", found, err)
	}
}

func TestBeginCommitRollback(t *testing.T) {
	cb := openTestCupboard(t)
	sh, _ := cb.GetShelf("books", ShelfOptions{})
	shape := bookShape()

	tx, err := cb.Begin(BeginOptions{})
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	rec := MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert", "year": int64(1965)}, InstanceOptions{})
	if err := sh.Save(rec, tx); err != nil {
		t.Fatalf("Save in txn: %v", err)
	}
	if err := Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	_, found, err := sh.Retrieve(rec.Meta.PrimaryKey, nil)
	if err != nil || !found {
		t.Fatalf("expected the committed save visible, found=%v err=%v", found, err)
	}

	tx2, _ := cb.Begin(BeginOptions{})
	rec2 := MakeInstance(shape, map[string]interface{}{"isbn": "2", "author": "Herbert", "year": int64(1966)}, InstanceOptions{})
	sh.Save(rec2, tx2)
	if err := Rollback(tx2); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	_, found, _ = sh.Retrieve(rec2.Meta.PrimaryKey, nil)
	if found {
		t.Fatal("expected the rolled-back save not to be visible")
	}
}

func TestWithTxnRunsBodyInTransaction(t *testing.T) {
	cb := openTestCupboard(t)
	sh, _ := cb.GetShelf("books", ShelfOptions{})
	shape := bookShape()
	rec := MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert", "year": int64(1965)}, InstanceOptions{})

	err := cb.WithTxn(WithTxnOptions{}, func(tx *Txn) error {
		return sh.Save(rec, tx)
	})
	if err != nil {
		t.Fatalf("WithTxn: %v", err)
	}
	_, found, err := sh.Retrieve(rec.Meta.PrimaryKey, nil)
	if err != nil || !found {
		t.Fatalf("expected record saved by WithTxn body, found=%v err=%v", found, err)
	}
}

func TestCloseShelfAndRemoveShelf(t *testing.T) {
	cb := openTestCupboard(t)
	if _, err := cb.GetShelf("books", ShelfOptions{}); err != nil {
		t.Fatalf("GetShelf: %v", err)
	}
	if err := cb.CloseShelf("books", false); err != nil {
		t.Fatalf("CloseShelf: %v", err)
	}
	if err := cb.CloseShelf("books", false); err != ErrShelfNotFound {
		t.Fatalf("expected ErrShelfNotFound closing an already-closed shelf, got %v", err)
	}

	if _, err := cb.GetShelf("books", ShelfOptions{}); err != nil {
		t.Fatalf("GetShelf after reopen: %v", err)
	}
	if err := cb.RemoveShelf("books"); err != nil {
		t.Fatalf("RemoveShelf: %v", err)
	}
	names, err := cb.ListShelves()
	if err != nil {
		t.Fatalf("ListShelves: %v", err)
	}
	for _, n := range names {
		if n == "books" {
			t.Fatal("expected the removed shelf to be gone from ListShelves")
		}
	}
}

func TestReopenExistingCupboardRestoresShelvesAndIndexes(t *testing.T) {
	dir := t.TempDir()
	cb, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sh, err := cb.GetShelf("books", ShelfOptions{})
	if err != nil {
		t.Fatalf("GetShelf: %v", err)
	}
	shape := bookShape()
	rec := MakeInstance(shape, map[string]interface{}{"isbn": "1", "author": "Herbert", "year": int64(1965)}, InstanceOptions{})
	if err := sh.Save(rec, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := cb.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir, nil)
	if err != nil {
		t.Fatalf("reopen Open: %v", err)
	}
	defer reopened.Close()

	sh2, err := reopened.GetShelf("books", ShelfOptions{})
	if err != nil {
		t.Fatalf("GetShelf after reopen: %v", err)
	}
	results, err := sh2.RetrieveByIndex("isbn", "1", nil)
	if err != nil || len(results) != 1 {
		t.Fatalf("expected the isbn index to have survived reopen, results=%v err=%v", results, err)
	}
}

func TestStatsAndCriticalAlerts(t *testing.T) {
	cb := openTestCupboard(t)
	cb.GetShelf("books", ShelfOptions{})

	stats := cb.Stats()
	if !strings.Contains(stats, "cupboard_shelves_open") {
		t.Fatalf("expected Prometheus exposition text, got %q", stats)
	}

	if _, err := cb.GetShelf("_shelves", ShelfOptions{}); err == nil {
		t.Fatal("expected the reserved-name failure to classify as an error")
	}
	if len(cb.CriticalAlerts()) != 0 {
		t.Fatal("an invalid-argument failure should not be classified critical")
	}
}
