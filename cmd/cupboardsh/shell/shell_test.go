package shell

import (
	"testing"

	"github.com/kartikbazzad/cupboard"
	"github.com/kartikbazzad/cupboard/cmd/cupboardsh/parser"
)

func TestOpenRequiredBeforeShelf(t *testing.T) {
	s := New()
	if err := s.UseShelf("books"); err != errNoCupboard {
		t.Fatalf("expected errNoCupboard, got %v", err)
	}
}

func TestOpenCloseRoundTrip(t *testing.T) {
	s := New()
	dir := t.TempDir()
	if err := s.Open(dir); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.Cupboard() == nil {
		t.Fatal("expected a cupboard after Open")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s.Cupboard() != nil {
		t.Fatal("expected Cupboard to be nil after Close")
	}
}

func TestUseShelfSelectsCurrentShelf(t *testing.T) {
	s := New()
	if err := s.Open(t.TempDir()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.UseShelf("books"); err != nil {
		t.Fatalf("UseShelf: %v", err)
	}
	if s.CurrentShelf() == nil {
		t.Fatal("expected a current shelf")
	}
	if s.ShelfName() != "books" {
		t.Fatalf("expected shelf name 'books', got %q", s.ShelfName())
	}
}

func TestBeginCommitRollback(t *testing.T) {
	s := New()
	if err := s.Open(t.TempDir()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.BeginTxn(); err != nil {
		t.Fatalf("BeginTxn: %v", err)
	}
	if err := s.BeginTxn(); err != errTxnActive {
		t.Fatalf("expected errTxnActive on nested begin, got %v", err)
	}
	if s.CurrentTxn() == nil {
		t.Fatal("expected a current txn")
	}
	if err := s.CommitTxn(); err != nil {
		t.Fatalf("CommitTxn: %v", err)
	}
	if err := s.RollbackTxn(); err != errNoTxn {
		t.Fatalf("expected errNoTxn after commit, got %v", err)
	}
}

func TestHistoryCapsAtOneHundred(t *testing.T) {
	s := New()
	for i := 0; i < 150; i++ {
		s.AddToHistory(".help")
	}
	if len(s.History()) != 100 {
		t.Fatalf("expected history capped at 100, got %d", len(s.History()))
	}
}

func TestSetShapeAndCurrentShape(t *testing.T) {
	s := New()
	if s.CurrentShape() != nil {
		t.Fatal("expected no shape by default")
	}
	shape := &cupboard.Shape{Name: "books"}
	s.SetShape(shape)
	if s.CurrentShape() != shape {
		t.Fatal("expected CurrentShape to return the shape just set")
	}
}

func TestExecuteDispatchesHelpAndUnknown(t *testing.T) {
	s := New()
	if res := s.Execute(&parser.Command{Name: ".help"}); res.IsExit() {
		t.Fatal(".help should not exit")
	}
	if res := s.Execute(&parser.Command{Name: ".bogus"}); res.IsExit() {
		t.Fatal("unknown command should not exit")
	}
	if res := s.Execute(&parser.Command{Name: ".exit"}); !res.IsExit() {
		t.Fatal(".exit should signal exit")
	}
}
