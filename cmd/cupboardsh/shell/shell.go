// Package shell holds one cupboardsh session's state: the open
// cupboard, the current shelf, and command history, mirroring the
// original shell's session-object shape.
package shell

import (
	"sync"

	"github.com/kartikbazzad/cupboard"
	"github.com/kartikbazzad/cupboard/cmd/cupboardsh/commands"
	"github.com/kartikbazzad/cupboard/cmd/cupboardsh/parser"
)

// Shell is one REPL session's mutable state.
type Shell struct {
	mu        sync.Mutex
	cb        *cupboard.Cupboard
	dir       string
	shelfName string
	shelf     *cupboard.Shelf
	shape     *cupboard.Shape
	txn       *cupboard.Txn
	history   []string
}

// New returns a session with nothing open yet.
func New() *Shell {
	return &Shell{shelfName: ""}
}

// Open implements .open: opens (creating if absent) the cupboard rooted at dir.
func (s *Shell) Open(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, err := cupboard.Open(dir, nil)
	if err != nil {
		return err
	}
	s.cb = cb
	s.dir = dir
	return nil
}

// Close implements .close: closes the cupboard and clears session state.
func (s *Shell) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cb == nil {
		return nil
	}
	err := s.cb.Close()
	s.cb = nil
	s.dir = ""
	s.shelfName = ""
	s.shelf = nil
	s.txn = nil
	return err
}

// Cupboard returns the open cupboard, or nil if none is open.
func (s *Shell) Cupboard() *cupboard.Cupboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cb
}

// UseShelf implements .shelf: opens (or reuses) name and makes it current.
func (s *Shell) UseShelf(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cb == nil {
		return errNoCupboard
	}
	sh, err := s.cb.GetShelf(name, cupboard.ShelfOptions{})
	if err != nil {
		return err
	}
	s.shelfName = name
	s.shelf = sh
	return nil
}

// CurrentShelf returns the shelf made current by .shelf, or nil.
func (s *Shell) CurrentShelf() *cupboard.Shelf {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shelf
}

// ShelfName returns the name of the current shelf, "" if none.
func (s *Shell) ShelfName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shelfName
}

// SetShape implements .shape: declares the shape MakeInstance uses for
// every subsequent .save in this session.
func (s *Shell) SetShape(shape *cupboard.Shape) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shape = shape
}

// CurrentShape returns the shape declared by .shape, or nil.
func (s *Shell) CurrentShape() *cupboard.Shape {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shape
}

// BeginTxn implements .begin.
func (s *Shell) BeginTxn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cb == nil {
		return errNoCupboard
	}
	if s.txn != nil {
		return errTxnActive
	}
	t, err := s.cb.Begin(cupboard.BeginOptions{})
	if err != nil {
		return err
	}
	s.txn = t
	return nil
}

// CommitTxn implements .commit.
func (s *Shell) CommitTxn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn == nil {
		return errNoTxn
	}
	err := cupboard.Commit(s.txn)
	s.txn = nil
	return err
}

// RollbackTxn implements .rollback.
func (s *Shell) RollbackTxn() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.txn == nil {
		return errNoTxn
	}
	err := cupboard.Rollback(s.txn)
	s.txn = nil
	return err
}

// CurrentTxn returns the in-flight transaction, or nil outside one.
func (s *Shell) CurrentTxn() *cupboard.Txn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txn
}

// AddToHistory records cmd, capping history at 100 entries.
func (s *Shell) AddToHistory(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, cmd)
	if len(s.history) > 100 {
		s.history = s.history[1:]
	}
}

// History returns a copy of the recorded command history.
func (s *Shell) History() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.history))
	copy(out, s.history)
	return out
}

// Execute dispatches cmd to its command handler.
func (s *Shell) Execute(cmd *parser.Command) commands.Result {
	switch cmd.Name {
	case ".help":
		return commands.Help()
	case ".exit", ".quit":
		return commands.Exit()
	case ".open":
		return commands.Open(s, cmd)
	case ".close":
		return commands.Close(s)
	case ".ls":
		return commands.ListShelves(s)
	case ".shelf":
		return commands.UseShelf(s, cmd)
	case ".shape":
		return commands.DeclareShape(s, cmd)
	case ".indexes":
		return commands.ListIndexes(s)
	case ".index":
		return commands.GetIndex(s, cmd)
	case ".save":
		return commands.Save(s, cmd)
	case ".get":
		return commands.Get(s, cmd)
	case ".by":
		return commands.RetrieveByIndex(s, cmd)
	case ".query":
		return commands.Query(s, cmd)
	case ".delete":
		return commands.Delete(s, cmd)
	case ".passoc":
		return commands.PAssoc(s, cmd)
	case ".pdissoc":
		return commands.PDissoc(s, cmd)
	case ".begin":
		return commands.Begin(s)
	case ".commit":
		return commands.CommitCmd(s)
	case ".rollback":
		return commands.RollbackCmd(s)
	case ".stats":
		return commands.Stats(s)
	case ".history":
		return commands.History(s)
	default:
		return commands.ErrorResult{Err: "unknown command: " + cmd.Name}
	}
}
