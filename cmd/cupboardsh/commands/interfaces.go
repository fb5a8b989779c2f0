package commands

import "github.com/kartikbazzad/cupboard"

// Shell is the session surface command handlers need, kept as an
// interface so this package never imports cmd/cupboardsh/shell
// directly (shell imports commands, not the other way around).
type Shell interface {
	Open(dir string) error
	Close() error
	Cupboard() *cupboard.Cupboard
	UseShelf(name string) error
	CurrentShelf() *cupboard.Shelf
	ShelfName() string
	SetShape(shape *cupboard.Shape)
	CurrentShape() *cupboard.Shape
	BeginTxn() error
	CommitTxn() error
	RollbackTxn() error
	CurrentTxn() *cupboard.Txn
	History() []string
}
