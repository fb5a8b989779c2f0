// Package commands implements every cupboardsh dot-command against a
// Shell session, in the original shell's Result/Print(io.Writer) shape.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kartikbazzad/cupboard"
	"github.com/kartikbazzad/cupboard/cmd/cupboardsh/parser"
)

// Result is one command's renderable outcome.
type Result interface {
	Print(w io.Writer)
	IsExit() bool
}

// ErrorResult reports a failed command.
type ErrorResult struct{ Err string }

func (e ErrorResult) Print(w io.Writer) { fmt.Fprintln(w, "ERROR"); fmt.Fprintln(w, e.Err) }
func (e ErrorResult) IsExit() bool      { return false }

// ExitResult ends the REPL loop.
type ExitResult struct{}

func (e ExitResult) Print(w io.Writer) {}
func (e ExitResult) IsExit() bool      { return true }

// OKResult reports a bare success.
type OKResult struct{}

func (o OKResult) Print(w io.Writer) { fmt.Fprintln(w, "OK") }
func (o OKResult) IsExit() bool      { return false }

// HelpResult lists every recognized command.
type HelpResult struct{}

func (h HelpResult) IsExit() bool { return false }
func (h HelpResult) Print(w io.Writer) {
	fmt.Fprintln(w, "cupboard shell commands:")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  .help                                show this message")
	fmt.Fprintln(w, "  .exit / .quit                        leave the shell")
	fmt.Fprintln(w, "  .open <dir>                          open (or create) a cupboard")
	fmt.Fprintln(w, "  .close                                close the open cupboard")
	fmt.Fprintln(w, "  .ls                                   list shelves")
	fmt.Fprintln(w, "  .shelf <name>                         open/select the current shelf")
	fmt.Fprintln(w, "  .shape <name> <field[:unique|any]>... declare the shape .save uses")
	fmt.Fprintln(w, "  .save <json-fields>                   make-instance + save on the current shelf")
	fmt.Fprintln(w, "  .get <primary-key>                    retrieve by primary key")
	fmt.Fprintln(w, "  .by <index> <value>                   retrieve by a unique or any index")
	fmt.Fprintln(w, "  .query <index> <op> <value> [...]     run clauses (op: eq lt lte gt gte)")
	fmt.Fprintln(w, "  .delete <primary-key>                 delete a record")
	fmt.Fprintln(w, "  .passoc <primary-key> <json-fields>    associate fields, then save")
	fmt.Fprintln(w, "  .pdissoc <primary-key> <field>...      remove fields, then save")
	fmt.Fprintln(w, "  .indexes                              list indexes open on the current shelf")
	fmt.Fprintln(w, "  .index <name>                         open a secondary index by name")
	fmt.Fprintln(w, "  .begin / .commit / .rollback          transaction control")
	fmt.Fprintln(w, "  .stats                                print Prometheus-format metrics")
	fmt.Fprintln(w, "  .history                              show recent commands")
}

func Help() Result { return HelpResult{} }
func Exit() Result { return ExitResult{} }

func Open(s Shell, cmd *parser.Command) Result {
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if err := s.Open(cmd.Args[0]); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

func Close(s Shell) Result {
	if err := s.Close(); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

type listResult struct{ names []string }

func (l listResult) IsExit() bool { return false }
func (l listResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
	for _, n := range l.names {
		fmt.Fprintln(w, n)
	}
}

func ListShelves(s Shell) Result {
	cb := s.Cupboard()
	if cb == nil {
		return ErrorResult{Err: "no cupboard open"}
	}
	names, err := cb.ListShelves()
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return listResult{names: names}
}

func UseShelf(s Shell, cmd *parser.Command) Result {
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if err := s.UseShelf(cmd.Args[0]); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

func ListIndexes(s Shell) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	return listResult{names: sh.IndexNames()}
}

func GetIndex(s Shell, cmd *parser.Command) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if err := sh.GetIndex(cmd.Args[0], cupboard.IndexOptions{}); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

// DeclareShape implements .shape: a name plus field[:unique|any] terms.
func DeclareShape(s Shell, cmd *parser.Command) Result {
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	shape := &cupboard.Shape{Name: cmd.Args[0]}
	for _, term := range cmd.Args[1:] {
		parts := strings.SplitN(term, ":", 2)
		kind := cupboard.IndexNone
		switch {
		case len(parts) == 2 && parts[1] == "unique":
			kind = cupboard.IndexUnique
		case len(parts) == 2 && parts[1] == "any":
			kind = cupboard.IndexAny
		case len(parts) == 2:
			return ErrorResult{Err: fmt.Sprintf("unknown index kind %q on field %q", parts[1], parts[0])}
		}
		shape.Fields = append(shape.Fields, cupboard.FieldDecl{Name: parts[0], Index: kind})
	}
	s.SetShape(shape)
	return OKResult{}
}

type recordResult struct{ rec *cupboard.Record }

func (r recordResult) IsExit() bool { return false }
func (r recordResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
	fmt.Fprintf(w, "pkey=%s\n", r.rec.Meta.PrimaryKey)
	pretty, err := json.MarshalIndent(r.rec.Fields, "", "  ")
	if err == nil {
		fmt.Fprintln(w, string(pretty))
	}
}

func Save(s Shell, cmd *parser.Command) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	shape := s.CurrentShape()
	if shape == nil {
		return ErrorResult{Err: "no shape declared, run .shape <name> [field:unique|any]... first"}
	}
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	fields, err := parser.DecodeFields(strings.Join(cmd.Args, " "))
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	rec := cupboard.MakeInstance(shape, fields, cupboard.InstanceOptions{})
	if err := sh.Save(rec, s.CurrentTxn()); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return recordResult{rec: rec}
}

func Get(s Shell, cmd *parser.Command) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	rec, ok, err := sh.Retrieve(cmd.Args[0], s.CurrentTxn())
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if !ok {
		return ErrorResult{Err: "not found"}
	}
	return recordResult{rec: rec}
}

type recordsResult struct{ recs []*cupboard.Record }

func (r recordsResult) IsExit() bool { return false }
func (r recordsResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
	fmt.Fprintf(w, "count=%d\n", len(r.recs))
	for _, rec := range r.recs {
		fmt.Fprintf(w, "pkey=%s\n", rec.Meta.PrimaryKey)
		pretty, err := json.MarshalIndent(rec.Fields, "", "  ")
		if err == nil {
			fmt.Fprintln(w, string(pretty))
		}
	}
}

func RetrieveByIndex(s Shell, cmd *parser.Command) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	if err := parser.ValidateArgs(cmd, 2); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	recs, err := sh.RetrieveByIndex(cmd.Args[0], parser.DecodeValue(cmd.Args[1]), s.CurrentTxn())
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return recordsResult{recs: recs}
}

var queryOps = map[string]cupboard.Op{
	"eq":  cupboard.OpEq,
	"lt":  cupboard.OpLt,
	"lte": cupboard.OpLte,
	"gt":  cupboard.OpGt,
	"gte": cupboard.OpGte,
}

// Query implements .query: a flat list of (index, op, value) triples.
func Query(s Shell, cmd *parser.Command) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	if len(cmd.Args)%3 != 0 || len(cmd.Args) == 0 {
		return ErrorResult{Err: "expected (index op value) triples"}
	}
	var clauses []cupboard.Clause
	for i := 0; i < len(cmd.Args); i += 3 {
		op, ok := queryOps[cmd.Args[i+1]]
		if !ok {
			return ErrorResult{Err: fmt.Sprintf("unknown op %q", cmd.Args[i+1])}
		}
		clauses = append(clauses, cupboard.Clause{
			Op:        op,
			IndexName: cmd.Args[i],
			Value:     parser.DecodeValue(cmd.Args[i+2]),
		})
	}

	stream, err := sh.Query(clauses, cupboard.QueryOptions{Txn: s.CurrentTxn()})
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	defer stream.Close()

	var rows []string
	for {
		row, ok, err := stream.Next()
		if err != nil {
			return ErrorResult{Err: err.Error()}
		}
		if !ok {
			break
		}
		rows = append(rows, fmt.Sprintf("pkey=%s value_len=%d", string(row.PrimaryKey), len(row.Value)))
	}
	return rowsResult{rows: rows}
}

type rowsResult struct{ rows []string }

func (r rowsResult) IsExit() bool { return false }
func (r rowsResult) Print(w io.Writer) {
	fmt.Fprintln(w, "OK")
	fmt.Fprintf(w, "count=%d\n", len(r.rows))
	for _, row := range r.rows {
		fmt.Fprintln(w, row)
	}
}

func Delete(s Shell, cmd *parser.Command) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	if err := parser.ValidateArgs(cmd, 1); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	rec, ok, err := sh.Retrieve(cmd.Args[0], s.CurrentTxn())
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if !ok {
		return ErrorResult{Err: "not found"}
	}
	if err := sh.Delete(rec, s.CurrentTxn()); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

func PAssoc(s Shell, cmd *parser.Command) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	if err := parser.ValidateArgs(cmd, 2); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	rec, ok, err := sh.Retrieve(cmd.Args[0], s.CurrentTxn())
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if !ok {
		return ErrorResult{Err: "not found"}
	}
	fields, err := parser.DecodeFields(strings.Join(cmd.Args[1:], " "))
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if err := cupboard.PAssoc(sh, rec, fields, s.CurrentTxn()); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return recordResult{rec: rec}
}

func PDissoc(s Shell, cmd *parser.Command) Result {
	sh := s.CurrentShelf()
	if sh == nil {
		return ErrorResult{Err: "no shelf selected, run .shelf <name> first"}
	}
	if err := parser.ValidateArgs(cmd, 2); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	rec, ok, err := sh.Retrieve(cmd.Args[0], s.CurrentTxn())
	if err != nil {
		return ErrorResult{Err: err.Error()}
	}
	if !ok {
		return ErrorResult{Err: "not found"}
	}
	if err := cupboard.PDissoc(sh, rec, cmd.Args[1:], s.CurrentTxn()); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return recordResult{rec: rec}
}

func Begin(s Shell) Result {
	if err := s.BeginTxn(); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

func CommitCmd(s Shell) Result {
	if err := s.CommitTxn(); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

func RollbackCmd(s Shell) Result {
	if err := s.RollbackTxn(); err != nil {
		return ErrorResult{Err: err.Error()}
	}
	return OKResult{}
}

type textResult struct{ text string }

func (t textResult) IsExit() bool      { return false }
func (t textResult) Print(w io.Writer) { fmt.Fprintln(w, "OK"); fmt.Fprintln(w, t.text) }

func Stats(s Shell) Result {
	cb := s.Cupboard()
	if cb == nil {
		return ErrorResult{Err: "no cupboard open"}
	}
	return textResult{text: cb.Stats()}
}

func History(s Shell) Result {
	hist := s.History()
	lines := make([]string, len(hist))
	for i, h := range hist {
		lines[i] = strconv.Itoa(i+1) + ": " + h
	}
	return listResult{names: lines}
}
