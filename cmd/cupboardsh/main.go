// Command cupboardsh is an interactive shell for exploring a cupboard
// environment on disk: open it, select a shelf, declare shapes, and
// save/retrieve/query records a line at a time.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/peterh/liner"

	"github.com/kartikbazzad/cupboard/cmd/cupboardsh/parser"
	"github.com/kartikbazzad/cupboard/cmd/cupboardsh/shell"
)

const prompt = "cupboard> "

func main() {
	dir := flag.String("dir", "", "cupboard directory to open on startup")
	flag.Parse()

	fmt.Println("cupboard shell")

	sh := shell.New()
	if *dir != "" {
		if err := sh.Open(*dir); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open %q: %v\n", *dir, err)
			os.Exit(1)
		}
		fmt.Printf("opened %s\n", *dir)
	}
	defer sh.Close()

	fmt.Println("Type '.help' for commands.")
	fmt.Println()

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(prompt)
		if err != nil {
			if err == io.EOF || err == liner.ErrPromptAborted {
				fmt.Println()
				return
			}
			fmt.Fprintf(os.Stderr, "error reading input: %v\n", err)
			continue
		}
		if input == "" {
			continue
		}
		line.AppendHistory(input)
		sh.AddToHistory(input)

		cmd, err := parser.Parse(input)
		if err != nil {
			fmt.Println("ERROR")
			fmt.Println(err.Error())
			fmt.Println()
			continue
		}

		result := sh.Execute(cmd)
		if result.IsExit() {
			return
		}
		result.Print(os.Stdout)
		fmt.Println()
	}
}
