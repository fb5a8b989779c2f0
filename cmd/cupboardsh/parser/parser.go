// Package parser tokenizes cupboardsh's dot-commands the way the
// original shell does: a leading ".name" plus whitespace-separated
// arguments, with the raw line kept around for commands that want to
// re-split it themselves (payloads, clause lists).
package parser

import (
	"fmt"
	"strings"
)

// Command is one parsed shell line.
type Command struct {
	Name string
	Args []string
	Line string
}

// Parse splits line into a Command. Every command must start with '.'.
func Parse(line string) (*Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil, fmt.Errorf("empty command")
	}

	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	if !strings.HasPrefix(parts[0], ".") {
		return nil, fmt.Errorf("commands must start with '.'")
	}

	return &Command{Name: parts[0], Args: parts[1:], Line: line}, nil
}

// ValidateArgs reports an error if cmd has fewer than count arguments.
func ValidateArgs(cmd *Command, count int) error {
	if len(cmd.Args) < count {
		return fmt.Errorf("expected %d argument(s), got %d", count, len(cmd.Args))
	}
	return nil
}
