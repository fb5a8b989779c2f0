package parser

import "testing"

func TestParseBasic(t *testing.T) {
	cmd, err := Parse(".save books {\"isbn\":\"1\"}")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Name != ".save" {
		t.Fatalf("unexpected name: %q", cmd.Name)
	}
	if len(cmd.Args) != 2 {
		t.Fatalf("unexpected args: %v", cmd.Args)
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	cmd, err := Parse("   .ls   ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Name != ".ls" || len(cmd.Args) != 0 {
		t.Fatalf("unexpected command: %+v", cmd)
	}
}

func TestParseRejectsEmpty(t *testing.T) {
	if _, err := Parse("   "); err == nil {
		t.Fatal("expected an error for an empty line")
	}
}

func TestParseRejectsMissingDot(t *testing.T) {
	if _, err := Parse("ls"); err == nil {
		t.Fatal("expected an error for a command missing its leading '.'")
	}
}

func TestValidateArgs(t *testing.T) {
	cmd := &Command{Name: ".get", Args: []string{"books"}}
	if err := ValidateArgs(cmd, 1); err != nil {
		t.Fatalf("expected enough args, got %v", err)
	}
	if err := ValidateArgs(cmd, 2); err == nil {
		t.Fatal("expected an error when fewer args than required are given")
	}
}
