package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLogRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn, "[test]")

	l.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected Info to be suppressed at LevelWarn, got %q", buf.String())
	}

	l.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected the warn message in output, got %q", buf.String())
	}
}

func TestSetLevelTakesEffect(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelError, "[test]")
	l.SetLevel(LevelDebug)
	l.Debug("now visible")
	if !strings.Contains(buf.String(), "now visible") {
		t.Fatal("expected SetLevel to lower the threshold immediately")
	}
}

func TestSetOutputRedirects(t *testing.T) {
	var first, second bytes.Buffer
	l := New(&first, LevelInfo, "[test]")
	l.Info("to first")
	l.SetOutput(&second)
	l.Info("to second")

	if !strings.Contains(first.String(), "to first") || strings.Contains(first.String(), "to second") {
		t.Fatalf("unexpected first buffer contents: %q", first.String())
	}
	if !strings.Contains(second.String(), "to second") {
		t.Fatalf("unexpected second buffer contents: %q", second.String())
	}
}

func TestMessageIncludesPrefixAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelInfo, "[cupboard]")
	l.Error("disk full: %s", "/data")

	out := buf.String()
	if !strings.Contains(out, "[cupboard]") || !strings.Contains(out, "[ERROR]") || !strings.Contains(out, "disk full: /data") {
		t.Fatalf("unexpected formatted message: %q", out)
	}
}
