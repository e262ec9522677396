package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_WritesComponentField(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "info", Out: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	Component(l, "signal").Info("connected")

	out := buf.String()
	if !strings.Contains(out, "connected") || !strings.Contains(out, "signal") {
		t.Errorf("unexpected log output %q", out)
	}
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Options{Level: "warn", Out: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info must be filtered at warn level, got %q", buf.String())
	}
}

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New(Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
