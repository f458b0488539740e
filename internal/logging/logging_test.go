package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_RejectsUnknownLevel(t *testing.T) {
	if _, err := New("chatty", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log, err := New("warn", &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	log.WithField("prefix", "gps").Info("hidden")
	log.WithField("prefix", "gps").Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line not filtered: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("warn line missing: %q", out)
	}
}
