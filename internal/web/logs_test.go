package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestLogBuffer_SplitsLinesAndKeepsPartial(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("one\ntw"))
	_, _ = b.Write([]byte("o\r\n\nthree"))

	lines, dropped := b.Tail(0)
	if dropped != 0 || len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Fatalf("lines=%q dropped=%d", lines, dropped)
	}
	_, _ = b.Write([]byte("\n"))
	lines, _ = b.Tail(1)
	if len(lines) != 1 || lines[0] != "three" {
		t.Fatalf("lines=%q", lines)
	}
}

func TestLogBuffer_DropsOldest(t *testing.T) {
	b := NewLogBuffer(2)
	_, _ = b.Write([]byte("a\nb\nc\n"))
	lines, dropped := b.Tail(10)
	if dropped != 1 || len(lines) != 2 || lines[0] != "b" || lines[1] != "c" {
		t.Fatalf("lines=%q dropped=%d", lines, dropped)
	}
}

func TestLogBuffer_Handler(t *testing.T) {
	b := NewLogBuffer(10)
	_, _ = b.Write([]byte("hello\n"))

	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?tail=5", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("code=%d", rec.Code)
	}
	var resp LogsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Lines) != 1 || resp.Lines[0] != "hello" {
		t.Fatalf("lines=%q", resp.Lines)
	}

	rec = httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs?tail=0", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code=%d want 400", rec.Code)
	}
}
