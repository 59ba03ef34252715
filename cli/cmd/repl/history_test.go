package repl

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestHistoryAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), baseHistory)
	h := NewHistory(path)

	for _, e := range []HistoryEntry{
		{"% x = 1", modeEval},
		{"   ", modeEval},
		{"vars", modeCtrl},
		{"vars", modeCtrl},
		{"  - {{x}}  ", modeEval},
		{"% x = 1", modeEval},
	} {
		if err := h.Append(e.Line, e.Mode); err != nil {
			t.Fatalf("Append(%q) error: %v", e.Line, err)
		}
	}

	want := []HistoryEntry{
		{"vars", modeCtrl},
		{"  - {{x}}", modeEval},
		{"% x = 1", modeEval},
	}

	if got := h.Entries(); !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got := string(data); got != "C:vars\nT:  - {{x}}\nT:% x = 1\n" {
		t.Errorf("history file = %q", got)
	}

	loaded := NewHistory(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if got := loaded.Entries(); !slices.Equal(got, want) {
		t.Errorf("loaded entries = %v, want %v", got, want)
	}
}

func TestHistoryEntry(t *testing.T) {
	t.Parallel()

	h := NewHistory(filepath.Join(t.TempDir(), baseHistory))

	if err := h.Append("quit", modeCtrl); err != nil {
		t.Fatal(err)
	}

	if e, err := h.Entry(0); err != nil || e != (HistoryEntry{"quit", modeCtrl}) {
		t.Errorf("Entry(0) = %v, %v", e, err)
	}

	for _, i := range []int{-1, 1} {
		if _, err := h.Entry(i); !errors.Is(err, ErrOutOfBounds) {
			t.Errorf("Entry(%d) error = %v", i, err)
		}
	}
}

func TestHistoryLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	missing := NewHistory(filepath.Join(dir, "none"))
	if err := missing.Load(); err != nil || missing.Len() != 0 {
		t.Errorf("missing file: len %d, error %v", missing.Len(), err)
	}

	path := filepath.Join(dir, baseHistory)
	if err := os.WriteFile(path, []byte("untagged\n\nC:help\nT:{{1}}\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatal(err)
	}

	want := []HistoryEntry{
		{"untagged", modeEval},
		{"help", modeCtrl},
		{"{{1}}", modeEval},
	}

	if got := h.Entries(); !slices.Equal(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
}
