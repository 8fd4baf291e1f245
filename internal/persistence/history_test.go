package persistence

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func TestHistoryAppendAndLoad(t *testing.T) {
	h := NewHistory(afero.NewMemMapFs(), "/data/history.json")

	firedAt := time.Date(2024, 5, 1, 9, 0, 12, 0, time.UTC)
	if err := h.Append(Delivery{RecordID: "a", Title: "Stand-up", Minute: "09:00", Backend: "beeep", FiredAt: firedAt}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := h.Append(Delivery{RecordID: "b", Title: "Lunch", Minute: "09:00", Error: "no backend", FiredAt: firedAt}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := h.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].OK() || entries[1].OK() {
		t.Fatalf("unexpected OK flags: %+v", entries)
	}
	if !entries[0].FiredAt.Equal(firedAt) {
		t.Errorf("expected FiredAt %v, got %v", firedAt, entries[0].FiredAt)
	}
}

func TestHistoryIsCapped(t *testing.T) {
	h := NewHistory(afero.NewMemMapFs(), "/history.json")
	for i := 0; i < maxHistorySize+5; i++ {
		if err := h.Append(Delivery{RecordID: fmt.Sprint(i), Minute: "10:00"}); err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
	}

	entries, err := h.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != maxHistorySize {
		t.Fatalf("expected %d entries, got %d", maxHistorySize, len(entries))
	}
	if entries[0].RecordID != "5" {
		t.Fatalf("expected oldest entries to be dropped, first is %s", entries[0].RecordID)
	}
}

func TestHistoryRecoversFromCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/history.json", []byte("garbage"), 0o644)
	h := NewHistory(fs, "/history.json")

	if _, err := h.Load(); err == nil {
		t.Fatal("expected Load to report corrupt file")
	}
	if err := h.Append(Delivery{RecordID: "a"}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	entries, err := h.Load()
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected fresh log with one entry, got %v, %v", entries, err)
	}
}

func TestHistoryPath(t *testing.T) {
	got := HistoryPath(filepath.Join("a", "b", "notifications.json"))
	if want := filepath.Join("a", "b", "history.json"); got != want {
		t.Fatalf("HistoryPath = %s, want %s", got, want)
	}
}
