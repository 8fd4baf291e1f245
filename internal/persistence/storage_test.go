package persistence

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"

	"github.com/nateberkopec/tasknotifier/internal/reminder"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/data/notifications.json")

	catalog := reminder.NewCatalog()
	catalog.Add(reminder.Record{Title: "Stand-up", Message: "Join the call", Time: "09:00"})
	catalog.Add(reminder.Record{Title: "Stretch", Message: "Stand up", Time: "15:30", Image: "aGVsbG8="})

	if err := store.Save(catalog.ExportState()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := catalog.Records()
	if len(loaded) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(loaded))
	}
	for i := range want {
		if loaded[i] != want[i] {
			t.Errorf("record %d: expected %+v, got %+v", i, want[i], loaded[i])
		}
	}
}

func TestLoadNonExistent(t *testing.T) {
	store := NewStore(afero.NewMemMapFs(), "/data/notifications.json")

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load should not fail on missing file: %v", err)
	}
	if len(records) != 0 {
		t.Error("expected empty list from missing file")
	}
}

func TestLoadCorruptReturnsEmpty(t *testing.T) {
	cases := map[string]string{
		"not json":      "{{{",
		"wrong shape":   `{"title": "x"}`,
		"invalid time":  `[{"title":"a","message":"b","time":"09:00"},{"title":"a","message":"b","time":"9pm"}]`,
		"missing title": `[{"message":"b","time":"09:00"}]`,
		"empty file":    "",
	}

	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "/n.json", []byte(contents), 0o644); err != nil {
				t.Fatal(err)
			}

			records, err := NewStore(fs, "/n.json").Load()
			if err == nil {
				t.Fatal("expected an error for corrupt file")
			}
			if records == nil || len(records) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", records)
			}
		})
	}
}

func TestLoadLegacyFormat(t *testing.T) {
	fs := afero.NewMemMapFs()
	legacy := `[{"title": "Water", "message": "Drink", "time": "10:00", "image": null},
	            {"title": "Walk", "message": "Go outside", "time": "16:00", "image": "aGk="}]`
	if err := afero.WriteFile(fs, "/n.json", []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := NewStore(fs, "/n.json").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].HasImage() {
		t.Error("expected null image to load as no image")
	}
	if records[1].Image != "aGk=" {
		t.Errorf("expected image payload to survive, got %q", records[1].Image)
	}
}

func TestLoadNormalizesTime(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/n.json", []byte(`[{"id":"a","title":"t","message":"m","time":"9:05"}]`), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := NewStore(fs, "/n.json").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if records[0].Time != "09:05" {
		t.Fatalf("expected canonical time, got %q", records[0].Time)
	}
}

func TestSaveWritesPlainArrayAndOmitsEmptyImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/n.json")
	if err := store.Save([]reminder.Record{{ID: "abc", Title: "t", Message: "m", Time: "08:00"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	raw, err := afero.ReadFile(fs, "/n.json")
	if err != nil {
		t.Fatal(err)
	}
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("expected a JSON array: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected one item, got %d", len(items))
	}
	if _, ok := items[0]["image"]; ok {
		t.Error("expected image key to be omitted")
	}
	for _, key := range []string{"id", "title", "message", "time"} {
		if _, ok := items[0][key]; !ok {
			t.Errorf("expected key %q", key)
		}
	}

	if exists, _ := afero.Exists(fs, "/n.json.tmp"); exists {
		t.Error("temp file left behind")
	}
}

func TestSaveOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/n.json")

	store.Save([]reminder.Record{{ID: "1", Title: "a", Message: "a", Time: "01:00"}, {ID: "2", Title: "b", Message: "b", Time: "02:00"}})
	store.Save([]reminder.Record{{ID: "2", Title: "b", Message: "b", Time: "02:00"}})

	records, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].ID != "2" {
		t.Fatalf("expected only record 2, got %+v", records)
	}
}

func TestDataDir(t *testing.T) {
	tmpDir := t.TempDir()
	os.Setenv("XDG_DATA_HOME", tmpDir)
	defer os.Unsetenv("XDG_DATA_HOME")

	path, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath failed: %v", err)
	}

	expectedPath := filepath.Join(tmpDir, "tasknotifier", "notifications.json")
	if path != expectedPath {
		t.Errorf("expected path %s, got %s", expectedPath, path)
	}
	if info, err := os.Stat(filepath.Dir(path)); err != nil || !info.IsDir() {
		t.Errorf("expected data dir to exist: %v", err)
	}
}

func TestSaveLoadOnDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "notifications.json")
	store := NewStore(afero.NewOsFs(), path)

	if err := store.Save([]reminder.Record{{ID: "x", Title: "t", Message: "m", Time: "23:59"}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(records) != 1 || records[0].Time != "23:59" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestState(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/data/notifications.json")

	state, err := store.State()
	if err != nil || state != (FileState{}) {
		t.Fatalf("expected zero state for missing file, got %v (%v)", state, err)
	}

	if err := store.Save(nil); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	saved, err := store.State()
	if err != nil || saved.ModTime.IsZero() || saved.Size == 0 {
		t.Fatalf("expected state after save, got %v (%v)", saved, err)
	}

	// Same modification time, different contents.
	if err := afero.WriteFile(fs, "/data/notifications.json", []byte(`[{"title":"a","message":"b","time":"09:00"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := fs.Chtimes("/data/notifications.json", saved.ModTime, saved.ModTime); err != nil {
		t.Fatal(err)
	}
	edited, err := store.State()
	if err != nil {
		t.Fatalf("State failed: %v", err)
	}
	if edited.Equal(saved) {
		t.Fatalf("expected a size change to be visible, got %v and %v", edited, saved)
	}
}
