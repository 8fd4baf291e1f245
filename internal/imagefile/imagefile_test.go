package imagefile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestEncodeMaterializeRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	original := append(append([]byte{}, pngHeader...), []byte("pixels\x00\x01\x02\xff")...)
	if err := afero.WriteFile(fs, "/src/icon.png", original, 0o644); err != nil {
		t.Fatalf("write source: %v", err)
	}

	payload, err := Encode(fs, "/src/icon.png")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	path, err := Materialize(fs, "/tmp/images", payload)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if filepath.Dir(path) != "/tmp/images" {
		t.Fatalf("expected temp file in /tmp/images, got %s", path)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Fatalf("expected .png suffix, got %s", path)
	}

	got, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("read temp: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatalf("round trip mismatch: got %v want %v", got, original)
	}

	if err := Remove(fs, path); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if exists, _ := afero.Exists(fs, path); exists {
		t.Fatal("expected temp file to be gone")
	}
}

func TestMaterializeCreatesDistinctFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	payload := "aGVsbG8="

	a, err := Materialize(fs, "/tmp", payload)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	b, err := Materialize(fs, "/tmp", payload)
	if err != nil {
		t.Fatalf("Materialize failed: %v", err)
	}
	if a == b {
		t.Fatalf("expected distinct temp files, both %s", a)
	}
}

func TestMaterializeRejectsBadPayload(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Materialize(fs, "/tmp", "not base64!!"); err == nil {
		t.Fatal("expected decode error")
	}
	files, _ := afero.ReadDir(fs, "/tmp")
	if len(files) != 0 {
		t.Fatalf("expected no files left behind, got %d", len(files))
	}
}

func TestEncodeErrors(t *testing.T) {
	fs := afero.NewMemMapFs()
	if _, err := Encode(fs, "/missing.png"); err == nil {
		t.Fatal("expected error for missing file")
	}
	if err := fs.MkdirAll("/dir", 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := Encode(fs, "/dir"); err == nil {
		t.Fatal("expected error for directory")
	}
}

func TestRemoveMissingIsNoop(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := Remove(fs, "/nope.png"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := Remove(fs, ""); err != nil {
		t.Fatalf("expected nil for empty path, got %v", err)
	}
}
