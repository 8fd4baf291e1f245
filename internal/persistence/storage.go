package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/nateberkopec/tasknotifier/internal/clock"
	"github.com/nateberkopec/tasknotifier/internal/reminder"
)

const appDirName = "tasknotifier"

// recordData mirrors the on-disk object. Image is a pointer so files that
// store "image": null load cleanly.
type recordData struct {
	ID      string  `json:"id,omitempty"`
	Title   string  `json:"title"`
	Message string  `json:"message"`
	Time    string  `json:"time"`
	Image   *string `json:"image,omitempty"`
}

// DataDir returns $XDG_DATA_HOME/tasknotifier, falling back to
// ~/.local/share/tasknotifier, and creates it.
func DataDir() (string, error) {
	xdgData := os.Getenv("XDG_DATA_HOME")
	if xdgData == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		xdgData = filepath.Join(home, ".local", "share")
	}

	dir := filepath.Join(xdgData, appDirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dir, nil
}

// DefaultPath is where notifications are stored when no path is configured.
func DefaultPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "notifications.json"), nil
}

// Store reads and writes the record list as a JSON array.
type Store struct {
	fs   afero.Fs
	path string
}

// NewStore creates a store backed by the file at path on fs.
func NewStore(fs afero.Fs, path string) *Store {
	return &Store{fs: fs, path: path}
}

// Path returns the file the store reads and writes.
func (s *Store) Path() string {
	return s.path
}

// FileState identifies one version of the data file. The zero value means
// the file does not exist.
type FileState struct {
	ModTime time.Time
	Size    int64
}

// Equal reports whether both states describe the same file contents as far
// as size and modification time can tell.
func (f FileState) Equal(other FileState) bool {
	return f.Size == other.Size && f.ModTime.Equal(other.ModTime)
}

// State reports the file's size and modification time.
func (s *Store) State() (FileState, error) {
	info, err := s.fs.Stat(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return FileState{}, nil
		}
		return FileState{}, fmt.Errorf("failed to stat notifications file: %w", err)
	}
	return FileState{ModTime: info.ModTime(), Size: info.Size()}, nil
}

func convertToData(records []reminder.Record) []recordData {
	data := make([]recordData, 0, len(records))
	for _, r := range records {
		d := recordData{
			ID:      r.ID,
			Title:   r.Title,
			Message: r.Message,
			Time:    r.Time,
		}
		if r.Image != "" {
			image := r.Image
			d.Image = &image
		}
		data = append(data, d)
	}
	return data
}

func convertFromData(data []recordData) ([]reminder.Record, error) {
	records := make([]reminder.Record, 0, len(data))
	for i, d := range data {
		r := reminder.Record{
			ID:      d.ID,
			Title:   d.Title,
			Message: d.Message,
			Time:    d.Time,
		}
		if d.Image != nil {
			r.Image = *d.Image
		}
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("invalid notification at index %d: %w", i, err)
		}
		// Hand-edited files may hold "9:05"; matching compares canonical strings.
		r.Time, _ = clock.Normalize(r.Time)
		records = append(records, r)
	}
	return records, nil
}

// Save overwrites the file with the full record list. The write goes to a
// temporary file first and is renamed into place.
func (s *Store) Save(records []reminder.Record) error {
	data, err := json.MarshalIndent(convertToData(records), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal notifications: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := s.fs.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	tmpPath := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := s.fs.Rename(tmpPath, s.path); err != nil {
		s.fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Load reads the record list. A missing file yields an empty list. Any read,
// parse or validation failure yields an empty list together with the error so
// the caller can report it; partial data is never returned.
func (s *Store) Load() ([]reminder.Record, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []reminder.Record{}, nil
		}
		return []reminder.Record{}, fmt.Errorf("failed to read notifications file: %w", err)
	}

	var items []recordData
	if err := json.Unmarshal(data, &items); err != nil {
		return []reminder.Record{}, fmt.Errorf("failed to unmarshal notifications: %w", err)
	}

	records, err := convertFromData(items)
	if err != nil {
		return []reminder.Record{}, err
	}
	return records, nil
}
