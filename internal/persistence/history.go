package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// Delivery is one attempt to show a notification.
type Delivery struct {
	RecordID string    `json:"record_id"`
	Title    string    `json:"title"`
	Minute   string    `json:"minute"`
	Backend  string    `json:"backend,omitempty"`
	Error    string    `json:"error,omitempty"`
	FiredAt  time.Time `json:"fired_at"`
}

// OK reports whether some backend displayed the notification.
func (d Delivery) OK() bool {
	return d.Error == ""
}

type historyData struct {
	Version    int        `json:"version"`
	Deliveries []Delivery `json:"deliveries"`
	SavedAt    time.Time  `json:"saved_at"`
}

const historyVersion = 1
const maxHistorySize = 1000

// HistoryPath places the delivery log next to the notifications file.
func HistoryPath(dataFile string) string {
	return filepath.Join(filepath.Dir(dataFile), "history.json")
}

// History is the append-only delivery log written by the scheduler.
type History struct {
	mu   sync.Mutex
	fs   afero.Fs
	path string
}

// NewHistory creates a delivery log stored at path on fs.
func NewHistory(fs afero.Fs, path string) *History {
	return &History{fs: fs, path: path}
}

// Append adds an entry and trims the log to the most recent entries.
func (h *History) Append(entry Delivery) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	deliveries, err := h.load()
	if err != nil {
		// A damaged log is replaced rather than blocking new entries.
		deliveries = nil
	}
	deliveries = append(deliveries, entry)

	// Limit history size
	if len(deliveries) > maxHistorySize {
		deliveries = deliveries[len(deliveries)-maxHistorySize:]
	}

	history := historyData{
		Version:    historyVersion,
		Deliveries: deliveries,
		SavedAt:    time.Now(),
	}

	data, err := json.MarshalIndent(history, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	if err := h.fs.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}

	tmpPath := h.path + ".tmp"
	if err := afero.WriteFile(h.fs, tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	if err := h.fs.Rename(tmpPath, h.path); err != nil {
		h.fs.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Load returns every logged delivery, oldest first.
func (h *History) Load() ([]Delivery, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.load()
}

func (h *History) load() ([]Delivery, error) {
	data, err := afero.ReadFile(h.fs, h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Delivery{}, nil
		}
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var history historyData
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, fmt.Errorf("failed to unmarshal history: %w", err)
	}

	if history.Version != historyVersion {
		return nil, fmt.Errorf("unsupported history version: %d", history.Version)
	}

	return history.Deliveries, nil
}
