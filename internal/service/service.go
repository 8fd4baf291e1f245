// Package service owns the notification catalog and keeps it in sync with the
// data file. The UI and the command line both mutate records through it.
package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"github.com/nateberkopec/tasknotifier/internal/imagefile"
	"github.com/nateberkopec/tasknotifier/internal/logger"
	"github.com/nateberkopec/tasknotifier/internal/persistence"
	"github.com/nateberkopec/tasknotifier/internal/reminder"
)

var (
	// ErrNotFound is returned when no record matches an id or position.
	ErrNotFound = errors.New("notification not found")
	// ErrAmbiguous is returned when an id prefix matches several records.
	ErrAmbiguous = errors.New("notification reference is ambiguous")
)

// Store persists the full record list.
type Store interface {
	Load() ([]reminder.Record, error)
	Save(records []reminder.Record) error
}

// stater is implemented by stores that can tell when another process
// rewrote them.
type stater interface {
	State() (persistence.FileState, error)
}

// Service is the application context shared by the UI, the CLI and the
// scheduler.
type Service struct {
	catalog *reminder.Catalog
	store   Store
	fs      afero.Fs
	logger  logger.Logger

	// mu serializes every store round trip: a mutation and its save, or a
	// refresh's load and import.
	mu     sync.Mutex
	synced persistence.FileState
}

// New creates a service with an empty catalog. Call Load to read the store.
func New(store Store, fs afero.Fs, log logger.Logger) *Service {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Service{
		catalog: reminder.NewCatalog(),
		store:   store,
		fs:      fs,
		logger:  log,
	}
}

// Catalog exposes the records for the scheduler's snapshots.
func (s *Service) Catalog() *reminder.Catalog {
	return s.catalog
}

// Load replaces the catalog with the stored records. On failure the catalog
// is left empty and the error is returned. Records stored without an id get
// one, and the file is rewritten so the ids stick.
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.Load()
	s.catalog.ImportState(records)
	if err != nil {
		s.logger.Error("failed to load notifications: %v", err)
		return err
	}
	s.logger.Info("loaded %d notifications", len(records))

	if missingIDs(records) {
		return s.save()
	}
	s.markSynced()
	return nil
}

// Refresh reloads the store when it changed since the last load or save,
// which happens when another process edits the same file. A failed reload
// keeps the current records.
func (s *Service) Refresh() (bool, error) {
	st, ok := s.store.(stater)
	if !ok {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := st.State()
	if err != nil {
		return false, err
	}
	if state.Equal(s.synced) {
		return false, nil
	}

	records, err := s.store.Load()
	if err != nil {
		return false, err
	}
	s.catalog.ImportState(records)
	s.logger.Info("reloaded %d notifications after an external change", len(records))

	if missingIDs(records) {
		return true, s.save()
	}
	s.synced = state
	return true, nil
}

// Watched returns a snapshot source that calls Refresh before every snapshot.
func (s *Service) Watched() *Watched {
	return &Watched{service: s}
}

// Watched adapts a Service into a record source that follows edits made by
// other processes.
type Watched struct {
	service *Service
}

// Records refreshes the service and returns its records.
func (w *Watched) Records() []reminder.Record {
	if _, err := w.service.Refresh(); err != nil {
		w.service.logger.Warning("failed to refresh notifications: %v", err)
	}
	return w.service.Records()
}

func missingIDs(records []reminder.Record) bool {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if r.ID == "" || seen[r.ID] {
			return true
		}
		seen[r.ID] = true
	}
	return false
}

// markSynced remembers the file state just written or read. Callers hold mu.
func (s *Service) markSynced() {
	st, ok := s.store.(stater)
	if !ok {
		return
	}
	state, err := st.State()
	if err != nil {
		return
	}
	s.synced = state
}

// Records returns a snapshot of every record in display order.
func (s *Service) Records() []reminder.Record {
	return s.catalog.Records()
}

// Get returns the record with the given id.
func (s *Service) Get(id string) (reminder.Record, error) {
	r, ok := s.catalog.Get(id)
	if !ok {
		return reminder.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, nil
}

// Create validates d, adds it to the catalog and saves.
func (s *Service) Create(d reminder.Draft) (reminder.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := d.Validate()
	if err != nil {
		return reminder.Record{}, err
	}

	r := reminder.Record{Title: d.Title, Message: d.Message, Time: d.Time}
	if d.ImagePath != "" {
		if r.Image, err = imagefile.Encode(s.fs, d.ImagePath); err != nil {
			return reminder.Record{}, err
		}
	}

	r = s.catalog.Add(r)
	s.logger.Info("created notification %s %q at %s", r.ID, r.Title, r.Time)
	return r, s.save()
}

// Update replaces the record with the given id. The existing image is kept
// unless d names a new one or clearImage is set.
func (s *Service) Update(id string, d reminder.Draft, clearImage bool) (reminder.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, err := d.Validate()
	if err != nil {
		return reminder.Record{}, err
	}

	existing, ok := s.catalog.Get(id)
	if !ok {
		return reminder.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	r := reminder.Record{Title: d.Title, Message: d.Message, Time: d.Time, Image: existing.Image}
	switch {
	case d.ImagePath != "":
		if r.Image, err = imagefile.Encode(s.fs, d.ImagePath); err != nil {
			return reminder.Record{}, err
		}
	case clearImage:
		r.Image = ""
	}

	r, ok = s.catalog.Update(id, r)
	if !ok {
		return reminder.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Info("updated notification %s", id)
	return r, s.save()
}

// Delete removes the record with the given id.
func (s *Service) Delete(id string) (reminder.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.catalog.Delete(id)
	if !ok {
		return reminder.Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Info("deleted notification %s", id)
	return r, s.save()
}

// DeleteAt removes the record at display position index (0-based).
func (s *Service) DeleteAt(index int) (reminder.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.catalog.DeleteAt(index)
	if !ok {
		return reminder.Record{}, fmt.Errorf("%w: position %d", ErrNotFound, index)
	}
	s.logger.Info("deleted notification %s at position %d", r.ID, index)
	return r, s.save()
}

// Resolve finds a record by full id, unique id prefix or "#N", where N is
// the 1-based position shown by the list command.
func (s *Service) Resolve(ref string) (reminder.Record, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return reminder.Record{}, fmt.Errorf("%w: empty reference", ErrNotFound)
	}

	if pos, ok := strings.CutPrefix(ref, "#"); ok {
		n, err := strconv.Atoi(pos)
		if err != nil {
			return reminder.Record{}, fmt.Errorf("invalid position %q: %w", ref, err)
		}
		r, ok := s.catalog.At(n - 1)
		if !ok {
			return reminder.Record{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
		}
		return r, nil
	}

	if r, ok := s.catalog.Get(ref); ok {
		return r, nil
	}

	var match reminder.Record
	found := 0
	for _, r := range s.catalog.Records() {
		if strings.HasPrefix(r.ID, ref) {
			match = r
			found++
		}
	}
	switch found {
	case 0:
		return reminder.Record{}, fmt.Errorf("%w: %s", ErrNotFound, ref)
	case 1:
		return match, nil
	default:
		return reminder.Record{}, fmt.Errorf("%w: %s matches %d notifications", ErrAmbiguous, ref, found)
	}
}

// save writes the catalog to the store. Callers hold mu.
func (s *Service) save() error {
	if err := s.store.Save(s.catalog.ExportState()); err != nil {
		s.logger.Error("failed to save notifications: %v", err)
		return fmt.Errorf("saving notifications: %w", err)
	}
	s.markSynced()
	return nil
}
