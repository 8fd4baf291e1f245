// Package scheduler polls the catalog and delivers every record whose time
// matches the current minute.
package scheduler

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/afero"

	"github.com/nateberkopec/tasknotifier/internal/clock"
	"github.com/nateberkopec/tasknotifier/internal/delivery"
	"github.com/nateberkopec/tasknotifier/internal/imagefile"
	"github.com/nateberkopec/tasknotifier/internal/logger"
	"github.com/nateberkopec/tasknotifier/internal/persistence"
	"github.com/nateberkopec/tasknotifier/internal/reminder"
)

// DefaultInterval is the time between polls when none is configured.
const DefaultInterval = 30 * time.Second

// eventBuffer bounds the events channel. Events beyond it are dropped.
const eventBuffer = 32

// Source provides the records to check on each poll.
type Source interface {
	Records() []reminder.Record
}

// Deliverer shows a notification and reports which backend did it.
type Deliverer interface {
	Deliver(ctx context.Context, n delivery.Notification) (string, error)
}

// Recorder stores delivery attempts.
type Recorder interface {
	Append(entry persistence.Delivery) error
}

// Event describes one delivery attempt. It is also a tea.Msg.
type Event struct {
	Record  reminder.Record
	Backend string
	Err     error
	At      time.Time
}

// Config holds the scheduler's collaborators and settings.
type Config struct {
	Interval time.Duration
	// Fs and ImageDir control where temporary image files are written.
	Fs       afero.Fs
	ImageDir string
	Sound    bool
	// Deduplicate skips a record that already fired in the current minute.
	Deduplicate bool
	Now         func() time.Time
	Logger      logger.Logger
	Recorder    Recorder
}

// Scheduler runs the polling loop.
type Scheduler struct {
	source    Source
	deliverer Deliverer
	cfg       Config
	events    chan Event

	mu        sync.Mutex
	lastFired map[string]string
}

// New creates a scheduler reading records from source and delivering through d.
func New(source Source, d Deliverer, cfg Config) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNopLogger()
	}
	return &Scheduler{
		source:    source,
		deliverer: d,
		cfg:       cfg,
		events:    make(chan Event, eventBuffer),
		lastFired: make(map[string]string),
	}
}

// Interval returns the configured poll interval.
func (s *Scheduler) Interval() time.Duration {
	return s.cfg.Interval
}

// Events returns the channel that receives one Event per delivery attempt.
func (s *Scheduler) Events() <-chan Event {
	return s.events
}

// Run polls immediately and then once per interval until ctx is cancelled.
// It always returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.cfg.Logger.Info("scheduler started, polling every %s", s.cfg.Interval)
	s.Poll(ctx, s.cfg.Now())

	for {
		select {
		case <-ctx.Done():
			s.cfg.Logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.Poll(ctx, s.cfg.Now())
		}
	}
}

// Poll delivers every record whose time equals now's HH:MM and returns how
// many deliveries were attempted.
func (s *Scheduler) Poll(ctx context.Context, now time.Time) int {
	minute := clock.Format(now)
	attempted := 0
	for _, r := range s.source.Records() {
		if ctx.Err() != nil {
			break
		}
		if r.Time != minute {
			continue
		}
		if s.cfg.Deduplicate && !s.claim(r.ID, now) {
			continue
		}
		s.publish(s.fire(ctx, r, now))
		attempted++
	}
	return attempted
}

// Fire delivers r immediately, regardless of its time. The event is returned
// to the caller instead of being published.
func (s *Scheduler) Fire(ctx context.Context, r reminder.Record) Event {
	return s.fire(ctx, r, s.cfg.Now())
}

func (s *Scheduler) claim(id string, now time.Time) bool {
	key := now.Format("2006-01-02 15:04")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastFired[id] == key {
		return false
	}
	s.lastFired[id] = key
	return true
}

func (s *Scheduler) fire(ctx context.Context, r reminder.Record, now time.Time) Event {
	n := delivery.Notification{
		Title:   r.Title,
		Message: r.Message,
		Time:    r.Time,
		Sound:   s.cfg.Sound,
	}

	if r.HasImage() {
		path, err := imagefile.Materialize(s.cfg.Fs, s.cfg.ImageDir, r.Image)
		if err != nil {
			s.cfg.Logger.Warning("image for %q skipped: %v", r.Title, err)
		} else {
			n.ImagePath = path
			defer func() {
				if err := imagefile.Remove(s.cfg.Fs, path); err != nil {
					s.cfg.Logger.Warning("%v", err)
				}
			}()
		}
	}

	backend, err := s.deliverer.Deliver(ctx, n)
	ev := Event{Record: r, Backend: backend, Err: err, At: now}
	if err != nil {
		s.cfg.Logger.Error("notification %q at %s failed: %v", r.Title, r.Time, err)
	} else {
		s.cfg.Logger.Info("notification %q delivered via %s", r.Title, backend)
	}

	s.record(ev)
	return ev
}

func (s *Scheduler) record(ev Event) {
	if s.cfg.Recorder == nil {
		return
	}
	entry := persistence.Delivery{
		RecordID: ev.Record.ID,
		Title:    ev.Record.Title,
		Minute:   clock.Format(ev.At),
		Backend:  ev.Backend,
		FiredAt:  ev.At,
	}
	if ev.Err != nil {
		entry.Error = ev.Err.Error()
	}
	if err := s.cfg.Recorder.Append(entry); err != nil {
		s.cfg.Logger.Warning("failed to record delivery: %v", err)
	}
}

// publish sends ev without blocking; a full channel drops it.
func (s *Scheduler) publish(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// WaitForEvent returns a tea.Cmd that blocks until the next event arrives.
// The model must call it again after handling each Event.
func (s *Scheduler) WaitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-s.events
		if !ok {
			return nil
		}
		return ev
	}
}
