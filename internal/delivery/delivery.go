// Package delivery shows notifications through an ordered chain of platform
// backends. The first backend that succeeds wins.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nateberkopec/tasknotifier/internal/logger"
)

// ErrUnsupported is returned by a backend that cannot run on this platform or
// is not configured.
var ErrUnsupported = errors.New("backend not supported here")

// ErrNoBackends is returned by a chain with nothing to try.
var ErrNoBackends = errors.New("no notification backends configured")

// Notification is what a backend is asked to display.
type Notification struct {
	Title   string
	Message string
	// Time is the record's daily HH:MM. Empty for ad-hoc notifications.
	Time string
	// ImagePath points at an image file on the local disk. Empty means none.
	ImagePath string
	// Sound asks for the platform's default notification sound.
	Sound bool
}

// Backend is one concrete way of showing a notification.
type Backend interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// Chain tries each backend in order until one succeeds.
type Chain struct {
	backends []Backend
	logger   logger.Logger
}

// NewChain creates a chain over the given backends.
func NewChain(log logger.Logger, backends ...Backend) *Chain {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Chain{backends: backends, logger: log}
}

// Backends returns the backend names in the order they are tried.
func (c *Chain) Backends() []string {
	names := make([]string, 0, len(c.backends))
	for _, b := range c.backends {
		names = append(names, b.Name())
	}
	return names
}

// Deliver shows n through the first backend that accepts it and returns that
// backend's name. When every backend fails the individual errors are joined.
func (c *Chain) Deliver(ctx context.Context, n Notification) (string, error) {
	if len(c.backends) == 0 {
		return "", ErrNoBackends
	}

	var errs []error
	for _, b := range c.backends {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		err := send(ctx, b, n)
		if err == nil {
			return b.Name(), nil
		}
		if !errors.Is(err, ErrUnsupported) {
			c.logger.Warning("%s backend failed for %q: %v", b.Name(), n.Title, err)
		}
		errs = append(errs, fmt.Errorf("%s: %w", b.Name(), err))
	}
	return "", fmt.Errorf("failed to send notification: %w", errors.Join(errs...))
}

// send calls b and turns a panic inside it into that backend's error.
func send(ctx context.Context, b Backend, n Notification) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("backend panicked: %v", p)
		}
	}()
	return b.Send(ctx, n)
}

// Options configures the backends Build can create.
type Options struct {
	AppName string
	Webhook WebhookConfig
}

// DefaultBackends is the order used when none is configured.
var DefaultBackends = []string{"toast", "dbus", "beeep", "exec"}

// Build creates backends by name in the given order. An empty list selects
// DefaultBackends, plus the webhook when it has a URL.
func Build(names []string, opts Options) ([]Backend, error) {
	if opts.AppName == "" {
		opts.AppName = "tasknotifier"
	}
	if len(names) == 0 {
		names = append([]string(nil), DefaultBackends...)
		if opts.Webhook.URL != "" {
			names = append(names, "webhook")
		}
	}

	backends := make([]Backend, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		switch name {
		case "toast":
			backends = append(backends, NewToast(opts.AppName))
		case "dbus":
			backends = append(backends, NewDBus(opts.AppName))
		case "beeep":
			backends = append(backends, NewBeeep())
		case "exec":
			backends = append(backends, NewExec())
		case "webhook":
			backends = append(backends, NewWebhook(opts.Webhook))
		default:
			return nil, fmt.Errorf("unknown notification backend %q", raw)
		}
	}
	return backends, nil
}
