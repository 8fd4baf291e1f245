package delivery

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nateberkopec/tasknotifier/internal/logger"
)

type stubBackend struct {
	name  string
	err   error
	calls []Notification
}

func (s *stubBackend) Name() string { return s.name }

func (s *stubBackend) Send(_ context.Context, n Notification) error {
	s.calls = append(s.calls, n)
	return s.err
}

func TestChainFirstSuccessWins(t *testing.T) {
	first := &stubBackend{name: "first", err: ErrUnsupported}
	second := &stubBackend{name: "second"}
	third := &stubBackend{name: "third"}
	chain := NewChain(nil, first, second, third)

	used, err := chain.Deliver(context.Background(), Notification{Title: "t", Message: "m"})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if used != "second" {
		t.Fatalf("expected second backend, got %q", used)
	}
	if len(first.calls) != 1 || len(second.calls) != 1 || len(third.calls) != 0 {
		t.Fatalf("unexpected call counts: %d %d %d", len(first.calls), len(second.calls), len(third.calls))
	}
}

func TestChainJoinsErrorsWhenAllFail(t *testing.T) {
	boom := errors.New("boom")
	log := logger.NewMockLogger()
	chain := NewChain(log,
		&stubBackend{name: "a", err: ErrUnsupported},
		&stubBackend{name: "b", err: boom},
	)

	used, err := chain.Deliver(context.Background(), Notification{Title: "t"})
	if err == nil {
		t.Fatal("expected error")
	}
	if used != "" {
		t.Fatalf("expected no backend name, got %q", used)
	}
	if !errors.Is(err, boom) || !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected joined errors, got %v", err)
	}
	if !strings.Contains(err.Error(), "b: boom") {
		t.Fatalf("expected backend name in error, got %v", err)
	}
	if got := log.WarningCalls(); len(got) != 1 {
		t.Fatalf("expected only the real failure to be logged, got %v", got)
	}
}

type panickyBackend struct{}

func (panickyBackend) Name() string { return "panicky" }

func (panickyBackend) Send(context.Context, Notification) error {
	panic("dbus connection went away")
}

func TestChainRecoversBackendPanic(t *testing.T) {
	log := logger.NewMockLogger()
	next := &stubBackend{name: "next"}
	chain := NewChain(log, panickyBackend{}, next)

	used, err := chain.Deliver(context.Background(), Notification{Title: "t"})
	if err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if used != "next" || len(next.calls) != 1 {
		t.Fatalf("expected fallback to next, got %q with %d calls", used, len(next.calls))
	}
	warnings := log.WarningCalls()
	if len(warnings) != 1 || !strings.Contains(warnings[0], "panicked") {
		t.Fatalf("expected the panic to be logged, got %v", warnings)
	}
}

func TestChainWithoutBackends(t *testing.T) {
	if _, err := NewChain(nil).Deliver(context.Background(), Notification{}); !errors.Is(err, ErrNoBackends) {
		t.Fatalf("expected ErrNoBackends, got %v", err)
	}
}

func TestChainStopsOnCancelledContext(t *testing.T) {
	backend := &stubBackend{name: "a"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewChain(nil, backend).Deliver(ctx, Notification{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(backend.calls) != 0 {
		t.Fatal("expected backend not to be called")
	}
}

func TestBuildDefaultsAndOrder(t *testing.T) {
	backends, err := Build(nil, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := NewChain(nil, backends...).Backends(); strings.Join(got, ",") != "toast,dbus,beeep,exec" {
		t.Fatalf("unexpected default order: %v", got)
	}

	backends, err = Build(nil, Options{Webhook: WebhookConfig{URL: "http://example.invalid"}})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := NewChain(nil, backends...).Backends(); got[len(got)-1] != "webhook" {
		t.Fatalf("expected webhook appended, got %v", got)
	}

	backends, err = Build([]string{"Beeep", "exec", "beeep", ""}, Options{})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if got := NewChain(nil, backends...).Backends(); strings.Join(got, ",") != "beeep,exec" {
		t.Fatalf("expected deduplicated explicit order, got %v", got)
	}

	if _, err := Build([]string{"carrier-pigeon"}, Options{}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestBeeepUsesAlertForSound(t *testing.T) {
	var notified, alerted []string
	b := &Beeep{
		notify: func(title, _, icon string) error { notified = append(notified, title+"|"+icon); return nil },
		alert:  func(title, _, icon string) error { alerted = append(alerted, title+"|"+icon); return nil },
	}

	b.Send(context.Background(), Notification{Title: "quiet", ImagePath: "/tmp/a.png"})
	b.Send(context.Background(), Notification{Title: "loud", Sound: true})

	if len(notified) != 1 || notified[0] != "quiet|/tmp/a.png" {
		t.Fatalf("unexpected notify calls: %v", notified)
	}
	if len(alerted) != 1 || alerted[0] != "loud|" {
		t.Fatalf("unexpected alert calls: %v", alerted)
	}
}

func TestExecCommands(t *testing.T) {
	var gotName string
	var gotArgs []string
	e := &Exec{
		lookPath: func(name string) (string, error) { return "/usr/bin/" + name, nil },
		run: func(_ context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			return nil
		},
	}

	e.goos = "linux"
	if err := e.Send(context.Background(), Notification{Title: "T", Message: "M", ImagePath: "/tmp/i.png"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotName != "notify-send" {
		t.Fatalf("expected notify-send, got %s", gotName)
	}
	if joined := strings.Join(gotArgs, " "); joined != "--app-name=tasknotifier --icon=/tmp/i.png -- T M" {
		t.Fatalf("unexpected args: %q", joined)
	}

	e.goos = "darwin"
	if err := e.Send(context.Background(), Notification{Title: `say "hi"`, Message: "M", Sound: true}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotName != "osascript" || len(gotArgs) != 2 {
		t.Fatalf("unexpected command: %s %v", gotName, gotArgs)
	}
	if want := `display notification "M" with title "say \"hi\"" sound name "default"`; gotArgs[1] != want {
		t.Fatalf("unexpected script:\n got %s\nwant %s", gotArgs[1], want)
	}

	e.goos = "plan9"
	if err := e.Send(context.Background(), Notification{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestExecMissingBinaryIsUnsupported(t *testing.T) {
	e := &Exec{
		goos:     "linux",
		lookPath: func(string) (string, error) { return "", errors.New("not found") },
		run: func(context.Context, string, ...string) error {
			t.Fatal("run should not be called")
			return nil
		},
	}
	if err := e.Send(context.Background(), Notification{}); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}
