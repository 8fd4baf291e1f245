package logger

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStandardLoggerPrefixes(t *testing.T) {
	var buf bytes.Buffer
	l := NewStandardLogger(log.New(&buf, "", 0))

	l.Info("started %d", 1)
	l.Warning("slow")
	l.Error("failed: %s", "boom")

	out := buf.String()
	for _, want := range []string{"[INFO] started 1", "[WARNING] slow", "[ERROR] failed: boom"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}

func TestFileLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	l.Info("first")
	if err := l.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	l, err = NewFileLogger(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	l.Error("second")
	l.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] first") || !strings.Contains(string(data), "[ERROR] second") {
		t.Fatalf("unexpected log contents:\n%s", data)
	}
}

func TestMultiLoggerBroadcasts(t *testing.T) {
	a, b := NewMockLogger(), NewMockLogger()
	m := NewMultiLogger(a, b, NewNopLogger())

	m.Info("hello %s", "world")
	m.Warning("w")
	m.Error("e")
	m.Close()

	for _, mock := range []*MockLogger{a, b} {
		if got := mock.InfoCalls(); len(got) != 1 || got[0] != "hello world" {
			t.Fatalf("unexpected info calls: %v", got)
		}
		if len(mock.WarningCalls()) != 1 || len(mock.ErrorCalls()) != 1 {
			t.Fatalf("expected one warning and one error")
		}
		if !mock.Closed() {
			t.Fatal("expected Close to propagate")
		}
	}
}
