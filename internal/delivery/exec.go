package delivery

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// Exec shells out to the platform's notification command.
type Exec struct {
	goos     string
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// NewExec returns the command-line fallback backend.
func NewExec() *Exec {
	return &Exec{
		goos:     runtime.GOOS,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
			if err != nil {
				if msg := strings.TrimSpace(string(out)); msg != "" {
					return fmt.Errorf("%s: %w: %s", name, err, msg)
				}
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		},
	}
}

func (e *Exec) Name() string { return "exec" }

func (e *Exec) Send(ctx context.Context, n Notification) error {
	name, args := e.command(n)
	if name == "" {
		return ErrUnsupported
	}
	if _, err := e.lookPath(name); err != nil {
		return fmt.Errorf("%w: %s not found", ErrUnsupported, name)
	}
	return e.run(ctx, name, args...)
}

func (e *Exec) command(n Notification) (string, []string) {
	switch e.goos {
	case "linux", "freebsd", "openbsd", "netbsd":
		args := []string{"--app-name=tasknotifier"}
		if n.ImagePath != "" {
			args = append(args, "--icon="+n.ImagePath)
		}
		return "notify-send", append(args, "--", n.Title, n.Message)
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", appleScriptString(n.Message), appleScriptString(n.Title))
		if n.Sound {
			script += ` sound name "default"`
		}
		return "osascript", []string{"-e", script}
	default:
		return "", nil
	}
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
