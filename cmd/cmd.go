// Package cmd implements the tasknotifier command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/nateberkopec/tasknotifier/internal/credential"
	"github.com/nateberkopec/tasknotifier/internal/scheduler"
)

// BuildArgs carries values stamped in at link time.
type BuildArgs struct {
	Version string
	Commit  string
	Date    string
}

const description = `tasknotifier keeps a list of daily notifications and shows each one as a
desktop notification when the clock reaches its HH:MM time.

Run without a command to open the interactive list. Use "daemon" to run only
the scheduler, for example from a systemd user unit or a login item.`

// tokenStore is the keyring surface the token command and webhook setup use.
type tokenStore interface {
	Get(key string) (string, error)
	Set(key, secret string) error
	Delete(key string) error
}

type globalOptions struct {
	configPath string
	dataFile   string
	interval   time.Duration
	bell       bool
	dedupe     bool
}

// Runner executes the command line. Its fields can be replaced in tests.
type Runner struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Stdin   io.Reader
	Fs      afero.Fs
	Keyring tokenStore
	// Deliverer replaces the configured backend chain when set.
	Deliverer scheduler.Deliverer
	Now       func() time.Time
	// Context is the parent of every long-running command. Defaults to
	// context.Background.
	Context context.Context

	opts         globalOptions
	draftOpts    draftOptions
	listJSON     bool
	historyLimit int
}

// NewRunner returns a runner wired to the real terminal, disk and keyring.
func NewRunner() *Runner {
	return &Runner{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Stdin:   os.Stdin,
		Fs:      afero.NewOsFs(),
		Keyring: credential.NewKeyring(),
		Now:     time.Now,
	}
}

// Execute runs the command line with the real dependencies.
func Execute(args []string, bArgs BuildArgs) error {
	return NewRunner().Run(args, bArgs)
}

// Run parses args and dispatches to the selected command.
func (r *Runner) Run(args []string, bArgs BuildArgs) error {
	version := bArgs.Version
	if version == "" {
		version = "dev"
	}

	app := cli.App{
		Name:      "tasknotifier",
		HelpName:  "tasknotifier",
		Usage:     "daily desktop notifications",
		UsageText: "tasknotifier [global options] [command] [arguments...]",
		Version:   version,
		Description: description + fmt.Sprintf("\n\nBuild: %s (%s_%s) %s %s",
			version, runtime.GOOS, runtime.GOARCH, bArgs.Date, bArgs.Commit),
		Writer:    r.Stdout,
		ErrWriter: r.Stderr,
		Flags:     r.globalFlags(),
		Action:    r.tui,
		Commands:  r.commands(),
	}
	return app.Run(args)
}

func (r *Runner) globalFlags() []cli.Flag {
	return []cli.Flag{
		cli.StringFlag{
			Name:        "config",
			Usage:       "path to the YAML config file",
			Destination: &r.opts.configPath,
		},
		cli.StringFlag{
			Name:        "data-file",
			Usage:       "path to the notifications JSON file",
			Destination: &r.opts.dataFile,
		},
		cli.DurationFlag{
			Name:        "interval",
			Usage:       "how often the scheduler checks the clock (default: 30s)",
			Destination: &r.opts.interval,
		},
		cli.BoolFlag{
			Name:        "bell",
			Usage:       "ring the terminal bell when a notification fires (use --bell=false to mute)",
			Destination: &r.opts.bell,
		},
		cli.BoolFlag{
			Name:        "dedupe",
			Usage:       "deliver each notification at most once per minute",
			Destination: &r.opts.dedupe,
		},
	}
}

func (r *Runner) commands() []cli.Command {
	return []cli.Command{
		{
			Name:   "daemon",
			Usage:  "run the scheduler without the interactive list",
			Action: r.daemon,
		},
		{
			Name:      "add",
			Aliases:   []string{"a"},
			Usage:     "schedule a new daily notification",
			UsageText: `tasknotifier add --title "Stand-up" --message "Join the call" --time 09:00 [--image path]`,
			Flags:     recordFlags(&r.draftOpts, false),
			Action:    r.add,
		},
		{
			Name:    "list",
			Aliases: []string{"ls", "l"},
			Usage:   "show scheduled notifications",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:        "json",
					Usage:       "print the records as JSON",
					Destination: &r.listJSON,
				},
			},
			Action: r.list,
		},
		{
			Name:      "update",
			Aliases:   []string{"u"},
			Usage:     "change a notification",
			UsageText: "tasknotifier update <id|id-prefix|#N> [--title ...] [--message ...] [--time HH:MM] [--image path | --clear-image]",
			Flags:     recordFlags(&r.draftOpts, true),
			Action:    r.update,
		},
		{
			Name:      "delete",
			Aliases:   []string{"rm"},
			Usage:     "remove a notification",
			UsageText: "tasknotifier delete <id|id-prefix|#N>",
			Action:    r.remove,
		},
		{
			Name:      "fire",
			Usage:     "deliver a notification now, regardless of its time",
			UsageText: "tasknotifier fire <id|id-prefix|#N>",
			Action:    r.fire,
		},
		{
			Name:  "history",
			Usage: "show recent delivery attempts",
			Flags: []cli.Flag{
				cli.IntFlag{
					Name:        "limit, n",
					Usage:       "number of entries to show",
					Value:       20,
					Destination: &r.historyLimit,
				},
			},
			Action: r.history,
		},
		{
			Name:  "token",
			Usage: "manage the webhook token stored in the OS keyring",
			Subcommands: []cli.Command{
				{
					Name:      "set",
					Usage:     "store the webhook token (reads stdin when no value is given)",
					UsageText: "tasknotifier token set [token]",
					Action:    r.tokenSet,
				},
				{
					Name:   "delete",
					Usage:  "remove the stored webhook token",
					Action: r.tokenDelete,
				},
			},
		},
	}
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r *Runner) context() context.Context {
	if r.Context == nil {
		return context.Background()
	}
	return r.Context
}
