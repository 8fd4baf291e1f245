package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli"

	"github.com/nateberkopec/tasknotifier/internal/app"
)

// tui opens the interactive list with the scheduler running in the background.
func (r *Runner) tui(ctx *cli.Context) error {
	if ctx.NArg() > 0 {
		return fmt.Errorf("unknown command %q, see --help", ctx.Args().First())
	}

	e, err := r.setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.close()

	var notice string
	if err := e.service.Load(); err != nil {
		notice = fmt.Sprintf("Could not load %s: %v", e.dataFile, err)
	}

	sched, err := r.newScheduler(e, e.service.Watched())
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(r.context())
	defer cancel()
	go func() {
		if err := sched.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("scheduler stopped: %v", err)
		}
	}()

	program := tea.NewProgram(
		app.New(app.Config{
			Service:     e.service,
			Scheduler:   sched,
			Fs:          r.Fs,
			BellEnabled: e.cfg.Display.Bell,
			Now:         r.Now,
			Notice:      notice,
		}),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithInput(r.Stdin),
		tea.WithOutput(r.Stdout),
	)
	_, err = program.Run()
	return err
}

// daemon runs only the scheduler until interrupted.
func (r *Runner) daemon(ctx *cli.Context) error {
	e, err := r.setup(ctx, true)
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.service.Load(); err != nil {
		e.logger.Warning("starting with no notifications: %v", err)
	}

	sched, err := r.newScheduler(e, e.service.Watched())
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(r.context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e.logger.Info("watching %s every %s", e.dataFile, sched.Interval())
	err = sched.Run(runCtx)
	if errors.Is(err, context.Canceled) {
		e.logger.Info("shutting down")
		return nil
	}
	return err
}
