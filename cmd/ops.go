package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli"
)

const fireTimeout = 30 * time.Second

func (r *Runner) fire(ctx *cli.Context) error {
	ref := ctx.Args().First()
	if ref == "" {
		return errors.New("fire needs a notification id, id prefix or #N")
	}

	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	rec, err := e.service.Resolve(ref)
	if err != nil {
		return err
	}
	sched, err := r.newScheduler(e, e.service)
	if err != nil {
		return err
	}

	fireCtx, cancel := context.WithTimeout(r.context(), fireTimeout)
	defer cancel()
	ev := sched.Fire(fireCtx, rec)
	if ev.Err != nil {
		return fmt.Errorf("%q was not delivered: %w", rec.Title, ev.Err)
	}
	fmt.Fprintf(r.Stdout, "Sent %q via %s\n", rec.Title, ev.Backend)
	return nil
}

func (r *Runner) history(ctx *cli.Context) error {
	e, err := r.setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.close()

	entries, err := e.history.Load()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(r.Stdout, "No deliveries recorded yet.")
		return nil
	}
	if r.historyLimit > 0 && len(entries) > r.historyLimit {
		entries = entries[len(entries)-r.historyLimit:]
	}

	for _, d := range entries {
		outcome := "via " + d.Backend
		if !d.OK() {
			outcome = "FAILED: " + d.Error
		}
		fmt.Fprintf(r.Stdout, "%s  %-8s  %s  %s\n",
			d.FiredAt.Local().Format("2006-01-02 15:04:05"), shortID(d.RecordID), d.Title, outcome)
	}
	return nil
}

func (r *Runner) tokenSet(ctx *cli.Context) error {
	e, err := r.setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.close()

	secret := ctx.Args().First()
	if secret == "" {
		line, err := bufio.NewReader(r.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading token from stdin: %w", err)
		}
		secret = line
	}
	secret = strings.TrimSpace(secret)

	key := e.cfg.Delivery.Webhook.TokenKey
	if key == "" {
		return errors.New("delivery.webhook.token_key is empty")
	}
	if err := r.Keyring.Set(key, secret); err != nil {
		return err
	}
	fmt.Fprintf(r.Stdout, "Stored webhook token under %q\n", key)
	return nil
}

func (r *Runner) tokenDelete(ctx *cli.Context) error {
	e, err := r.setup(ctx, false)
	if err != nil {
		return err
	}
	defer e.close()

	key := e.cfg.Delivery.Webhook.TokenKey
	if err := r.Keyring.Delete(key); err != nil {
		return err
	}
	fmt.Fprintf(r.Stdout, "Removed webhook token %q\n", key)
	return nil
}
