package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/urfave/cli"

	"github.com/nateberkopec/tasknotifier/internal/clock"
	"github.com/nateberkopec/tasknotifier/internal/reminder"
)

type draftOptions struct {
	title      string
	message    string
	time       string
	image      string
	clearImage bool
}

func (o draftOptions) draft() reminder.Draft {
	return reminder.Draft{
		Title:     o.title,
		Message:   o.message,
		Time:      o.time,
		ImagePath: o.image,
	}
}

func recordFlags(o *draftOptions, update bool) []cli.Flag {
	flags := []cli.Flag{
		cli.StringFlag{
			Name:        "title, t",
			Usage:       "notification title",
			Destination: &o.title,
		},
		cli.StringFlag{
			Name:        "message, m",
			Usage:       "notification body",
			Destination: &o.message,
		},
		cli.StringFlag{
			Name:        "time, at",
			Usage:       "daily time in 24-hour HH:MM",
			Destination: &o.time,
		},
		cli.StringFlag{
			Name:        "image, i",
			Usage:       "path to an image to embed",
			Destination: &o.image,
		},
	}
	if update {
		flags = append(flags, cli.BoolFlag{
			Name:        "clear-image",
			Usage:       "remove the embedded image",
			Destination: &o.clearImage,
		})
	}
	return flags
}

func (r *Runner) add(ctx *cli.Context) error {
	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	rec, err := e.service.Create(r.draftOpts.draft())
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Stdout, "Added #%d %s: %q at %s\n", e.service.Catalog().Len(), shortID(rec.ID), rec.Title, rec.Time)
	return nil
}

func (r *Runner) update(ctx *cli.Context) error {
	ref := ctx.Args().First()
	if ref == "" {
		return errors.New("update needs a notification id, id prefix or #N")
	}
	if r.draftOpts.image != "" && r.draftOpts.clearImage {
		return errors.New("--image and --clear-image cannot be combined")
	}

	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	current, err := e.service.Resolve(ref)
	if err != nil {
		return err
	}

	d := reminder.Draft{Title: current.Title, Message: current.Message, Time: current.Time}
	if ctx.IsSet("title") {
		d.Title = r.draftOpts.title
	}
	if ctx.IsSet("message") {
		d.Message = r.draftOpts.message
	}
	if ctx.IsSet("time") {
		d.Time = r.draftOpts.time
	}
	d.ImagePath = r.draftOpts.image

	rec, err := e.service.Update(current.ID, d, r.draftOpts.clearImage)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.Stdout, "Updated %s: %q at %s\n", shortID(rec.ID), rec.Title, rec.Time)
	return nil
}

func (r *Runner) remove(ctx *cli.Context) error {
	ref := ctx.Args().First()
	if ref == "" {
		return errors.New("delete needs a notification id, id prefix or #N")
	}

	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	var rec reminder.Record
	if pos, ok := strings.CutPrefix(ref, "#"); ok {
		n, err := strconv.Atoi(pos)
		if err != nil {
			return fmt.Errorf("invalid position %q: %w", ref, err)
		}
		rec, err = e.service.DeleteAt(n - 1)
		if err != nil {
			return err
		}
	} else {
		current, err := e.service.Resolve(ref)
		if err != nil {
			return err
		}
		if rec, err = e.service.Delete(current.ID); err != nil {
			return err
		}
	}
	fmt.Fprintf(r.Stdout, "Deleted %s: %q\n", shortID(rec.ID), rec.Title)
	return nil
}

type listItem struct {
	Position int        `json:"position"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Message  string     `json:"message"`
	Time     string     `json:"time"`
	Next     *time.Time `json:"next,omitempty"`
	HasImage bool       `json:"has_image"`
}

func (r *Runner) list(ctx *cli.Context) error {
	e, err := r.open(ctx)
	if err != nil {
		return err
	}
	defer e.close()

	now := r.now()
	records := e.service.Records()
	items := make([]listItem, 0, len(records))
	for i, rec := range records {
		item := listItem{
			Position: i + 1,
			ID:       rec.ID,
			Title:    rec.Title,
			Message:  rec.Message,
			Time:     rec.Time,
			HasImage: rec.HasImage(),
		}
		if t, err := clock.Parse(rec.Time); err == nil {
			if next, err := t.Next(now); err == nil {
				item.Next = &next
			}
		}
		items = append(items, item)
	}

	if r.listJSON {
		enc := json.NewEncoder(r.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Fprintln(r.Stdout, "No notifications scheduled. Add one with: tasknotifier add")
		return nil
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "Time", "Next", "Title", "Message", "Image").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, item := range items {
		image := ""
		if item.HasImage {
			image = "yes"
		}
		t.Row(
			strconv.Itoa(item.Position),
			shortID(item.ID),
			item.Time,
			formatNextRun(item.Next),
			item.Title,
			item.Message,
			image,
		)
	}
	fmt.Fprintln(r.Stdout, t.Render())
	return nil
}

func formatNextRun(next *time.Time) string {
	if next == nil {
		return "?"
	}
	return next.Format("Mon 15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
