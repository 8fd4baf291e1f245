package reminder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nateberkopec/tasknotifier/internal/clock"
)

var (
	// ErrMissingField is returned when a required field is blank.
	ErrMissingField = errors.New("all fields are required")
	// ErrInvalidTime is returned when a time is not a valid 24-hour HH:MM value.
	ErrInvalidTime = errors.New("invalid time format, use HH:MM")
)

// Record is one scheduled notification as persisted to disk.
type Record struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Time    string `json:"time"`
	// Image holds base64 encoded image bytes. Empty means no image.
	Image string `json:"image,omitempty"`
}

// HasImage reports whether the record carries an embedded image.
func (r Record) HasImage() bool {
	return r.Image != ""
}

// Validate checks the invariants every stored record must satisfy.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("title: %w", ErrMissingField)
	}
	if strings.TrimSpace(r.Message) == "" {
		return fmt.Errorf("message: %w", ErrMissingField)
	}
	if strings.TrimSpace(r.Time) == "" {
		return fmt.Errorf("time: %w", ErrMissingField)
	}
	if _, err := clock.Parse(r.Time); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	return nil
}

// Draft is unvalidated input captured by a form or the command line.
type Draft struct {
	Title     string
	Message   string
	Time      string
	ImagePath string
}

// Validate trims the draft and checks required fields and the time format.
// It returns the cleaned draft with the time in canonical HH:MM form.
func (d Draft) Validate() (Draft, error) {
	d.Title = strings.TrimSpace(d.Title)
	d.Message = strings.TrimSpace(d.Message)
	d.Time = strings.TrimSpace(d.Time)
	d.ImagePath = strings.TrimSpace(d.ImagePath)

	switch {
	case d.Title == "":
		return d, fmt.Errorf("title: %w", ErrMissingField)
	case d.Message == "":
		return d, fmt.Errorf("message: %w", ErrMissingField)
	case d.Time == "":
		return d, fmt.Errorf("time: %w", ErrMissingField)
	}

	normalized, err := clock.Normalize(d.Time)
	if err != nil {
		return d, fmt.Errorf("%w: %v", ErrInvalidTime, err)
	}
	d.Time = normalized
	return d, nil
}
