package clock

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Layout is the canonical time-of-day layout stored on records and compared
// against the wall clock.
const Layout = "15:04"

// Time is a minute-granularity time of day with no date or zone.
type Time struct {
	Hour   int
	Minute int
}

func (t Time) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// Parse converts user input such as "09:30" or "9:30" into a Time. Hours run
// 00-23 and minutes 00-59.
func Parse(raw string) (Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Time{}, fmt.Errorf("empty time")
	}

	hh, mm, ok := strings.Cut(raw, ":")
	if !ok {
		return Time{}, fmt.Errorf("invalid time %q: use HH:MM", raw)
	}
	if len(hh) < 1 || len(hh) > 2 || len(mm) != 2 {
		return Time{}, fmt.Errorf("invalid time %q: use HH:MM", raw)
	}

	hour, err := parseField(hh)
	if err != nil || hour > 23 {
		return Time{}, fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := parseField(mm)
	if err != nil || minute > 59 {
		return Time{}, fmt.Errorf("invalid minute in %q", raw)
	}

	return Time{Hour: hour, Minute: minute}, nil
}

// Normalize parses raw and returns its canonical HH:MM form.
func Normalize(raw string) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.String(), nil
}

// Format renders the time-of-day component of now in the stored layout.
func Format(now time.Time) string {
	return now.Format(Layout)
}

// CronExpr expresses the daily firing as a 5-field cron expression.
func (t Time) CronExpr() string {
	return fmt.Sprintf("%d %d * * *", t.Minute, t.Hour)
}

// Next returns the first firing after the minute containing the reference
// time, in the reference time's location.
func (t Time) Next(after time.Time) (time.Time, error) {
	return gronx.NextTickAfter(t.CronExpr(), after.Truncate(time.Minute), false)
}

// Until reports how long until the next firing of raw after now.
func Until(raw string, now time.Time) (time.Duration, error) {
	t, err := Parse(raw)
	if err != nil {
		return 0, err
	}
	next, err := t.Next(now)
	if err != nil {
		return 0, fmt.Errorf("computing next occurrence: %w", err)
	}
	return next.Sub(now), nil
}

func parseField(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number: %q", s)
		}
	}
	return strconv.Atoi(s)
}
