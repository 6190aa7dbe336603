package analytics

import (
	"errors"
	"fmt"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("startDate must not be after endDate")
)

// Window bounds day_processed. From is inclusive and To is exclusive; an
// empty bound is open. Bounds are UTC date or second-precision prefixes of
// ISO-8601, so every stored form of the same instant compares correctly.
type Window struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// AllTime is the unbounded window
var AllTime = Window{}

// IsZero reports whether the window is unbounded
func (w Window) IsZero() bool {
	return w.From == "" && w.To == ""
}

// MonthWindows returns the calendar month containing now and the month
// before it, both computed in UTC
func MonthWindows(now time.Time) (current, previous Window) {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)
	prev := first.AddDate(0, -1, 0)

	current = Window{From: first.Format(dateLayout), To: next.Format(dateLayout)}
	previous = Window{From: prev.Format(dateLayout), To: first.Format(dateLayout)}
	return current, previous
}

// ParseRange builds a window from optional startDate and endDate values.
// Each accepts a date (YYYY-MM-DD) or an RFC 3339 timestamp. A date end
// includes that whole day; a timestamp end includes that second.
func ParseRange(start, end string) (Window, error) {
	var w Window
	var from, to time.Time

	if start != "" {
		t, _, err := parseBound(start)
		if err != nil {
			return w, fmt.Errorf("%w: startDate %q", ErrInvalidDate, start)
		}
		from = t
		w.From = formatBound(t)
	}

	if end != "" {
		t, dateOnly, err := parseBound(end)
		if err != nil {
			return w, fmt.Errorf("%w: endDate %q", ErrInvalidDate, end)
		}
		to = t
		if dateOnly {
			w.To = t.AddDate(0, 0, 1).Format(dateLayout)
		} else {
			w.To = formatBound(t.Add(time.Second))
		}
	}

	if start != "" && end != "" && from.After(to) {
		return Window{}, ErrInvalidRange
	}
	return w, nil
}

func parseBound(s string) (time.Time, bool, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, true, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t.UTC().Truncate(time.Second), false, nil
}

func formatBound(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
		return t.Format(dateLayout)
	}
	return t.Format(timestampLayout)
}
