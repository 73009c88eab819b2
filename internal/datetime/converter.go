// Package datetime provides the time bucketing primitives used by the row
// filter: textual dates to canonical epoch seconds, first-of-month bucket
// keys, and month display names. All functions are pure and operate in UTC.
package datetime

import (
	"fmt"
	"strings"
	"time"

	"whatsthedamage/internal/core"
)

// FormatError reports a date string that does not match the configured layout.
type FormatError struct {
	Value  string
	Layout string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid date %q for layout %q", e.Value, e.Layout)
}

// RangeError reports a value outside its valid domain.
type RangeError struct {
	What string
	Got  int
	Min  int
	Max  int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %d out of range [%d, %d]", e.What, e.Got, e.Min, e.Max)
}

var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// ToEpoch converts a date string with the given Go reference layout to epoch
// seconds (UTC midnight of that date for date-only layouts).
func ToEpoch(value, layout string) (int64, error) {
	if strings.TrimSpace(value) == "" {
		return 0, core.ErrEmptyDate
	}
	t, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return 0, &FormatError{Value: value, Layout: layout}
	}
	return t.Unix(), nil
}

// FromEpoch renders epoch seconds using the given layout, in UTC.
func FromEpoch(epoch int64, layout string) string {
	return time.Unix(epoch, 0).UTC().Format(layout)
}

// StartOfMonthEpoch returns the epoch of the first day of the month the date
// falls in. This is the canonical month bucket key: it keeps year information,
// so "January" cells from different years never collide.
func StartOfMonthEpoch(value, layout string) (int64, error) {
	t, err := parse(value, layout)
	if err != nil {
		return 0, err
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.Unix(), nil
}

// MonthName maps a month number (1-12) to its English name.
func MonthName(month int) (string, error) {
	if month < 1 || month > 12 {
		return "", &RangeError{What: "month", Got: month, Min: 1, Max: 12}
	}
	return monthNames[month-1], nil
}

// Month returns the month number (1-12) of the given date string.
func Month(value, layout string) (int, error) {
	t, err := parse(value, layout)
	if err != nil {
		return 0, err
	}
	return int(t.Month()), nil
}

// Year returns the year of the given date string.
func Year(value, layout string) (int, error) {
	t, err := parse(value, layout)
	if err != nil {
		return 0, err
	}
	return t.Year(), nil
}

func parse(value, layout string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, core.ErrEmptyDate
	}
	t, err := time.ParseInLocation(layout, value, time.UTC)
	if err != nil {
		return time.Time{}, &FormatError{Value: value, Layout: layout}
	}
	return t, nil
}
