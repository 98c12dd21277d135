package shared

import (
	"fmt"
	"time"
	_ "time/tzdata"
)

// DateLayout is the storage format for snapshot and week-end dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into a UTC midnight [time.Time].
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidDate, s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays shifts a YYYY-MM-DD date by n days.
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, n)), nil
}

// Today returns the current calendar date in the named timezone.
func Today(now time.Time, timezone string) (string, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return "", err
	}
	return FormatDate(now.In(loc)), nil
}

// LoadLocation resolves an IANA timezone name, treating "" as UTC.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, timezone, err)
	}
	return loc, nil
}

// ResolveDate returns explicit when set (validated), otherwise today's date in timezone.
func ResolveDate(explicit string, now time.Time, timezone string) (string, error) {
	if explicit != "" {
		if _, err := ParseDate(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	return Today(now, timezone)
}
