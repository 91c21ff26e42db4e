// Package timezone provides timezone utilities for the voicecal application.
//
// All relative dates are resolved in a single service timezone. Helpers here
// keep day boundaries and the local wire formats consistent across packages.
package timezone

import (
	"fmt"
	"strings"
	"time"
)

// Default location constants
var (
	// UTC is the coordinated universal time timezone
	UTC = time.UTC
)

const (
	// TimezoneUTC is the UTC timezone identifier
	TimezoneUTC = "UTC"

	// TimezoneAsiaSeoul is the Korea Standard Time timezone
	TimezoneAsiaSeoul = "Asia/Seoul"

	// MinuteLayout is the local wire format exchanged with the extraction service.
	MinuteLayout = "2006-01-02 15:04"

	// DateLayout is the local calendar date format.
	DateLayout = "2006-01-02"
)

// localLayouts are accepted when parsing local wall-clock strings, most specific first.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	MinuteLayout,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	DateLayout,
}

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Seoul").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == TimezoneUTC {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == TimezoneUTC {
		return true
	}

	_, err := time.LoadLocation(tz)
	return err == nil
}

// StartOfDay returns 00:00:00 of t's calendar day in tz.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// EndOfDay returns 23:59:59 of t's calendar day in tz. The last second is inclusive.
func EndOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, tz)
}

// AddDays shifts t by n calendar days keeping the wall-clock time in tz.
func AddDays(t time.Time, n int, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day()+n, local.Hour(), local.Minute(), local.Second(), 0, tz)
}

// DaysInMonth returns the number of days of the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, UTC).Day()
}

// ParseLocal parses a local wall-clock string in tz. RFC3339 input keeps its own offset.
func ParseLocal(value string, tz *time.Location) (time.Time, error) {
	if tz == nil {
		tz = UTC
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.In(tz), nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, tz); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time format %q", value)
}

// FormatLocal formats t in tz using MinuteLayout.
func FormatLocal(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = UTC
	}
	return t.In(tz).Format(MinuteLayout)
}

// FormatDate formats t's calendar date in tz.
func FormatDate(t time.Time, tz *time.Location) string {
	if tz == nil {
		tz = UTC
	}
	return t.In(tz).Format(DateLayout)
}
