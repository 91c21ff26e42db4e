package schedule

import "github.com/hrygo/voicecal/server/timezone"

// Package-level constants for schedule management.

const (
	// DefaultTimezone is the default timezone for schedule operations when not specified.
	DefaultTimezone = timezone.TimezoneAsiaSeoul

	// MaxListResults caps a single list query.
	MaxListResults = 500
)
