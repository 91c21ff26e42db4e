package schedule

import (
	"time"

	"github.com/hrygo/voicecal/server/timezone"
)

// Clock supplies the reference instant and the service location used to anchor
// relative dates. It is read once per request.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock returns a wall-clock Clock in loc. A nil loc falls back to UTC.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = timezone.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// FixedClock returns a Clock pinned to t, mainly for tests and replays.
func FixedClock(t time.Time, loc *time.Location) Clock {
	if loc == nil {
		loc = t.Location()
	}
	return Clock{Now: func() time.Time { return t }, Location: loc}
}

// Reference returns the current instant in the clock's location.
func (c Clock) Reference() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = timezone.UTC
	}
	return now().In(loc)
}
