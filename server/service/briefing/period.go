package briefing

import (
	"strings"
	"time"

	"github.com/hrygo/voicecal/server/timezone"
)

// PeriodKind selects the briefing period.
type PeriodKind string

const (
	PeriodToday    PeriodKind = "today"
	PeriodTomorrow PeriodKind = "tomorrow"
	PeriodWeek     PeriodKind = "week"
	PeriodMonth    PeriodKind = "month"
)

// WeekStart is the first day of a briefing week.
const WeekStart = time.Sunday

var periodLabels = map[PeriodKind]string{
	PeriodToday:    "오늘",
	PeriodTomorrow: "내일",
	PeriodWeek:     "이번 주",
	PeriodMonth:    "이번 달",
}

// Label returns the Korean label of the period.
func (k PeriodKind) Label() string {
	if label, ok := periodLabels[k]; ok {
		return label
	}
	return periodLabels[PeriodToday]
}

// MultiDay reports whether the period can span more than one calendar day.
func (k PeriodKind) MultiDay() bool {
	return k == PeriodWeek || k == PeriodMonth
}

// ParsePeriodKind maps s onto a period. Unknown values fall back to today with ok=false.
func ParsePeriodKind(s string) (PeriodKind, bool) {
	k := PeriodKind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := periodLabels[k]; ok {
		return k, true
	}
	return PeriodToday, false
}

// PeriodRange is a resolved period. Both bounds are inclusive; End is 23:59:59 of the last day.
type PeriodRange struct {
	Kind  PeriodKind
	Start time.Time
	End   time.Time
	Label string
}

// ResolvePeriod computes the range of kind around reference in loc.
func ResolvePeriod(kind PeriodKind, reference time.Time, loc *time.Location) PeriodRange {
	if loc == nil {
		loc = timezone.UTC
	}
	if _, ok := periodLabels[kind]; !ok {
		kind = PeriodToday
	}
	ref := reference.In(loc)

	var first, last time.Time
	switch kind {
	case PeriodTomorrow:
		first = timezone.AddDays(ref, 1, loc)
		last = first
	case PeriodWeek:
		offset := (int(ref.Weekday()) - int(WeekStart) + 7) % 7
		first = timezone.AddDays(ref, -offset, loc)
		last = timezone.AddDays(first, 6, loc)
	case PeriodMonth:
		first = time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, loc)
		last = time.Date(ref.Year(), ref.Month(), timezone.DaysInMonth(ref.Year(), ref.Month()), 0, 0, 0, 0, loc)
	default:
		first = ref
		last = ref
	}

	return PeriodRange{
		Kind:  kind,
		Start: timezone.StartOfDay(first, loc),
		End:   timezone.EndOfDay(last, loc),
		Label: kind.Label(),
	}
}
