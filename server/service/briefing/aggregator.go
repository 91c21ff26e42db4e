package briefing

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hrygo/voicecal/store"
)

// AllDayText is shown instead of a clock time for all-day schedules.
const AllDayText = "하루종일"

// Result is a rendered briefing. It is recomputed on every request.
type Result struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

// Aggregate renders the schedules of period into a briefing message.
// The input slice is not modified and identical inputs yield identical output.
func Aggregate(period PeriodRange, schedules []*store.Schedule, loc *time.Location) Result {
	if loc == nil {
		loc = period.Start.Location()
	}
	if len(schedules) == 0 {
		return Result{Count: 0, Message: fmt.Sprintf("%s은 등록된 일정이 없습니다.", period.Label)}
	}

	sorted := slices.Clone(schedules)
	slices.SortStableFunc(sorted, func(a, b *store.Schedule) int {
		switch {
		case a.StartTs < b.StartTs:
			return -1
		case a.StartTs > b.StartTs:
			return 1
		}
		return 0
	})

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s 일정은 총 %d건입니다.\n", period.Label, len(sorted))
	for i, s := range sorted {
		start := s.StartTime(loc)

		datePrefix := ""
		if period.Kind.MultiDay() {
			datePrefix = fmt.Sprintf("%d월 %d일 ", int(start.Month()), start.Day())
		}
		clock := AllDayText
		if !s.AllDay {
			clock = start.Format("15:04")
		}
		fmt.Fprintf(&sb, "%d. %s%s - %s\n", i+1, datePrefix, clock, s.Title)
	}

	return Result{Count: len(sorted), Message: sb.String()}
}
