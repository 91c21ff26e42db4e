package briefing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hrygo/voicecal/server/timezone"
)

var seoul, _ = timezone.ParseTimezone(timezone.TimezoneAsiaSeoul)

func TestResolvePeriod(t *testing.T) {
	// Wednesday.
	ref := time.Date(2024, 3, 13, 15, 42, 10, 0, seoul)

	tests := []struct {
		kind      PeriodKind
		wantStart time.Time
		wantEnd   time.Time
		wantLabel string
	}{
		{PeriodToday, time.Date(2024, 3, 13, 0, 0, 0, 0, seoul), time.Date(2024, 3, 13, 23, 59, 59, 0, seoul), "오늘"},
		{PeriodTomorrow, time.Date(2024, 3, 14, 0, 0, 0, 0, seoul), time.Date(2024, 3, 14, 23, 59, 59, 0, seoul), "내일"},
		{PeriodWeek, time.Date(2024, 3, 10, 0, 0, 0, 0, seoul), time.Date(2024, 3, 16, 23, 59, 59, 0, seoul), "이번 주"},
		{PeriodMonth, time.Date(2024, 3, 1, 0, 0, 0, 0, seoul), time.Date(2024, 3, 31, 23, 59, 59, 0, seoul), "이번 달"},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			got := ResolvePeriod(tt.kind, ref, seoul)
			assert.Equal(t, tt.kind, got.Kind)
			assert.True(t, got.Start.Equal(tt.wantStart), "start = %v, want %v", got.Start, tt.wantStart)
			assert.True(t, got.End.Equal(tt.wantEnd), "end = %v, want %v", got.End, tt.wantEnd)
			assert.Equal(t, tt.wantLabel, got.Label)
		})
	}
}

func TestResolvePeriod_UnknownFallsBackToToday(t *testing.T) {
	ref := time.Date(2024, 3, 13, 15, 0, 0, 0, seoul)
	got := ResolvePeriod("year", ref, seoul)
	assert.Equal(t, PeriodToday, got.Kind)
	assert.Equal(t, "오늘", got.Label)
	assert.True(t, got.Start.Equal(time.Date(2024, 3, 13, 0, 0, 0, 0, seoul)))

	kind, ok := ParsePeriodKind("year")
	assert.False(t, ok)
	assert.Equal(t, PeriodToday, kind)

	kind, ok = ParsePeriodKind(" WEEK ")
	assert.True(t, ok)
	assert.Equal(t, PeriodWeek, kind)
}

func TestResolvePeriod_ReferenceConvertedToLocation(t *testing.T) {
	// Saturday 20:00 UTC is already Sunday in Seoul, which starts a new week.
	ref := time.Date(2024, 3, 16, 20, 0, 0, 0, time.UTC)
	got := ResolvePeriod(PeriodWeek, ref, seoul)
	assert.True(t, got.Start.Equal(time.Date(2024, 3, 17, 0, 0, 0, 0, seoul)))
}

func TestResolvePeriod_WeekAlwaysSundayToSaturday(t *testing.T) {
	ref := time.Date(2023, 1, 1, 0, 0, 0, 0, seoul)
	end := time.Date(2026, 1, 1, 0, 0, 0, 0, seoul)

	for ; ref.Before(end); ref = ref.Add(7*time.Hour + 13*time.Minute) {
		got := ResolvePeriod(PeriodWeek, ref, seoul)

		start := got.Start.In(seoul)
		last := got.End.In(seoul)
		if start.Weekday() != time.Sunday || start.Hour() != 0 || start.Minute() != 0 || start.Second() != 0 {
			t.Fatalf("week start for %v = %v, want Sunday 00:00:00", ref, start)
		}
		if last.Weekday() != time.Saturday || last.Hour() != 23 || last.Minute() != 59 || last.Second() != 59 {
			t.Fatalf("week end for %v = %v, want Saturday 23:59:59", ref, last)
		}
		if got.End.Sub(got.Start) != 7*24*time.Hour-time.Second {
			t.Fatalf("week for %v spans %v", ref, got.End.Sub(got.Start))
		}
		if ref.Before(got.Start) || ref.After(got.End) {
			t.Fatalf("week for %v does not contain the reference", ref)
		}
	}
}

func TestResolvePeriod_MonthEnd(t *testing.T) {
	tests := []struct {
		ref     time.Time
		wantDay int
	}{
		{time.Date(2023, 2, 14, 12, 0, 0, 0, seoul), 28},
		{time.Date(2024, 2, 29, 23, 59, 0, 0, seoul), 29},
		{time.Date(2024, 4, 1, 0, 0, 0, 0, seoul), 30},
		{time.Date(2024, 12, 31, 8, 0, 0, 0, seoul), 31},
	}

	for _, tt := range tests {
		got := ResolvePeriod(PeriodMonth, tt.ref, seoul)
		assert.Equal(t, tt.wantDay, got.End.Day(), tt.ref.String())
		assert.Equal(t, tt.ref.Month(), got.End.Month())
		assert.Equal(t, 1, got.Start.Day())
	}

	for year := 2020; year <= 2028; year++ {
		for month := time.January; month <= time.December; month++ {
			got := ResolvePeriod(PeriodMonth, time.Date(year, month, 15, 10, 0, 0, 0, seoul), seoul)
			assert.Equal(t, 1, got.End.Add(time.Second).Day())
			assert.Equal(t, month, got.End.Month())
		}
	}
}
