// Package briefing summarizes a user's schedules over today, tomorrow, this week or this month.
package briefing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hrygo/voicecal/plugin/ai/timeout"
	"github.com/hrygo/voicecal/store"
)

// FailureMessage is the fixed user-facing message when a briefing cannot be produced.
const FailureMessage = "일정 브리핑에 실패했습니다."

// ErrStorageUnavailable wraps any storage failure. It is never reported as an empty briefing.
var ErrStorageUnavailable = errors.New("schedule storage unavailable")

// ScheduleLister is the storage collaborator used by briefings.
type ScheduleLister interface {
	ListSchedules(ctx context.Context, find *store.FindSchedule) ([]*store.Schedule, error)
}

// Service produces briefings. It holds no per-request state.
type Service struct {
	store    ScheduleLister
	now      func() time.Time
	location *time.Location
}

// NewService creates a briefing service resolving periods in loc.
func NewService(st ScheduleLister, loc *time.Location, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{store: st, now: now, location: loc}
}

// Brief runs Received → ResolvingPeriod → QueryingStorage → Aggregating for userID.
func (s *Service) Brief(ctx context.Context, userID int32, kind PeriodKind) (*Result, error) {
	logger := slog.With("component", "briefing")
	logger.DebugContext(ctx, "briefing state", "state", "received", "kind", kind)

	period := ResolvePeriod(kind, s.now(), s.location)
	logger.DebugContext(ctx, "briefing state", "state", "resolving_period",
		"start", period.Start.Format(time.RFC3339),
		"end", period.End.Format(time.RFC3339))

	schedules, err := s.query(ctx, userID, period)
	if err != nil {
		logger.ErrorContext(ctx, "briefing state", "state", "failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	}

	result := Aggregate(period, schedules, s.location)
	logger.DebugContext(ctx, "briefing state", "state", "done", "count", result.Count)
	return &result, nil
}

func (s *Service) query(ctx context.Context, userID int32, period PeriodRange) ([]*store.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.StorageTimeout)
	defer cancel()

	from, to := period.Start.Unix(), period.End.Unix()
	return s.store.ListSchedules(ctx, &store.FindSchedule{
		CreatorID:   &userID,
		StartTsFrom: &from,
		StartTsTo:   &to,
	})
}
