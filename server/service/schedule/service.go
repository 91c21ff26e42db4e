// Package schedule provides schedule management functionality including creation,
// querying, updating, and deleting schedules owned by a user.
//
// The service layer abstracts business logic from the store layer and provides
// a clean interface for upper layers.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/lithammer/shortuuid/v4"

	aischedule "github.com/hrygo/voicecal/plugin/ai/schedule"
	"github.com/hrygo/voicecal/plugin/ai/timeout"
	"github.com/hrygo/voicecal/server/timezone"
	"github.com/hrygo/voicecal/store"
)

// Schedule-specific errors that can be checked with errors.Is.
var (
	// ErrScheduleNotFound is returned when the schedule does not exist or belongs to another user.
	ErrScheduleNotFound = store.ErrScheduleNotFound
	// ErrInvalidSchedule is returned when a create or update request fails validation.
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrStorageUnavailable wraps failures of the storage collaborator.
	ErrStorageUnavailable = errors.New("schedule storage unavailable")
)

var validPriorities = map[string]bool{
	store.PriorityLow:    true,
	store.PriorityNormal: true,
	store.PriorityHigh:   true,
}

var validTypes = map[string]bool{
	store.TypeGeneral:  true,
	store.TypeMeeting:  true,
	store.TypeTask:     true,
	store.TypeReminder: true,
}

type service struct {
	store Store
}

// Store is the interface for store operations needed by the schedule service.
type Store interface {
	CreateSchedule(ctx context.Context, create *store.Schedule) (*store.Schedule, error)
	ListSchedules(ctx context.Context, find *store.FindSchedule) ([]*store.Schedule, error)
	GetSchedule(ctx context.Context, find *store.FindSchedule) (*store.Schedule, error)
	UpdateSchedule(ctx context.Context, update *store.UpdateSchedule) (*store.Schedule, error)
	DeleteSchedule(ctx context.Context, delete *store.DeleteSchedule) error
}

// NewService creates a new schedule service.
func NewService(st Store) Service {
	return &service{store: st}
}

// FindSchedules returns schedules starting between start and end, ordered by start.
func (s *service) FindSchedules(ctx context.Context, userID int32, start, end time.Time) ([]*store.Schedule, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout.StorageTimeout)
	defer cancel()

	limit := MaxListResults
	find := &store.FindSchedule{CreatorID: &userID, Limit: &limit}
	if !start.IsZero() {
		from := start.Unix()
		find.StartTsFrom = &from
	}
	if !end.IsZero() {
		to := end.Unix()
		find.StartTsTo = &to
	}

	list, err := s.store.ListSchedules(ctx, find)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list schedules: %w", ErrStorageUnavailable, err)
	}
	return list, nil
}

// GetSchedule returns the user's schedule with the given uid.
func (s *service) GetSchedule(ctx context.Context, userID int32, uid string) (*store.Schedule, error) {
	existing, err := s.store.GetSchedule(ctx, &store.FindSchedule{UID: &uid, CreatorID: &userID})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get schedule: %w", ErrStorageUnavailable, err)
	}
	if existing == nil {
		return nil, ErrScheduleNotFound
	}
	return existing, nil
}

// CreateSchedule creates a new schedule with validation.
func (s *service) CreateSchedule(ctx context.Context, userID int32, create *CreateScheduleRequest) (*store.Schedule, error) {
	start := time.Now()
	defer func() {
		slog.Debug("schedule create operation",
			"user_id", userID,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}()

	title := strings.TrimSpace(create.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidSchedule)
	}
	category, ok := aischedule.ParseCategory(create.Category)
	if !ok {
		return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidSchedule, create.Category)
	}
	if create.StartTs <= 0 {
		return nil, fmt.Errorf("%w: start_ts must be a positive timestamp", ErrInvalidSchedule)
	}
	endTs := create.EndTs
	if endTs == 0 {
		endTs = create.StartTs + int64(time.Hour.Seconds())
	}
	if endTs < create.StartTs {
		return nil, fmt.Errorf("%w: end_ts must be greater than or equal to start_ts", ErrInvalidSchedule)
	}
	if create.Priority != "" && !validPriorities[create.Priority] {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidSchedule, create.Priority)
	}
	kind := create.Type
	if kind == "" {
		kind = store.TypeGeneral
	}
	if !validTypes[kind] {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSchedule, create.Type)
	}

	tz := create.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	if !timezone.IsValidTimezone(tz) {
		return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSchedule, tz)
	}

	sched := &store.Schedule{
		UID:         shortuuid.New(),
		CreatorID:   userID,
		Title:       title,
		Description: create.Description,
		Category:    string(category),
		StartTs:     create.StartTs,
		EndTs:       endTs,
		AllDay:      create.AllDay,
		Timezone:    tz,
		Priority:    create.Priority,
		Type:        kind,
		Color:       create.Color,
	}

	ctx, cancel := context.WithTimeout(ctx, timeout.StorageTimeout)
	defer cancel()

	created, err := s.store.CreateSchedule(ctx, sched)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create schedule: %w", ErrStorageUnavailable, err)
	}
	return created, nil
}

// CreateFromDraft persists an extracted draft with default priority, type and color.
func (s *service) CreateFromDraft(ctx context.Context, userID int32, draft *aischedule.Draft) (*store.Schedule, error) {
	if draft == nil {
		return nil, fmt.Errorf("%w: draft is nil", ErrInvalidSchedule)
	}
	// Fixed zones have no IANA name to store.
	tz := draft.StartTime.Location().String()
	if !timezone.IsValidTimezone(tz) {
		tz = DefaultTimezone
	}
	return s.CreateSchedule(ctx, userID, &CreateScheduleRequest{
		Title:       draft.Title,
		Description: draft.Description,
		Category:    string(draft.Category),
		StartTs:     draft.StartTime.Unix(),
		EndTs:       draft.EndTime.Unix(),
		AllDay:      draft.AllDay,
		Timezone:    tz,
	})
}

// UpdateSchedule updates an existing schedule.
func (s *service) UpdateSchedule(ctx context.Context, userID int32, uid string, update *UpdateScheduleRequest) (*store.Schedule, error) {
	existing, err := s.GetSchedule(ctx, userID, uid)
	if err != nil {
		return nil, err
	}

	storeUpdate := &store.UpdateSchedule{ID: existing.ID}

	if update.Title != nil {
		title := strings.TrimSpace(*update.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title is required", ErrInvalidSchedule)
		}
		storeUpdate.Title = &title
	}
	if update.Description != nil {
		storeUpdate.Description = update.Description
	}
	if update.Category != nil {
		category, ok := aischedule.ParseCategory(*update.Category)
		if !ok {
			return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidSchedule, *update.Category)
		}
		c := string(category)
		storeUpdate.Category = &c
	}
	if update.Priority != nil {
		if !validPriorities[*update.Priority] {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidSchedule, *update.Priority)
		}
		storeUpdate.Priority = update.Priority
	}
	if update.Type != nil {
		if !validTypes[*update.Type] {
			return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidSchedule, *update.Type)
		}
		storeUpdate.Type = update.Type
	}
	if update.Color != nil {
		storeUpdate.Color = update.Color
	}
	if update.AllDay != nil {
		storeUpdate.AllDay = update.AllDay
	}
	if update.Completed != nil {
		storeUpdate.Completed = update.Completed
	}
	if update.StartTs != nil {
		storeUpdate.StartTs = update.StartTs
	}
	if update.EndTs != nil {
		storeUpdate.EndTs = update.EndTs
	}

	newStartTs, newEndTs := existing.StartTs, existing.EndTs
	if update.StartTs != nil {
		newStartTs = *update.StartTs
	}
	if update.EndTs != nil {
		newEndTs = *update.EndTs
	}
	if newEndTs < newStartTs {
		return nil, fmt.Errorf("%w: end_ts must be greater than or equal to start_ts", ErrInvalidSchedule)
	}

	updated, err := s.store.UpdateSchedule(ctx, storeUpdate)
	if err != nil {
		if errors.Is(err, store.ErrScheduleNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("%w: failed to update schedule: %w", ErrStorageUnavailable, err)
	}
	return updated, nil
}

// DeleteSchedule deletes a schedule by uid.
func (s *service) DeleteSchedule(ctx context.Context, userID int32, uid string) error {
	existing, err := s.GetSchedule(ctx, userID, uid)
	if err != nil {
		return err
	}

	if err := s.store.DeleteSchedule(ctx, &store.DeleteSchedule{ID: existing.ID}); err != nil {
		if errors.Is(err, store.ErrScheduleNotFound) {
			return ErrScheduleNotFound
		}
		return fmt.Errorf("%w: failed to delete schedule: %w", ErrStorageUnavailable, err)
	}
	return nil
}
