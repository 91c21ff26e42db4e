package store

import (
	"context"
	"errors"
	"time"
)

// ErrScheduleNotFound is returned by drivers when an update or delete matches no row.
var ErrScheduleNotFound = errors.New("schedule not found")

// Schedule defaults applied when a record is created without them.
const (
	PriorityLow    = "낮음"
	PriorityNormal = "보통"
	PriorityHigh   = "높음"

	TypeGeneral  = "general"
	TypeMeeting  = "meeting"
	TypeTask     = "task"
	TypeReminder = "reminder"

	DefaultColor = "#BAE1FF"
)

// Schedule is the object representing a schedule.
type Schedule struct {
	ID          int32
	UID         string
	CreatorID   int32
	CreatedTs   int64
	UpdatedTs   int64
	Title       string
	Description string
	Category    string
	StartTs     int64
	EndTs       int64
	AllDay      bool
	Timezone    string
	Priority    string
	Type        string
	Color       string
	Completed   bool
}

// FindSchedule is the find condition for schedule.
type FindSchedule struct {
	ID        *int32
	UID       *string
	CreatorID *int32

	// Start instant range, both bounds inclusive.
	StartTsFrom *int64
	StartTsTo   *int64

	// Pagination
	Limit  *int
	Offset *int
}

// UpdateSchedule is the update request for schedule.
type UpdateSchedule struct {
	ID          int32
	UpdatedTs   *int64
	Title       *string
	Description *string
	Category    *string
	StartTs     *int64
	EndTs       *int64
	AllDay      *bool
	Timezone    *string
	Priority    *string
	Type        *string
	Color       *string
	Completed   *bool
}

// DeleteSchedule is the delete request for schedule.
type DeleteSchedule struct {
	ID int32
}

// CreateSchedule creates a new schedule.
func (s *Store) CreateSchedule(ctx context.Context, create *Schedule) (*Schedule, error) {
	if create.Priority == "" {
		create.Priority = PriorityNormal
	}
	if create.Type == "" {
		create.Type = TypeGeneral
	}
	if create.Color == "" {
		create.Color = DefaultColor
	}
	return s.driver.CreateSchedule(ctx, create)
}

// ListSchedules lists schedules with filter.
func (s *Store) ListSchedules(ctx context.Context, find *FindSchedule) ([]*Schedule, error) {
	return s.driver.ListSchedules(ctx, find)
}

// GetSchedule gets a schedule by uid.
func (s *Store) GetSchedule(ctx context.Context, find *FindSchedule) (*Schedule, error) {
	list, err := s.driver.ListSchedules(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// UpdateSchedule updates a schedule.
func (s *Store) UpdateSchedule(ctx context.Context, update *UpdateSchedule) (*Schedule, error) {
	if update.UpdatedTs == nil {
		now := time.Now().Unix()
		update.UpdatedTs = &now
	}
	return s.driver.UpdateSchedule(ctx, update)
}

// DeleteSchedule deletes a schedule.
func (s *Store) DeleteSchedule(ctx context.Context, delete *DeleteSchedule) error {
	return s.driver.DeleteSchedule(ctx, delete)
}

// StartTime returns the schedule start as time.Time in loc.
func (s *Schedule) StartTime(loc *time.Location) time.Time {
	return time.Unix(s.StartTs, 0).In(loc)
}

// EndTime returns the schedule end as time.Time in loc.
func (s *Schedule) EndTime(loc *time.Location) time.Time {
	return time.Unix(s.EndTs, 0).In(loc)
}
