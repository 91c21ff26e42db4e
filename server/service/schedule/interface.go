package schedule

import (
	"context"
	"time"

	aischedule "github.com/hrygo/voicecal/plugin/ai/schedule"
	"github.com/hrygo/voicecal/store"
)

// Service defines the core business logic interface for schedule management.
type Service interface {
	// FindSchedules returns the user's schedules starting within [start, end].
	FindSchedules(ctx context.Context, userID int32, start, end time.Time) ([]*store.Schedule, error)

	// GetSchedule returns one of the user's schedules by uid.
	GetSchedule(ctx context.Context, userID int32, uid string) (*store.Schedule, error)

	// CreateSchedule validates and persists a schedule.
	CreateSchedule(ctx context.Context, userID int32, create *CreateScheduleRequest) (*store.Schedule, error)

	// CreateFromDraft persists an extracted draft for the user.
	CreateFromDraft(ctx context.Context, userID int32, draft *aischedule.Draft) (*store.Schedule, error)

	// UpdateSchedule applies a partial update to one of the user's schedules.
	UpdateSchedule(ctx context.Context, userID int32, uid string, update *UpdateScheduleRequest) (*store.Schedule, error)

	// DeleteSchedule deletes one of the user's schedules by uid.
	DeleteSchedule(ctx context.Context, userID int32, uid string) error
}

// CreateScheduleRequest represents the request to create a schedule.
type CreateScheduleRequest struct {
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
}

// UpdateScheduleRequest represents the request to update a schedule.
type UpdateScheduleRequest struct {
	Title       *string
	Description *string
	Category    *string
	StartTs     *int64
	EndTs       *int64
	AllDay      *bool
	Priority    *string
	Type        *string
	Color       *string
	Completed   *bool
}
