package v1

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	aischedule "github.com/hrygo/voicecal/plugin/ai/schedule"
	"github.com/hrygo/voicecal/plugin/ai/timeout"
	"github.com/hrygo/voicecal/server/auth"
	apierrors "github.com/hrygo/voicecal/server/internal/errors"
	"github.com/hrygo/voicecal/server/internal/observability"
	schedulesvc "github.com/hrygo/voicecal/server/service/schedule"
	"github.com/hrygo/voicecal/server/timezone"
	"github.com/hrygo/voicecal/store"
)

// Success messages.
const (
	messageParsed  = "일정 정보를 확인해주세요."
	messageCreated = "일정이 추가되었습니다."
	messageDeleted = "일정이 삭제되었습니다."
)

// Fixed messages for malformed requests.
const (
	messageBadBody = "요청 형식이 올바르지 않습니다."
	messageBadTime = "시간 형식이 올바르지 않습니다. 예: 2024-03-12 15:00"
)

// Schedule is the JSON representation of a stored schedule.
type Schedule struct {
	UID         string `json:"uid"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	AllDay      bool   `json:"isAllDay"`
	Timezone    string `json:"timezone"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
	Color       string `json:"color"`
	Completed   bool   `json:"isCompleted"`
	CreatedTs   int64  `json:"createdTs"`
	UpdatedTs   int64  `json:"updatedTs"`
}

// DraftSchedule is the JSON representation of an extracted, unsaved schedule.
type DraftSchedule struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	AllDay      bool   `json:"isAllDay"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Color       string `json:"color"`
}

// ScheduleTextRequest carries the recognized speech or typed text.
type ScheduleTextRequest struct {
	Text string `json:"text"`
}

// CreateScheduleBody is the JSON body of POST /schedules. Times use RFC3339 or "YYYY-MM-DD HH:mm".
type CreateScheduleBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	AllDay      bool   `json:"isAllDay"`
	Priority    string `json:"priority"`
	Type        string `json:"type"`
	Color       string `json:"color"`
}

// UpdateScheduleBody is the JSON body of PATCH /schedules/:uid. Absent fields are left untouched.
type UpdateScheduleBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	StartTime   *string `json:"startTime"`
	EndTime     *string `json:"endTime"`
	AllDay      *bool   `json:"isAllDay"`
	Priority    *string `json:"priority"`
	Type        *string `json:"type"`
	Color       *string `json:"color"`
	Completed   *bool   `json:"isCompleted"`
}

func (s *APIV1Service) location() *time.Location {
	if s.Extractor != nil {
		return s.Extractor.Location()
	}
	if s.Profile != nil {
		return s.Profile.Location()
	}
	return timezone.UTC
}

func (s *APIV1Service) scheduleFromStore(sched *store.Schedule) *Schedule {
	loc := s.location()
	if sched.Timezone != "" {
		if tz, err := timezone.ParseTimezone(sched.Timezone); err == nil {
			loc = tz
		}
	}
	return &Schedule{
		UID:         sched.UID,
		Title:       sched.Title,
		Description: sched.Description,
		Category:    sched.Category,
		StartTime:   timezone.FormatLocal(sched.StartTime(loc), loc),
		EndTime:     timezone.FormatLocal(sched.EndTime(loc), loc),
		AllDay:      sched.AllDay,
		Timezone:    sched.Timezone,
		Priority:    sched.Priority,
		Type:        sched.Type,
		Color:       sched.Color,
		Completed:   sched.Completed,
		CreatedTs:   sched.CreatedTs,
		UpdatedTs:   sched.UpdatedTs,
	}
}

// draftFromExtraction shows the draft with the defaults it would be saved with.
func (s *APIV1Service) draftFromExtraction(d *aischedule.Draft) *DraftSchedule {
	loc := s.location()
	return &DraftSchedule{
		Title:       d.Title,
		Category:    string(d.Category),
		StartTime:   d.StartTimeString(loc),
		EndTime:     d.EndTimeString(loc),
		AllDay:      d.AllDay,
		Description: d.Description,
		Type:        store.TypeGeneral,
		Priority:    store.PriorityNormal,
		Color:       store.DefaultColor,
	}
}

// ParseSchedule extracts a schedule from text without saving it.
// POST /api/v1/schedules/parse
func (s *APIV1Service) ParseSchedule(c echo.Context) error {
	reqCtx := s.newRequestContext(c, observability.OperationExtract)

	draft, err := s.extract(c, reqCtx)
	if err != nil {
		return s.fail(c, reqCtx, err, "")
	}

	slog.InfoContext(c.Request().Context(), "schedule parsed", observability.LogFieldDuration, reqCtx.Duration().Milliseconds())
	return c.JSON(http.StatusOK, map[string]any{
		"message":  messageParsed,
		"schedule": s.draftFromExtraction(draft),
	})
}

// CreateScheduleFromVoice extracts a schedule from text and saves it for the caller.
// POST /api/v1/schedules/voice
func (s *APIV1Service) CreateScheduleFromVoice(c echo.Context) error {
	reqCtx := s.newRequestContext(c, observability.OperationExtract)

	draft, err := s.extract(c, reqCtx)
	if err != nil {
		return s.fail(c, reqCtx, err, "")
	}

	persistCtx := s.newRequestContext(c, observability.OperationPersist)
	s.Metrics.RecordRequest(observability.OperationPersist)
	created, err := s.ScheduleService.CreateFromDraft(c.Request().Context(), persistCtx.UserID, draft)
	s.Metrics.RecordDuration(observability.OperationPersist, persistCtx.Duration())
	if err != nil {
		return s.fail(c, persistCtx, err, apierrors.MessagePersistFailed)
	}

	slog.InfoContext(c.Request().Context(), "schedule created from text", observability.LogFieldScheduleUID, created.UID)
	return c.JSON(http.StatusCreated, map[string]any{
		"message":  messageCreated,
		"schedule": s.scheduleFromStore(created),
	})
}

func (s *APIV1Service) extract(c echo.Context, reqCtx *observability.RequestContext) (*aischedule.Draft, error) {
	s.Metrics.RecordRequest(observability.OperationExtract)
	defer func() {
		s.Metrics.RecordDuration(observability.OperationExtract, reqCtx.Duration())
	}()

	var body ScheduleTextRequest
	if err := c.Bind(&body); err != nil {
		return nil, apierrors.InvalidArgument(messageBadBody)
	}
	if strings.TrimSpace(body.Text) == "" {
		return nil, apierrors.InvalidArgument("음성 인식 텍스트가 필요합니다.")
	}

	return s.Extractor.Extract(c.Request().Context(), body.Text)
}

// ListSchedules lists the caller's schedules.
// GET /api/v1/schedules?start=&end=
func (s *APIV1Service) ListSchedules(c echo.Context) error {
	userID, _ := auth.UserIDFromEcho(c)

	var start, end time.Time
	if v := c.QueryParam("start"); v != "" {
		t, err := timezone.ParseLocal(v, s.location())
		if err != nil {
			return writeError(c, apierrors.InvalidArgument(messageBadTime))
		}
		start = t
	}
	if v := c.QueryParam("end"); v != "" {
		t, err := timezone.ParseLocal(v, s.location())
		if err != nil {
			return writeError(c, apierrors.InvalidArgument(messageBadTime))
		}
		end = t
	}

	list, err := s.ScheduleService.FindSchedules(c.Request().Context(), userID, start, end)
	if err != nil {
		return reject(c, err, "일정을 불러오는데 실패했습니다.")
	}

	schedules := make([]*Schedule, 0, len(list))
	for _, sched := range list {
		schedules = append(schedules, s.scheduleFromStore(sched))
	}
	return c.JSON(http.StatusOK, map[string]any{"schedules": schedules})
}

// CreateSchedule saves a schedule given as structured JSON.
// POST /api/v1/schedules
func (s *APIV1Service) CreateSchedule(c echo.Context) error {
	userID, _ := auth.UserIDFromEcho(c)

	var body CreateScheduleBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, apierrors.InvalidArgument(messageBadBody))
	}

	loc := s.location()
	start, err := timezone.ParseLocal(body.StartTime, loc)
	if err != nil {
		return writeError(c, apierrors.InvalidArgument(messageBadTime))
	}
	create := &schedulesvc.CreateScheduleRequest{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		StartTs:     start.Unix(),
		AllDay:      body.AllDay,
		Timezone:    loc.String(),
		Priority:    body.Priority,
		Type:        body.Type,
		Color:       body.Color,
	}
	if body.EndTime != "" {
		end, err := timezone.ParseLocal(body.EndTime, loc)
		if err != nil {
			return writeError(c, apierrors.InvalidArgument(messageBadTime))
		}
		create.EndTs = end.Unix()
	}

	created, err := s.ScheduleService.CreateSchedule(c.Request().Context(), userID, create)
	if err != nil {
		return reject(c, err, "일정을 생성하는데 실패했습니다.")
	}
	return c.JSON(http.StatusCreated, map[string]any{"schedule": s.scheduleFromStore(created)})
}

// UpdateSchedule applies a partial update to one of the caller's schedules.
// PATCH /api/v1/schedules/:uid
func (s *APIV1Service) UpdateSchedule(c echo.Context) error {
	userID, _ := auth.UserIDFromEcho(c)

	var body UpdateScheduleBody
	if err := c.Bind(&body); err != nil {
		return writeError(c, apierrors.InvalidArgument(messageBadBody))
	}

	update := &schedulesvc.UpdateScheduleRequest{
		Title:       body.Title,
		Description: body.Description,
		Category:    body.Category,
		AllDay:      body.AllDay,
		Priority:    body.Priority,
		Type:        body.Type,
		Color:       body.Color,
		Completed:   body.Completed,
	}
	loc := s.location()
	if body.StartTime != nil {
		t, err := timezone.ParseLocal(*body.StartTime, loc)
		if err != nil {
			return writeError(c, apierrors.InvalidArgument(messageBadTime))
		}
		update.StartTs = pointerOf(t.Unix())
	}
	if body.EndTime != nil {
		t, err := timezone.ParseLocal(*body.EndTime, loc)
		if err != nil {
			return writeError(c, apierrors.InvalidArgument(messageBadTime))
		}
		update.EndTs = pointerOf(t.Unix())
	}

	updated, err := s.ScheduleService.UpdateSchedule(c.Request().Context(), userID, c.Param("uid"), update)
	if err != nil {
		return reject(c, err, "일정을 수정하는데 실패했습니다.")
	}
	return c.JSON(http.StatusOK, map[string]any{"schedule": s.scheduleFromStore(updated)})
}

// DeleteSchedule deletes one of the caller's schedules.
// DELETE /api/v1/schedules/:uid
func (s *APIV1Service) DeleteSchedule(c echo.Context) error {
	userID, _ := auth.UserIDFromEcho(c)

	if err := s.ScheduleService.DeleteSchedule(c.Request().Context(), userID, c.Param("uid")); err != nil {
		return reject(c, err, "일정을 삭제하는데 실패했습니다.")
	}
	return c.JSON(http.StatusOK, map[string]string{"message": messageDeleted})
}

// newRequestContext starts a request context for operation and attaches it to the request,
// so pipeline logs below the handler carry the same request id.
func (s *APIV1Service) newRequestContext(c echo.Context, operation string) *observability.RequestContext {
	userID, _ := auth.UserIDFromEcho(c)
	reqCtx := observability.NewRequestContext(c.Response().Header().Get(echo.HeaderXRequestID), operation, userID)
	c.SetRequest(c.Request().WithContext(observability.WithRequestContext(c.Request().Context(), reqCtx)))
	return reqCtx
}

// fail records the failure, logs it and writes the mapped error response.
func (s *APIV1Service) fail(c echo.Context, reqCtx *observability.RequestContext, err error, storageMessage string) error {
	aiErr := apierrors.FromPipelineError(err, storageMessage)
	s.Metrics.RecordFailure(reqCtx.Operation, strings.ToLower(string(aiErr.Code)))

	attrs := []slog.Attr{
		slog.String(observability.LogFieldErrorCode, string(aiErr.Code)),
		slog.Int64(observability.LogFieldDuration, reqCtx.Duration().Milliseconds()),
		slog.String("error", err.Error()),
	}
	if aiErr.RawMessage != "" {
		attrs = append(attrs, slog.String("raw", timeout.Truncate(aiErr.RawMessage)))
	}

	ctx := c.Request().Context()
	var extractErr *aischedule.ExtractionError
	switch {
	case aiErr.HTTPStatus() >= http.StatusInternalServerError:
		slog.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
	case errors.As(err, &extractErr):
		slog.LogAttrs(ctx, slog.LevelWarn, "extraction rejected", attrs...)
	default:
		slog.LogAttrs(ctx, slog.LevelDebug, "request rejected", attrs...)
	}

	return writeError(c, aiErr)
}

// reject maps a schedule service error, logs its detail and writes the fixed response.
func reject(c echo.Context, err error, storageMessage string) error {
	aiErr := apierrors.FromPipelineError(err, storageMessage)
	level := slog.LevelDebug
	if aiErr.HTTPStatus() >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.LogAttrs(c.Request().Context(), level, "schedule request failed",
		slog.String(observability.LogFieldErrorCode, string(aiErr.Code)),
		slog.String("error", err.Error()))
	return writeError(c, aiErr)
}

func writeError(c echo.Context, aiErr *apierrors.AIError) error {
	return c.JSON(aiErr.HTTPStatus(), aiErr.Body())
}

func pointerOf[T any](v T) *T {
	return &v
}

func itoa(id int32) string {
	return strconv.FormatInt(int64(id), 10)
}
