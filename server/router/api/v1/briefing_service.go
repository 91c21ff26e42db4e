package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apierrors "github.com/hrygo/voicecal/server/internal/errors"
	"github.com/hrygo/voicecal/server/internal/observability"
	"github.com/hrygo/voicecal/server/service/briefing"
)

// GetBriefing returns the caller's schedule briefing for today, tomorrow, week or month.
// An unknown type falls back to today.
// GET /api/v1/schedules/briefing?type=
func (s *APIV1Service) GetBriefing(c echo.Context) error {
	reqCtx := s.newRequestContext(c, observability.OperationBrief)

	// Briefings are recomputed on every request.
	header := c.Response().Header()
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", "0")

	kind, ok := briefing.ParsePeriodKind(c.QueryParam("type"))
	if !ok && c.QueryParam("type") != "" {
		slog.DebugContext(c.Request().Context(), "unknown briefing type, using today", observability.LogFieldPeriod, c.QueryParam("type"))
	}

	s.Metrics.RecordRequest(observability.OperationBrief)
	result, err := s.BriefingService.Brief(c.Request().Context(), reqCtx.UserID, kind)
	s.Metrics.RecordDuration(observability.OperationBrief, reqCtx.Duration())
	if err != nil {
		return s.fail(c, reqCtx, err, apierrors.MessageBriefingFailed)
	}

	slog.InfoContext(c.Request().Context(), "briefing served",
		observability.LogFieldPeriod, string(kind),
		"count", result.Count)
	return c.JSON(http.StatusOK, result)
}
