package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hrygo/voicecal/internal/profile"
	aischedule "github.com/hrygo/voicecal/plugin/ai/schedule"
	"github.com/hrygo/voicecal/server/auth"
	"github.com/hrygo/voicecal/server/internal/observability"
	ratelimit "github.com/hrygo/voicecal/server/middleware"
	"github.com/hrygo/voicecal/server/service/briefing"
	schedulesvc "github.com/hrygo/voicecal/server/service/schedule"
)

// APIV1Service serves the JSON API under /api/v1.
type APIV1Service struct {
	Profile         *profile.Profile
	Extractor       *aischedule.Extractor
	ScheduleService schedulesvc.Service
	BriefingService *briefing.Service
	Tokens          *auth.TokenManager
	Limiter         *ratelimit.RateLimiter
	Metrics         *observability.Metrics
	Gatherer        prometheus.Gatherer
}

// Register mounts every route on echoServer.
func (s *APIV1Service) Register(echoServer *echo.Echo) {
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	gatherer := s.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := echoServer.Group("/api/v1", middleware.CORS())
	api.GET("/system/metrics/overview", s.GetMetricsOverview)

	requireUser := s.Tokens.Middleware()
	// Only extraction hits the LLM, so only it is rate limited.
	limit := s.Limiter.Middleware(userKey)

	api.POST("/schedules/parse", s.ParseSchedule, requireUser, limit)
	api.POST("/schedules/voice", s.CreateScheduleFromVoice, requireUser, limit)
	api.GET("/schedules/briefing", s.GetBriefing, requireUser)
	api.GET("/schedules", s.ListSchedules, requireUser)
	api.POST("/schedules", s.CreateSchedule, requireUser)
	api.PATCH("/schedules/:uid", s.UpdateSchedule, requireUser)
	api.DELETE("/schedules/:uid", s.DeleteSchedule, requireUser)
}

func userKey(c echo.Context) string {
	if id, ok := auth.UserIDFromEcho(c); ok {
		return "user:" + itoa(id)
	}
	return ""
}
