// Package server wires the HTTP surface, the extraction pipeline and the store together.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hrygo/voicecal/internal/profile"
	"github.com/hrygo/voicecal/plugin/ai"
	aischedule "github.com/hrygo/voicecal/plugin/ai/schedule"
	"github.com/hrygo/voicecal/plugin/ai/timeout"
	"github.com/hrygo/voicecal/server/auth"
	"github.com/hrygo/voicecal/server/internal/observability"
	ratelimit "github.com/hrygo/voicecal/server/middleware"
	apiv1 "github.com/hrygo/voicecal/server/router/api/v1"
	"github.com/hrygo/voicecal/server/service/briefing"
	schedulesvc "github.com/hrygo/voicecal/server/service/schedule"
	"github.com/hrygo/voicecal/store"
)

// Server is the voicecal HTTP server.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
}

// NewServer builds the server. A missing or invalid LLM configuration does not fail startup,
// extraction requests then answer 503.
func NewServer(_ context.Context, prof *profile.Profile, st *store.Store) (*Server, error) {
	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestID())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("http request",
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String(observability.LogFieldRequestID, v.RequestID),
				slog.Int64(observability.LogFieldDuration, v.Latency.Milliseconds()))
			return nil
		},
	}))

	llm, err := newLLMService(prof)
	if err != nil {
		slog.Warn("LLM service unavailable, extraction requests will fail", slog.String("error", err.Error()))
		llm = unavailableLLM{cause: err}
	}

	loc := prof.Location()
	registry := prometheus.NewRegistry()
	api := &apiv1.APIV1Service{
		Profile: prof,
		Extractor: aischedule.NewExtractor(llm, aischedule.Options{
			Clock:     aischedule.NewClock(loc),
			StartHour: prof.DefaultStartHour,
			EndHour:   prof.DefaultEndHour,
		}),
		ScheduleService: schedulesvc.NewService(st),
		BriefingService: briefing.NewService(st, loc, nil),
		Tokens:          auth.NewTokenManager(prof.Secret),
		Limiter:         ratelimit.NewRateLimiter(prof.RateLimitPerSecond, prof.RateLimitBurst),
		Metrics:         observability.NewMetrics(1000).MustRegister(registry),
		Gatherer:        registry,
	}
	api.Register(echoServer)

	return &Server{Profile: prof, Store: st, echoServer: echoServer}, nil
}

// NewLogHandler wraps h so records logged inside an API request carry its request id,
// user id and operation.
func NewLogHandler(h slog.Handler) slog.Handler {
	return observability.NewContextHandler(h)
}

func newLLMService(prof *profile.Profile) (ai.LLMService, error) {
	cfg := ai.NewConfigFromProfile(prof)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return ai.NewLLMService(&cfg.LLM)
}

// unavailableLLM answers every call with ErrUnauthorized so clients get the misconfiguration response.
type unavailableLLM struct {
	cause error
}

func (u unavailableLLM) Chat(context.Context, []ai.Message) (string, error) {
	return "", fmt.Errorf("%w: %v", ai.ErrUnauthorized, u.cause)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start migrates the store and serves until the listener is closed.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Store.Migrate(ctx); err != nil {
		return errors.Wrap(err, "failed to migrate")
	}

	address := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", address)
	}
	s.echoServer.Listener = listener

	slog.Info("voicecal started",
		slog.String("address", listener.Addr().String()),
		slog.String("mode", s.Profile.Mode),
		slog.String("driver", s.Profile.Driver),
		slog.String("timezone", s.Profile.Timezone),
		slog.String("version", s.Profile.Version))

	if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, timeout.ShutdownTimeout)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", slog.String("error", err.Error()))
	}
	slog.Info("voicecal stopped properly", slog.Duration("shutdown_budget", timeout.ShutdownTimeout), slog.Time("at", time.Now()))
}
