package observability

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Log field names shared by handlers and services.
const (
	LogFieldRequestID   = "request_id"
	LogFieldUserID      = "user_id"
	LogFieldOperation   = "operation"
	LogFieldDuration    = "duration_ms"
	LogFieldErrorCode   = "error_code"
	LogFieldPeriod      = "period"
	LogFieldScheduleUID = "schedule_uid"
)

// RequestContext identifies one API call across handler, pipeline and store logs.
type RequestContext struct {
	RequestID string
	UserID    int32
	Operation string
	StartTime time.Time
}

// NewRequestContext starts timing a request. An empty requestID gets a fresh uuid.
func NewRequestContext(requestID, operation string, userID int32) *RequestContext {
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &RequestContext{
		RequestID: requestID,
		UserID:    userID,
		Operation: operation,
		StartTime: time.Now(),
	}
}

// Duration returns the elapsed time since the request started.
func (r *RequestContext) Duration() time.Duration {
	return time.Since(r.StartTime)
}

func (r *RequestContext) attrs() []slog.Attr {
	return []slog.Attr{
		slog.String(LogFieldRequestID, r.RequestID),
		slog.Int64(LogFieldUserID, int64(r.UserID)),
		slog.String(LogFieldOperation, r.Operation),
	}
}

type ctxKey struct{}

// WithRequestContext returns ctx carrying r.
func WithRequestContext(ctx context.Context, r *RequestContext) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext extracts the request context from ctx.
func FromContext(ctx context.Context) (*RequestContext, bool) {
	r, ok := ctx.Value(ctxKey{}).(*RequestContext)
	return r, ok
}

// ContextHandler stamps every record logged with a request context with its
// request id, user id and operation.
type ContextHandler struct {
	next slog.Handler
}

// NewContextHandler wraps next. Wrapping an already wrapped handler returns it unchanged.
func NewContextHandler(next slog.Handler) slog.Handler {
	if h, ok := next.(*ContextHandler); ok {
		return h
	}
	return &ContextHandler{next: next}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, record slog.Record) error {
	if r, ok := FromContext(ctx); ok {
		record = record.Clone()
		record.AddAttrs(r.attrs()...)
	}
	return h.next.Handle(ctx, record)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{next: h.next.WithGroup(name)}
}
