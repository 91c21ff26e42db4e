package v1

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/voicecal/internal/profile"
	"github.com/hrygo/voicecal/plugin/ai"
	aischedule "github.com/hrygo/voicecal/plugin/ai/schedule"
	"github.com/hrygo/voicecal/server/auth"
	apierrors "github.com/hrygo/voicecal/server/internal/errors"
	"github.com/hrygo/voicecal/server/internal/observability"
	ratelimit "github.com/hrygo/voicecal/server/middleware"
	"github.com/hrygo/voicecal/server/service/briefing"
	schedulesvc "github.com/hrygo/voicecal/server/service/schedule"
	"github.com/hrygo/voicecal/server/timezone"
	"github.com/hrygo/voicecal/store"
	"github.com/hrygo/voicecal/store/db/sqlite"
)

var seoul, _ = timezone.ParseTimezone(timezone.TimezoneAsiaSeoul)

// Sunday 2024-03-10 09:00 in Seoul.
var testNow = time.Date(2024, 3, 10, 9, 0, 0, 0, seoul)

type mockLLM struct {
	mock.Mock
}

func (m *mockLLM) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	args := m.Called(ctx, messages)
	return args.String(0), args.Error(1)
}

type testServer struct {
	echo  *echo.Echo
	llm   *mockLLM
	store *store.Store
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	prof := &profile.Profile{
		Mode:     "dev",
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "voicecal_test.db"),
		Timezone: timezone.TimezoneAsiaSeoul,
		Secret:   "test-secret",
	}
	driver, err := sqlite.NewDB(prof)
	require.NoError(t, err)
	st := store.New(driver, prof)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Migrate(context.Background()))

	llm := &mockLLM{}
	tokens := auth.NewTokenManager(prof.Secret)
	token, _, err := tokens.GenerateAccessToken(1, time.Hour)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	svc := &APIV1Service{
		Profile: prof,
		Extractor: aischedule.NewExtractor(llm, aischedule.Options{
			Clock: aischedule.FixedClock(testNow, seoul),
		}),
		ScheduleService: schedulesvc.NewService(st),
		BriefingService: briefing.NewService(st, seoul, func() time.Time { return testNow }),
		Tokens:          tokens,
		Limiter:         ratelimit.NewRateLimiter(100, 100),
		Metrics:         observability.NewMetrics(100).MustRegister(reg),
		Gatherer:        reg,
	}

	e := echo.New()
	svc.Register(e)
	return &testServer{echo: e, llm: llm, store: st, token: token}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if ts.token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+ts.token)
	}
	rec := httptest.NewRecorder()
	ts.echo.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

const meetingReply = `{"title":"회의","startTime":"2024-03-10 14:00","endTime":"2024-03-10 15:00","category":"work","isAllDay":false}`

func TestParseSchedule(t *testing.T) {
	ts := newTestServer(t)
	ts.llm.On("Chat", mock.Anything, mock.Anything).Return(meetingReply, nil).Once()

	rec := ts.do(t, http.MethodPost, "/api/v1/schedules/parse", `{"text":"오늘 오후 2시 회의"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	out := decode(t, rec)
	schedule := out["schedule"].(map[string]any)
	assert.Equal(t, "회의", schedule["title"])
	assert.Equal(t, "2024-03-10 14:00", schedule["startTime"])
	assert.Equal(t, "2024-03-10 15:00", schedule["endTime"])
	assert.Equal(t, "work", schedule["category"])
	assert.Equal(t, store.TypeGeneral, schedule["type"])
	assert.Equal(t, store.PriorityNormal, schedule["priority"])
	assert.Equal(t, store.DefaultColor, schedule["color"])
	assert.Contains(t, schedule, "description")

	// Parsing never persists.
	list := decode(t, ts.do(t, http.MethodGet, "/api/v1/schedules", ""))
	assert.Empty(t, list["schedules"])
	ts.llm.AssertExpectations(t)
}

func TestCreateScheduleFromVoice(t *testing.T) {
	ts := newTestServer(t)
	ts.llm.On("Chat", mock.Anything, mock.Anything).Return(meetingReply, nil).Once()

	rec := ts.do(t, http.MethodPost, "/api/v1/schedules/voice", `{"text":"오늘 오후 2시 회의"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	schedule := decode(t, rec)["schedule"].(map[string]any)
	assert.NotEmpty(t, schedule["uid"])
	assert.Equal(t, "보통", schedule["priority"])
	assert.Equal(t, "#BAE1FF", schedule["color"])
	assert.Equal(t, false, schedule["isCompleted"])

	rec = ts.do(t, http.MethodGet, "/api/v1/schedules/briefing?type=today", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))
	assert.Equal(t, "no-cache", rec.Header().Get("Pragma"))
	assert.Equal(t, "0", rec.Header().Get("Expires"))
	out := decode(t, rec)
	assert.Equal(t, float64(1), out["count"])
	assert.Equal(t, "오늘 일정은 총 1건입니다.\n1. 14:00 - 회의\n", out["message"])
}

func TestExtractionFailures(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		err        error
		wantStatus int
		wantBody   map[string]any
	}{
		{
			name:       "nonconforming",
			reply:      "몇 시에 만나시나요?",
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   map[string]any{"error": "NONCONFORMING_OUTPUT", "rawMessage": "몇 시에 만나시나요?"},
		},
		{
			name:       "schema invalid",
			reply:      `{"title":"","startTime":"2024-03-10 14:00","endTime":"2024-03-10 15:00","category":"work"}`,
			wantStatus: http.StatusBadRequest,
			wantBody:   map[string]any{"error": aischedule.MissingFieldsMessage},
		},
		{
			name:       "service unreachable",
			err:        ai.ErrServiceUnreachable,
			wantStatus: http.StatusBadGateway,
		},
		{
			name:       "rejected credentials",
			err:        ai.ErrUnauthorized,
			wantStatus: http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.llm.On("Chat", mock.Anything, mock.Anything).Return(tt.reply, tt.err).Once()

			rec := ts.do(t, http.MethodPost, "/api/v1/schedules/voice", `{"text":"내일 만나"}`)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantBody != nil {
				assert.Equal(t, tt.wantBody, decode(t, rec))
			}

			// Nothing is persisted on failure.
			list := decode(t, ts.do(t, http.MethodGet, "/api/v1/schedules", ""))
			assert.Empty(t, list["schedules"])
		})
	}
}

func TestEmptyTextRejectedBeforeLLM(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/schedules/parse", `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	ts.llm.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestTooLongTextUsesFixedMessage(t *testing.T) {
	ts := newTestServer(t)

	body, err := json.Marshal(map[string]string{"text": strings.Repeat("가", aischedule.MaxInputLength+1)})
	require.NoError(t, err)
	rec := ts.do(t, http.MethodPost, "/api/v1/schedules/parse", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"error": apierrors.MessageInvalidText}, decode(t, rec))
	ts.llm.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)
	ts.token = ""

	for _, path := range []string{"/api/v1/schedules", "/api/v1/schedules/briefing"} {
		rec := ts.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := ts.do(t, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestBriefingEmptyWeek(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/v1/schedules/briefing?type=week", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"count": float64(0), "message": "이번 주은 등록된 일정이 없습니다."}, decode(t, rec))
}

func TestBriefingStorageFailure(t *testing.T) {
	ts := newTestServer(t)
	require.NoError(t, ts.store.Close())

	rec := ts.do(t, http.MethodGet, "/api/v1/schedules/briefing?type=month", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, map[string]any{"error": "일정 브리핑에 실패했습니다."}, decode(t, rec))
}

func TestScheduleCRUD(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/v1/schedules",
		`{"title":"병원","category":"health","startTime":"2024-03-12 10:00","endTime":"2024-03-12 11:00","priority":"높음","type":"reminder"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode(t, rec)["schedule"].(map[string]any)
	assert.Equal(t, store.TypeReminder, created["type"])
	uid := created["uid"].(string)

	rec = ts.do(t, http.MethodPost, "/api/v1/schedules", `{"title":"x","category":"meeting","startTime":"2024-03-12 10:00"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"error": apierrors.MessageInvalidSchedule}, decode(t, rec))

	rec = ts.do(t, http.MethodPatch, "/api/v1/schedules/"+uid, `{"isCompleted":true,"startTime":"2024-03-12 10:30","type":"task"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode(t, rec)["schedule"].(map[string]any)
	assert.Equal(t, true, updated["isCompleted"])
	assert.Equal(t, store.TypeTask, updated["type"])
	assert.Equal(t, "2024-03-12 10:30", updated["startTime"])

	rec = ts.do(t, http.MethodGet, "/api/v1/schedules?start=2024-03-12&end=2024-03-13", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["schedules"], 1)

	rec = ts.do(t, http.MethodDelete, "/api/v1/schedules/"+uid, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/api/v1/schedules/"+uid, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t)
	ts.llm.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("down"))

	// Limiter is swapped for a strict one on a fresh router.
	svc := &APIV1Service{
		Extractor:       aischedule.NewExtractor(ts.llm, aischedule.Options{Clock: aischedule.FixedClock(testNow, seoul)}),
		ScheduleService: schedulesvc.NewService(ts.store),
		BriefingService: briefing.NewService(ts.store, seoul, nil),
		Tokens:          auth.NewTokenManager("test-secret"),
		Limiter:         ratelimit.NewRateLimiter(0.001, 1),
		Metrics:         observability.NewMetrics(10),
		Gatherer:        prometheus.NewRegistry(),
	}
	ts.echo = echo.New()
	svc.Register(ts.echo)

	assert.Equal(t, http.StatusBadGateway, ts.do(t, http.MethodPost, "/api/v1/schedules/parse", `{"text":"회의"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, ts.do(t, http.MethodPost, "/api/v1/schedules/parse", `{"text":"회의"}`).Code)
	// Briefing is not rate limited.
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/schedules/briefing", "").Code)
}

func TestMetricsEndpoints(t *testing.T) {
	ts := newTestServer(t)
	ts.llm.On("Chat", mock.Anything, mock.Anything).Return("다시 말씀해 주세요", nil).Once()

	ts.do(t, http.MethodPost, "/api/v1/schedules/parse", `{"text":"회의"}`)

	ts.token = ""
	rec := ts.do(t, http.MethodGet, "/api/v1/system/metrics/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := decode(t, rec)
	assert.Equal(t, float64(1), out["total_requests"])
	assert.Equal(t, float64(1), out["error_count"])

	rec = ts.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `voicecal_pipeline_failures_total{kind="nonconforming_output",operation="extract"} 1`)
}
