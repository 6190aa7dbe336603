package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dennisdiepolder/callscope/internal/analytics"
	"github.com/dennisdiepolder/callscope/internal/api"
	"github.com/dennisdiepolder/callscope/internal/auth"
	"github.com/dennisdiepolder/callscope/internal/chat"
	"github.com/dennisdiepolder/callscope/internal/config"
	"github.com/dennisdiepolder/callscope/internal/metrics"
	"github.com/dennisdiepolder/callscope/internal/storage"
	"github.com/dennisdiepolder/callscope/internal/tenant"
	"github.com/dennisdiepolder/callscope/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRecords struct {
	calls int
}

func (s *stubRecords) ListAgents(context.Context, string, storage.ListQuery) (types.Page[types.AgentRecord], error) {
	s.calls++
	return types.Page[types.AgentRecord]{Items: []types.AgentRecord{}}, nil
}

func (s *stubRecords) GetAgent(context.Context, string, string) (types.AgentRecord, error) {
	return types.AgentRecord{}, storage.ErrNotFound
}

func (s *stubRecords) ListProjects(context.Context, string, storage.ListQuery) (types.Page[types.ProjectRecord], error) {
	return types.Page[types.ProjectRecord]{}, nil
}

func (s *stubRecords) UpdateProject(context.Context, string, string, types.ProjectPatch) (types.ProjectRecord, error) {
	return types.ProjectRecord{}, nil
}

func (s *stubRecords) ListCalls(context.Context, string, string, storage.ListQuery) (types.Page[types.CallSummary], error) {
	return types.Page[types.CallSummary]{}, nil
}

func (s *stubRecords) GetCall(context.Context, string, string) (types.CallRecord, error) {
	return types.CallRecord{}, storage.ErrNotFound
}

func (s *stubRecords) DeleteCall(context.Context, string, string) error {
	s.calls++
	return nil
}

type stubAnalytics struct{}

func (stubAnalytics) Scalar(context.Context, analytics.Metric, analytics.Filter) (float64, error) {
	return 1, nil
}

func (stubAnalytics) Compare(context.Context, analytics.Metric, analytics.Filter) (analytics.Comparison, error) {
	return analytics.Comparison{}, nil
}

func (stubAnalytics) Series(context.Context, analytics.Metric, analytics.Filter, analytics.Granularity) ([]analytics.Point, error) {
	return []analytics.Point{}, nil
}

func (stubAnalytics) Histogram(context.Context, analytics.Filter, types.SpeakerChannel) ([]analytics.Bucket, error) {
	return []analytics.Bucket{}, nil
}

func (stubAnalytics) Ranking(context.Context, analytics.Metric, analytics.Filter, int64) ([]analytics.AgentValue, error) {
	return []analytics.AgentValue{}, nil
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubAssistant struct{}

func (stubAssistant) Reply(context.Context, chat.Request) (string, error) { return "hi", nil }

func (stubAssistant) SummarizeAgent(context.Context, analytics.Filter, string) (string, error) {
	return "summary", nil
}

func testRouter(t *testing.T, mode config.AuthMode) (http.Handler, *stubRecords) {
	t.Helper()
	tenants, err := tenant.NewRegistry(nil, []string{"acme"}, "crm_system")
	require.NoError(t, err)

	logger := zerolog.Nop()
	records := &stubRecords{}
	cfg := &config.Config{
		AllowedOrigins: []string{"http://localhost:5173"},
		Auth:           config.AuthConfig{Mode: mode, RateLimit: 5, RateBurst: 10},
	}
	deps := &dependencies{
		metrics:       api.NewMetricsHandler(stubAnalytics{}, logger),
		records:       api.NewRecordsHandler(records, logger),
		chat:          api.NewChatHandler(stubAssistant{}, "en", logger),
		auth:          api.NewAuthHandler(nil, logger),
		system:        api.NewSystemHandler(stubPinger{}, tenants, logger),
		authenticator: auth.NewAuthenticator(mode, auth.NewHMACVerifier("secret"), nil, logger),
		tenants:       tenants,
		prom:          metrics.New(),
	}
	return newRouter(cfg, deps), records
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouterTenantGuard(t *testing.T) {
	router, records := testRouter(t, config.AuthModeNone)

	tests := []struct {
		target string
		status int
	}{
		{"/api/agents", http.StatusBadRequest},
		{"/api/agents?database=acme$", http.StatusBadRequest},
		{"/api/agents?database=globex", http.StatusForbidden},
		{"/api/agents?database=crm_system", http.StatusForbidden},
		{"/api/agents?database=acme", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.status, serve(router, http.MethodGet, tt.target).Code)
		})
	}
	assert.Equal(t, 1, records.calls, "only the allow-listed tenant reaches storage")
}

func TestRouterRoutes(t *testing.T) {
	router, _ := testRouter(t, config.AuthModeNone)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/ready").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/admin/tenants").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/metrics").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/metrics/score?database=acme").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/metrics/duration-histogram?database=acme").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/api/auth/me").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodDelete, "/api/calls/65f000000000000000000001?database=acme").Code)

	// account endpoints are only mounted in local mode
	assert.Equal(t, http.StatusNotFound, serve(router, http.MethodPost, "/api/auth/signin").Code)

	rec := serve(router, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "callscope_http_requests_total"))
}

func TestRouterRequiresSession(t *testing.T) {
	router, _ := testRouter(t, config.AuthModeLocal)

	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/agents?database=acme").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodPost, "/api/chat").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, http.MethodGet, "/api/admin/tenants").Code)
	assert.NotEqual(t, http.StatusNotFound, serve(router, http.MethodPost, "/api/auth/signin").Code)
	assert.NotEqual(t, http.StatusNotFound, serve(router, http.MethodPost, "/api/auth/resend-verification").Code)
}
