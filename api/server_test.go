package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OldStager01/ecs-queue-backlog/internal/backlog"
	"github.com/OldStager01/ecs-queue-backlog/internal/emitter"
	"github.com/OldStager01/ecs-queue-backlog/internal/metrics"
	"github.com/OldStager01/ecs-queue-backlog/internal/service"
	"github.com/OldStager01/ecs-queue-backlog/internal/source"
	"github.com/OldStager01/ecs-queue-backlog/pkg/config"
	"github.com/OldStager01/ecs-queue-backlog/pkg/models"
)

type testEnv struct {
	server  *Server
	source  *source.MockSource
	lookup  *service.StaticLookup
	emitter *emitter.RecordingEmitter
}

func newTestEnv(t *testing.T, cfg config.APIConfig, reading models.MetricReading, workers int) *testEnv {
	t.Helper()

	src := source.NewMockSource(reading)
	registry := source.NewRegistry()
	registry.Register(models.ProviderSQS, src)

	lookup := service.NewStaticLookup(workers)
	rec := emitter.NewRecordingEmitter()
	recorder := metrics.NewRecorder()

	handler := backlog.New(backlog.Config{
		Sources:  registry,
		Services: lookup,
		Emitter:  rec,
		Recorder: recorder,
	})

	server := NewServer(cfg, Dependencies{
		Invoker:   handler,
		Providers: registry,
		Metrics:   recorder.Handler(),
	})
	gin.SetMode(gin.TestMode)

	return &testEnv{server: server, source: src, lookup: lookup, emitter: rec}
}

func (e *testEnv) post(t *testing.T, body interface{}, header http.Header) *httptest.ResponseRecorder {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/invocations", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}

	rec := httptest.NewRecorder()
	e.server.Router().ServeHTTP(rec, req)
	return rec
}

func invocation() map[string]interface{} {
	return map[string]interface{}{
		"cluster_name":    "c1",
		"service_name":    "svc",
		"queue_name":      "jobs",
		"metric_provider": "sqs",
	}
}

func TestInvoke_Success(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 100, 2)

	rec := env.post(t, invocation(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))

	backlog, ok := env.emitter.Find(models.MetricQueueBacklog)
	require.True(t, ok)
	assert.Equal(t, 50.0, backlog.Value)
}

func TestInvoke_UndefinedBacklogReturnsEmptyObject(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 42, 0)

	rec := env.post(t, invocation(), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
	assert.Len(t, env.emitter.Points(), 1)
}

func TestInvoke_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name         string
		modify       func(map[string]interface{})
		setup        func(*testEnv)
		expectStatus int
	}{
		{
			name:         "unknown provider",
			modify:       func(b map[string]interface{}) { b["metric_provider"] = "graphite" },
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "zero rate",
			modify:       func(b map[string]interface{}) { b["est_msgs_per_sec"] = 0 },
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "missing cluster",
			modify:       func(b map[string]interface{}) { delete(b, "cluster_name") },
			expectStatus: http.StatusBadRequest,
		},
		{
			name:         "service not found",
			setup:        func(e *testEnv) { e.lookup.SetError(models.ErrServiceNotFound) },
			expectStatus: http.StatusNotFound,
		},
		{
			name:         "backend failure",
			setup:        func(e *testEnv) { e.source.SetError(models.ErrMetricBackend) },
			expectStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, config.APIConfig{}, 10, 1)
			body := invocation()
			if tt.modify != nil {
				tt.modify(body)
			}
			if tt.setup != nil {
				tt.setup(env)
			}

			rec := env.post(t, body, nil)

			assert.Equal(t, tt.expectStatus, rec.Code)
			assert.Empty(t, env.emitter.Points())
		})
	}
}

func TestInvoke_ValidationMakesNoRemoteCalls(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 10, 1)
	body := invocation()
	body["metric_provider"] = "graphite"

	rec := env.post(t, body, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `graphite`)
	assert.Zero(t, env.source.Calls())
	assert.Zero(t, env.lookup.Calls())
}

func signedToken(t *testing.T, secret, issuer string, expires time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "scheduler",
		Issuer:    issuer,
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestInvoke_JWTAuth(t *testing.T) {
	cfg := config.APIConfig{JWTSecret: "test-secret", JWTIssuer: "ecs-queue-backlog"}

	tests := []struct {
		name         string
		header       string
		expectStatus int
		expectError  string
	}{
		{name: "missing header", header: "", expectStatus: http.StatusUnauthorized, expectError: "missing authorization header"},
		{name: "wrong scheme", header: "Basic abc", expectStatus: http.StatusUnauthorized, expectError: "invalid authorization header format"},
		{
			name:         "expired token",
			header:       "Bearer " + signedToken(t, "test-secret", "ecs-queue-backlog", time.Now().Add(-time.Hour)),
			expectStatus: http.StatusUnauthorized,
			expectError:  "token expired",
		},
		{
			name:         "wrong secret",
			header:       "Bearer " + signedToken(t, "other", "ecs-queue-backlog", time.Now().Add(time.Hour)),
			expectStatus: http.StatusUnauthorized,
			expectError:  "invalid token",
		},
		{
			name:         "valid token",
			header:       "Bearer " + signedToken(t, "test-secret", "ecs-queue-backlog", time.Now().Add(time.Hour)),
			expectStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, cfg, 10, 1)
			header := http.Header{}
			if tt.header != "" {
				header.Set("Authorization", tt.header)
			}

			rec := env.post(t, invocation(), header)

			assert.Equal(t, tt.expectStatus, rec.Code)
			if tt.expectError != "" {
				assert.Contains(t, rec.Body.String(), tt.expectError)
			}
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 100, 2)
	env.post(t, invocation(), nil)

	rec := httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var health map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health["status"])
	assert.Equal(t, []interface{}{"sqs"}, health["providers"])

	rec = httptest.NewRecorder()
	env.server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `backlog_invocations_total{outcome="success",provider="sqs"} 1`)
}

func TestInvoke_RateLimit(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{RateLimit: 2}, 10, 1)

	assert.Equal(t, http.StatusOK, env.post(t, invocation(), nil).Code)
	assert.Equal(t, http.StatusOK, env.post(t, invocation(), nil).Code)

	rec := env.post(t, invocation(), nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")
	assert.Len(t, env.emitter.Points(), 4)
}

func TestTraceID_Header(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 10, 1)

	header := http.Header{}
	header.Set("X-Trace-ID", "caller-trace-1")
	rec := env.post(t, invocation(), header)
	assert.Equal(t, "caller-trace-1", rec.Header().Get("X-Trace-ID"))

	header.Set("X-Trace-ID", "bad id\nwith newline")
	rec = env.post(t, invocation(), header)
	assert.NotEqual(t, "bad id\nwith newline", rec.Header().Get("X-Trace-ID"))
	assert.Len(t, rec.Header().Get("X-Trace-ID"), 36)
}

func TestInvoke_BodyTooLarge(t *testing.T) {
	env := newTestEnv(t, config.APIConfig{}, 10, 1)

	body := invocation()
	body["metric_filter"] = string(bytes.Repeat([]byte("a"), maxRequestBytes))
	rec := env.post(t, body, nil)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, env.emitter.Points())
}
