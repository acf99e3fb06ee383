package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochestra-tech/cloudoptimizer/internal/config"
	"github.com/ochestra-tech/cloudoptimizer/internal/health"
	"github.com/ochestra-tech/cloudoptimizer/internal/optimization"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	if mutate != nil {
		mutate(cfg)
	}

	optimizer, err := optimization.NewOptimizer(context.Background(), cfg)
	require.NoError(t, err)

	monitor := health.NewMonitor(optimizer.Adapters(), time.Minute)
	return NewServer(cfg.API, monitor, optimizer)
}

func doRequest(s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestHealthzReportsOK(t *testing.T) {
	s := testServer(t, nil)

	w := doRequest(s, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRecommendationsBeforeFirstRun(t *testing.T) {
	s := testServer(t, nil)

	w := doRequest(s, http.MethodGet, "/api/recommendations", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalyzeWithoutAdaptersRejected(t *testing.T) {
	s := testServer(t, nil)

	w := doRequest(s, http.MethodPost, "/api/analyze", "", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no provider adapters")
}

func TestAnalyzeRejectsUnknownProvider(t *testing.T) {
	s := testServer(t, nil)

	w := doRequest(s, http.MethodPost, "/api/analyze", `{"provider":"oracle"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeRejectsUnknownStrategy(t *testing.T) {
	s := testServer(t, nil)

	w := doRequest(s, http.MethodPost, "/api/analyze", `{"strategies":["bogus"]}`, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bogus")
}

func TestAnalyzeRejectsInvertedWindow(t *testing.T) {
	s := testServer(t, nil)

	body := `{"start":"2026-07-31T00:00:00Z","end":"2026-07-01T00:00:00Z"}`
	w := doRequest(s, http.MethodPost, "/api/analyze", body, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProviderRecommendationsValidatesParam(t *testing.T) {
	s := testServer(t, nil)

	w := doRequest(s, http.MethodGet, "/api/recommendations/oracle", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(s, http.MethodGet, "/api/recommendations/aws", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "valid provider but no analysis yet")
}

func TestAuthMiddlewareEnforced(t *testing.T) {
	const key = "test-signing-key"
	s := testServer(t, func(cfg *config.Config) {
		cfg.API.Authentication.Enabled = true
		cfg.API.Authentication.JWTKey = key
	})

	w := doRequest(s, http.MethodGet, "/api/recommendations", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(s, http.MethodGet, "/api/recommendations", "", map[string]string{
		"Authorization": "Basic dXNlcjpwYXNz",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user": "tester",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(key))
	require.NoError(t, err)

	w = doRequest(s, http.MethodGet, "/api/recommendations", "", map[string]string{
		"Authorization": "Bearer " + token,
	})
	assert.Equal(t, http.StatusNotFound, w.Code, "authenticated, but no analysis yet")

	// Probe endpoints stay open.
	w = doRequest(s, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimitKicksIn(t *testing.T) {
	s := testServer(t, func(cfg *config.Config) {
		cfg.API.RateLimitRPS = 1
		cfg.API.RateLimitBurst = 1
	})

	first := doRequest(s, http.MethodGet, "/api/recommendations", "", nil)
	assert.Equal(t, http.StatusNotFound, first.Code)

	second := doRequest(s, http.MethodGet, "/api/recommendations", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := testServer(t, nil)

	// Generate one counted request first.
	doRequest(s, http.MethodGet, "/api/recommendations", "", nil)

	w := doRequest(s, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "cloudoptimizer_http_requests_total")
	assert.Contains(t, w.Body.String(), "cloudoptimizer_analyses_total")
}
