package inspector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/health"
	"github.com/vyrodovalexey/avaroute/internal/observability"
	"github.com/vyrodovalexey/avaroute/internal/router"
	"github.com/vyrodovalexey/avaroute/internal/tree"
)

func newTestRouter(t *testing.T) *router.Router {
	t.Helper()

	r := router.New()
	require.NoError(t, r.LoadRoutes(context.Background(), []config.Route{
		{Name: "home", Path: "/", Handler: "pages.home"},
		{Name: "post-list", Path: "/posts", Methods: []string{"GET"}},
		{Name: "post-create", Path: "/posts", Methods: []string{"POST"}},
		{Name: "post-show", Path: "/posts/{id:[0-9]+}", Methods: []string{"GET"}, Handler: "posts.show"},
		{Name: "user-post", Path: "/users/{user}/posts/{post}"},
	}))
	return r
}

func newTestServer(t *testing.T, cfg *config.InspectorConfig, opts ...Option) *Server {
	t.Helper()
	return New(cfg, newTestRouter(t), opts...)
}

func serve(s *Server, method, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(method, target, nil))
	return w
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	w := serve(s, http.MethodGet, "/healthz")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	var body health.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, health.StatusHealthy, body.Status)
}

func TestServer_Readiness(t *testing.T) {
	t.Parallel()

	ready := health.NewChecker("test")
	ready.Register(health.TreeCheck(newTestRouter(t), nil))
	s := newTestServer(t, nil, WithHealthChecker(ready))
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/readyz").Code)

	empty := health.NewChecker("test")
	empty.Register(health.TreeCheck(router.New(), nil))
	s = newTestServer(t, nil, WithHealthChecker(empty))

	w := serve(s, http.MethodGet, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var body health.ReadinessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, health.StatusUnhealthy, body.Status)
	assert.Equal(t, health.StatusUnhealthy, body.Checks["tree"].Status)
}

func TestServer_RequestIDPropagated(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
}

func TestServer_Routes(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	w := serve(s, http.MethodGet, "/routes")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Routes []routeResponse `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Routes, 5)

	assert.Equal(t, routeResponse{Name: "home", Path: "/", Methods: []string{"*"}, Handler: "pages.home"}, body.Routes[0])
	assert.Equal(t, "post-show", body.Routes[3].Name)
	assert.Equal(t, []string{"GET", "HEAD"}, body.Routes[3].Methods)
}

func TestServer_TreeJSON(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	w := serve(s, http.MethodGet, "/tree")
	require.Equal(t, http.StatusOK, w.Code)

	var body treeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 5, body.Stats.Routes)
	assert.Positive(t, body.Stats.NodesAfter)
	assert.LessOrEqual(t, body.Stats.NodesAfter, body.Stats.NodesBefore)
	require.NotNil(t, body.Tree)

	decoded, err := tree.Decode(body.Tree)
	require.NoError(t, err)
	assert.True(t, decoded.Equal(s.source.Tree()))
}

func TestServer_TreeYAML(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	w := serve(s, http.MethodGet, "/tree?format=yaml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypeYAML, w.Header().Get("Content-Type"))

	var doc tree.Document
	require.NoError(t, yaml.Unmarshal(w.Body.Bytes(), &doc))
	assert.NotEmpty(t, doc.Segments)
	require.Len(t, doc.Root, 1)
	assert.Equal(t, "home", doc.Root[0].Name)
}

func TestServer_Match(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		wantStatus int
		wantBody   string
		wantAllow  string
	}{
		{
			name:       "root",
			target:     "/match?path=/",
			wantStatus: http.StatusOK,
			wantBody:   `{"route":"home","handler":"pages.home","params":{}}`,
		},
		{
			name:       "parameters",
			target:     "/match?method=get&path=/posts/42",
			wantStatus: http.StatusOK,
			wantBody:   `{"route":"post-show","handler":"posts.show","params":{"id":"42"}}`,
		},
		{
			name:       "nested parameters",
			target:     "/match?method=DELETE&path=/users/ann/posts/7",
			wantStatus: http.StatusOK,
			wantBody:   `{"route":"user-post","params":{"user":"ann","post":"7"}}`,
		},
		{
			name:       "not found",
			target:     "/match?path=/posts/abc",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "method not allowed",
			target:     "/match?method=PUT&path=/posts",
			wantStatus: http.StatusMethodNotAllowed,
			wantAllow:  "GET, HEAD, POST",
		},
		{
			name:       "missing path",
			target:     "/match?method=GET",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown method",
			target:     "/match?method=FETCH&path=/posts",
			wantStatus: http.StatusBadRequest,
		},
	}

	s := newTestServer(t, nil)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(s, http.MethodGet, tt.target)
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, w.Body.String())
			}
			if tt.wantAllow != "" {
				assert.Equal(t, tt.wantAllow, w.Header().Get("Allow"))

				var body errorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
				assert.Equal(t, strings.Split(tt.wantAllow, ", "), body.Allowed)
			}
		})
	}
}

func TestServer_UnknownEndpoint(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	w := serve(s, http.MethodGet, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("inspectortest")
	s := newTestServer(t, nil, WithMetrics(metrics), WithMetricsPath("/stats"))

	serve(s, http.MethodGet, "/healthz")
	serve(s, http.MethodGet, "/missing")

	expected := `
# HELP inspectortest_inspector_requests_total Total number of inspector HTTP requests
# TYPE inspectortest_inspector_requests_total counter
inspectortest_inspector_requests_total{method="GET",route="/healthz",status="200"} 1
inspectortest_inspector_requests_total{method="GET",route="unmatched",status="404"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected),
		"inspectortest_inspector_requests_total"))

	w := serve(s, http.MethodGet, "/stats")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "inspectortest_inspector_requests_total")
}

func TestServer_NoMetricsEndpointWithoutMetrics(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil)
	w := serve(s, http.MethodGet, config.DefaultMetricsPath)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RateLimit(t *testing.T) {
	t.Parallel()

	metrics := observability.NewMetrics("ratelimittest")
	s := newTestServer(t, &config.InspectorConfig{
		Enabled:   true,
		RateLimit: &config.RateLimitConfig{RPS: 0.001, Burst: 1},
	}, WithMetrics(metrics))

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/routes").Code)

	w := serve(s, http.MethodGet, "/routes")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1000", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/healthz").Code)
	expected := `
# HELP ratelimittest_inspector_rate_limit_hits_total Total number of rate limited inspector requests
# TYPE ratelimittest_inspector_rate_limit_hits_total counter
ratelimittest_inspector_rate_limit_hits_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(metrics.Registry(), strings.NewReader(expected),
		"ratelimittest_inspector_rate_limit_hits_total"))
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &config.InspectorConfig{Enabled: true, Address: "127.0.0.1:0"})
	assert.False(t, s.IsRunning())
	assert.NoError(t, s.Stop(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.Start(context.Background()) }()

	require.Eventually(t, s.IsRunning, time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop(context.Background()))
	require.NoError(t, <-done)
	assert.False(t, s.IsRunning())
}
