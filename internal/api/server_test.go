// SPDX-License-Identifier: MIT

package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ManuGH/apiwatch/internal/config"
	"github.com/ManuGH/apiwatch/internal/health"
	"github.com/ManuGH/apiwatch/internal/history"
	"github.com/ManuGH/apiwatch/internal/probe"
	"github.com/ManuGH/apiwatch/internal/state"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv     *httptest.Server
	states  state.Store
	history *history.Store
	health  *health.Manager
	holder  *config.Holder
}

func newTestServer(t *testing.T, cfg config.Config, loader *config.Loader, configPath string) *testServer {
	t.Helper()

	store, err := history.Open(filepath.Join(t.TempDir(), "apiwatch.db"), history.DefaultSQLiteConfig())
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	states := state.NewMemoryStore()
	t.Cleanup(func() { require.NoError(t, states.Close()) })

	mgr := health.NewManager("test")
	holder := config.NewHolder(cfg, loader, configPath)

	server := NewServer(Options{
		Holder:  holder,
		States:  states,
		History: store,
		Health:  mgr,
	})
	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, states: states, history: store, health: mgr, holder: holder}
}

func baseConfig(targets ...config.Target) config.Config {
	cfg := config.Defaults()
	cfg.Targets = targets
	// Rate limiting is exercised in its own test.
	cfg.API.RateLimit = 0
	return cfg
}

func (ts *testServer) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(ts.srv.URL + path)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func seedCheck(t *testing.T, store *history.Store, target string, status probe.Status, rt time.Duration, at time.Time) {
	t.Helper()
	res := probe.Result{
		ID:           uuid.NewString(),
		Target:       target,
		URL:          "https://example.com",
		Timestamp:    at,
		Status:       status,
		ResponseTime: rt,
	}
	if status == probe.StatusUp {
		res.HTTPStatus = http.StatusOK
	}
	require.NoError(t, store.AppendCheck(context.Background(), res, false))
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t, baseConfig(), config.NewLoader("", "test"), "")

	resp, body := ts.get(t, "/healthz")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var hr health.HealthResponse
	require.NoError(t, json.Unmarshal(body, &hr))
	assert.Equal(t, health.StatusHealthy, hr.Status)

	resp, _ = ts.get(t, "/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

type failingChecker struct{}

func (failingChecker) Name() string { return "store" }
func (failingChecker) Check(context.Context) health.CheckResult {
	return health.CheckResult{Status: health.StatusUnhealthy, Error: "connection refused"}
}

func TestReadyReportsUnhealthyComponent(t *testing.T) {
	ts := newTestServer(t, baseConfig(), config.NewLoader("", "test"), "")
	ts.health.RegisterChecker(failingChecker{})

	resp, body := ts.get(t, "/readyz")
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var rr health.ReadinessResponse
	require.NoError(t, json.Unmarshal(body, &rr))
	assert.False(t, rr.Ready)
	assert.Equal(t, "connection refused", rr.Checks["store"].Error)
}

func TestListTargets(t *testing.T) {
	cfg := baseConfig(
		config.Target{Name: "Zeta API", URL: "https://example.com/z"},
		config.Target{Name: "Alpha API", URL: "https://example.com/a"},
	)
	ts := newTestServer(t, cfg, config.NewLoader("", "test"), "")

	now := time.Now().UTC()
	require.NoError(t, ts.states.Put(context.Background(), state.TargetState{
		Target:        "Alpha API",
		LastStatus:    probe.StatusUp,
		LastCheckedAt: now,
	}))

	resp, body := ts.get(t, "/api/targets")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []targetSummary
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out, 2)
	assert.Equal(t, "Alpha API", out[0].Name)
	assert.Equal(t, probe.StatusUp, out[0].LastStatus)
	require.NotNil(t, out[0].LastCheckedAt)
	assert.Equal(t, "Zeta API", out[1].Name)
	assert.Empty(t, out[1].LastStatus, "never-checked target has no status yet")
}

func TestTargetDetail(t *testing.T) {
	cfg := baseConfig(config.Target{Name: "GitHub API", URL: "https://api.github.com"})
	ts := newTestServer(t, cfg, config.NewLoader("", "test"), "")

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedCheck(t, ts.history, "GitHub API", probe.StatusUp, 120*time.Millisecond, now.Add(time.Duration(i)*time.Second))
	}

	resp, body := ts.get(t, "/api/targets/"+url.PathEscape("GitHub API")+"?limit=2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail targetDetail
	require.NoError(t, json.Unmarshal(body, &detail))
	assert.Equal(t, "GitHub API", detail.Name)
	assert.Len(t, detail.Checks, 2)

	resp, _ = ts.get(t, "/api/targets/"+url.PathEscape("GitHub API")+"?limit=0")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.get(t, "/api/targets/unknown")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTargetStats(t *testing.T) {
	cfg := baseConfig(config.Target{Name: "GitHub API", URL: "https://api.github.com"})
	ts := newTestServer(t, cfg, config.NewLoader("", "test"), "")

	now := time.Now().UTC()
	for i := 0; i < 9; i++ {
		seedCheck(t, ts.history, "GitHub API", probe.StatusUp, 200*time.Millisecond, now.Add(-time.Duration(i)*time.Minute))
	}
	seedCheck(t, ts.history, "GitHub API", probe.StatusDown, 0, now.Add(-10*time.Minute))

	resp, body := ts.get(t, "/api/targets/"+url.PathEscape("GitHub API")+"/stats?since=1h")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out targetStats
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 10, out.Stats.TotalChecks)
	assert.InDelta(t, 90.0, out.Stats.UptimePercent, 0.01)

	resp, _ = ts.get(t, "/api/targets/"+url.PathEscape("GitHub API")+"/stats?since=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
targets:
  - name: Example
    url: https://example.com
`), 0o600))

	cfg := baseConfig(config.Target{Name: "Old", URL: "https://example.com/old"})
	ts := newTestServer(t, cfg, config.NewLoader(path, "test"), path)

	resp, err := http.Post(ts.srv.URL+"/api/reload", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := ts.holder.Get()
	require.Len(t, got.Targets, 1)
	assert.Equal(t, "Example", got.Targets[0].Name)
}

func TestReloadFailureKeepsConfig(t *testing.T) {
	cfg := baseConfig(config.Target{Name: "Old", URL: "https://example.com/old"})
	loader := config.NewLoader(filepath.Join(t.TempDir(), "missing.yaml"), "test")
	ts := newTestServer(t, cfg, loader, "")

	resp, err := http.Post(ts.srv.URL+"/api/reload", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	got := ts.holder.Get()
	require.Len(t, got.Targets, 1)
	assert.Equal(t, "Old", got.Targets[0].Name)
}

func TestRateLimitReturns429(t *testing.T) {
	cfg := baseConfig()
	cfg.API.RateLimit = 2
	cfg.API.RateWindow = config.Duration(time.Minute)
	ts := newTestServer(t, cfg, config.NewLoader("", "test"), "")

	var last *http.Response
	for i := 0; i < 3; i++ {
		resp, err := http.Get(ts.srv.URL + "/healthz")
		require.NoError(t, err)
		_ = resp.Body.Close()
		last = resp
	}
	require.Equal(t, http.StatusTooManyRequests, last.StatusCode)
	assert.NotEmpty(t, last.Header.Get("Retry-After"))
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, baseConfig(), config.NewLoader("", "test"), "")

	resp, body := ts.get(t, "/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}
