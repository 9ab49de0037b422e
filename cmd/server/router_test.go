package main

import (
	"bufio"
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"onboarding-hub/internal/advice"
	"onboarding-hub/internal/config"
	"onboarding-hub/internal/notify"
	"onboarding-hub/internal/state"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	cfg, rt := newTestRoutes(t)
	return setupRouter(cfg, rt)
}

func newTestRoutes(t *testing.T) (config.Config, routes) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Config{
		Environment:     "development",
		StateBackend:    "file",
		StateFile:       filepath.Join(t.TempDir(), "state.json"),
		FrontendAddress: "https://example.com",
	}
	hub := notify.NewHub()
	repo, history := openRepository(t.Context(), cfg)
	store := state.NewStore(repo, hub, nil)

	return cfg, routes{
		state:  state.NewHandler(store, hub, state.WithHistory(history)),
		advice: advice.NewHandler(nil),
		health: newHealthHandler(cfg, false),
	}
}

func TestRouter_StateRoundTrip(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/state", strings.NewReader(`{"userName":"Kim","lastUpdated":1000}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/state", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userName":"Kim"`)
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)
	assert.JSONEq(t, `{"status":"ok","gemini":false}`, w.Body.String())

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "hub_http_requests_total")
}

func TestRouter_GeminiWithoutKey(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/gemini", strings.NewReader(`{"programName":"Demo Day"}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"GEMINI_API_KEY not configured on server"}`, w.Body.String())
}

func TestRouter_HistoryDisabledForFileBackend(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/state/history", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CORSInDevelopment(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/state", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	router.ServeHTTP(w, req)

	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestOpenRepository_FallsBackToFile(t *testing.T) {
	cfg := config.Config{StateBackend: "cassandra", StateFile: filepath.Join(t.TempDir(), "state.json")}

	repo, history := openRepository(t.Context(), cfg)

	assert.Equal(t, "file", repo.Name())
	assert.Nil(t, history)
}

func TestServer_ShutdownEndsOpenEventStreams(t *testing.T) {
	cfg, rt := newTestRoutes(t)
	server := newServer("127.0.0.1:0", setupRouter(cfg, rt), rt)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go server.Serve(ln)

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	line, err := bufio.NewReader(resp.Body).ReadString('\n')
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(line, "data:"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	assert.NoError(t, server.Shutdown(ctx))
	assert.Less(t, time.Since(start), time.Second)
}
