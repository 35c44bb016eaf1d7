package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/radiusdt/adintelli/internal/config"
	"github.com/radiusdt/adintelli/internal/metrics"
)

func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		logger, err := NewLogger("debug", format)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(zap.DebugLevel))
	}

	logger, err := NewLogger("warn", "json")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
}

func TestRecoveryMiddleware(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := NewRecoveryMiddleware(zap.New(core)).Handler(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/insights", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "panic recovered", logs.All()[0].Message)
}

func TestLoggingMiddleware_RecordsRoutePattern(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	m := metrics.New("test", nil)

	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(zap.New(core), m, "/metrics").Handler)
	r.Get("/integrations/{platform}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/integrations/nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/integrations/{platform}", "404")))

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.WarnLevel, entries[0].Level)
	assert.Equal(t, "/integrations/nope", entries[0].ContextMap()["path"])
}

func TestLoggingMiddleware_QuietPaths(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	r := chi.NewRouter()
	r.Use(NewLoggingMiddleware(zap.New(core), nil, "/internal/metrics").Handler)
	ok := func(w http.ResponseWriter, r *http.Request) {}
	r.Get("/internal/metrics", ok)
	r.Get("/metrics", ok)
	r.Get("/health", ok)

	for _, path := range []string{"/internal/metrics", "/health", "/metrics"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	entries := logs.FilterMessage("request completed").All()
	require.Len(t, entries, 3)
	assert.Equal(t, zap.DebugLevel, entries[0].Level)
	assert.Equal(t, zap.DebugLevel, entries[1].Level)
	assert.Equal(t, zap.InfoLevel, entries[2].Level)
}

func TestRateLimitMiddleware(t *testing.T) {
	m := metrics.New("test", nil)
	cfg := config.RateLimitConfig{Enabled: true, RPS: 1, Burst: 2}
	rl := NewRateLimitMiddleware(cfg, zap.NewNop(), m, "/internal/metrics")
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(path, addr string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, do("/insights", "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, do("/insights", "10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, do("/insights", "10.0.0.1:1002"))

	// other clients and exempt paths are unaffected
	assert.Equal(t, http.StatusOK, do("/insights", "10.0.0.2:1000"))
	assert.Equal(t, http.StatusOK, do("/health", "10.0.0.1:1003"))
	assert.Equal(t, http.StatusOK, do("/internal/metrics", "10.0.0.1:1004"))

	// only the configured metrics path is exempt
	assert.Equal(t, http.StatusTooManyRequests, do("/metrics", "10.0.0.1:1005"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/insights")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateLimitHits.WithLabelValues("/metrics")))
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	rl := NewRateLimitMiddleware(config.RateLimitConfig{Enabled: false, RPS: 1, Burst: 1}, zap.NewNop(), nil, "/metrics")
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimitMiddleware_Cleanup(t *testing.T) {
	now := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	rl := NewRateLimitMiddleware(config.RateLimitConfig{Enabled: true, RPS: 10, Burst: 10}, zap.NewNop(), nil, "/metrics")
	rl.now = func() time.Time { return now }

	rl.limiter("10.0.0.1")
	now = now.Add(10 * time.Minute)
	rl.limiter("10.0.0.2")

	assert.Equal(t, 1, rl.Cleanup(5*time.Minute))
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "10.0.0.2")
}
