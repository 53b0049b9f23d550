package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/groupcal/internal/calendar"
)

func serve(t *testing.T, h http.Handler) (int, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(nil)
	h.SetReady(false)

	code, body := serve(t, h.LivenessHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
}

func TestReadinessHandler(t *testing.T) {
	t.Run("ready without context", func(t *testing.T) {
		h := NewHealthChecker(nil)
		assert.True(t, h.IsReady())

		code, body := serve(t, h.ReadinessHandler())
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body["status"])
		assert.NotContains(t, body["checks"], "calendar")
	})

	t.Run("not ready", func(t *testing.T) {
		h := NewHealthChecker(nil)
		h.SetReady(false)

		code, body := serve(t, h.ReadinessHandler())
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "not ready", body["status"])
	})

	t.Run("shutting down", func(t *testing.T) {
		sc := newTestServerContext(t, Options{})
		h := NewHealthChecker(sc)
		require.NoError(t, sc.Shutdown())

		code, body := serve(t, h.ReadinessHandler())
		assert.Equal(t, http.StatusServiceUnavailable, code)
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "shutting down", checks["shutdown"])
	})

	t.Run("failed fetch is degraded but ready", func(t *testing.T) {
		ctrl := newTestController(stubRemote{err: &calendar.RemoteCallFailed{Status: 503, Message: "unavailable"}}, stubTokens{})
		_ = ctrl.Refresh(context.Background())
		h := NewHealthChecker(newTestServerContext(t, Options{Controller: ctrl}))

		code, body := serve(t, h.ReadinessHandler())
		assert.Equal(t, http.StatusOK, code)
		checks := body["checks"].(map[string]any)
		assert.Equal(t, "degraded", checks["calendar"])
	})
}

func TestDetailedHealthHandler(t *testing.T) {
	events := []calendar.Event{
		{ID: "a", Subject: "Standup", Start: calendar.DateTimeZone{DateTime: "2024-06-03T09:00:00", TimeZone: "UTC"}, End: calendar.DateTimeZone{DateTime: "2024-06-03T09:15:00", TimeZone: "UTC"}},
	}
	ctrl := newTestController(stubRemote{events: events}, stubTokens{})
	require.NoError(t, ctrl.Refresh(context.Background()))

	h := NewHealthChecker(newTestServerContext(t, Options{Controller: ctrl, ReadOnly: true}))
	code, body := serve(t, h.DetailedHealthHandler())
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["read_only"])
	assert.NotEmpty(t, body["uptime"])

	cal := body["calendar"].(map[string]any)
	assert.Equal(t, "ready", cal["state"])
	assert.Equal(t, float64(1), cal["events"])
	assert.Equal(t, true, cal["elevated"])
	assert.NotEmpty(t, cal["loaded_at"])
}

func TestDetailedHealthHandler_NoSession(t *testing.T) {
	ctrl := newTestController(stubRemote{}, stubTokens{err: errors.New("no active session")})
	_ = ctrl.Refresh(context.Background())

	h := NewHealthChecker(newTestServerContext(t, Options{Controller: ctrl}))
	_, body := serve(t, h.DetailedHealthHandler())
	cal := body["calendar"].(map[string]any)
	assert.Equal(t, "failed", cal["state"])
	assert.Equal(t, "no active session", cal["error"])
}

func TestRegisterHealthEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	NewHealthChecker(nil).RegisterHealthEndpoints(mux)

	for _, path := range []string{"/healthz", "/readyz", "/healthz/detailed"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
