package ratelimit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddlewareSetsRateLimitHeaders(t *testing.T) {
	limiter := New(time.Minute, 5)
	handler := Middleware(limiter, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.RemoteAddr = "203.0.113.9:51000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", rec.Header().Get("X-RateLimit-Remaining"))

	reset, err := time.Parse(time.RFC3339, rec.Header().Get("X-RateLimit-Reset"))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), reset, 5*time.Second)
}

func TestMiddlewareRejectsWith429(t *testing.T) {
	limiter := New(time.Minute, 1)
	handler := Middleware(limiter, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/students", nil)
	req.RemoteAddr = "203.0.113.9:51000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Empty(t, rec.Header().Get("X-RateLimit-Reset"))

	var body struct {
		Error struct {
			Code    string         `json:"code"`
			Message string         `json:"message"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMITED", body.Error.Code)
	assert.Contains(t, body.Error.Message, "Too many requests")
	assert.EqualValues(t, 60, body.Error.Details["retryAfter"])
}

func TestMiddlewareKeysClientsByIP(t *testing.T) {
	limiter := New(time.Minute, 1)
	handler := Middleware(limiter, nil)(okHandler())

	first := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	first.RemoteAddr = "203.0.113.9:51000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusOK, rec.Code)

	// same IP, different port: still the same client
	samePeer := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	samePeer.RemoteAddr = "203.0.113.9:52000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, samePeer)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	otherPeer := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	otherPeer.RemoteAddr = "198.51.100.7:40000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, otherPeer)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareCustomKeyFunc(t *testing.T) {
	limiter := New(time.Minute, 1)
	byToken := func(r *http.Request) string { return r.Header.Get("X-Api-Token") }
	handler := Middleware(limiter, byToken)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	req.Header.Set("X-Api-Token", "token-a")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	other := httptest.NewRequest(http.MethodGet, "/api/students", nil)
	other.Header.Set("X-Api-Token", "token-b")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	assert.Equal(t, http.StatusOK, rec.Code)
}
