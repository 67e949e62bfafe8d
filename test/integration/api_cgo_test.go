//go:build cgo

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/placetrack/internal/cache"
	"github.com/placetrack/placetrack/internal/config"
	"github.com/placetrack/placetrack/internal/core/store"
	"github.com/placetrack/placetrack/internal/ratelimit"
	"github.com/placetrack/placetrack/internal/server"
)

// newTestServer wires the full stack against an in-memory store: real
// handlers, planners, matcher, cache and limiters, no network listener.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	ctx := context.Background()
	db, err := store.Open(ctx, config.StoreConfig{Driver: "libsql", Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { _ = db.Close() })

	srv := server.New(config.ServerConfig{Host: "localhost", Port: 0}, server.Dependencies{
		Store:          db,
		Cache:          cache.New(4),
		StrictLimiter:  ratelimit.New(time.Minute, 100),
		GeneralLimiter: ratelimit.New(time.Minute, 300),
		CountTTL:       time.Minute,
		DashboardTTL:   time.Minute,
		Version:        "test",
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, ts *httptest.Server, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func getJSON(t *testing.T, ts *httptest.Server, path string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func studentBody(name, email, roll, branch string, cgpa float64) string {
	return fmt.Sprintf(`{
		"name": %q, "email": %q, "rollNo": %q, "branch": %q,
		"cgpa": %v, "backlogs": 0, "passingYear": 2026, "skills": ["go"]
	}`, name, email, roll, branch, cgpa)
}

func TestStudentLifecycle(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/students", studentBody("Asha", "asha@example.edu", "CS-001", "CS", 8.4))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.ID)

	var fetched map[string]any
	resp = getJSON(t, ts, "/api/students/"+created.ID, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Asha", fetched["name"])

	// duplicate email is a conflict
	resp = postJSON(t, ts, "/api/students", studentBody("Asha Again", "asha@example.edu", "CS-002", "CS", 8.0))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/students/"+created.ID, nil)
	require.NoError(t, err)
	delResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer delResp.Body.Close() //nolint:errcheck
	assert.Equal(t, http.StatusNoContent, delResp.StatusCode)

	resp = getJSON(t, ts, "/api/students/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStudentListingPaginatesWithCursor(t *testing.T) {
	ts := newTestServer(t)

	for i := 0; i < 5; i++ {
		resp := postJSON(t, ts, "/api/students",
			studentBody(fmt.Sprintf("Student %02d", i), fmt.Sprintf("s%d@example.edu", i), fmt.Sprintf("CS-%03d", i), "CS", 7.0+float64(i)/10))
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	type listPage struct {
		Data       []map[string]any `json:"data"`
		Pagination struct {
			Total      *int64 `json:"total"`
			HasMore    bool   `json:"hasMore"`
			NextCursor string `json:"nextCursor"`
		} `json:"pagination"`
	}

	var first listPage
	resp := getJSON(t, ts, "/api/students?limit=3&sort=name&order=asc", &first)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, first.Data, 3)
	assert.True(t, first.Pagination.HasMore)
	require.NotNil(t, first.Pagination.Total)
	assert.Equal(t, int64(5), *first.Pagination.Total)
	require.NotEmpty(t, first.Pagination.NextCursor)

	// fresh decode target: total and nextCursor are omitted on cursor
	// pages, and absent JSON fields leave existing struct values in place
	var second listPage
	resp = getJSON(t, ts, "/api/students?limit=3&sort=name&order=asc&cursor="+first.Pagination.NextCursor, &second)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, second.Data, 2)
	assert.False(t, second.Pagination.HasMore)
	assert.Nil(t, second.Pagination.Total, "cursor pages skip the count query")
	assert.Empty(t, second.Pagination.NextCursor)
}

func TestEligibilityBothDirections(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/students", studentBody("Asha", "asha@example.edu", "CS-001", "CS", 8.4))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var student struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&student))

	resp = postJSON(t, ts, "/api/students", studentBody("Chitra", "chitra@example.edu", "EC-001", "EC", 9.1))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, ts, "/api/drives", `{
		"companyName": "Initech", "role": "Backend Engineer", "package": 14,
		"criteria": {"minCGPA": 7.5, "maxBacklogs": 0, "branchesAllowed": ["CS"], "skillsRequired": ["go"]},
		"recruitmentDate": "2026-09-15T00:00:00Z"
	}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var drive struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&drive))

	var eligible struct {
		Count    int              `json:"count"`
		Students []map[string]any `json:"data"`
	}
	postResp := postJSON(t, ts, "/api/drives/"+drive.ID+"/eligible", "")
	require.Equal(t, http.StatusOK, postResp.StatusCode)
	require.NoError(t, json.NewDecoder(postResp.Body).Decode(&eligible))
	require.Equal(t, 1, eligible.Count)
	assert.Equal(t, "Asha", eligible.Students[0]["name"])

	var drives struct {
		Count  int              `json:"count"`
		Drives []map[string]any `json:"data"`
	}
	resp = getJSON(t, ts, "/api/drives/eligible?student="+student.ID, &drives)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 1, drives.Count)
	assert.Equal(t, "Initech", drives.Drives[0]["companyName"])
}

func TestDashboardStatsServedFromCache(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts, "/api/students", studentBody("Asha", "asha@example.edu", "CS-001", "CS", 8.4))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var stats struct {
		Cached bool `json:"cached"`
		Data   struct {
			TotalStudents int64 `json:"totalStudents"`
		} `json:"data"`
	}
	resp = getJSON(t, ts, "/api/dashboard/stats", &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, stats.Cached)
	assert.Equal(t, int64(1), stats.Data.TotalStudents)

	resp = getJSON(t, ts, "/api/dashboard/stats", &stats)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, stats.Cached)
}

func TestRateLimitHeadersExposed(t *testing.T) {
	ts := newTestServer(t)

	resp := getJSON(t, ts, "/api/students", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "300", resp.Header.Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Remaining"))
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/nope")
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
}

func TestHealthEndpoints(t *testing.T) {
	ts := newTestServer(t)

	var health struct {
		Status string `json:"status"`
	}
	resp := getJSON(t, ts, "/health", &health)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", health.Status)

	resp = getJSON(t, ts, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
