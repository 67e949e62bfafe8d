package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/placetrack/internal/cache"
	"github.com/placetrack/placetrack/internal/core"
)

type fakeDashboardStore struct {
	statsCalls  int
	statsErr    error
	recentCalls int
	activity    *core.RecentActivity
}

func (f *fakeDashboardStore) DashboardStats(context.Context) (*core.DashboardStats, error) {
	f.statsCalls++
	if f.statsErr != nil {
		return nil, f.statsErr
	}
	return &core.DashboardStats{
		TotalStudents:  10,
		PlacedStudents: 4,
		PlacementRate:  40,
	}, nil
}

func (f *fakeDashboardStore) RecentActivity(context.Context, int) (*core.RecentActivity, error) {
	f.recentCalls++
	return f.activity, nil
}

func TestDashboardStatsCachesSnapshot(t *testing.T) {
	fake := &fakeDashboardStore{}
	h := NewDashboardHandler(fake, cache.New(4), time.Minute)

	first := httptest.NewRecorder()
	h.Stats(first, httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, first.Code)

	var resp statsResponse
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &resp))
	assert.False(t, resp.Cached)
	require.NotNil(t, resp.Data)
	assert.Equal(t, int64(10), resp.Data.TotalStudents)

	second := httptest.NewRecorder()
	h.Stats(second, httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))
	require.Equal(t, http.StatusOK, second.Code)

	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.True(t, resp.Cached)
	assert.Equal(t, 1, fake.statsCalls, "second request must reuse the cached snapshot")
}

func TestDashboardStatsComputeFailure(t *testing.T) {
	fake := &fakeDashboardStore{statsErr: errors.New("aggregate query failed")}
	h := NewDashboardHandler(fake, cache.New(4), time.Minute)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/stats", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "DATABASE_ERROR")
}

func TestDashboardRecent(t *testing.T) {
	fake := &fakeDashboardStore{
		activity: &core.RecentActivity{
			Students: []core.StudentSummary{{ID: "s1", Name: "Asha"}},
			Drives:   []core.Drive{{ID: "d1", CompanyName: "Initech"}},
		},
	}
	h := NewDashboardHandler(fake, cache.New(4), time.Minute)

	rec := httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/recent", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var activity core.RecentActivity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &activity))
	require.Len(t, activity.Students, 1)
	assert.Equal(t, "Asha", activity.Students[0].Name)
	require.Len(t, activity.Drives, 1)
	assert.Equal(t, "Initech", activity.Drives[0].CompanyName)

	// a second request is served from the cache
	rec = httptest.NewRecorder()
	h.Recent(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/recent", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.recentCalls)
}
