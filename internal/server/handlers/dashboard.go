package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/placetrack/placetrack/internal/cache"
	"github.com/placetrack/placetrack/internal/core"
	apperrors "github.com/placetrack/placetrack/internal/errors"
)

const (
	dashboardStatsKey  = "dashboard:stats"
	dashboardRecentKey = "dashboard:recent"
)

// DashboardStore computes the aggregate snapshots the dashboard serves.
type DashboardStore interface {
	DashboardStats(ctx context.Context) (*core.DashboardStats, error)
	RecentActivity(ctx context.Context, limit int) (*core.RecentActivity, error)
}

// DashboardHandler serves the /api/dashboard routes. Statistics are
// expensive aggregates, so responses come from the TTL cache and flag
// whether the snapshot was reused.
type DashboardHandler struct {
	store DashboardStore
	cache *cache.Cache
	ttl   time.Duration
}

// NewDashboardHandler wires the dashboard routes to their store and cache.
func NewDashboardHandler(s DashboardStore, c *cache.Cache, ttl time.Duration) *DashboardHandler {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DashboardHandler{store: s, cache: c, ttl: ttl}
}

// statsResponse wraps the snapshot with its cache provenance.
type statsResponse struct {
	Cached bool                 `json:"cached"`
	Data   *core.DashboardStats `json:"data"`
}

// Stats serves GET /api/dashboard/stats.
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	value, cached, err := h.cache.GetOrSet(r.Context(), dashboardStatsKey, h.ttl,
		func(ctx context.Context) (any, error) {
			return h.store.DashboardStats(ctx)
		})
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to compute dashboard statistics"))
		return
	}

	stats, ok := value.(*core.DashboardStats)
	if !ok {
		respondWithError(w, r, apperrors.NewInternalError("Unexpected dashboard cache entry"))
		return
	}

	respondJSON(w, http.StatusOK, statsResponse{Cached: cached, Data: stats})
}

// Recent serves GET /api/dashboard/recent.
func (h *DashboardHandler) Recent(w http.ResponseWriter, r *http.Request) {
	value, _, err := h.cache.GetOrSet(r.Context(), dashboardRecentKey, h.ttl,
		func(ctx context.Context) (any, error) {
			return h.store.RecentActivity(ctx, 5)
		})
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to fetch recent activity"))
		return
	}

	activity, ok := value.(*core.RecentActivity)
	if !ok {
		respondWithError(w, r, apperrors.NewInternalError("Unexpected recent activity cache entry"))
		return
	}

	respondJSON(w, http.StatusOK, activity)
}
