// Package metrics emits placetrack's application counters through the
// telemetry system. All helpers are nil-safe so code paths exercised before
// telemetry initialization (tests, CLI commands) do not panic.
package metrics

import (
	"time"

	"github.com/placetrack/placetrack/internal/observability"
)

// Application-level metrics following Prometheus conventions
var (
	// Cache metrics
	CacheHitsTotal      = "app_cache_hits_total"
	CacheMissesTotal    = "app_cache_misses_total"
	CacheEvictionsTotal = "app_cache_evictions_total"

	// Rate limiter metrics
	RateLimitAllowedTotal  = "app_ratelimit_allowed_total"
	RateLimitRejectedTotal = "app_ratelimit_rejected_total"

	// Eligibility metrics
	EligibilityChecksTotal = "app_eligibility_checks_total"

	// Query planner metrics
	PageQueriesTotal = "app_page_queries_total"

	// Health check metrics
	HealthCheckTotal    = "app_health_check_total"
	HealthCheckDuration = "app_health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "app_server_start_time_seconds"
	ServerUptime    = "app_server_uptime_seconds"
)

// CacheRecorder feeds cache hit/miss/eviction counts into telemetry. It
// satisfies the cache package's metrics hook.
type CacheRecorder struct{}

func (CacheRecorder) CacheHit() {
	count(CacheHitsTotal, nil)
}

func (CacheRecorder) CacheMiss() {
	count(CacheMissesTotal, nil)
}

func (CacheRecorder) EntriesEvicted(n int) {
	if n <= 0 {
		return
	}
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(CacheEvictionsTotal, float64(n), nil)
	}
}

// LimiterRecorder feeds admission decisions into telemetry, labeled by the
// limiter profile (strict or general). It satisfies the ratelimit package's
// metrics hook.
type LimiterRecorder struct {
	Profile string
}

func (r LimiterRecorder) RequestAdmitted() {
	count(RateLimitAllowedTotal, map[string]string{"profile": r.Profile})
}

func (r LimiterRecorder) RequestRejected() {
	count(RateLimitRejectedTotal, map[string]string{"profile": r.Profile})
}

// RecordEligibilityCheck records one eligibility evaluation pass.
func RecordEligibilityCheck(direction string) {
	count(EligibilityChecksTotal, map[string]string{"direction": direction})
}

// RecordPageQuery records one planner page execution.
func RecordPageQuery(table string, counted bool) {
	labels := map[string]string{"table": table, "counted": "false"}
	if counted {
		labels["counted"] = "true"
	}
	count(PageQueriesTotal, labels)
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)

		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{
				"check": checkName,
			},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}

// SetServerUptime records the server uptime in seconds
func SetServerUptime(seconds int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerUptime, float64(seconds), nil)
	}
}

func count(name string, labels map[string]string) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(name, 1, labels)
	}
}
