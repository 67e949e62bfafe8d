package server

import (
	"context"

	"github.com/go-chi/chi/v5"

	"github.com/placetrack/placetrack/internal/query"
	"github.com/placetrack/placetrack/internal/ratelimit"
	"github.com/placetrack/placetrack/internal/server/handlers"
)

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	health := handlers.NewHealthManager(s.deps.Version)
	if s.deps.Store != nil {
		health.RegisterChecker("store", handlers.HealthCheckerFunc(func(ctx context.Context) error {
			return s.deps.Store.DB.PingContext(ctx)
		}))
	}

	s.router.Get("/health", health.HealthHandler)
	s.router.Get("/health/live", health.LivenessHandler)
	s.router.Get("/health/ready", health.ReadinessHandler)

	s.router.Get("/version", handlers.VersionHandler)

	// Metrics endpoint (in server package to access HandleError)
	s.router.Get("/metrics", MetricsHandler)

	// The count cache is shared; planner keys embed the table name.
	studentPlanner := query.NewPlanner(handlers.StudentQuerySpec(),
		s.deps.Store.StudentPager(), s.deps.Cache, s.deps.CountTTL)
	drivePlanner := query.NewPlanner(handlers.DriveQuerySpec(),
		s.deps.Store.DrivePager(), s.deps.Cache, s.deps.CountTTL)

	students := handlers.NewStudentHandler(s.deps.Store, studentPlanner, s.deps.Cache, s.deps.CountTTL)
	drives := handlers.NewDriveHandler(s.deps.Store, drivePlanner, s.matcher())
	dashboard := handlers.NewDashboardHandler(s.deps.Store, s.deps.Cache, s.deps.DashboardTTL)

	// Reads run under the general budget; writes, eligibility scans and
	// the dashboard aggregate under the strict one. The two limiters are
	// independent instances with their own state.
	general := ratelimit.Middleware(s.deps.GeneralLimiter, nil)
	strict := ratelimit.Middleware(s.deps.StrictLimiter, nil)

	s.router.Route("/api", func(api chi.Router) {
		api.Route("/students", func(r chi.Router) {
			r.With(general).Get("/", students.List)
			r.With(general).Get("/branches", students.Branches)
			r.With(general).Get("/{id}", students.Get)
			r.With(strict).Post("/", students.Create)
			r.With(strict).Put("/{id}", students.Update)
			r.With(strict).Delete("/{id}", students.Delete)
		})

		api.Route("/drives", func(r chi.Router) {
			r.With(general).Get("/", drives.List)
			r.With(strict).Get("/eligible", drives.EligibleDrives)
			r.With(general).Get("/{id}", drives.Get)
			r.With(strict).Post("/", drives.Create)
			r.With(strict).Put("/{id}", drives.Update)
			r.With(strict).Delete("/{id}", drives.Delete)
			r.With(strict).Post("/{id}/eligible", drives.EligibleStudents)
		})

		api.Route("/dashboard", func(r chi.Router) {
			r.With(strict).Get("/stats", dashboard.Stats)
			r.With(general).Get("/recent", dashboard.Recent)
		})
	})
}
