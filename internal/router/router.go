package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aulaweb/aula-go-api/internal/config"
	"github.com/aulaweb/aula-go-api/internal/handler"
	"github.com/aulaweb/aula-go-api/internal/middleware"
	"github.com/aulaweb/aula-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CatalogHandler    *handler.CatalogHandler
	SubmissionHandler *handler.SubmissionHandler
	GradeHandler      *handler.GradeHandler
	ProgressHandler   *handler.ProgressHandler
	StatsHandler      *handler.StatsHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
//
// Group middleware in fiber is prefix-matched, so a role guard must never be
// attached to a group whose prefix also serves student routes; staff-only
// routes take the guard per-route instead.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	staffOnly := middleware.RequireRole("teacher", "admin")

	// Courses, modules and the progress views nested under them.
	if deps.CatalogHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.CatalogHandler.RegisterCourseRoutes(courses)
		deps.CatalogHandler.RegisterCourseWriteRoutes(courses, staffOnly)

		if deps.ProgressHandler != nil {
			deps.ProgressHandler.RegisterCourseRoutes(courses)
		}

		modules := api.Group("/modules", jwtMiddleware)
		deps.CatalogHandler.RegisterModuleRoutes(modules)
		deps.CatalogHandler.RegisterModuleWriteRoutes(modules, staffOnly)
	}

	// Activities carry the attempt and grade ledgers.
	activities := api.Group("/activities", jwtMiddleware)

	if deps.CatalogHandler != nil {
		deps.CatalogHandler.RegisterActivityRoutes(activities)
		deps.CatalogHandler.RegisterActivityWriteRoutes(activities, staffOnly)
	}

	if deps.SubmissionHandler != nil {
		// Burst-y clients get throttled per user before they hit the ledger.
		deps.SubmissionHandler.RegisterActivityRoutes(activities, middleware.RateLimit("submissions", 20, time.Minute))

		submissions := api.Group("/submissions", jwtMiddleware)
		deps.SubmissionHandler.RegisterSubmissionRoutes(submissions)
		deps.SubmissionHandler.RegisterModerationRoutes(submissions, staffOnly)
	}

	if deps.GradeHandler != nil {
		deps.GradeHandler.RegisterReadRoutes(activities)
		deps.GradeHandler.RegisterWriteRoutes(activities, staffOnly)
	}

	if deps.ProgressHandler != nil {
		enrollments := api.Group("/enrollments", jwtMiddleware, staffOnly)
		deps.ProgressHandler.RegisterEnrollmentRoutes(enrollments)
	}

	if deps.StatsHandler != nil {
		stats := api.Group("/stats", jwtMiddleware, staffOnly)
		deps.StatsHandler.Register(stats)
	}
}
