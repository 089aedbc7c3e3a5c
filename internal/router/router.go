package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/classmark/classmark-api/internal/config"
	"github.com/classmark/classmark-api/internal/handler"
	"github.com/classmark/classmark-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AssignmentHandler       *handler.AssignmentHandler
	SubmissionHandler       *handler.SubmissionHandler
	StudentDashboardHandler *handler.StudentDashboardHandler
	JWTMiddleware           fiber.Handler
	UploadRateLimit         fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AssignmentHandler != nil {
		assignmentGroup := api.Group("/assignments", jwtMiddleware)
		deps.AssignmentHandler.Register(assignmentGroup)
	}

	if deps.SubmissionHandler != nil {
		submissionGroup := api.Group("/submissions", jwtMiddleware)
		if deps.UploadRateLimit != nil {
			submissionGroup.Use(deps.UploadRateLimit)
		}
		deps.SubmissionHandler.Register(submissionGroup)
	}

	if deps.StudentDashboardHandler != nil {
		studentGroup := api.Group("/student", jwtMiddleware)
		deps.StudentDashboardHandler.Register(studentGroup)
	}
}
