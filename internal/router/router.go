package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-course-api/internal/config"
	"github.com/noah-isme/gema-course-api/internal/handler"
	"github.com/noah-isme/gema-course-api/internal/middleware"
	"github.com/noah-isme/gema-course-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseProgressHandler *handler.CourseProgressHandler
	CourseAdminHandler    *handler.CourseAdminHandler
	JudgeHandler          *handler.JudgeHandler
	NotificationHandler   *handler.NotificationHandler
	HealthProbes          map[string]handler.HealthProbe
	JWTMiddleware         fiber.Handler
	JudgeMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	judgeMiddleware := deps.JudgeMiddleware
	if judgeMiddleware == nil {
		judgeMiddleware = jwtMiddleware
	}

	learner := func(c *fiber.Ctx) error { return c.Next() }
	learner = middleware.WithAuth(learner, middleware.AuthOptions{Role: middleware.RoleStudent})

	if deps.CourseProgressHandler != nil {
		courses := app.Group("/api/v2/courses", jwtMiddleware, learner)
		deps.CourseProgressHandler.Register(courses)
	}

	if deps.NotificationHandler != nil {
		notifications := app.Group("/api/v2/notifications", jwtMiddleware, learner)
		deps.NotificationHandler.Register(notifications)
	}

	if deps.JudgeHandler != nil {
		judge := app.Group("/api/v2/judge",
			judgeMiddleware,
			middleware.RequireRole(middleware.RoleJudge, middleware.RoleAdmin),
			middleware.RateLimit("judge", 300, time.Second),
		)
		deps.JudgeHandler.Register(judge)
	}

	if deps.CourseAdminHandler != nil {
		admin := app.Group("/api/admin/courses",
			jwtMiddleware,
			middleware.RequireRole(middleware.RoleAdmin, middleware.RoleTeacher),
		)
		deps.CourseAdminHandler.Register(admin)
	}
}
