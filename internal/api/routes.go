package api

import (
	"github.com/bilgisen/contentpipe/internal/config"
	"github.com/bilgisen/contentpipe/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// NewApp creates the fiber app with the shared error handler and middleware
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPTimeout,
		WriteTimeout: cfg.HTTPTimeout,
		BodyLimit:    maxUploadSize + 1024*1024,
		ErrorHandler: middleware.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestLogger())
	return app
}

// SetupRoutes configures all the routes for the application
func SetupRoutes(app *fiber.App, handlers *Handlers, cfg *config.Config) {
	// API group with versioning
	api := app.Group("/api/v1")

	// Health check endpoint
	api.Get("/health", handlers.HealthCheck)

	admin := middleware.AdminOnly(cfg.AdminAPIKey)

	jobs := api.Group("/jobs", admin)
	{
		jobs.Post("", handlers.CreateJob)
		jobs.Get("", handlers.ListJobs)
		jobs.Get("/:id", handlers.GetJob)
		jobs.Get("/:id/manifest", handlers.GetManifest)
		jobs.Post("/:id/resume", handlers.ResumeJob)
	}

	sites := api.Group("/sites", admin)
	{
		sites.Post("", middleware.ValidateBody[SiteRequest](), handlers.RegisterSite)
		sites.Post("/test", middleware.ValidateBody[SiteRequest](), handlers.TestSite)
		sites.Get("/:id/posts", middleware.ValidateQuery[PostsQuery](), handlers.ListSitePosts)
	}

	// 404 Handler
	app.Use(notFound)
}
