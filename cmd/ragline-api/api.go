// Package main provides the ragline API server.
package main

import (
	"log/slog"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"

	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/registry"
	"github.com/ragline/ragline/pkg/web"
	"github.com/ragline/ragline/pkg/workflow"
)

type API struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	executor    *workflow.Executor
	validate    *validator.Validate
	uploadDir   string
}

func NewAPI(
	logger *slog.Logger,
	persistence persistence.Persistence,
	registry *registry.Registry,
	executor *workflow.Executor,
	uploadDir string,
) *API {
	return &API{
		logger:      logger,
		persistence: persistence,
		registry:    registry,
		executor:    executor,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		uploadDir:   uploadDir,
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.persistence, a.executor, a.registry, a.validate, a.logger, a.uploadDir)

	app := fiber.New(fiber.Config{
		BodyLimit: 11 * 1024 * 1024, // one MB above the upload cap so our own error fires
	})
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("ragline API")
	})

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Put("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)

	kb := app.Group("/knowledge-bases")
	kb.Get("/", handlers.GetKnowledgeBases)
	kb.Post("/", handlers.CreateKnowledgeBase)
	kb.Get("/:id", handlers.GetKnowledgeBase)
	kb.Delete("/:id", handlers.DeleteKnowledgeBase)
	kb.Post("/:id/search", handlers.SearchKnowledgeBase)

	app.Post("/executions", handlers.ExecuteWorkflow)
	app.Get("/nodes", handlers.GetNodes)
	app.Get("/health", handlers.HealthCheck)

	return app
}

func (a *API) Start(port int) error {
	app := a.App()

	return app.Listen(":" + strconv.Itoa(port))
}
