package web

import (
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"

	"github.com/ragline/ragline/pkg/nodes/input"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/protocol"
	"github.com/ragline/ragline/pkg/registry"
)

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func notFound(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(404).
		WithInstance(c.Path()).
		WithType("not_found").
		WithDetail(detail)

	return c.Status(fiber.StatusNotFound).JSON(problem)
}

func conflict(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(409).
		WithInstance(c.Path()).
		WithType("conflict").
		WithDetail(detail)

	return c.Status(fiber.StatusConflict).JSON(problem)
}

func internalError(c fiber.Ctx, err error) error {
	problem := problems.NewStatusProblem(500).
		WithInstance(c.Path()).
		WithType("internal_error").
		WithError(err)

	return c.Status(fiber.StatusInternalServerError).JSON(problem)
}

// handleExecutionError maps executor failures onto problem responses. Bad
// workflow definitions and missing entities are the caller's fault; anything
// else is a 500.
func handleExecutionError(c fiber.Ctx, err error) error {
	var configErr *protocol.ConfigError

	switch {
	case persistence.IsWorkflowNotFound(err):
		return notFound(c, "Workflow not found")
	case persistence.IsKnowledgeBaseNotFound(err):
		return notFound(c, err.Error())
	case errors.Is(err, registry.ErrUnknownNodeType):
		problem := problems.NewStatusProblem(400).
			WithInstance(c.Path()).
			WithType("unknown_node_type").
			WithDetail(err.Error())

		return c.Status(fiber.StatusBadRequest).JSON(problem)
	case errors.As(err, &configErr):
		return badRequest(c, configErr.Error())
	case errors.Is(err, input.ErrMissingInput):
		return badRequest(c, "Either input text or file is required")
	default:
		return internalError(c, err)
	}
}
