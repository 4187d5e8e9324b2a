// Package web provides the HTTP handlers for the pipeline REST API.
package web

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/registry"
	"github.com/ragline/ragline/pkg/workflow"
)

// Upload limits for the execution endpoint. Only plain-text documents are
// accepted; everything else is rejected before the executor runs.
const (
	maxUploadSize     = 10 * 1024 * 1024
	maxSearchResults  = 5
	uploadFileExt     = ".txt"
	uploadContentType = "text/plain"
)

type APIHandlers struct {
	persistence persistence.Persistence
	executor    *workflow.Executor
	registry    *registry.Registry
	validator   *validator.Validate
	logger      *slog.Logger
	uploadDir   string
}

func NewAPIHandlers(
	p persistence.Persistence,
	executor *workflow.Executor,
	reg *registry.Registry,
	validate *validator.Validate,
	logger *slog.Logger,
	uploadDir string,
) *APIHandlers {
	return &APIHandlers{
		persistence: p,
		executor:    executor,
		registry:    reg,
		validator:   validate,
		logger:      logger.With("module", "web"),
		uploadDir:   uploadDir,
	}
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	httpStatus := http.StatusOK

	if err := h.persistence.HealthCheck(c.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":    status,
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) GetWorkflows(c fiber.Ctx) error {
	workflows, err := h.persistence.Workflows().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	// Most recently updated first, matching the editor's listing.
	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].UpdatedAt.After(workflows[j].UpdatedAt)
	})

	return c.JSON(workflows)
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	wf, err := h.persistence.Workflows().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.JSON(wf)
}

func (h *APIHandlers) CreateWorkflow(c fiber.Ctx) error {
	var req CreateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	wf := &models.Workflow{
		Name:         req.Name,
		Description:  req.Description,
		NodeSequence: req.NodeSequence,
		Connections:  req.Connections,
	}

	if err := h.persistence.Workflows().Save(c.Context(), wf); err != nil {
		if persistence.IsNameTaken(err) {
			return conflict(c, "A workflow with this name already exists")
		}

		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(wf)
}

func (h *APIHandlers) UpdateWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	var req UpdateWorkflowRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	existing, err := h.persistence.Workflows().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.NodeSequence != nil {
		existing.NodeSequence = req.NodeSequence
	}

	if req.Connections != nil {
		existing.Connections = req.Connections
	}

	if err := h.persistence.Workflows().Save(c.Context(), existing); err != nil {
		if persistence.IsNameTaken(err) {
			return conflict(c, "A workflow with this name already exists")
		}

		return internalError(c, err)
	}

	return c.JSON(existing)
}

func (h *APIHandlers) DeleteWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	if err := h.persistence.Workflows().Delete(c.Context(), id); err != nil {
		if persistence.IsWorkflowNotFound(err) {
			return notFound(c, "Workflow not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetKnowledgeBases(c fiber.Ctx) error {
	kbs, err := h.persistence.KnowledgeBases().List(c.Context())
	if err != nil {
		return internalError(c, err)
	}

	summaries := make([]KnowledgeBaseSummary, 0, len(kbs))
	for _, kb := range kbs {
		summaries = append(summaries, SummarizeKnowledgeBase(kb))
	}

	return c.JSON(summaries)
}

func (h *APIHandlers) GetKnowledgeBase(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Knowledge base ID is required")
	}

	kb, err := h.persistence.KnowledgeBases().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsKnowledgeBaseNotFound(err) {
			return notFound(c, "Knowledge base not found")
		}

		return internalError(c, err)
	}

	return c.JSON(kb)
}

func (h *APIHandlers) CreateKnowledgeBase(c fiber.Ctx) error {
	var req CreateKnowledgeBaseRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	kb := &models.KnowledgeBase{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
	}

	if err := h.persistence.KnowledgeBases().Save(c.Context(), kb); err != nil {
		if persistence.IsNameTaken(err) {
			return conflict(c, "A knowledge base with this name already exists")
		}

		return internalError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(kb)
}

func (h *APIHandlers) DeleteKnowledgeBase(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Knowledge base ID is required")
	}

	if err := h.persistence.KnowledgeBases().Delete(c.Context(), id); err != nil {
		if persistence.IsKnowledgeBaseNotFound(err) {
			return notFound(c, "Knowledge base not found")
		}

		return internalError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// SearchKnowledgeBase is the editor's quick lookup: a case-insensitive
// substring match over chunk contents, capped at five results. Workflow
// queries go through the rag node's scorer instead.
func (h *APIHandlers) SearchKnowledgeBase(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Knowledge base ID is required")
	}

	var req SearchRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	kb, err := h.persistence.KnowledgeBases().GetByID(c.Context(), id)
	if err != nil {
		if persistence.IsKnowledgeBaseNotFound(err) {
			return notFound(c, "Knowledge base not found")
		}

		return internalError(c, err)
	}

	query := strings.ToLower(req.Query)
	results := make([]models.KnowledgeBaseChunk, 0, maxSearchResults)

	for _, chunk := range kb.Chunks {
		if strings.Contains(strings.ToLower(chunk.Content), query) {
			results = append(results, chunk)
			if len(results) == maxSearchResults {
				break
			}
		}
	}

	return c.JSON(results)
}

// ExecuteWorkflow accepts a multipart form with a workflow ID and either
// pasted text or an uploaded plain-text file, runs the pipeline and returns
// the per-node results.
func (h *APIHandlers) ExecuteWorkflow(c fiber.Ctx) error {
	workflowID := c.FormValue("workflowId")
	if workflowID == "" {
		return badRequest(c, "Workflow ID is required")
	}

	inputText := c.FormValue("inputText")

	uploaded, err := h.saveUpload(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	if inputText == "" && uploaded == nil {
		return badRequest(c, "Either input text or file is required")
	}

	h.logger.Info("execution request received",
		"workflow_id", workflowID, "has_input_text", inputText != "", "has_file", uploaded != nil)

	result, err := h.executor.Execute(c.Context(), workflow.Request{
		WorkflowID: workflowID,
		InputText:  inputText,
		File:       uploaded,
		SessionID:  c.FormValue("sessionId"),
	})
	if err != nil {
		return handleExecutionError(c, err)
	}

	return c.JSON(result)
}

// saveUpload validates and stores the optional uploaded file, returning nil
// when no file was sent.
func (h *APIHandlers) saveUpload(c fiber.Ctx) (*models.UploadedFile, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, nil
	}

	if header.Size > maxUploadSize {
		return nil, fiber.NewError(fiber.StatusBadRequest, "File too large. Maximum size is 10MB.")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")

	if ext != uploadFileExt && !strings.HasPrefix(contentType, uploadContentType) {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Only .txt files are allowed")
	}

	path := filepath.Join(h.uploadDir, uuid.New().String()+uploadFileExt)
	if err := c.SaveFile(header, path); err != nil {
		return nil, err
	}

	return &models.UploadedFile{Path: path, OriginalName: header.Filename}, nil
}

func (h *APIHandlers) GetNodes(c fiber.Ctx) error {
	factories := h.registry.Factories()

	descriptions := make([]NodeDescription, 0, len(factories))
	for _, factory := range factories {
		descriptions = append(descriptions, NodeDescription{
			Type:        factory.ID(),
			Name:        factory.Name(),
			Description: factory.Description(),
			Schema:      factory.Schema(),
		})
	}

	sort.Slice(descriptions, func(i, j int) bool {
		return descriptions[i].Type < descriptions[j].Type
	})

	return c.JSON(descriptions)
}
