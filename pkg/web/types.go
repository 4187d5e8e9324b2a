// Package web provides HTTP request and response types for the pipeline API.
package web

import (
	"time"

	"github.com/ragline/ragline/pkg/models"
)

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name         string                 `json:"name"         validate:"required,min=1"`
	Description  string                 `json:"description"`
	NodeSequence []*models.WorkflowNode `json:"nodeSequence" validate:"dive"`
	Connections  []*models.Connection   `json:"connections,omitempty" validate:"dive"`
}

// UpdateWorkflowRequest is the request body for updating a workflow. All
// fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name         *string                `json:"name,omitempty" validate:"omitempty,min=1"`
	Description  *string                `json:"description,omitempty"`
	NodeSequence []*models.WorkflowNode `json:"nodeSequence,omitempty" validate:"omitempty,dive"`
	Connections  []*models.Connection   `json:"connections,omitempty"  validate:"omitempty,dive"`
}

// CreateKnowledgeBaseRequest is the request body for creating an empty
// knowledge base. Chunks are only ever added through store-node executions.
type CreateKnowledgeBaseRequest struct {
	Name        string `json:"name" validate:"required,min=1"`
	Description string `json:"description"`
}

// SearchRequest is the request body for the simple substring chunk search.
type SearchRequest struct {
	Query string `json:"query" validate:"required,min=1"`
}

// KnowledgeBaseSummary is the chunk-free listing view of a knowledge base.
type KnowledgeBaseSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	ChunkCount  int       `json:"chunkCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// SummarizeKnowledgeBase strips the chunk bodies for listings.
func SummarizeKnowledgeBase(kb *models.KnowledgeBase) KnowledgeBaseSummary {
	return KnowledgeBaseSummary{
		ID:          kb.ID,
		Name:        kb.Name,
		Description: kb.Description,
		ChunkCount:  len(kb.Chunks),
		CreatedAt:   kb.CreatedAt,
		UpdatedAt:   kb.UpdatedAt,
	}
}

// NodeDescription describes one registered node type for the editor.
type NodeDescription struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema,omitempty"`
}
