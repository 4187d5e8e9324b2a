// Package models defines the core domain models for linear RAG pipeline workflows.
package models

import "time"

// NodeType identifies one of the built-in pipeline node kinds.
type NodeType string

const (
	NodeTypeInput  NodeType = "input"
	NodeTypeStore  NodeType = "store"
	NodeTypeRAG    NodeType = "rag"
	NodeTypeMemory NodeType = "memory"
	NodeTypeOutput NodeType = "output"
)

// WorkflowNode is one step of a workflow's pipeline. Position is only
// meaningful to the visual editor; the engine ignores it.
type WorkflowNode struct {
	ID        string         `json:"id"        validate:"required"`
	Type      NodeType       `json:"type"      validate:"required"`
	Config    map[string]any `json:"config"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
}

// Connection is a legacy edge between two nodes. Older workflows persisted an
// edge list instead of an ordered sequence; these are normalized to a
// NodeSequence once at load time.
type Connection struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to"   validate:"required"`
}

// Workflow is a named, ordered pipeline of nodes. NodeSequence is the
// authoritative execution order. Names are unique case-insensitively,
// enforced at write time by the persistence layer.
type Workflow struct {
	ID           string          `json:"id"`
	Name         string          `json:"name" validate:"required,min=1"`
	Description  string          `json:"description,omitempty"`
	NodeSequence []*WorkflowNode `json:"nodeSequence"`
	Connections  []*Connection   `json:"connections,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// FindNode returns the node with the given ID, or nil.
func (w *Workflow) FindNode(id string) *WorkflowNode {
	for _, n := range w.NodeSequence {
		if n.ID == id {
			return n
		}
	}

	return nil
}
