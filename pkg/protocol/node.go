// Package protocol defines the interfaces and contracts for pipeline nodes.
package protocol

import (
	"context"

	"github.com/ragline/ragline/pkg/models"
)

// Node is one executable pipeline step. Execute consumes the previous node's
// payload (nil before the first node) and returns the next one. A node may
// pass its input through unchanged when the payload shape does not match its
// job; it must never mutate a payload it did not produce.
type Node interface {
	// ID returns the node instance ID within its workflow
	ID() string

	// Type returns the node type identifier
	Type() string

	// Execute runs the node against the current pipeline payload
	Execute(ctx context.Context, execCtx *models.ExecutionContext, input models.Payload) (models.Payload, error)
}

// NodeFactory creates node instances and provides metadata about the node type.
type NodeFactory interface {
	// Create creates a new node instance with the given configuration
	Create(ctx context.Context, id string, config map[string]any) (Node, error)

	// ID returns the unique identifier for this node type
	ID() string

	// Name returns the human-readable name for this node type
	Name() string

	// Description returns a description of what this node does
	Description() string

	// Schema returns the JSON schema for configuring this node
	Schema() map[string]any
}
