// Package registry maps node types to their factories and validates node
// configuration against each factory's schema before a node is created.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ragline/ragline/pkg/protocol"
)

// ErrUnknownNodeType is returned when a workflow references a node type with
// no registered factory. A workflow carrying one is corrupt or built against
// a newer engine; the execution aborts.
var ErrUnknownNodeType = errors.New("unknown node type")

type Registry struct {
	logger    *slog.Logger
	factories map[string]protocol.NodeFactory
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:    logger.With("module", "registry"),
		factories: make(map[string]protocol.NodeFactory),
	}
}

func (r *Registry) Register(factory protocol.NodeFactory) {
	r.factories[factory.ID()] = factory
}

// Create validates config against the factory's schema and builds the node.
func (r *Registry) Create(ctx context.Context, nodeType, nodeID string, config map[string]any) (protocol.Node, error) {
	factory, ok := r.factories[nodeType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, nodeType)
	}

	if err := r.validateConfig(factory, nodeID, config); err != nil {
		return nil, err
	}

	return factory.Create(ctx, nodeID, config)
}

// Factories returns the registered factories keyed by node type, for the API
// surface that lists available nodes.
func (r *Registry) Factories() map[string]protocol.NodeFactory {
	out := make(map[string]protocol.NodeFactory, len(r.factories))
	for id, factory := range r.factories {
		out[id] = factory
	}

	return out
}

func (r *Registry) validateConfig(factory protocol.NodeFactory, nodeID string, config map[string]any) error {
	schema := factory.Schema()
	if schema == nil {
		return nil
	}

	if config == nil {
		config = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(config)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate config for node %s: %w", nodeID, err)
	}

	if result.Valid() {
		return nil
	}

	details := make([]string, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		details = append(details, resultErr.String())
	}

	r.logger.Warn("node config rejected", "node_id", nodeID, "type", factory.ID(), "errors", details)

	return protocol.NewConfigError(nodeID, "", strings.Join(details, "; "))
}
