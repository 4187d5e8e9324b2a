// Package output provides the terminal node: it renders the final payload
// into one of four caller-facing formats without touching storage.
package output

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/protocol"
)

const workflowStepFinal = "final_output"

type Node struct {
	id              string
	format          Format
	includeMetadata bool
	title           string
}

func NewNode(id string, config map[string]any) (*Node, error) {
	format := FormatDetailed
	if raw, _ := config["format"].(string); raw != "" {
		format = Format(raw)
		if !ValidFormat(format) {
			return nil, protocol.NewConfigError(id, "format",
				"must be one of detailed, summary, json, text")
		}
	}

	includeMetadata := true
	if raw, ok := config["includeMetadata"].(bool); ok {
		includeMetadata = raw
	}

	title, _ := config["title"].(string)

	return &Node{id: id, format: format, includeMetadata: includeMetadata, title: title}, nil
}

func (n *Node) ID() string { return n.id }

func (n *Node) Type() string { return string(models.NodeTypeOutput) }

// Execute wraps the incoming payload in the output envelope: the untouched
// payload plus a rendered view of it. Formatting is pure; nothing is
// persisted.
func (n *Node) Execute(_ context.Context, execCtx *models.ExecutionContext, input models.Payload) (models.Payload, error) {
	if input == nil {
		return nil, protocol.NewConfigError(n.id, "", "output node did not receive any data")
	}

	now := time.Now().UTC()

	var formatted any
	switch n.format {
	case FormatSummary:
		formatted = formatSummary(input, now)
	case FormatJSON:
		formatted = formatJSON(input)
	case FormatText:
		formatted = formatText(input, n.title, now)
	default:
		formatted = formatDetailed(input, now)
	}

	result := models.OutputResult{
		Type:      "output",
		Format:    string(n.format),
		Data:      input,
		Formatted: formatted,
	}

	if n.includeMetadata {
		result.Metadata = &models.OutputMetadata{
			ProcessedAt:  now,
			NodeID:       n.id,
			WorkflowStep: workflowStepFinal,
			DataSize:     payloadSize(input),
		}
	}

	execCtx.Logger.Debug("output rendered", "format", n.format, "bytes", payloadSize(input))

	return result, nil
}

// payloadSize measures the payload as serialized JSON.
func payloadSize(p models.Payload) int {
	raw, err := json.Marshal(p)
	if err != nil {
		return 0
	}

	return len(raw)
}

// Factory creates output nodes.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config)
}

func (f *Factory) ID() string { return string(models.NodeTypeOutput) }

func (f *Factory) Name() string { return "Output" }

func (f *Factory) Description() string {
	return "Renders the final pipeline payload into a caller-facing format."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"format": map[string]any{
				"type":    "string",
				"enum":    []any{"detailed", "summary", "json", "text"},
				"default": "detailed",
			},
			"includeMetadata": map[string]any{
				"type":    "boolean",
				"default": true,
			},
			"title": map[string]any{
				"type":        "string",
				"description": "Optional heading for the text format.",
			},
		},
	}
}
