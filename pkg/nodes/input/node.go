// Package input provides the pipeline entry node: it turns pasted text or an
// uploaded file into the initial payload.
package input

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/protocol"
)

// SourceUserInput marks payloads that came from pasted text rather than a file.
const SourceUserInput = "user_input"

// ErrMissingInput is returned when neither text nor a file was supplied.
var ErrMissingInput = errors.New("input node requires either text or file")

type Node struct {
	id string
}

func NewNode(id string, _ map[string]any) (*Node, error) {
	return &Node{id: id}, nil
}

func (n *Node) ID() string { return n.id }

func (n *Node) Type() string { return string(models.NodeTypeInput) }

// Execute reads the uploaded file when present (the file takes precedence
// over pasted text), otherwise uses the pasted text. The temporary upload is
// deleted after reading, whether or not the read succeeded.
func (n *Node) Execute(_ context.Context, execCtx *models.ExecutionContext, _ models.Payload) (models.Payload, error) {
	if execCtx.File != nil {
		content, err := os.ReadFile(execCtx.File.Path)

		if removeErr := os.Remove(execCtx.File.Path); removeErr != nil && !os.IsNotExist(removeErr) {
			execCtx.Logger.Warn("failed to remove uploaded file",
				"path", execCtx.File.Path, "error", removeErr)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to process file %s: %w", execCtx.File.OriginalName, err)
		}

		execCtx.Logger.Debug("file processed", "name", execCtx.File.OriginalName, "bytes", len(content))

		return models.InputResult{Text: string(content), Source: execCtx.File.OriginalName}, nil
	}

	if execCtx.InputText != "" {
		return models.InputResult{Text: execCtx.InputText, Source: SourceUserInput}, nil
	}

	return nil, ErrMissingInput
}

// Factory creates input nodes.
type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config)
}

func (f *Factory) ID() string { return string(models.NodeTypeInput) }

func (f *Factory) Name() string { return "Input" }

func (f *Factory) Description() string {
	return "Accepts pasted text or an uploaded text file and starts the pipeline."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
