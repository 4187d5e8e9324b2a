// Package store provides the ingestion node: it chunks incoming text and
// appends the chunks to a named knowledge base.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/protocol"
	"github.com/ragline/ragline/pkg/retrieval"
)

// SkipReasonQuestionDetected marks ingestions skipped because the input
// looked like a short question rather than document content.
const SkipReasonQuestionDetected = "question_detected"

// shortQuestionLength is the length below which question-shaped input is
// refused for storage. Longer question-shaped text is assumed to be a
// document that merely opens with a question.
const shortQuestionLength = 100

const (
	contentTypeDocument = "document"
	contentTypeQuestion = "question"
)

type Node struct {
	id        string
	kbName    string
	createNew bool
	kbs       persistence.KnowledgeBaseRepository
}

func NewNode(id string, config map[string]any, kbs persistence.KnowledgeBaseRepository) (*Node, error) {
	name, _ := config["knowledgeBaseName"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, protocol.NewConfigError(id, "knowledgeBaseName", "knowledge base name is required")
	}

	createNew, _ := config["createNew"].(bool)

	return &Node{id: id, kbName: name, createNew: createNew, kbs: kbs}, nil
}

func (n *Node) ID() string { return n.id }

func (n *Node) Type() string { return string(models.NodeTypeStore) }

// Execute chunks the incoming text and appends the chunks to the configured
// knowledge base. Short question-shaped input is skipped so questions asked
// through a combined pipeline never pollute the corpus and later match
// themselves during retrieval.
func (n *Node) Execute(ctx context.Context, execCtx *models.ExecutionContext, input models.Payload) (models.Payload, error) {
	text, source, err := textFromPayload(input)
	if err != nil {
		return nil, err
	}

	isQuestion := retrieval.IsQuestion(text)
	if isQuestion && len(strings.TrimSpace(text)) < shortQuestionLength {
		execCtx.Logger.Info("skipping storage of question-shaped input",
			"knowledge_base", n.kbName, "length", len(text))

		return models.StoreResult{
			Success:       true,
			KnowledgeBase: n.kbName,
			ChunksAdded:   0,
			Message:       fmt.Sprintf("Skipped storing question %q to prevent false matches in search", text),
			Text:          text,
			Source:        source,
			Skipped:       true,
			SkipReason:    SkipReasonQuestionDetected,
		}, nil
	}

	if err := n.ensureKnowledgeBase(ctx); err != nil {
		return nil, err
	}

	contents := retrieval.ChunkDefault(text)

	now := time.Now().UTC()
	contentType := contentTypeDocument
	if isQuestion {
		contentType = contentTypeQuestion
	}

	chunks := make([]models.KnowledgeBaseChunk, 0, len(contents))
	for _, content := range contents {
		chunks = append(chunks, models.KnowledgeBaseChunk{
			Content:         content,
			SourceReference: source,
			Metadata: models.ChunkMetadata{
				AddedAt:     now,
				WordCount:   retrieval.WordCount(content),
				ContentType: contentType,
			},
		})
	}

	kb, err := n.kbs.AppendChunks(ctx, n.kbName, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to store chunks in %q: %w", n.kbName, err)
	}

	execCtx.Logger.Info("stored chunks",
		"knowledge_base", kb.Name, "added", len(chunks), "total", len(kb.Chunks))

	return models.StoreResult{
		Success:       true,
		KnowledgeBase: kb.Name,
		ChunksAdded:   len(chunks),
		TotalChunks:   len(kb.Chunks),
		Message:       fmt.Sprintf("Successfully stored %d chunks in %q", len(chunks), kb.Name),
		Text:          text,
		Source:        source,
	}, nil
}

// ensureKnowledgeBase creates the target knowledge base when createNew is set
// and it does not exist yet. Without createNew a missing knowledge base is an
// execution error.
func (n *Node) ensureKnowledgeBase(ctx context.Context) error {
	_, err := n.kbs.GetByName(ctx, n.kbName)
	if err == nil {
		return nil
	}

	if !persistence.IsKnowledgeBaseNotFound(err) {
		return err
	}

	if !n.createNew {
		return fmt.Errorf("knowledge base %q: %w", n.kbName, persistence.ErrKnowledgeBaseNotFound)
	}

	kb := &models.KnowledgeBase{
		ID:          uuid.New().String(),
		Name:        n.kbName,
		Description: "Created from workflow execution",
	}
	if err := n.kbs.Save(ctx, kb); err != nil {
		// A concurrent execution may have created it first.
		if persistence.IsNameTaken(err) {
			return nil
		}

		return fmt.Errorf("failed to create knowledge base %q: %w", n.kbName, err)
	}

	return nil
}

func textFromPayload(input models.Payload) (text, source string, err error) {
	switch p := input.(type) {
	case models.InputResult:
		return p.Text, p.Source, nil
	case models.StoreResult:
		if p.Text != "" {
			return p.Text, p.Source, nil
		}
	}

	return "", "", ErrNoText
}

// ErrNoText is returned when the upstream payload carries no text to store.
var ErrNoText = errors.New("store node requires text input from an upstream node")

// Factory creates store nodes bound to a knowledge base repository.
type Factory struct {
	kbs persistence.KnowledgeBaseRepository
}

func NewFactory(kbs persistence.KnowledgeBaseRepository) *Factory {
	return &Factory{kbs: kbs}
}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config, f.kbs)
}

func (f *Factory) ID() string { return string(models.NodeTypeStore) }

func (f *Factory) Name() string { return "Store" }

func (f *Factory) Description() string {
	return "Chunks incoming text and appends the chunks to a knowledge base."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"knowledgeBaseName"},
		"properties": map[string]any{
			"knowledgeBaseName": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Name of the knowledge base to append to.",
			},
			"createNew": map[string]any{
				"type":        "boolean",
				"description": "Create the knowledge base when it does not exist.",
			},
		},
	}
}
