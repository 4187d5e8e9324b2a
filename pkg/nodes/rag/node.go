// Package rag provides the retrieval node: it selects relevant chunks from a
// knowledge base and generates an answer, falling back to the raw chunk text
// whenever the language model cannot be used.
package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/protocol"
	"github.com/ragline/ragline/pkg/retrieval"
)

// Source values reported on the rag payload.
const (
	SourceRAG        = "rag"
	SourceRAGSkipped = "rag_skipped"
	SourceNoKeywords = "no_keywords"
	SourceNoMatch    = "no_match"
	SourceLLMDirect  = "llm_direct"
)

const (
	providerNone = "none"
	modelDefault = "default"
)

// ErrNoQuestion is returned when the upstream payload carries nothing that
// can be interpreted as a question.
var ErrNoQuestion = errors.New("rag node requires text input from an upstream node")

type Node struct {
	id       string
	kbName   string
	provider string
	model    string
	apiKey   string
	kbs      persistence.KnowledgeBaseRepository
	gateway  *llm.Gateway
}

func NewNode(id string, config map[string]any, kbs persistence.KnowledgeBaseRepository, gateway *llm.Gateway) (*Node, error) {
	name, _ := config["knowledgeBaseName"].(string)
	if strings.TrimSpace(name) == "" {
		return nil, protocol.NewConfigError(id, "knowledgeBaseName", "knowledge base name is required")
	}

	provider, _ := config["aiProvider"].(string)
	model, _ := config["model"].(string)
	apiKey, _ := config["apiKey"].(string)

	return &Node{
		id:       id,
		kbName:   name,
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		kbs:      kbs,
		gateway:  gateway,
	}, nil
}

func (n *Node) ID() string { return n.id }

func (n *Node) Type() string { return string(models.NodeTypeRAG) }

// Execute extracts a question from the incoming payload, retrieves the most
// relevant chunks and produces an answer. Language-model failures never fail
// the execution: the answer degrades to the retrieved chunk text and the
// failure is recorded on LLMStatus for the caller to surface as a warning.
func (n *Node) Execute(ctx context.Context, execCtx *models.ExecutionContext, input models.Payload) (models.Payload, error) {
	question, ok, passthrough := n.extractQuestion(input)
	if passthrough != nil {
		execCtx.Logger.Info("no question in store output, passing through", "node_id", n.id)

		return passthrough, nil
	}

	if !ok {
		return nil, ErrNoQuestion
	}

	kb, err := n.kbs.GetByName(ctx, n.kbName)
	if err != nil {
		if persistence.IsKnowledgeBaseNotFound(err) {
			return nil, fmt.Errorf("knowledge base %q: %w", n.kbName, persistence.ErrKnowledgeBaseNotFound)
		}

		return nil, err
	}

	keywords := retrieval.ExtractKeywords(question)
	if len(keywords) == 0 {
		execCtx.Logger.Info("no meaningful keywords in question", "question", question)

		return models.RAGResult{
			Question:      question,
			Answer:        "Please provide a more specific question with meaningful keywords.",
			Chunks:        []models.RetrievedChunk{},
			Source:        SourceNoKeywords,
			KnowledgeBase: n.kbName,
			LLMStatus:     n.status(false, "No meaningful keywords in question", ""),
		}, nil
	}

	top := retrieval.TopChunks(question, keywords, kb.Chunks)
	execCtx.Logger.Debug("chunk relevance analysis",
		"total_chunks", len(kb.Chunks), "keywords", len(keywords), "relevant", len(top))

	if len(top) == 0 {
		return n.answerWithoutChunks(ctx, execCtx, question), nil
	}

	chunks := make([]models.RetrievedChunk, 0, len(top))
	contents := make([]string, 0, len(top))
	for _, c := range top {
		chunks = append(chunks, models.RetrievedChunk{Content: c.Content, Index: c.ChunkIndex})
		contents = append(contents, c.Content)
	}

	answer, status := n.answerWithChunks(ctx, execCtx, question, contents)

	return models.RAGResult{
		Question:      question,
		Answer:        answer,
		Chunks:        chunks,
		Source:        SourceRAG,
		KnowledgeBase: n.kbName,
		LLMStatus:     status,
	}, nil
}

// extractQuestion pulls a question out of the upstream payload. A store
// result without passthrough text means a pure ingestion pipeline; the node
// skips itself and the store result flows on with an updated source marker.
func (n *Node) extractQuestion(input models.Payload) (question string, ok bool, passthrough models.Payload) {
	switch p := input.(type) {
	case models.InputResult:
		return p.Text, true, nil
	case models.StoreResult:
		if p.Text != "" {
			return p.Text, true, nil
		}

		p.Message = "Documents stored successfully. RAG node skipped - no question provided."
		p.Source = SourceRAGSkipped

		return "", false, p
	}

	return "", false, nil
}

// answerWithoutChunks handles the empty retrieval result: a context-free
// model call when one is configured, otherwise a static not-found answer.
func (n *Node) answerWithoutChunks(ctx context.Context, execCtx *models.ExecutionContext, question string) models.RAGResult {
	result := models.RAGResult{
		Question:      question,
		Chunks:        []models.RetrievedChunk{},
		KnowledgeBase: n.kbName,
	}

	if n.provider == "" || n.apiKey == "" || !n.gateway.ValidateKeyFormat(n.provider, n.apiKey) {
		execCtx.Logger.Info("no relevant chunks and no usable model, returning not found")

		result.Answer = "No relevant information found in the knowledge base for your question."
		result.Source = SourceNoMatch
		result.LLMStatus = n.status(false, "No relevant chunks found and no LLM configured for fallback", "")

		return result
	}

	execCtx.Logger.Info("no relevant chunks, trying direct model answer", "provider", n.provider)

	answer, err := n.gateway.Generate(ctx, n.provider, n.model, n.apiKey, llm.BuildDirectPrompt(question), llm.ModeDirect)
	if err != nil {
		execCtx.Logger.Warn("direct model answer failed", "provider", n.provider, "error", err)

		result.Answer = "No relevant information found in the knowledge base, and direct search is currently unavailable."
		result.Source = SourceNoMatch
		result.LLMStatus = n.status(false, fmt.Sprintf("Direct LLM search failed: %v", err), "")

		return result
	}

	result.Answer = fmt.Sprintf("No relevant information found in the knowledge base.\n\nGeneral answer: %s", answer)
	result.Source = SourceLLMDirect
	result.LLMStatus = n.status(true, "", "direct_search")

	return result
}

// answerWithChunks validates the model configuration step by step and calls
// the gateway when everything checks out. Every failure path keeps the
// retrieved chunk text as the answer body.
func (n *Node) answerWithChunks(ctx context.Context, execCtx *models.ExecutionContext, question string, contents []string) (string, models.LLMStatus) {
	chunkText := strings.Join(contents, "\n\n")

	switch {
	case n.apiKey == "":
		return fmt.Sprintf("Warning: No API key configured. Using fallback response.\n\nBased on the knowledge base:\n\n%s", chunkText),
			n.status(false, "No API key configured", "")
	case n.provider == "":
		return fmt.Sprintf("Warning: No AI provider configured. Using fallback response.\n\nBased on the knowledge base:\n\n%s", chunkText),
			n.status(false, "No AI provider configured", "")
	case !n.gateway.ValidateKeyFormat(n.provider, n.apiKey):
		return fmt.Sprintf("Warning: Invalid API key format for %s. Using fallback response.\n\nBased on the knowledge base:\n\n%s", n.provider, chunkText),
			n.status(false, fmt.Sprintf("Invalid API key format for %s", n.provider), "")
	}

	answer, err := n.gateway.Generate(ctx, n.provider, n.model, n.apiKey, llm.BuildContextPrompt(question, contents), llm.ModeContext)
	if err == nil {
		return answer, n.status(true, "", string(llm.ModeContext))
	}

	execCtx.Logger.Warn("model call failed, using chunk text fallback",
		"provider", n.provider, "error", err)

	status := n.status(false, err.Error(), "")

	perr := llm.AsProviderError(err)
	if perr == nil {
		return fmt.Sprintf("Warning: LLM error: %v\n\nFallback - based on the knowledge base:\n\n%s", err, chunkText), status
	}

	switch perr.Kind {
	case llm.ErrorKindInvalidKeyFormat:
		return fmt.Sprintf("Warning: Invalid API key format for %s. Using fallback response.\n\nBased on the knowledge base:\n\n%s", n.provider, chunkText), status
	case llm.ErrorKindAuth:
		return fmt.Sprintf("Warning: API authentication error: invalid API key.\n\nPlease check your %s API key and try again.\n\nFallback - based on the knowledge base:\n\n%s", n.provider, chunkText), status
	case llm.ErrorKindQuota:
		return fmt.Sprintf("Warning: API quota error: rate limit or quota exceeded.\n\nPlease check your %s account usage.\n\nFallback - based on the knowledge base:\n\n%s", n.provider, chunkText), status
	case llm.ErrorKindNetwork:
		return fmt.Sprintf("Warning: Network error: cannot reach the %s API.\n\nPlease check your internet connection.\n\nFallback - based on the knowledge base:\n\n%s", n.provider, chunkText), status
	default:
		return fmt.Sprintf("Warning: LLM error: %s\n\nFallback - based on the knowledge base:\n\n%s", perr.Message, chunkText), status
	}
}

func (n *Node) status(used bool, errMessage, mode string) models.LLMStatus {
	provider := n.provider
	if provider == "" {
		provider = providerNone
	}

	model := n.model
	if model == "" {
		if n.provider != "" {
			model = n.gateway.DefaultModel(n.provider)
		} else {
			model = modelDefault
		}
	}

	return models.LLMStatus{
		Used:        used,
		Error:       errMessage,
		Provider:    provider,
		Model:       model,
		HasAPIKey:   n.apiKey != "",
		APIKeyValid: n.apiKey != "" && n.gateway.ValidateKeyFormat(n.provider, n.apiKey),
		Mode:        mode,
	}
}

// Factory creates rag nodes bound to storage and the model gateway.
type Factory struct {
	kbs     persistence.KnowledgeBaseRepository
	gateway *llm.Gateway
}

func NewFactory(kbs persistence.KnowledgeBaseRepository, gateway *llm.Gateway) *Factory {
	return &Factory{kbs: kbs, gateway: gateway}
}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config, f.kbs, f.gateway)
}

func (f *Factory) ID() string { return string(models.NodeTypeRAG) }

func (f *Factory) Name() string { return "RAG" }

func (f *Factory) Description() string {
	return "Retrieves relevant chunks from a knowledge base and generates an answer."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []any{"knowledgeBaseName"},
		"properties": map[string]any{
			"knowledgeBaseName": map[string]any{
				"type":        "string",
				"minLength":   1,
				"description": "Name of the knowledge base to search.",
			},
			"aiProvider": map[string]any{
				"type": "string",
				"enum": []any{"openai", "google", "anthropic"},
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Model identifier; the provider default is used when empty.",
			},
			"apiKey": map[string]any{
				"type":        "string",
				"description": "Provider API key; without it answers fall back to chunk text.",
			},
		},
	}
}
