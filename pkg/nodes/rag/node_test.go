package rag_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/llm"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/nodes/rag"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/persistence/file"
	"github.com/ragline/ragline/pkg/protocol"
)

func newRepository(t *testing.T) persistence.KnowledgeBaseRepository {
	t.Helper()

	return file.NewPersistence(t.TempDir()).KnowledgeBases()
}

func newGateway() *llm.Gateway {
	return llm.NewGateway(slog.Default(), 0)
}

func newExecContext() *models.ExecutionContext {
	return &models.ExecutionContext{ExecutionID: "exec-test", Logger: slog.Default()}
}

func seedChunks(t *testing.T, kbs persistence.KnowledgeBaseRepository, name string, contents ...string) {
	t.Helper()

	ctx := context.Background()
	require.NoError(t, kbs.Save(ctx, &models.KnowledgeBase{Name: name}))

	chunks := make([]models.KnowledgeBaseChunk, 0, len(contents))
	for _, content := range contents {
		chunks = append(chunks, models.KnowledgeBaseChunk{Content: content})
	}

	_, err := kbs.AppendChunks(ctx, name, chunks)
	require.NoError(t, err)
}

func TestNewNode_RequiresKnowledgeBaseName(t *testing.T) {
	t.Parallel()

	_, err := rag.NewNode("rag-1", map[string]any{}, newRepository(t), newGateway())
	require.Error(t, err)

	var configErr *protocol.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "knowledgeBaseName", configErr.Field)
}

func TestExecute_IngestionPassthrough(t *testing.T) {
	t.Parallel()

	node, err := rag.NewNode("rag-1", map[string]any{"knowledgeBaseName": "docs"}, newRepository(t), newGateway())
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.StoreResult{
		Success:       true,
		KnowledgeBase: "docs",
		ChunksAdded:   2,
	})
	require.NoError(t, err)

	result, ok := payload.(models.StoreResult)
	require.True(t, ok)
	assert.Equal(t, rag.SourceRAGSkipped, result.Source)
	assert.Equal(t, "Documents stored successfully. RAG node skipped - no question provided.", result.Message)
	assert.Equal(t, 2, result.ChunksAdded)
}

func TestExecute_NoQuestionPayload(t *testing.T) {
	t.Parallel()

	node, err := rag.NewNode("rag-1", map[string]any{"knowledgeBaseName": "docs"}, newRepository(t), newGateway())
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), newExecContext(), models.RAGResult{})
	require.ErrorIs(t, err, rag.ErrNoQuestion)
}

func TestExecute_MissingKnowledgeBase(t *testing.T) {
	t.Parallel()

	node, err := rag.NewNode("rag-1", map[string]any{"knowledgeBaseName": "missing"}, newRepository(t), newGateway())
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), newExecContext(), models.InputResult{
		Text: "Where is the configuration stored?",
	})
	require.Error(t, err)
	assert.True(t, persistence.IsKnowledgeBaseNotFound(err))
}

func TestExecute_NoKeywords(t *testing.T) {
	t.Parallel()

	kbs := newRepository(t)
	seedChunks(t, kbs, "docs", "The deployment pipeline runs every night.")

	node, err := rag.NewNode("rag-1", map[string]any{"knowledgeBaseName": "docs"}, kbs, newGateway())
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.InputResult{
		Text: "What is the?",
	})
	require.NoError(t, err)

	result, ok := payload.(models.RAGResult)
	require.True(t, ok)
	assert.Equal(t, rag.SourceNoKeywords, result.Source)
	assert.Equal(t, "Please provide a more specific question with meaningful keywords.", result.Answer)
	assert.Empty(t, result.Chunks)
	assert.False(t, result.LLMStatus.Used)
}

func TestExecute_NoMatchWithoutModel(t *testing.T) {
	t.Parallel()

	kbs := newRepository(t)
	seedChunks(t, kbs, "docs", "The deployment pipeline runs every night on the staging cluster.")

	node, err := rag.NewNode("rag-1", map[string]any{"knowledgeBaseName": "docs"}, kbs, newGateway())
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.InputResult{
		Text: "Where does the elephant sleep tonight?",
	})
	require.NoError(t, err)

	result, ok := payload.(models.RAGResult)
	require.True(t, ok)
	assert.Equal(t, rag.SourceNoMatch, result.Source)
	assert.Equal(t, "No relevant information found in the knowledge base for your question.", result.Answer)
	assert.False(t, result.LLMStatus.Used)
	assert.Equal(t, "none", result.LLMStatus.Provider)
	assert.Equal(t, "default", result.LLMStatus.Model)
}

func TestExecute_ChunkFallbackWithoutAPIKey(t *testing.T) {
	t.Parallel()

	kbs := newRepository(t)
	seedChunks(t, kbs, "docs",
		"The deployment pipeline runs every night on the staging cluster.",
		"Weekend deployments are frozen unless an incident is open.")

	node, err := rag.NewNode("rag-1", map[string]any{"knowledgeBaseName": "docs"}, kbs, newGateway())
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.InputResult{
		Text: "When does the deployment pipeline run?",
	})
	require.NoError(t, err)

	result, ok := payload.(models.RAGResult)
	require.True(t, ok)
	assert.Equal(t, rag.SourceRAG, result.Source)
	assert.NotEmpty(t, result.Chunks)
	assert.Contains(t, result.Answer, "Warning: No API key configured.")
	assert.Contains(t, result.Answer, "The deployment pipeline runs every night on the staging cluster.")
	assert.False(t, result.LLMStatus.Used)
	assert.Equal(t, "No API key configured", result.LLMStatus.Error)
	assert.False(t, result.LLMStatus.HasAPIKey)
}

func TestExecute_ChunkFallbackWithInvalidKeyFormat(t *testing.T) {
	t.Parallel()

	kbs := newRepository(t)
	seedChunks(t, kbs, "docs", "The deployment pipeline runs every night on the staging cluster.")

	node, err := rag.NewNode("rag-1", map[string]any{
		"knowledgeBaseName": "docs",
		"aiProvider":        "openai",
		"apiKey":            "not-a-real-key",
	}, kbs, newGateway())
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.InputResult{
		Text: "When does the deployment pipeline run?",
	})
	require.NoError(t, err)

	result, ok := payload.(models.RAGResult)
	require.True(t, ok)
	assert.Equal(t, rag.SourceRAG, result.Source)
	assert.Contains(t, result.Answer, "Warning: Invalid API key format for openai.")
	assert.Contains(t, result.Answer, "The deployment pipeline runs every night on the staging cluster.")
	assert.False(t, result.LLMStatus.Used)
	assert.True(t, result.LLMStatus.HasAPIKey)
	assert.False(t, result.LLMStatus.APIKeyValid)
	assert.Equal(t, "gpt-3.5-turbo", result.LLMStatus.Model)
}
