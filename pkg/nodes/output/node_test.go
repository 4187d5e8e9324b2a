package output_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/nodes/output"
	"github.com/ragline/ragline/pkg/protocol"
)

func newExecContext() *models.ExecutionContext {
	return &models.ExecutionContext{ExecutionID: "exec-test", Logger: slog.Default()}
}

func queryPayload() models.MemoryResult {
	return models.MemoryResult{
		RAGResult: models.RAGResult{
			Question: "When does the pipeline run?",
			Answer:   "Every night at midnight.",
			Chunks: []models.RetrievedChunk{
				{Content: "The deployment pipeline runs every night on the staging cluster.", Index: 0},
			},
			Source: "rag",
		},
		SessionID: "session-a",
		ConversationHistory: []models.ConversationMessage{
			{Role: models.RoleUser, Content: "When does the pipeline run?"},
			{Role: models.RoleAssistant, Content: "Every night at midnight."},
		},
	}
}

func ingestionPayload() models.StoreResult {
	return models.StoreResult{
		Success:       true,
		KnowledgeBase: "docs",
		ChunksAdded:   2,
		TotalChunks:   5,
		Message:       `Successfully stored 2 chunks in "docs"`,
	}
}

func TestNewNode_RejectsUnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := output.NewNode("output-1", map[string]any{"format": "yaml"})
	require.Error(t, err)

	var configErr *protocol.ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "format", configErr.Field)
}

func TestExecute_NilInput(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", nil)
	require.NoError(t, err)

	_, err = node.Execute(context.Background(), newExecContext(), nil)
	require.Error(t, err)
}

func TestExecute_DetailedQuery(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", nil)
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), queryPayload())
	require.NoError(t, err)

	result, ok := payload.(models.OutputResult)
	require.True(t, ok)
	assert.Equal(t, "output", result.Type)
	assert.Equal(t, "detailed", result.Format)

	formatted, ok := result.Formatted.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Query Result", formatted["type"])
	assert.Equal(t, "When does the pipeline run?", formatted["question"])
	assert.Equal(t, "Every night at midnight.", formatted["answer"])
	assert.Equal(t, "session-a", formatted["sessionId"])
	assert.Equal(t, 2, formatted["conversationLength"])

	previews, ok := formatted["sourceChunks"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, previews, 1)
	preview, ok := previews[0]["content"].(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(preview, "..."))

	questions, ok := formatted["previousQuestions"].([]string)
	require.True(t, ok)
	require.Len(t, questions, 1)

	require.NotNil(t, result.Metadata)
	assert.Equal(t, "output-1", result.Metadata.NodeID)
	assert.Equal(t, "final_output", result.Metadata.WorkflowStep)
	assert.Positive(t, result.Metadata.DataSize)
}

func TestExecute_DetailedIngestion(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", map[string]any{"format": "detailed"})
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), ingestionPayload())
	require.NoError(t, err)

	result := payload.(models.OutputResult)
	formatted, ok := result.Formatted.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ingestion Result", formatted["type"])
	assert.Equal(t, "docs", formatted["knowledgeBase"])
	assert.Equal(t, 2, formatted["chunksAdded"])
	assert.Equal(t, 5, formatted["totalChunks"])
}

func TestExecute_Summary(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", map[string]any{"format": "summary"})
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), queryPayload())
	require.NoError(t, err)

	result := payload.(models.OutputResult)
	assert.Equal(t, "summary", result.Format)

	formatted, ok := result.Formatted.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Query Result", formatted["type"])
	assert.Equal(t, "When does the pipeline run?", formatted["question"])
	assert.Equal(t, true, formatted["hasConversationHistory"])
	assert.Equal(t, 1, formatted["sourceChunksCount"])
}

func TestExecute_SummaryIngestion(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", map[string]any{"format": "summary"})
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), ingestionPayload())
	require.NoError(t, err)

	formatted, ok := payload.(models.OutputResult).Formatted.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Ingestion Complete", formatted["type"])
	assert.Equal(t, "Success", formatted["status"])
}

func TestExecute_JSONDropsHistory(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", map[string]any{"format": "json"})
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), queryPayload())
	require.NoError(t, err)

	result := payload.(models.OutputResult)

	formatted, ok := result.Formatted.(models.MemoryResult)
	require.True(t, ok)
	assert.Nil(t, formatted.ConversationHistory)
	assert.Equal(t, "session-a", formatted.SessionID)

	// Data keeps the untouched payload.
	original, ok := result.Data.(models.MemoryResult)
	require.True(t, ok)
	assert.Len(t, original.ConversationHistory, 2)
}

func TestExecute_TextWithTitle(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", map[string]any{
		"format": "text",
		"title":  "Pipeline Report",
	})
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), queryPayload())
	require.NoError(t, err)

	formatted, ok := payload.(models.OutputResult).Formatted.(map[string]any)
	require.True(t, ok)

	text, ok := formatted["text"].(string)
	require.True(t, ok)
	assert.Contains(t, text, "Pipeline Report\n"+strings.Repeat("=", len("Pipeline Report")))
	assert.Contains(t, text, "QUESTION:\nWhen does the pipeline run?")
	assert.Contains(t, text, "ANSWER:\nEvery night at midnight.")
	assert.Contains(t, text, "Session ID: session-a")
	assert.Contains(t, text, "Retrieved 1 relevant chunks")
	assert.Contains(t, text, "Processed at: ")
}

func TestExecute_TextIngestion(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", map[string]any{"format": "text"})
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), ingestionPayload())
	require.NoError(t, err)

	formatted := payload.(models.OutputResult).Formatted.(map[string]any)
	text := formatted["text"].(string)
	assert.Contains(t, text, "DOCUMENT INGESTION COMPLETE")
	assert.Contains(t, text, "Knowledge Base: docs")
	assert.Contains(t, text, "Chunks Added: 2")
}

func TestExecute_WithoutMetadata(t *testing.T) {
	t.Parallel()

	node, err := output.NewNode("output-1", map[string]any{"includeMetadata": false})
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), queryPayload())
	require.NoError(t, err)

	assert.Nil(t, payload.(models.OutputResult).Metadata)
}
