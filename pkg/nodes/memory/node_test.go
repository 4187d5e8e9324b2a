package memory_test

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/nodes/memory"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/persistence/file"
)

func newRepository(t *testing.T) persistence.ConversationRepository {
	t.Helper()

	return file.NewPersistence(t.TempDir()).Conversations()
}

func newExecContext() *models.ExecutionContext {
	return &models.ExecutionContext{ExecutionID: "exec-test", Logger: slog.Default()}
}

func TestExecute_RecordsExchange(t *testing.T) {
	t.Parallel()

	convs := newRepository(t)

	node, err := memory.NewNode("memory-1", map[string]any{"sessionId": "session-a"}, convs)
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.RAGResult{
		Question: "When does the pipeline run?",
		Answer:   "Every night.",
		Source:   "rag",
	})
	require.NoError(t, err)

	result, ok := payload.(models.MemoryResult)
	require.True(t, ok)
	assert.Equal(t, "session-a", result.SessionID)
	assert.Equal(t, "When does the pipeline run?", result.Question)
	require.Len(t, result.ConversationHistory, 2)
	assert.Equal(t, models.RoleUser, result.ConversationHistory[0].Role)
	assert.Equal(t, "When does the pipeline run?", result.ConversationHistory[0].Content)
	assert.Equal(t, models.RoleAssistant, result.ConversationHistory[1].Role)
	assert.Equal(t, "Every night.", result.ConversationHistory[1].Content)

	conversation, err := convs.GetBySessionID(context.Background(), "session-a")
	require.NoError(t, err)
	assert.Len(t, conversation.Messages, 2)
}

func TestExecute_SessionFromExecution(t *testing.T) {
	t.Parallel()

	node, err := memory.NewNode("memory-1", nil, newRepository(t))
	require.NoError(t, err)

	execCtx := newExecContext()
	execCtx.SessionID = "session-from-request"

	payload, err := node.Execute(context.Background(), execCtx, models.RAGResult{Question: "q", Answer: "a"})
	require.NoError(t, err)

	result, ok := payload.(models.MemoryResult)
	require.True(t, ok)
	assert.Equal(t, "session-from-request", result.SessionID)
}

func TestExecute_GeneratesSessionID(t *testing.T) {
	t.Parallel()

	node, err := memory.NewNode("memory-1", nil, newRepository(t))
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.RAGResult{Question: "q", Answer: "a"})
	require.NoError(t, err)

	result, ok := payload.(models.MemoryResult)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(result.SessionID, "session_"), "got %q", result.SessionID)
}

func TestExecute_StorePassthrough(t *testing.T) {
	t.Parallel()

	node, err := memory.NewNode("memory-1", nil, newRepository(t))
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.StoreResult{
		Success: true,
		Message: "Successfully stored 3 chunks in \"docs\"",
	})
	require.NoError(t, err)

	result, ok := payload.(models.StoreResult)
	require.True(t, ok)
	assert.Equal(t, memory.SourceMemorySkipped, result.Source)
	assert.Equal(t, "Successfully stored 3 chunks in \"docs\" Memory node skipped - no conversation to store.", result.Message)
}

func TestExecute_InputPassthrough(t *testing.T) {
	t.Parallel()

	node, err := memory.NewNode("memory-1", nil, newRepository(t))
	require.NoError(t, err)

	payload, err := node.Execute(context.Background(), newExecContext(), models.InputResult{
		Text:   "plain text",
		Source: "user_input",
	})
	require.NoError(t, err)

	result, ok := payload.(models.InputResult)
	require.True(t, ok)
	assert.Equal(t, "plain text", result.Text)
	assert.Equal(t, memory.SourceMemoryPassthrough, result.Source)
}
