package file_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/persistence/file"
)

func newTestPersistence(t *testing.T) *file.Persistence {
	t.Helper()

	return file.NewPersistence(t.TempDir())
}

func TestWorkflowRepository_SaveAssignsID(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	ctx := context.Background()

	wf := &models.Workflow{Name: "my pipeline"}
	require.NoError(t, p.Workflows().Save(ctx, wf))

	assert.NotEmpty(t, wf.ID)
	assert.False(t, wf.CreatedAt.IsZero())
	assert.False(t, wf.UpdatedAt.IsZero())

	loaded, err := p.Workflows().GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "my pipeline", loaded.Name)
}

func TestWorkflowRepository_GetByIDNotFound(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)

	_, err := p.Workflows().GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestWorkflowRepository_NameUniquenessIsCaseInsensitive(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.Workflows().Save(ctx, &models.Workflow{Name: "Pipeline"}))

	err := p.Workflows().Save(ctx, &models.Workflow{Name: "pipeline"})
	require.Error(t, err)
	assert.True(t, persistence.IsNameTaken(err))
}

func TestWorkflowRepository_ResaveKeepsName(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	ctx := context.Background()

	wf := &models.Workflow{Name: "Pipeline"}
	require.NoError(t, p.Workflows().Save(ctx, wf))

	wf.Description = "updated"
	require.NoError(t, p.Workflows().Save(ctx, wf))

	loaded, err := p.Workflows().GetByID(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated", loaded.Description)
}

func TestWorkflowRepository_GetByNameCaseInsensitive(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.Workflows().Save(ctx, &models.Workflow{Name: "My Docs"}))

	wf, err := p.Workflows().GetByName(ctx, "my docs")
	require.NoError(t, err)
	assert.Equal(t, "My Docs", wf.Name)
}

func TestWorkflowRepository_Delete(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	ctx := context.Background()

	wf := &models.Workflow{Name: "to delete"}
	require.NoError(t, p.Workflows().Save(ctx, wf))
	require.NoError(t, p.Workflows().Delete(ctx, wf.ID))

	_, err := p.Workflows().GetByID(ctx, wf.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = p.Workflows().Delete(ctx, wf.ID)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestKnowledgeBaseRepository_AppendChunksContinuesIndices(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	ctx := context.Background()

	kb := &models.KnowledgeBase{Name: "docs"}
	require.NoError(t, p.KnowledgeBases().Save(ctx, kb))

	first, err := p.KnowledgeBases().AppendChunks(ctx, "docs", []models.KnowledgeBaseChunk{
		{Content: "chunk one"},
		{Content: "chunk two"},
	})
	require.NoError(t, err)
	require.Len(t, first.Chunks, 2)
	assert.Equal(t, 0, first.Chunks[0].ChunkIndex)
	assert.Equal(t, 1, first.Chunks[1].ChunkIndex)

	second, err := p.KnowledgeBases().AppendChunks(ctx, "docs", []models.KnowledgeBaseChunk{
		{Content: "chunk three"},
	})
	require.NoError(t, err)
	require.Len(t, second.Chunks, 3)
	assert.Equal(t, 2, second.Chunks[2].ChunkIndex)
}

func TestKnowledgeBaseRepository_AppendChunksUnknownName(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)

	_, err := p.KnowledgeBases().AppendChunks(context.Background(), "missing", []models.KnowledgeBaseChunk{
		{Content: "chunk"},
	})
	require.Error(t, err)
	assert.True(t, persistence.IsKnowledgeBaseNotFound(err))
}

func TestKnowledgeBaseRepository_ConcurrentAppendsNeverReuseIndices(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	ctx := context.Background()

	require.NoError(t, p.KnowledgeBases().Save(ctx, &models.KnowledgeBase{Name: "docs"}))

	const writers = 8

	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()

			_, err := p.KnowledgeBases().AppendChunks(ctx, "docs", []models.KnowledgeBaseChunk{
				{Content: fmt.Sprintf("chunk from writer %d", n)},
			})
			assert.NoError(t, err)
		}(i)
	}

	wg.Wait()

	kb, err := p.KnowledgeBases().GetByName(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, kb.Chunks, writers)

	seen := make(map[int]bool, writers)
	for _, chunk := range kb.Chunks {
		assert.False(t, seen[chunk.ChunkIndex], "chunk index %d reused", chunk.ChunkIndex)
		seen[chunk.ChunkIndex] = true
	}
}

func TestConversationRepository_AppendMessagesCreatesAndTrims(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)
	ctx := context.Background()

	for i := 0; i < 15; i++ {
		_, err := p.Conversations().AppendMessages(ctx, "session-1", []models.ConversationMessage{
			{Role: models.RoleUser, Content: fmt.Sprintf("q%d", i), Timestamp: time.Now().UTC()},
			{Role: models.RoleAssistant, Content: fmt.Sprintf("a%d", i), Timestamp: time.Now().UTC()},
		})
		require.NoError(t, err)
	}

	conversation, err := p.Conversations().GetBySessionID(ctx, "session-1")
	require.NoError(t, err)
	require.Len(t, conversation.Messages, models.MaxConversationMessages)
	assert.Equal(t, "q5", conversation.Messages[0].Content)
	assert.Equal(t, "a14", conversation.Messages[19].Content)
}

func TestConversationRepository_DeleteNotFound(t *testing.T) {
	t.Parallel()

	p := newTestPersistence(t)

	err := p.Conversations().Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, persistence.IsConversationNotFound(err))
}
