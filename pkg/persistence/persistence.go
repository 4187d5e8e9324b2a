// Package persistence provides the data storage abstraction for workflows,
// knowledge bases and conversations.
package persistence

import (
	"context"

	"github.com/ragline/ragline/pkg/models"
)

// WorkflowRepository stores workflow definitions. Name lookups are
// case-insensitive; name uniqueness is enforced at save time.
type WorkflowRepository interface {
	List(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	GetByName(ctx context.Context, name string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error
}

// KnowledgeBaseRepository stores knowledge bases. AppendChunks is the only
// write path for chunks: it assigns monotonically continued chunk indices and
// must serialize concurrent appends to the same knowledge base so indices are
// never reused.
type KnowledgeBaseRepository interface {
	List(ctx context.Context) ([]*models.KnowledgeBase, error)
	GetByID(ctx context.Context, id string) (*models.KnowledgeBase, error)
	GetByName(ctx context.Context, name string) (*models.KnowledgeBase, error)
	Save(ctx context.Context, kb *models.KnowledgeBase) error
	Delete(ctx context.Context, id string) error

	// AppendChunks appends contents as new chunks of the named knowledge base
	// and returns the updated document. Chunk indices continue from the
	// current count.
	AppendChunks(ctx context.Context, name string, chunks []models.KnowledgeBaseChunk) (*models.KnowledgeBase, error)
}

// ConversationRepository stores per-session conversation history.
// AppendMessages must serialize concurrent appends per session and trims the
// history to models.MaxConversationMessages.
type ConversationRepository interface {
	List(ctx context.Context) ([]*models.Conversation, error)
	GetBySessionID(ctx context.Context, sessionID string) (*models.Conversation, error)
	Save(ctx context.Context, conversation *models.Conversation) error
	Delete(ctx context.Context, sessionID string) error

	// AppendMessages appends messages to the session's conversation, creating
	// it when absent, and returns the updated, trimmed conversation.
	AppendMessages(ctx context.Context, sessionID string, messages []models.ConversationMessage) (*models.Conversation, error)
}

// Persistence bundles the repositories behind one backend.
type Persistence interface {
	Workflows() WorkflowRepository
	KnowledgeBases() KnowledgeBaseRepository
	Conversations() ConversationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
