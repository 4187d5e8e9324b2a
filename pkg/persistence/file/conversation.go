package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
)

// ConversationRepository stores one JSON file per session under
// <root>/conversations/<sessionID>.json.
type ConversationRepository struct {
	root  string
	locks *keyedMutex
}

func (cr *ConversationRepository) dir() string {
	return filepath.Join(cr.root, "conversations")
}

func (cr *ConversationRepository) path(sessionID string) string {
	return filepath.Join(cr.dir(), fileKey(sessionID)+".json")
}

func (cr *ConversationRepository) List(_ context.Context) ([]*models.Conversation, error) {
	conversations, err := listDocuments[models.Conversation](cr.dir())
	if err != nil {
		return nil, persistence.NewStoreError("List", "conversation", "", err)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}

func (cr *ConversationRepository) GetBySessionID(_ context.Context, sessionID string) (*models.Conversation, error) {
	conversation, err := readDocument[models.Conversation](cr.path(sessionID))
	if os.IsNotExist(err) {
		return nil, persistence.NewStoreError("GetBySessionID", "conversation", sessionID, persistence.ErrConversationNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetBySessionID", "conversation", sessionID, err)
	}

	return conversation, nil
}

func (cr *ConversationRepository) Save(_ context.Context, conversation *models.Conversation) error {
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = time.Now().UTC()
	}

	conversation.UpdatedAt = time.Now().UTC()

	if err := writeDocument(cr.path(conversation.SessionID), conversation); err != nil {
		return persistence.NewStoreError("Save", "conversation", conversation.SessionID, err)
	}

	return nil
}

// AppendMessages appends under a per-session lock, creating the conversation
// when absent and trimming to the bounded history.
func (cr *ConversationRepository) AppendMessages(ctx context.Context, sessionID string, messages []models.ConversationMessage) (*models.Conversation, error) {
	lock := cr.locks.get("conversation:" + sessionID)
	lock.Lock()
	defer lock.Unlock()

	conversation, err := cr.GetBySessionID(ctx, sessionID)
	if persistence.IsConversationNotFound(err) {
		conversation = &models.Conversation{SessionID: sessionID}
	} else if err != nil {
		return nil, err
	}

	conversation.Append(messages...)

	if err := cr.Save(ctx, conversation); err != nil {
		return nil, err
	}

	return conversation, nil
}

func (cr *ConversationRepository) Delete(_ context.Context, sessionID string) error {
	err := os.Remove(cr.path(sessionID))
	if os.IsNotExist(err) {
		return persistence.NewStoreError("Delete", "conversation", sessionID, persistence.ErrConversationNotFound)
	}

	if err != nil {
		return persistence.NewStoreError("Delete", "conversation", sessionID, err)
	}

	return nil
}
