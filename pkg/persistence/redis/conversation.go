package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
)

// ConversationRepository stores each conversation as a JSON value keyed by
// session ID. AppendMessages uses the same WATCH-and-retry pattern as chunk
// appends.
type ConversationRepository struct {
	client *goredis.Client
}

func (cr *ConversationRepository) List(ctx context.Context) ([]*models.Conversation, error) {
	ids, err := cr.client.SMembers(ctx, conversationSetKey).Result()
	if err != nil {
		return nil, persistence.NewStoreError("List", "conversation", "", err)
	}

	conversations := make([]*models.Conversation, 0, len(ids))

	for _, id := range ids {
		conversation, err := cr.GetBySessionID(ctx, id)
		if persistence.IsConversationNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		conversations = append(conversations, conversation)
	}

	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})

	return conversations, nil
}

func (cr *ConversationRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Conversation, error) {
	raw, err := cr.client.Get(ctx, conversationKeyPrefix+sessionID).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewStoreError("GetBySessionID", "conversation", sessionID, persistence.ErrConversationNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetBySessionID", "conversation", sessionID, err)
	}

	var conversation models.Conversation
	if err := json.Unmarshal(raw, &conversation); err != nil {
		return nil, persistence.NewStoreError("GetBySessionID", "conversation", sessionID, err)
	}

	return &conversation, nil
}

func (cr *ConversationRepository) Save(ctx context.Context, conversation *models.Conversation) error {
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = time.Now().UTC()
	}

	conversation.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(conversation)
	if err != nil {
		return persistence.NewStoreError("Save", "conversation", conversation.SessionID, err)
	}

	pipe := cr.client.TxPipeline()
	pipe.Set(ctx, conversationKeyPrefix+conversation.SessionID, raw, 0)
	pipe.SAdd(ctx, conversationSetKey, conversation.SessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Save", "conversation", conversation.SessionID, err)
	}

	return nil
}

func (cr *ConversationRepository) AppendMessages(ctx context.Context, sessionID string, messages []models.ConversationMessage) (*models.Conversation, error) {
	key := conversationKeyPrefix + sessionID

	var updated *models.Conversation

	txf := func(tx *goredis.Tx) error {
		conversation := &models.Conversation{SessionID: sessionID, CreatedAt: time.Now().UTC()}

		raw, err := tx.Get(ctx, key).Bytes()

		switch {
		case errors.Is(err, goredis.Nil):
			// New session.
		case err != nil:
			return err
		default:
			if err := json.Unmarshal(raw, conversation); err != nil {
				return err
			}
		}

		conversation.Append(messages...)
		conversation.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(conversation)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)
			pipe.SAdd(ctx, conversationSetKey, sessionID)

			return nil
		})
		if err != nil {
			return err
		}

		updated = conversation

		return nil
	}

	for range appendRetries {
		err := cr.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, persistence.NewStoreError("AppendMessages", "conversation", sessionID, err)
		}

		return updated, nil
	}

	return nil, persistence.NewStoreError("AppendMessages", "conversation", sessionID,
		fmt.Errorf("append contention not resolved after %d retries", appendRetries))
}

func (cr *ConversationRepository) Delete(ctx context.Context, sessionID string) error {
	pipe := cr.client.TxPipeline()
	pipe.Del(ctx, conversationKeyPrefix+sessionID)
	pipe.SRem(ctx, conversationSetKey, sessionID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Delete", "conversation", sessionID, err)
	}

	return nil
}
