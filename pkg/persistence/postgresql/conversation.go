package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
)

// ConversationRepository stores conversation documents as jsonb rows keyed by
// session. Message appends hold a row lock for the read-modify-write cycle.
type ConversationRepository struct {
	pool *pgxpool.Pool
}

func (cr *ConversationRepository) List(ctx context.Context) ([]*models.Conversation, error) {
	rows, err := cr.pool.Query(ctx, `SELECT document FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, persistence.NewStoreError("List", "conversation", "", err)
	}
	defer rows.Close()

	return scanDocuments[models.Conversation](rows, "List", "conversation")
}

func (cr *ConversationRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Conversation, error) {
	return scanDocument[models.Conversation](
		cr.pool.QueryRow(ctx, `SELECT document FROM conversations WHERE session_id = $1`, sessionID),
		"GetBySessionID", "conversation", sessionID, persistence.ErrConversationNotFound)
}

func (cr *ConversationRepository) Save(ctx context.Context, conversation *models.Conversation) error {
	if conversation.CreatedAt.IsZero() {
		conversation.CreatedAt = time.Now().UTC()
	}

	conversation.UpdatedAt = time.Now().UTC()

	document, err := json.Marshal(conversation)
	if err != nil {
		return persistence.NewStoreError("Save", "conversation", conversation.SessionID, err)
	}

	_, err = cr.pool.Exec(ctx, `
		INSERT INTO conversations (session_id, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET document = $2, updated_at = $4`,
		conversation.SessionID, document, conversation.CreatedAt, conversation.UpdatedAt)
	if err != nil {
		return persistence.NewStoreError("Save", "conversation", conversation.SessionID, err)
	}

	return nil
}

func (cr *ConversationRepository) AppendMessages(ctx context.Context, sessionID string, messages []models.ConversationMessage) (*models.Conversation, error) {
	tx, err := cr.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, persistence.NewStoreError("AppendMessages", "conversation", sessionID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	conversation := &models.Conversation{SessionID: sessionID, CreatedAt: time.Now().UTC()}

	var raw []byte

	err = tx.QueryRow(ctx,
		`SELECT document FROM conversations WHERE session_id = $1 FOR UPDATE`,
		sessionID).Scan(&raw)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// New session; the insert below creates it.
	case err != nil:
		return nil, persistence.NewStoreError("AppendMessages", "conversation", sessionID, err)
	default:
		if err := json.Unmarshal(raw, conversation); err != nil {
			return nil, persistence.NewStoreError("AppendMessages", "conversation", sessionID, err)
		}
	}

	conversation.Append(messages...)
	conversation.UpdatedAt = time.Now().UTC()

	document, err := json.Marshal(conversation)
	if err != nil {
		return nil, persistence.NewStoreError("AppendMessages", "conversation", sessionID, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO conversations (session_id, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET document = $2, updated_at = $4`,
		sessionID, document, conversation.CreatedAt, conversation.UpdatedAt)
	if err != nil {
		return nil, persistence.NewStoreError("AppendMessages", "conversation", sessionID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence.NewStoreError("AppendMessages", "conversation", sessionID, err)
	}

	return conversation, nil
}

func (cr *ConversationRepository) Delete(ctx context.Context, sessionID string) error {
	tag, err := cr.pool.Exec(ctx, `DELETE FROM conversations WHERE session_id = $1`, sessionID)
	if err != nil {
		return persistence.NewStoreError("Delete", "conversation", sessionID, err)
	}

	if tag.RowsAffected() == 0 {
		return persistence.NewStoreError("Delete", "conversation", sessionID, persistence.ErrConversationNotFound)
	}

	return nil
}
