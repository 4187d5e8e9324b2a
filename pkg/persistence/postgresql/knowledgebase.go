package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
)

// KnowledgeBaseRepository stores knowledge base documents as jsonb rows.
// Chunk appends run in a transaction holding a row lock, so two concurrent
// ingestions into the same knowledge base serialize and indices stay
// monotonic.
type KnowledgeBaseRepository struct {
	pool *pgxpool.Pool
}

func (kr *KnowledgeBaseRepository) List(ctx context.Context) ([]*models.KnowledgeBase, error) {
	rows, err := kr.pool.Query(ctx, `SELECT document FROM knowledge_bases ORDER BY updated_at DESC`)
	if err != nil {
		return nil, persistence.NewStoreError("List", "knowledge_base", "", err)
	}
	defer rows.Close()

	return scanDocuments[models.KnowledgeBase](rows, "List", "knowledge_base")
}

func (kr *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*models.KnowledgeBase, error) {
	return scanDocument[models.KnowledgeBase](
		kr.pool.QueryRow(ctx, `SELECT document FROM knowledge_bases WHERE id = $1`, id),
		"GetByID", "knowledge_base", id, persistence.ErrKnowledgeBaseNotFound)
}

func (kr *KnowledgeBaseRepository) GetByName(ctx context.Context, name string) (*models.KnowledgeBase, error) {
	return scanDocument[models.KnowledgeBase](
		kr.pool.QueryRow(ctx, `SELECT document FROM knowledge_bases WHERE LOWER(name) = LOWER($1)`, name),
		"GetByName", "knowledge_base", name, persistence.ErrKnowledgeBaseNotFound)
}

func (kr *KnowledgeBaseRepository) Save(ctx context.Context, kb *models.KnowledgeBase) error {
	if kb.ID == "" {
		kb.ID = uuid.New().String()
		kb.CreatedAt = time.Now().UTC()
	}

	kb.UpdatedAt = time.Now().UTC()

	document, err := json.Marshal(kb)
	if err != nil {
		return persistence.NewStoreError("Save", "knowledge_base", kb.ID, err)
	}

	_, err = kr.pool.Exec(ctx, `
		INSERT INTO knowledge_bases (id, name, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = $2, document = $3, updated_at = $5`,
		kb.ID, kb.Name, document, kb.CreatedAt, kb.UpdatedAt)
	if isUniqueViolation(err) {
		return persistence.NewStoreError("Save", "knowledge_base", kb.Name, persistence.ErrKnowledgeBaseNameTaken)
	}

	if err != nil {
		return persistence.NewStoreError("Save", "knowledge_base", kb.ID, err)
	}

	return nil
}

func (kr *KnowledgeBaseRepository) AppendChunks(ctx context.Context, name string, chunks []models.KnowledgeBaseChunk) (*models.KnowledgeBase, error) {
	tx, err := kr.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw []byte

	err = tx.QueryRow(ctx,
		`SELECT document FROM knowledge_bases WHERE LOWER(name) = LOWER($1) FOR UPDATE`,
		name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, persistence.ErrKnowledgeBaseNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, err)
	}

	var kb models.KnowledgeBase
	if err := json.Unmarshal(raw, &kb); err != nil {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, err)
	}

	start := kb.NextChunkIndex()
	for i := range chunks {
		chunks[i].ChunkIndex = start + i
	}

	kb.Chunks = append(kb.Chunks, chunks...)
	kb.UpdatedAt = time.Now().UTC()

	document, err := json.Marshal(&kb)
	if err != nil {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, err)
	}

	tag, err := tx.Exec(ctx,
		`UPDATE knowledge_bases SET document = $1, updated_at = $2 WHERE id = $3`,
		document, kb.UpdatedAt, kb.ID)
	if err != nil {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, err)
	}

	if tag.RowsAffected() == 0 {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name,
			fmt.Errorf("document disappeared during append"))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, err)
	}

	return &kb, nil
}

func (kr *KnowledgeBaseRepository) Delete(ctx context.Context, id string) error {
	tag, err := kr.pool.Exec(ctx, `DELETE FROM knowledge_bases WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", "knowledge_base", id, err)
	}

	if tag.RowsAffected() == 0 {
		return persistence.NewStoreError("Delete", "knowledge_base", id, persistence.ErrKnowledgeBaseNotFound)
	}

	return nil
}
