package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
)

// WorkflowRepository stores workflow documents as jsonb rows.
type WorkflowRepository struct {
	pool *pgxpool.Pool
}

func (wr *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	rows, err := wr.pool.Query(ctx, `SELECT document FROM workflows ORDER BY updated_at DESC`)
	if err != nil {
		return nil, persistence.NewStoreError("List", "workflow", "", err)
	}
	defer rows.Close()

	return scanDocuments[models.Workflow](rows, "List", "workflow")
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	return scanDocument[models.Workflow](
		wr.pool.QueryRow(ctx, `SELECT document FROM workflows WHERE id = $1`, id),
		"GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
}

func (wr *WorkflowRepository) GetByName(ctx context.Context, name string) (*models.Workflow, error) {
	return scanDocument[models.Workflow](
		wr.pool.QueryRow(ctx, `SELECT document FROM workflows WHERE LOWER(name) = LOWER($1)`, name),
		"GetByName", "workflow", name, persistence.ErrWorkflowNotFound)
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
		workflow.CreatedAt = time.Now().UTC()
	}

	workflow.UpdatedAt = time.Now().UTC()

	document, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	_, err = wr.pool.Exec(ctx, `
		INSERT INTO workflows (id, name, document, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET name = $2, document = $3, updated_at = $5`,
		workflow.ID, workflow.Name, document, workflow.CreatedAt, workflow.UpdatedAt)
	if isUniqueViolation(err) {
		return persistence.NewStoreError("Save", "workflow", workflow.Name, persistence.ErrWorkflowNameTaken)
	}

	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	tag, err := wr.pool.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return persistence.NewStoreError("Delete", "workflow", id, err)
	}

	if tag.RowsAffected() == 0 {
		return persistence.NewStoreError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	return nil
}

func scanDocument[T any](row pgx.Row, op, entity, key string, notFound error) (*T, error) {
	var raw []byte

	err := row.Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, persistence.NewStoreError(op, entity, key, notFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError(op, entity, key, err)
	}

	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, persistence.NewStoreError(op, entity, key, err)
	}

	return &doc, nil
}

func scanDocuments[T any](rows pgx.Rows, op, entity string) ([]*T, error) {
	docs := make([]*T, 0)

	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, persistence.NewStoreError(op, entity, "", err)
		}

		var doc T
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, persistence.NewStoreError(op, entity, "", err)
		}

		docs = append(docs, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, persistence.NewStoreError(op, entity, "", err)
	}

	return docs, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
