// Package postgresql provides PostgreSQL persistence via pgx. Documents are
// stored as jsonb; chunk and message appends are single atomic statements, so
// concurrent executions cannot lose updates.
package postgresql

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ragline/ragline/pkg/persistence"
)

// Persistence implements persistence.Persistence on PostgreSQL.
type Persistence struct {
	pool          *pgxpool.Pool
	logger        *slog.Logger
	workflows     *WorkflowRepository
	knowledgeBase *KnowledgeBaseRepository
	conversations *ConversationRepository
}

// NewPersistence connects to PostgreSQL and runs the schema migration.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()

		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Info("PostgreSQL persistence initialized")

	return &Persistence{
		pool:          pool,
		logger:        logger,
		workflows:     &WorkflowRepository{pool: pool},
		knowledgeBase: &KnowledgeBaseRepository{pool: pool},
		conversations: &ConversationRepository{pool: pool},
	}, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) KnowledgeBases() persistence.KnowledgeBaseRepository {
	return p.knowledgeBase
}

func (p *Persistence) Conversations() persistence.ConversationRepository {
	return p.conversations
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	p.pool.Close()

	return nil
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS workflows (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    document   JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_workflows_name ON workflows (LOWER(name));

CREATE TABLE IF NOT EXISTS knowledge_bases (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    document   JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_knowledge_bases_name ON knowledge_bases (LOWER(name));

CREATE TABLE IF NOT EXISTS conversations (
    session_id TEXT PRIMARY KEY,
    document   JSONB NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`
