// Package redis provides Redis persistence. Entities are JSON values; name
// lookups go through lowercase name index keys, and appends use WATCH-based
// optimistic transactions so concurrent executions cannot lose updates.
package redis

import (
	"context"
	"log/slog"
	"strings"

	goredis "github.com/redis/go-redis/v9"
	"github.com/ragline/ragline/pkg/persistence"
)

const (
	workflowKeyPrefix     = "ragline:workflow:"
	workflowNamePrefix    = "ragline:workflow:name:"
	workflowSetKey        = "ragline:workflows"
	kbKeyPrefix           = "ragline:kb:"
	kbNamePrefix          = "ragline:kb:name:"
	kbSetKey              = "ragline:kbs"
	conversationKeyPrefix = "ragline:conversation:"
	conversationSetKey    = "ragline:conversations"

	// appendRetries bounds the optimistic retry loop for WATCH transactions.
	appendRetries = 16
)

// Persistence implements persistence.Persistence on Redis.
type Persistence struct {
	client        *goredis.Client
	logger        *slog.Logger
	workflows     *WorkflowRepository
	knowledgeBase *KnowledgeBaseRepository
	conversations *ConversationRepository
}

// NewPersistence connects to Redis using a redis:// URL.
func NewPersistence(ctx context.Context, logger *slog.Logger, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info("Redis persistence initialized", "addr", opts.Addr)

	return &Persistence{
		client:        client,
		logger:        logger,
		workflows:     &WorkflowRepository{client: client},
		knowledgeBase: &KnowledgeBaseRepository{client: client},
		conversations: &ConversationRepository{client: client},
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
	return p.client.Ping(ctx).Err()
}

func (p *Persistence) Close(_ context.Context) error {
	return p.client.Close()
}

func nameKey(prefix, name string) string {
	return prefix + strings.ToLower(name)
}
