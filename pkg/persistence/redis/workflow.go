package redis

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
)

// WorkflowRepository stores each workflow as a JSON value keyed by ID, with a
// lowercase name index for case-insensitive lookups.
type WorkflowRepository struct {
	client *goredis.Client
}

func (wr *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	ids, err := wr.client.SMembers(ctx, workflowSetKey).Result()
	if err != nil {
		return nil, persistence.NewStoreError("List", "workflow", "", err)
	}

	workflows := make([]*models.Workflow, 0, len(ids))

	for _, id := range ids {
		workflow, err := wr.GetByID(ctx, id)
		if persistence.IsWorkflowNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].UpdatedAt.After(workflows[j].UpdatedAt)
	})

	return workflows, nil
}

func (wr *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	raw, err := wr.client.Get(ctx, workflowKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(raw, &workflow); err != nil {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	return &workflow, nil
}

func (wr *WorkflowRepository) GetByName(ctx context.Context, name string) (*models.Workflow, error) {
	id, err := wr.client.Get(ctx, nameKey(workflowNamePrefix, name)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewStoreError("GetByName", "workflow", name, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByName", "workflow", name, err)
	}

	return wr.GetByID(ctx, id)
}

func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
		workflow.CreatedAt = time.Now().UTC()
	}

	existingID, err := wr.client.Get(ctx, nameKey(workflowNamePrefix, workflow.Name)).Result()
	if err == nil && existingID != workflow.ID {
		return persistence.NewStoreError("Save", "workflow", workflow.Name, persistence.ErrWorkflowNameTaken)
	}

	workflow.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(workflow)
	if err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	pipe := wr.client.TxPipeline()
	pipe.Set(ctx, workflowKeyPrefix+workflow.ID, raw, 0)
	pipe.Set(ctx, nameKey(workflowNamePrefix, workflow.Name), workflow.ID, 0)
	pipe.SAdd(ctx, workflowSetKey, workflow.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(ctx context.Context, id string) error {
	workflow, err := wr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := wr.client.TxPipeline()
	pipe.Del(ctx, workflowKeyPrefix+id)
	pipe.Del(ctx, nameKey(workflowNamePrefix, workflow.Name))
	pipe.SRem(ctx, workflowSetKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Delete", "workflow", id, err)
	}

	return nil
}
