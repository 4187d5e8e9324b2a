package file

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
)

// WorkflowRepository stores one JSON file per workflow under
// <root>/workflows/<id>.json.
type WorkflowRepository struct {
	root  string
	locks *keyedMutex
}

func (wr *WorkflowRepository) dir() string {
	return filepath.Join(wr.root, "workflows")
}

func (wr *WorkflowRepository) path(id string) string {
	return filepath.Join(wr.dir(), fileKey(id)+".json")
}

// List returns all workflows sorted by most recently updated first.
func (wr *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	workflows, err := listDocuments[models.Workflow](wr.dir())
	if err != nil {
		return nil, persistence.NewStoreError("List", "workflow", "", err)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].UpdatedAt.After(workflows[j].UpdatedAt)
	})

	return workflows, nil
}

func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	workflow, err := readDocument[models.Workflow](wr.path(id))
	if os.IsNotExist(err) {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "workflow", id, err)
	}

	return workflow, nil
}

// GetByName finds a workflow by case-insensitive name.
func (wr *WorkflowRepository) GetByName(ctx context.Context, name string) (*models.Workflow, error) {
	workflows, err := wr.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, workflow := range workflows {
		if strings.EqualFold(workflow.Name, name) {
			return workflow, nil
		}
	}

	return nil, persistence.NewStoreError("GetByName", "workflow", name, persistence.ErrWorkflowNotFound)
}

// Save persists the workflow, assigning an ID when absent and enforcing
// case-insensitive name uniqueness.
func (wr *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	lock := wr.locks.get("workflows")
	lock.Lock()
	defer lock.Unlock()

	if workflow.ID == "" {
		workflow.ID = uuid.New().String()
		workflow.CreatedAt = time.Now().UTC()
	}

	existing, err := wr.GetByName(ctx, workflow.Name)
	if err == nil && existing.ID != workflow.ID {
		return persistence.NewStoreError("Save", "workflow", workflow.Name, persistence.ErrWorkflowNameTaken)
	}

	workflow.UpdatedAt = time.Now().UTC()

	if err := writeDocument(wr.path(workflow.ID), workflow); err != nil {
		return persistence.NewStoreError("Save", "workflow", workflow.ID, err)
	}

	return nil
}

func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(wr.path(id))
	if os.IsNotExist(err) {
		return persistence.NewStoreError("Delete", "workflow", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return persistence.NewStoreError("Delete", "workflow", id, err)
	}

	return nil
}
