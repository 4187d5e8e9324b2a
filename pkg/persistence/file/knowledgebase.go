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

// KnowledgeBaseRepository stores one JSON file per knowledge base under
// <root>/knowledge_bases/<id>.json. Appends take a per-name lock so
// concurrent ingestions never reuse a chunk index.
type KnowledgeBaseRepository struct {
	root  string
	locks *keyedMutex
}

func (kr *KnowledgeBaseRepository) dir() string {
	return filepath.Join(kr.root, "knowledge_bases")
}

func (kr *KnowledgeBaseRepository) path(id string) string {
	return filepath.Join(kr.dir(), fileKey(id)+".json")
}

func (kr *KnowledgeBaseRepository) List(_ context.Context) ([]*models.KnowledgeBase, error) {
	kbs, err := listDocuments[models.KnowledgeBase](kr.dir())
	if err != nil {
		return nil, persistence.NewStoreError("List", "knowledge_base", "", err)
	}

	sort.Slice(kbs, func(i, j int) bool {
		return kbs[i].UpdatedAt.After(kbs[j].UpdatedAt)
	})

	return kbs, nil
}

func (kr *KnowledgeBaseRepository) GetByID(_ context.Context, id string) (*models.KnowledgeBase, error) {
	kb, err := readDocument[models.KnowledgeBase](kr.path(id))
	if os.IsNotExist(err) {
		return nil, persistence.NewStoreError("GetByID", "knowledge_base", id, persistence.ErrKnowledgeBaseNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "knowledge_base", id, err)
	}

	return kb, nil
}

func (kr *KnowledgeBaseRepository) GetByName(ctx context.Context, name string) (*models.KnowledgeBase, error) {
	kbs, err := kr.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, kb := range kbs {
		if strings.EqualFold(kb.Name, name) {
			return kb, nil
		}
	}

	return nil, persistence.NewStoreError("GetByName", "knowledge_base", name, persistence.ErrKnowledgeBaseNotFound)
}

func (kr *KnowledgeBaseRepository) Save(ctx context.Context, kb *models.KnowledgeBase) error {
	lock := kr.locks.get("knowledge_bases")
	lock.Lock()
	defer lock.Unlock()

	return kr.save(ctx, kb)
}

// save writes without taking the repository lock; callers hold it.
func (kr *KnowledgeBaseRepository) save(ctx context.Context, kb *models.KnowledgeBase) error {
	if kb.ID == "" {
		kb.ID = uuid.New().String()
		kb.CreatedAt = time.Now().UTC()
	}

	existing, err := kr.GetByName(ctx, kb.Name)
	if err == nil && existing.ID != kb.ID {
		return persistence.NewStoreError("Save", "knowledge_base", kb.Name, persistence.ErrKnowledgeBaseNameTaken)
	}

	kb.UpdatedAt = time.Now().UTC()

	if err := writeDocument(kr.path(kb.ID), kb); err != nil {
		return persistence.NewStoreError("Save", "knowledge_base", kb.ID, err)
	}

	return nil
}

// AppendChunks appends chunks to the named knowledge base under a per-name
// lock, reassigning chunk indices to continue from the current count.
func (kr *KnowledgeBaseRepository) AppendChunks(ctx context.Context, name string, chunks []models.KnowledgeBaseChunk) (*models.KnowledgeBase, error) {
	lock := kr.locks.get("kb:" + strings.ToLower(name))
	lock.Lock()
	defer lock.Unlock()

	kb, err := kr.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	start := kb.NextChunkIndex()
	for i := range chunks {
		chunks[i].ChunkIndex = start + i
	}

	kb.Chunks = append(kb.Chunks, chunks...)

	if err := kr.save(ctx, kb); err != nil {
		return nil, err
	}

	return kb, nil
}

func (kr *KnowledgeBaseRepository) Delete(_ context.Context, id string) error {
	err := os.Remove(kr.path(id))
	if os.IsNotExist(err) {
		return persistence.NewStoreError("Delete", "knowledge_base", id, persistence.ErrKnowledgeBaseNotFound)
	}

	if err != nil {
		return persistence.NewStoreError("Delete", "knowledge_base", id, err)
	}

	return nil
}
