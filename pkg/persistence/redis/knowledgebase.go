package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
)

// KnowledgeBaseRepository stores each knowledge base as a JSON value keyed by
// ID. AppendChunks runs a WATCH transaction over the document key and retries
// on contention, keeping chunk indices monotonic across concurrent appends.
type KnowledgeBaseRepository struct {
	client *goredis.Client
}

func (kr *KnowledgeBaseRepository) List(ctx context.Context) ([]*models.KnowledgeBase, error) {
	ids, err := kr.client.SMembers(ctx, kbSetKey).Result()
	if err != nil {
		return nil, persistence.NewStoreError("List", "knowledge_base", "", err)
	}

	kbs := make([]*models.KnowledgeBase, 0, len(ids))

	for _, id := range ids {
		kb, err := kr.GetByID(ctx, id)
		if persistence.IsKnowledgeBaseNotFound(err) {
			continue
		}

		if err != nil {
			return nil, err
		}

		kbs = append(kbs, kb)
	}

	sort.Slice(kbs, func(i, j int) bool {
		return kbs[i].UpdatedAt.After(kbs[j].UpdatedAt)
	})

	return kbs, nil
}

func (kr *KnowledgeBaseRepository) GetByID(ctx context.Context, id string) (*models.KnowledgeBase, error) {
	raw, err := kr.client.Get(ctx, kbKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewStoreError("GetByID", "knowledge_base", id, persistence.ErrKnowledgeBaseNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByID", "knowledge_base", id, err)
	}

	var kb models.KnowledgeBase
	if err := json.Unmarshal(raw, &kb); err != nil {
		return nil, persistence.NewStoreError("GetByID", "knowledge_base", id, err)
	}

	return &kb, nil
}

func (kr *KnowledgeBaseRepository) GetByName(ctx context.Context, name string) (*models.KnowledgeBase, error) {
	id, err := kr.client.Get(ctx, nameKey(kbNamePrefix, name)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewStoreError("GetByName", "knowledge_base", name, persistence.ErrKnowledgeBaseNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("GetByName", "knowledge_base", name, err)
	}

	return kr.GetByID(ctx, id)
}

func (kr *KnowledgeBaseRepository) Save(ctx context.Context, kb *models.KnowledgeBase) error {
	if kb.ID == "" {
		kb.ID = uuid.New().String()
		kb.CreatedAt = time.Now().UTC()
	}

	existingID, err := kr.client.Get(ctx, nameKey(kbNamePrefix, kb.Name)).Result()
	if err == nil && existingID != kb.ID {
		return persistence.NewStoreError("Save", "knowledge_base", kb.Name, persistence.ErrKnowledgeBaseNameTaken)
	}

	kb.UpdatedAt = time.Now().UTC()

	raw, err := json.Marshal(kb)
	if err != nil {
		return persistence.NewStoreError("Save", "knowledge_base", kb.ID, err)
	}

	pipe := kr.client.TxPipeline()
	pipe.Set(ctx, kbKeyPrefix+kb.ID, raw, 0)
	pipe.Set(ctx, nameKey(kbNamePrefix, kb.Name), kb.ID, 0)
	pipe.SAdd(ctx, kbSetKey, kb.ID)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Save", "knowledge_base", kb.ID, err)
	}

	return nil
}

func (kr *KnowledgeBaseRepository) AppendChunks(ctx context.Context, name string, chunks []models.KnowledgeBaseChunk) (*models.KnowledgeBase, error) {
	id, err := kr.client.Get(ctx, nameKey(kbNamePrefix, name)).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, persistence.ErrKnowledgeBaseNotFound)
	}

	if err != nil {
		return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, err)
	}

	key := kbKeyPrefix + id

	var updated *models.KnowledgeBase

	txf := func(tx *goredis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}

		var kb models.KnowledgeBase
		if err := json.Unmarshal(raw, &kb); err != nil {
			return err
		}

		start := kb.NextChunkIndex()
		appended := make([]models.KnowledgeBaseChunk, len(chunks))

		for i, chunk := range chunks {
			chunk.ChunkIndex = start + i
			appended[i] = chunk
		}

		kb.Chunks = append(kb.Chunks, appended...)
		kb.UpdatedAt = time.Now().UTC()

		out, err := json.Marshal(&kb)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, out, 0)

			return nil
		})
		if err != nil {
			return err
		}

		updated = &kb

		return nil
	}

	for range appendRetries {
		err := kr.client.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}

		if err != nil {
			return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name, err)
		}

		return updated, nil
	}

	return nil, persistence.NewStoreError("AppendChunks", "knowledge_base", name,
		fmt.Errorf("append contention not resolved after %d retries", appendRetries))
}

func (kr *KnowledgeBaseRepository) Delete(ctx context.Context, id string) error {
	kb, err := kr.GetByID(ctx, id)
	if err != nil {
		return err
	}

	pipe := kr.client.TxPipeline()
	pipe.Del(ctx, kbKeyPrefix+id)
	pipe.Del(ctx, nameKey(kbNamePrefix, kb.Name))
	pipe.SRem(ctx, kbSetKey, id)

	if _, err := pipe.Exec(ctx); err != nil {
		return persistence.NewStoreError("Delete", "knowledge_base", id, err)
	}

	return nil
}
