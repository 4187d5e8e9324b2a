// Package file provides file-based persistence for workflows, knowledge
// bases and conversations. Each entity is one JSON document; append paths are
// serialized with per-entity locks so concurrent executions cannot lose
// updates.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ragline/ragline/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root          string
	workflows     *WorkflowRepository
	knowledgeBase *KnowledgeBaseRepository
	conversations *ConversationRepository
}

// NewPersistence creates a file persistence rooted at the given directory.
// A "file://" prefix on root is stripped.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	locks := newKeyedMutex()

	return &Persistence{
		root:          cleanRoot,
		workflows:     &WorkflowRepository{root: cleanRoot, locks: locks},
		knowledgeBase: &KnowledgeBaseRepository{root: cleanRoot, locks: locks},
		conversations: &ConversationRepository{root: cleanRoot, locks: locks},
	}
}

func (fp *Persistence) Workflows() persistence.WorkflowRepository {
	return fp.workflows
}

func (fp *Persistence) KnowledgeBases() persistence.KnowledgeBaseRepository {
	return fp.knowledgeBase
}

func (fp *Persistence) Conversations() persistence.ConversationRepository {
	return fp.conversations
}

// HealthCheck verifies the root directory exists, creating it when absent.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	return os.MkdirAll(fp.root, 0o755)
}

// Close performs any necessary cleanup. Nothing to do for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// keyedMutex hands out one mutex per key, serializing read-modify-write
// cycles on a single entity across goroutines.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (km *keyedMutex) get(key string) *sync.Mutex {
	km.mu.Lock()
	defer km.mu.Unlock()

	lock, ok := km.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		km.locks[key] = lock
	}

	return lock
}

func readDocument[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var doc T
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("corrupt document %s: %w", path, err)
	}

	return &doc, nil
}

func writeDocument(path string, doc any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func listDocuments[T any](dir string) ([]*T, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return []*T{}, nil
	}

	if err != nil {
		return nil, err
	}

	docs := make([]*T, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		doc, err := readDocument[T](filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// fileKey makes an identifier safe to use as a file name.
func fileKey(id string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "..", "_")

	return replacer.Replace(id)
}
