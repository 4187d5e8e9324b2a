package models

import "time"

// ChunkMetadata carries bookkeeping recorded when a chunk is appended.
type ChunkMetadata struct {
	AddedAt     time.Time `json:"addedAt"`
	WordCount   int       `json:"wordCount"`
	ContentType string    `json:"contentType"` // "document" or "question"
}

// KnowledgeBaseChunk is the unit of storage and retrieval. ChunkIndex is
// assigned at append time and is monotonic for the lifetime of the knowledge
// base, even across multiple ingestions.
type KnowledgeBaseChunk struct {
	Content         string        `json:"content" validate:"required"`
	ChunkIndex      int           `json:"chunkIndex"`
	SourceReference string        `json:"sourceReference,omitempty"`
	Metadata        ChunkMetadata `json:"metadata"`
}

// KnowledgeBase is a named, append-only collection of chunks. Chunks are never
// mutated or removed by the engine.
type KnowledgeBase struct {
	ID          string               `json:"id"`
	Name        string               `json:"name" validate:"required,min=1"`
	Description string               `json:"description,omitempty"`
	Chunks      []KnowledgeBaseChunk `json:"chunks"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

// NextChunkIndex returns the index the next appended chunk must receive.
func (kb *KnowledgeBase) NextChunkIndex() int {
	return len(kb.Chunks)
}
