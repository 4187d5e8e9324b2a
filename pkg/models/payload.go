package models

import "time"

// PayloadKind discriminates the variants of the pipeline payload.
type PayloadKind string

const (
	PayloadKindInput  PayloadKind = "input"
	PayloadKindStore  PayloadKind = "store"
	PayloadKindRAG    PayloadKind = "rag"
	PayloadKindMemory PayloadKind = "memory"
	PayloadKindOutput PayloadKind = "output"
)

// Payload is the single value threaded between node handlers. Each handler
// receives the previous node's payload and returns the next one. The executor
// owns the payload for the duration of one execution; handlers never share it.
type Payload interface {
	PayloadKind() PayloadKind
}

// InputResult is produced by the input node. Source is the original filename
// for uploads, or "user_input" for pasted text. Downstream nodes that pass an
// InputResult through unchanged overwrite Source with a passthrough marker.
type InputResult struct {
	Text   string `json:"text"`
	Source string `json:"source"`
}

func (InputResult) PayloadKind() PayloadKind { return PayloadKindInput }

// StoreResult is produced by the store node. Text and Source carry the
// original input forward so a combined ingestion+query pipeline can hand the
// text to a downstream RAG node.
type StoreResult struct {
	Success       bool   `json:"success"`
	KnowledgeBase string `json:"knowledgeBase"`
	ChunksAdded   int    `json:"chunksAdded"`
	TotalChunks   int    `json:"totalChunks"`
	Message       string `json:"message"`
	Text          string `json:"text,omitempty"`
	Source        string `json:"source,omitempty"`
	Skipped       bool   `json:"skipped,omitempty"`
	SkipReason    string `json:"reason,omitempty"`
}

func (StoreResult) PayloadKind() PayloadKind { return PayloadKindStore }

// RetrievedChunk is the caller-facing view of a chunk selected by retrieval.
type RetrievedChunk struct {
	Content string `json:"content"`
	Index   int    `json:"index"`
}

// LLMStatus records whether an external model actually produced the answer,
// and why not if not. Callers render Used==false as a warning, never as a
// hard failure.
type LLMStatus struct {
	Used        bool   `json:"used"`
	Error       string `json:"error,omitempty"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	HasAPIKey   bool   `json:"hasApiKey"`
	APIKeyValid bool   `json:"apiKeyValid"`
	Mode        string `json:"mode,omitempty"`
}

// RAGResult is produced by the rag node. Source is one of "rag",
// "no_keywords", "no_match" or "llm_direct".
type RAGResult struct {
	Question      string           `json:"question"`
	Answer        string           `json:"answer"`
	Chunks        []RetrievedChunk `json:"chunks"`
	Source        string           `json:"source"`
	KnowledgeBase string           `json:"knowledgeBase,omitempty"`
	LLMStatus     LLMStatus        `json:"llmStatus"`
}

func (RAGResult) PayloadKind() PayloadKind { return PayloadKindRAG }

// MemoryResult is a RAGResult augmented with the session's bounded history.
type MemoryResult struct {
	RAGResult

	SessionID           string                `json:"sessionId"`
	ConversationHistory []ConversationMessage `json:"conversationHistory"`
}

func (MemoryResult) PayloadKind() PayloadKind { return PayloadKindMemory }

// OutputMetadata is attached to the output envelope unless the output node is
// configured with includeMetadata=false.
type OutputMetadata struct {
	ProcessedAt  time.Time `json:"processedAt"`
	NodeID       string    `json:"nodeId"`
	WorkflowStep string    `json:"workflowStep"`
	DataSize     int       `json:"dataSize"`
}

// OutputResult is the terminal envelope: the untouched payload plus a
// rendered view of it.
type OutputResult struct {
	Type      string          `json:"type"` // always "output"
	Format    string          `json:"format"`
	Data      Payload         `json:"data"`
	Formatted any             `json:"formatted"`
	Metadata  *OutputMetadata `json:"metadata,omitempty"`
}

func (OutputResult) PayloadKind() PayloadKind { return PayloadKindOutput }
