// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrWorkflowNameTaken indicates another workflow already uses the name
	// (names are unique case-insensitively).
	ErrWorkflowNameTaken = errors.New("workflow name already in use")

	// ErrKnowledgeBaseNotFound indicates a knowledge base was not found.
	ErrKnowledgeBaseNotFound = errors.New("knowledge base not found")

	// ErrKnowledgeBaseNameTaken indicates another knowledge base already uses the name.
	ErrKnowledgeBaseNameTaken = errors.New("knowledge base name already in use")

	// ErrConversationNotFound indicates no conversation exists for the session.
	ErrConversationNotFound = errors.New("conversation not found")
)

// StoreError wraps a persistence failure with operation context.
type StoreError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Save", "AppendChunks")
	Entity string // Entity kind ("workflow", "knowledge_base", "conversation")
	Key    string // Identifier or name, if applicable
	Err    error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.Key, e.Err)
	}

	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewStoreError creates a store error with context.
func NewStoreError(op, entity, key string, err error) *StoreError {
	return &StoreError{Op: op, Entity: entity, Key: key, Err: err}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsKnowledgeBaseNotFound checks if an error indicates a knowledge base was not found.
func IsKnowledgeBaseNotFound(err error) bool {
	return errors.Is(err, ErrKnowledgeBaseNotFound)
}

// IsConversationNotFound checks if an error indicates a conversation was not found.
func IsConversationNotFound(err error) bool {
	return errors.Is(err, ErrConversationNotFound)
}

// IsNameTaken checks if an error indicates a uniqueness conflict on a name.
func IsNameTaken(err error) bool {
	return errors.Is(err, ErrWorkflowNameTaken) || errors.Is(err, ErrKnowledgeBaseNameTaken)
}
