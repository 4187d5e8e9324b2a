// Package memory provides the conversation node: it records each
// question/answer pair into a bounded per-session history.
package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ragline/ragline/pkg/models"
	"github.com/ragline/ragline/pkg/persistence"
	"github.com/ragline/ragline/pkg/protocol"
)

// Source values reported on payloads that bypass memory.
const (
	SourceMemorySkipped     = "memory_skipped"
	SourceMemoryPassthrough = "memory_passthrough"
)

type Node struct {
	id        string
	sessionID string
	convs     persistence.ConversationRepository
}

func NewNode(id string, config map[string]any, convs persistence.ConversationRepository) (*Node, error) {
	sessionID, _ := config["sessionId"].(string)

	return &Node{id: id, sessionID: sessionID, convs: convs}, nil
}

func (n *Node) ID() string { return n.id }

func (n *Node) Type() string { return string(models.NodeTypeMemory) }

// Execute appends the question/answer pair to the session's conversation and
// returns the payload augmented with the trimmed history. Payloads without a
// question and answer pass through untouched apart from a source marker.
func (n *Node) Execute(ctx context.Context, execCtx *models.ExecutionContext, input models.Payload) (models.Payload, error) {
	rag, ok := input.(models.RAGResult)
	if !ok {
		return passthrough(execCtx, input), nil
	}

	sid := n.resolveSessionID(execCtx)

	now := time.Now().UTC()
	conversation, err := n.convs.AppendMessages(ctx, sid, []models.ConversationMessage{
		{Role: models.RoleUser, Content: rag.Question, Timestamp: now},
		{Role: models.RoleAssistant, Content: rag.Answer, Timestamp: now},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record conversation for session %s: %w", sid, err)
	}

	execCtx.Logger.Info("conversation recorded",
		"session_id", sid, "messages", len(conversation.Messages))

	return models.MemoryResult{
		RAGResult:           rag,
		SessionID:           sid,
		ConversationHistory: conversation.Messages,
	}, nil
}

// resolveSessionID prefers the node's configured session over the one passed
// with the execution, generating a fresh id when neither is set.
func (n *Node) resolveSessionID(execCtx *models.ExecutionContext) string {
	if strings.TrimSpace(n.sessionID) != "" {
		return n.sessionID
	}

	if strings.TrimSpace(execCtx.SessionID) != "" {
		return execCtx.SessionID
	}

	return fmt.Sprintf("session_%d", time.Now().UnixMilli())
}

// passthrough marks payloads that carry no conversation to store. Store
// results get an explanatory note appended to their message.
func passthrough(execCtx *models.ExecutionContext, input models.Payload) models.Payload {
	if store, ok := input.(models.StoreResult); ok {
		execCtx.Logger.Debug("store output received, skipping memory")

		store.Message += " Memory node skipped - no conversation to store."
		store.Source = SourceMemorySkipped

		return store
	}

	execCtx.Logger.Debug("no question/answer in payload, passing through")

	if in, ok := input.(models.InputResult); ok {
		in.Source = SourceMemoryPassthrough

		return in
	}

	return input
}

// Factory creates memory nodes bound to a conversation repository.
type Factory struct {
	convs persistence.ConversationRepository
}

func NewFactory(convs persistence.ConversationRepository) *Factory {
	return &Factory{convs: convs}
}

func (f *Factory) Create(_ context.Context, id string, config map[string]any) (protocol.Node, error) {
	return NewNode(id, config, f.convs)
}

func (f *Factory) ID() string { return string(models.NodeTypeMemory) }

func (f *Factory) Name() string { return "Memory" }

func (f *Factory) Description() string {
	return "Records question/answer pairs into a bounded per-session conversation history."
}

func (f *Factory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sessionId": map[string]any{
				"type":        "string",
				"description": "Fixed session identifier; overrides the one sent with the execution.",
			},
		},
	}
}
