package models

import "time"

// MessageRole identifies the author of a conversation message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// MaxConversationMessages bounds a conversation to its 10 most recent
// question/answer exchanges.
const MaxConversationMessages = 20

// ConversationMessage is a single turn in a session's history.
type ConversationMessage struct {
	Role      MessageRole `json:"role"    validate:"required,oneof=user assistant"`
	Content   string      `json:"content" validate:"required"`
	Timestamp time.Time   `json:"timestamp"`
}

// Conversation holds the bounded message history for one session.
type Conversation struct {
	SessionID string                `json:"sessionId" validate:"required"`
	Messages  []ConversationMessage `json:"messages"`
	CreatedAt time.Time             `json:"createdAt"`
	UpdatedAt time.Time             `json:"updatedAt"`
}

// Append adds messages and trims the history to the most recent
// MaxConversationMessages entries, oldest first.
func (c *Conversation) Append(messages ...ConversationMessage) {
	c.Messages = append(c.Messages, messages...)
	if len(c.Messages) > MaxConversationMessages {
		c.Messages = c.Messages[len(c.Messages)-MaxConversationMessages:]
	}
}
