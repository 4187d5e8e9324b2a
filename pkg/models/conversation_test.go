package models_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragline/ragline/pkg/models"
)

func message(role models.MessageRole, content string) models.ConversationMessage {
	return models.ConversationMessage{Role: role, Content: content, Timestamp: time.Now().UTC()}
}

func TestConversation_AppendBelowLimit(t *testing.T) {
	t.Parallel()

	c := &models.Conversation{SessionID: "s1"}
	c.Append(message(models.RoleUser, "q1"), message(models.RoleAssistant, "a1"))

	require.Len(t, c.Messages, 2)
	assert.Equal(t, models.RoleUser, c.Messages[0].Role)
	assert.Equal(t, "a1", c.Messages[1].Content)
}

func TestConversation_AppendTrimsOldestFirst(t *testing.T) {
	t.Parallel()

	c := &models.Conversation{SessionID: "s1"}

	for i := 0; i < 15; i++ {
		c.Append(
			message(models.RoleUser, fmt.Sprintf("q%d", i)),
			message(models.RoleAssistant, fmt.Sprintf("a%d", i)),
		)
	}

	require.Len(t, c.Messages, models.MaxConversationMessages)

	// The 10 most recent exchanges survive; exchange 5 is the oldest kept.
	assert.Equal(t, "q5", c.Messages[0].Content)
	assert.Equal(t, "a14", c.Messages[len(c.Messages)-1].Content)
}

func TestConversation_AppendOversizedBatch(t *testing.T) {
	t.Parallel()

	c := &models.Conversation{SessionID: "s1"}

	batch := make([]models.ConversationMessage, 0, 30)
	for i := 0; i < 30; i++ {
		batch = append(batch, message(models.RoleUser, fmt.Sprintf("m%d", i)))
	}

	c.Append(batch...)

	require.Len(t, c.Messages, models.MaxConversationMessages)
	assert.Equal(t, "m10", c.Messages[0].Content)
	assert.Equal(t, "m29", c.Messages[19].Content)
}
