package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/ragline/ragline/pkg/models"
)

// Format selects how the output node renders the final payload.
type Format string

const (
	FormatDetailed Format = "detailed"
	FormatSummary  Format = "summary"
	FormatJSON     Format = "json"
	FormatText     Format = "text"
)

// ValidFormat reports whether f is one of the supported formats.
func ValidFormat(f Format) bool {
	switch f {
	case FormatDetailed, FormatSummary, FormatJSON, FormatText:
		return true
	}

	return false
}

const (
	workflowTypeQuery     = "Query Workflow (Input -> RAG -> Memory -> Output)"
	workflowTypeIngestion = "Ingestion Workflow (Input -> Store -> Output)"
	workflowTypeCustom    = "Custom Workflow"
)

// queryView flattens the two query-shaped payload variants into one view.
type queryView struct {
	rag       models.RAGResult
	sessionID string
	history   []models.ConversationMessage
}

func asQueryView(p models.Payload) (queryView, bool) {
	switch v := p.(type) {
	case models.RAGResult:
		return queryView{rag: v}, true
	case models.MemoryResult:
		return queryView{rag: v.RAGResult, sessionID: v.SessionID, history: v.ConversationHistory}, true
	}

	return queryView{}, false
}

func workflowType(p models.Payload) string {
	if _, ok := asQueryView(p); ok {
		return workflowTypeQuery
	}

	if _, ok := p.(models.StoreResult); ok {
		return workflowTypeIngestion
	}

	return workflowTypeCustom
}

// formatDetailed renders the full result: the query answer with chunk
// previews and recent questions, or the complete ingestion report.
func formatDetailed(p models.Payload, now time.Time) map[string]any {
	out := map[string]any{
		"timestamp":    now.Format(time.RFC3339),
		"workflowType": workflowType(p),
	}

	if q, ok := asQueryView(p); ok {
		out["type"] = "Query Result"
		out["question"] = q.rag.Question
		out["answer"] = q.rag.Answer
		out["source"] = q.rag.Source

		if q.sessionID != "" {
			out["sessionId"] = q.sessionID
		} else {
			out["sessionId"] = "N/A"
		}

		if len(q.rag.Chunks) > 0 {
			previews := make([]map[string]any, 0, len(q.rag.Chunks))
			for _, chunk := range q.rag.Chunks {
				previews = append(previews, map[string]any{
					"content": truncate(chunk.Content, 100),
					"index":   chunk.Index,
				})
			}
			out["sourceChunks"] = previews
		}

		if q.history != nil {
			out["conversationLength"] = len(q.history)
			out["previousQuestions"] = recentQuestions(q.history, 3)
		}

		return out
	}

	if store, ok := p.(models.StoreResult); ok {
		out["type"] = "Ingestion Result"
		out["knowledgeBase"] = store.KnowledgeBase
		out["chunksAdded"] = store.ChunksAdded
		out["totalChunks"] = store.TotalChunks
		out["source"] = "store"

		message := store.Message
		if message == "" {
			message = "Documents successfully processed and stored"
		}
		out["message"] = message

		return out
	}

	out["type"] = "Processing Result"
	out["result"] = "Workflow completed successfully"
	out["data"] = p

	return out
}

// formatSummary renders a truncated view suitable for list displays.
func formatSummary(p models.Payload, now time.Time) map[string]any {
	out := map[string]any{
		"timestamp":    now.Format(time.RFC3339),
		"workflowType": workflowType(p),
	}

	if q, ok := asQueryView(p); ok {
		out["type"] = "Query Result"
		out["question"] = truncateLong(q.rag.Question, 100)
		out["answer"] = truncateLong(q.rag.Answer, 200)
		out["hasConversationHistory"] = len(q.history) > 0
		out["sourceChunksCount"] = len(q.rag.Chunks)

		return out
	}

	if store, ok := p.(models.StoreResult); ok {
		out["type"] = "Ingestion Complete"
		out["knowledgeBase"] = store.KnowledgeBase
		out["chunksAdded"] = store.ChunksAdded
		out["status"] = "Success"

		return out
	}

	out["type"] = "Processing Complete"
	out["status"] = "Success"
	out["result"] = "Workflow executed successfully"

	return out
}

// formatJSON passes the payload through minus the verbose conversation
// history.
func formatJSON(p models.Payload) models.Payload {
	if mem, ok := p.(models.MemoryResult); ok {
		mem.ConversationHistory = nil

		return mem
	}

	return p
}

// formatText renders a human-readable plain-text block.
func formatText(p models.Payload, title string, now time.Time) map[string]any {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "%s\n%s\n\n", title, strings.Repeat("=", len(title)))
	}

	switch {
	case isQuery(p):
		q, _ := asQueryView(p)
		fmt.Fprintf(&b, "QUESTION:\n%s\n\n", q.rag.Question)
		fmt.Fprintf(&b, "ANSWER:\n%s\n\n", q.rag.Answer)

		if q.sessionID != "" {
			fmt.Fprintf(&b, "Session ID: %s\n", q.sessionID)
		}

		if len(q.rag.Chunks) > 0 {
			b.WriteString("\nSource Information:\n")
			fmt.Fprintf(&b, "- Retrieved %d relevant chunks\n", len(q.rag.Chunks))
		}

		if len(q.history) > 0 {
			fmt.Fprintf(&b, "- Conversation history: %d messages\n", len(q.history))
		}
	case isIngestion(p):
		store := p.(models.StoreResult)
		b.WriteString("DOCUMENT INGESTION COMPLETE\n\n")
		fmt.Fprintf(&b, "Knowledge Base: %s\n", store.KnowledgeBase)
		fmt.Fprintf(&b, "Chunks Added: %d\n", store.ChunksAdded)
		fmt.Fprintf(&b, "Total Chunks: %d\n", store.TotalChunks)
		b.WriteString("Status: Success\n")

		if store.Message != "" {
			fmt.Fprintf(&b, "\nDetails: %s\n", store.Message)
		}
	default:
		b.WriteString("WORKFLOW EXECUTION COMPLETE\n\n")
		b.WriteString("Status: Success\n")
		fmt.Fprintf(&b, "Completed at: %s\n", now.Format(time.RFC3339))
	}

	fmt.Fprintf(&b, "\nProcessed at: %s", now.Format(time.RFC3339))

	return map[string]any{"text": b.String()}
}

func isQuery(p models.Payload) bool {
	_, ok := asQueryView(p)

	return ok
}

func isIngestion(p models.Payload) bool {
	_, ok := p.(models.StoreResult)

	return ok
}

// recentQuestions returns previews of the last n user messages.
func recentQuestions(history []models.ConversationMessage, n int) []string {
	questions := make([]string, 0, n)
	for _, msg := range history {
		if msg.Role == models.RoleUser {
			questions = append(questions, truncate(msg.Content, 50))
		}
	}

	if len(questions) > n {
		questions = questions[len(questions)-n:]
	}

	return questions
}

// truncate always appends an ellipsis marker after cutting.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s + "..."
	}

	return s[:n] + "..."
}

// truncateLong appends the marker only when the string was actually cut.
func truncateLong(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
