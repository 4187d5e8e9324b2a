// Package llm normalizes answer generation across external model providers.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Mode selects the prompt style and sampling parameters. Direct answers are a
// more deterministic completion task, so they get a smaller token budget and
// lower temperature.
type Mode string

const (
	ModeContext Mode = "context-based"
	ModeDirect  Mode = "direct"
)

// MaxTokens returns the completion budget for the mode.
func (m Mode) MaxTokens() int {
	if m == ModeDirect {
		return 300
	}

	return 500
}

// Temperature returns the sampling temperature for the mode.
func (m Mode) Temperature() float64 {
	if m == ModeDirect {
		return 0.3
	}

	return 0.7
}

// Provider is one concrete answer-generation backend. Implementations handle
// the wire protocol; classification of failures into ProviderError kinds is
// shared.
type Provider interface {
	ID() string
	DefaultModel() string

	// ValidKeyFormat checks the key's shape without any network traffic.
	ValidKeyFormat(key string) bool

	// Generate produces an answer for the prompt. Any failure is returned as
	// a *ProviderError.
	Generate(ctx context.Context, client *http.Client, prompt, model, apiKey string, mode Mode) (string, error)
}

// BuildContextPrompt renders the context-based prompt: the model must answer
// strictly from the supplied context and say so when it is insufficient.
func BuildContextPrompt(question string, contexts []string) string {
	context := ""
	for i, c := range contexts {
		if i > 0 {
			context += "\n\n"
		}

		context += c
	}

	return fmt.Sprintf(`Answer the following question based ONLY on the provided context. If the context doesn't contain enough information to answer the question, say so clearly.

Context:
%s

Question: %s

Answer:`, context, question)
}

// BuildDirectPrompt renders the context-free prompt.
func BuildDirectPrompt(question string) string {
	return fmt.Sprintf(`Answer the following question directly and concisely:

Question: %s

Answer:`, question)
}

// errorMessageFromBody extracts error.message from a provider's JSON error
// body, falling back to the raw status text when the body does not parse.
func errorMessageFromBody(body []byte, fallback string) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error.Message == "" {
		return fallback
	}

	return parsed.Error.Message
}
