package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAI implements the chat-completions protocol.
type OpenAI struct {
	BaseURL string
}

func NewOpenAI() *OpenAI {
	return &OpenAI{BaseURL: defaultOpenAIBaseURL}
}

func (p *OpenAI) ID() string { return "openai" }

func (p *OpenAI) DefaultModel() string { return "gpt-3.5-turbo" }

func (p *OpenAI) ValidKeyFormat(key string) bool {
	return strings.HasPrefix(key, "sk-")
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *OpenAI) Generate(ctx context.Context, client *http.Client, prompt, model, apiKey string, mode Mode) (string, error) {
	if model == "" {
		model = p.DefaultModel()
	}

	payload, err := json.Marshal(openAIRequest{
		Model:       model,
		Messages:    []openAIMessage{{Role: "user", Content: prompt}},
		MaxTokens:   mode.MaxTokens(),
		Temperature: mode.Temperature(),
	})
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(apiKey))

	resp, err := client.Do(req)
	if err != nil {
		return "", networkError(p.ID(), err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", networkError(p.ID(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", classify(p.ID(), resp.StatusCode, errorMessageFromBody(body, resp.Status))
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: fmt.Sprintf("invalid response body: %v", err)}
	}

	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: "response contained no choices"}
	}

	return parsed.Choices[0].Message.Content, nil
}
