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

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
)

// Anthropic implements the messages protocol.
type Anthropic struct {
	BaseURL string
}

func NewAnthropic() *Anthropic {
	return &Anthropic{BaseURL: defaultAnthropicBaseURL}
}

func (p *Anthropic) ID() string { return "anthropic" }

func (p *Anthropic) DefaultModel() string { return "claude-3-sonnet-20240229" }

func (p *Anthropic) ValidKeyFormat(key string) bool {
	return strings.HasPrefix(key, "sk-ant-")
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (p *Anthropic) Generate(ctx context.Context, client *http.Client, prompt, model, apiKey string, mode Mode) (string, error) {
	if model == "" {
		model = p.DefaultModel()
	}

	payload, err := json.Marshal(anthropicRequest{
		Model:     model,
		MaxTokens: mode.MaxTokens(),
		Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

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

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: fmt.Sprintf("invalid response body: %v", err)}
	}

	if len(parsed.Content) == 0 {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: "response contained no content"}
	}

	return parsed.Content[0].Text, nil
}
