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

const defaultGoogleBaseURL = "https://generativelanguage.googleapis.com"

// Google implements the Gemini generateContent protocol. The model name is
// part of the URL and the API key travels as a query parameter.
type Google struct {
	BaseURL string
}

func NewGoogle() *Google {
	return &Google{BaseURL: defaultGoogleBaseURL}
}

func (p *Google) ID() string { return "google" }

func (p *Google) DefaultModel() string { return "gemini-2.5-flash" }

func (p *Google) ValidKeyFormat(key string) bool {
	return strings.HasPrefix(key, "AIza")
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig geminiGenConfig  `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
			Text  string       `json:"text"`
		} `json:"content"`
	} `json:"candidates"`
}

func (p *Google) Generate(ctx context.Context, client *http.Client, prompt, model, apiKey string, mode Mode) (string, error) {
	if model == "" {
		model = p.DefaultModel()
	}

	payload, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
		GenerationConfig: geminiGenConfig{
			MaxOutputTokens: mode.MaxTokens(),
			Temperature:     mode.Temperature(),
		},
	})
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: err.Error()}
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", p.BaseURL, model, apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: err.Error()}
	}

	req.Header.Set("Content-Type", "application/json")

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

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: fmt.Sprintf("invalid response body: %v", err)}
	}

	if len(parsed.Candidates) == 0 {
		return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: "response contained no candidates"}
	}

	content := parsed.Candidates[0].Content
	if len(content.Parts) > 0 && content.Parts[0].Text != "" {
		return content.Parts[0].Text, nil
	}

	// Some responses carry the text directly on the content object.
	if content.Text != "" {
		return content.Text, nil
	}

	return "", &ProviderError{Provider: p.ID(), Kind: ErrorKindUnknown, Message: "no text content in response"}
}
