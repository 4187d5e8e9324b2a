package llm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// minUnknownProviderKeyLength is the only shape check applied to keys for
// providers the gateway does not know about.
const minUnknownProviderKeyLength = 10

// Gateway dispatches generation requests to one of the registered providers
// after validating the key format. It never substitutes answer text on
// failure; callers decide how to recover.
type Gateway struct {
	providers map[string]Provider
	client    *http.Client
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewGateway builds a gateway over the built-in providers. A zero timeout
// disables the client timeout; in-flight calls then run to the provider's own
// limit, bounded only by the request context.
func NewGateway(logger *slog.Logger, timeout time.Duration) *Gateway {
	g := &Gateway{
		providers: make(map[string]Provider),
		client:    &http.Client{Timeout: timeout},
		logger:    logger,
		tracer:    otel.Tracer("llm-gateway"),
	}

	g.Register(NewOpenAI())
	g.Register(NewGoogle())
	g.Register(NewAnthropic())

	return g
}

// Register adds a provider, replacing any existing one with the same ID.
func (g *Gateway) Register(p Provider) {
	g.providers[p.ID()] = p
}

// ValidateKeyFormat checks the key's shape for the named provider without any
// network traffic. Unknown providers only require a reasonable key length.
func (g *Gateway) ValidateKeyFormat(provider, apiKey string) bool {
	if apiKey == "" {
		return false
	}

	p, ok := g.providers[provider]
	if !ok {
		return len(apiKey) > minUnknownProviderKeyLength
	}

	return p.ValidKeyFormat(apiKey)
}

// DefaultModel returns the named provider's default model, or "default" for
// unknown providers.
func (g *Gateway) DefaultModel(provider string) string {
	if p, ok := g.providers[provider]; ok {
		return p.DefaultModel()
	}

	return "default"
}

// Generate runs the prompt against the named provider. Key-format validation
// happens before any network request and fails with ErrorKindInvalidKeyFormat.
func (g *Gateway) Generate(ctx context.Context, provider, model, apiKey, prompt string, mode Mode) (string, error) {
	ctx, span := g.tracer.Start(ctx, "llm.generate", trace.WithAttributes(
		attribute.String("llm.provider", provider),
		attribute.String("llm.mode", string(mode)),
	))
	defer span.End()

	if !g.ValidateKeyFormat(provider, apiKey) {
		err := &ProviderError{
			Provider: provider,
			Kind:     ErrorKindInvalidKeyFormat,
			Message:  "invalid API key format for provider " + provider,
		}
		span.SetStatus(codes.Error, err.Message)

		return "", err
	}

	p, ok := g.providers[provider]
	if !ok {
		err := &ProviderError{
			Provider: provider,
			Kind:     ErrorKindUnknown,
			Message:  "unsupported provider: " + provider,
		}
		span.SetStatus(codes.Error, err.Message)

		return "", err
	}

	start := time.Now()

	answer, err := p.Generate(ctx, g.client, prompt, model, apiKey, mode)
	if err != nil {
		g.logger.Warn("LLM call failed",
			"provider", provider,
			"mode", mode,
			"duration", time.Since(start),
			"error", err)
		span.SetStatus(codes.Error, err.Error())

		return "", err
	}

	g.logger.Debug("LLM call completed",
		"provider", provider,
		"mode", mode,
		"duration", time.Since(start),
		"answer_length", len(answer))

	return answer, nil
}
