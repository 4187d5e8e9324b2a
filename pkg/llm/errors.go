package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a provider failure. The rag node keys its user-facing
// fallback message off this classification.
type ErrorKind string

const (
	ErrorKindInvalidKeyFormat ErrorKind = "invalid_key_format"
	ErrorKindAuth             ErrorKind = "auth"
	ErrorKindQuota            ErrorKind = "quota"
	ErrorKindNetwork          ErrorKind = "network"
	ErrorKindUnknown          ErrorKind = "unknown"
)

// ProviderError is the uniform error returned by the gateway for any provider
// failure. The gateway never substitutes answer text on its own; recovery is
// the caller's job.
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Status   int // HTTP status, 0 for pre-network failures
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s provider error (%s, status %d): %s", e.Provider, e.Kind, e.Status, e.Message)
	}

	return fmt.Sprintf("%s provider error (%s): %s", e.Provider, e.Kind, e.Message)
}

// AsProviderError unwraps err into a ProviderError, or nil.
func AsProviderError(err error) *ProviderError {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe
	}

	return nil
}

// classify maps an HTTP status plus provider message to an error kind.
// 401/"Unauthorized" is an authentication failure, 429/"quota" a rate or
// quota problem; anything else is unknown. Transport-level failures are
// classified as network errors before reaching here.
func classify(provider string, status int, message string) *ProviderError {
	kind := ErrorKindUnknown

	switch {
	case status == 401 || strings.Contains(message, "Unauthorized"):
		kind = ErrorKindAuth
	case status == 429 || strings.Contains(message, "quota"):
		kind = ErrorKindQuota
	}

	return &ProviderError{Provider: provider, Kind: kind, Status: status, Message: message}
}

// networkError wraps a transport failure (DNS, refused connection, timeout).
func networkError(provider string, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: ErrorKindNetwork, Message: err.Error()}
}
