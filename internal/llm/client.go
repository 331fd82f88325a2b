package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// CompletionOptions controls a single completion request.
type CompletionOptions struct {
	Model        string
	SystemPrompt string
	MaxTokens    int
	Temperature  float64
}

// Client is the language-service boundary consumed by the synthesis stages.
// Implementations must be safe for concurrent use.
type Client interface {
	Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error)
}

// ProviderError describes a failure from a language-model provider.
type ProviderError struct {
	Provider   string
	Type       string
	Message    string
	Retryable  bool
	Underlying error
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s provider %s error: %s: %v", e.Provider, e.Type, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s provider %s error: %s", e.Provider, e.Type, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether err is a provider error worth retrying.
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}

// StripJSONFences removes the markdown code fences models wrap JSON in.
func StripJSONFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
