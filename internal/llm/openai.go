package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Kashan-Baig/Insight-Watt-Energy-Advisor-System/internal/config"
	"github.com/sirupsen/logrus"
)

// OpenAICompatProvider implements Client against any OpenAI-compatible
// chat-completions endpoint (Groq in the default deployment).
type OpenAICompatProvider struct {
	name         string
	baseURL      string
	apiKey       string
	defaultModel string
	maxTokens    int
	client       *http.Client
	logger       *logrus.Logger
}

// NewOpenAICompatProvider creates a provider from configuration.
func NewOpenAICompatProvider(cfg config.LLMConfig, logger *logrus.Logger) *OpenAICompatProvider {
	timeout := config.ParseDuration(cfg.Timeout, 45*time.Second)
	return &OpenAICompatProvider{
		name:         "openai-compat",
		baseURL:      cfg.URL,
		apiKey:       cfg.APIKey,
		defaultModel: cfg.DefaultModel,
		maxTokens:    cfg.MaxTokens,
		client:       &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// Complete performs a chat completion and returns the assistant text.
func (p *OpenAICompatProvider) Complete(ctx context.Context, prompt string, opts CompletionOptions) (string, error) {
	if p.apiKey == "" {
		return "", &ProviderError{Provider: p.name, Type: "auth", Message: "API key is not configured"}
	}

	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = p.maxTokens
	}

	messages := []map[string]string{}
	if opts.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": opts.SystemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	request := map[string]interface{}{
		"model":    model,
		"messages": messages,
	}
	if maxTokens > 0 {
		request["max_tokens"] = maxTokens
	}
	if opts.Temperature > 0 {
		request["temperature"] = opts.Temperature
	}

	body, err := json.Marshal(request)
	if err != nil {
		return "", &ProviderError{Provider: p.name, Type: "internal", Message: "failed to encode request", Underlying: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: p.name, Type: "internal", Message: "failed to build request", Underlying: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	startTime := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return "", &ProviderError{
			Provider:   p.name,
			Type:       "network",
			Message:    "request failed",
			Retryable:  true,
			Underlying: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return "", &ProviderError{Provider: p.name, Type: "auth", Message: "invalid API key"}
	}
	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &ProviderError{
			Provider:  p.name,
			Type:      "api",
			Message:   fmt.Sprintf("status %d: %s", resp.StatusCode, string(payload)),
			Retryable: resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests,
		}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&completion); err != nil {
		return "", &ProviderError{Provider: p.name, Type: "parse_error", Message: "failed to parse response", Underlying: err}
	}
	if len(completion.Choices) == 0 {
		return "", &ProviderError{Provider: p.name, Type: "api", Message: "no choices returned"}
	}

	p.logger.WithFields(logrus.Fields{
		"model":      model,
		"latency_ms": time.Since(startTime).Milliseconds(),
	}).Debug("LLM completion finished")

	return completion.Choices[0].Message.Content, nil
}
