// Package llm talks to the hosted chat models and turns their replies into
// ledger answers, guardrail verdicts and conversation titles.
package llm

import (
	"context"
	"fmt"
	"strings"
)

// defaultMaxTokens caps a reply when the caller sets no limit.
const defaultMaxTokens = 1024

// CompletionRequest is one provider-neutral chat completion call.
type CompletionRequest struct {
	// Model overrides the provider default when set.
	Model     string
	System    string
	Messages  []ChatMessage
	MaxTokens int
	// JSON asks the provider for a single JSON object as the reply.
	JSON bool
}

// ChatMessage is one turn of the transcript sent to a model.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionResponse is the reply text and its token usage.
type CompletionResponse struct {
	Content   string
	Model     string
	TokensIn  int
	TokensOut int
	// Truncated is set when the reply stopped at the token limit.
	Truncated bool
}

// Client is a chat completion provider.
type Client interface {
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)
	Name() string
}

// Provider names a model vendor.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
)

// ParseProvider accepts a provider name in any case.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case ProviderAnthropic, ProviderOpenAI:
		return p, nil
	}
	return "", fmt.Errorf("unknown LLM provider %q", s)
}

// NewClient creates the client for provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	p, err := ParseProvider(string(provider))
	if err != nil {
		return nil, err
	}
	if p == ProviderAnthropic {
		return NewAnthropicClient(apiKey)
	}
	return NewOpenAIClient(apiKey)
}

func maxTokens(n int) int {
	if n <= 0 {
		return defaultMaxTokens
	}
	return n
}
