// Package llm wraps remote chat-completion providers behind a single
// Provider interface used by the orchestrator.
package llm

import (
	"context"
	"fmt"
)

// Message is one entry in the completion context sent to the provider.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-requested tool invocation. Arguments is the raw
// JSON payload exactly as the model produced it; it is untrusted and
// callers must parse it defensively.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Tool describes a callable tool offered to the model.
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

// Request contains the full context for one completion call.
type Request struct {
	Messages []Message
	Tools    []Tool
}

// Response contains the provider's reply: final text, tool requests, or both.
type Response struct {
	Content   string
	ToolCalls []ToolCall
}

// Config holds provider configuration
type Config struct {
	Provider    string // openai, anthropic
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// Provider is an interface for LLM API providers
type Provider interface {
	// Complete makes a chat completion call with the given context.
	Complete(ctx context.Context, request Request) (*Response, error)

	// Name returns the provider name
	Name() string

	// Configured reports whether the provider has credentials.
	Configured() bool

	// HealthCheck probes the remote service with a minimal completion.
	HealthCheck(ctx context.Context) bool
}

// NewProvider creates an LLM provider from configuration
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg), nil
	case "anthropic":
		return NewAnthropicProvider(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}
