// Package llm provides generation clients for retrieval-grounded answers.
package llm

import (
	"context"
	"fmt"

	"github.com/zachrizzo/RowFlow/internal/config"
)

// Provider represents an LLM provider type.
type Provider string

const (
	ProviderOllama Provider = "ollama"
)

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "system", "user", or "assistant"
	Content string `json:"content"`
}

// CompletionOptions configures the completion request.
type CompletionOptions struct {
	// Temperature controls randomness (0-1).
	Temperature float64

	// MaxTokens limits the response length.
	MaxTokens int
}

// DefaultCompletionOptions returns sensible defaults.
func DefaultCompletionOptions() CompletionOptions {
	return CompletionOptions{
		Temperature: 0.7,
		MaxTokens:   2048,
	}
}

// Service defines the interface for LLM services.
type Service interface {
	// Complete generates a completion for the given messages.
	Complete(ctx context.Context, messages []Message, opts CompletionOptions) (string, error)

	// Provider returns the provider name.
	Provider() Provider

	// ModelName returns the model name.
	ModelName() string
}

// NewService creates an LLM service from the configuration. The endpoint is
// whichever runtime the orchestrator selected.
func NewService(cfg *config.Config, endpoint string) (Service, error) {
	switch cfg.LLM.Provider {
	case "ollama":
		url := cfg.LLM.Ollama.URL
		if url == "" {
			url = endpoint
		}
		return NewOllamaService(url, cfg.LLM.Ollama.Model)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}
