package semantic

import (
	"context"
	"errors"
)

// ErrNoProvider no LLM provider configured
var ErrNoProvider = errors.New("no llm provider configured")

// LLMClient text generation capability
type LLMClient interface {
	Generate(ctx context.Context, prompt string, temperature float64, maxTokens int) (string, error)
}

// JSONGenerator optional structured-output capability, preferred when present
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, prompt string, temperature float64, maxTokens int) (map[string]any, error)
}

// NoopClient stands in when no provider is configured
type NoopClient struct{}

// Generate always fails with ErrNoProvider
func (NoopClient) Generate(context.Context, string, float64, int) (string, error) {
	return "", ErrNoProvider
}
