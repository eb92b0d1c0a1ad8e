package llm

import (
	"context"
	"fmt"

	"github.com/enviducate/backend/internal/metrics"
)

// Client is the hosted generative-text model. Implementations wrap the
// provider SDK with a circuit breaker and retry policy; prompt building
// stays in the calling packages.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float32
	MaxTokens    int
	// SingleAttempt disables retries for callers whose fallback contract
	// is one shot per call.
	SingleAttempt bool
}

type CompletionResponse struct {
	Content string
	Usage   Usage
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Options struct {
	Provider    string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
}

// recordTokenUsage feeds the token counters from a completed call.
func recordTokenUsage(model string, usage Usage) {
	metrics.LLMTokensUsed.WithLabelValues(model, "prompt").Add(float64(usage.PromptTokens))
	metrics.LLMTokensUsed.WithLabelValues(model, "completion").Add(float64(usage.CompletionTokens))
}

// New selects the provider backend from config.
func New(opts Options) (Client, error) {
	switch opts.Provider {
	case "openai":
		return NewOpenAIClient(opts), nil
	case "gemini", "":
		return NewGeminiClient(opts)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", opts.Provider)
	}
}
