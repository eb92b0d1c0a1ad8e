package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/enviducate/backend/pkg/circuitbreaker"
	"github.com/enviducate/backend/pkg/logger"
	"github.com/enviducate/backend/pkg/retry"
)

// GeminiClient talks to the Gemini API through the google genai SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	temperature float32
	maxTokens   int
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

func NewGeminiClient(opts Options) (*GeminiClient, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	cb := circuitbreaker.New("llm-gemini", circuitbreaker.Config{
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	logger.Info("LLM client initialized",
		zap.String("provider", "gemini"),
		zap.String("model", opts.Model),
	)

	return &GeminiClient{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		cb:          cb,
		retryConfig: retryConfig,
	}, nil
}

func (c *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	temperature := req.Temperature
	if temperature == 0 {
		temperature = c.temperature
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = c.maxTokens
	}

	genConfig := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(temperature),
		MaxOutputTokens: int32(maxTokens),
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}

	retryConfig := c.retryConfig
	if req.SingleAttempt {
		retryConfig = retry.Single()
	}

	var result *CompletionResponse

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, retryConfig, func() error {
			resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.UserPrompt), genConfig)
			if err != nil {
				return fmt.Errorf("failed to generate content: %w", err)
			}

			text := resp.Text()
			if text == "" {
				return fmt.Errorf("empty response from model")
			}

			result = &CompletionResponse{Content: text}
			if resp.UsageMetadata != nil {
				result.Usage = Usage{
					PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
					CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
					TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
				}
			}

			recordTokenUsage(c.model, result.Usage)

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", result.Usage.PromptTokens),
				zap.Int("completion_tokens", result.Usage.CompletionTokens),
			)

			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return result, nil
}
