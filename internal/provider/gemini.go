package provider

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	// DefaultGeminiModel is the model used when none is configured
	DefaultGeminiModel = "gemini-2.0-flash"

	// DefaultGeminiBaseURL is Gemini's OpenAI-compatible endpoint
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"

	// llmMaxRetries is the retry budget for transient generation failures
	llmMaxRetries = 3

	// llmBaseBackoff and llmMaxBackoff bound the exponential backoff between retries
	llmBaseBackoff = 2 * time.Second
	llmMaxBackoff  = 32 * time.Second
)

// GeminiClient generates text through Gemini's OpenAI-compatible chat
// completions API
type GeminiClient struct {
	client openai.Client
	model  string
}

// NewGeminiClient creates a Gemini text generation client
func NewGeminiClient(apiKey, baseURL, model string) *GeminiClient {
	if baseURL == "" {
		baseURL = DefaultGeminiBaseURL
	}
	if model == "" {
		model = DefaultGeminiModel
	}

	return &GeminiClient{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(baseURL),
		),
		model: model,
	}
}

// Generate runs a single completion for the prompt, retrying transient
// failures with exponential backoff
func (c *GeminiClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	}

	var lastErr error
	for attempt := 0; attempt <= llmMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * llmBaseBackoff
			if backoff > llmMaxBackoff {
				backoff = llmMaxBackoff
			}

			slog.Warn("Gemini call failed, retrying",
				"model", c.model,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr.Error(),
			)

			select {
			case <-ctx.Done():
				return "", newError("gemini.generate", ctx.Err())
			case <-time.After(backoff):
			}
		}

		completion, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return "", newError("gemini.generate", ctx.Err())
			}
			continue
		}

		if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
			lastErr = fmt.Errorf("empty completion from model %s", c.model)
			continue
		}

		return completion.Choices[0].Message.Content, nil
	}

	return "", newError("gemini.generate", fmt.Errorf("giving up after %d retries: %w", llmMaxRetries, lastErr))
}
