// Package llmservice constructs langchaingo model clients from config and
// runs single-prompt completions against them.
package llmservice

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"pdf-qa/internal/config"
	"pdf-qa/internal/models"
)

// Client is satisfied by both the openai and ollama providers.
type Client interface {
	llms.Model
	embeddings.EmbedderClient
}

// New returns a client for the configured provider. The API key must already be
// resolved into cfg.Key; nothing is read from the environment here.
func New(cfg config.LLMConfig) (Client, error) {
	log.Debug().Str("provider", cfg.Provider).Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("Creating LLM client")

	switch cfg.Provider {
	case config.ProviderOpenAI:
		key := strings.TrimPrefix(cfg.Key, "Bearer ")
		if key == "" {
			return nil, fmt.Errorf("%w: no API key for model %s (set %s)", models.ErrInvalidConfig, cfg.Model, cfg.KeyEnv)
		}
		opts := []openai.Option{
			openai.WithToken(key),
			openai.WithModel(cfg.Model),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return llm, nil
	case config.ProviderOllama:
		llm, err := ollama.New(
			ollama.WithServerURL(cfg.BaseURL),
			ollama.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return llm, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", models.ErrInvalidConfig, cfg.Provider)
	}
}

// Complete sends prompt as a single human message and returns the reply text.
func Complete(ctx context.Context, model llms.Model, prompt string, maxTokens int, temperature float64) (string, error) {
	opts := []llms.CallOption{llms.WithTemperature(temperature)}
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}
	res, err := llms.GenerateFromSinglePrompt(ctx, model, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return res, nil
}

// CompleteFunc binds model and the sampling settings of cfg.
func CompleteFunc(model llms.Model, cfg config.LLMConfig) func(ctx context.Context, prompt string) (string, error) {
	return func(ctx context.Context, prompt string) (string, error) {
		return Complete(ctx, model, prompt, cfg.MaxTokens, cfg.Temperature)
	}
}
