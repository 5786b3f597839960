// Package embedding builds langchaingo embedders and adapts them to the
// function shape the vector index consumes.
package embedding

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"

	"pdf-qa/internal/config"
	"pdf-qa/internal/llmservice"
	"pdf-qa/internal/vectorindex"
)

// NewEmbedder creates an embedder for the configured provider.
func NewEmbedder(cfg config.LLMConfig) (*embeddings.EmbedderImpl, error) {
	client, err := llmservice.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	return FromClient(client)
}

// FromClient wraps any embeddings.EmbedderClient.
func FromClient(client embeddings.EmbedderClient) (*embeddings.EmbedderImpl, error) {
	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		log.Error().Err(err).Msg("Error creating embedder")
		return nil, err
	}
	return embedder, nil
}

// Func exposes e.EmbedQuery as a vectorindex.EmbedFunc.
func Func(e embeddings.Embedder) vectorindex.EmbedFunc {
	return e.EmbedQuery
}
