package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdf-qa/internal/models"
)

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "swiggy.pdf", cfg.Document)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, StoreMemory, cfg.RAG.VectorStore)
	assert.Equal(t, 1000, cfg.InferenceLLM.MaxTokens)
	assert.InDelta(t, 0.1, cfg.InferenceLLM.Temperature, 1e-9)
	assert.Equal(t, "OPENAI_API_KEY", cfg.EmbedLLM.KeyEnv)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
document: invoice.pdf
query: total amount?
print_json: true
rag:
  chunk_size: 400
  chunk_overlap: 40
  top_k: 2
  vector_store: chromem
embed_llm:
  provider: ollama
  model: nomic-embed-text
inference_llm:
  model: llama3
  provider: ollama
  base_url: http://gpu:11434
retry:
  max_attempts: 5
  initial_interval: 2s
database:
  dsn: postgres://u:p@localhost:5432/qa?sslmode=disable
  driver: pq
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "invoice.pdf", cfg.Document)
	assert.True(t, cfg.PrintJSON)
	assert.Equal(t, 400, cfg.RAG.ChunkSize)
	assert.Equal(t, 40, cfg.RAG.ChunkOverlap)
	assert.Equal(t, StoreChromem, cfg.RAG.VectorStore)
	assert.Equal(t, "http://localhost:11434", cfg.EmbedLLM.BaseURL)
	assert.Equal(t, "http://gpu:11434", cfg.InferenceLLM.BaseURL)
	assert.Empty(t, cfg.EmbedLLM.KeyEnv)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Retry.InitialInterval)
	assert.True(t, cfg.Database.Enabled())
	assert.Equal(t, DriverPQ, cfg.Database.Driver)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_PartialFileDefaultsPerProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
rag:
  chunk_size: 100
embed_llm:
  provider: ollama
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "swiggy.pdf", cfg.Document)
	assert.Equal(t, 100, cfg.RAG.ChunkSize)
	assert.Equal(t, 0, cfg.RAG.ChunkOverlap)
	assert.Equal(t, "nomic-embed-text", cfg.EmbedLLM.Model)
	assert.Empty(t, cfg.EmbedLLM.KeyEnv)
	assert.Equal(t, "http://localhost:11434", cfg.EmbedLLM.BaseURL)
	assert.Equal(t, "gpt-4o-mini", cfg.InferenceLLM.Model)
	assert.Equal(t, "OPENAI_API_KEY", cfg.InferenceLLM.KeyEnv)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_Temperature(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		expected float64
	}{
		{"explicit zero kept", "inference_llm:\n  temperature: 0\n", 0},
		{"explicit value kept", "inference_llm:\n  temperature: 0.7\n", 0.7},
		{"omitted gets default", "inference_llm:\n  model: gpt-4o\n", 0.1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tc.yaml), 0o644))

			cfg, err := LoadConfig(path)
			require.NoError(t, err)
			assert.InDelta(t, tc.expected, cfg.InferenceLLM.Temperature, 1e-9)
		})
	}
}

func TestLoadConfig_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.InferenceLLM.Key = "from-file"
	env := map[string]string{"OPENAI_API_KEY": "sk-env"}

	ApplyEnv(cfg, func(k string) string { return env[k] })

	assert.Equal(t, "sk-env", cfg.EmbedLLM.Key)
	assert.Equal(t, "from-file", cfg.InferenceLLM.Key)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"zero chunk size", func(c *Config) { c.RAG.ChunkSize = 0 }},
		{"overlap equals size", func(c *Config) { c.RAG.ChunkOverlap = c.RAG.ChunkSize }},
		{"negative overlap", func(c *Config) { c.RAG.ChunkOverlap = -1 }},
		{"zero top k", func(c *Config) { c.RAG.TopK = 0 }},
		{"unknown store", func(c *Config) { c.RAG.VectorStore = "faiss" }},
		{"unknown provider", func(c *Config) { c.InferenceLLM.Provider = "bard" }},
		{"empty query", func(c *Config) { c.Query = "" }},
		{"empty document", func(c *Config) { c.Document = "" }},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrInvalidConfig)
		})
	}
}
