package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"pdf-qa/internal/models"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"

	StoreMemory  = "memory"
	StoreChromem = "chromem"

	DriverPG = "pg"
	DriverPQ = "pq"

	defaultKeyEnv = "OPENAI_API_KEY"
)

type Config struct {
	Document     string         `yaml:"document"`
	Query        string         `yaml:"query"`
	PrintJSON    bool           `yaml:"print_json"`
	LogLevel     string         `yaml:"log_level"`
	RAG          RAGConfig      `yaml:"rag"`
	EmbedLLM     LLMConfig      `yaml:"embed_llm"`
	InferenceLLM LLMConfig      `yaml:"inference_llm"`
	Retry        RetryConfig    `yaml:"retry"`
	Database     DatabaseConfig `yaml:"database"`
}

type RAGConfig struct {
	ChunkSize    int    `yaml:"chunk_size"`
	ChunkOverlap int    `yaml:"chunk_overlap"`
	TopK         int    `yaml:"top_k"`
	VectorStore  string `yaml:"vector_store"`
	// EmbedConcurrency bounds in-flight embedding calls while building the index.
	EmbedConcurrency int `yaml:"embed_concurrency"`
	// EmbedRateLimit is requests per second; zero disables limiting.
	EmbedRateLimit float64 `yaml:"embed_rate_limit"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Key         string  `yaml:"key"`
	KeyEnv      string  `yaml:"key_env"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	// temperatureSet keeps an explicit "temperature: 0" from being defaulted.
	temperatureSet bool
}

func (c *LLMConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain LLMConfig
	if err := value.Decode((*plain)(c)); err != nil {
		return err
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		if value.Content[i].Value == "temperature" {
			c.temperatureSet = true
		}
	}
	return nil
}

type RetryConfig struct {
	MaxAttempts     int           `yaml:"max_attempts"`
	InitialInterval time.Duration `yaml:"initial_interval"`
	MaxInterval     time.Duration `yaml:"max_interval"`
}

type DatabaseConfig struct {
	DSN    string `yaml:"dsn"`
	Driver string `yaml:"driver"`
	Debug  bool   `yaml:"debug"`
}

// Enabled reports whether answers should be archived.
func (d DatabaseConfig) Enabled() bool { return d.DSN != "" }

// LoadConfig reads the YAML file at path. A missing file yields the defaults;
// fields the file leaves out get defaults for the provider it selects.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Document == "" {
		cfg.Document = "swiggy.pdf"
	}
	if cfg.Query == "" {
		cfg.Query = "Convert the invoice of purchase as json"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 1000
		if cfg.RAG.ChunkOverlap == 0 {
			cfg.RAG.ChunkOverlap = 200
		}
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 4
	}
	if cfg.RAG.VectorStore == "" {
		cfg.RAG.VectorStore = StoreMemory
	}
	if cfg.RAG.EmbedConcurrency == 0 {
		cfg.RAG.EmbedConcurrency = 4
	}
	llmDefaults(&cfg.EmbedLLM, "text-embedding-ada-002", "nomic-embed-text")
	llmDefaults(&cfg.InferenceLLM, "gpt-4o-mini", "llama3")
	if cfg.InferenceLLM.MaxTokens == 0 {
		cfg.InferenceLLM.MaxTokens = 1000
	}
	if !cfg.InferenceLLM.temperatureSet && cfg.InferenceLLM.Temperature == 0 {
		cfg.InferenceLLM.Temperature = 0.1
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.InitialInterval == 0 {
		cfg.Retry.InitialInterval = 500 * time.Millisecond
	}
	if cfg.Retry.MaxInterval == 0 {
		cfg.Retry.MaxInterval = 10 * time.Second
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPG
	}
}

func llmDefaults(c *LLMConfig, openaiModel, ollamaModel string) {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		switch c.Provider {
		case ProviderOpenAI:
			c.Model = openaiModel
		case ProviderOllama:
			c.Model = ollamaModel
		}
	}
	if c.Provider == ProviderOpenAI && c.KeyEnv == "" {
		c.KeyEnv = defaultKeyEnv
	}
	if c.Provider == ProviderOllama && c.BaseURL == "" {
		c.BaseURL = "http://localhost:11434"
	}
}

// ApplyEnv fills API keys that are not set in the file from the environment
// variables named by key_env. getenv is usually os.Getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	for _, c := range []*LLMConfig{&cfg.EmbedLLM, &cfg.InferenceLLM} {
		if c.Key == "" && c.KeyEnv != "" {
			c.Key = getenv(c.KeyEnv)
		}
	}
}

// Validate checks the values the pipeline depends on.
func (c *Config) Validate() error {
	if c.Document == "" {
		return fmt.Errorf("%w: document path is empty", models.ErrInvalidConfig)
	}
	if c.Query == "" {
		return fmt.Errorf("%w: query is empty", models.ErrInvalidConfig)
	}
	if c.RAG.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", models.ErrInvalidConfig, c.RAG.ChunkSize)
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, %d), got %d",
			models.ErrInvalidConfig, c.RAG.ChunkSize, c.RAG.ChunkOverlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be positive, got %d", models.ErrInvalidConfig, c.RAG.TopK)
	}
	switch c.RAG.VectorStore {
	case StoreMemory, StoreChromem:
	default:
		return fmt.Errorf("%w: unknown vector_store %q", models.ErrInvalidConfig, c.RAG.VectorStore)
	}
	for name, l := range map[string]LLMConfig{"embed_llm": c.EmbedLLM, "inference_llm": c.InferenceLLM} {
		switch l.Provider {
		case ProviderOpenAI, ProviderOllama:
		default:
			return fmt.Errorf("%w: %s: unknown provider %q", models.ErrInvalidConfig, name, l.Provider)
		}
	}
	switch c.Database.Driver {
	case DriverPG, DriverPQ:
	default:
		return fmt.Errorf("%w: unknown database driver %q", models.ErrInvalidConfig, c.Database.Driver)
	}
	return nil
}
