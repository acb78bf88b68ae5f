package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	RAG         RAGConfig         `yaml:"rag"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          string `yaml:"provider"` // "openai" or "ollama"
	BaseURL           string `yaml:"base_url"`
	Key               string `yaml:"key"`
	Model             string `yaml:"model"`
	BatchSize         int    `yaml:"batch_size"`
	RequestIntervalMS int    `yaml:"request_interval_ms"`
	RequestTimeoutSec int    `yaml:"request_timeout_sec"`
}

// VectorStoreConfig selects the vector database backend.
type VectorStoreConfig struct {
	Backend          string `yaml:"backend"` // "chromem" or "pgvector"
	Path             string `yaml:"path"`
	InMemory         bool   `yaml:"in_memory"`
	DSN              string `yaml:"dsn"`
	Password         string `yaml:"password"`
	Debug            bool   `yaml:"debug"`
	CollectionPrefix string `yaml:"collection_prefix"`
}

type RAGConfig struct {
	ChunkSize      int     `yaml:"chunk_size"`
	ChunkOverlap   int     `yaml:"chunk_overlap"`
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float32 `yaml:"score_threshold"`
	PreviewMaxLen  int     `yaml:"preview_max_len"`
}

const (
	defaultProvider          = "openai"
	defaultModel             = "text-embedding-3-small"
	defaultBatchSize         = 100
	defaultRequestIntervalMS = 100
	defaultRequestTimeoutSec = 30
	defaultBackend           = "chromem"
	defaultPath              = "./data/vectors"
	defaultCollectionPrefix  = "user_"
	defaultChunkSize         = 1000
	defaultChunkOverlap      = 200
	defaultTopK              = 3
	defaultScoreThreshold    = 0.5
	defaultPreviewMaxLen     = 200
)

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config with every field at its default value.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = defaultProvider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultModel
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = defaultBatchSize
	}
	if c.Embedding.RequestIntervalMS <= 0 {
		c.Embedding.RequestIntervalMS = defaultRequestIntervalMS
	}
	if c.Embedding.RequestTimeoutSec <= 0 {
		c.Embedding.RequestTimeoutSec = defaultRequestTimeoutSec
	}
	if c.VectorStore.Backend == "" {
		c.VectorStore.Backend = defaultBackend
	}
	if c.VectorStore.Path == "" {
		c.VectorStore.Path = defaultPath
	}
	if c.VectorStore.CollectionPrefix == "" {
		c.VectorStore.CollectionPrefix = defaultCollectionPrefix
	}
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 {
		c.RAG.ChunkOverlap = defaultChunkOverlap
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.RAG.ScoreThreshold <= 0 {
		c.RAG.ScoreThreshold = defaultScoreThreshold
	}
	if c.RAG.PreviewMaxLen <= 0 {
		c.RAG.PreviewMaxLen = defaultPreviewMaxLen
	}
}
