package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 100, cfg.Embedding.BatchSize)
	assert.Equal(t, 100, cfg.Embedding.RequestIntervalMS)
	assert.Equal(t, 30, cfg.Embedding.RequestTimeoutSec)
	assert.Equal(t, "chromem", cfg.VectorStore.Backend)
	assert.Equal(t, "./data/vectors", cfg.VectorStore.Path)
	assert.Equal(t, "user_", cfg.VectorStore.CollectionPrefix)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, float32(0.5), cfg.RAG.ScoreThreshold)
	assert.Equal(t, 200, cfg.RAG.PreviewMaxLen)
}

func TestLoadConfig(t *testing.T) {
	yamlContent := `
embedding:
  provider: ollama
  base_url: http://localhost:11434
  model: nomic-embed-text
vector_store:
  backend: pgvector
  dsn: postgres://postgres@localhost:5432/ragcore
rag:
  chunk_size: 500
  top_k: 5
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.BaseURL)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "pgvector", cfg.VectorStore.Backend)
	assert.Equal(t, "postgres://postgres@localhost:5432/ragcore", cfg.VectorStore.DSN)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 5, cfg.RAG.TopK)

	// Omitted fields still pick up defaults.
	assert.Equal(t, 100, cfg.Embedding.BatchSize)
	assert.Equal(t, 200, cfg.RAG.ChunkOverlap)
	assert.Equal(t, float32(0.5), cfg.RAG.ScoreThreshold)
	assert.Equal(t, "user_", cfg.VectorStore.CollectionPrefix)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedding: [not a map"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
