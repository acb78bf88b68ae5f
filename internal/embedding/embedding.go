package embedding

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"ragcore/internal/config"
	"ragcore/internal/models"
)

// Provider is the outbound embedding call surface. langchaingo's
// embeddings.EmbedderImpl satisfies it for both openai and ollama.
type Provider interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Known embedding dimensions per model. Unknown models fall back to the
// OpenAI small-model dimension.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

const defaultDimension = 1536

// rateLimiter enforces a minimum wall-clock interval between outbound
// provider calls. The shared timestamp is mutex-guarded so concurrent
// pipeline invocations stay correctly spaced.
type rateLimiter struct {
	mu       sync.Mutex
	last     time.Time
	interval time.Duration
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if elapsed := time.Since(r.last); elapsed < r.interval {
		time.Sleep(r.interval - elapsed)
	}
	r.last = time.Now()
}

// Service converts texts into fixed-dimension vectors with batching,
// rate limiting, and per-item recovery of batch failures.
type Service struct {
	provider  Provider
	model     string
	batchSize int
	timeout   time.Duration
	limiter   *rateLimiter
}

func NewService(provider Provider, cfg *config.EmbeddingConfig) *Service {
	return &Service{
		provider:  provider,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		timeout:   time.Duration(cfg.RequestTimeoutSec) * time.Second,
		limiter: &rateLimiter{
			interval: time.Duration(cfg.RequestIntervalMS) * time.Millisecond,
		},
	}
}

// NewProvider builds the configured langchaingo embedder.
func NewProvider(cfg *config.EmbeddingConfig) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	default:
		opts := []openai.Option{
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return embeddings.NewEmbedder(llm)
	}
}

func (s *Service) Model() string { return s.model }

// Dimension returns the vector length produced by the active model.
func (s *Service) Dimension() int {
	if dim, ok := modelDimensions[s.model]; ok {
		return dim
	}
	return defaultDimension
}

// EmbedOne embeds a single text. Empty or whitespace-only input is an
// error.
func (s *Service) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.ErrEmptyText
	}

	s.limiter.wait()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	return s.provider.EmbedQuery(ctx, text)
}

// EmbedMany embeds texts in batches and always returns one vector per
// input, in order. Empty inputs and texts that fail even the per-item
// retry get a nil sentinel vector; EmbedMany itself never fails.
func (s *Service) EmbedMany(ctx context.Context, texts []string) [][]float32 {
	vectors := make([][]float32, len(texts))
	if len(texts) == 0 {
		return vectors
	}

	var validIdx []int
	var validTexts []string
	for i, text := range texts {
		if trimmed := strings.TrimSpace(text); trimmed != "" {
			validIdx = append(validIdx, i)
			validTexts = append(validTexts, trimmed)
		}
	}
	if len(validTexts) == 0 {
		return vectors
	}

	for start := 0; start < len(validTexts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(validTexts) {
			end = len(validTexts)
		}
		batch := validTexts[start:end]
		batchIdx := validIdx[start:end]

		s.limiter.wait()

		batchVectors, err := s.embedBatch(ctx, batch)
		if err == nil && len(batchVectors) == len(batch) {
			for j, vector := range batchVectors {
				vectors[batchIdx[j]] = vector
			}
			continue
		}

		log.Warn().
			Err(err).
			Int("batch_size", len(batch)).
			Msg("Batch embedding failed, retrying items individually")

		// Per-item fallback so one bad input cannot sink its siblings.
		for j, text := range batch {
			s.limiter.wait()

			vector, itemErr := s.embedSingle(ctx, text)
			if itemErr != nil {
				log.Warn().
					Err(itemErr).
					Int("index", batchIdx[j]).
					Msg("Failed to embed text, storing empty sentinel")
				continue
			}
			vectors[batchIdx[j]] = vector
		}
	}

	return vectors
}

func (s *Service) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.EmbedDocuments(ctx, batch)
}

func (s *Service) embedSingle(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.provider.EmbedQuery(ctx, text)
}

// HealthCheck reports whether the provider can embed at all. Errors are
// swallowed into a false result.
func (s *Service) HealthCheck(ctx context.Context) bool {
	_, err := s.EmbedOne(ctx, "test")
	if err != nil {
		log.Debug().Err(err).Msg("Embedding provider not available")
		return false
	}
	return true
}
