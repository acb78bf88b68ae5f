package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ragcore/internal/config"
	"ragcore/internal/models"
)

// fakeProvider returns deterministic vectors and can be told to fail
// whole batches or individual texts.
type fakeProvider struct {
	mu         sync.Mutex
	dim        int
	failBatch  bool
	failTexts  map[string]bool
	batchCalls int
	queryCalls int
}

func newFakeProvider(dim int) *fakeProvider {
	return &fakeProvider{dim: dim, failTexts: map[string]bool{}}
}

func (f *fakeProvider) vector() []float32 {
	v := make([]float32, f.dim)
	v[0] = 1
	return v
}

func (f *fakeProvider) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	if f.failBatch {
		return nil, errors.New("provider rejected batch")
	}
	for _, t := range texts {
		if f.failTexts[t] {
			return nil, errors.New("provider rejected batch")
		}
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vector()
	}
	return out, nil
}

func (f *fakeProvider) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	if f.failTexts[text] {
		return nil, errors.New("provider rejected text")
	}
	return f.vector(), nil
}

func testConfig() *config.EmbeddingConfig {
	return &config.EmbeddingConfig{
		Provider:          "openai",
		Model:             "text-embedding-3-small",
		BatchSize:         100,
		RequestIntervalMS: 1,
		RequestTimeoutSec: 5,
	}
}

func TestEmbedOne_EmptyText(t *testing.T) {
	svc := NewService(newFakeProvider(4), testConfig())

	_, err := svc.EmbedOne(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrEmptyText)

	_, err = svc.EmbedOne(context.Background(), "   \n")
	assert.ErrorIs(t, err, models.ErrEmptyText)
}

func TestEmbedOne(t *testing.T) {
	provider := newFakeProvider(4)
	svc := NewService(provider, testConfig())

	vector, err := svc.EmbedOne(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, vector, 4)
}

func TestEmbedMany_HappyPath(t *testing.T) {
	provider := newFakeProvider(4)
	svc := NewService(provider, testConfig())

	texts := []string{"a", "b", "c"}
	vectors := svc.EmbedMany(context.Background(), texts)

	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Len(t, v, 4, "vector %d", i)
	}
	assert.Equal(t, 1, provider.batchCalls)
	assert.Equal(t, 0, provider.queryCalls)
}

func TestEmbedMany_EmptyInputsGetSentinels(t *testing.T) {
	svc := NewService(newFakeProvider(4), testConfig())

	vectors := svc.EmbedMany(context.Background(), []string{"a", "", "  ", "b"})
	require.Len(t, vectors, 4)
	assert.NotEmpty(t, vectors[0])
	assert.Empty(t, vectors[1])
	assert.Empty(t, vectors[2])
	assert.NotEmpty(t, vectors[3])
}

func TestEmbedMany_PartialFailureRecoversSiblings(t *testing.T) {
	provider := newFakeProvider(4)
	provider.failTexts["item3"] = true
	svc := NewService(provider, testConfig())

	texts := []string{"item1", "item2", "item3", "item4", "item5"}
	vectors := svc.EmbedMany(context.Background(), texts)

	require.Len(t, vectors, 5)
	for i, v := range vectors {
		if i == 2 {
			assert.Empty(t, v, "failing item must yield empty sentinel")
			continue
		}
		assert.Len(t, v, 4, "sibling %d must be recovered per-item", i)
	}
	assert.Equal(t, 1, provider.batchCalls)
	assert.Equal(t, 5, provider.queryCalls)
}

func TestEmbedMany_AllEmpty(t *testing.T) {
	provider := newFakeProvider(4)
	svc := NewService(provider, testConfig())

	vectors := svc.EmbedMany(context.Background(), []string{"", "  "})
	require.Len(t, vectors, 2)
	assert.Empty(t, vectors[0])
	assert.Empty(t, vectors[1])
	assert.Equal(t, 0, provider.batchCalls)
}

func TestEmbedMany_RespectsBatchSize(t *testing.T) {
	provider := newFakeProvider(4)
	cfg := testConfig()
	cfg.BatchSize = 2
	svc := NewService(provider, cfg)

	vectors := svc.EmbedMany(context.Background(), []string{"a", "b", "c", "d", "e"})
	require.Len(t, vectors, 5)
	assert.Equal(t, 3, provider.batchCalls)
}

func TestEmbedMany_ConcurrentCallers(t *testing.T) {
	provider := newFakeProvider(4)
	svc := NewService(provider, testConfig())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vectors := svc.EmbedMany(context.Background(), []string{"x", "y"})
			assert.Len(t, vectors, 2)
		}()
	}
	wg.Wait()
}

func TestRateLimiter_MinimumInterval(t *testing.T) {
	limiter := &rateLimiter{interval: 20 * time.Millisecond}

	limiter.wait()
	start := time.Now()
	limiter.wait()
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

func TestDimension(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"nomic-embed-text", 768},
		{"some-unknown-model", 1536},
	}
	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			cfg := testConfig()
			cfg.Model = tt.model
			svc := NewService(newFakeProvider(4), cfg)
			assert.Equal(t, tt.want, svc.Dimension())
		})
	}
}

func TestHealthCheck(t *testing.T) {
	provider := newFakeProvider(4)
	svc := NewService(provider, testConfig())
	assert.True(t, svc.HealthCheck(context.Background()))

	provider.failTexts["test"] = true
	assert.False(t, svc.HealthCheck(context.Background()))
}

func TestModel(t *testing.T) {
	svc := NewService(newFakeProvider(4), testConfig())
	assert.True(t, strings.HasPrefix(svc.Model(), "text-embedding"))
}
