package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/askdb/internal/cache"
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
)

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}

	return sum
}

func TestHashProviderDeterministicAndNormalized(t *testing.T) {
	p := NewHashProvider(64)
	ctx := context.Background()

	a, err := p.GenerateEmbedding(ctx, "stock_prices: close price by date")
	require.NoError(t, err)

	b, err := p.GenerateEmbedding(ctx, "stock_prices: close price by date")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.InDelta(t, 1.0, math.Sqrt(dot(a, a)), 1e-5)
}

func TestHashProviderRanksOverlap(t *testing.T) {
	p := NewHashProvider(384)
	ctx := context.Background()

	query, _ := p.GenerateEmbedding(ctx, "average close price per symbol")
	prices, _ := p.GenerateEmbedding(ctx, "stock_prices: symbol date close_price volume")
	tickers, _ := p.GenerateEmbedding(ctx, "tickers: sector name")

	assert.Greater(t, dot(query, prices), dot(query, tickers))
}

func TestHashProviderEmptyText(t *testing.T) {
	vec, err := NewHashProvider(8).GenerateEmbedding(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, make([]float32, 8), vec)
}

func TestHashProviderMetadata(t *testing.T) {
	p := NewHashProvider(16)

	assert.Equal(t, 16, p.GetDimensions())
	assert.True(t, p.IsEnabled())
	assert.Equal(t, "hash", p.GetName())
	assert.False(t, NewHashProvider(0).IsEnabled())
}

func TestOllamaProviderGenerateEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req ollamaEmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "all-minilm", req.Model)
		assert.Equal(t, "tickers", req.Prompt)

		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	p := NewOllamaProvider(server.URL+"/", "all-minilm", 3, 5*time.Second)

	vec, err := p.GenerateEmbedding(context.Background(), "tickers")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "ollama:all-minilm", p.GetName())
	assert.True(t, p.IsEnabled())
}

func TestOllamaProviderDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{0.1}})
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "all-minilm", 3, time.Second).
		GenerateEmbedding(context.Background(), "x")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeEmbedding))
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestOllamaProviderHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewOllamaProvider(server.URL, "missing", 3, time.Second).
		GenerateEmbedding(context.Background(), "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestOllamaProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewOllamaProvider(url, "all-minilm", 3, time.Second).
		GenerateEmbedding(context.Background(), "x")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeNetwork))
}

type countingProvider struct {
	*HashProvider
	calls int
}

func (p *countingProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	p.calls++
	return p.HashProvider.GenerateEmbedding(ctx, text)
}

func TestCachedProviderMemoizes(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir(), time.Hour)
	require.NoError(t, err)

	inner := &countingProvider{HashProvider: NewHashProvider(32)}
	p := NewCachedProvider(inner, fc)
	ctx := context.Background()

	first, err := p.GenerateEmbedding(ctx, "tickers: sector name")
	require.NoError(t, err)

	second, err := p.GenerateEmbedding(ctx, "tickers: sector name")
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(ctx, "stock_prices")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 32, p.GetDimensions())
	assert.Equal(t, "hash", p.GetName())
	assert.True(t, p.IsEnabled())
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.EmbeddingConfig{Provider: "hash", Dimensions: 16})
	require.NoError(t, err)
	assert.IsType(t, &HashProvider{}, p)

	p, err = NewProvider(config.EmbeddingConfig{
		Provider:      "ollama",
		Model:         "all-minilm",
		Dimensions:    384,
		CacheDir:      filepath.Join(t.TempDir(), "emb"),
		CacheTTLHours: 1,
	})
	require.NoError(t, err)
	assert.IsType(t, &CachedProvider{}, p)
	assert.Equal(t, "ollama:all-minilm", p.GetName())

	_, err = NewProvider(config.EmbeddingConfig{Provider: "cohere", Dimensions: 16})
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	_, err = NewProvider(config.EmbeddingConfig{Provider: "hash", Dimensions: 0})
	assert.Error(t, err)
}

func TestDisabledProvider(t *testing.T) {
	var p Provider = DisabledProvider{}

	_, err := p.GenerateEmbedding(context.Background(), "x")
	assert.Error(t, err)
	assert.False(t, p.IsEnabled())
	assert.Equal(t, "disabled", p.GetName())
}
