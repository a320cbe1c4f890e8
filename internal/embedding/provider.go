package embedding

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kyleking/askdb/internal/cache"
	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/errors"
)

// Provider defines the interface for embedding providers
type Provider interface {
	// GenerateEmbedding generates an embedding for the given text
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)

	// GetDimensions returns the dimensionality of embeddings produced by this provider
	GetDimensions() int

	// IsEnabled returns whether the provider is enabled and ready to use
	IsEnabled() bool

	// GetName returns the provider name for identification
	GetName() string
}

// NewProvider builds the provider selected by cfg, wrapped with a file cache
// when a cache directory is configured.
func NewProvider(cfg config.EmbeddingConfig) (Provider, error) {
	var provider Provider

	switch strings.ToLower(cfg.Provider) {
	case "", "hash":
		provider = NewHashProvider(cfg.Dimensions)
	case "ollama":
		provider = NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Dimensions, 60*time.Second)
	default:
		return nil, errors.Newf(errors.ErrTypeConfig, "unsupported embedding provider: %s", cfg.Provider)
	}

	if provider.GetDimensions() <= 0 {
		return nil, errors.Newf(errors.ErrTypeConfig, "embedding dimensions must be positive: %d", cfg.Dimensions)
	}

	if cfg.CacheDir == "" {
		return provider, nil
	}

	fc, err := cache.NewFileCache(cfg.CacheDir, time.Duration(cfg.CacheTTLHours)*time.Hour)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeFileSystem, "failed to open embedding cache")
	}

	return NewCachedProvider(provider, fc), nil
}

func checkDimensions(p Provider, vec []float32) error {
	if len(vec) != p.GetDimensions() {
		return errors.Newf(errors.ErrTypeEmbedding, "dimension mismatch from %s: expected %d, got %d",
			p.GetName(), p.GetDimensions(), len(vec))
	}

	return nil
}

// DisabledProvider is a no-op provider for when embeddings are disabled
type DisabledProvider struct{}

func (DisabledProvider) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, fmt.Errorf("embedding provider is disabled")
}

func (DisabledProvider) GetDimensions() int {
	return 0
}

func (DisabledProvider) IsEnabled() bool {
	return false
}

func (DisabledProvider) GetName() string {
	return "disabled"
}
