package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	stderrors "errors"

	"github.com/kyleking/askdb/internal/cache"
	"github.com/kyleking/askdb/internal/logging"
)

// CachedProvider memoizes another provider's embeddings in a cache keyed by
// provider name and text.
type CachedProvider struct {
	inner Provider
	cache cache.Cache
}

// NewCachedProvider wraps inner with c
func NewCachedProvider(inner Provider, c cache.Cache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: c}
}

// GenerateEmbedding returns the cached vector or computes and stores it
func (p *CachedProvider) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	key := p.key(text)

	data, err := p.cache.Get(ctx, key)
	if err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal(data, &vec); jsonErr == nil && len(vec) == p.inner.GetDimensions() {
			return vec, nil
		}

		logging.WithField("provider", p.inner.GetName()).Debug("Discarding unusable cached embedding")
	} else if !stderrors.Is(err, cache.ErrMiss) {
		logging.WithError(err).Debug("Embedding cache read failed")
	}

	vec, err := p.inner.GenerateEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(vec); err == nil {
		if err := p.cache.Set(ctx, key, data, 0); err != nil {
			logging.WithError(err).Debug("Embedding cache write failed")
		}
	}

	return vec, nil
}

func (p *CachedProvider) key(text string) string {
	sum := sha256.Sum256([]byte(p.inner.GetName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

func (p *CachedProvider) GetDimensions() int {
	return p.inner.GetDimensions()
}

func (p *CachedProvider) IsEnabled() bool {
	return p.inner.IsEnabled()
}

func (p *CachedProvider) GetName() string {
	return p.inner.GetName()
}
