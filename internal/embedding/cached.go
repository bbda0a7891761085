package embedding

import (
	"context"

	"github.com/hyperjump/intently/internal/metrics"
)

// CachedEmbedder consults a Cache before delegating to the inner embedder.
type CachedEmbedder struct {
	inner   Embedder
	cache   Cache
	backend string
}

// NewCachedEmbedder wraps inner with cache. backend labels the cache in metrics ("memory", "redis").
func NewCachedEmbedder(inner Embedder, cache Cache, backend string) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache, backend: backend}
}

// Embed returns a cached embedding or calls the inner embedder and caches the result.
// Cached vectors are copied so callers may modify what they receive.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(ctx, text); ok && len(vec) == c.inner.Dimensions() {
		metrics.EmbeddingCacheTotal.WithLabelValues(c.backend, "hit").Inc()
		return append([]float32(nil), vec...), nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues(c.backend, "miss").Inc()

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(ctx, text, append([]float32(nil), vec...))
	return vec, nil
}

// EmbedBatch calls Embed for each text so every item goes through the cache.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return embedEach(ctx, c, texts)
}

// Dimensions returns the inner embedder's dimension.
func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Close closes the inner embedder and, if it has one, the cache.
func (c *CachedEmbedder) Close() error {
	err := c.inner.Close()
	if closer, ok := c.cache.(interface{ Close() }); ok {
		closer.Close()
	}
	return err
}
