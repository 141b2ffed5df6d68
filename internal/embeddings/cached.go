package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// VectorCache stores embeddings by key. Lookups that fail are misses.
type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

// MemoryCache is an in-process VectorCache with per-entry expiry.
type MemoryCache struct {
	c *cache.Cache
}

// NewMemoryCache creates a MemoryCache. A non-positive ttl keeps entries
// until the process exits.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		return &MemoryCache{c: cache.New(cache.NoExpiration, 0)}
	}
	return &MemoryCache{c: cache.New(ttl, 2*ttl)}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	return v.([]float32), true
}

func (m *MemoryCache) Set(_ context.Context, key string, vec []float32) {
	m.c.SetDefault(key, vec)
}

// CachedEmbedder memoizes embeddings per exact input text. Repeated queries
// for the same goal skip the model call.
type CachedEmbedder struct {
	inner Embedder
	cache VectorCache
}

// NewCachedEmbedder wraps inner with an in-memory TTL cache.
func NewCachedEmbedder(inner Embedder, ttl time.Duration) *CachedEmbedder {
	return NewCachedEmbedderWithStore(inner, NewMemoryCache(ttl))
}

// NewCachedEmbedderWithStore wraps inner with the given cache.
func NewCachedEmbedderWithStore(inner Embedder, store VectorCache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: store}
}

func (c *CachedEmbedder) Name() string {
	return c.inner.Name()
}

func (c *CachedEmbedder) Dimensions() int {
	return c.inner.Dimensions()
}

// Embed serves cached vectors and sends only the misses to the inner
// embedder, in one call.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(ctx, t); ok && len(v) == c.inner.Dimensions() {
			out[i] = v
			continue
		}
		missing = append(missing, t)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, fmt.Errorf("%s returned %d embeddings, expected %d", c.inner.Name(), len(vecs), len(missing))
	}
	for j, v := range vecs {
		out[missingIdx[j]] = v
		c.cache.Set(ctx, missing[j], v)
	}
	return out, nil
}
