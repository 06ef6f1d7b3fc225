package embedder

import (
	"context"
	"fmt"
)

// CachedEmbedder consults a Cache before delegating to another Embedder
type CachedEmbedder struct {
	inner Embedder
	cache *Cache
}

// NewCached wraps inner with cache. A nil cache gets a default-sized one.
func NewCached(inner Embedder, cache *Cache) *CachedEmbedder {
	if cache == nil {
		cache = NewCache(DefaultCacheSize)
	}
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Cache returns the underlying cache
func (c *CachedEmbedder) Cache() *Cache {
	return c.cache
}

func (c *CachedEmbedder) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	if vec, ok := c.cache.Get(req.Text); ok {
		return c.wrap(vec), nil
	}

	emb, err := c.inner.GenerateEmbedding(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.Set(req.Text, emb.Vector)

	return emb, nil
}

func (c *CachedEmbedder) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	out := make([]*Embedding, len(req.Texts))
	var missing []string
	var missingIdx []int
	for i, text := range req.Texts {
		if vec, ok := c.cache.Get(text); ok {
			out[i] = c.wrap(vec)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	model := c.inner.Model()
	if len(missing) > 0 {
		resp, err := c.inner.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: missing, Model: req.Model})
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != len(missing) {
			return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrProviderFailed, len(resp.Embeddings), len(missing))
		}
		for j, emb := range resp.Embeddings {
			out[missingIdx[j]] = emb
			c.cache.Set(missing[j], emb.Vector)
		}
		model = resp.Model
	}

	return &BatchEmbeddingResponse{
		Embeddings: out,
		Provider:   c.inner.Provider(),
		Model:      model,
	}, nil
}

func (c *CachedEmbedder) wrap(vec []float32) *Embedding {
	return &Embedding{
		Vector:    vec,
		Dimension: len(vec),
		Provider:  c.inner.Provider(),
		Model:     c.inner.Model(),
	}
}

func (c *CachedEmbedder) Dimension() int {
	return c.inner.Dimension()
}

func (c *CachedEmbedder) Provider() string {
	return c.inner.Provider()
}

func (c *CachedEmbedder) Model() string {
	return c.inner.Model()
}

func (c *CachedEmbedder) Close() error {
	return c.inner.Close()
}
