package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reviewrecall/internal/similarity"
)

func TestLocalProvider(t *testing.T) {
	ctx := context.Background()
	p := NewLocalProvider(0)

	t.Run("default dimension", func(t *testing.T) {
		assert.Equal(t, DefaultDimension, p.Dimension())
		emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "check the error"})
		require.NoError(t, err)
		assert.Len(t, emb.Vector, DefaultDimension)
		assert.Equal(t, ProviderLocal, emb.Provider)
	})

	t.Run("deterministic", func(t *testing.T) {
		a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "sql injection in query builder"})
		require.NoError(t, err)
		b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "sql injection in query builder"})
		require.NoError(t, err)
		assert.Equal(t, a.Vector, b.Vector)
	})

	t.Run("unit length", func(t *testing.T) {
		emb, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "close the response body"})
		require.NoError(t, err)
		assert.InDelta(t, 1.0, similarity.Cosine(emb.Vector, emb.Vector), 1e-6)
	})

	t.Run("shared vocabulary is closer", func(t *testing.T) {
		base, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "the database query is not parameterized"})
		near, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "parameterized database query please"})
		far, _ := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "nice work, looks good to me"})

		assert.Greater(t, similarity.Cosine(base.Vector, near.Vector), similarity.Cosine(base.Vector, far.Vector))
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := p.GenerateEmbedding(ctx, EmbeddingRequest{})
		assert.ErrorIs(t, err, ErrEmptyText)
	})

	t.Run("batch", func(t *testing.T) {
		resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{"a b", "c d"}})
		require.NoError(t, err)
		assert.Len(t, resp.Embeddings, 2)
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.GenerateEmbedding(cctx, EmbeddingRequest{Text: "x"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"get", "user", "by", "id"}, tokenize("getUserByID"))
	assert.Equal(t, []string{"rows", "close"}, tokenize("rows.Close()"))
	assert.Empty(t, tokenize("  ...  "))
}
