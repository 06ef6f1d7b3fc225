package embedder

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"

	"github.com/dshills/reviewrecall/internal/similarity"
)

// LocalModel names the offline hashing embedder
const LocalModel = "xxh3-feature-hash"

// LocalProvider produces deterministic embeddings offline by hashing word
// and word-bigram features into a fixed number of signed buckets. Texts that
// share vocabulary land close together under cosine similarity.
type LocalProvider struct {
	dimension int
}

// NewLocalProvider creates a hashing embedder with the given dimension
func NewLocalProvider(dimension int) *LocalProvider {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &LocalProvider{dimension: dimension}
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Embedding{
		Vector:    l.embed(req.Text),
		Dimension: l.dimension,
		Provider:  ProviderLocal,
		Model:     LocalModel,
	}, nil
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings := make([]*Embedding, len(req.Texts))
	for i, text := range req.Texts {
		emb, err := l.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   ProviderLocal,
		Model:      LocalModel,
	}, nil
}

func (l *LocalProvider) embed(text string) []float32 {
	vec := make([]float32, l.dimension)
	tokens := tokenize(text)

	add := func(feature string, weight float32) {
		h := xxh3.HashString(feature)
		idx := int(h % uint64(l.dimension))
		if h&(1<<63) != 0 {
			vec[idx] -= weight
		} else {
			vec[idx] += weight
		}
	}

	for i, tok := range tokens {
		add(tok, 1)
		if i > 0 {
			add(tokens[i-1]+" "+tok, 0.5)
		}
	}

	return similarity.Normalize(vec)
}

// tokenize lowercases text and splits it on non-alphanumerics and camelCase boundaries
func tokenize(text string) []string {
	var tokens []string
	var cur strings.Builder
	var prev rune

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if unicode.IsUpper(r) && unicode.IsLower(prev) {
				flush()
			}
			cur.WriteRune(unicode.ToLower(r))
		default:
			flush()
		}
		prev = r
	}
	flush()

	return tokens
}

func (l *LocalProvider) Dimension() int {
	return l.dimension
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return LocalModel
}

func (l *LocalProvider) Close() error {
	return nil
}
