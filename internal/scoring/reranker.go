package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/logging"
	"github.com/dshills/reviewrecall/internal/similarity"
	"github.com/dshills/reviewrecall/pkg/types"
)

// Strategy selects the final-score formula
type Strategy string

const (
	// StrategyContextual weights semantic, context, quality and recency scores
	StrategyContextual Strategy = "contextual"
	// StrategyChunk favours code-chunk matches
	StrategyChunk Strategy = "chunk"
)

// Valid reports whether s names a known formula
func (s Strategy) Valid() bool {
	return s == StrategyContextual || s == StrategyChunk
}

// ParseStrategy maps a name onto a Strategy. Empty selects StrategyContextual.
func ParseStrategy(name string) (Strategy, error) {
	s := Strategy(strings.ToLower(strings.TrimSpace(name)))
	if s == "" {
		return StrategyContextual, nil
	}
	if !s.Valid() {
		return "", fmt.Errorf("unknown strategy %q (want %s or %s)", name, StrategyContextual, StrategyChunk)
	}
	return s, nil
}

// Contextual weights
const (
	WeightSemantic = 0.3
	WeightContext  = 0.4
	WeightQuality  = 0.2
	WeightRecency  = 0.1
)

// Chunk formula constants
const (
	WeightBase = 0.4

	ChunkMatchBonus      = 0.5
	ChunkPriorityWeight  = 0.3
	FunctionContextBonus = 0.2
	SnippetVectorScale   = 0.3
	SnippetOverlapScale  = 0.2
	MaxCompareChunks     = 5

	PathScale = 0.15

	SnippetRelevance = 0.2
	BodyRelevance    = 0.1
	BodyRelevanceLen = 50

	ChunkStrategyBonus    = 0.4
	CommentStrategyBonus  = 0.1
	CombinedStrategyBonus = 0.05
	KeywordBonus          = 0.15
)

// Reranker computes final scores and orders candidates
type Reranker struct {
	emb      embedder.Embedder
	keywords []string
	logger   *slog.Logger
}

// NewReranker creates a reranker. emb is used by the chunk formula to compare
// code snippets with target chunks.
func NewReranker(emb embedder.Embedder, logger *slog.Logger) *Reranker {
	return &Reranker{
		emb:      emb,
		keywords: DefaultKeywords,
		logger:   logging.OrDiscard(logger),
	}
}

// Threshold drops candidates whose similarity is below minSimilarity
func Threshold(cands []types.Candidate, minSimilarity float64) []types.Candidate {
	out := make([]types.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Similarity() >= minSimilarity {
			out = append(out, c)
		}
	}
	return out
}

// Rerank returns cands with Final set, sorted by Final descending. Ties keep
// their input order.
func (r *Reranker) Rerank(ctx context.Context, cands []types.Candidate, strategy Strategy, target Target) []types.Candidate {
	out := make([]types.Candidate, len(cands))

	switch strategy {
	case StrategyChunk:
		chunkVecs := r.chunkVectors(ctx, target.Chunks)
		for i, c := range cands {
			out[i] = r.chunkScore(ctx, c, target, chunkVecs)
		}
	default:
		for i, c := range cands {
			out[i] = contextualScore(c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Scores.Final > out[j].Scores.Final
	})
	return out
}

func contextualScore(c types.Candidate) types.Candidate {
	s := c.Scores
	s.Final = s.Semantic*WeightSemantic +
		s.Context*WeightContext +
		s.Quality*WeightQuality +
		s.Recency*WeightRecency
	return c.WithScores(s)
}

type chunkVector struct {
	content string
	vector  []float32 // nil when embedding failed
}

func (r *Reranker) chunkVectors(ctx context.Context, chunks []types.CodeChunk) []chunkVector {
	n := min(len(chunks), MaxCompareChunks)
	out := make([]chunkVector, 0, n)
	for _, ch := range chunks[:n] {
		vec, err := embedder.Vector(ctx, r.emb, ch.Content)
		if err != nil {
			r.logger.Debug("chunk embedding failed", "start_line", ch.StartLine, "error", err)
		}
		out = append(out, chunkVector{content: ch.Content, vector: vec})
	}
	return out
}

func (r *Reranker) chunkScore(ctx context.Context, c types.Candidate, target Target, chunkVecs []chunkVector) types.Candidate {
	s := c.Scores
	base := c.Similarity()
	if s.Semantic == 0 {
		s.Semantic = base
	}

	s.CodeMatch = r.codeMatch(ctx, c, chunkVecs)
	s.PathSimilarity = PathSimilarity(c.Comment.FilePath, target.Path) * PathScale
	s.ContentRelevance = contentRelevance(&c.Comment)
	s.SearchTypeBonus = r.searchTypeBonus(c)

	s.Final = base*WeightBase + s.CodeMatch + s.PathSimilarity + s.ContentRelevance + s.SearchTypeBonus
	return c.WithScores(s)
}

func (r *Reranker) codeMatch(ctx context.Context, c types.Candidate, chunkVecs []chunkVector) float64 {
	if c.Strategy.IsChunkBased() && c.Chunk != nil {
		score := ChunkMatchBonus + ChunkPriorityWeight*c.Chunk.PriorityWeight()
		if c.Chunk.IsPriority() {
			score += FunctionContextBonus
		}
		return score
	}
	if c.Strategy.IsChunkBased() {
		return ChunkMatchBonus
	}

	snippets := c.Comment.CodeSnippets()
	if len(snippets) == 0 || len(chunkVecs) == 0 {
		return 0
	}

	vecs := make([][]float32, 0, len(chunkVecs))
	for _, cv := range chunkVecs {
		if cv.vector != nil {
			vecs = append(vecs, cv.vector)
		}
	}

	var best float64
	if len(vecs) > 0 {
		embedded := false
		for _, snippet := range snippets {
			vec, err := embedder.Vector(ctx, r.emb, snippet)
			if err != nil {
				continue
			}
			embedded = true
			best = max(best, similarity.MaxCosine(vec, vecs))
		}
		if embedded {
			return best * SnippetVectorScale
		}
	}

	for _, snippet := range snippets {
		for _, cv := range chunkVecs {
			best = max(best, similarity.Jaccard(snippet, cv.content))
		}
	}
	return best * SnippetOverlapScale
}

func contentRelevance(c *types.Comment) float64 {
	var score float64
	if c.HasCode() {
		score += SnippetRelevance
	}
	if len([]rune(c.Body)) > BodyRelevanceLen {
		score += BodyRelevance
	}
	return score
}

func (r *Reranker) searchTypeBonus(c types.Candidate) float64 {
	var bonus float64
	switch {
	case c.Strategy.IsChunkBased():
		bonus = ChunkStrategyBonus
	case c.Strategy == types.StrategyComment:
		bonus = CommentStrategyBonus
	case c.Strategy == types.StrategyCombined:
		bonus = CombinedStrategyBonus
	}

	body := strings.ToLower(c.Comment.Body)
	for _, kw := range r.keywords {
		if strings.Contains(body, kw) {
			bonus += KeywordBonus
			break
		}
	}
	return bonus
}

// PathSimilarity is the number of leading path segments a and b share
// divided by their average depth. Either path empty yields 0.
func PathSimilarity(a, b string) float64 {
	sa, sb := segments(a), segments(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	common := 0
	for common < len(sa) && common < len(sb) && sa[common] == sb[common] {
		common++
	}
	avg := float64(len(sa)+len(sb)) / 2
	return float64(common) / avg
}

func segments(p string) []string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return nil
	}
	p = strings.Trim(path.Clean(p), "/")
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, "/")
}
