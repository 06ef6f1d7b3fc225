package searcher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/storage"
	"github.com/dshills/reviewrecall/pkg/types"
)

const (
	testProject = "/src/acme"
	testDim     = 8
)

var errServiceDown = errors.New("service down")

func axis(i int) []float32 {
	v := make([]float32, testDim)
	v[i] = 1
	return v
}

func hotAxis(v []float32) int {
	best := -1
	var bestVal float32
	for i, x := range v {
		if x > bestVal {
			best, bestVal = i, x
		}
	}
	return best
}

// axisEmbedder maps known texts onto axes; unknown texts land on the last axis
type axisEmbedder struct {
	mu    sync.Mutex
	texts map[string]int
	fail  map[string]bool
	down  bool
}

func newAxisEmbedder() *axisEmbedder {
	return &axisEmbedder{texts: map[string]int{}, fail: map[string]bool{}}
}

func (e *axisEmbedder) GenerateEmbedding(_ context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.down || e.fail[req.Text] {
		return nil, errServiceDown
	}
	i, ok := e.texts[req.Text]
	if !ok {
		i = testDim - 1
	}
	return &embedder.Embedding{Vector: axis(i), Dimension: testDim}, nil
}

func (e *axisEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	resp := &embedder.BatchEmbeddingResponse{}
	for _, text := range req.Texts {
		emb, err := e.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		resp.Embeddings = append(resp.Embeddings, emb)
	}
	return resp, nil
}

func (e *axisEmbedder) Dimension() int   { return testDim }
func (e *axisEmbedder) Provider() string { return "test" }
func (e *axisEmbedder) Model() string    { return "axes" }
func (e *axisEmbedder) Close() error     { return nil }

// fakeStore answers SearchVector through respond. Methods the searcher does
// not call are left to the embedded nil interface.
type fakeStore struct {
	storage.Storage

	mu      sync.Mutex
	respond func(field types.EmbeddingField, vec []float32) ([]storage.VectorResult, error)
	pingErr error
	preds   []storage.Predicate
	limits  []int
}

func (f *fakeStore) SearchVector(_ context.Context, field types.EmbeddingField, vec []float32, limit int, pred storage.Predicate) ([]storage.VectorResult, error) {
	f.mu.Lock()
	f.preds = append(f.preds, pred)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()

	if f.respond == nil {
		return nil, nil
	}
	return f.respond(field, vec)
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

func result(id string, distance float64) storage.VectorResult {
	return storage.VectorResult{
		Comment: types.Comment{
			ID:          id,
			ProjectPath: testProject,
			Kind:        types.KindInline,
			Body:        "comment " + id,
		},
		Distance: distance,
	}
}

func candidateIDs(cands []types.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Comment.ID
	}
	return out
}

// seedComment stores a comment whose embeddings come from emb
func seedComment(t *testing.T, store storage.Storage, emb embedder.Embedder, c *types.Comment) {
	t.Helper()
	ctx := context.Background()

	var err error
	c.CommentEmbedding, err = embedder.Vector(ctx, emb, c.Body)
	require.NoError(t, err)
	if c.HasCode() {
		c.CodeEmbedding, err = embedder.Vector(ctx, emb, c.OriginalCode+"\n"+c.SuggestedCode)
		require.NoError(t, err)
	}
	c.CombinedEmbedding, err = embedder.Vector(ctx, emb, c.Body+"\n"+c.OriginalCode)
	require.NoError(t, err)

	if c.ProjectPath == "" {
		c.ProjectPath = testProject
	}
	if c.Kind == "" {
		c.Kind = types.KindInline
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	}
	require.NoError(t, store.UpsertComment(ctx, c))
}
