package diversity

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reviewrecall/internal/similarity"
	"github.com/dshills/reviewrecall/pkg/types"
)

func vec(values ...float32) []float32 { return values }

func cand(id, author, file string, embedding []float32) types.Candidate {
	return types.Candidate{Comment: types.Comment{
		ID:               id,
		Author:           author,
		FilePath:         file,
		CommentEmbedding: embedding,
	}}
}

func ids(cands []types.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Comment.ID
	}
	return out
}

func TestSelectShortInputUnchanged(t *testing.T) {
	in := []types.Candidate{
		cand("a", "x", "f.go", vec(1, 0)),
		cand("b", "x", "f.go", vec(1, 0)),
	}
	assert.Equal(t, in, Select(in, 2))
	assert.Equal(t, in, Select(in, 5))
}

func TestSelectZeroLimit(t *testing.T) {
	in := []types.Candidate{cand("a", "x", "f.go", nil)}
	assert.Empty(t, Select(in, 0))
}

func TestSelectNearDuplicates(t *testing.T) {
	in := []types.Candidate{
		cand("a", "u1", "a.go", vec(1, 0, 0)),
		cand("a-dup", "u2", "b.go", vec(0.99, 0.1, 0)),
		cand("b", "u3", "c.go", vec(0, 1, 0)),
		cand("c", "u4", "d.go", vec(0, 0, 1)),
	}
	out := Select(in, 3)
	assert.Equal(t, []string{"a", "b", "c"}, ids(out))
}

func TestSelectFillsWithRejected(t *testing.T) {
	in := []types.Candidate{
		cand("a", "u1", "a.go", vec(1, 0)),
		cand("a2", "u2", "b.go", vec(1, 0)),
		cand("a3", "u3", "c.go", vec(1, 0)),
		cand("b", "u4", "d.go", vec(0, 1)),
	}
	out := Select(in, 3)
	// Only a and b pass the greedy pass; a2 is the best rejected candidate.
	assert.Equal(t, []string{"a", "a2", "b"}, ids(out))
}

func TestSelectAuthorQuota(t *testing.T) {
	var in []types.Candidate
	for i := 0; i < 6; i++ {
		v := make([]float32, 10)
		v[i] = 1
		in = append(in, cand(fmt.Sprintf("same-%d", i), "alice", fmt.Sprintf("f%d.go", i), v))
	}
	for i := 6; i < 10; i++ {
		v := make([]float32, 10)
		v[i] = 1
		in = append(in, cand(fmt.Sprintf("other-%d", i), fmt.Sprintf("user%d", i), fmt.Sprintf("f%d.go", i), v))
	}

	out := Select(in, 5)
	require.Len(t, out, 5)
	// Quotas are waived until 0.7*5 = 3.5 accepted, so the first four of
	// alice's comments are taken; then alice is over quota.
	assert.Equal(t, []string{"same-0", "same-1", "same-2", "same-3", "other-6"}, ids(out))
}

func TestSelectFileQuota(t *testing.T) {
	var in []types.Candidate
	for i := 0; i < 8; i++ {
		v := make([]float32, 8)
		v[i] = 1
		file := "hot.go"
		if i >= 5 {
			file = fmt.Sprintf("cold%d.go", i)
		}
		in = append(in, cand(fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i), file, v))
	}

	sel := NewSelector()
	sel.ForcedProgress = 0
	out := sel.Select(in, 5)
	assert.Equal(t, []string{"c0", "c1", "c2", "c5", "c6"}, ids(out))
}

func TestSelectDiversityBound(t *testing.T) {
	var in []types.Candidate
	for i := 0; i < 30; i++ {
		v := make([]float32, 4)
		v[i%4] = 1
		v[(i+1)%4] = float32(i%3) * 0.2
		in = append(in, cand(fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i), fmt.Sprintf("f%d.go", i), v))
	}

	sel := NewSelector()
	limit := 10
	out := sel.Select(in, limit)
	require.Len(t, out, limit)

	// Replay the greedy pass: every accepted candidate that passed the
	// near-duplicate check must be dissimilar from those before it.
	var greedy []types.Candidate
	for _, c := range in {
		dup := false
		for _, g := range greedy {
			if similarity.Cosine(c.Vector(), g.Vector()) > sel.MaxSimilarity {
				dup = true
				break
			}
		}
		if !dup {
			greedy = append(greedy, c)
		}
	}
	for i := range greedy {
		for j := i + 1; j < len(greedy); j++ {
			assert.LessOrEqual(t, similarity.Cosine(greedy[i].Vector(), greedy[j].Vector()), sel.MaxSimilarity)
		}
	}
}

func TestSelectPreservesRankOrder(t *testing.T) {
	var in []types.Candidate
	for i := 0; i < 12; i++ {
		in = append(in, cand(fmt.Sprintf("c%02d", i), "same", "same.go", vec(1, 0)))
	}
	out := Select(in, 4)
	assert.Equal(t, []string{"c00", "c01", "c02", "c03"}, ids(out))
}

func TestSelectDeterministic(t *testing.T) {
	var in []types.Candidate
	for i := 0; i < 20; i++ {
		in = append(in, cand(fmt.Sprintf("c%d", i), fmt.Sprintf("u%d", i%3), fmt.Sprintf("f%d.go", i%4), vec(float32(i%5), 1)))
	}
	assert.Equal(t, ids(Select(in, 7)), ids(Select(in, 7)))
}
