// Package similarity provides the vector and text similarity measures used
// when comparing review comments with code under review.
package similarity

import (
	"math"
	"strings"
	"unicode"
)

// Cosine returns the cosine similarity of a and b in [-1, 1].
// Vectors of different length, empty vectors and zero vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// MaxCosine returns the highest cosine similarity between v and any of others.
func MaxCosine(v []float32, others [][]float32) float64 {
	best := 0.0
	for _, o := range others {
		if s := Cosine(v, o); s > best {
			best = s
		}
	}
	return best
}

// Jaccard returns the word-set overlap of a and b in [0, 1].
func Jaccard(a, b string) float64 {
	wa, wb := wordSet(a), wordSet(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	inter := 0
	for w := range wa {
		if _, ok := wb[w]; ok {
			inter++
		}
	}

	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// Normalize scales v to unit length in place and returns it.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}
