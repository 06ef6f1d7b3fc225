package storage

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/dshills/reviewrecall/internal/similarity"
	"github.com/dshills/reviewrecall/pkg/types"
)

// rankByDistance scores comments against query in Go, skipping comments
// whose stored vector is absent or has a different length. Results are
// ordered by ascending distance with ID as tie-breaker.
func rankByDistance(comments []*types.Comment, field types.EmbeddingField, query []float32, limit int) []VectorResult {
	results := make([]VectorResult, 0, len(comments))
	for _, c := range comments {
		vec := c.Embedding(field)
		if len(vec) == 0 || len(vec) != len(query) {
			continue
		}
		results = append(results, VectorResult{
			Comment:  *c,
			Distance: 1 - similarity.Cosine(query, vec),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].Comment.ID < results[j].Comment.ID
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	if len(vector) == 0 {
		return nil
	}
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	if len(blob) == 0 {
		return nil
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		bits := binary.LittleEndian.Uint32(blob[i*4:])
		vector[i] = math.Float32frombits(bits)
	}
	return vector
}
