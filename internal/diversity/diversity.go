// Package diversity trims a ranked candidate list to a limit while
// suppressing near-duplicates and over-represented authors and files.
package diversity

import (
	"sort"

	"github.com/dshills/reviewrecall/internal/similarity"
	"github.com/dshills/reviewrecall/pkg/types"
)

// Selection defaults
const (
	DefaultMaxSimilarity  = 0.85
	DefaultMaxPerAuthor   = 2
	DefaultMaxPerFile     = 3
	DefaultForcedProgress = 0.7
)

// Selector holds the diversity constraints
type Selector struct {
	// MaxSimilarity rejects a candidate whose embedding is closer than this
	// to any accepted candidate
	MaxSimilarity float64
	MaxPerAuthor  int
	MaxPerFile    int
	// ForcedProgress is the fraction of limit below which the author and
	// file quotas are not enforced
	ForcedProgress float64
}

// NewSelector returns a Selector with the default constraints
func NewSelector() *Selector {
	return &Selector{
		MaxSimilarity:  DefaultMaxSimilarity,
		MaxPerAuthor:   DefaultMaxPerAuthor,
		MaxPerFile:     DefaultMaxPerFile,
		ForcedProgress: DefaultForcedProgress,
	}
}

// Select picks up to limit candidates from ranked using the default constraints
func Select(ranked []types.Candidate, limit int) []types.Candidate {
	return NewSelector().Select(ranked, limit)
}

// Select picks up to limit candidates from ranked. Input no longer than
// limit is returned unchanged. Otherwise a greedy pass accepts candidates
// that satisfy the constraints, and any remaining slots are filled with the
// best rejected candidates. The output keeps the input's rank order.
func (s *Selector) Select(ranked []types.Candidate, limit int) []types.Candidate {
	if limit <= 0 {
		return []types.Candidate{}
	}
	if len(ranked) <= limit {
		return ranked
	}

	accepted := make([]int, 0, limit)
	taken := make([]bool, len(ranked))
	perAuthor := make(map[string]int)
	perFile := make(map[string]int)
	waiveBelow := s.ForcedProgress * float64(limit)

	for i, c := range ranked {
		if len(accepted) >= limit {
			break
		}
		if s.nearDuplicate(c, ranked, accepted) {
			continue
		}

		if float64(len(accepted)) >= waiveBelow {
			author, file := c.Comment.Author, c.Comment.FilePath
			if author != "" && perAuthor[author] >= s.MaxPerAuthor {
				continue
			}
			if file != "" && perFile[file] >= s.MaxPerFile {
				continue
			}
		}

		accepted = append(accepted, i)
		taken[i] = true
		perAuthor[c.Comment.Author]++
		perFile[c.Comment.FilePath]++
	}

	for i := range ranked {
		if len(accepted) >= limit {
			break
		}
		if !taken[i] {
			accepted = append(accepted, i)
			taken[i] = true
		}
	}

	sort.Ints(accepted)
	out := make([]types.Candidate, len(accepted))
	for j, i := range accepted {
		out[j] = ranked[i]
	}
	return out
}

func (s *Selector) nearDuplicate(c types.Candidate, ranked []types.Candidate, accepted []int) bool {
	vec := c.Vector()
	if len(vec) == 0 {
		return false
	}
	for _, i := range accepted {
		if similarity.Cosine(vec, ranked[i].Vector()) > s.MaxSimilarity {
			return true
		}
	}
	return false
}
