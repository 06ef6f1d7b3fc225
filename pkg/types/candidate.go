package types

// SearchStrategy identifies which query produced a candidate
type SearchStrategy string

const (
	StrategyComment      SearchStrategy = "comment"
	StrategyCombined     SearchStrategy = "combined"
	StrategyChunkComment SearchStrategy = "chunk_comment"
	StrategyChunkCode    SearchStrategy = "chunk_code"
)

// IsChunkBased reports whether the strategy searched with a chunk embedding
func (s SearchStrategy) IsChunkBased() bool {
	return s == StrategyChunkComment || s == StrategyChunkCode
}

// Scores holds every score a candidate can accumulate. Zero means not computed.
type Scores struct {
	Semantic float64 `json:"semantic"`
	Context  float64 `json:"context"`
	Quality  float64 `json:"quality"`
	Recency  float64 `json:"recency"`

	CodeMatch        float64 `json:"code_match"`
	PathSimilarity   float64 `json:"path_similarity"`
	ContentRelevance float64 `json:"content_relevance"`
	SearchTypeBonus  float64 `json:"search_type_bonus"`

	Generic         float64 `json:"generic"`
	BotLikelihood   float64 `json:"bot_likelihood"`
	TestRelatedness float64 `json:"test_relatedness"`

	Final float64 `json:"final"`
}

// Candidate is a comment under consideration during one retrieval call
type Candidate struct {
	Comment  Comment        `json:"comment"`
	Strategy SearchStrategy `json:"strategy"`
	Chunk    *CodeChunk     `json:"chunk,omitempty"` // Matched chunk, nil for whole-query strategies
	Distance float64        `json:"distance"`        // Lower is more similar
	Scores   Scores         `json:"scores"`
}

// Similarity converts the stored distance into a similarity
func (c Candidate) Similarity() float64 {
	return 1 - c.Distance
}

// Priority reports whether the candidate was matched through a function_context chunk
func (c Candidate) Priority() bool {
	return c.Chunk != nil && c.Chunk.IsPriority()
}

// WithScores returns a copy of the candidate carrying s
func (c Candidate) WithScores(s Scores) Candidate {
	c.Scores = s
	return c
}

// Vector returns the embedding used to compare candidates with each other.
// The comment embedding is preferred, then combined, then code.
func (c Candidate) Vector() []float32 {
	for _, field := range []EmbeddingField{FieldComment, FieldCombined, FieldCode} {
		if v := c.Comment.Embedding(field); len(v) > 0 {
			return v
		}
	}
	return nil
}
