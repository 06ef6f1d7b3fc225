package scoring

import (
	"context"
	"fmt"

	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/similarity"
)

// References holds the embeddings of every reference phrase
type References struct {
	Technical  []float32
	Generic    []float32
	Suggestion []float32
	Bot        []float32
	Human      []float32
	BotAuthor  []float32
	Test       []float32

	Areas        []LabeledVector
	Technologies []LabeledVector
}

// LabeledVector is the embedding of a named phrase
type LabeledVector struct {
	Name   string
	Vector []float32
}

// EmbedReferences embeds every reference phrase with emb
func EmbedReferences(ctx context.Context, emb embedder.Embedder) (*References, error) {
	refs := &References{}

	single := []struct {
		dst  *[]float32
		text string
	}{
		{&refs.Technical, PhraseTechnical},
		{&refs.Generic, PhraseGeneric},
		{&refs.Suggestion, PhraseSuggestion},
		{&refs.Bot, PhraseBot},
		{&refs.Human, PhraseHuman},
		{&refs.BotAuthor, PhraseBotAuthor},
		{&refs.Test, PhraseTest},
	}
	for _, s := range single {
		vec, err := embedder.Vector(ctx, emb, s.text)
		if err != nil {
			return nil, fmt.Errorf("reference phrase: %w", err)
		}
		*s.dst = vec
	}

	var err error
	if refs.Areas, err = embedPhrases(ctx, emb, AreaPhrases); err != nil {
		return nil, err
	}
	if refs.Technologies, err = embedPhrases(ctx, emb, TechnologyPhrases); err != nil {
		return nil, err
	}
	return refs, nil
}

func embedPhrases(ctx context.Context, emb embedder.Embedder, phrases []Phrase) ([]LabeledVector, error) {
	out := make([]LabeledVector, 0, len(phrases))
	for _, p := range phrases {
		vec, err := embedder.Vector(ctx, emb, p.Text)
		if err != nil {
			return nil, fmt.Errorf("reference phrase %s: %w", p.Name, err)
		}
		out = append(out, LabeledVector{Name: p.Name, Vector: vec})
	}
	return out, nil
}

// Dimension is the length of every reference vector
func (r *References) Dimension() int {
	return len(r.Technical)
}

// infer returns the index of the phrase most similar to vec, or -1 when no
// phrase reaches floor. Ties resolve to the earlier phrase.
func infer(vec []float32, phrases []LabeledVector, floor float64) int {
	if len(vec) == 0 {
		return -1
	}
	best, bestSim := -1, floor
	for i, p := range phrases {
		sim := similarity.Cosine(vec, p.Vector)
		if sim > bestSim || (best == -1 && sim == bestSim) {
			best, bestSim = i, sim
		}
	}
	return best
}

func labelOf(phrases []LabeledVector, idx int) string {
	if idx < 0 || idx >= len(phrases) {
		return ""
	}
	return phrases[idx].Name
}
