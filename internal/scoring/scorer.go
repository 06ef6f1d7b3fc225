package scoring

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/logging"
	"github.com/dshills/reviewrecall/internal/similarity"
	"github.com/dshills/reviewrecall/pkg/types"
)

// Scoring constants
const (
	// MinInferenceSimilarity is the lowest phrase similarity that still
	// assigns an area or technology
	MinInferenceSimilarity = 0.25

	TechnicalThreshold  = 0.35
	SuggestionThreshold = 0.4
	CodeFenceBonus      = 0.2

	MaxGeneric         = 0.8
	MaxBotLikelihood   = 0.7
	MaxTestRelatedness = 0.7

	// DefaultWorkers bounds concurrent per-candidate scoring
	DefaultWorkers = 8

	// targetSample caps how many runes of target code are embedded for inference
	targetSample = 2000
)

// Target describes the file under review
type Target struct {
	Code   string
	Path   string
	Chunks []types.CodeChunk
}

// IsTest reports whether the target path follows a test-file convention
func (t Target) IsTest() bool {
	return IsTestPath(t.Path)
}

// IsTestPath reports whether p looks like a test file
func IsTestPath(p string) bool {
	if p == "" {
		return false
	}
	p = strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
	base := path.Base(p)

	switch {
	case strings.Contains(base, "_test."),
		strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."),
		strings.HasPrefix(base, "test_"):
		return true
	}
	for _, dir := range []string{"/test/", "/tests/", "/__tests__/", "/spec/"} {
		if strings.Contains("/"+p, dir) {
			return true
		}
	}
	return false
}

// TargetProfile is the inferred area and technology of the target
type TargetProfile struct {
	Area       string
	Technology string

	area int
	tech int
}

// Scorer computes per-candidate scores. It is safe for concurrent use.
type Scorer struct {
	emb     embedder.Embedder
	workers int
	now     func() time.Time
	logger  *slog.Logger

	mu   sync.Mutex
	refs *References
}

// Option configures a Scorer
type Option func(*Scorer)

// WithWorkers bounds concurrent per-candidate scoring
func WithWorkers(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithClock replaces time.Now for recency scoring
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the scorer's logger
func WithLogger(l *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logging.OrDiscard(l)
	}
}

// NewScorer creates a scorer that embeds through emb
func NewScorer(emb embedder.Embedder, opts ...Option) *Scorer {
	s := &Scorer{
		emb:     emb,
		workers: DefaultWorkers,
		now:     time.Now,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// References returns the reference embeddings, embedding them on first use.
// A failure is not remembered, so the next call retries.
func (s *Scorer) References(ctx context.Context) (*References, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.refs != nil {
		return s.refs, nil
	}
	refs, err := EmbedReferences(ctx, s.emb)
	if err != nil {
		return nil, err
	}
	s.refs = refs
	return refs, nil
}

// Profile infers the target's area and technology
func (s *Scorer) Profile(ctx context.Context, refs *References, target Target) TargetProfile {
	profile := TargetProfile{area: -1, tech: -1}

	code := target.Code
	if utf8.RuneCountInString(code) > targetSample {
		code = string([]rune(code)[:targetSample])
	}
	text := strings.TrimSpace(target.Path + "\n" + code)
	if text == "" {
		return profile
	}

	vec, err := embedder.Vector(ctx, s.emb, text)
	if err != nil {
		s.logger.Debug("target profile unavailable", "error", err)
		return profile
	}

	profile.area = infer(vec, refs.Areas, MinInferenceSimilarity)
	profile.tech = infer(vec, refs.Technologies, MinInferenceSimilarity)
	profile.Area = labelOf(refs.Areas, profile.area)
	profile.Technology = labelOf(refs.Technologies, profile.tech)
	return profile
}

// Score returns a copy of cands with every scoring field filled in. Failures
// for one candidate only zero the affected sub-scores. An error is returned
// when the reference phrases cannot be embedded or ctx is done.
func (s *Scorer) Score(ctx context.Context, cands []types.Candidate, target Target) ([]types.Candidate, error) {
	if len(cands) == 0 {
		return []types.Candidate{}, nil
	}

	refs, err := s.References(ctx)
	if err != nil {
		return nil, err
	}
	profile := s.Profile(ctx, refs, target)
	now := s.now()

	out := make([]types.Candidate, len(cands))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range cands {
		g.Go(func() error {
			out[i] = s.scoreOne(gctx, cands[i], refs, profile, now)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scorer) scoreOne(ctx context.Context, c types.Candidate, refs *References, profile TargetProfile, now time.Time) types.Candidate {
	cm := &c.Comment
	dim := refs.Dimension()

	textVec := stored(cm.CommentEmbedding, dim)
	if textVec == nil && strings.TrimSpace(cm.Body) != "" {
		textVec = s.embed(ctx, cm.ID, "text", cm.Body)
	}

	contextVec := stored(cm.CombinedEmbedding, dim)
	if contextVec == nil {
		contextVec = s.embed(ctx, cm.ID, "context", contextText(cm))
	}

	var authorVec []float32
	if cm.Author != "" {
		authorVec = s.embed(ctx, cm.ID, "author", cm.Author)
	}
	testVec := s.embed(ctx, cm.ID, "test", strings.TrimSpace(cm.FilePath+" "+cm.Body))

	techSim := similarity.Cosine(textVec, refs.Technical)
	genericSim := similarity.Cosine(textVec, refs.Generic)
	generic := max(0, genericSim-techSim+0.5)

	scores := c.Scores
	scores.Semantic = c.Similarity()
	scores.Context = contextScore(contextVec, refs, profile)
	scores.Quality = qualityScore(cm, techSim, similarity.Cosine(textVec, refs.Suggestion), generic)
	scores.Recency = RecencyScore(cm.CreatedAt, now)
	scores.Generic = generic
	scores.BotLikelihood = max(
		similarity.Cosine(authorVec, refs.BotAuthor),
		max(0, similarity.Cosine(textVec, refs.Bot)-similarity.Cosine(textVec, refs.Human)),
	)
	scores.TestRelatedness = similarity.Cosine(testVec, refs.Test)

	return c.WithScores(scores)
}

func (s *Scorer) embed(ctx context.Context, id, what, text string) []float32 {
	if text == "" {
		return nil
	}
	vec, err := embedder.Vector(ctx, s.emb, text)
	if err != nil {
		s.logger.Debug("candidate embedding failed", "id", id, "input", what, "error", err)
		return nil
	}
	return vec
}

// stored returns v when it has the reference dimension
func stored(v []float32, dim int) []float32 {
	if len(v) == 0 || len(v) != dim {
		return nil
	}
	return v
}

func contextText(c *types.Comment) string {
	parts := []string{c.Body}
	if c.FilePath != "" {
		parts = append(parts, c.FilePath)
	}
	parts = append(parts, c.CodeSnippets()...)
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func contextScore(vec []float32, refs *References, profile TargetProfile) float64 {
	score := 1.0

	area := infer(vec, refs.Areas, MinInferenceSimilarity)
	if area >= 0 && profile.area >= 0 {
		areaSim := 1.0
		if area != profile.area {
			areaSim = similarity.Cosine(refs.Areas[area].Vector, refs.Areas[profile.area].Vector)
		}
		switch {
		case areaSim > 0.8:
			score *= 1.8
		case areaSim > 0.5:
			score *= 1.3
		case areaSim < 0.3 && area != profile.area:
			score *= 0.6
		}
	}

	var overlap float64
	tech := infer(vec, refs.Technologies, MinInferenceSimilarity)
	if tech >= 0 && profile.tech >= 0 {
		overlap = 1.0
		if tech != profile.tech {
			overlap = clamp(similarity.Cosine(refs.Technologies[tech].Vector, refs.Technologies[profile.tech].Vector), 0, 1)
		}
	}
	return score * (1 + overlap*0.5)
}

func qualityScore(c *types.Comment, techSim, suggestSim, generic float64) float64 {
	q := 0.5

	n := utf8.RuneCountInString(c.Body)
	if n > 50 {
		q += 0.1
	}
	if n > 200 {
		q += 0.1
	}
	if n < 20 {
		q -= 0.2
	}

	if techSim > TechnicalThreshold {
		q += 0.2
	}
	if strings.Contains(c.Body, "```") {
		suggestSim += CodeFenceBonus
	}
	if suggestSim > SuggestionThreshold {
		q += 0.2
	}
	if c.HasCode() {
		q += 0.1
	}
	if c.FilePath != "" {
		q += 0.05
	}

	q -= generic * 0.3
	return clamp(q, 0, 1)
}

// RecencyScore maps the age of createdAt at now onto a step function.
// A zero createdAt scores as the oldest bucket.
func RecencyScore(createdAt, now time.Time) float64 {
	if createdAt.IsZero() {
		return 0.2
	}
	days := now.Sub(createdAt).Hours() / 24
	switch {
	case days < 30:
		return 1.0
	case days < 90:
		return 0.8
	case days < 180:
		return 0.6
	case days < 365:
		return 0.4
	default:
		return 0.2
	}
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}

// Exclusion records a candidate dropped by the quality filter
type Exclusion struct {
	Candidate types.Candidate
	Reason    string
}

// Filter splits scored candidates into those that pass the quality filter
// and those excluded, preserving input order in both
func Filter(cands []types.Candidate, target Target) ([]types.Candidate, []Exclusion) {
	targetIsTest := target.IsTest()
	kept := make([]types.Candidate, 0, len(cands))
	var excluded []Exclusion

	for _, c := range cands {
		reason := ""
		switch {
		case c.Scores.Generic > MaxGeneric:
			reason = "generic"
		case c.Scores.BotLikelihood > MaxBotLikelihood:
			reason = "bot"
		case !targetIsTest && c.Scores.TestRelatedness > MaxTestRelatedness:
			reason = "test_related"
		}
		if reason != "" {
			excluded = append(excluded, Exclusion{Candidate: c, Reason: reason})
			continue
		}
		kept = append(kept, c)
	}
	return kept, excluded
}
