package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/reviewrecall/internal/chunker"
	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/logging"
	"github.com/dshills/reviewrecall/internal/storage"
	"github.com/dshills/reviewrecall/pkg/types"
)

// Orchestrator limits
const (
	MaxPriorityChunks = 6
	MaxRegularChunks  = 3
	// MaxQueryChunks is how many function_context chunks shape the query vector
	MaxQueryChunks = 3
	// QueryTextPrefix is how much of the query text joins the chunk text
	QueryTextPrefix = 500
)

// SearchInput is one orchestrated search
type SearchInput struct {
	Query    types.Query
	Chunks   []types.CodeChunk
	PageSize int
}

// SearchOutcome is the merged result of every strategy
type SearchOutcome struct {
	Candidates  []types.Candidate
	Failures    []StrategyFailure
	QueryVector []float32
	Strategies  int // number of strategy queries attempted
}

// StrategyFailure records one strategy query that did not complete
type StrategyFailure struct {
	Label    string
	Strategy types.SearchStrategy
	Err      error
}

func (f StrategyFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Label, f.Err)
}

// Unwrap returns the underlying error
func (f StrategyFailure) Unwrap() error {
	return f.Err
}

// strategyResult is what one strategy unit reports back
type strategyResult struct {
	label    string
	strategy types.SearchStrategy
	chunk    *types.CodeChunk
	results  []storage.VectorResult
	err      error
}

// Orchestrator runs the search strategies against storage
type Orchestrator struct {
	store   storage.Storage
	emb     embedder.Embedder
	workers int
	logger  *slog.Logger
}

// NewOrchestrator creates an orchestrator running at most workers strategy
// units concurrently
func NewOrchestrator(store storage.Storage, emb embedder.Embedder, workers int, logger *slog.Logger) *Orchestrator {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Orchestrator{
		store:   store,
		emb:     emb,
		workers: workers,
		logger:  logging.OrDiscard(logger),
	}
}

// Search resolves the query vector, runs every strategy and merges their
// results by comment ID. A strategy failure is recorded in the outcome and
// never fails the search. An error is returned only when no query vector can
// be produced or the predicate is invalid.
func (o *Orchestrator) Search(ctx context.Context, in SearchInput) (*SearchOutcome, error) {
	pred := storage.PredicateFor(in.Query)
	if err := pred.Validate(); err != nil {
		return nil, err
	}
	pageSize := in.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	queryVec, err := o.queryVector(ctx, in.Query, in.Chunks)
	if err != nil {
		return nil, err
	}

	chunks := selectChunks(in.Chunks)
	// Two whole-query units, then two result slots per chunk.
	results := make([]strategyResult, 2+2*len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)

	g.Go(func() error {
		results[0] = o.searchField(gctx, "comment", types.StrategyComment, nil, types.FieldComment, queryVec, pageSize, pred)
		return nil
	})
	g.Go(func() error {
		results[1] = o.searchField(gctx, "combined", types.StrategyCombined, nil, types.FieldCombined, queryVec, pageSize, pred)
		return nil
	})
	for i := range chunks {
		g.Go(func() error {
			results[2+2*i], results[3+2*i] = o.searchChunk(gctx, &chunks[i], pageSize, pred)
			return nil
		})
	}
	_ = g.Wait()

	outcome := o.merge(results)
	outcome.QueryVector = queryVec
	return outcome, nil
}

// queryVector returns the caller's vector or embeds the query text. With
// chunks present the embedded text leads with up to MaxQueryChunks
// function_context chunks followed by the start of the query text.
func (o *Orchestrator) queryVector(ctx context.Context, q types.Query, chunks []types.CodeChunk) ([]float32, error) {
	if len(q.Vector) > 0 {
		if dim := o.dimension(); dim > 0 && len(q.Vector) != dim {
			return nil, fmt.Errorf("%w: query vector has %d components, want %d", types.ErrDimensionMismatch, len(q.Vector), dim)
		}
		return q.Vector, nil
	}

	text := QueryText(q.Text, chunks)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query", types.ErrEmbeddingUnavailable)
	}
	return embedder.Vector(ctx, o.emb, text)
}

func (o *Orchestrator) dimension() int {
	if o.emb == nil {
		return 0
	}
	return o.emb.Dimension()
}

// QueryText builds the text embedded for a text query
func QueryText(query string, chunks []types.CodeChunk) string {
	if len(chunks) == 0 {
		return query
	}

	var parts []string
	for _, c := range chunker.Priority(chunks) {
		if len(parts) == MaxQueryChunks {
			break
		}
		parts = append(parts, c.Content)
	}
	if prefix := truncate(query, QueryTextPrefix); strings.TrimSpace(prefix) != "" {
		parts = append(parts, prefix)
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// selectChunks keeps the first MaxPriorityChunks function_context chunks and
// the first MaxRegularChunks others
func selectChunks(chunks []types.CodeChunk) []types.CodeChunk {
	priority := chunker.Priority(chunks)
	regular := chunker.Regular(chunks)
	if len(priority) > MaxPriorityChunks {
		priority = priority[:MaxPriorityChunks]
	}
	if len(regular) > MaxRegularChunks {
		regular = regular[:MaxRegularChunks]
	}

	out := make([]types.CodeChunk, 0, len(priority)+len(regular))
	out = append(out, priority...)
	return append(out, regular...)
}

func (o *Orchestrator) searchField(ctx context.Context, label string, strategy types.SearchStrategy, chunk *types.CodeChunk,
	field types.EmbeddingField, vec []float32, limit int, pred storage.Predicate) strategyResult {
	res := strategyResult{label: label, strategy: strategy, chunk: chunk}
	res.results, res.err = o.store.SearchVector(ctx, field, vec, limit, pred)
	if res.err != nil {
		res.err = fmt.Errorf("%w: %w", types.ErrStrategyQueryFailed, res.err)
	}
	return res
}

// searchChunk embeds one chunk and searches it against the comment and code
// fields. An embedding failure fails both of the chunk's strategies.
func (o *Orchestrator) searchChunk(ctx context.Context, chunk *types.CodeChunk, limit int, pred storage.Predicate) (strategyResult, strategyResult) {
	label := fmt.Sprintf("%s@%d-%d", chunk.Kind, chunk.StartLine, chunk.EndLine)

	vec, err := embedder.Vector(ctx, o.emb, chunk.Content)
	if err != nil {
		err = fmt.Errorf("%w: %w", types.ErrStrategyQueryFailed, err)
		return strategyResult{label: label + "/comment", strategy: types.StrategyChunkComment, chunk: chunk, err: err},
			strategyResult{label: label + "/code", strategy: types.StrategyChunkCode, chunk: chunk, err: err}
	}

	return o.searchField(ctx, label+"/comment", types.StrategyChunkComment, chunk, types.FieldComment, vec, limit, pred),
		o.searchField(ctx, label+"/code", types.StrategyChunkCode, chunk, types.FieldCode, vec, limit, pred)
}

// merge folds strategy results in slot order, keeping the first occurrence
// of each comment ID
func (o *Orchestrator) merge(results []strategyResult) *SearchOutcome {
	outcome := &SearchOutcome{
		Candidates: []types.Candidate{},
		Strategies: len(results),
	}
	dim := o.dimension()
	seen := make(map[string]struct{})

	for _, r := range results {
		if r.err != nil {
			outcome.Failures = append(outcome.Failures, StrategyFailure{Label: r.label, Strategy: r.strategy, Err: r.err})
			o.logger.Warn("search strategy failed", "strategy", r.label, "error", r.err)
			continue
		}

		for _, vr := range r.results {
			id := vr.Comment.ID
			if _, dup := seen[id]; dup {
				continue
			}
			if dim > 0 {
				if err := vr.Comment.Validate(dim); errors.Is(err, types.ErrDimensionMismatch) {
					o.logger.Debug("skipping comment", "id", id, "error", err)
					continue
				}
			}
			seen[id] = struct{}{}
			outcome.Candidates = append(outcome.Candidates, types.Candidate{
				Comment:  vr.Comment,
				Strategy: r.strategy,
				Chunk:    r.chunk,
				Distance: vr.Distance,
			})
		}
	}

	if len(results) > 0 && len(outcome.Failures) == len(results) {
		o.logger.Warn("every search strategy failed", "strategies", len(results))
	}
	return outcome
}

// Err joins every failure, or returns nil
func (s *SearchOutcome) Err() error {
	if len(s.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(s.Failures))
	for i, f := range s.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}
