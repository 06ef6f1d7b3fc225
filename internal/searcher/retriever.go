package searcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/reviewrecall/internal/chunker"
	"github.com/dshills/reviewrecall/internal/diversity"
	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/logging"
	"github.com/dshills/reviewrecall/internal/scoring"
	"github.com/dshills/reviewrecall/internal/storage"
	"github.com/dshills/reviewrecall/pkg/types"
)

// ErrInvalidRequest wraps every request validation failure
var ErrInvalidRequest = errors.New("invalid retrieval request")

// Retrieval defaults
const (
	DefaultLimit         = 10
	MaxLimit             = 100
	DefaultPageSize      = 20
	DefaultMinSimilarity = 0.2
	DefaultWorkers       = 8
)

// Options configure a Retriever
type Options struct {
	Limit         int
	PageSize      int
	MinSimilarity *float64 // nil selects DefaultMinSimilarity
	Workers       int
	Strategy      scoring.Strategy
	// Now replaces time.Now for recency scoring
	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	}
	if o.PageSize <= 0 {
		o.PageSize = DefaultPageSize
	}
	if o.MinSimilarity == nil {
		o.MinSimilarity = MinSimilarity(DefaultMinSimilarity)
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Strategy == "" {
		o.Strategy = scoring.StrategyContextual
	}
	return o
}

// MinSimilarity returns a pointer to v for Options and Request thresholds
func MinSimilarity(v float64) *float64 {
	return &v
}

// Request is one retrieval call
type Request struct {
	Query    types.Query
	Limit    int              // 0 selects the configured default
	Strategy scoring.Strategy // empty selects the configured default
	// MinSimilarity overrides the configured threshold when set
	MinSimilarity *float64
	PageSize      int
}

// Response is the outcome of a retrieval call
type Response struct {
	RunID      string            `json:"run_id"`
	Results    []types.Candidate `json:"results"`
	Strategy   scoring.Strategy  `json:"strategy"`
	Considered int               `json:"considered"`
	Excluded   int               `json:"excluded"`
	Failures   []string          `json:"failures,omitempty"`
	Degraded   bool              `json:"degraded"`
	Duration   time.Duration     `json:"duration"`
}

// Status summarises the stored history of one project
type Status struct {
	ProjectPath string                    `json:"project_path"`
	Total       int                       `json:"total"`
	ByKind      map[types.CommentKind]int `json:"by_kind"`
	Provider    string                    `json:"provider"`
	Model       string                    `json:"model"`
	Dimension   int                       `json:"dimension"`
}

// Retriever runs the full pipeline: chunk, search, threshold, score,
// filter, rerank and diversify
type Retriever struct {
	store    storage.Storage
	emb      embedder.Embedder
	chunker  *chunker.Chunker
	orch     *Orchestrator
	scorer   *scoring.Scorer
	reranker *scoring.Reranker
	selector *diversity.Selector
	opts     Options
	logger   *slog.Logger
}

// NewRetriever wires a retriever over store and emb
func NewRetriever(store storage.Storage, emb embedder.Embedder, opts Options, logger *slog.Logger) *Retriever {
	opts = opts.withDefaults()
	logger = logging.OrDiscard(logger)

	scorerOpts := []scoring.Option{
		scoring.WithWorkers(opts.Workers),
		scoring.WithLogger(logger),
	}
	if opts.Now != nil {
		scorerOpts = append(scorerOpts, scoring.WithClock(opts.Now))
	}

	return &Retriever{
		store:    store,
		emb:      emb,
		chunker:  chunker.New(),
		orch:     NewOrchestrator(store, emb, opts.Workers, logger),
		scorer:   scoring.NewScorer(emb, scorerOpts...),
		reranker: scoring.NewReranker(emb, logger),
		selector: diversity.NewSelector(),
		opts:     opts,
		logger:   logger,
	}
}

// validateRequest fills defaults and rejects requests that can never succeed
func (r *Retriever) validateRequest(req *Request) error {
	if err := req.Query.Validate(); err != nil {
		return err
	}

	if req.Limit == 0 {
		req.Limit = r.opts.Limit
	}
	if req.Limit < 1 || req.Limit > MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d, got %d", MaxLimit, req.Limit)
	}

	if req.Strategy == "" {
		req.Strategy = r.opts.Strategy
	}
	if !req.Strategy.Valid() {
		return fmt.Errorf("unknown strategy %q", req.Strategy)
	}

	if req.MinSimilarity == nil {
		req.MinSimilarity = r.opts.MinSimilarity
	}
	if v := *req.MinSimilarity; v < 0 || v > 1 {
		return fmt.Errorf("min similarity must be within [0, 1], got %g", v)
	}
	if req.PageSize <= 0 {
		req.PageSize = r.opts.PageSize
	}
	return nil
}

// Retrieve returns the comments most relevant to the request. Invalid
// requests return an error. Every runtime failure instead yields an empty,
// degraded Response.
func (r *Retriever) Retrieve(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if err := r.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	resp := &Response{
		RunID:    uuid.NewString(),
		Results:  []types.Candidate{},
		Strategy: req.Strategy,
	}
	log := r.logger.With("run_id", resp.RunID, "project", req.Query.ProjectPath)
	defer func() {
		resp.Duration = time.Since(start)
		log.Info("retrieval finished",
			"strategy", resp.Strategy,
			"results", len(resp.Results),
			"considered", resp.Considered,
			"excluded", resp.Excluded,
			"failures", len(resp.Failures),
			"degraded", resp.Degraded,
			"duration", resp.Duration,
		)
	}()

	if err := r.store.Ping(ctx); err != nil {
		return r.degrade(resp, log, fmt.Errorf("%w: %w", types.ErrStorageUnavailable, err)), nil
	}

	chunks := r.chunker.Chunk(req.Query.TargetCode)
	log.Debug("target chunked", "chunks", len(chunks))

	outcome, err := r.orch.Search(ctx, SearchInput{Query: req.Query, Chunks: chunks, PageSize: req.PageSize})
	if err != nil {
		return r.degrade(resp, log, err), nil
	}
	for _, f := range outcome.Failures {
		resp.Failures = append(resp.Failures, f.Error())
	}
	if err := ctx.Err(); err != nil {
		return r.degrade(resp, log, err), nil
	}

	resp.Considered = len(outcome.Candidates)
	cands := scoring.Threshold(outcome.Candidates, *req.MinSimilarity)
	if len(cands) == 0 {
		return resp, nil
	}

	target := scoring.Target{Code: req.Query.TargetCode, Path: req.Query.TargetPath, Chunks: chunks}
	scored, err := r.scorer.Score(ctx, cands, target)
	if err != nil {
		return r.degrade(resp, log, err), nil
	}

	kept, excluded := scoring.Filter(scored, target)
	resp.Excluded = len(excluded)
	for _, ex := range excluded {
		log.Debug("candidate excluded", "id", ex.Candidate.Comment.ID, "reason", ex.Reason)
	}

	ranked := r.reranker.Rerank(ctx, kept, req.Strategy, target)
	resp.Results = r.selector.Select(ranked, req.Limit)
	return resp, nil
}

func (r *Retriever) degrade(resp *Response, log *slog.Logger, err error) *Response {
	log.Error("retrieval degraded", "error", err)
	resp.Results = []types.Candidate{}
	resp.Degraded = true
	resp.Failures = append(resp.Failures, err.Error())
	return resp
}

// Status counts the comments stored for projectPath
func (r *Retriever) Status(ctx context.Context, projectPath string) (*Status, error) {
	pred := storage.Predicate{ProjectPath: projectPath}
	if err := pred.Validate(); err != nil {
		return nil, err
	}

	total, err := r.store.CountComments(ctx, pred)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	status := &Status{
		ProjectPath: projectPath,
		Total:       total,
		ByKind:      make(map[types.CommentKind]int),
	}
	for _, kind := range []types.CommentKind{types.KindReview, types.KindInline, types.KindIssue} {
		pred.Kind = kind
		n, err := r.store.CountComments(ctx, pred)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s comments: %w", kind, err)
		}
		status.ByKind[kind] = n
	}

	if r.emb != nil {
		status.Provider = r.emb.Provider()
		status.Model = r.emb.Model()
		status.Dimension = r.emb.Dimension()
	}
	return status, nil
}

// Prune deletes the comments matching pred and reports how many were removed
func (r *Retriever) Prune(ctx context.Context, pred storage.Predicate) (int, error) {
	if err := pred.Validate(); err != nil {
		return 0, err
	}
	n, err := r.store.DeleteComments(ctx, pred)
	if err != nil {
		return 0, fmt.Errorf("failed to prune comments: %w", err)
	}
	r.logger.Info("pruned review history", "project", pred.ProjectPath, "deleted", n)
	return n, nil
}
