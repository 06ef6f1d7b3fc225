package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewrecall/internal/scoring"
	"github.com/dshills/reviewrecall/internal/searcher"
	"github.com/dshills/reviewrecall/pkg/types"
)

type searchFlags struct {
	project       string
	query         string
	file          string
	targetPath    string
	limit         int
	strategy      string
	minSimilarity float64
	// minSimilaritySet is true when --min-similarity was given
	minSimilaritySet bool
	filters          types.Filters
	kind             string
}

// newSearchCommand creates the "search" subcommand that prints relevant history as JSON.
func newSearchCommand(opts *Options) *cobra.Command {
	flags := &searchFlags{}

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find past review comments relevant to a file or description",
		Example: `  reviewrecall search --project . --file internal/auth/refresh.go
  reviewrecall search --project . --query "retry on token refresh" --strategy chunk`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags.minSimilaritySet = cmd.Flags().Changed("min-similarity")
			req, err := flags.request()
			if err != nil {
				return err
			}

			retriever, closer, err := openRetriever(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			resp, err := retriever.Retrieve(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", "", "Project path whose history is searched")
	cmd.Flags().StringVarP(&flags.query, "query", "q", "", "Free-text description of the change")
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "File under review")
	cmd.Flags().StringVar(&flags.targetPath, "target-path", "", "Path reported for the target code (defaults to --file)")
	cmd.Flags().IntVarP(&flags.limit, "limit", "n", 0, "Maximum number of results")
	cmd.Flags().StringVar(&flags.strategy, "strategy", "", "Reranking strategy (contextual, chunk)")
	cmd.Flags().Float64Var(&flags.minSimilarity, "min-similarity", 0, "Minimum raw similarity to keep a candidate (default from config)")
	cmd.Flags().StringVar(&flags.filters.Author, "author", "", "Only comments by this author")
	cmd.Flags().StringVar(&flags.kind, "kind", "", "Only comments of this kind (review, inline, issue)")
	cmd.Flags().StringVar(&flags.filters.Category, "category", "", "Only comments in this category")
	cmd.Flags().StringVar(&flags.filters.Severity, "severity", "", "Only comments with this severity")
	cmd.Flags().StringVar(&flags.filters.FilePathContains, "path-contains", "", "Only comments whose file path contains this text")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func (f *searchFlags) request() (searcher.Request, error) {
	var strategy scoring.Strategy
	if f.strategy != "" {
		s, err := scoring.ParseStrategy(f.strategy)
		if err != nil {
			return searcher.Request{}, err
		}
		strategy = s
	}

	query := types.Query{
		Text:        f.query,
		TargetPath:  f.targetPath,
		ProjectPath: f.project,
		Filters:     f.filters,
	}
	query.Filters.Kind = types.CommentKind(f.kind)

	if f.file != "" {
		code, err := os.ReadFile(f.file)
		if err != nil {
			return searcher.Request{}, fmt.Errorf("failed to read target file: %w", err)
		}
		query.TargetCode = string(code)
		if query.TargetPath == "" {
			query.TargetPath = f.file
		}
	}

	if query.Text == "" && query.TargetCode == "" {
		return searcher.Request{}, fmt.Errorf("one of --query or --file is required")
	}

	req := searcher.Request{
		Query:    query,
		Limit:    f.limit,
		Strategy: strategy,
	}
	if f.minSimilaritySet {
		req.MinSimilarity = searcher.MinSimilarity(f.minSimilarity)
	}
	return req, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
