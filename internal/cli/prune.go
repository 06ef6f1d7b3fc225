package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewrecall/internal/storage"
	"github.com/dshills/reviewrecall/pkg/types"
)

// errUnscopedPrune is returned when prune is given no filter and no --all.
var errUnscopedPrune = errors.New("refusing to prune a whole project without --all")

type pruneFlags struct {
	project       string
	olderThanDays int
	author        string
	kind          string
	repository    string
	pr            int
	all           bool
}

// newPruneCommand creates the "prune" subcommand that deletes stored comments.
func newPruneCommand(opts *Options) *cobra.Command {
	flags := &pruneFlags{}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete stored review comments matching the given filters",
		RunE: func(cmd *cobra.Command, _ []string) error {
			pred, err := flags.predicate(time.Now())
			if err != nil {
				return err
			}

			retriever, closer, err := openRetriever(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			deleted, err := retriever.Prune(cmd.Context(), pred)
			if err != nil {
				return err
			}
			opts.Logger.Info("pruned review history", "project", flags.project, "deleted", deleted)
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"project_path": flags.project,
				"deleted":      deleted,
			})
		},
	}

	cmd.Flags().StringVarP(&flags.project, "project", "p", "", "Project path whose history is pruned")
	cmd.Flags().IntVar(&flags.olderThanDays, "older-than-days", 0, "Only comments created more than this many days ago")
	cmd.Flags().StringVar(&flags.author, "author", "", "Only comments by this author")
	cmd.Flags().StringVar(&flags.kind, "kind", "", "Only comments of this kind (review, inline, issue)")
	cmd.Flags().StringVar(&flags.repository, "repository", "", "Only comments from this repository")
	cmd.Flags().IntVar(&flags.pr, "pr", 0, "Only comments from this pull request number")
	cmd.Flags().BoolVar(&flags.all, "all", false, "Allow deleting every comment of the project")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

func (f *pruneFlags) predicate(now time.Time) (storage.Predicate, error) {
	if f.olderThanDays < 0 {
		return storage.Predicate{}, fmt.Errorf("--older-than-days must not be negative, got %d", f.olderThanDays)
	}

	pred := storage.Predicate{
		ProjectPath: f.project,
		Repository:  f.repository,
		PRNumber:    f.pr,
		Author:      f.author,
		Kind:        types.CommentKind(f.kind),
	}
	if f.olderThanDays > 0 {
		pred.CreatedBefore = now.AddDate(0, 0, -f.olderThanDays)
	}

	if !f.all && pred == (storage.Predicate{ProjectPath: f.project}) {
		return storage.Predicate{}, errUnscopedPrune
	}
	return pred, pred.Validate()
}
