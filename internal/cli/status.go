package cli

import "github.com/spf13/cobra"

// newStatusCommand creates the "status" subcommand that reports stored history for a project.
func newStatusCommand(opts *Options) *cobra.Command {
	var project string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show how much review history is stored for a project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			retriever, closer, err := openRetriever(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = closer() }()

			status, err := retriever.Status(cmd.Context(), project)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), status)
		},
	}

	cmd.Flags().StringVarP(&project, "project", "p", "", "Project path to inspect")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
