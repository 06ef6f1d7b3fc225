package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewrecall/internal/mcp"
)

// newServeCommand creates the "serve" subcommand that runs the MCP server on stdio.
func newServeCommand(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := mcp.NewServer(ctx, opts.Config, opts.Logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Serve(ctx) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
				opts.Logger.Info("shutting down")
				return srv.Close()
			}
		},
	}
}
