package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewrecall/internal/mcp"
	"github.com/dshills/reviewrecall/internal/storage"
)

// newVersionCommand creates the "version" subcommand that prints build information.
func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s version %s\n", mcp.ServerName, mcp.ServerVersion)
			fmt.Fprintf(out, "Build mode: %s\n", storage.BuildMode)
			fmt.Fprintf(out, "SQLite driver: %s\n", storage.DriverName)
			fmt.Fprintf(out, "Vector extension: %v\n", storage.VectorExtensionAvailable)
			return nil
		},
	}
}
