// Package cli defines the reviewrecall command-line interface.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dshills/reviewrecall/internal/config"
	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/logging"
	"github.com/dshills/reviewrecall/internal/searcher"
	"github.com/dshills/reviewrecall/internal/storage"
)

// Options stores global CLI options shared between commands.
type Options struct {
	ConfigPath string
	EnvFile    string
	LogLevel   logging.Level

	// Config is loaded by the root command before any subcommand runs.
	Config *config.Config
	Logger *slog.Logger
}

// Execute builds the root command, runs it with the provided args and logger, and returns any error.
func Execute(args []string, logger *slog.Logger) error {
	if logger == nil {
		logger = logging.NewLogger(os.Stderr, logging.LevelInfo)
	}

	opts := &Options{
		LogLevel: logging.LevelInfo,
		Logger:   logger,
	}

	rootCmd := newRootCommand(opts)
	rootCmd.SetArgs(args)

	return rootCmd.Execute()
}

func newRootCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "reviewrecall",
		Short:         "reviewrecall finds past review comments relevant to new code",
		Long:          "reviewrecall searches a store of historical pull-request review comments for the ones most relevant to the code under review. It runs as an MCP server or as a one-shot CLI.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.Load(config.LoadOptions{
				ConfigPath: opts.ConfigPath,
				EnvFile:    opts.EnvFile,
			})
			if err != nil {
				return err
			}
			opts.Config = cfg

			levelFlag := cmd.Flag("log-level")
			level := logging.ParseLevel(cfg.LogLevel)
			if levelFlag != nil && levelFlag.Changed {
				level = logging.ParseLevel(levelFlag.Value.String())
			}
			opts.LogLevel = level
			opts.Logger = logging.NewLogger(cmd.ErrOrStderr(), level)
			cmd.SetContext(logging.WithLogger(cmd.Context(), opts.Logger))
			opts.Logger.Debug("logger initialized", "level", level)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", "", "Path to a .env file (default .env when present)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newServeCommand(opts),
		newSearchCommand(opts),
		newStatusCommand(opts),
		newPruneCommand(opts),
		newVersionCommand(),
	)

	return cmd
}

// openRetriever opens storage and the embedder from the loaded config. The
// returned closer releases both.
func openRetriever(ctx context.Context, opts *Options) (*searcher.Retriever, func() error, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration not loaded")
	}

	storeCfg := cfg.StorageConfig()
	if storeCfg.Driver == storage.BackendSQLite && storeCfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(storeCfg.Path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.Open(ctx, storeCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	closer := func() error {
		embErr := emb.Close()
		if err := store.Close(); err != nil {
			return err
		}
		return embErr
	}

	return searcher.NewRetriever(store, emb, cfg.RetrieverOptions(), opts.Logger), closer, nil
}
