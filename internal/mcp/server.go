package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/reviewrecall/internal/config"
	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/logging"
	"github.com/dshills/reviewrecall/internal/searcher"
	"github.com/dshills/reviewrecall/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "reviewrecall"
	// ServerVersion is the current server version
	ServerVersion = "0.3.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	retriever *searcher.Retriever
	storage   storage.Storage
	embedder  embedder.Embedder
	logger    *slog.Logger
}

// NewServer opens storage and the embedder described by cfg and registers
// the tools
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	logger = logging.OrDiscard(logger)

	storeCfg := cfg.StorageConfig()
	if storeCfg.Driver == storage.BackendSQLite && storeCfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(storeCfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.Open(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	emb, err := embedder.New(cfg.EmbedderConfig())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	logger.Info("review history opened",
		"driver", storeCfg.Driver,
		"provider", emb.Provider(),
		"model", emb.Model(),
		"dimension", emb.Dimension(),
	)

	retriever := searcher.NewRetriever(store, emb, cfg.RetrieverOptions(), logger)
	return New(retriever, store, emb, logger), nil
}

// New builds a server around an existing retriever. store and emb are
// closed by Close and may be nil.
func New(retriever *searcher.Retriever, store storage.Storage, emb embedder.Embedder, logger *slog.Logger) *Server {
	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion),
		retriever: retriever,
		storage:   store,
		embedder:  emb,
		logger:    logging.OrDiscard(logger),
	}
	s.registerTools()
	return s
}

// Serve runs the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	s.logger.Info("serving MCP on stdio", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// Close releases storage and the embedder
func (s *Server) Close() error {
	var errs []error
	if s.embedder != nil {
		errs = append(errs, s.embedder.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	return errors.Join(errs...)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(searchHistoryTool(), s.handleSearchHistory)
	s.mcp.AddTool(historyStatusTool(), s.handleHistoryStatus)
	s.mcp.AddTool(pruneHistoryTool(), s.handlePruneHistory)
}
