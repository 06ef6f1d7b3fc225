package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reviewrecall/internal/config"
	"github.com/dshills/reviewrecall/internal/embedder"
	"github.com/dshills/reviewrecall/internal/searcher"
	"github.com/dshills/reviewrecall/internal/storage"
	"github.com/dshills/reviewrecall/pkg/types"
)

const testProject = "/src/acme"

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	emb := embedder.NewLocalProvider(embedder.DefaultDimension)

	s := New(searcher.NewRetriever(store, emb, searcher.Options{MinSimilarity: searcher.MinSimilarity(0.01)}, nil), store, emb, nil)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seed(t *testing.T, s *Server, c *types.Comment) {
	t.Helper()
	ctx := context.Background()
	var err error
	c.CommentEmbedding, err = embedder.Vector(ctx, s.embedder, c.Body)
	require.NoError(t, err)
	c.CombinedEmbedding = c.CommentEmbedding
	c.ProjectPath = testProject
	if c.Kind == "" {
		c.Kind = types.KindInline
	}
	require.NoError(t, s.storage.UpsertComment(ctx, c))
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func decode(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) {
	t.Helper()
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func TestNewServerFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Path = filepath.Join(t.TempDir(), "nested", "reviewrecall.db")
	cfg.Embedding.Provider = embedder.ProviderLocal

	s, err := NewServer(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.retriever)
	assert.Equal(t, embedder.ProviderLocal, s.embedder.Provider())
}

func TestSearchHistoryValidation(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"missing project", map[string]interface{}{"query": "x"}, ErrorCodeInvalidParams},
		{"empty query and code", map[string]interface{}{"project_path": testProject}, ErrorCodeEmptyQuery},
		{"limit too large", map[string]interface{}{"project_path": testProject, "query": "x", "limit": float64(101)}, ErrorCodeInvalidParams},
		{"bad strategy", map[string]interface{}{"project_path": testProject, "query": "x", "strategy": "hybrid"}, ErrorCodeInvalidParams},
		{"bad similarity", map[string]interface{}{"project_path": testProject, "query": "x", "min_similarity": 1.5}, ErrorCodeInvalidParams},
		{"bad kind filter", map[string]interface{}{"project_path": testProject, "query": "x", "filters": map[string]interface{}{"kind": "pr"}}, ErrorCodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.handleSearchHistory(ctx, callRequest(tt.args))
			assert.Nil(t, res)
			requireMCPError(t, err, tt.code)
		})
	}

	_, err := s.handleSearchHistory(ctx, mcp.CallToolRequest{})
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestSearchHistory(t *testing.T) {
	s := newTestServer(t)
	body := "Close the response body in every branch, the early return leaks the connection."
	seed(t, s, &types.Comment{ID: "c1", Author: "alice", Body: body, FilePath: "internal/http/client.go", PRNumber: 7})
	seed(t, s, &types.Comment{ID: "c2", Author: "bob", Body: "Prefer table driven tests for the parser cases."})

	res, err := s.handleSearchHistory(context.Background(), callRequest(map[string]interface{}{
		"project_path": testProject,
		"query":        body,
		"limit":        float64(5),
		"filters":      map[string]interface{}{"author": "alice"},
	}))
	require.NoError(t, err)

	out := decode(t, res)
	assert.Equal(t, "contextual", out["strategy"])
	assert.Equal(t, false, out["degraded"])
	assert.NotEmpty(t, out["run_id"])

	results, ok := out["results"].([]interface{})
	require.True(t, ok)
	require.Len(t, results, 1)
	first := results[0].(map[string]interface{})
	assert.Equal(t, "c1", first["id"])
	assert.Equal(t, float64(1), first["rank"])
	assert.Equal(t, float64(7), first["pr_number"])
	assert.Equal(t, "internal/http/client.go", first["file_path"])
}

func TestHistoryStatus(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	res, err := s.handleHistoryStatus(ctx, callRequest(map[string]interface{}{"project_path": testProject}))
	require.NoError(t, err)
	out := decode(t, res)
	assert.Equal(t, false, out["has_history"])
	assert.NotEmpty(t, out["message"])

	seed(t, s, &types.Comment{ID: "c1", Body: "first comment body"})
	seed(t, s, &types.Comment{ID: "c2", Body: "second comment body", Kind: types.KindReview})

	res, err = s.handleHistoryStatus(ctx, callRequest(map[string]interface{}{"project_path": testProject}))
	require.NoError(t, err)
	out = decode(t, res)
	assert.Equal(t, true, out["has_history"])
	stats := out["statistics"].(map[string]interface{})
	assert.Equal(t, float64(2), stats["comments"])
	byKind := stats["by_kind"].(map[string]interface{})
	assert.Equal(t, float64(1), byKind["review"])

	_, err = s.handleHistoryStatus(ctx, callRequest(map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestPruneHistory(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	old := &types.Comment{ID: "old", Author: "alice", Body: "old comment", CreatedAt: time.Now().AddDate(-2, 0, 0)}
	seed(t, s, old)
	seed(t, s, &types.Comment{ID: "new", Author: "alice", Body: "new comment", CreatedAt: time.Now()})
	seed(t, s, &types.Comment{ID: "bob", Author: "bob", Body: "bob comment", CreatedAt: time.Now()})

	_, err := s.handlePruneHistory(ctx, callRequest(map[string]interface{}{"project_path": testProject}))
	requireMCPError(t, err, ErrorCodeUnscopedDelete)

	_, err = s.handlePruneHistory(ctx, callRequest(map[string]interface{}{"project_path": testProject, "older_than_days": float64(-1)}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handlePruneHistory(ctx, callRequest(map[string]interface{}{"project_path": testProject, "kind": "pr"}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	res, err := s.handlePruneHistory(ctx, callRequest(map[string]interface{}{"project_path": testProject, "older_than_days": float64(365)}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), decode(t, res)["deleted"])

	res, err = s.handlePruneHistory(ctx, callRequest(map[string]interface{}{"project_path": testProject, "author": "bob"}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), decode(t, res)["deleted"])

	res, err = s.handlePruneHistory(ctx, callRequest(map[string]interface{}{"project_path": testProject, "all": true}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), decode(t, res)["deleted"])
}

func TestArgumentHelpers(t *testing.T) {
	args := map[string]interface{}{
		"f": float64(3),
		"i": 4,
		"s": "text",
		"b": true,
	}
	assert.Equal(t, 3, getIntDefault(args, "f", 0))
	assert.Equal(t, 4, getIntDefault(args, "i", 0))
	assert.Equal(t, 9, getIntDefault(args, "missing", 9))
	assert.Equal(t, 3.0, getFloatDefault(args, "f", 0))
	assert.Equal(t, 4.0, getFloatDefault(args, "i", 0))
	assert.Equal(t, "text", getStringDefault(args, "s", ""))
	assert.Equal(t, "d", getStringDefault(args, "f", "d"))
	assert.True(t, getBoolDefault(args, "b", false))
	assert.False(t, getBoolDefault(args, "missing", false))
}
