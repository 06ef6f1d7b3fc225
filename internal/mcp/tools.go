package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/reviewrecall/internal/scoring"
	"github.com/dshills/reviewrecall/internal/searcher"
	"github.com/dshills/reviewrecall/internal/storage"
	"github.com/dshills/reviewrecall/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery     = -32004 // Neither query nor target_code given
	ErrorCodeUnscopedDelete = -32005 // Prune without any narrowing filter
)

// handleSearchHistory handles the search_review_history tool invocation
func (s *Server) handleSearchHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectPath, err := requireProjectPath(args)
	if err != nil {
		return nil, err
	}

	query := getStringDefault(args, "query", "")
	targetCode := getStringDefault(args, "target_code", "")
	if strings.TrimSpace(query) == "" && strings.TrimSpace(targetCode) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query or target_code is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", searcher.DefaultLimit)
	if limit < 1 || limit > searcher.MaxLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	strategy, err := scoring.ParseStrategy(getStringDefault(args, "strategy", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid strategy", map[string]interface{}{
			"param":   "strategy",
			"allowed": []string{string(scoring.StrategyContextual), string(scoring.StrategyChunk)},
		})
	}

	var minSimilarity *float64
	if raw, ok := args["min_similarity"]; ok && raw != nil {
		v := getFloatDefault(args, "min_similarity", 0)
		if v < 0 || v > 1 {
			return nil, newMCPError(ErrorCodeInvalidParams, "min_similarity must be between 0 and 1", map[string]interface{}{
				"param": "min_similarity",
				"value": v,
			})
		}
		minSimilarity = &v
	}

	filters, _ := args["filters"].(map[string]interface{})

	resp, err := s.retriever.Retrieve(ctx, searcher.Request{
		Query: types.Query{
			Text:        query,
			TargetCode:  targetCode,
			TargetPath:  getStringDefault(args, "target_path", ""),
			ProjectPath: projectPath,
			Filters:     parseFilters(filters),
		},
		Limit:         limit,
		Strategy:      strategy,
		MinSimilarity: minSimilarity,
	})
	if err != nil {
		if errors.Is(err, searcher.ErrInvalidRequest) {
			return nil, newMCPError(ErrorCodeInvalidParams, "invalid search request", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Results))
	for i, c := range resp.Results {
		results = append(results, formatCandidate(i+1, c))
	}

	response := map[string]interface{}{
		"run_id":      resp.RunID,
		"strategy":    resp.Strategy,
		"results":     results,
		"total":       len(results),
		"considered":  resp.Considered,
		"excluded":    resp.Excluded,
		"degraded":    resp.Degraded,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	if len(resp.Failures) > 0 {
		response["failures"] = resp.Failures
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleHistoryStatus handles the get_history_status tool invocation
func (s *Server) handleHistoryStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectPath, err := requireProjectPath(args)
	if err != nil {
		return nil, err
	}

	status, err := s.retriever.Status(ctx, projectPath)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get history status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	byKind := make(map[string]int, len(status.ByKind))
	for kind, n := range status.ByKind {
		byKind[string(kind)] = n
	}

	response := map[string]interface{}{
		"project_path": status.ProjectPath,
		"has_history":  status.Total > 0,
		"statistics": map[string]interface{}{
			"comments": status.Total,
			"by_kind":  byKind,
		},
		"embedding": map[string]interface{}{
			"provider":  status.Provider,
			"model":     status.Model,
			"dimension": status.Dimension,
		},
	}
	if status.Total == 0 {
		response["message"] = "No review history stored for this project."
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handlePruneHistory handles the prune_review_history tool invocation
func (s *Server) handlePruneHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectPath, err := requireProjectPath(args)
	if err != nil {
		return nil, err
	}

	pred := storage.Predicate{
		ProjectPath: projectPath,
		Repository:  getStringDefault(args, "repository", ""),
		PRNumber:    getIntDefault(args, "pr_number", 0),
		Author:      getStringDefault(args, "author", ""),
		Kind:        types.CommentKind(getStringDefault(args, "kind", "")),
	}
	olderThan := getIntDefault(args, "older_than_days", 0)
	if olderThan < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "older_than_days must not be negative", map[string]interface{}{
			"param": "older_than_days",
			"value": olderThan,
		})
	}
	if olderThan > 0 {
		pred.CreatedBefore = time.Now().AddDate(0, 0, -olderThan)
	}

	all := getBoolDefault(args, "all", false)
	if !all && pred == (storage.Predicate{ProjectPath: projectPath}) {
		return nil, newMCPError(ErrorCodeUnscopedDelete, "refusing to prune a whole project without all=true", map[string]interface{}{
			"param":  "all",
			"reason": "no filter given",
		})
	}

	deleted, err := s.retriever.Prune(ctx, pred)
	if err != nil {
		code := ErrorCodeInternalError
		if errors.Is(err, types.ErrInvalidKind) {
			code = ErrorCodeInvalidParams
		}
		return nil, newMCPError(code, "prune failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"project_path": projectPath,
		"deleted":      deleted,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func formatCandidate(rank int, c types.Candidate) map[string]interface{} {
	out := map[string]interface{}{
		"rank":       rank,
		"id":         c.Comment.ID,
		"kind":       c.Comment.Kind,
		"author":     c.Comment.Author,
		"body":       c.Comment.Body,
		"strategy":   c.Strategy,
		"similarity": c.Similarity(),
		"score":      c.Scores.Final,
		"scores":     c.Scores,
	}
	if c.Comment.PRNumber > 0 {
		out["pr_number"] = c.Comment.PRNumber
	}
	if c.Comment.Repository != "" {
		out["repository"] = c.Comment.Repository
	}
	if c.Comment.FilePath != "" {
		out["file_path"] = c.Comment.FilePath
		if c.Comment.LineNumber > 0 {
			out["line"] = c.Comment.LineNumber
		}
	}
	if c.Comment.SuggestedCode != "" {
		out["suggested_code"] = c.Comment.SuggestedCode
	}
	if c.Comment.Category != "" {
		out["category"] = c.Comment.Category
	}
	if c.Comment.Severity != "" {
		out["severity"] = c.Comment.Severity
	}
	if !c.Comment.CreatedAt.IsZero() {
		out["created_at"] = c.Comment.CreatedAt.Format(time.RFC3339)
	}
	if c.Chunk != nil {
		out["matched_chunk"] = map[string]interface{}{
			"kind":       c.Chunk.Kind,
			"start_line": c.Chunk.StartLine,
			"end_line":   c.Chunk.EndLine,
		}
	}
	return out
}

func parseFilters(raw map[string]interface{}) types.Filters {
	if raw == nil {
		return types.Filters{}
	}
	return types.Filters{
		Author:           getStringDefault(raw, "author", ""),
		Kind:             types.CommentKind(getStringDefault(raw, "kind", "")),
		Category:         getStringDefault(raw, "category", ""),
		Severity:         getStringDefault(raw, "severity", ""),
		FilePathContains: getStringDefault(raw, "file_path_contains", ""),
	}
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func requireProjectPath(args map[string]interface{}) (string, error) {
	projectPath, ok := args["project_path"].(string)
	if !ok || strings.TrimSpace(projectPath) == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "project_path parameter is required", map[string]interface{}{
			"param":  "project_path",
			"reason": "missing or empty",
		})
	}
	return projectPath, nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	switch val := args[key].(type) {
	case float64:
		return val
	case int:
		return float64(val)
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
