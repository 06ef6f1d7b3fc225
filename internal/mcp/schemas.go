package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

var commentKinds = []string{"review", "inline", "issue"}

// searchHistoryTool returns the tool definition for search_review_history
func searchHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_review_history",
		Description: "Find past pull request review comments relevant to the code under review",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_path": map[string]interface{}{
					"type":        "string",
					"description": "Project the review history belongs to",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language description of what to look for",
				},
				"target_code": map[string]interface{}{
					"type":        "string",
					"description": "Content of the file under review; chunked and searched against stored code",
				},
				"target_path": map[string]interface{}{
					"type":        "string",
					"description": "Repository-relative path of the file under review",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of comments to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Ranking formula: contextual (semantic, context, quality, recency) or chunk (code-chunk matches first)",
					"enum":        []string{"contextual", "chunk"},
					"default":     "contextual",
				},
				"min_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Drop candidates below this similarity before ranking (0.0-1.0). Omit to use the configured threshold",
					"minimum":     0.0,
					"maximum":     1.0,
				},
				"filters": map[string]interface{}{
					"type":        "object",
					"description": "Optional filters to narrow the search",
					"properties": map[string]interface{}{
						"author": map[string]interface{}{
							"type":        "string",
							"description": "Only comments by this author",
						},
						"kind": map[string]interface{}{
							"type":        "string",
							"description": "Only comments of this kind",
							"enum":        commentKinds,
						},
						"category": map[string]interface{}{
							"type":        "string",
							"description": "Only comments with this issue category",
						},
						"severity": map[string]interface{}{
							"type":        "string",
							"description": "Only comments with this severity",
						},
						"file_path_contains": map[string]interface{}{
							"type":        "string",
							"description": "Only comments whose file path contains this substring",
						},
					},
				},
			},
			Required: []string{"project_path"},
		},
	}
}

// historyStatusTool returns the tool definition for get_history_status
func historyStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_history_status",
		Description: "Report how much review history is stored for a project",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_path": map[string]interface{}{
					"type":        "string",
					"description": "Project the review history belongs to",
				},
			},
			Required: []string{"project_path"},
		},
	}
}

// pruneHistoryTool returns the tool definition for prune_review_history
func pruneHistoryTool() mcp.Tool {
	return mcp.Tool{
		Name:        "prune_review_history",
		Description: "Delete stored review comments of a project that match the given filters",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"project_path": map[string]interface{}{
					"type":        "string",
					"description": "Project the review history belongs to",
				},
				"older_than_days": map[string]interface{}{
					"type":        "integer",
					"description": "Only delete comments created more than this many days ago",
					"minimum":     0,
				},
				"author": map[string]interface{}{
					"type":        "string",
					"description": "Only delete comments by this author",
				},
				"kind": map[string]interface{}{
					"type":        "string",
					"description": "Only delete comments of this kind",
					"enum":        commentKinds,
				},
				"repository": map[string]interface{}{
					"type":        "string",
					"description": "Only delete comments from this repository",
				},
				"pr_number": map[string]interface{}{
					"type":        "integer",
					"description": "Only delete comments from this pull request",
				},
				"all": map[string]interface{}{
					"type":        "boolean",
					"description": "Required to delete the whole project history when no other filter is given",
					"default":     false,
				},
			},
			Required: []string{"project_path"},
		},
	}
}
