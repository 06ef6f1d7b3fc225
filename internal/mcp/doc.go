// Package mcp implements the Model Context Protocol (MCP) server for reviewrecall.
//
// The server exposes three tools to review agents:
//   - search_review_history: find past review comments relevant to a change
//   - get_history_status: count stored comments for a project
//   - prune_review_history: delete stored comments matching a filter
//
// # Protocol Overview
//
// MCP is JSON-RPC 2.0 over stdio. Stdout carries protocol messages only;
// logs go to stderr.
//
//	reviewrecall serve
//
// # Tool: search_review_history
//
//	Request:
//	{
//	  "name": "search_review_history",
//	  "arguments": {
//	    "project_path": "/src/acme",
//	    "query": "error wrapping in token refresh",
//	    "target_code": "package auth\n...",
//	    "target_path": "internal/auth/refresh.go",
//	    "limit": 5,
//	    "strategy": "contextual",
//	    "filters": {"kind": "inline"}
//	  }
//	}
//
//	Response:
//	{
//	  "run_id": "8c1f...",
//	  "strategy": "contextual",
//	  "results": [
//	    {
//	      "rank": 1,
//	      "id": "gh-1833",
//	      "author": "alice",
//	      "body": "Wrap the lookup error with the subject...",
//	      "file_path": "internal/auth/refresh.go",
//	      "strategy": "chunk_code",
//	      "score": 0.91,
//	      "matched_chunk": {"kind": "function_context", "start_line": 9, "end_line": 15}
//	    }
//	  ],
//	  "considered": 14,
//	  "excluded": 2,
//	  "degraded": false
//	}
//
// A degraded response means retrieval failed at runtime (storage or the
// embedding service unreachable). It carries no results and lists the
// reasons under "failures"; it is not a tool error.
//
// # Tool: prune_review_history
//
// Deletes within one project only. Without any filter the call is refused
// unless "all" is true.
//
// # Errors
//
// Invalid arguments produce MCPError values with JSON-RPC codes:
//   - -32602: invalid parameters
//   - -32603: internal error
//   - -32004: neither query nor target_code given
//   - -32005: prune without a filter
package mcp
