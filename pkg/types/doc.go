// Package types provides shared type definitions for reviewrecall.
//
// This package defines the domain types that flow through the retrieval
// pipeline: stored review comments, code chunks derived from the file under
// review, and the candidates that accumulate scores between stages.
//
// # Core Types
//
// Comment is a historical pull-request review comment as stored in the
// vector-capable comment table:
//
//	comment := &types.Comment{
//	    ID:          "c-1842",
//	    ProjectPath: "/srv/repos/payments",
//	    Kind:        types.KindInline,
//	    Body:        "this query is not parameterized",
//	    FilePath:    "internal/db/orders.go",
//	}
//
// CodeChunk is an ephemeral excerpt of the target file, produced per
// retrieval call by the chunker and never persisted:
//
//	chunk := types.CodeChunk{
//	    Content:   "rows, err := db.Query(q)",
//	    StartLine: 7,
//	    EndLine:   13,
//	    Kind:      types.ChunkFunctionContext,
//	    FocusLine: 10,
//	}
//
// # Candidates
//
// Candidate wraps a Comment with the strategy and chunk that produced it and
// a fixed set of named scores. Candidates are passed by value; each stage
// returns a copy with its scores filled in:
//
//	scored := cand.WithScores(scores)
//
// # Validation
//
// Every present embedding on a Comment must have exactly the deployment
// dimension:
//
//	if err := comment.Validate(384); err != nil {
//	    // errors.Is(err, types.ErrDimensionMismatch)
//	}
package types
