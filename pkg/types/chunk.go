package types

import "errors"

// ChunkKind represents the strategy that produced a code chunk
type ChunkKind string

const (
	ChunkFixed           ChunkKind = "fixed_chunk"
	ChunkWindow          ChunkKind = "window"
	ChunkFunctionContext ChunkKind = "function_context"
)

// CodeChunk is an excerpt of the file under review. Chunks are derived per
// retrieval call and never stored.
type CodeChunk struct {
	Content   string    `json:"content"`
	StartLine int       `json:"start_line"` // 1-based, inclusive
	EndLine   int       `json:"end_line"`   // 1-based, inclusive
	Kind      ChunkKind `json:"kind"`
	FocusLine int       `json:"focus_line,omitempty"` // Center line of a function_context chunk, 0 otherwise
}

// IsPriority reports whether the chunk is searched in the priority tier
func (c CodeChunk) IsPriority() bool {
	return c.Kind == ChunkFunctionContext
}

// PriorityWeight is the weight the chunk reranker applies to the chunk
func (c CodeChunk) PriorityWeight() float64 {
	if c.IsPriority() {
		return 1.0
	}
	return 0.5
}

// Validate checks the chunk kind and line numbers
func (c CodeChunk) Validate() error {
	switch c.Kind {
	case ChunkFixed, ChunkWindow, ChunkFunctionContext:
	default:
		return ErrInvalidChunkKind
	}

	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}

	if c.StartLine > c.EndLine {
		return ErrInvalidLineRange
	}

	if c.Kind == ChunkFunctionContext && (c.FocusLine < c.StartLine || c.FocusLine > c.EndLine) {
		return errors.New("focus line must fall inside the chunk")
	}

	return nil
}
