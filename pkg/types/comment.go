package types

import (
	"fmt"
	"time"
)

// CommentKind represents where a review comment was left
type CommentKind string

const (
	KindReview CommentKind = "review"
	KindInline CommentKind = "inline"
	KindIssue  CommentKind = "issue"
)

// Valid reports whether k is a known comment kind
func (k CommentKind) Valid() bool {
	switch k {
	case KindReview, KindInline, KindIssue:
		return true
	default:
		return false
	}
}

// EmbeddingField names one of the stored embedding columns
type EmbeddingField string

const (
	FieldComment  EmbeddingField = "comment_embedding"
	FieldCode     EmbeddingField = "code_embedding"
	FieldCombined EmbeddingField = "combined_embedding"
)

// Valid reports whether f names a stored embedding column
func (f EmbeddingField) Valid() bool {
	switch f {
	case FieldComment, FieldCode, FieldCombined:
		return true
	default:
		return false
	}
}

// Comment is a stored historical pull-request review comment
type Comment struct {
	// Identification
	ID          string      `json:"id"`
	PRNumber    int         `json:"pr_number,omitempty"`
	Repository  string      `json:"repository,omitempty"`
	ProjectPath string      `json:"project_path"` // Isolation key
	Kind        CommentKind `json:"kind"`

	// Content
	Body string `json:"body"`

	// Embeddings, each nil or exactly the deployment dimension
	CommentEmbedding  []float32 `json:"-"`
	CodeEmbedding     []float32 `json:"-"`
	CombinedEmbedding []float32 `json:"-"`

	// Location
	FilePath   string `json:"file_path,omitempty"`
	LineNumber int    `json:"line_number,omitempty"` // 0 when absent
	StartLine  int    `json:"start_line,omitempty"`
	EndLine    int    `json:"end_line,omitempty"`

	// Code context
	OriginalCode  string `json:"original_code,omitempty"`
	SuggestedCode string `json:"suggested_code,omitempty"`

	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Classification
	Category    string   `json:"category,omitempty"`
	Severity    string   `json:"severity,omitempty"`
	PatternTags []string `json:"pattern_tags,omitempty"`
}

// Embedding returns the vector stored for field, or nil
func (c *Comment) Embedding(field EmbeddingField) []float32 {
	switch field {
	case FieldComment:
		return c.CommentEmbedding
	case FieldCode:
		return c.CodeEmbedding
	case FieldCombined:
		return c.CombinedEmbedding
	default:
		return nil
	}
}

// HasCode reports whether the comment carries an original or suggested snippet
func (c *Comment) HasCode() bool {
	return c.OriginalCode != "" || c.SuggestedCode != ""
}

// CodeSnippets returns the non-empty code snippets attached to the comment
func (c *Comment) CodeSnippets() []string {
	var out []string
	if c.OriginalCode != "" {
		out = append(out, c.OriginalCode)
	}
	if c.SuggestedCode != "" {
		out = append(out, c.SuggestedCode)
	}
	return out
}

// Validate checks identity, kind, line range and embedding dimensions
func (c *Comment) Validate(dim int) error {
	if c.ID == "" {
		return ErrEmptyID
	}
	if c.ProjectPath == "" {
		return ErrMissingIsolationKey
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, c.Kind)
	}
	if c.StartLine > 0 && c.EndLine > 0 && c.StartLine > c.EndLine {
		return ErrInvalidLineRange
	}

	for _, field := range []EmbeddingField{FieldComment, FieldCode, FieldCombined} {
		vec := c.Embedding(field)
		if vec != nil && len(vec) != dim {
			return fmt.Errorf("%w: %s has %d components, want %d", ErrDimensionMismatch, field, len(vec), dim)
		}
	}

	return nil
}
