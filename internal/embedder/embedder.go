package embedder

import (
	"context"
	"errors"
	"fmt"

	"github.com/dshills/reviewrecall/pkg/types"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrProviderFailed    = errors.New("embedding provider failed")
	ErrUnsupportedModel  = errors.New("unsupported model")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")
)

// Embedding represents a vector embedding with metadata
type Embedding struct {
	Vector    []float32
	Dimension int
	Provider  string
	Model     string
}

// EmbeddingRequest represents a request to generate embeddings
type EmbeddingRequest struct {
	Text  string
	Model string // Optional: override default model
}

// BatchEmbeddingRequest represents a batch request
type BatchEmbeddingRequest struct {
	Texts []string
	Model string // Optional: override default model
}

// BatchEmbeddingResponse represents a batch response
type BatchEmbeddingResponse struct {
	Embeddings []*Embedding
	Provider   string
	Model      string
}

// Embedder interface defines methods for generating embeddings
type Embedder interface {
	// GenerateEmbedding generates a single embedding for the given text
	GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error)

	// GenerateBatch generates embeddings for multiple texts in input order
	GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// Vector embeds text and checks the result against the embedder's dimension.
// A provider failure or an empty vector yields types.ErrEmbeddingUnavailable;
// a vector of the wrong length yields types.ErrDimensionMismatch.
func Vector(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: no embedder", types.ErrEmbeddingUnavailable)
	}

	emb, err := e.GenerateEmbedding(ctx, EmbeddingRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrEmbeddingUnavailable, err)
	}
	if emb == nil || len(emb.Vector) == 0 {
		return nil, types.ErrEmbeddingUnavailable
	}
	if dim := e.Dimension(); dim > 0 && len(emb.Vector) != dim {
		return nil, fmt.Errorf("%w: got %d, want %d", types.ErrDimensionMismatch, len(emb.Vector), dim)
	}

	return emb.Vector, nil
}

// ValidateRequest validates an embedding request
func ValidateRequest(req EmbeddingRequest) error {
	if req.Text == "" {
		return ErrEmptyText
	}
	return nil
}

// ValidateBatchRequest validates a batch embedding request
func ValidateBatchRequest(req BatchEmbeddingRequest) error {
	if len(req.Texts) == 0 {
		return fmt.Errorf("%w: no texts provided", ErrInvalidInput)
	}

	if len(req.Texts) > MaxBatchSize {
		return fmt.Errorf("%w: max %d texts allowed", ErrBatchTooLarge, MaxBatchSize)
	}

	for i, text := range req.Texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}

	return nil
}

func copyVector(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
