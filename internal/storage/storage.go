package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/reviewrecall/pkg/types"
)

var (
	// ErrNotFound is returned when a requested comment doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrInvalidField is returned when a search names an unknown embedding column
	ErrInvalidField = errors.New("invalid embedding field")
)

// Storage is the vector-capable comment table
type Storage interface {
	// Write operations
	UpsertComment(ctx context.Context, comment *types.Comment) error
	UpsertComments(ctx context.Context, comments []*types.Comment) error

	// Read operations
	GetComment(ctx context.Context, id string) (*types.Comment, error)
	ListComments(ctx context.Context, pred Predicate, limit, offset int) ([]*types.Comment, error)
	CountComments(ctx context.Context, pred Predicate) (int, error)

	// SearchVector returns up to limit comments ordered by ascending cosine
	// distance between field and vector. Comments without the field, or whose
	// stored vector has a different length, are skipped.
	SearchVector(ctx context.Context, field types.EmbeddingField, vector []float32, limit int, pred Predicate) ([]VectorResult, error)

	// Maintenance
	DeleteComments(ctx context.Context, pred Predicate) (int, error)

	// Database operations
	Ping(ctx context.Context) error
	Close() error
}

// VectorResult is one comment returned by a similarity search
type VectorResult struct {
	Comment  types.Comment
	Distance float64 // 1 - cosine similarity
}

// Predicate restricts a query. ProjectPath is mandatory; the remaining
// fields are optional equality, substring and range conditions.
type Predicate struct {
	ProjectPath      string
	Repository       string
	PRNumber         int
	Author           string
	Kind             types.CommentKind
	Category         string
	Severity         string
	FilePathContains string
	CreatedAfter     time.Time
	CreatedBefore    time.Time
}

// Validate checks that the isolation key is present
func (p Predicate) Validate() error {
	if strings.TrimSpace(p.ProjectPath) == "" {
		return types.ErrMissingIsolationKey
	}
	if p.Kind != "" && !p.Kind.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidKind, p.Kind)
	}
	return nil
}

// PredicateFor builds the predicate applied to every query of a retrieval call
func PredicateFor(q types.Query) Predicate {
	return Predicate{
		ProjectPath:      q.ProjectPath,
		Author:           q.Filters.Author,
		Kind:             q.Filters.Kind,
		Category:         q.Filters.Category,
		Severity:         q.Filters.Severity,
		FilePathContains: q.Filters.FilePathContains,
	}
}

// Config selects and configures a storage backend
type Config struct {
	Driver          string // "sqlite" or "mongo"
	Path            string // SQLite database path
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Backend names accepted by Open
const (
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

// Open connects to the backend named by cfg.Driver
func Open(ctx context.Context, cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Driver) {
	case BackendSQLite, "":
		return NewSQLiteStorage(cfg.Path)
	case BackendMongo:
		return NewMongoStore(ctx, MongoConfig{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func validateComment(c *types.Comment) error {
	if c == nil {
		return errors.New("comment cannot be nil")
	}
	if c.ID == "" {
		return types.ErrEmptyID
	}
	if c.ProjectPath == "" {
		return types.ErrMissingIsolationKey
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", types.ErrInvalidKind, c.Kind)
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", types.ErrStorageUnavailable, err)
}
