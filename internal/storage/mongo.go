package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dshills/reviewrecall/pkg/types"
)

// Mongo defaults
const (
	DefaultMongoDatabase   = "reviewrecall"
	DefaultMongoCollection = "comments"
)

// MongoConfig configures a MongoStore
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore implements Storage on a MongoDB collection. Similarity is
// computed in Go over the documents matching the predicate.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// commentDocument is the stored shape of a comment
type commentDocument struct {
	ID                string    `bson:"_id"`
	PRNumber          int       `bson:"pr_number"`
	Repository        string    `bson:"repository"`
	ProjectPath       string    `bson:"project_path"`
	Kind              string    `bson:"kind"`
	Body              string    `bson:"body"`
	CommentEmbedding  []float32 `bson:"comment_embedding,omitempty"`
	CodeEmbedding     []float32 `bson:"code_embedding,omitempty"`
	CombinedEmbedding []float32 `bson:"combined_embedding,omitempty"`
	FilePath          string    `bson:"file_path"`
	LineNumber        int       `bson:"line_number"`
	StartLine         int       `bson:"start_line"`
	EndLine           int       `bson:"end_line"`
	OriginalCode      string    `bson:"original_code,omitempty"`
	SuggestedCode     string    `bson:"suggested_code,omitempty"`
	Author            string    `bson:"author"`
	CreatedAt         time.Time `bson:"created_at"`
	UpdatedAt         time.Time `bson:"updated_at"`
	Category          string    `bson:"category,omitempty"`
	Severity          string    `bson:"severity,omitempty"`
	PatternTags       []string  `bson:"pattern_tags,omitempty"`
}

// NewMongoStore connects to MongoDB, verifies the connection and ensures
// the filter indexes exist
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("%w: empty mongo URI", types.ErrStorageUnavailable)
	}
	if cfg.Database == "" {
		cfg.Database = DefaultMongoDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultMongoCollection
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to connect to MongoDB: %w", err))
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, unavailable(fmt.Errorf("failed to ping MongoDB: %w", err))
	}

	s := &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}

	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "project_path", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "project_path", Value: 1}, {Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "project_path", Value: 1}, {Key: "file_path", Value: 1}}},
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// Close disconnects the client
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Ping verifies the primary is reachable
func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx, readpref.Primary()); err != nil {
		return unavailable(err)
	}
	return nil
}

func (s *MongoStore) UpsertComment(ctx context.Context, comment *types.Comment) error {
	if err := validateComment(comment); err != nil {
		return err
	}

	doc := toDocument(comment)
	opts := options.Replace().SetUpsert(true)
	if _, err := s.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, opts); err != nil {
		return fmt.Errorf("failed to upsert comment %s: %w", comment.ID, err)
	}
	return nil
}

// UpsertComments writes all comments in one unordered bulk write
func (s *MongoStore) UpsertComments(ctx context.Context, comments []*types.Comment) error {
	if len(comments) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, 0, len(comments))
	for _, c := range comments {
		if err := validateComment(c); err != nil {
			return err
		}
		doc := toDocument(c)
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}

	if _, err := s.collection.BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to upsert comments: %w", err)
	}
	return nil
}

func (s *MongoStore) GetComment(ctx context.Context, id string) (*types.Comment, error) {
	var doc commentDocument
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment %s: %w", id, err)
	}
	return doc.toComment(), nil
}

// ListComments returns comments newest first
func (s *MongoStore) ListComments(ctx context.Context, pred Predicate, limit, offset int) ([]*types.Comment, error) {
	if err := pred.Validate(); err != nil {
		return nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit)).SetSkip(int64(max(0, offset)))
	}

	return s.find(ctx, mongoFilter(pred), opts)
}

func (s *MongoStore) CountComments(ctx context.Context, pred Predicate) (int, error) {
	if err := pred.Validate(); err != nil {
		return 0, err
	}

	n, err := s.collection.CountDocuments(ctx, mongoFilter(pred))
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return int(n), nil
}

func (s *MongoStore) DeleteComments(ctx context.Context, pred Predicate) (int, error) {
	if err := pred.Validate(); err != nil {
		return 0, err
	}

	res, err := s.collection.DeleteMany(ctx, mongoFilter(pred))
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (s *MongoStore) SearchVector(ctx context.Context, field types.EmbeddingField, vector []float32, limit int, pred Predicate) ([]VectorResult, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	if err := pred.Validate(); err != nil {
		return nil, err
	}
	if len(vector) == 0 || limit <= 0 {
		return []VectorResult{}, nil
	}

	filter := mongoFilter(pred)
	filter[string(field)] = bson.M{"$size": len(vector)}

	comments, err := s.find(ctx, filter, options.Find())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch candidates: %w", err)
	}

	return rankByDistance(comments, field, vector, limit), nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*types.Comment, error) {
	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []commentDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}

	out := make([]*types.Comment, len(docs))
	for i := range docs {
		out[i] = docs[i].toComment()
	}
	return out, nil
}

// mongoFilter translates a predicate into a query document
func mongoFilter(p Predicate) bson.M {
	filter := bson.M{"project_path": p.ProjectPath}
	if p.Repository != "" {
		filter["repository"] = p.Repository
	}
	if p.PRNumber > 0 {
		filter["pr_number"] = p.PRNumber
	}
	if p.Author != "" {
		filter["author"] = p.Author
	}
	if p.Kind != "" {
		filter["kind"] = string(p.Kind)
	}
	if p.Category != "" {
		filter["category"] = p.Category
	}
	if p.Severity != "" {
		filter["severity"] = p.Severity
	}
	if p.FilePathContains != "" {
		filter["file_path"] = bson.M{"$regex": regexp.QuoteMeta(p.FilePathContains)}
	}
	created := bson.M{}
	if !p.CreatedAfter.IsZero() {
		created["$gte"] = p.CreatedAfter
	}
	if !p.CreatedBefore.IsZero() {
		created["$lt"] = p.CreatedBefore
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}

func toDocument(c *types.Comment) commentDocument {
	return commentDocument{
		ID:                c.ID,
		PRNumber:          c.PRNumber,
		Repository:        c.Repository,
		ProjectPath:       c.ProjectPath,
		Kind:              string(c.Kind),
		Body:              c.Body,
		CommentEmbedding:  c.CommentEmbedding,
		CodeEmbedding:     c.CodeEmbedding,
		CombinedEmbedding: c.CombinedEmbedding,
		FilePath:          c.FilePath,
		LineNumber:        c.LineNumber,
		StartLine:         c.StartLine,
		EndLine:           c.EndLine,
		OriginalCode:      c.OriginalCode,
		SuggestedCode:     c.SuggestedCode,
		Author:            c.Author,
		CreatedAt:         c.CreatedAt.UTC(),
		UpdatedAt:         c.UpdatedAt.UTC(),
		Category:          c.Category,
		Severity:          c.Severity,
		PatternTags:       c.PatternTags,
	}
}

func (d *commentDocument) toComment() *types.Comment {
	return &types.Comment{
		ID:                d.ID,
		PRNumber:          d.PRNumber,
		Repository:        d.Repository,
		ProjectPath:       d.ProjectPath,
		Kind:              types.CommentKind(d.Kind),
		Body:              d.Body,
		CommentEmbedding:  d.CommentEmbedding,
		CodeEmbedding:     d.CodeEmbedding,
		CombinedEmbedding: d.CombinedEmbedding,
		FilePath:          d.FilePath,
		LineNumber:        d.LineNumber,
		StartLine:         d.StartLine,
		EndLine:           d.EndLine,
		OriginalCode:      d.OriginalCode,
		SuggestedCode:     d.SuggestedCode,
		Author:            d.Author,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		Category:          d.Category,
		Severity:          d.Severity,
		PatternTags:       d.PatternTags,
	}
}
