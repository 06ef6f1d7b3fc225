package storage

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/reviewrecall/pkg/types"
)

const testProject = "/repos/payments"

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newComment(id string, vec []float32) *types.Comment {
	return &types.Comment{
		ID:               id,
		PRNumber:         42,
		Repository:       "acme/payments",
		ProjectPath:      testProject,
		Kind:             types.KindInline,
		Body:             "comment " + id,
		CommentEmbedding: vec,
		FilePath:         "internal/db/orders.go",
		Author:           "alice",
		CreatedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestNewSQLiteStorage(t *testing.T) {
	store := setupTestDB(t)
	assert.NotNil(t, store.db)
	assert.NoError(t, store.Ping(context.Background()))

	_, err := NewSQLiteStorage("")
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
}

func TestUpsertAndGetComment(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	c := newComment("c1", []float32{1, 0, 0})
	c.CodeEmbedding = []float32{0, 1, 0}
	c.OriginalCode = "rows, _ := db.Query(q)"
	c.SuggestedCode = "rows, err := db.Query(q)"
	c.PatternTags = []string{"error-handling", "sql"}
	c.StartLine, c.EndLine, c.LineNumber = 10, 14, 12
	c.UpdatedAt = c.CreatedAt.Add(time.Hour)
	require.NoError(t, store.UpsertComment(ctx, c))

	got, err := store.GetComment(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, c.Body, got.Body)
	assert.Equal(t, c.CommentEmbedding, got.CommentEmbedding)
	assert.Equal(t, c.CodeEmbedding, got.CodeEmbedding)
	assert.Nil(t, got.CombinedEmbedding)
	assert.Equal(t, c.PatternTags, got.PatternTags)
	assert.True(t, c.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, c.UpdatedAt.Equal(got.UpdatedAt))
	assert.Equal(t, 12, got.LineNumber)

	// Upsert replaces
	c.Body = "edited"
	require.NoError(t, store.UpsertComment(ctx, c))
	got, err = store.GetComment(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Body)

	_, err = store.GetComment(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertCommentValidation(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.UpsertComment(ctx, &types.Comment{ProjectPath: "/p", Kind: types.KindReview}), types.ErrEmptyID)
	assert.ErrorIs(t, store.UpsertComment(ctx, &types.Comment{ID: "x", Kind: types.KindReview}), types.ErrMissingIsolationKey)
	assert.ErrorIs(t, store.UpsertComment(ctx, &types.Comment{ID: "x", ProjectPath: "/p", Kind: "pr"}), types.ErrInvalidKind)
}

func TestUpsertCommentsRollsBack(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	err := store.UpsertComments(ctx, []*types.Comment{
		newComment("ok", nil),
		{ID: "bad", ProjectPath: testProject, Kind: "nope"},
	})
	require.Error(t, err)

	n, err := store.CountComments(ctx, Predicate{ProjectPath: testProject})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCountAndListComments(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	var batch []*types.Comment
	for i := 0; i < 5; i++ {
		c := newComment(fmt.Sprintf("c%d", i), nil)
		c.CreatedAt = c.CreatedAt.Add(time.Duration(i) * 24 * time.Hour)
		if i%2 == 0 {
			c.Author = "bob"
			c.Kind = types.KindReview
			c.FilePath = "cmd/server/main.go"
		}
		batch = append(batch, c)
	}
	other := newComment("other", nil)
	other.ProjectPath = "/repos/other"
	batch = append(batch, other)
	require.NoError(t, store.UpsertComments(ctx, batch))

	tests := []struct {
		name string
		pred Predicate
		want int
	}{
		{"project only", Predicate{ProjectPath: testProject}, 5},
		{"other project", Predicate{ProjectPath: "/repos/other"}, 1},
		{"author", Predicate{ProjectPath: testProject, Author: "bob"}, 3},
		{"kind", Predicate{ProjectPath: testProject, Kind: types.KindInline}, 2},
		{"file substring", Predicate{ProjectPath: testProject, FilePathContains: "server/"}, 3},
		{"created after", Predicate{ProjectPath: testProject, CreatedAfter: batch[3].CreatedAt}, 2},
		{"pr number", Predicate{ProjectPath: testProject, PRNumber: 7}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := store.CountComments(ctx, tt.pred)
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}

	page, err := store.ListComments(ctx, Predicate{ProjectPath: testProject}, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c3", page[0].ID)
	assert.Equal(t, "c2", page[1].ID)
}

func TestPredicateRequiresIsolationKey(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	_, err := store.CountComments(ctx, Predicate{})
	assert.ErrorIs(t, err, types.ErrMissingIsolationKey)
	_, err = store.ListComments(ctx, Predicate{Author: "alice"}, 10, 0)
	assert.ErrorIs(t, err, types.ErrMissingIsolationKey)
	_, err = store.DeleteComments(ctx, Predicate{})
	assert.ErrorIs(t, err, types.ErrMissingIsolationKey)
	_, err = store.SearchVector(ctx, types.FieldComment, []float32{1}, 5, Predicate{})
	assert.ErrorIs(t, err, types.ErrMissingIsolationKey)
}

func TestDeleteComments(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	a := newComment("a", nil)
	b := newComment("b", nil)
	b.Author = "bot"
	require.NoError(t, store.UpsertComments(ctx, []*types.Comment{a, b}))

	n, err := store.DeleteComments(ctx, Predicate{ProjectPath: testProject, Author: "bot"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.GetComment(ctx, "b")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetComment(ctx, "a")
	assert.NoError(t, err)
}

func TestSearchVector(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertComments(ctx, []*types.Comment{
		newComment("exact", []float32{1, 0, 0}),
		newComment("close", []float32{0.9, 0.1, 0}),
		newComment("far", []float32{0, 0, 1}),
		newComment("wrong-dim", []float32{1, 0}),
		newComment("no-vector", nil),
	}))

	results, err := store.SearchVector(ctx, types.FieldComment, []float32{1, 0, 0}, 10, Predicate{ProjectPath: testProject})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "exact", results[0].Comment.ID)
	assert.InDelta(t, 0.0, results[0].Distance, 1e-6)
	assert.Equal(t, "close", results[1].Comment.ID)
	assert.Equal(t, "far", results[2].Comment.ID)
	assert.InDelta(t, 1.0, results[2].Distance, 1e-6)

	limited, err := store.SearchVector(ctx, types.FieldComment, []float32{1, 0, 0}, 1, Predicate{ProjectPath: testProject})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := store.SearchVector(ctx, types.FieldCode, []float32{1, 0, 0}, 10, Predicate{ProjectPath: testProject})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.SearchVector(ctx, "title_embedding", []float32{1}, 10, Predicate{ProjectPath: testProject})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestSearchVectorRespectsFilters(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	mine := newComment("mine", []float32{1, 0})
	theirs := newComment("theirs", []float32{1, 0})
	theirs.ProjectPath = "/repos/other"
	bob := newComment("bob", []float32{1, 0})
	bob.Author = "bob"
	require.NoError(t, store.UpsertComments(ctx, []*types.Comment{mine, theirs, bob}))

	results, err := store.SearchVector(ctx, types.FieldComment, []float32{1, 0}, 10, Predicate{ProjectPath: testProject, Author: "alice"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].Comment.ID)
}

func TestMigrations(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	v, err := SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	// Re-applying is a no-op
	require.NoError(t, ApplyMigrations(ctx, store.db))

	require.NoError(t, RollbackMigration(ctx, store.db))
	v, err = SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, "1.0.0", v.String())

	require.NoError(t, ApplyMigrations(ctx, store.db))
	v, err = SchemaVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestVectorSerialization(t *testing.T) {
	vec := []float32{0.5, -1.25, 3}
	assert.Equal(t, vec, deserializeVector(serializeVector(vec)))
	assert.Nil(t, serializeVector(nil))
	assert.Nil(t, deserializeVector(nil))
}

func TestPredicateFor(t *testing.T) {
	q := types.Query{
		ProjectPath: testProject,
		Filters:     types.Filters{Author: "alice", Kind: types.KindIssue, Category: "security", Severity: "high", FilePathContains: "db/"},
	}
	p := PredicateFor(q)
	assert.Equal(t, Predicate{
		ProjectPath: testProject, Author: "alice", Kind: types.KindIssue,
		Category: "security", Severity: "high", FilePathContains: "db/",
	}, p)
	assert.NoError(t, p.Validate())
}

func TestOpen(t *testing.T) {
	store, err := Open(context.Background(), Config{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	assert.NoError(t, store.Close())

	_, err = Open(context.Background(), Config{Driver: "postgres"})
	assert.Error(t, err)

	_, err = Open(context.Background(), Config{Driver: "mongo"})
	assert.ErrorIs(t, err, types.ErrStorageUnavailable)
}
