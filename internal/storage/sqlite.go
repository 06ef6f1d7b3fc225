package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dshills/reviewrecall/pkg/types"
)

// SQLiteStorage implements Storage on a single SQLite database
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite allows a single writer; one connection also keeps :memory: databases shared
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath and
// applies pending migrations
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("%w: empty database path", types.ErrStorageUnavailable)
	}

	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, unavailable(fmt.Errorf("failed to open database: %w", err))
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable
func (s *SQLiteStorage) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable(err)
	}
	return nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

const commentColumns = `
	id, pr_number, repository, project_path, kind, body,
	comment_embedding, code_embedding, combined_embedding,
	file_path, line_number, start_line, end_line,
	original_code, suggested_code, author, created_at, updated_at,
	category, severity, pattern_tags`

// upsertCommentWithQuerier is the internal implementation that uses a querier
func (s *SQLiteStorage) upsertCommentWithQuerier(ctx context.Context, q querier, c *types.Comment) error {
	if err := validateComment(c); err != nil {
		return err
	}

	tags, err := json.Marshal(nonNilTags(c.PatternTags))
	if err != nil {
		return fmt.Errorf("failed to encode pattern tags: %w", err)
	}

	query := `
		INSERT INTO comments (` + commentColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			pr_number = excluded.pr_number,
			repository = excluded.repository,
			project_path = excluded.project_path,
			kind = excluded.kind,
			body = excluded.body,
			comment_embedding = excluded.comment_embedding,
			code_embedding = excluded.code_embedding,
			combined_embedding = excluded.combined_embedding,
			file_path = excluded.file_path,
			line_number = excluded.line_number,
			start_line = excluded.start_line,
			end_line = excluded.end_line,
			original_code = excluded.original_code,
			suggested_code = excluded.suggested_code,
			author = excluded.author,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			category = excluded.category,
			severity = excluded.severity,
			pattern_tags = excluded.pattern_tags
	`
	_, err = q.ExecContext(ctx, query,
		c.ID, c.PRNumber, c.Repository, c.ProjectPath, string(c.Kind), c.Body,
		serializeVector(c.CommentEmbedding), serializeVector(c.CodeEmbedding), serializeVector(c.CombinedEmbedding),
		c.FilePath, c.LineNumber, c.StartLine, c.EndLine,
		c.OriginalCode, c.SuggestedCode, c.Author, toUnixMilli(c.CreatedAt), toUnixMilli(c.UpdatedAt),
		c.Category, c.Severity, string(tags),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert comment %s: %w", c.ID, err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertComment(ctx context.Context, comment *types.Comment) error {
	return s.upsertCommentWithQuerier(ctx, s.db, comment)
}

// UpsertComments writes all comments in one transaction
func (s *SQLiteStorage) UpsertComments(ctx context.Context, comments []*types.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable(err)
	}

	for _, c := range comments {
		if err := s.upsertCommentWithQuerier(ctx, tx, c); err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) GetComment(ctx context.Context, id string) (*types.Comment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id)
	c, err := scanComment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns comments newest first
func (s *SQLiteStorage) ListComments(ctx context.Context, pred Predicate, limit, offset int) ([]*types.Comment, error) {
	if err := pred.Validate(); err != nil {
		return nil, err
	}

	query, args := applyPredicate(`SELECT `+commentColumns+` FROM comments WHERE 1=1`, nil, pred)
	query += " ORDER BY created_at DESC, id ASC"
	if limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, limit, max(0, offset))
	}

	return s.queryComments(ctx, query, args...)
}

func (s *SQLiteStorage) CountComments(ctx context.Context, pred Predicate) (int, error) {
	if err := pred.Validate(); err != nil {
		return 0, err
	}

	query, args := applyPredicate(`SELECT COUNT(*) FROM comments WHERE 1=1`, nil, pred)
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return n, nil
}

func (s *SQLiteStorage) DeleteComments(ctx context.Context, pred Predicate) (int, error) {
	if err := pred.Validate(); err != nil {
		return 0, err
	}

	query, args := applyPredicate(`DELETE FROM comments WHERE 1=1`, nil, pred)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) SearchVector(ctx context.Context, field types.EmbeddingField, vector []float32, limit int, pred Predicate) ([]VectorResult, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	if err := pred.Validate(); err != nil {
		return nil, err
	}
	if len(vector) == 0 || limit <= 0 {
		return []VectorResult{}, nil
	}

	// Use SQL-side distance when sqlite-vec is compiled in
	if VectorExtensionAvailable {
		return s.searchVectorOptimized(ctx, field, vector, limit, pred)
	}
	return s.searchVectorFallback(ctx, field, vector, limit, pred)
}

// searchVectorOptimized lets sqlite-vec compute distances and order rows
func (s *SQLiteStorage) searchVectorOptimized(ctx context.Context, field types.EmbeddingField, vector []float32, limit int, pred Predicate) ([]VectorResult, error) {
	blob := serializeVector(vector)
	col := string(field)

	query := `SELECT ` + commentColumns + `, vec_distance_cosine(` + col + `, ?) AS distance
		FROM comments WHERE ` + col + ` IS NOT NULL AND length(` + col + `) = ?`
	query, args := applyPredicate(query, []interface{}{blob, len(blob)}, pred)
	query += " ORDER BY distance ASC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var distance float64
		c, err := scanCommentWith(rows, &distance)
		if err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, VectorResult{Comment: *c, Distance: distance})
	}
	return results, rows.Err()
}

// searchVectorFallback scans the filtered rows and ranks them in Go
func (s *SQLiteStorage) searchVectorFallback(ctx context.Context, field types.EmbeddingField, vector []float32, limit int, pred Predicate) ([]VectorResult, error) {
	col := string(field)
	query, args := applyPredicate(`SELECT `+commentColumns+` FROM comments WHERE `+col+` IS NOT NULL`, nil, pred)

	comments, err := s.queryComments(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}

	return rankByDistance(comments, field, vector, limit), nil
}

func (s *SQLiteStorage) queryComments(ctx context.Context, query string, args ...interface{}) ([]*types.Comment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []*types.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// applyPredicate appends the predicate's conditions to a query that already
// has a WHERE clause
func applyPredicate(query string, args []interface{}, p Predicate) (string, []interface{}) {
	var b strings.Builder
	b.WriteString(query)

	add := func(cond string, v interface{}) {
		b.WriteString(" AND ")
		b.WriteString(cond)
		args = append(args, v)
	}

	add("project_path = ?", p.ProjectPath)
	if p.Repository != "" {
		add("repository = ?", p.Repository)
	}
	if p.PRNumber > 0 {
		add("pr_number = ?", p.PRNumber)
	}
	if p.Author != "" {
		add("author = ?", p.Author)
	}
	if p.Kind != "" {
		add("kind = ?", string(p.Kind))
	}
	if p.Category != "" {
		add("category = ?", p.Category)
	}
	if p.Severity != "" {
		add("severity = ?", p.Severity)
	}
	if p.FilePathContains != "" {
		add("instr(file_path, ?) > 0", p.FilePathContains)
	}
	if !p.CreatedAfter.IsZero() {
		add("created_at >= ?", p.CreatedAfter.UnixMilli())
	}
	if !p.CreatedBefore.IsZero() {
		add("created_at < ?", p.CreatedBefore.UnixMilli())
	}

	return b.String(), args
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanComment(r rowScanner) (*types.Comment, error) {
	return scanCommentWith(r)
}

// scanCommentWith scans commentColumns followed by any extra destinations
func scanCommentWith(r rowScanner, extra ...interface{}) (*types.Comment, error) {
	var (
		c                             types.Comment
		kind, tags                    string
		commentVec, codeVec, combined []byte
		created, updated              sql.NullInt64
	)

	dest := []interface{}{
		&c.ID, &c.PRNumber, &c.Repository, &c.ProjectPath, &kind, &c.Body,
		&commentVec, &codeVec, &combined,
		&c.FilePath, &c.LineNumber, &c.StartLine, &c.EndLine,
		&c.OriginalCode, &c.SuggestedCode, &c.Author, &created, &updated,
		&c.Category, &c.Severity, &tags,
	}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	c.Kind = types.CommentKind(kind)
	c.CommentEmbedding = deserializeVector(commentVec)
	c.CodeEmbedding = deserializeVector(codeVec)
	c.CombinedEmbedding = deserializeVector(combined)
	c.CreatedAt = fromUnixMilli(created)
	c.UpdatedAt = fromUnixMilli(updated)

	if tags != "" && tags != "[]" {
		if err := json.Unmarshal([]byte(tags), &c.PatternTags); err != nil {
			return nil, fmt.Errorf("failed to decode pattern tags for %s: %w", c.ID, err)
		}
	}

	return &c, nil
}

func toUnixMilli(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromUnixMilli(n sql.NullInt64) time.Time {
	if !n.Valid {
		return time.Time{}
	}
	return time.UnixMilli(n.Int64).UTC()
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
