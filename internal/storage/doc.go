// Package storage is the vector-capable table of historical review comments.
//
// The retrieval pipeline only reads from it; writes exist for seeding and
// maintenance. Every query takes a Predicate whose ProjectPath (the
// isolation key) is mandatory, so one project can never see another's
// history.
//
// # Backends
//
// SQLiteStorage is the default. The driver is chosen at build time:
//
//   - default / purego: modernc.org/sqlite, distances computed in Go
//   - sqlite_vec tag:   github.com/mattn/go-sqlite3 with sqlite-vec, distances
//     computed in SQL by vec_distance_cosine
//
// MongoStore keeps the same contract on a MongoDB collection.
//
//	store, err := storage.Open(ctx, storage.Config{Driver: "sqlite", Path: "history.db"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
// # Vector Search
//
// SearchVector returns comments ordered by ascending cosine distance
// (1 - similarity) on one of the three embedding columns:
//
//	results, err := store.SearchVector(ctx, types.FieldComment, queryVec, 20, storage.Predicate{
//	    ProjectPath:      "/srv/repos/payments",
//	    FilePathContains: "internal/db",
//	})
//
// Stored vectors whose length differs from the query are skipped rather than
// compared.
//
// # Schema
//
// Embeddings are stored as little-endian float32 blobs, timestamps as Unix
// milliseconds and pattern tags as a JSON array. Migrations are versioned
// with semantic versions and applied on open.
package storage
