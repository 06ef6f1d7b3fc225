//go:build sqlite_vec

package storage

// Compiled with CGO and the sqlite_vec tag. Vector distances are computed in
// SQL with vec_distance_cosine, so the sqlite-vec extension must be
// registered with the driver (for example via sqlite_vec.Auto()) before the
// first query.
//
//   CGO_ENABLED=1 go build -tags sqlite_vec ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver registered by the import above
	DriverName = "sqlite3"

	// VectorExtensionAvailable reports whether SearchVector runs in SQL
	VectorExtensionAvailable = true

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
