//go:build purego || !sqlite_vec

package storage

// Default build: pure Go SQLite, no C toolchain required. SearchVector scans
// the filtered rows and ranks them in Go, which is adequate for review
// histories of tens of thousands of comments per project.
//
//   CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver registered by the import above
	DriverName = "sqlite"

	// VectorExtensionAvailable reports whether SearchVector runs in SQL
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
