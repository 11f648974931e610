//go:build sqlite_vec
// +build sqlite_vec

package source

// Compiled with CGO and the sqlite_vec tag. SQLite sources are opened through
// github.com/mattn/go-sqlite3.
//
// Build command:
//   CGO_ENABLED=1 go build -tags "sqlite_vec" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// SQLiteDriverName is the database/sql name of the SQLite driver
	SQLiteDriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
