//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package source

// Compiled by default and with the purego tag. SQLite sources are opened
// through modernc.org/sqlite, which needs no C toolchain.

import (
	_ "modernc.org/sqlite"
)

const (
	// SQLiteDriverName is the database/sql name of the SQLite driver
	SQLiteDriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
