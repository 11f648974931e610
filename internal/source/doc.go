// Package source reads item records from the relational catalog in batches.
//
// A Reader pins a single connection for its whole lifetime, asks the server
// for a read-only session (best effort), and hands out batches of joined
// item/store/category rows in ascending item id order. An empty batch means
// the source is exhausted.
//
// # Strategies
//
// Three paging strategies are available:
//   - stream: one query, rows pulled from an open server-side cursor
//   - offset: one LIMIT/OFFSET query per batch
//   - keyset: one "id > last seen" query per batch
//
// Every strategy exposes a resume token after each batch. Passing the token
// back through Options.ResumeToken continues after the last delivered row.
//
// # Drivers
//
// MySQL (go-sql-driver/mysql), PostgreSQL (lib/pq under "postgres", pgx under
// "pgx") and SQLite are registered. The SQLite driver depends on build tags:
//
//	go build ./...                          # modernc.org/sqlite, pure Go
//	CGO_ENABLED=1 go build -tags sqlite_vec # mattn/go-sqlite3
//
// # Basic Usage
//
//	db, err := source.OpenDB(ctx, source.DBConfig{Driver: "mysql", DSN: dsn})
//	r, err := source.Open(ctx, db, source.Query{ModuleIDs: []int64{4, 6}}, source.Options{
//	    Driver:    "mysql",
//	    Strategy:  source.StrategyStream,
//	    BatchSize: 500,
//	})
//	defer r.Close()
//
//	for {
//	    batch, err := r.Next(ctx)
//	    if err != nil || len(batch) == 0 {
//	        break
//	    }
//	    // process batch
//	}
package source
