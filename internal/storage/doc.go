// Package storage keeps a SQLite ledger of sync runs.
//
// Each run of a sync job gets one row in the runs table. The row is created
// when the run starts, updated after every batch with the running counters
// and the reader's resume token, and finalised with a terminal status. A run
// that never reached "completed" leaves its last token behind so the next
// invocation can pick up where it stopped:
//
//	ledger, err := storage.NewSQLiteStorage("searchsync.db")
//	if err != nil {
//	    return err
//	}
//	defer ledger.Close()
//
//	cp, err := ledger.LastCheckpoint(ctx, "food", "food_items")
//
// # Build Tags
//
// CGO build (sqlite_vec tag) uses github.com/mattn/go-sqlite3. The default
// build uses the pure Go modernc.org/sqlite driver:
//
//	CGO_ENABLED=0 go build ./...
//	CGO_ENABLED=1 go build -tags sqlite_vec ./...
package storage
