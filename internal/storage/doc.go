// Package storage persists the artifacts of one workspace index.
//
// A storage root holds three artifacts:
//   - embedding-index.json: the versioned chunk/embedding index
//   - ticket-cache.json: a keyed cache namespace with a 30 minute TTL
//   - mtime-ledger.json: relative path to last observed modification time
//
// # Backends
//
// Three backends implement Store:
//   - json (default): one JSON file per artifact, written to a temp file and renamed
//   - sqlite: one row per chunk with embeddings as little-endian float32 blobs,
//     schema managed by semver migrations
//   - bolt: one bbolt key per artifact
//
// The SQLite driver is chosen at build time. The default build uses the pure Go
// modernc.org/sqlite; the sqlite_cgo tag switches to github.com/mattn/go-sqlite3:
//
//	CGO_ENABLED=1 go build -tags "sqlite_cgo" ./...
//
// # Failure model
//
// Reads recover from missing, unreadable or malformed artifacts by reporting
// them absent. An index with an unknown version or an invalid chunk is treated
// the same way, so the caller rebuilds it. Writes replace one artifact at a time.
//
// # Basic Usage
//
//	store, err := storage.Open(storage.BackendJSON, dir)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	index, err := store.LoadIndex(ctx) // nil when absent
package storage
