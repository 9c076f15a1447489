// Package indexer discovers workspace files and maintains an incremental
// embedding index over them.
//
// # Basic Usage
//
//	idx, err := indexer.New(store, emb, indexer.Config{})
//	if err != nil {
//	    return err
//	}
//
//	stats, err := idx.IndexWorkspace(ctx, "/path/to/workspace", indexer.IndexOptions{
//	    OnProgress: func(current, total int) { ... },
//	})
//
//	results, err := idx.Search(ctx, "where are webhooks retried", 10)
//
// # Indexing Pass
//
// Each IndexWorkspace call runs five phases, timed in Statistics.Timings:
//
//  1. Load: read the persisted index; missing or invalid data means an empty baseline
//  2. Discover: walk the root (see DiscoverFiles)
//  3. Classify: reuse a file's cached chunks when every one of them carries the
//     file's current modification time and an embedding; otherwise re-chunk it
//  4. Embed: send new chunks in batches of BatchSize with at most Concurrency
//     calls in flight, assigning vectors back by (filePath, startLine)
//  5. Commit: persist the merged index, then swap it in for searches
//
// A failed embedding call or a failed save aborts the pass without committing.
// Files that cannot be read are skipped, logged and counted in FilesFailed.
//
// # Concurrency
//
// Only one pass (or Clear) runs at a time per Indexer; a second caller gets
// ErrIndexingInProgress. The committed chunk set is replaced atomically, so
// Search can run at any time and never sees a partial set.
//
// # Discovery Rules
//
// DiscoverFiles keeps regular files with an allow-listed extension of at most
// 500 KiB. It skips dependency, build, VCS and IDE directories, every directory
// whose name starts with a dot, and symlinks. Unreadable paths are skipped.
package indexer
