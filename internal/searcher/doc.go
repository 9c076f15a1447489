// Package searcher ranks indexed chunks against a query by cosine similarity.
//
// The ranking primitives are pure functions:
//
//	score, err := searcher.CosineSimilarity(a, b)       // error on length mismatch
//	top, err := searcher.RankChunks(query, chunks, 10)  // stable, descending
//
// RankChunks skips chunks without an embedding and returns scored copies, so the
// caller's chunk set is never mutated and may be shared with concurrent readers.
//
// Searcher adds the query side: it embeds the query text through an
// embedder.Embedder and keeps an LRU of recent query vectors so repeated
// searches for the same text do not call the embedding provider again.
//
//	s := searcher.NewSearcher(emb)
//	results, err := s.Search(ctx, "retry failed webhook deliveries", chunks, 10)
package searcher
