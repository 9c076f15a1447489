// Package embedder is the gateway between the retrieval engine and embedding models.
//
// It turns texts into vectors through OpenAI, Jina AI, or an offline hashing
// model, and owns everything network related: request batching up to the
// provider limit, timeouts, retries with backoff, and an LRU cache keyed by
// content hash.
//
// # Basic Usage
//
//	emb, err := embedder.New(embedder.Config{Provider: "openai", CacheSize: 10000})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer emb.Close()
//
//	vectors, err := emb.Embed(ctx, []string{chunkA.Content, chunkB.Content})
//	// len(vectors) == 2, same order as the input
//
// # Provider Selection
//
// NewFromEnv selects a provider from the environment:
//
//  1. If TICKET2CODE_EMBEDDING_PROVIDER is set → use specified provider
//  2. Else if OPENAI_API_KEY is set → use OpenAI
//  3. Else if JINA_API_KEY is set → use Jina AI
//  4. Else → fallback to local provider (offline mode)
//
// # Credentials
//
// Keys are resolved per request rather than configured after construction.
// A provider holds an immutable KeyResolver, and a caller can override it for a
// single call by attaching a key to the context:
//
//	ctx = embedder.WithAPIKey(ctx, userKey)
//	vectors, err := emb.Embed(ctx, texts)
//
// # Errors
//
// Remote failures are classified so callers can react with errors.Is:
//
//   - ErrAuthentication: HTTP 401/403 or no key available. Never retried.
//   - ErrRateLimited: HTTP 429. Retried with exponential backoff.
//   - ErrTransport: network errors, timeouts, other non-200 responses and
//     undecodable bodies. Retried with exponential backoff.
//
// After the last attempt the error is returned wrapped, keeping its kind.
package embedder
