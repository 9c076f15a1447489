package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// DefaultQueryCacheSize bounds the number of remembered query vectors
const DefaultQueryCacheSize = 1000

// ErrEmptyQuery is returned for a blank query text
var ErrEmptyQuery = errors.New("query cannot be empty")

// Searcher embeds query text and ranks a chunk set against it
type Searcher struct {
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, []float32]
}

// NewSearcher creates a new Searcher instance
func NewSearcher(e embedder.Embedder) *Searcher {
	// Cache will automatically evict least recently used entries
	cache, err := lru.New[[32]byte, []float32](DefaultQueryCacheSize)
	if err != nil {
		// This should never happen with valid size parameter
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		embedder: e,
		cache:    cache,
	}
}

// Search embeds query with a single-item call and ranks chunks against it
func (s *Searcher) Search(ctx context.Context, query string, chunks []types.CodeChunk, topN int) ([]types.CodeChunk, error) {
	vector, err := s.QueryVector(ctx, query)
	if err != nil {
		return nil, err
	}
	return RankChunks(vector, chunks, topN)
}

// QueryVector returns the embedding of query, reusing earlier results for identical text
func (s *Searcher) QueryVector(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	key := sha256.Sum256([]byte(query))
	if vector, ok := s.cache.Get(key); ok {
		return vector, nil
	}

	vector, err := embedder.EmbedOne(ctx, s.embedder, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	s.cache.Add(key, vector)
	return vector, nil
}

// ClearCache forgets all remembered query vectors
func (s *Searcher) ClearCache() {
	s.cache.Purge()
}
