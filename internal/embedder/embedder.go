package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrEmptyText         = errors.New("text cannot be empty")
	ErrBatchTooLarge     = errors.New("batch size exceeds limit")
	ErrUnknownProvider   = errors.New("unknown embedding provider")
	ErrNoProviderEnabled = errors.New("no embedding provider configured")

	// Failure kinds surfaced by remote providers. Callers match them with errors.Is.
	ErrAuthentication = errors.New("embedding provider authentication failed")
	ErrRateLimited    = errors.New("embedding provider rate limit hit")
	ErrTransport      = errors.New("embedding provider request failed")
)

// Embedder turns texts into vectors.
//
// Embed returns one vector per input text, in input order. Implementations may
// split the input into several upstream requests to respect provider limits.
type Embedder interface {
	// Embed generates embeddings for texts
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding dimension for this provider
	Dimension() int

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the embedder
	Close() error
}

// EmbedOne embeds a single text through e
func EmbedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected 1 embedding, got %d", ErrTransport, len(vectors))
	}
	return vectors[0], nil
}

// Cache provides in-memory LRU caching of vectors by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 10000 // Default: cache 10k embeddings
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](10000)
	}
	return &Cache{
		cache: cache,
	}
}

// Get returns a copy of the cached vector so callers cannot mutate the cache
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a vector in cache with automatic LRU eviction
func (c *Cache) Set(hash string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(hash, stored)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// ComputeHash computes SHA-256 hash of text for caching
func ComputeHash(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}

// ValidateTexts rejects empty strings in an embedding request
func ValidateTexts(texts []string) error {
	for i, text := range texts {
		if text == "" {
			return fmt.Errorf("%w: text at index %d is empty", ErrInvalidInput, i)
		}
	}
	return nil
}

// batchFunc embeds one upstream batch
type batchFunc func(ctx context.Context, texts []string) ([][]float32, error)

// embedCached resolves texts from cache, sends the misses upstream in groups of
// at most maxBatch, and reassembles the vectors in input order.
func embedCached(ctx context.Context, cache *Cache, texts []string, maxBatch int, call batchFunc) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if err := ValidateTexts(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	hashes := make([]string, len(texts))

	// Identical texts are sent once
	missIndex := make(map[string][]int)
	var misses []string

	for i, text := range texts {
		hashes[i] = ComputeHash(text)
		if cache != nil {
			if vec, ok := cache.Get(hashes[i]); ok {
				out[i] = vec
				continue
			}
		}
		if _, seen := missIndex[hashes[i]]; !seen {
			misses = append(misses, text)
		}
		missIndex[hashes[i]] = append(missIndex[hashes[i]], i)
	}

	if maxBatch <= 0 {
		maxBatch = len(misses)
	}

	for start := 0; start < len(misses); start += maxBatch {
		end := start + maxBatch
		if end > len(misses) {
			end = len(misses)
		}
		group := misses[start:end]

		vectors, err := call(ctx, group)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(group) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrTransport, len(group), len(vectors))
		}

		for j, text := range group {
			hash := ComputeHash(text)
			if cache != nil {
				cache.Set(hash, vectors[j])
			}
			for _, i := range missIndex[hash] {
				out[i] = vectors[j]
			}
		}
	}

	return out, nil
}
