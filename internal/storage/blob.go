package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// blobBackend stores named artifacts as opaque documents
type blobBackend interface {
	get(ctx context.Context, name string) ([]byte, bool, error)
	put(ctx context.Context, name string, data []byte) error
	delete(ctx context.Context, name string) error
	close() error
}

// blobStore implements Store by serializing each artifact as one JSON document
type blobStore struct {
	backend blobBackend
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time

	// cacheMu serializes read-modify-write of the cache document
	cacheMu sync.Mutex
}

func newBlobStore(backend blobBackend, o options) *blobStore {
	return &blobStore{
		backend: backend,
		ttl:     o.ttl,
		logger:  o.logger,
		now:     o.now,
	}
}

func (s *blobStore) LoadIndex(ctx context.Context) (*types.EmbeddingIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, ok, err := s.backend.get(ctx, IndexArtifact)
	if err != nil {
		s.logger.Warn("index unreadable, treating as absent", "error", err)
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	index, err := decodeIndex(data)
	if err != nil {
		s.logger.Warn("index rejected, treating as absent", "error", err)
		return nil, nil
	}
	return index, nil
}

func (s *blobStore) SaveIndex(ctx context.Context, index *types.EmbeddingIndex) error {
	if index == nil {
		return fmt.Errorf("%w: nil index", types.ErrInvalidIndex)
	}
	data, err := json.Marshal(index)
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}
	if err := s.backend.put(ctx, IndexArtifact, data); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}
	return nil
}

func (s *blobStore) ClearIndex(ctx context.Context) error {
	if err := s.backend.delete(ctx, IndexArtifact); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	if err := s.backend.delete(ctx, MtimeArtifact); err != nil {
		return fmt.Errorf("failed to clear mtime ledger: %w", err)
	}
	return nil
}

// loadCache reads the cache document; unreadable or corrupt data yields an empty cache
func (s *blobStore) loadCache(ctx context.Context) map[string]cacheEntry {
	entries := make(map[string]cacheEntry)
	data, ok, err := s.backend.get(ctx, CacheArtifact)
	if err != nil {
		s.logger.Warn("cache unreadable, treating as empty", "error", err)
		return entries
	}
	if !ok {
		return entries
	}
	if err := json.Unmarshal(data, &entries); err != nil || entries == nil {
		if err != nil {
			s.logger.Warn("cache corrupt, treating as empty", "error", err)
		}
		return make(map[string]cacheEntry)
	}
	return entries
}

func (s *blobStore) saveCache(ctx context.Context, entries map[string]cacheEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	return s.backend.put(ctx, CacheArtifact, data)
}

func (s *blobStore) GetCacheEntry(ctx context.Context, key string, dst any) (bool, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entries := s.loadCache(ctx)
	entry, ok := entries[key]
	if !ok {
		return false, nil
	}

	if entry.expired(s.now(), s.ttl) {
		delete(entries, key)
		if err := s.saveCache(ctx, entries); err != nil {
			return false, fmt.Errorf("failed to evict cache entry: %w", err)
		}
		return false, nil
	}

	if err := json.Unmarshal(entry.Value, dst); err != nil {
		s.logger.Warn("cache entry undecodable, treating as miss", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *blobStore) PutCacheEntry(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	entries := s.loadCache(ctx)
	entries[key] = cacheEntry{Value: raw, StoredAt: s.now().UTC()}
	if err := s.saveCache(ctx, entries); err != nil {
		return fmt.Errorf("failed to save cache: %w", err)
	}
	return nil
}

func (s *blobStore) ClearCache(ctx context.Context) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	if err := s.backend.delete(ctx, CacheArtifact); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (s *blobStore) LoadMtimes(ctx context.Context) (types.MtimeRecord, error) {
	record := make(types.MtimeRecord)
	if err := ctx.Err(); err != nil {
		return record, err
	}

	data, ok, err := s.backend.get(ctx, MtimeArtifact)
	if err != nil {
		s.logger.Warn("mtime ledger unreadable, treating as empty", "error", err)
		return record, nil
	}
	if !ok {
		return record, nil
	}
	if err := json.Unmarshal(data, &record); err != nil || record == nil {
		if err != nil {
			s.logger.Warn("mtime ledger corrupt, treating as empty", "error", err)
		}
		return make(types.MtimeRecord), nil
	}
	return record, nil
}

func (s *blobStore) SaveMtimes(ctx context.Context, record types.MtimeRecord) error {
	if record == nil {
		record = types.MtimeRecord{}
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode mtime ledger: %w", err)
	}
	if err := s.backend.put(ctx, MtimeArtifact, data); err != nil {
		return fmt.Errorf("failed to save mtime ledger: %w", err)
	}
	return nil
}

func (s *blobStore) Close() error {
	return s.backend.close()
}
