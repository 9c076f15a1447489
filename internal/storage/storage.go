package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// Artifact names within a storage root
const (
	IndexArtifact = "embedding-index.json"
	CacheArtifact = "ticket-cache.json"
	MtimeArtifact = "mtime-ledger.json"
)

// Backend names accepted by Open
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// DefaultCacheTTL is how long a cache entry stays readable
const DefaultCacheTTL = 30 * time.Minute

var (
	// ErrUnknownBackend is returned by Open for an unrecognized backend name
	ErrUnknownBackend = errors.New("unknown storage backend")
	// ErrClosed is returned when a closed store is used
	ErrClosed = errors.New("storage closed")
)

// Store persists the three artifacts of one workspace: the embedding index,
// the cache namespace and the mtime ledger.
//
// Reads never fail on missing or malformed data: LoadIndex returns nil and
// LoadMtimes returns an empty record, so callers rebuild from scratch.
// Each write replaces one artifact whole; there is no atomicity across artifacts.
type Store interface {
	// Index operations
	LoadIndex(ctx context.Context) (*types.EmbeddingIndex, error)
	SaveIndex(ctx context.Context, index *types.EmbeddingIndex) error
	ClearIndex(ctx context.Context) error

	// Cache operations
	GetCacheEntry(ctx context.Context, key string, dst any) (bool, error)
	PutCacheEntry(ctx context.Context, key string, value any) error
	ClearCache(ctx context.Context) error

	// Ledger operations
	LoadMtimes(ctx context.Context) (types.MtimeRecord, error)
	SaveMtimes(ctx context.Context, record types.MtimeRecord) error

	Close() error
}

// Option configures a store
type Option func(*options)

type options struct {
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

func defaultOptions() options {
	return options{
		ttl:    DefaultCacheTTL,
		logger: slog.Default(),
		now:    time.Now,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithCacheTTL overrides the cache entry lifetime
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithLogger sets the logger used for recovered read faults
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// withClock replaces the clock used for cache expiry
func withClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// Open creates the store for backend rooted at dir, creating dir if needed
func Open(backend, dir string, opts ...Option) (Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage dir: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendJSON:
		return NewFileStore(dir, opts...)
	case BackendSQLite:
		return NewSQLiteStore(filepath.Join(dir, "index.db"), opts...)
	case BackendBolt:
		return NewBoltStore(filepath.Join(dir, "index.bolt"), opts...)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}
}

// cacheEntry is one value in the cache namespace
type cacheEntry struct {
	Value    json.RawMessage `json:"value"`
	StoredAt time.Time       `json:"storedAt"`
}

func (e cacheEntry) expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.StoredAt) > ttl
}

// decodeIndex parses and validates a serialized index, reporting why it was rejected
func decodeIndex(data []byte) (*types.EmbeddingIndex, error) {
	var index types.EmbeddingIndex
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidIndex, err)
	}
	if err := index.Validate(); err != nil {
		return nil, err
	}
	return &index, nil
}
