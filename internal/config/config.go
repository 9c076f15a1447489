// Package config loads engine settings from defaults, an optional .env file
// and the environment.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/chunker"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/indexer"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/storage"
)

// Environment variables
const (
	EnvStorageDir       = "TICKET2CODE_STORAGE_DIR"
	EnvStore            = "TICKET2CODE_STORE"
	EnvEmbedBatchSize   = "TICKET2CODE_EMBED_BATCH_SIZE"
	EnvEmbedConcurrency = "TICKET2CODE_EMBED_CONCURRENCY"
	EnvChunkSize        = "TICKET2CODE_CHUNK_SIZE"
	EnvChunkOverlap     = "TICKET2CODE_CHUNK_OVERLAP"
	EnvLogLevel         = "TICKET2CODE_LOG_LEVEL"
)

// MaxEmbedBatchSize caps chunks per embedding call
const MaxEmbedBatchSize = 100

// ErrInvalidConfig wraps every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds engine settings
type Config struct {
	StorageDir        string
	Store             string // json, sqlite or bolt
	EmbeddingProvider string // openai, jina, local; empty auto-detects
	EmbedBatchSize    int
	EmbedConcurrency  int
	ChunkSize         int
	ChunkOverlap      int
	LogLevel          slog.Level
}

// Default returns the built-in settings
func Default() Config {
	dir := ".ticket2code"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".ticket2code")
	}
	return Config{
		StorageDir:       dir,
		Store:            storage.BackendJSON,
		EmbedBatchSize:   indexer.DefaultBatchSize,
		EmbedConcurrency: indexer.DefaultConcurrency,
		ChunkSize:        chunker.DefaultChunkSize,
		ChunkOverlap:     chunker.DefaultOverlap,
		LogLevel:         slog.LevelInfo,
	}
}

// Load reads envFiles (a missing file is ignored; none means ".env"), then
// the environment, and validates the result. Variables already set in the
// environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	_ = godotenv.Load(envFiles...)
	return FromEnv()
}

// FromEnv builds a Config from defaults and the environment only
func FromEnv() (Config, error) {
	cfg := Default()
	var err error

	if v := os.Getenv(EnvStorageDir); v != "" {
		cfg.StorageDir = expandHome(v)
	}
	if v := os.Getenv(EnvStore); v != "" {
		cfg.Store = strings.ToLower(strings.TrimSpace(v))
	}
	cfg.EmbeddingProvider = strings.ToLower(strings.TrimSpace(os.Getenv(embedder.EnvProvider)))

	if cfg.EmbedBatchSize, err = intEnv(EnvEmbedBatchSize, cfg.EmbedBatchSize); err != nil {
		return cfg, err
	}
	if cfg.EmbedConcurrency, err = intEnv(EnvEmbedConcurrency, cfg.EmbedConcurrency); err != nil {
		return cfg, err
	}
	if cfg.ChunkSize, err = intEnv(EnvChunkSize, cfg.ChunkSize); err != nil {
		return cfg, err
	}
	if cfg.ChunkOverlap, err = intEnv(EnvChunkOverlap, cfg.ChunkOverlap); err != nil {
		return cfg, err
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return cfg, fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, EnvLogLevel, v, err)
		}
	}

	return cfg, cfg.Validate()
}

func intEnv(name string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidConfig, name, v)
	}
	return n, nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

// Validate checks ranges and enumerations
func (c Config) Validate() error {
	if c.StorageDir == "" {
		return fmt.Errorf("%w: storage dir is empty", ErrInvalidConfig)
	}

	switch c.Store {
	case storage.BackendJSON, storage.BackendSQLite, storage.BackendBolt:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	switch c.EmbeddingProvider {
	case "", embedder.ProviderOpenAI, embedder.ProviderJina, embedder.ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidConfig, c.EmbeddingProvider)
	}

	if c.EmbedBatchSize < 1 || c.EmbedBatchSize > MaxEmbedBatchSize {
		return fmt.Errorf("%w: embed batch size must be in [1, %d], got %d", ErrInvalidConfig, MaxEmbedBatchSize, c.EmbedBatchSize)
	}
	if c.EmbedConcurrency < 1 {
		return fmt.Errorf("%w: embed concurrency must be at least 1, got %d", ErrInvalidConfig, c.EmbedConcurrency)
	}
	if err := c.ChunkerOptions().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ChunkerOptions returns the window settings
func (c Config) ChunkerOptions() chunker.Options {
	return chunker.Options{ChunkSize: c.ChunkSize, Overlap: c.ChunkOverlap}
}

// IndexerConfig returns the controller settings using logger
func (c Config) IndexerConfig(logger *slog.Logger) indexer.Config {
	return indexer.Config{
		BatchSize:   c.EmbedBatchSize,
		Concurrency: c.EmbedConcurrency,
		Chunker:     c.ChunkerOptions(),
		Logger:      logger,
	}
}

// WorkspaceKey identifies a workspace root: the first 16 hex characters of
// the SHA-256 of its absolute path
func WorkspaceKey(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve workspace path: %w", err)
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	return hex.EncodeToString(sum[:])[:16], nil
}

// WorkspaceStorageDir returns the storage root holding one workspace's artifacts
func (c Config) WorkspaceStorageDir(root string) (string, error) {
	key, err := WorkspaceKey(root)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.StorageDir, key), nil
}

// NewLogger builds the stderr text logger at the configured level
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.LogLevel}))
}
