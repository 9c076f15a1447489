package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/storage"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		EnvStorageDir, EnvStore, EnvEmbedBatchSize, EnvEmbedConcurrency,
		EnvChunkSize, EnvChunkOverlap, EnvLogLevel, embedder.EnvProvider,
	} {
		t.Setenv(name, "")
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, storage.BackendJSON, cfg.Store)
	assert.Equal(t, 50, cfg.EmbedBatchSize)
	assert.Equal(t, 3, cfg.EmbedConcurrency)
	assert.Equal(t, 80, cfg.ChunkSize)
	assert.Equal(t, 15, cfg.ChunkOverlap)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, ".ticket2code", filepath.Base(cfg.StorageDir))
	assert.Empty(t, cfg.EmbeddingProvider)
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Setenv(EnvStorageDir, dir)
	t.Setenv(EnvStore, "SQLite")
	t.Setenv(EnvEmbedBatchSize, "20")
	t.Setenv(EnvEmbedConcurrency, "5")
	t.Setenv(EnvChunkSize, "40")
	t.Setenv(EnvChunkOverlap, "0")
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(embedder.EnvProvider, "local")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.StorageDir)
	assert.Equal(t, storage.BackendSQLite, cfg.Store)
	assert.Equal(t, 20, cfg.EmbedBatchSize)
	assert.Equal(t, 5, cfg.EmbedConcurrency)
	assert.Equal(t, 40, cfg.ChunkSize)
	assert.Equal(t, 0, cfg.ChunkOverlap)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, embedder.ProviderLocal, cfg.EmbeddingProvider)

	ic := cfg.IndexerConfig(nil)
	assert.Equal(t, 20, ic.BatchSize)
	assert.Equal(t, 5, ic.Concurrency)
	assert.Equal(t, 40, ic.Chunker.ChunkSize)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "overlap not below size", key: EnvChunkOverlap, value: "80"},
		{name: "negative overlap", key: EnvChunkOverlap, value: "-1"},
		{name: "batch too large", key: EnvEmbedBatchSize, value: "101"},
		{name: "batch zero", key: EnvEmbedBatchSize, value: "0"},
		{name: "concurrency zero", key: EnvEmbedConcurrency, value: "0"},
		{name: "not a number", key: EnvChunkSize, value: "eighty"},
		{name: "unknown store", key: EnvStore, value: "postgres"},
		{name: "unknown provider", key: embedder.EnvProvider, value: "cohere"},
		{name: "bad log level", key: EnvLogLevel, value: "loud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv does not override variables that are already set, even to ""
	require.NoError(t, os.Unsetenv(EnvChunkSize))
	require.NoError(t, os.Unsetenv(EnvEmbedConcurrency))
	t.Cleanup(func() {
		_ = os.Unsetenv(EnvChunkSize)
		_ = os.Unsetenv(EnvEmbedConcurrency)
	})
	t.Setenv(EnvEmbedBatchSize, "10")

	envFile := filepath.Join(t.TempDir(), ".env")
	content := EnvChunkSize + "=60\n" + EnvEmbedConcurrency + "=2\n" + EnvEmbedBatchSize + "=99\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.ChunkSize)
	assert.Equal(t, 2, cfg.EmbedConcurrency)
	assert.Equal(t, 10, cfg.EmbedBatchSize, "environment wins over .env")
}

func TestLoad_MissingDotEnv(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestWorkspaceStorageDir(t *testing.T) {
	cfg := Default()
	cfg.StorageDir = "/var/lib/t2c"

	root := t.TempDir()
	dir1, err := cfg.WorkspaceStorageDir(root)
	require.NoError(t, err)
	dir2, err := cfg.WorkspaceStorageDir(root + string(filepath.Separator))
	require.NoError(t, err)
	other, err := cfg.WorkspaceStorageDir(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, dir1, dir2, "equivalent paths share a storage root")
	assert.NotEqual(t, dir1, other)
	assert.Equal(t, "/var/lib/t2c", filepath.Dir(dir1))
	assert.Len(t, filepath.Base(dir1), 16)
}
