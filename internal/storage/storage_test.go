package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// fakeClock is a settable time source for cache expiry tests
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func openTestStores(t *testing.T, opts ...Option) map[string]Store {
	t.Helper()

	stores := make(map[string]Store)
	for _, backend := range []string{BackendJSON, BackendSQLite, BackendBolt} {
		store, err := Open(backend, t.TempDir(), opts...)
		require.NoError(t, err, backend)
		t.Cleanup(func() { _ = store.Close() })
		stores[backend] = store
	}
	return stores
}

func sampleIndex() *types.EmbeddingIndex {
	mod := time.Date(2025, 3, 14, 9, 26, 53, 589793238, time.UTC)
	index := types.NewEmbeddingIndex([]types.CodeChunk{
		{FilePath: "src/a.ts", StartLine: 0, EndLine: 79, Content: "export const a = 1", Embedding: []float32{0.1, -0.2, 0.3}, ModTime: &mod},
		{FilePath: "src/a.ts", StartLine: 65, EndLine: 99, Content: "export const b = 2", Embedding: []float32{0.4, 0.5, -0.6}, ModTime: &mod},
		{FilePath: "README.md", StartLine: 0, EndLine: 3, Content: "# Title"},
	}, time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC))
	index.Stamp("local", "local-hashing-v1", 3)
	return index
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open("postgres", t.TempDir())
	assert.ErrorIs(t, err, ErrUnknownBackend)
}

func TestStore_IndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			index, err := store.LoadIndex(ctx)
			require.NoError(t, err)
			assert.Nil(t, index, "fresh store has no index")

			want := sampleIndex()
			require.NoError(t, store.SaveIndex(ctx, want))

			got, err := store.LoadIndex(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.Equal(t, types.CurrentIndexVersion, got.Version)
			assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
			assert.True(t, got.SameEmbeddingSpace("local", "local-hashing-v1", 3), "embedding space must survive")
			require.Len(t, got.Chunks, len(want.Chunks))
			for i := range want.Chunks {
				w, g := want.Chunks[i], got.Chunks[i]
				assert.Equal(t, w.RangeKey(), g.RangeKey())
				assert.Equal(t, w.Content, g.Content)
				assert.Equal(t, w.HasEmbedding(), g.HasEmbedding())
				if w.HasEmbedding() {
					assert.Equal(t, w.Embedding, g.Embedding)
				}
				if w.ModTime == nil {
					assert.Nil(t, g.ModTime)
				} else {
					require.NotNil(t, g.ModTime)
					assert.True(t, w.ModTime.Equal(*g.ModTime), "mod time must survive exactly")
				}
			}
		})
	}
}

func TestStore_SaveIndexReplaces(t *testing.T) {
	ctx := context.Background()
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveIndex(ctx, sampleIndex()))

			smaller := types.NewEmbeddingIndex([]types.CodeChunk{
				{FilePath: "b.go", StartLine: 0, EndLine: 0, Content: "package b", Embedding: []float32{1}},
			}, time.Now())
			require.NoError(t, store.SaveIndex(ctx, smaller))

			got, err := store.LoadIndex(ctx)
			require.NoError(t, err)
			require.NotNil(t, got)
			require.Len(t, got.Chunks, 1)
			assert.Equal(t, "b.go", got.Chunks[0].FilePath)
		})
	}
}

func TestStore_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveIndex(ctx, types.NewEmbeddingIndex(nil, time.Now())))

			got, err := store.LoadIndex(ctx)
			require.NoError(t, err)
			require.NotNil(t, got, "an empty index is still an index")
			assert.Empty(t, got.Chunks)
		})
	}
}

func TestStore_ClearIndex(t *testing.T) {
	ctx := context.Background()
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.SaveIndex(ctx, sampleIndex()))
			require.NoError(t, store.SaveMtimes(ctx, types.MtimeRecord{"a.go": time.Now()}))
			require.NoError(t, store.PutCacheEntry(ctx, "k", "v"))

			require.NoError(t, store.ClearIndex(ctx))
			// Clearing twice is fine
			require.NoError(t, store.ClearIndex(ctx))

			index, err := store.LoadIndex(ctx)
			require.NoError(t, err)
			assert.Nil(t, index)

			mtimes, err := store.LoadMtimes(ctx)
			require.NoError(t, err)
			assert.Empty(t, mtimes)

			var v string
			ok, err := store.GetCacheEntry(ctx, "k", &v)
			require.NoError(t, err)
			assert.True(t, ok, "clearing the index leaves the cache alone")
		})
	}
}

func TestStore_Mtimes(t *testing.T) {
	ctx := context.Background()
	for name, store := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			record, err := store.LoadMtimes(ctx)
			require.NoError(t, err)
			assert.NotNil(t, record)
			assert.Empty(t, record)

			t1 := time.Date(2025, 1, 2, 3, 4, 5, 6, time.UTC)
			t2 := time.Date(2025, 6, 7, 8, 9, 10, 11, time.UTC)
			require.NoError(t, store.SaveMtimes(ctx, types.MtimeRecord{"a.go": t1, "dir/b.ts": t2}))
			require.NoError(t, store.SaveMtimes(ctx, types.MtimeRecord{"dir/b.ts": t2}))

			got, err := store.LoadMtimes(ctx)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.True(t, got["dir/b.ts"].Equal(t2))
		})
	}
}

func TestStore_Cache(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)}

	type ticketSummary struct {
		Key   string   `json:"key"`
		Files []string `json:"files"`
	}

	for name, store := range openTestStores(t, withClock(clock.Now)) {
		t.Run(name, func(t *testing.T) {
			clock.now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

			var miss ticketSummary
			ok, err := store.GetCacheEntry(ctx, "PROJ-1", &miss)
			require.NoError(t, err)
			assert.False(t, ok)

			want := ticketSummary{Key: "PROJ-1", Files: []string{"a.go", "b.go"}}
			require.NoError(t, store.PutCacheEntry(ctx, "PROJ-1", want))

			clock.now = clock.now.Add(29 * time.Minute)
			var got ticketSummary
			ok, err = store.GetCacheEntry(ctx, "PROJ-1", &got)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, want, got)

			clock.now = clock.now.Add(2 * time.Minute)
			ok, err = store.GetCacheEntry(ctx, "PROJ-1", &got)
			require.NoError(t, err)
			assert.False(t, ok, "entry older than the TTL is expired")

			// Expired entries are removed, so a later clock rewind does not revive them
			clock.now = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
			ok, err = store.GetCacheEntry(ctx, "PROJ-1", &got)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, store.PutCacheEntry(ctx, "PROJ-2", want))
			require.NoError(t, store.ClearCache(ctx))
			ok, err = store.GetCacheEntry(ctx, "PROJ-2", &got)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_CustomTTL(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Now()}
	store, err := NewFileStore(t.TempDir(), WithCacheTTL(time.Minute), withClock(clock.Now))
	require.NoError(t, err)

	require.NoError(t, store.PutCacheEntry(ctx, "k", 42))
	clock.now = clock.now.Add(2 * time.Minute)

	var v int
	ok, err := store.GetCacheEntry(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFileStore_CorruptArtifacts(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "{{{ definitely not json"},
		{name: "json null", content: "null"},
		{name: "unknown version", content: `{"version":2,"createdAt":"2025-01-01T00:00:00Z","chunks":[]}`},
		{name: "missing createdAt", content: `{"version":1,"chunks":[]}`},
		{name: "inverted range", content: `{"version":1,"createdAt":"2025-01-01T00:00:00Z","chunks":[{"filePath":"a.go","startLine":5,"endLine":2,"content":"x"}]}`},
		{name: "empty path", content: `{"version":1,"createdAt":"2025-01-01T00:00:00Z","chunks":[{"filePath":"","startLine":0,"endLine":2,"content":"x"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			store, err := NewFileStore(dir)
			require.NoError(t, err)

			require.NoError(t, os.WriteFile(filepath.Join(dir, IndexArtifact), []byte(tt.content), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, MtimeArtifact), []byte(tt.content), 0o644))
			require.NoError(t, os.WriteFile(filepath.Join(dir, CacheArtifact), []byte(tt.content), 0o644))

			index, err := store.LoadIndex(ctx)
			require.NoError(t, err)
			assert.Nil(t, index)

			mtimes, err := store.LoadMtimes(ctx)
			require.NoError(t, err)
			assert.NotNil(t, mtimes)

			var v string
			ok, err := store.GetCacheEntry(ctx, "k", &v)
			require.NoError(t, err)
			assert.False(t, ok)

			// A corrupt cache is replaced on the next write
			require.NoError(t, store.PutCacheEntry(ctx, "k", "fresh"))
			ok, err = store.GetCacheEntry(ctx, "k", &v)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "fresh", v)
		})
	}
}

func TestFileStore_AtomicWriteLeavesNoTemp(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.SaveIndex(ctx, sampleIndex()))
	require.NoError(t, store.SaveMtimes(ctx, types.MtimeRecord{"a.go": time.Now()}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{IndexArtifact, MtimeArtifact}, names)
}

func TestFileStore_ReadsPlainJSON(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)

	doc := `{"version":1,"createdAt":"2025-01-01T00:00:00Z","chunks":[
		{"filePath":"src/x.ts","startLine":0,"endLine":1,"content":"a\nb","embedding":[0.5,0.5],"modTime":"2025-01-01T00:00:00.123456789Z"}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexArtifact), []byte(doc), 0o644))

	index, err := store.LoadIndex(ctx)
	require.NoError(t, err)
	require.NotNil(t, index)
	require.Len(t, index.Chunks, 1)
	assert.Equal(t, []float32{0.5, 0.5}, index.Chunks[0].Embedding)
	assert.Equal(t, 123456789, index.Chunks[0].ModTime.Nanosecond())
}

func TestSQLiteStore_RejectsUnknownVersion(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.SaveIndex(ctx, sampleIndex()))
	_, err = store.db.ExecContext(ctx, `UPDATE index_meta SET version = 2`)
	require.NoError(t, err)

	index, err := store.LoadIndex(ctx)
	require.NoError(t, err)
	assert.Nil(t, index)
}

func TestSQLiteStore_Migrations(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	v, err := currentVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	// Re-applying is a no-op
	require.NoError(t, ApplyMigrations(ctx, store.db))
	v, err = currentVersion(ctx, store.db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())
}

func TestSQLiteStore_UpgradesExistingDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := openDatabase(":memory:")
	require.NoError(t, err)

	// A database written before embedding-space columns existed
	for _, m := range AllMigrations[:2] {
		_, err := db.ExecContext(ctx, m.Up)
		require.NoError(t, err)
		_, err = db.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", m.Version)
		require.NoError(t, err)
	}
	created := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	_, err = db.ExecContext(ctx, `INSERT INTO index_meta (id, version, created_at_ns) VALUES (1, 1, ?)`, created.UnixNano())
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `
		INSERT INTO chunks (seq, file_path, start_line, end_line, content, embedding, mod_time_ns)
		VALUES (0, 'a.go', 0, 2, 'package a', ?, ?)
	`, serializeVector([]float32{1, 2}), created.UnixNano())
	require.NoError(t, err)

	require.NoError(t, ApplyMigrations(ctx, db))
	v, err := currentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, CurrentSchemaVersion, v.String())

	store := &SQLiteStore{db: db, ttl: DefaultCacheTTL, logger: defaultOptions().logger, now: time.Now}
	defer store.Close()

	index, err := store.LoadIndex(ctx)
	require.NoError(t, err)
	require.NotNil(t, index, "existing rows survive the upgrade")
	require.Len(t, index.Chunks, 1)
	assert.Empty(t, index.Provider)
	assert.False(t, index.SameEmbeddingSpace("local", "local-hashing-v1", 2), "unstamped indexes never match")
}

func TestVectorSerialization(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 3.4028235e38}
	out, ok := deserializeVector(serializeVector(in))
	require.True(t, ok)
	assert.Equal(t, in, out)

	_, ok = deserializeVector([]byte{1, 2, 3})
	assert.False(t, ok)
}
