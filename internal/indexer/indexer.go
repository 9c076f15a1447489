package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/chunker"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/searcher"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/storage"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// Defaults for the embedding fan-out
const (
	DefaultBatchSize   = 50
	DefaultConcurrency = 3
)

// Config contains configuration for the indexer
type Config struct {
	BatchSize   int             // Chunks per embedding call (default: 50)
	Concurrency int             // Embedding calls in flight (default: 3)
	Chunker     chunker.Options // Window size and overlap (default: 80/15)
	Logger      *slog.Logger    // Defaults to slog.Default()
}

// IndexOptions controls a single IndexWorkspace pass
type IndexOptions struct {
	// Force ignores cached chunks and re-embeds every file
	Force bool
	// OnProgress receives (embedded so far, total to embed) with non-decreasing current
	OnProgress func(current, total int)
}

// snapshot is one committed, immutable chunk set
type snapshot struct {
	root      string
	chunks    []types.CodeChunk
	createdAt time.Time
}

// Indexer is the incremental index controller of one workspace.
// Searches may run concurrently with each other and with an index pass;
// they always see a complete committed chunk set.
type Indexer struct {
	store    storage.Store
	embedder embedder.Embedder
	searcher *searcher.Searcher
	chunker  *chunker.Chunker

	batchSize   int
	concurrency int
	logger      *slog.Logger

	lock  IndexLock
	state atomic.Pointer[snapshot]
}

// New creates an Indexer persisting to store and embedding through e
func New(store storage.Store, e embedder.Embedder, cfg Config) (*Indexer, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	if e == nil {
		return nil, errors.New("embedder is required")
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	ch, err := chunker.NewWithOptions(cfg.Chunker)
	if err != nil {
		return nil, err
	}

	return &Indexer{
		store:       store,
		embedder:    e,
		searcher:    searcher.NewSearcher(e),
		chunker:     ch,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
	}, nil
}

// IndexWorkspace runs one incremental pass over root: load the previous index,
// discover files, reuse chunks of unchanged files, embed the rest and commit.
// On any embedding or persistence failure nothing is committed and the previous
// state stays in effect.
func (idx *Indexer) IndexWorkspace(ctx context.Context, root string, opts IndexOptions) (*Statistics, error) {
	release, err := idx.lock.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	startTime := time.Now()
	stats := newStatistics(uuid.NewString())
	logger := idx.logger.With("run_id", stats.RunID, "root", root)
	logger.Info("index pass started", "force", opts.Force)

	// Load
	done := stats.phase(PhaseLoad)
	base, err := idx.loadPrevious(ctx, opts.Force, logger)
	done()
	if err != nil {
		return nil, err
	}

	// Discover
	done = stats.phase(PhaseDiscover)
	files := DiscoverFiles(root)
	sort.Slice(files, func(i, j int) bool { return files[i].RelativePath < files[j].RelativePath })
	stats.FilesDiscovered = len(files)
	done()

	// Classify
	done = stats.phase(PhaseClassify)
	all, pending, current, reindexed := idx.classify(ctx, files, base, stats, logger)
	done()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Embed
	done = stats.phase(PhaseEmbed)
	err = idx.embedPending(ctx, all, pending, opts.OnProgress, stats)
	done()
	if err != nil {
		logger.Error("index pass aborted", "error", err)
		return nil, err
	}

	// Commit
	done = stats.phase(PhaseCommit)
	err = idx.commit(ctx, root, all, current, logger)
	done()
	if err != nil {
		logger.Error("index pass aborted", "error", err)
		return nil, err
	}

	known := base.known()
	seen := make(types.MtimeRecord, len(files))
	for _, f := range files {
		seen[f.RelativePath] = time.Time{}
	}
	stats.FilesNew = len(types.NewFiles(reindexed, known))
	stats.FilesChanged = len(types.ChangedFiles(reindexed, known)) - stats.FilesNew
	stats.FilesDeleted = len(types.DeletedFiles(seen, known))
	stats.ChunksTotal = len(all)
	stats.Duration = time.Since(startTime)

	logger.Info("index pass finished",
		"files", stats.FilesDiscovered,
		"reused", stats.FilesReused,
		"reindexed", stats.FilesReindexed,
		"new", stats.FilesNew,
		"changed", stats.FilesChanged,
		"failed", stats.FilesFailed,
		"deleted", stats.FilesDeleted,
		"chunks", stats.ChunksTotal,
		"embedded", stats.ChunksEmbedded,
		"duration", stats.Duration)

	return stats, nil
}

// baseline is what the previous committed pass left behind
type baseline struct {
	chunks map[string][]types.CodeChunk
	ledger types.MtimeRecord
	// loaded is set when a stored index in the current embedding space was read
	loaded bool
}

// known returns the last recorded mtime of every file the previous pass kept,
// preferring the ledger over chunk stamps
func (b baseline) known() types.MtimeRecord {
	fromChunks := make(types.MtimeRecord, len(b.chunks))
	for path, chunks := range b.chunks {
		var mod time.Time
		if len(chunks) > 0 && chunks[0].ModTime != nil {
			mod = *chunks[0].ModTime
		}
		fromChunks[path] = mod
	}
	return types.Merge(fromChunks, b.ledger)
}

// loadPrevious reads the stored index and mtime ledger. An index built in a
// different embedding space is discarded so every file is re-embedded.
func (idx *Indexer) loadPrevious(ctx context.Context, force bool, logger *slog.Logger) (baseline, error) {
	base := baseline{chunks: map[string][]types.CodeChunk{}}

	ledger, err := idx.store.LoadMtimes(ctx)
	if err != nil {
		return base, fmt.Errorf("failed to load mtime ledger: %w", err)
	}
	base.ledger = ledger

	if force {
		return base, nil
	}

	index, err := idx.store.LoadIndex(ctx)
	if err != nil {
		return base, fmt.Errorf("failed to load index: %w", err)
	}
	if index == nil {
		return base, nil
	}

	provider, model, dims := idx.embedder.Provider(), idx.embedder.Model(), idx.embedder.Dimension()
	if !index.SameEmbeddingSpace(provider, model, dims) {
		logger.Info("stored index uses a different embedding space, rebuilding",
			"stored_provider", index.Provider,
			"stored_model", index.Model,
			"stored_dimensions", index.Dimensions,
			"provider", provider,
			"model", model,
			"dimensions", dims)
		return base, nil
	}

	base.chunks = index.ChunksByFile()
	base.loaded = true
	return base, nil
}

// reusable reports whether cached chunks are still valid for a file modified at modTime.
// Every chunk of a file is regenerated together, so every one must carry modTime
// and an embedding of length dims; a single mismatch invalidates the file.
func reusable(cached []types.CodeChunk, modTime time.Time, dims int) bool {
	if len(cached) == 0 {
		return false
	}
	for i := range cached {
		c := &cached[i]
		if c.ModTime == nil || !c.ModTime.Equal(modTime) || len(c.Embedding) != dims {
			return false
		}
	}
	return true
}

// chunkless reports whether a file produced no chunks when it was last indexed
// at modTime. The ledger is written after the index in the same commit, so an
// entry matching modTime with no chunks in a loaded index means exactly that.
func (b baseline) chunkless(path string, modTime time.Time) bool {
	if !b.loaded || len(b.chunks[path]) > 0 {
		return false
	}
	recorded, ok := b.ledger[path]
	return ok && recorded.Equal(modTime)
}

// classify builds the merged chunk list in file order. pending holds the positions
// in all of chunks that still need an embedding; current is the fresh mtime ledger
// and reindexed the subset of it that was chunked again.
func (idx *Indexer) classify(ctx context.Context, files []types.WalkedFile, base baseline,
	stats *Statistics, logger *slog.Logger) ([]types.CodeChunk, []int, types.MtimeRecord, types.MtimeRecord) {

	var all []types.CodeChunk
	var pending []int
	current := make(types.MtimeRecord, len(files))
	reindexed := make(types.MtimeRecord)
	dims := idx.embedder.Dimension()

	for _, file := range files {
		if ctx.Err() != nil {
			break
		}

		info, err := os.Stat(file.AbsolutePath)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", file.RelativePath, "error", err)
			stats.addError(file.RelativePath, err)
			continue
		}
		modTime := info.ModTime()

		cached := base.chunks[file.RelativePath]
		if reusable(cached, modTime, dims) || base.chunkless(file.RelativePath, modTime) {
			all = append(all, cached...)
			current[file.RelativePath] = modTime
			stats.FilesReused++
			continue
		}

		content, err := os.ReadFile(file.AbsolutePath)
		if err != nil {
			logger.Warn("skipping unreadable file", "path", file.RelativePath, "error", err)
			stats.addError(file.RelativePath, err)
			continue
		}

		stamp := modTime.UTC()
		for _, c := range idx.chunker.Chunk(string(content), file.RelativePath) {
			c.ModTime = &stamp
			pending = append(pending, len(all))
			all = append(all, c)
		}
		current[file.RelativePath] = modTime
		reindexed[file.RelativePath] = modTime
		stats.FilesReindexed++
	}

	return all, pending, current, reindexed
}

// embedPending embeds the chunks at positions pending in batches with bounded
// concurrency. Results are matched back by (filePath, startLine).
func (idx *Indexer) embedPending(ctx context.Context, all []types.CodeChunk, pending []int,
	onProgress func(current, total int), stats *Statistics) error {

	total := len(pending)
	if total == 0 {
		return nil
	}

	positions := make(map[types.ChunkKey]int, total)
	for _, pos := range pending {
		positions[all[pos].Key()] = pos
	}

	var progressMu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(idx.concurrency)

	batches := 0
	for start := 0; start < total; start += idx.batchSize {
		end := start + idx.batchSize
		if end > total {
			end = total
		}

		batch := make([]types.CodeChunk, end-start)
		texts := make([]string, end-start)
		for i, pos := range pending[start:end] {
			batch[i] = all[pos]
			texts[i] = all[pos].Content
		}
		batches++

		g.Go(func() error {
			vectors, err := idx.embedder.Embed(gctx, texts)
			if err != nil {
				return fmt.Errorf("failed to embed chunks: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("%w: got %d embeddings for %d chunks", embedder.ErrTransport, len(vectors), len(batch))
			}

			// Each batch owns distinct positions, so these writes never overlap
			for i := range batch {
				all[positions[batch[i].Key()]].Embedding = vectors[i]
			}

			progressMu.Lock()
			completed += len(batch)
			if onProgress != nil {
				onProgress(completed, total)
			}
			progressMu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.ChunksEmbedded = total
	stats.EmbeddingBatches = batches
	return nil
}

// commit persists the merged set and then swaps it in for searches
func (idx *Indexer) commit(ctx context.Context, root string, all []types.CodeChunk, current types.MtimeRecord, logger *slog.Logger) error {
	if all == nil {
		all = []types.CodeChunk{}
	}

	index := types.NewEmbeddingIndex(all, time.Now())
	index.Stamp(idx.embedder.Provider(), idx.embedder.Model(), idx.embedder.Dimension())
	if err := idx.store.SaveIndex(ctx, index); err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}

	// Chunk mod times decide staleness; the ledger only vouches for chunkless files,
	// so a stale one costs a re-read at worst
	if err := idx.store.SaveMtimes(ctx, current); err != nil {
		logger.Warn("failed to save mtime ledger", "error", err)
	}

	idx.state.Store(&snapshot{
		root:      root,
		chunks:    all,
		createdAt: index.CreatedAt,
	})
	return nil
}

// Search ranks the committed chunk set against queryText.
// It fails with types.ErrNotIndexed before the first successful pass.
func (idx *Indexer) Search(ctx context.Context, queryText string, topN int) ([]types.CodeChunk, error) {
	snap := idx.state.Load()
	if snap == nil {
		return nil, types.ErrNotIndexed
	}
	return idx.searcher.Search(ctx, queryText, snap.chunks, topN)
}

// IsIndexed reports whether a pass has committed in this session
func (idx *Indexer) IsIndexed() bool {
	return idx.state.Load() != nil
}

// ChunkCount returns the size of the committed chunk set
func (idx *Indexer) ChunkCount() int {
	snap := idx.state.Load()
	if snap == nil {
		return 0
	}
	return len(snap.chunks)
}

// Chunks returns a copy of the committed chunk set
func (idx *Indexer) Chunks() []types.CodeChunk {
	snap := idx.state.Load()
	if snap == nil {
		return nil
	}
	out := make([]types.CodeChunk, len(snap.chunks))
	copy(out, snap.chunks)
	return out
}

// Status summarizes the committed state
type Status struct {
	Indexed    bool      `json:"indexed"`
	Indexing   bool      `json:"indexing"`
	Root       string    `json:"root,omitempty"`
	Files      int       `json:"files"`
	Chunks     int       `json:"chunks"`
	IndexedAt  time.Time `json:"indexedAt,omitempty"`
	Provider   string    `json:"provider"`
	Model      string    `json:"model"`
	Dimensions int       `json:"dimensions"`
}

// Status returns a point-in-time view of the controller
func (idx *Indexer) Status() Status {
	status := Status{
		Indexing:   idx.lock.Held(),
		Provider:   idx.embedder.Provider(),
		Model:      idx.embedder.Model(),
		Dimensions: idx.embedder.Dimension(),
	}

	snap := idx.state.Load()
	if snap == nil {
		return status
	}

	files := make(map[string]struct{})
	for i := range snap.chunks {
		files[snap.chunks[i].FilePath] = struct{}{}
	}

	status.Indexed = true
	status.Root = snap.root
	status.Files = len(files)
	status.Chunks = len(snap.chunks)
	status.IndexedAt = snap.createdAt
	return status
}

// Clear deletes the persisted index and ledger and returns to the not-indexed state
func (idx *Indexer) Clear(ctx context.Context) error {
	release, err := idx.lock.acquire()
	if err != nil {
		return err
	}
	defer release()

	if err := idx.store.ClearIndex(ctx); err != nil {
		return err
	}
	idx.state.Store(nil)
	idx.searcher.ClearCache()
	return nil
}
