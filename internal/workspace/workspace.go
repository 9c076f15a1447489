// Package workspace binds one workspace root to its store and index controller
// and keeps a pool of open workspaces for long-running callers.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/assembler"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/config"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/indexer"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/storage"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// Path validation errors
var (
	ErrPathRequired = errors.New("path is required")
	ErrPathNotFound = errors.New("path does not exist")
	ErrNotDirectory = errors.New("path is not a directory")
)

// ErrTicketKeyRequired is returned when a ticket is cached without a key
var ErrTicketKeyRequired = errors.New("ticket key is required")

const ticketCachePrefix = "ticket:"

// Workspace is one indexed root
type Workspace struct {
	Root    string
	Dir     string // storage root holding the artifacts
	Store   storage.Store
	Indexer *indexer.Indexer
}

// ResolveRoot returns the absolute, cleaned form of root after checking that
// it is an existing directory. Symlinks are resolved so a linked workspace
// shares storage with its target.
func ResolveRoot(root string) (string, error) {
	if strings.TrimSpace(root) == "" {
		return "", ErrPathRequired
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrPathNotFound, abs)
	}
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to resolve symlinks in %s: %w", abs, err)
	}
	return resolved, nil
}

// Open opens the store for root under cfg's storage dir and builds its controller
func Open(cfg config.Config, e embedder.Embedder, root string, logger *slog.Logger) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}
	dir, err := cfg.WorkspaceStorageDir(abs)
	if err != nil {
		return nil, err
	}

	logger = logger.With("workspace", abs)
	store, err := storage.Open(cfg.Store, dir, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store, err)
	}

	idx, err := indexer.New(store, e, cfg.IndexerConfig(logger))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to create indexer: %w", err)
	}

	return &Workspace{Root: abs, Dir: dir, Store: store, Indexer: idx}, nil
}

// Index runs one incremental pass over the workspace root
func (w *Workspace) Index(ctx context.Context, opts indexer.IndexOptions) (*indexer.Statistics, error) {
	return w.Indexer.IndexWorkspace(ctx, w.Root, opts)
}

// EnsureIndexed runs a pass unless one has already committed in this session.
// Unchanged files are reused from the persisted index, so this is cheap after
// the first run.
func (w *Workspace) EnsureIndexed(ctx context.Context) error {
	if w.Indexer.IsIndexed() {
		return nil
	}
	_, err := w.Index(ctx, indexer.IndexOptions{})
	return err
}

// Search ranks the committed chunks against query
func (w *Workspace) Search(ctx context.Context, query string, limit int) ([]types.CodeChunk, error) {
	return w.Indexer.Search(ctx, query, limit)
}

// ContextRequest describes one context assembly
type ContextRequest struct {
	Query       string
	Ticket      types.TicketContext
	Limit       int // ranked candidates to consider
	MaxChars    int
	MaxSnippets int
}

// BuildContext ranks chunks for the query, then dedupes, boosts by file type
// and packs them into the budget
func (w *Workspace) BuildContext(ctx context.Context, req ContextRequest) (types.ContextBudget, error) {
	ranked, err := w.Search(ctx, req.Query, req.Limit)
	if err != nil {
		return types.ContextBudget{}, err
	}
	return assembler.Assemble(ranked, req.Ticket, req.MaxChars, req.MaxSnippets), nil
}

// CacheTicket stores ticket under its key in the cache namespace
func (w *Workspace) CacheTicket(ctx context.Context, ticket types.TicketContext) error {
	if ticket.Key == "" {
		return ErrTicketKeyRequired
	}
	return w.Store.PutCacheEntry(ctx, ticketCachePrefix+ticket.Key, ticket)
}

// CachedTicket returns the cached ticket for key, if present and fresh
func (w *Workspace) CachedTicket(ctx context.Context, key string) (types.TicketContext, bool, error) {
	var ticket types.TicketContext
	if key == "" {
		return ticket, false, ErrTicketKeyRequired
	}
	ok, err := w.Store.GetCacheEntry(ctx, ticketCachePrefix+key, &ticket)
	return ticket, ok, err
}

// Clear drops the persisted index, the ledger and the ticket cache
func (w *Workspace) Clear(ctx context.Context) error {
	if err := w.Indexer.Clear(ctx); err != nil {
		return err
	}
	return w.Store.ClearCache(ctx)
}

// Close releases the store
func (w *Workspace) Close() error {
	return w.Store.Close()
}

// Pool keeps one Workspace per root so that every caller working on the same
// root shares its controller and index lock
type Pool struct {
	cfg      config.Config
	embedder embedder.Embedder
	logger   *slog.Logger

	mu         sync.Mutex
	workspaces map[string]*Workspace
	closed     bool
}

// NewPool creates an empty pool sharing e across all workspaces
func NewPool(cfg config.Config, e embedder.Embedder, logger *slog.Logger) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pool{
		cfg:        cfg,
		embedder:   e,
		logger:     logger,
		workspaces: make(map[string]*Workspace),
	}
}

// Get returns the workspace for root, opening it on first use
func (p *Pool) Get(root string) (*Workspace, error) {
	abs, err := ResolveRoot(root)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, storage.ErrClosed
	}
	if w, ok := p.workspaces[abs]; ok {
		return w, nil
	}

	w, err := Open(p.cfg, p.embedder, abs, p.logger)
	if err != nil {
		return nil, err
	}
	p.workspaces[abs] = w
	p.logger.Debug("workspace opened", "root", abs, "storage", w.Dir)
	return w, nil
}

// Len returns the number of open workspaces
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workspaces)
}

// Close closes every open workspace
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for root, w := range p.workspaces {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", root, err))
		}
		delete(p.workspaces, root)
	}
	p.closed = true
	return errors.Join(errs...)
}
