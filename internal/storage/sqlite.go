package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// SQLiteStore implements Store with one row per chunk and per ledger entry
type SQLiteStore struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time
}

var _ Store = (*SQLiteStore)(nil)

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer; one connection also keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// NewSQLiteStore opens (or creates) the database at dbPath and migrates it
func NewSQLiteStore(dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	o := applyOptions(opts)
	return &SQLiteStore{
		db:     db,
		ttl:    o.ttl,
		logger: o.logger,
		now:    o.now,
	}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Index operations

// LoadIndex reassembles the index from its rows; absent or invalid data yields nil
func (s *SQLiteStore) LoadIndex(ctx context.Context) (*types.EmbeddingIndex, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	index := &types.EmbeddingIndex{}
	var createdNs int64
	err := s.db.QueryRowContext(ctx, `
		SELECT version, created_at_ns, provider, model, dimensions
		FROM index_meta WHERE id = 1
	`).Scan(&index.Version, &createdNs, &index.Provider, &index.Model, &index.Dimensions)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("index unreadable, treating as absent", "error", err)
		return nil, nil
	}

	chunks, err := s.loadChunks(ctx)
	if err != nil {
		s.logger.Warn("index chunks unreadable, treating as absent", "error", err)
		return nil, nil
	}

	index.CreatedAt = time.Unix(0, createdNs).UTC()
	index.Chunks = chunks
	if err := index.Validate(); err != nil {
		s.logger.Warn("index rejected, treating as absent", "error", err)
		return nil, nil
	}
	return index, nil
}

func (s *SQLiteStore) loadChunks(ctx context.Context) ([]types.CodeChunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_path, start_line, end_line, content, embedding, mod_time_ns
		FROM chunks
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = rows.Close()
	}()

	chunks := make([]types.CodeChunk, 0)
	for rows.Next() {
		var c types.CodeChunk
		var blob []byte
		var modNs sql.NullInt64
		if err := rows.Scan(&c.FilePath, &c.StartLine, &c.EndLine, &c.Content, &blob, &modNs); err != nil {
			return nil, err
		}
		if len(blob) > 0 {
			vector, ok := deserializeVector(blob)
			if !ok {
				return nil, fmt.Errorf("%w: malformed embedding for %s", types.ErrInvalidIndex, c.FilePath)
			}
			c.Embedding = vector
		}
		if modNs.Valid {
			t := time.Unix(0, modNs.Int64).UTC()
			c.ModTime = &t
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SaveIndex replaces the stored index in one transaction
func (s *SQLiteStore) SaveIndex(ctx context.Context, index *types.EmbeddingIndex) error {
	if index == nil {
		return fmt.Errorf("%w: nil index", types.ErrInvalidIndex)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := clearIndexRows(ctx, tx); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO index_meta (id, version, created_at_ns, provider, model, dimensions) VALUES (1, ?, ?, ?, ?, ?)`,
		index.Version, index.CreatedAt.UnixNano(), index.Provider, index.Model, index.Dimensions); err != nil {
		return fmt.Errorf("failed to save index header: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (seq, file_path, start_line, end_line, content, embedding, mod_time_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range index.Chunks {
		c := &index.Chunks[i]
		var blob []byte
		if len(c.Embedding) > 0 {
			blob = serializeVector(c.Embedding)
		}
		var modNs sql.NullInt64
		if c.ModTime != nil {
			modNs = sql.NullInt64{Int64: c.ModTime.UnixNano(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, i, c.FilePath, c.StartLine, c.EndLine, c.Content, blob, modNs); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", c.String(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index: %w", err)
	}
	return nil
}

func clearIndexRows(ctx context.Context, q querier) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM chunks`); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM index_meta`); err != nil {
		return fmt.Errorf("failed to clear index header: %w", err)
	}
	return nil
}

// ClearIndex deletes the index and the mtime ledger
func (s *SQLiteStore) ClearIndex(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := clearIndexRows(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM mtimes`); err != nil {
		return fmt.Errorf("failed to clear mtime ledger: %w", err)
	}
	return tx.Commit()
}

// Cache operations

func (s *SQLiteStore) GetCacheEntry(ctx context.Context, key string, dst any) (bool, error) {
	var value string
	var storedNs int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, stored_at_ns FROM cache_entries WHERE cache_key = ?`, key).Scan(&value, &storedNs)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}

	entry := cacheEntry{Value: json.RawMessage(value), StoredAt: time.Unix(0, storedNs)}
	if entry.expired(s.now(), s.ttl) {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE cache_key = ?`, key); err != nil {
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

func (s *SQLiteStore) PutCacheEntry(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (cache_key, value, stored_at_ns)
		VALUES (?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			value = excluded.value,
			stored_at_ns = excluded.stored_at_ns
	`, key, string(raw), s.now().UnixNano())
	if err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearCache(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

// Ledger operations

func (s *SQLiteStore) LoadMtimes(ctx context.Context) (types.MtimeRecord, error) {
	record := make(types.MtimeRecord)
	if err := ctx.Err(); err != nil {
		return record, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT file_path, mod_time_ns FROM mtimes`)
	if err != nil {
		s.logger.Warn("mtime ledger unreadable, treating as empty", "error", err)
		return record, nil
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		var path string
		var ns int64
		if err := rows.Scan(&path, &ns); err != nil {
			s.logger.Warn("mtime ledger corrupt, treating as empty", "error", err)
			return make(types.MtimeRecord), nil
		}
		record[path] = time.Unix(0, ns).UTC()
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("mtime ledger unreadable, treating as empty", "error", err)
		return make(types.MtimeRecord), nil
	}
	return record, nil
}

// SaveMtimes replaces the whole ledger
func (s *SQLiteStore) SaveMtimes(ctx context.Context, record types.MtimeRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM mtimes`); err != nil {
		return fmt.Errorf("failed to clear mtime ledger: %w", err)
	}
	for path, t := range record {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO mtimes (file_path, mod_time_ns) VALUES (?, ?)`, path, t.UnixNano()); err != nil {
			return fmt.Errorf("failed to save mtime for %s: %w", path, err)
		}
	}
	return tx.Commit()
}
