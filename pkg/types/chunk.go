package types

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"
)

// CodeChunk represents a contiguous line range of one source file
type CodeChunk struct {
	// Location. Lines are zero-based and EndLine is inclusive.
	FilePath  string `json:"filePath"`
	StartLine int    `json:"startLine"`
	EndLine   int    `json:"endLine"`

	// Content is the trimmed text of the range
	Content string `json:"content"`

	// Embedding is nil until the chunk has been embedded
	Embedding []float32 `json:"embedding,omitempty"`

	// Score is assigned at ranking and boosting time
	Score *float64 `json:"score,omitempty"`

	// ModTime is the source file's modification time when the chunk was cut
	ModTime *time.Time `json:"modTime,omitempty"`
}

// ChunkKey identifies a chunk within a file by its start line
type ChunkKey struct {
	FilePath  string
	StartLine int
}

// RangeKey identifies a chunk by its full line range
type RangeKey struct {
	FilePath  string
	StartLine int
	EndLine   int
}

// Key returns the (filePath, startLine) key used to match embedding results
func (c *CodeChunk) Key() ChunkKey {
	return ChunkKey{FilePath: c.FilePath, StartLine: c.StartLine}
}

// RangeKey returns the (filePath, startLine, endLine) triple used for deduplication
func (c *CodeChunk) RangeKey() RangeKey {
	return RangeKey{FilePath: c.FilePath, StartLine: c.StartLine, EndLine: c.EndLine}
}

// HasEmbedding reports whether the chunk carries a usable vector
func (c *CodeChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// ScoreValue returns the score, or 0 when no score has been assigned
func (c *CodeChunk) ScoreValue() float64 {
	if c.Score == nil {
		return 0
	}
	return *c.Score
}

// WithScore returns a copy of the chunk carrying the given score
func (c CodeChunk) WithScore(score float64) CodeChunk {
	c.Score = &score
	return c
}

// Extension returns the lower-cased extension of the chunk's file, including the dot
func (c *CodeChunk) Extension() string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(c.FilePath, "\\", "/")))
}

// ContentHash returns the hex SHA-256 of the chunk content
func (c *CodeChunk) ContentHash() string {
	h := sha256.Sum256([]byte(c.Content))
	return hex.EncodeToString(h[:])
}

// Validate checks the structural invariants of a chunk
func (c *CodeChunk) Validate() error {
	if c.FilePath == "" {
		return errors.New("chunk file path cannot be empty")
	}

	if c.StartLine < 0 || c.EndLine < 0 {
		return errors.New("line numbers must not be negative")
	}

	if c.StartLine > c.EndLine {
		return fmt.Errorf("start line %d is after end line %d", c.StartLine, c.EndLine)
	}

	return nil
}

// String renders the chunk location as path:start-end using one-based lines
func (c *CodeChunk) String() string {
	return fmt.Sprintf("%s:%d-%d", c.FilePath, c.StartLine+1, c.EndLine+1)
}
