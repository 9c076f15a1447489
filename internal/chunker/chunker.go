package chunker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

const (
	// DefaultChunkSize is the number of lines per chunk window
	DefaultChunkSize = 80

	// DefaultOverlap is the number of lines shared by adjacent windows
	DefaultOverlap = 15
)

// ErrInvalidOptions is returned when the window configuration cannot make progress
var ErrInvalidOptions = errors.New("invalid chunker options")

// Options configures the sliding line window
type Options struct {
	ChunkSize int // Lines per window (default: 80)
	Overlap   int // Lines shared with the previous window (default: 15)
}

// DefaultOptions returns the standard 80/15 window
func DefaultOptions() Options {
	return Options{ChunkSize: DefaultChunkSize, Overlap: DefaultOverlap}
}

// Validate enforces 0 <= overlap < chunkSize
func (o Options) Validate() error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, o.ChunkSize)
	}
	if o.Overlap < 0 {
		return fmt.Errorf("%w: overlap must not be negative, got %d", ErrInvalidOptions, o.Overlap)
	}
	if o.Overlap >= o.ChunkSize {
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidOptions, o.Overlap, o.ChunkSize)
	}
	return nil
}

// Chunker splits file content into overlapping line-range chunks
type Chunker struct {
	opts Options
}

// New creates a Chunker with the default window
func New() *Chunker {
	return &Chunker{opts: DefaultOptions()}
}

// NewWithOptions creates a Chunker with a custom window.
// Zero values fall back to the defaults.
func NewWithOptions(opts Options) (*Chunker, error) {
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
		if opts.Overlap == 0 {
			opts.Overlap = DefaultOverlap
		}
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{opts: opts}, nil
}

// Options returns the window configuration in use
func (c *Chunker) Options() Options {
	return c.opts
}

// Chunk splits content into chunks for filePath.
//
// Empty or whitespace-only content yields no chunks. Content with at most
// ChunkSize lines yields a single chunk spanning the whole file. Longer content
// is covered by windows of ChunkSize lines advancing by ChunkSize-Overlap; the
// last window ends on the last line of the file. Windows whose trimmed text is
// empty are dropped.
func (c *Chunker) Chunk(content, filePath string) []types.CodeChunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	lines := strings.Split(content, "\n")
	last := len(lines) - 1

	if len(lines) <= c.opts.ChunkSize {
		return []types.CodeChunk{{
			FilePath:  filePath,
			StartLine: 0,
			EndLine:   last,
			Content:   strings.TrimSpace(content),
		}}
	}

	step := c.opts.ChunkSize - c.opts.Overlap
	chunks := make([]types.CodeChunk, 0, len(lines)/step+1)

	for start := 0; start <= last; start += step {
		end := start + c.opts.ChunkSize - 1
		if end > last {
			end = last
		}

		text := strings.TrimSpace(strings.Join(lines[start:end+1], "\n"))
		if text != "" {
			chunks = append(chunks, types.CodeChunk{
				FilePath:  filePath,
				StartLine: start,
				EndLine:   end,
				Content:   text,
			})
		}

		if end == last {
			break
		}
	}

	return chunks
}

// FileContent pairs a relative path with its text
type FileContent struct {
	FilePath string
	Content  string
}

// ChunkFiles chunks several files, concatenating the results in input order
func (c *Chunker) ChunkFiles(files []FileContent) []types.CodeChunk {
	var all []types.CodeChunk
	for _, f := range files {
		all = append(all, c.Chunk(f.Content, f.FilePath)...)
	}
	return all
}
