package types

import (
	"fmt"
	"sort"
	"time"
)

// CurrentIndexVersion is the schema version written by this engine
const CurrentIndexVersion = 1

// WalkedFile is a source file found by discovery
type WalkedFile struct {
	AbsolutePath string
	RelativePath string // Relative to the workspace root, forward slashes
	Extension    string // Lower-cased, including the dot
	SizeBytes    int64
}

// EmbeddingIndex is the persisted chunk-embedding index of one workspace
type EmbeddingIndex struct {
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"createdAt"`

	// Embedding space the vectors were produced in
	Provider   string `json:"provider,omitempty"`
	Model      string `json:"model,omitempty"`
	Dimensions int    `json:"dimensions,omitempty"`

	Chunks []CodeChunk `json:"chunks"`
}

// NewEmbeddingIndex builds an index document stamped with the current version
func NewEmbeddingIndex(chunks []CodeChunk, createdAt time.Time) *EmbeddingIndex {
	return &EmbeddingIndex{
		Version:   CurrentIndexVersion,
		CreatedAt: createdAt.UTC(),
		Chunks:    chunks,
	}
}

// Validate checks the version and every chunk of the index
func (idx *EmbeddingIndex) Validate() error {
	if idx.Version != CurrentIndexVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedIndexVersion, idx.Version)
	}

	if idx.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing createdAt", ErrInvalidIndex)
	}

	for i := range idx.Chunks {
		if err := idx.Chunks[i].Validate(); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrInvalidIndex, i, err)
		}
	}

	return nil
}

// Stamp records the embedding space of the index vectors
func (idx *EmbeddingIndex) Stamp(provider, model string, dimensions int) {
	idx.Provider = provider
	idx.Model = model
	idx.Dimensions = dimensions
}

// SameEmbeddingSpace reports whether the vectors were produced by provider and
// model at the given dimension. Unstamped indexes never match.
func (idx *EmbeddingIndex) SameEmbeddingSpace(provider, model string, dimensions int) bool {
	return idx != nil &&
		idx.Dimensions > 0 &&
		idx.Provider == provider &&
		idx.Model == model &&
		idx.Dimensions == dimensions
}

// ChunksByFile groups the index chunks by relative file path, preserving order
func (idx *EmbeddingIndex) ChunksByFile() map[string][]CodeChunk {
	byFile := make(map[string][]CodeChunk)
	if idx == nil {
		return byFile
	}
	for _, c := range idx.Chunks {
		byFile[c.FilePath] = append(byFile[c.FilePath], c)
	}
	return byFile
}

// MtimeRecord maps relative file paths to their last observed modification time
type MtimeRecord map[string]time.Time

// ChangedFiles returns paths in current whose time differs from previous, new files included
func ChangedFiles(current, previous MtimeRecord) []string {
	var out []string
	for p, t := range current {
		if prev, ok := previous[p]; !ok || !prev.Equal(t) {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// NewFiles returns paths present in current but absent from previous
func NewFiles(current, previous MtimeRecord) []string {
	var out []string
	for p := range current {
		if _, ok := previous[p]; !ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// DeletedFiles returns paths present in previous but absent from current
func DeletedFiles(current, previous MtimeRecord) []string {
	var out []string
	for p := range previous {
		if _, ok := current[p]; !ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Merge returns a new record holding previous overlaid with updates
func Merge(previous, updates MtimeRecord) MtimeRecord {
	out := make(MtimeRecord, len(previous)+len(updates))
	for p, t := range previous {
		out[p] = t
	}
	for p, t := range updates {
		out[p] = t
	}
	return out
}
