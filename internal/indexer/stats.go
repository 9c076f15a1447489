package indexer

import (
	"fmt"
	"sync"
	"time"
)

// Phase names reported in Timings
const (
	PhaseLoad     = "load"
	PhaseDiscover = "discover"
	PhaseClassify = "classify"
	PhaseEmbed    = "embed"
	PhaseCommit   = "commit"
)

// Timings records how long each phase of one pass took
type Timings struct {
	Load     time.Duration `json:"load"`
	Discover time.Duration `json:"discover"`
	Classify time.Duration `json:"classify"`
	Embed    time.Duration `json:"embed"`
	Commit   time.Duration `json:"commit"`
}

// Statistics describes one IndexWorkspace pass. It is scoped to that call.
type Statistics struct {
	RunID            string        `json:"runId"`
	FilesDiscovered  int           `json:"filesDiscovered"`
	FilesReused      int           `json:"filesReused"`
	FilesReindexed   int           `json:"filesReindexed"`
	FilesNew         int           `json:"filesNew"`     // reindexed and never seen before
	FilesChanged     int           `json:"filesChanged"` // reindexed because the mtime moved
	FilesFailed      int           `json:"filesFailed"`
	FilesDeleted     int           `json:"filesDeleted"`
	ChunksTotal      int           `json:"chunksTotal"`
	ChunksEmbedded   int           `json:"chunksEmbedded"`
	EmbeddingBatches int           `json:"embeddingBatches"`
	Duration         time.Duration `json:"duration"`
	Timings          Timings       `json:"timings"`
	ErrorMessages    []string      `json:"errorMessages"`

	mu sync.Mutex
}

func newStatistics(runID string) *Statistics {
	return &Statistics{
		RunID:         runID,
		ErrorMessages: make([]string, 0),
	}
}

// addError records a non-fatal per-file failure
func (s *Statistics) addError(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FilesFailed++
	s.ErrorMessages = append(s.ErrorMessages, fmt.Sprintf("%s: %v", path, err))
}

// record stores the duration of phase
func (s *Statistics) record(phase string, d time.Duration) {
	switch phase {
	case PhaseLoad:
		s.Timings.Load = d
	case PhaseDiscover:
		s.Timings.Discover = d
	case PhaseClassify:
		s.Timings.Classify = d
	case PhaseEmbed:
		s.Timings.Embed = d
	case PhaseCommit:
		s.Timings.Commit = d
	}
}

// phase starts timing a phase; call the returned func when it ends
func (s *Statistics) phase(name string) func() {
	start := time.Now()
	return func() { s.record(name, time.Since(start)) }
}
