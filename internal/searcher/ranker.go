package searcher

import (
	"fmt"
	"math"
	"sort"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// DefaultTopN is the result count used when a caller passes a non-positive topN
const DefaultTopN = 10

// CosineSimilarity computes the cosine similarity between two vectors.
// Vectors of different length are an error; a zero-magnitude vector scores exactly 0.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", types.ErrVectorLengthMismatch, len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// RankChunks scores every chunk carrying an embedding against query and returns
// at most topN copies sorted by descending score. Ties keep their input order.
// The input chunks are not modified.
func RankChunks(query []float32, chunks []types.CodeChunk, topN int) ([]types.CodeChunk, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	scored := make([]types.CodeChunk, 0, len(chunks))
	for i := range chunks {
		if !chunks[i].HasEmbedding() {
			continue
		}
		score, err := CosineSimilarity(query, chunks[i].Embedding)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", chunks[i].String(), err)
		}
		scored = append(scored, chunks[i].WithScore(score))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].ScoreValue() > scored[j].ScoreValue()
	})

	if len(scored) > topN {
		scored = scored[:topN]
	}
	return scored, nil
}
