package assembler

import (
	"sort"
	"unicode/utf8"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// Budget defaults for one generation request
const (
	DefaultMaxChars    = 12000
	DefaultMaxSnippets = 10

	// ChunkOverhead is the per-snippet cost on top of content and path (headers, fences)
	ChunkOverhead = 50
	// TicketOverhead covers ticket labels, status and similar fields
	TicketOverhead = 200

	// DefaultBoost applies to extensions missing from the boost table
	DefaultBoost = 0.8
)

// fileTypeBoost weights implementation code above docs and config
var fileTypeBoost = map[string]float64{
	".ts":   1.0,
	".tsx":  1.0,
	".go":   1.0,
	".js":   0.95,
	".jsx":  0.95,
	".py":   0.9,
	".java": 0.9,
	".md":   0.7,
	".json": 0.6,
	".yaml": 0.6,
	".yml":  0.6,
}

// FileTypeBoost returns the score multiplier for a lower-cased extension
func FileTypeBoost(ext string) float64 {
	if boost, ok := fileTypeBoost[ext]; ok {
		return boost
	}
	return DefaultBoost
}

// EstimateTicketChars is the budget reserved for the ticket itself, in characters
func EstimateTicketChars(ticket types.TicketContext) int {
	return utf8.RuneCountInString(ticket.Summary) +
		utf8.RuneCountInString(ticket.Description) +
		utf8.RuneCountInString(ticket.AcceptanceCriteria) +
		TicketOverhead
}

// ChunkCost is the budget consumed by one snippet, in characters
func ChunkCost(c types.CodeChunk) int {
	return utf8.RuneCountInString(c.Content) + utf8.RuneCountInString(c.FilePath) + ChunkOverhead
}

// BuildContext packs ranked chunks into the budget left after the ticket.
// At most maxSnippets candidates are considered, in input order; the first one that
// would overflow the budget stops packing and sets Truncated. Non-positive limits
// fall back to the defaults.
func BuildContext(chunks []types.CodeChunk, ticket types.TicketContext, maxChars, maxSnippets int) types.ContextBudget {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if maxSnippets <= 0 {
		maxSnippets = DefaultMaxSnippets
	}

	available := maxChars - EstimateTicketChars(ticket)

	candidates := chunks
	if len(candidates) > maxSnippets {
		candidates = candidates[:maxSnippets]
	}

	budget := types.ContextBudget{Chunks: make([]types.CodeChunk, 0, len(candidates))}
	for _, c := range candidates {
		cost := ChunkCost(c)
		if budget.TotalChars+cost > available {
			budget.Truncated = true
			break
		}
		budget.Chunks = append(budget.Chunks, c)
		budget.TotalChars += cost
	}

	return budget
}

// DeduplicateChunks drops repeats of a (filePath, startLine, endLine) triple,
// keeping the first occurrence and the input order
func DeduplicateChunks(chunks []types.CodeChunk) []types.CodeChunk {
	seen := make(map[types.RangeKey]struct{}, len(chunks))
	out := make([]types.CodeChunk, 0, len(chunks))
	for i := range chunks {
		key := chunks[i].RangeKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, chunks[i])
	}
	return out
}

// BoostByFileType returns copies of chunks with scores scaled by FileTypeBoost,
// sorted by descending boosted score. Unscored chunks count as 0.
func BoostByFileType(chunks []types.CodeChunk) []types.CodeChunk {
	out := make([]types.CodeChunk, len(chunks))
	for i := range chunks {
		out[i] = chunks[i].WithScore(chunks[i].ScoreValue() * FileTypeBoost(chunks[i].Extension()))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ScoreValue() > out[j].ScoreValue()
	})
	return out
}

// Assemble runs the full post-ranking pipeline: dedupe, boost, then pack
func Assemble(ranked []types.CodeChunk, ticket types.TicketContext, maxChars, maxSnippets int) types.ContextBudget {
	return BuildContext(BoostByFileType(DeduplicateChunks(ranked)), ticket, maxChars, maxSnippets)
}
