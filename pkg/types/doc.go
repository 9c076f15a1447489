// Package types provides shared type definitions for the ticket-to-code retrieval engine.
//
// This package defines the domain types exchanged between the indexer, the
// storage backends, the ranker and the context assembler.
//
// # Core Types
//
// WalkedFile is produced by file discovery on every indexing pass and is never
// persisted:
//
//	file := types.WalkedFile{
//	    AbsolutePath: "/work/repo/internal/api/server.go",
//	    RelativePath: "internal/api/server.go",
//	    Extension:    ".go",
//	    SizeBytes:    4096,
//	}
//
// CodeChunk is a contiguous, zero-based, inclusive line range of one file. It
// is the unit of embedding and retrieval:
//
//	chunk := types.CodeChunk{
//	    FilePath:  "internal/api/server.go",
//	    StartLine: 0,
//	    EndLine:   79,
//	    Content:   "package api ...",
//	}
//
// EmbeddingIndex is the persisted artifact. It is versioned; readers must treat
// any version other than CurrentIndexVersion as requiring a full re-index:
//
//	if err := idx.Validate(); err != nil {
//	    // rebuild from scratch
//	}
//
// # Modification Ledger
//
// MtimeRecord maps relative paths to the last observed modification time. The
// helpers ChangedFiles, NewFiles, DeletedFiles and Merge compare two ledgers.
//
// # Context Assembly
//
// TicketContext carries the text fields of the work item a context window is
// being built for, and ContextBudget is the result of packing ranked chunks
// into a character budget.
package types
