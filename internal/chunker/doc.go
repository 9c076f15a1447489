// Package chunker splits source files into overlapping line-range chunks for embedding.
//
// Chunks are cut by line count rather than by syntax, so every allow-listed
// file type (code, markup, config, docs) is handled the same way.
//
// # Basic Usage
//
//	c := chunker.New() // 80-line windows, 15 lines of overlap
//	chunks := c.Chunk(string(content), "internal/api/server.go")
//
//	for _, chunk := range chunks {
//	    fmt.Printf("lines %d-%d\n", chunk.StartLine, chunk.EndLine)
//	}
//
// # Window Rules
//
//   - Empty or whitespace-only content produces no chunks.
//   - Files of at most ChunkSize lines produce exactly one chunk.
//   - Longer files are covered by windows advancing ChunkSize-Overlap lines;
//     the final window is clamped to the last line of the file.
//   - Windows whose trimmed text is empty are dropped.
//
// Line numbers are zero-based and EndLine is inclusive.
//
// # Configuration
//
// Overlap must be smaller than ChunkSize, otherwise the window cannot advance:
//
//	c, err := chunker.NewWithOptions(chunker.Options{ChunkSize: 40, Overlap: 40})
//	// err wraps chunker.ErrInvalidOptions
package chunker
