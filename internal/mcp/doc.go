// Package mcp implements the Model Context Protocol (MCP) server for ticket2code.
//
// The server exposes five tools to AI coding assistants:
//   - index_workspace: Incrementally index a workspace for semantic search
//   - search_code: Rank indexed chunks against a natural language query
//   - build_context: Pick snippets for a ticket and pack them into a prompt budget
//   - get_status: Report index state and the active embedding provider
//   - clear_index: Delete the stored index, ledger and ticket cache
//
// The server talks JSON-RPC 2.0 over stdio and is started with:
//
//	ticket2code serve
//
// Every workspace root gets its own store and index controller, opened on
// first use and kept for the life of the server. All workspaces share one
// embedder, so its vector cache is shared too.
//
// # Tool: build_context
//
//	Request:
//	{
//	  "name": "build_context",
//	  "arguments": {
//	    "path": "/path/to/workspace",
//	    "ticket_key": "PROJ-42",
//	    "summary": "Users cannot reset their password",
//	    "description": "The reset link returns 404",
//	    "max_chars": 12000
//	  }
//	}
//
//	Response:
//	{
//	  "total_chars": 4210,
//	  "truncated": false,
//	  "chunks": [
//	    {
//	      "rank": 1,
//	      "relevance_score": 0.81,
//	      "file": {"path": "src/auth/reset.ts", "start_line": 0, "end_line": 79},
//	      "content": "..."
//	    }
//	  ]
//	}
//
// Ticket fields sent with a ticket_key are cached for 30 minutes; a later
// call with only the key reuses them.
//
// # Error Handling
//
// Error codes:
//   - -32602: Invalid params (missing/invalid arguments, bad path)
//   - -32603: Internal error (storage, embedding provider)
//   - -32002: Indexing in progress
//   - -32003: Workspace not indexed
//   - -32004: Empty query
//
// Logs go to stderr; stdout is reserved for the protocol.
package mcp
