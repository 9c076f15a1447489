package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/assembler"
)

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Path to the workspace root",
	}
}

func limitProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Maximum number of ranked chunks to return (1-100)",
		"default":     DefaultLimit,
		"minimum":     1,
		"maximum":     MaxLimit,
	}
}

// indexWorkspaceTool returns the tool definition for index_workspace
func indexWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_workspace",
		Description: "Index a workspace incrementally so it can be searched. Unchanged files reuse their stored embeddings.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"force": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, ignore stored chunks and re-embed every file (full rebuild)",
					"default":     false,
				},
			},
			Required: []string{"path"},
		},
	}
}

// searchCodeTool returns the tool definition for search_code
func searchCodeTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_code",
		Description: "Rank indexed code chunks by semantic similarity to a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language query",
				},
				"limit": limitProperty(),
			},
			Required: []string{"path", "query"},
		},
	}
}

// buildContextTool returns the tool definition for build_context
func buildContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_context",
		Description: "Select code snippets relevant to a ticket and pack them into a character budget for an LLM prompt",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query; defaults to the ticket summary and description",
				},
				"ticket_key": map[string]interface{}{
					"type":        "string",
					"description": "Ticket identifier. Ticket fields are cached under it for 30 minutes and reused when omitted.",
				},
				"summary": map[string]interface{}{
					"type":        "string",
					"description": "Ticket summary",
				},
				"description": map[string]interface{}{
					"type":        "string",
					"description": "Ticket description",
				},
				"acceptance_criteria": map[string]interface{}{
					"type":        "string",
					"description": "Ticket acceptance criteria",
				},
				"limit": limitProperty(),
				"max_chars": map[string]interface{}{
					"type":        "integer",
					"description": "Total character budget including the ticket",
					"default":     assembler.DefaultMaxChars,
					"minimum":     1,
				},
				"max_snippets": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of snippets",
					"default":     assembler.DefaultMaxSnippets,
					"minimum":     1,
				},
			},
			Required: []string{"path"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Query index status for a workspace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}

// clearIndexTool returns the tool definition for clear_index
func clearIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "clear_index",
		Description: "Delete the stored index, mtime ledger and ticket cache of a workspace",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": pathProperty(),
			},
			Required: []string{"path"},
		},
	}
}
