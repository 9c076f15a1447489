package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/assembler"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/indexer"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/searcher"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/workspace"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Workspace not indexed
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
)

// Search limits
const (
	DefaultLimit = searcher.DefaultTopN
	MaxLimit     = 100
	// maxReportedErrors caps per-file failures echoed back by index_workspace
	maxReportedErrors = 5
)

// handleIndexWorkspace handles the index_workspace tool invocation
func (s *Server) handleIndexWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	ws, err := s.workspaceFor(args)
	if err != nil {
		return nil, err
	}

	stats, err := ws.Index(ctx, indexer.IndexOptions{Force: getBoolDefault(args, "force", false)})
	if err != nil {
		return nil, toMCPError(err, "indexing failed")
	}

	response := map[string]interface{}{
		"indexed":           true,
		"path":              ws.Root,
		"run_id":            stats.RunID,
		"files_discovered":  stats.FilesDiscovered,
		"files_reused":      stats.FilesReused,
		"files_reindexed":   stats.FilesReindexed,
		"files_new":         stats.FilesNew,
		"files_changed":     stats.FilesChanged,
		"files_failed":      stats.FilesFailed,
		"files_deleted":     stats.FilesDeleted,
		"chunks_total":      stats.ChunksTotal,
		"chunks_embedded":   stats.ChunksEmbedded,
		"embedding_batches": stats.EmbeddingBatches,
		"duration_ms":       stats.Duration.Milliseconds(),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchCode handles the search_code tool invocation
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit, err := parseLimit(args)
	if err != nil {
		return nil, err
	}

	ws, err := s.workspaceFor(args)
	if err != nil {
		return nil, err
	}

	results, err := ws.Search(ctx, query, limit)
	if err != nil {
		return nil, toMCPError(err, "search failed")
	}

	response := map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": formatChunks(results),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleBuildContext handles the build_context tool invocation
func (s *Server) handleBuildContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	limit, err := parseLimit(args)
	if err != nil {
		return nil, err
	}
	maxChars := getIntDefault(args, "max_chars", assembler.DefaultMaxChars)
	if maxChars < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_chars must be positive", map[string]interface{}{
			"param": "max_chars",
			"value": maxChars,
		})
	}
	maxSnippets := getIntDefault(args, "max_snippets", assembler.DefaultMaxSnippets)
	if maxSnippets < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_snippets must be positive", map[string]interface{}{
			"param": "max_snippets",
			"value": maxSnippets,
		})
	}

	ws, err := s.workspaceFor(args)
	if err != nil {
		return nil, err
	}

	ticket, err := s.resolveTicket(ctx, ws, args)
	if err != nil {
		return nil, err
	}

	query := strings.TrimSpace(getStringDefault(args, "query", ""))
	if query == "" {
		query = strings.TrimSpace(ticket.Summary + "\n" + ticket.Description)
	}
	if query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query, summary or description is required", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	budget, err := ws.BuildContext(ctx, workspace.ContextRequest{
		Query:       query,
		Ticket:      ticket,
		Limit:       limit,
		MaxChars:    maxChars,
		MaxSnippets: maxSnippets,
	})
	if err != nil {
		return nil, toMCPError(err, "context assembly failed")
	}

	response := map[string]interface{}{
		"query":        query,
		"ticket_chars": assembler.EstimateTicketChars(ticket),
		"total_chars":  budget.TotalChars,
		"truncated":    budget.Truncated,
		"count":        len(budget.Chunks),
		"chunks":       formatChunks(budget.Chunks),
	}
	if ticket.Key != "" {
		response["ticket_key"] = ticket.Key
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// resolveTicket builds the ticket from the arguments. With a ticket_key and no
// fields the cached ticket is used; with fields the ticket is (re)cached.
func (s *Server) resolveTicket(ctx context.Context, ws *workspace.Workspace, args map[string]interface{}) (types.TicketContext, error) {
	ticket := types.TicketContext{
		Key:                strings.TrimSpace(getStringDefault(args, "ticket_key", "")),
		Summary:            getStringDefault(args, "summary", ""),
		Description:        getStringDefault(args, "description", ""),
		AcceptanceCriteria: getStringDefault(args, "acceptance_criteria", ""),
	}
	if ticket.Key == "" {
		return ticket, nil
	}

	if ticket.Summary == "" && ticket.Description == "" && ticket.AcceptanceCriteria == "" {
		cached, found, err := ws.CachedTicket(ctx, ticket.Key)
		if err != nil {
			return ticket, toMCPError(err, "failed to read ticket cache")
		}
		if !found {
			return ticket, newMCPError(ErrorCodeInvalidParams, "ticket not cached; provide summary or description", map[string]interface{}{
				"param": "ticket_key",
				"value": ticket.Key,
			})
		}
		return cached, nil
	}

	if err := ws.CacheTicket(ctx, ticket); err != nil {
		// Caching is best effort; the request can still be served.
		s.logger.Warn("failed to cache ticket", "ticket", ticket.Key, "error", err)
	}
	return ticket, nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	ws, err := s.workspaceFor(args)
	if err != nil {
		return nil, err
	}

	status := ws.Indexer.Status()
	response := map[string]interface{}{
		"indexed":  status.Indexed,
		"indexing": status.Indexing,
		"path":     ws.Root,
		"storage":  ws.Dir,
		"embedder": map[string]interface{}{
			"provider":   status.Provider,
			"model":      status.Model,
			"dimensions": status.Dimensions,
		},
	}

	if !status.Indexed {
		response["message"] = "Workspace not indexed. Use index_workspace tool to index this workspace."
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	response["statistics"] = map[string]interface{}{
		"files_count":     status.Files,
		"chunks_count":    status.Chunks,
		"last_indexed_at": status.IndexedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleClearIndex handles the clear_index tool invocation
func (s *Server) handleClearIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	ws, err := s.workspaceFor(args)
	if err != nil {
		return nil, err
	}

	if err := ws.Clear(ctx); err != nil {
		return nil, toMCPError(err, "failed to clear index")
	}

	response := map[string]interface{}{
		"cleared": true,
		"path":    ws.Root,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// workspaceFor validates the path argument and returns its workspace
func (s *Server) workspaceFor(args map[string]interface{}) (*workspace.Workspace, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	ws, err := s.workspaces.Get(path)
	if err != nil {
		return nil, toMCPError(err, "invalid path")
	}
	return ws, nil
}

func parseLimit(args map[string]interface{}) (int, error) {
	limit := getIntDefault(args, "limit", DefaultLimit)
	if limit < 1 || limit > MaxLimit {
		return 0, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}
	return limit, nil
}

// toMCPError maps domain errors onto MCP error codes
func toMCPError(err error, message string) error {
	data := map[string]interface{}{"error": err.Error()}

	switch {
	case errors.Is(err, workspace.ErrPathRequired),
		errors.Is(err, workspace.ErrPathNotFound),
		errors.Is(err, workspace.ErrNotDirectory),
		errors.Is(err, workspace.ErrTicketKeyRequired):
		return newMCPError(ErrorCodeInvalidParams, message, data)
	case errors.Is(err, types.ErrNotIndexed):
		return newMCPError(ErrorCodeNotIndexed, "workspace not indexed; call index_workspace first", data)
	case errors.Is(err, indexer.ErrIndexingInProgress):
		return newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", data)
	case errors.Is(err, searcher.ErrEmptyQuery):
		return newMCPError(ErrorCodeEmptyQuery, "query cannot be empty", data)
	default:
		return newMCPError(ErrorCodeInternalError, message, data)
	}
}

// formatChunks renders ranked chunks for a tool response
func formatChunks(chunks []types.CodeChunk) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		out = append(out, map[string]interface{}{
			"rank":            i + 1,
			"relevance_score": c.ScoreValue(),
			"file": map[string]interface{}{
				"path":       c.FilePath,
				"start_line": c.StartLine,
				"end_line":   c.EndLine,
			},
			"content": c.Content,
		})
	}
	return out
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
