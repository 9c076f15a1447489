package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/config"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/workspace"
)

const (
	// ServerName is the MCP server name
	ServerName = "ticket2code"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultCacheSize is the embedding cache size shared by all workspaces
	DefaultCacheSize = 10000
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp        *server.MCPServer
	embedder   embedder.Embedder
	workspaces *workspace.Pool
	logger     *slog.Logger
}

// NewServer creates a new MCP server instance using the embedding provider
// selected by cfg
func NewServer(cfg config.Config, logger *slog.Logger) (*Server, error) {
	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		CacheSize: DefaultCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	return NewServerWithEmbedder(cfg, emb, logger)
}

// NewServerWithEmbedder creates a server sharing e across every workspace
func NewServerWithEmbedder(cfg config.Config, e embedder.Embedder, logger *slog.Logger) (*Server, error) {
	if e == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		mcp:        server.NewMCPServer(ServerName, ServerVersion),
		embedder:   e,
		workspaces: workspace.NewPool(cfg, e, logger),
		logger:     logger,
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.Close() }()
	s.logger.Info("mcp server started",
		"provider", s.embedder.Provider(),
		"model", s.embedder.Model())
	return server.ServeStdio(s.mcp)
}

// Close releases every open workspace and the embedder
func (s *Server) Close() error {
	err := s.workspaces.Close()
	if cerr := s.embedder.Close(); err == nil {
		err = cerr
	}
	return err
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(indexWorkspaceTool(), s.handleIndexWorkspace)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(buildContextTool(), s.handleBuildContext)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	s.mcp.AddTool(clearIndexTool(), s.handleClearIndex)
	return nil
}
