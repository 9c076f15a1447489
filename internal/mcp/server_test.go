package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/config"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/storage"
)

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// ServerTestSuite drives the tool handlers against a temp workspace using
// the local embedding provider
type ServerTestSuite struct {
	suite.Suite
	server *Server
	root   string
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	cfg := config.Default()
	cfg.StorageDir = s.T().TempDir()
	cfg.Store = storage.BackendJSON
	cfg.EmbeddingProvider = embedder.ProviderLocal

	server, err := NewServer(cfg, nil)
	s.Require().NoError(err)
	s.server = server

	s.root = s.T().TempDir()
	files := map[string]string{
		"src/auth/reset.ts":  "export function resetPassword(email: string) {\n  return sendResetLink(email);\n}\n",
		"src/billing/pay.ts": "export function chargeInvoice(amount: number) {\n  return gateway.charge(amount);\n}\n",
		"docs/reset.md":      "# Password reset\n\nUsers reset their password from the login page.\n",
	}
	for rel, content := range files {
		path := filepath.Join(s.root, filepath.FromSlash(rel))
		s.Require().NoError(os.MkdirAll(filepath.Dir(path), 0o755))
		s.Require().NoError(os.WriteFile(path, []byte(content), 0o644))
	}
}

func (s *ServerTestSuite) TearDownTest() {
	s.NoError(s.server.Close())
}

func (s *ServerTestSuite) call(handler toolHandler, name string, args map[string]interface{}) (map[string]interface{}, error) {
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
	result, err := handler(context.Background(), request)
	if err != nil {
		return nil, err
	}
	s.Require().NotNil(result)
	s.Require().Len(result.Content, 1)

	var text string
	switch c := result.Content[0].(type) {
	case mcp.TextContent:
		text = c.Text
	case *mcp.TextContent:
		text = c.Text
	default:
		s.FailNow("unexpected content type")
	}

	var out map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(text), &out))
	return out, nil
}

func (s *ServerTestSuite) requireCode(err error, code int) {
	s.Require().Error(err)
	var mcpErr *MCPError
	s.Require().ErrorAs(err, &mcpErr)
	s.Equal(code, mcpErr.Code, mcpErr.Message)
}

func (s *ServerTestSuite) TestIndexThenSearch() {
	out, err := s.call(s.server.handleIndexWorkspace, "index_workspace", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)
	s.Equal(true, out["indexed"])
	s.Equal(float64(3), out["files_discovered"])
	s.Equal(float64(3), out["files_reindexed"])
	s.Equal(float64(3), out["files_new"])
	s.Equal(float64(0), out["files_changed"])
	s.NotEmpty(out["run_id"])

	again, err := s.call(s.server.handleIndexWorkspace, "index_workspace", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)
	s.Equal(float64(3), again["files_reused"])
	s.Equal(float64(0), again["chunks_embedded"])

	forced, err := s.call(s.server.handleIndexWorkspace, "index_workspace", map[string]interface{}{"path": s.root, "force": true})
	s.Require().NoError(err)
	s.Equal(float64(3), forced["files_reindexed"])
	s.Equal(float64(0), forced["files_new"], "forced pass over unchanged files")
	s.Equal(float64(0), forced["files_changed"])

	res, err := s.call(s.server.handleSearchCode, "search_code", map[string]interface{}{
		"path":  s.root,
		"query": "reset password",
		"limit": float64(2),
	})
	s.Require().NoError(err)
	s.Equal(float64(2), res["count"])
	results := res["results"].([]interface{})
	first := results[0].(map[string]interface{})
	s.Equal(float64(1), first["rank"])
	s.Contains(first, "relevance_score")
}

func (s *ServerTestSuite) TestSearchBeforeIndex() {
	_, err := s.call(s.server.handleSearchCode, "search_code", map[string]interface{}{
		"path":  s.root,
		"query": "reset password",
	})
	s.requireCode(err, ErrorCodeNotIndexed)
}

func (s *ServerTestSuite) TestSearchValidation() {
	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{name: "missing query", args: map[string]interface{}{"path": s.root}, code: ErrorCodeEmptyQuery},
		{name: "blank query", args: map[string]interface{}{"path": s.root, "query": "   "}, code: ErrorCodeEmptyQuery},
		{name: "missing path", args: map[string]interface{}{"query": "x"}, code: ErrorCodeInvalidParams},
		{name: "missing dir", args: map[string]interface{}{"path": filepath.Join(s.root, "nope"), "query": "x"}, code: ErrorCodeInvalidParams},
		{name: "limit too large", args: map[string]interface{}{"path": s.root, "query": "x", "limit": float64(101)}, code: ErrorCodeInvalidParams},
		{name: "limit zero", args: map[string]interface{}{"path": s.root, "query": "x", "limit": float64(0)}, code: ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.call(s.server.handleSearchCode, "search_code", tt.args)
			s.requireCode(err, tt.code)
		})
	}
}

func (s *ServerTestSuite) TestInvalidArguments() {
	_, err := s.server.handleGetStatus(context.Background(), mcp.CallToolRequest{})
	s.requireCode(err, ErrorCodeInvalidParams)
}

func (s *ServerTestSuite) TestBuildContext() {
	_, err := s.call(s.server.handleIndexWorkspace, "index_workspace", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)

	out, err := s.call(s.server.handleBuildContext, "build_context", map[string]interface{}{
		"path":        s.root,
		"ticket_key":  "PROJ-42",
		"summary":     "Password reset link broken",
		"description": "Users cannot reset their password",
	})
	s.Require().NoError(err)
	s.Equal("PROJ-42", out["ticket_key"])
	s.Equal(false, out["truncated"])
	s.Equal(float64(3), out["count"])
	s.LessOrEqual(out["total_chars"].(float64)+out["ticket_chars"].(float64), float64(12000))

	paths := make([]string, 0, 3)
	for _, c := range out["chunks"].([]interface{}) {
		file := c.(map[string]interface{})["file"].(map[string]interface{})
		paths = append(paths, file["path"].(string))
	}
	s.ElementsMatch([]string{"src/auth/reset.ts", "src/billing/pay.ts", "docs/reset.md"}, paths)

	cached, err := s.call(s.server.handleBuildContext, "build_context", map[string]interface{}{
		"path":       s.root,
		"ticket_key": "PROJ-42",
	})
	s.Require().NoError(err)
	s.Equal("Password reset link broken\nUsers cannot reset their password", cached["query"])
	s.Equal(out["ticket_chars"], cached["ticket_chars"])
}

func (s *ServerTestSuite) TestBuildContextBudget() {
	_, err := s.call(s.server.handleIndexWorkspace, "index_workspace", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)

	out, err := s.call(s.server.handleBuildContext, "build_context", map[string]interface{}{
		"path":      s.root,
		"query":     "reset password",
		"summary":   "Reset",
		"max_chars": float64(300),
	})
	s.Require().NoError(err)
	s.Equal(true, out["truncated"])
	s.LessOrEqual(out["total_chars"].(float64), float64(300)-out["ticket_chars"].(float64))

	one, err := s.call(s.server.handleBuildContext, "build_context", map[string]interface{}{
		"path":         s.root,
		"query":        "reset password",
		"max_snippets": float64(1),
	})
	s.Require().NoError(err)
	s.Equal(float64(1), one["count"])
}

func (s *ServerTestSuite) TestBuildContextValidation() {
	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{name: "no query or ticket", args: map[string]interface{}{"path": s.root}, code: ErrorCodeEmptyQuery},
		{name: "unknown cached ticket", args: map[string]interface{}{"path": s.root, "ticket_key": "NOPE-1"}, code: ErrorCodeInvalidParams},
		{name: "zero max chars", args: map[string]interface{}{"path": s.root, "query": "x", "max_chars": float64(0)}, code: ErrorCodeInvalidParams},
		{name: "zero max snippets", args: map[string]interface{}{"path": s.root, "query": "x", "max_snippets": float64(0)}, code: ErrorCodeInvalidParams},
		{name: "not indexed", args: map[string]interface{}{"path": s.root, "query": "reset"}, code: ErrorCodeNotIndexed},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.call(s.server.handleBuildContext, "build_context", tt.args)
			s.requireCode(err, tt.code)
		})
	}
}

func (s *ServerTestSuite) TestStatusAndClear() {
	status, err := s.call(s.server.handleGetStatus, "get_status", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)
	s.Equal(false, status["indexed"])
	s.Contains(status, "message")
	emb := status["embedder"].(map[string]interface{})
	s.Equal(embedder.ProviderLocal, emb["provider"])

	_, err = s.call(s.server.handleIndexWorkspace, "index_workspace", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)

	status, err = s.call(s.server.handleGetStatus, "get_status", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)
	s.Equal(true, status["indexed"])
	stats := status["statistics"].(map[string]interface{})
	s.Equal(float64(3), stats["files_count"])

	cleared, err := s.call(s.server.handleClearIndex, "clear_index", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)
	s.Equal(true, cleared["cleared"])

	_, err = s.call(s.server.handleSearchCode, "search_code", map[string]interface{}{"path": s.root, "query": "reset"})
	s.requireCode(err, ErrorCodeNotIndexed)

	again, err := s.call(s.server.handleIndexWorkspace, "index_workspace", map[string]interface{}{"path": s.root})
	s.Require().NoError(err)
	s.Equal(float64(0), again["files_reused"], "clear removes persisted chunks")
}

func TestToMCPError(t *testing.T) {
	err := toMCPError(assert.AnError, "boom")
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInternalError, mcpErr.Code)
	assert.Equal(t, "boom", mcpErr.Message)
	assert.Contains(t, err.Error(), "-32603")
}

func TestNewServerWithEmbedder_RequiresEmbedder(t *testing.T) {
	_, err := NewServerWithEmbedder(config.Default(), nil, nil)
	assert.Error(t, err)
}

func TestGetIntDefault(t *testing.T) {
	args := map[string]interface{}{"f": float64(7), "i": 3, "s": "x"}
	assert.Equal(t, 7, getIntDefault(args, "f", 1))
	assert.Equal(t, 3, getIntDefault(args, "i", 1))
	assert.Equal(t, 1, getIntDefault(args, "s", 1))
	assert.Equal(t, 1, getIntDefault(args, "missing", 1))
}
