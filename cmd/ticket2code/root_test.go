package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/config"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "reset.ts"),
		[]byte("export function resetPassword(email: string) {\n  return sendResetLink(email);\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"),
		[]byte("# Demo\n\nPassword reset flow.\n"), 0o644))
	return root
}

func TestCLI_IndexSearchContextStatusClear(t *testing.T) {
	storageDir := t.TempDir()
	root := writeProject(t)
	common := []string{"--storage-dir", storageDir, "--provider", "local", "--log-level", "error"}

	out, err := runCLI(t, append([]string{"index", root}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 discovered, 0 reused, 2 re-indexed")
	assert.Contains(t, out, "2 new, 0 modified")

	out, err = runCLI(t, append([]string{"index", root}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 discovered, 2 reused, 0 re-indexed")

	out, err = runCLI(t, append([]string{"search", root, "reset", "password", "-n", "1"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, " 1. ")
	assert.NotContains(t, out, " 2. ")

	out, err = runCLI(t, append([]string{"context", root, "reset password", "--ticket", "PROJ-1", "--summary", "Reset"}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "2 snippets")
	assert.Contains(t, out, "truncated=false")

	out, err = runCLI(t, append([]string{"status", root}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed:   yes")
	assert.Contains(t, out, "Chunks:    2")

	out, err = runCLI(t, append([]string{"clear", root}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared index")

	out, err = runCLI(t, append([]string{"status", root}, common...)...)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed:   no")
}

func TestCLI_InvalidFlags(t *testing.T) {
	root := writeProject(t)

	_, err := runCLI(t, "index", root, "--storage-dir", t.TempDir(), "--store", "postgres")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = runCLI(t, "index", root, "--storage-dir", t.TempDir(), "--log-level", "loud")
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = runCLI(t, "index", filepath.Join(root, "missing"), "--storage-dir", t.TempDir(), "--provider", "local")
	assert.Error(t, err)

	_, err = runCLI(t, "search", root)
	assert.Error(t, err, "search needs a query")
}

func TestCLI_Embed(t *testing.T) {
	out, err := runCLI(t, "embed", "hello", "world", "--provider", "local", "--storage-dir", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "Provider:  local")
	assert.Contains(t, out, "Dimension: 384")
}

func TestCLI_Version(t *testing.T) {
	out, err := runCLI(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "ticket2code dev")
	assert.Contains(t, out, "Build Mode:")
}

func TestGlobalFlags_Apply(t *testing.T) {
	cfg := config.Default()
	f := &globalFlags{storageDir: "/tmp/x", store: "bolt", provider: "jina", logLevel: "warn"}
	require.NoError(t, f.apply(&cfg))
	assert.Equal(t, "/tmp/x", cfg.StorageDir)
	assert.Equal(t, "bolt", cfg.Store)
	assert.Equal(t, "jina", cfg.EmbeddingProvider)
	assert.Equal(t, "WARN", cfg.LogLevel.String())
}
