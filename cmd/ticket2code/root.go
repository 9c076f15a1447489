package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/config"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/mcp"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/storage"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/workspace"
)

// globalFlags override values loaded from .env and the environment
type globalFlags struct {
	envFile    string
	storageDir string
	store      string
	provider   string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "ticket2code",
		Short:         "Incremental semantic code retrieval for ticket-driven coding assistants",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.SetVersionTemplate(fmt.Sprintf(
		"ticket2code {{.Version}}\nBuild Time: %s\nBuild Mode: %s\nSQLite Driver: %s\nMCP Server: %s %s\n",
		buildTime, storage.BuildMode, storage.DriverName, mcp.ServerName, mcp.ServerVersion))

	pf := root.PersistentFlags()
	pf.StringVar(&flags.envFile, "env-file", "", "dotenv file to load (default .env)")
	pf.StringVar(&flags.storageDir, "storage-dir", "", "directory holding per-workspace indexes (default ~/.ticket2code)")
	pf.StringVar(&flags.store, "store", "", "storage backend: json, sqlite or bolt")
	pf.StringVar(&flags.provider, "provider", "", "embedding provider: openai, jina or local")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		newServeCmd(flags),
		newIndexCmd(flags),
		newSearchCmd(flags),
		newContextCmd(flags),
		newStatusCmd(flags),
		newClearCmd(flags),
		newEmbedCmd(flags),
	)
	return root
}

// loadConfig resolves defaults, .env, environment and then flags
func (f *globalFlags) loadConfig() (config.Config, *slog.Logger, error) {
	var (
		cfg config.Config
		err error
	)
	if f.envFile != "" {
		cfg, err = config.Load(f.envFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return cfg, nil, err
	}

	if err := f.apply(&cfg); err != nil {
		return cfg, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, nil, err
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func (f *globalFlags) apply(cfg *config.Config) error {
	if f.storageDir != "" {
		cfg.StorageDir = f.storageDir
	}
	if f.store != "" {
		cfg.Store = f.store
	}
	if f.provider != "" {
		cfg.EmbeddingProvider = f.provider
	}
	if f.logLevel != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(f.logLevel)); err != nil {
			return fmt.Errorf("%w: --log-level %q: %v", config.ErrInvalidConfig, f.logLevel, err)
		}
	}
	return nil
}

// session is one CLI invocation's workspace plus the embedder backing it
type session struct {
	*workspace.Workspace
	embedder embedder.Embedder
	logger   *slog.Logger
}

func (f *globalFlags) openSession(root string) (*session, error) {
	cfg, logger, err := f.loadConfig()
	if err != nil {
		return nil, err
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		CacheSize: mcp.DefaultCacheSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	ws, err := workspace.Open(cfg, emb, root, logger)
	if err != nil {
		_ = emb.Close()
		return nil, err
	}
	return &session{Workspace: ws, embedder: emb, logger: logger}, nil
}

func (s *session) Close() error {
	err := s.Workspace.Close()
	if cerr := s.embedder.Close(); err == nil {
		err = cerr
	}
	return err
}
