package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/mcp"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/storage"
)

func newServeCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := flags.loadConfig()
			if err != nil {
				return err
			}

			// Logs go to stderr; stdout is reserved for the MCP protocol
			logger.Info("ticket2code MCP server starting",
				"version", version,
				"build_mode", storage.BuildMode,
				"driver", storage.DriverName,
				"store", cfg.Store,
				"storage_dir", cfg.StorageDir)

			server, err := mcp.NewServer(cfg, logger)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			errChan := make(chan error, 1)
			go func() {
				logger.Info("MCP server ready, listening on stdio")
				errChan <- server.Serve(ctx)
			}()

			select {
			case sig := <-sigChan:
				logger.Info("shutting down", "signal", sig.String())
				cancel()
				return server.Close()
			case err := <-errChan:
				if err != nil {
					logger.Error("server error", "error", err)
					return err
				}
			}

			logger.Info("server stopped")
			return nil
		},
	}
}
