package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/embedder"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/mcp"
)

// newEmbedCmd checks the configured embedding provider end to end
func newEmbedCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Embed a text with the configured provider and print a summary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.loadConfig()
			if err != nil {
				return err
			}

			emb, err := embedder.New(embedder.Config{
				Provider:  cfg.EmbeddingProvider,
				CacheSize: mcp.DefaultCacheSize,
			})
			if err != nil {
				return err
			}
			defer emb.Close()

			vec, err := embedder.EmbedOne(cmd.Context(), emb, strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Provider:  %s\n", emb.Provider())
			fmt.Fprintf(out, "Model:     %s\n", emb.Model())
			fmt.Fprintf(out, "Dimension: %d\n", len(vec))
			head := vec
			if len(head) > 5 {
				head = head[:5]
			}
			fmt.Fprintf(out, "Head:      %v\n", head)
			return nil
		},
	}
}
