package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/indexer"
)

func newIndexCmd(flags *globalFlags) *cobra.Command {
	var (
		force    bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "index <path>",
		Short: "Index a workspace incrementally",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			opts := indexer.IndexOptions{Force: force}
			if progress {
				errOut := cmd.ErrOrStderr()
				opts.OnProgress = func(current, total int) {
					fmt.Fprintf(errOut, "\rEmbedding %d/%d", current, total)
					if current == total {
						fmt.Fprintln(errOut)
					}
				}
			}

			fmt.Fprintf(out, "Indexing %s...\n", s.Root)
			stats, err := s.Index(cmd.Context(), opts)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nDone in %s (run %s)\n", stats.Duration.Round(time.Millisecond), stats.RunID)
			fmt.Fprintf(out, "  Files:   %d discovered, %d reused, %d re-indexed, %d failed, %d deleted\n",
				stats.FilesDiscovered, stats.FilesReused, stats.FilesReindexed, stats.FilesFailed, stats.FilesDeleted)
			fmt.Fprintf(out, "  Changes: %d new, %d modified\n", stats.FilesNew, stats.FilesChanged)
			fmt.Fprintf(out, "  Chunks:  %d total, %d embedded in %d batches\n",
				stats.ChunksTotal, stats.ChunksEmbedded, stats.EmbeddingBatches)
			for _, msg := range stats.ErrorMessages {
				fmt.Fprintf(out, "  warning: %s\n", msg)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "ignore stored chunks and re-embed every file")
	cmd.Flags().BoolVar(&progress, "progress", false, "report embedding progress on stderr")
	return cmd
}
