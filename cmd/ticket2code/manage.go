package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newStatusCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status <path>",
		Short: "Show the stored index of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			index, err := s.Store.LoadIndex(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Workspace: %s\n", s.Root)
			fmt.Fprintf(out, "Storage:   %s\n", s.Dir)
			fmt.Fprintf(out, "Embedder:  %s/%s (%d dims)\n", s.embedder.Provider(), s.embedder.Model(), s.embedder.Dimension())
			if index == nil {
				fmt.Fprintln(out, "Indexed:   no")
				return nil
			}

			fmt.Fprintln(out, "Indexed:   yes")
			fmt.Fprintf(out, "Files:     %d\n", len(index.ChunksByFile()))
			fmt.Fprintf(out, "Chunks:    %d\n", len(index.Chunks))
			fmt.Fprintf(out, "Built at:  %s\n", index.CreatedAt.Local().Format(time.RFC3339))
			return nil
		},
	}
}

func newClearCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <path>",
		Short: "Delete the stored index, ledger and ticket cache of a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared index for %s\n", s.Root)
			return nil
		},
	}
}
