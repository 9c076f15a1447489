package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/assembler"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/searcher"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/internal/workspace"
	"github.com/theshubh007/Ticket-to-Code-AI-Companion/pkg/types"
)

func newSearchCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <path> <query>",
		Short: "Rank code chunks by similarity to a query",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			// Each CLI run starts cold; the pass reuses every unchanged file.
			if err := s.EnsureIndexed(cmd.Context()); err != nil {
				return err
			}

			results, err := s.Search(cmd.Context(), strings.Join(args[1:], " "), limit)
			if err != nil {
				return err
			}
			printChunks(cmd.OutOrStdout(), results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", searcher.DefaultTopN, "number of results")
	return cmd
}

func newContextCmd(flags *globalFlags) *cobra.Command {
	var (
		ticket      types.TicketContext
		limit       int
		maxChars    int
		maxSnippets int
	)

	cmd := &cobra.Command{
		Use:   "context <path> <query>",
		Short: "Assemble a prompt-sized code context for a ticket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.openSession(args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			if ticket.Key != "" {
				if ticket.Summary == "" && ticket.Description == "" && ticket.AcceptanceCriteria == "" {
					cached, found, err := s.CachedTicket(cmd.Context(), ticket.Key)
					if err != nil {
						return err
					}
					if found {
						ticket = cached
					}
				} else if err := s.CacheTicket(cmd.Context(), ticket); err != nil {
					s.logger.Warn("failed to cache ticket", "ticket", ticket.Key, "error", err)
				}
			}

			if err := s.EnsureIndexed(cmd.Context()); err != nil {
				return err
			}

			budget, err := s.BuildContext(cmd.Context(), workspace.ContextRequest{
				Query:       strings.Join(args[1:], " "),
				Ticket:      ticket,
				Limit:       limit,
				MaxChars:    maxChars,
				MaxSnippets: maxSnippets,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%d snippets, %d chars (ticket ~%d chars), truncated=%v\n\n",
				len(budget.Chunks), budget.TotalChars, assembler.EstimateTicketChars(ticket), budget.Truncated)
			printChunks(out, budget.Chunks)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&ticket.Key, "ticket", "", "ticket key; fields are cached under it")
	f.StringVar(&ticket.Summary, "summary", "", "ticket summary")
	f.StringVar(&ticket.Description, "description", "", "ticket description")
	f.StringVar(&ticket.AcceptanceCriteria, "acceptance-criteria", "", "ticket acceptance criteria")
	f.IntVarP(&limit, "limit", "n", searcher.DefaultTopN, "ranked candidates to consider")
	f.IntVar(&maxChars, "max-chars", assembler.DefaultMaxChars, "total character budget including the ticket")
	f.IntVar(&maxSnippets, "max-snippets", assembler.DefaultMaxSnippets, "maximum snippets")
	return cmd
}

func printChunks(w io.Writer, chunks []types.CodeChunk) {
	for i := range chunks {
		c := &chunks[i]
		fmt.Fprintf(w, "%2d. %s:%d-%d  score=%.4f\n", i+1, c.FilePath, c.StartLine+1, c.EndLine+1, c.ScoreValue())
		for _, line := range strings.Split(c.Content, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
		fmt.Fprintln(w)
	}
}
