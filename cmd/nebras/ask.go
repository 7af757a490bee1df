package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

func newAskCommand(c *cli) *cobra.Command {
	var opts domain.SearchOptions
	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the corpus and verify its citations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			answer, err := c.app.QueryUC.Answer(cmd.Context(), strings.Join(args, " "), opts)
			if err != nil {
				return c.fail(cmd, err)
			}
			printAnswer(c.out, answer)
			return nil
		},
	}
	cmd.Flags().IntVarP(&opts.TopK, "top-k", "k", 0, "maximum references (0 uses the configured default)")
	cmd.Flags().StringVar(&opts.ConversationID, "conversation", "", "continue an existing conversation")
	return cmd
}

func newSearchCommand(c *cli) *cobra.Command {
	var topK int
	cmd := &cobra.Command{
		Use:   "search <question>",
		Short: "Show the passages retrieved for a question without generating an answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.app.QueryUC.Search(cmd.Context(), strings.Join(args, " "), domain.SearchOptions{TopK: topK})
			if err != nil {
				return c.fail(cmd, err)
			}
			printReferences(c.out, result.References)
			return nil
		},
	}
	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "maximum references (0 uses the configured default)")
	return cmd
}
