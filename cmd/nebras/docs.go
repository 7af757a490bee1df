package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDocsCommand(c *cli) *cobra.Command {
	docs := &cobra.Command{
		Use:   "docs",
		Short: "Inspect and delete ingested documents",
	}
	docs.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				list, err := c.app.Corpus.List(cmd.Context())
				if err != nil {
					return c.fail(cmd, err)
				}
				printDocuments(c.out, list)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>...",
			Short: "Delete documents with their chunks and source files",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				for _, id := range args {
					if err := c.app.RemoveUC.Remove(cmd.Context(), id); err != nil {
						return c.fail(cmd, err)
					}
					fmt.Fprintln(c.out, okMark.Sprint("deleted"), id)
				}
				return nil
			},
		},
	)
	return docs
}

func newConversationsCommand(c *cli) *cobra.Command {
	var limit int
	conversations := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Inspect stored conversations",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := c.app.Conversations.ListConversations(cmd.Context(), limit)
			if err != nil {
				return c.fail(cmd, err)
			}
			printConversations(c.out, items)
			return nil
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum conversations")

	conversations.AddCommand(
		list,
		&cobra.Command{
			Use:   "show <id>",
			Short: "Print the messages of a conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				messages, err := c.app.Conversations.ListMessages(cmd.Context(), args[0])
				if err != nil {
					return c.fail(cmd, err)
				}
				printMessages(c.out, messages)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete <id>",
			Short: "Delete a conversation",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := c.app.Conversations.DeleteConversation(cmd.Context(), args[0]); err != nil {
					return c.fail(cmd, err)
				}
				fmt.Fprintln(c.out, okMark.Sprint("deleted"), args[0])
				return nil
			},
		},
	)
	return conversations
}
