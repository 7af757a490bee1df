package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/bootstrap"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/config"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/observability/logging"
)

// cli carries the wired application across subcommands.
type cli struct {
	configFile string
	logLevel   string

	app *bootstrap.App
	out io.Writer
}

func newRootCommand(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "nebras",
		Short:         "Ingest an Arabic corpus and ask grounded questions about it",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&c.configFile, "config", "c", "", "YAML config file (overrides NEBRAS_CONFIG_FILE)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level for stderr diagnostics")

	root.AddCommand(
		newIngestCommand(c),
		newAskCommand(c),
		newSearchCommand(c),
		newDocsCommand(c),
		newConversationsCommand(c),
	)
	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	c.out = cmd.OutOrStdout()
	if c.configFile != "" {
		if err := os.Setenv("NEBRAS_CONFIG_FILE", c.configFile); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return c.fail(cmd, fmt.Errorf("config: %w", err))
	}

	level := cfg.LogLevel
	if c.logLevel != "" {
		level = c.logLevel
	}
	logger := logging.NewTextLogger(cmd.ErrOrStderr(), "nebras", level)
	slog.SetDefault(logger)

	app, err := bootstrap.New(cmd.Context(), cfg, bootstrap.Options{
		Ingestion: bootstrap.IngestionInline,
		Logger:    logger,
	})
	if err != nil {
		return c.fail(cmd, fmt.Errorf("bootstrap: %w", err))
	}
	c.app = app
	return nil
}

func (c *cli) close() {
	if c.app != nil {
		c.app.Close()
		c.app = nil
	}
}

// fail prints err once; cobra's own error output is silenced.
func (c *cli) fail(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), errorMark.Sprint("error:"), err)
	return err
}
