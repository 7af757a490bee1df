package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/adapters/mcp"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/bootstrap"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/config"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/observability/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	// stdout carries the MCP stdio protocol.
	logger := logging.NewTextLogger(os.Stderr, "mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Ingestion: bootstrap.IngestionInline,
		Logger:    logger,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	mcpServer := mcpadapter.NewServer(mcpadapter.Services{
		Query:     app.QueryUC,
		Documents: app.Corpus,
		Logger:    logger,
	})
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error("mcp_server_failed", "error", err)
		os.Exit(1)
	}
}
