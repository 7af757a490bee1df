package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/adapters/http"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/bootstrap"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/config"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/observability/logging"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/observability/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewJSONLogger("api", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiMetrics := metrics.NewHTTPServerMetrics("api")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Ingestion:       bootstrap.IngestionAuto,
		Logger:          logger,
		QueryObserver:   apiMetrics,
		BreakerObserver: apiMetrics.ObserveBreakerState,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	router := httpadapter.NewRouter(cfg, httpadapter.Services{
		Ingestor:      app.IngestUC,
		Query:         app.QueryUC,
		Documents:     app.Corpus,
		Remover:       app.RemoveUC,
		Conversations: app.Conversations,
		Metrics:       apiMetrics,
		Health:        app.Health,
		Logger:        logger,
	}).Handler()
	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("api_listening", "port", cfg.APIPort, "corpus", app.Backend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api_server_failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("api_shutdown_failed", "error", err)
	}
}
