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
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	app, err := bootstrap.New(ctx, cfg, bootstrap.Options{
		Ingestion:         bootstrap.IngestionQueued,
		Logger:            logger,
		IngestionObserver: workerMetrics,
		BreakerObserver:   workerMetrics.ObserveBreakerState,
	})
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	metricsServer := &http.Server{
		Addr:              ":" + cfg.WorkerMetricsPort,
		Handler:           workerMetrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("worker_metrics_listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker_metrics_failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker_subscribed", "subject", cfg.NATSSubject, "queue_group", cfg.NATSQueueGroup)
	err = app.Queue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		workerMetrics.StartDocument()
		defer workerMetrics.FinishDocument()

		if doc, err := app.Corpus.GetByID(handlerCtx, documentID); err == nil {
			workerMetrics.ObserveQueueLag(time.Since(doc.CreatedAt))
		}
		return app.ProcessUC.ProcessByID(handlerCtx, documentID)
	})
	if err != nil {
		logger.Error("worker_subscribe_failed", "error", err)
		os.Exit(1)
	}
}
