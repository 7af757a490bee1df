package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/config"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/retrieval"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/usecase"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/chunking"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/extractor"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/llm/llmhttp"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/llm/ollama"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/llm/openaicompat"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/queue/nats"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/resilience"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/storage/localfs"
)

// IngestionMode decides how uploads reach the processing pipeline.
type IngestionMode int

const (
	// IngestionAuto publishes to NATS when a URL is configured and processes
	// inline otherwise.
	IngestionAuto IngestionMode = iota
	IngestionQueued
	IngestionInline
)

type Options struct {
	Ingestion         IngestionMode
	Logger            *slog.Logger
	QueryObserver     ports.QueryObserver
	IngestionObserver ports.IngestionObserver
	BreakerObserver   resilience.StateObserver
}

type App struct {
	Config config.Config

	Corpus        ports.CorpusStore
	Conversations ports.ConversationStore
	Storage       ports.ObjectStorage
	// Queue is nil when ingestion runs inline.
	Queue    *nats.Queue
	Executor *resilience.Executor
	Backend  string

	IngestUC  *usecase.IngestDocumentUseCase
	ProcessUC *usecase.ProcessDocumentUseCase
	QueryUC   *usecase.QueryUseCase
	RemoveUC  *usecase.RemoveDocumentUseCase

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	corpus, err := OpenCorpus(ctx, cfg.CorpusDSN)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, corpus.Close)
	app.Corpus = corpus.Store
	app.Conversations = corpus.Conversations
	app.Backend = corpus.Backend

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	app.Storage = storage

	execOpts := []resilience.Option{resilience.WithLogger(logger)}
	if opts.BreakerObserver != nil {
		execOpts = append(execOpts, resilience.WithStateObserver(opts.BreakerObserver))
	}
	app.Executor = resilience.NewExecutor(resilience.FromSettings(cfg), execOpts...)

	embedder, generator, err := NewLanguageModel(cfg, app.Executor)
	if err != nil {
		return nil, err
	}

	normalizer := chunking.NewNormalizer()
	app.ProcessUC = usecase.NewProcessDocumentUseCase(
		app.Corpus,
		extractor.New(storage),
		normalizer,
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder,
		usecase.ProcessOptions{
			EmbedBatchSize:   cfg.EmbedBatchSize,
			EmbedConcurrency: cfg.EmbedConcurrency,
			Observer:         opts.IngestionObserver,
			Logger:           logger,
		},
	)

	publisher, err := app.publisher(cfg, opts, logger)
	if err != nil {
		return nil, err
	}
	app.IngestUC = usecase.NewIngestDocumentUseCase(app.Corpus, storage, publisher, usecase.IngestOptions{
		MaxBytes: cfg.MaxUploadBytes,
		Accept:   extractor.Supported,
	})
	app.RemoveUC = usecase.NewRemoveDocumentUseCase(app.Corpus, storage)

	policy := RetrievalPolicy(cfg)
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	app.QueryUC = usecase.NewQueryUseCase(
		normalizer,
		embedder,
		app.Corpus,
		generator,
		app.Conversations,
		usecase.QueryOptions{
			TopK:            cfg.RAGTopK,
			Policy:          policy,
			Excerpt:         retrieval.ExcerptLimits{MaxWords: cfg.RAGExcerptWords, MaxChars: cfg.RAGExcerptChars},
			ContextMaxChars: cfg.RAGContextMaxChars,
			ExpansionSuffix: cfg.RAGExpansionSuffix,
			Instruction:     cfg.RAGInstruction,
			Observer:        opts.QueryObserver,
			Logger:          logger,
		},
	)

	ok = true
	return app, nil
}

func (a *App) publisher(cfg config.Config, opts Options, logger *slog.Logger) (ports.IngestionPublisher, error) {
	mode := opts.Ingestion
	if mode == IngestionAuto {
		mode = IngestionInline
		if strings.TrimSpace(cfg.NATSURL) != "" {
			mode = IngestionQueued
		}
	}
	if mode == IngestionInline {
		logger.Info("ingestion_inline")
		return usecase.NewInlinePublisher(a.ProcessUC), nil
	}

	if strings.TrimSpace(cfg.NATSURL) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "init message queue", errors.New("NATS_URL is required for queued ingestion"))
	}
	queue, err := nats.New(cfg.NATSURL, nats.Options{
		Subject:            cfg.NATSSubject,
		QueueGroup:         cfg.NATSQueueGroup,
		HandlerTimeout:     time.Duration(cfg.WorkerHandlerTimeoutSeconds) * time.Second,
		ResilienceExecutor: a.Executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	a.Queue = queue
	a.closers = append(a.closers, queue.Close)
	return queue, nil
}

// Health summarises dependency state for /healthz.
func (a *App) Health() map[string]any {
	out := map[string]any{
		"corpus":   a.Backend,
		"breakers": a.Executor.States(),
	}
	if a.Queue != nil {
		out["queue_connected"] = a.Queue.Connected()
	}
	return out
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// NewLanguageModel builds the embedder and generator for the configured provider.
func NewLanguageModel(cfg config.Config, executor *resilience.Executor) (ports.Embedder, ports.AnswerGenerator, error) {
	opts := llmhttp.Options{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		ChatModel:   cfg.LLMChatModel,
		EmbedModel:  cfg.LLMEmbedModel,
		Timeout:     time.Duration(cfg.LLMTimeoutSeconds) * time.Second,
		MaxTokens:   cfg.LLMMaxTokens,
		Temperature: cfg.LLMTemperature,
	}
	switch cfg.LLMProvider {
	case config.ProviderOllama:
		client := ollama.New(opts, executor)
		return ollama.NewEmbedder(client), ollama.NewGenerator(client), nil
	case config.ProviderOpenAI:
		client := openaicompat.New(opts, executor)
		return openaicompat.NewEmbedder(client), openaicompat.NewGenerator(client), nil
	default:
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "init language model", fmt.Errorf("unknown provider %q", cfg.LLMProvider))
	}
}

func RetrievalPolicy(cfg config.Config) retrieval.Policy {
	if cfg.RAGThresholdMode == config.ThresholdAdaptive {
		return retrieval.AdaptiveThresholds(cfg.RAGAdaptiveThresholds...)
	}
	return retrieval.FixedThreshold(cfg.RAGMinAccept)
}
