package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
)

const (
	DefaultEmbedBatchSize   = 16
	DefaultEmbedConcurrency = 4
)

type ProcessOptions struct {
	EmbedBatchSize   int
	EmbedConcurrency int
	Observer         ports.IngestionObserver
	Logger           *slog.Logger
}

type ProcessDocumentUseCase struct {
	repo       ports.CorpusStore
	extractor  ports.TextExtractor
	normalizer ports.TextNormalizer
	chunker    ports.Chunker
	embedder   ports.Embedder
	opts       ProcessOptions

	mu       sync.Mutex
	inflight map[string]struct{}
}

func NewProcessDocumentUseCase(
	repo ports.CorpusStore,
	extractor ports.TextExtractor,
	normalizer ports.TextNormalizer,
	chunker ports.Chunker,
	embedder ports.Embedder,
	opts ProcessOptions,
) *ProcessDocumentUseCase {
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if opts.EmbedConcurrency <= 0 {
		opts.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &ProcessDocumentUseCase{
		repo:       repo,
		extractor:  extractor,
		normalizer: normalizer,
		chunker:    chunker,
		embedder:   embedder,
		opts:       opts,
		inflight:   make(map[string]struct{}),
	}
}

// ProcessByID turns a pending document into searchable chunks. Chunks are
// persisted only when every embedding succeeded; otherwise the document is
// marked failed and nothing is written.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	if !uc.acquire(documentID) {
		return domain.WrapError(domain.ErrIngestionConflict, "process document", fmt.Errorf("document %s is already being processed", documentID))
	}
	defer uc.release(documentID)

	started := time.Now()
	chunks, err := uc.processPipeline(ctx, documentID)
	if err != nil {
		if domain.IsKind(err, domain.ErrIngestionConflict) || domain.IsKind(err, domain.ErrDocumentNotFound) {
			return err
		}
		uc.observe(domain.StatusFailed, 0, time.Since(started))
		if failErr := uc.markFailed(ctx, documentID, err); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	uc.observe(domain.StatusCompleted, chunks, time.Since(started))
	uc.opts.Logger.Info("ingestion_completed",
		"document_id", documentID,
		"chunks", chunks,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID string) (int, error) {
	doc, err := uc.loadDocument(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if doc.Status == domain.StatusCompleted {
		return 0, domain.WrapError(domain.ErrIngestionConflict, "process document", fmt.Errorf("document %s is already ingested", doc.ID))
	}

	text, err := uc.extractText(ctx, doc)
	if err != nil {
		return 0, err
	}

	text = uc.normalizer.NormalizeLines(text)
	windows, err := uc.chunk(text)
	if err != nil {
		return 0, err
	}

	vectors, err := uc.embed(ctx, windows)
	if err != nil {
		return 0, err
	}

	doc.Content = text
	doc.LineCount = countLines(text)
	chunks, err := uc.buildChunks(doc, windows, vectors)
	if err != nil {
		return 0, err
	}

	if err := uc.repo.CompleteIngestion(ctx, doc, chunks); err != nil {
		return 0, fmt.Errorf("store chunks: %w", err)
	}
	return len(chunks), nil
}

func (uc *ProcessDocumentUseCase) loadDocument(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("fetch document by id: %w", err)
	}
	return doc, nil
}

func (uc *ProcessDocumentUseCase) extractText(ctx context.Context, doc *domain.Document) (string, error) {
	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}
	return text, nil
}

func (uc *ProcessDocumentUseCase) chunk(text string) ([]domain.TextWindow, error) {
	windows := uc.chunker.Split(text)
	if len(windows) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}
	return windows, nil
}

// embed sends windows in batches with bounded parallelism. vectors[i]
// always belongs to windows[i].
func (uc *ProcessDocumentUseCase) embed(ctx context.Context, windows []domain.TextWindow) ([][]float32, error) {
	vectors := make([][]float32, len(windows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uc.opts.EmbedConcurrency)

	for start := 0; start < len(windows); start += uc.opts.EmbedBatchSize {
		end := min(start+uc.opts.EmbedBatchSize, len(windows))
		g.Go(func() error {
			texts := make([]string, 0, end-start)
			for _, w := range windows[start:end] {
				texts = append(texts, w.Content)
			}
			batch, err := uc.embedder.Embed(gctx, texts)
			if err != nil {
				return err
			}
			if len(batch) != len(texts) {
				return domain.WrapError(domain.ErrEmbeddingUnavailable, "embed chunks",
					fmt.Errorf("vectors/chunks mismatch: %d/%d", len(batch), len(texts)))
			}
			copy(vectors[start:end], batch)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
			err = domain.WrapError(domain.ErrEmbeddingUnavailable, "embed chunks", err)
		}
		return nil, fmt.Errorf("embed chunks: %w", err)
	}

	dim := len(vectors[0])
	for i, v := range vectors {
		if len(v) == 0 || len(v) != dim {
			return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed chunks",
				fmt.Errorf("chunk %d has dimension %d, expected %d", i, len(v), dim))
		}
	}
	return vectors, nil
}

func (uc *ProcessDocumentUseCase) buildChunks(doc *domain.Document, windows []domain.TextWindow, vectors [][]float32) ([]domain.Chunk, error) {
	now := time.Now().UTC()
	model := uc.embedder.Model()
	chunks := make([]domain.Chunk, 0, len(windows))
	for i, w := range windows {
		c, err := domain.NewChunk(doc, i, w.Content, w.StartLine, w.EndLine, vectors[i], model)
		if err != nil {
			return nil, fmt.Errorf("build chunk %d: %w", i, err)
		}
		c.ID = uuid.NewString()
		c.CreatedAt = now
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func (uc *ProcessDocumentUseCase) markFailed(ctx context.Context, documentID string, processErr error) error {
	// The request context may already be cancelled; the status must still land.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	return uc.repo.UpdateStatus(ctx, documentID, domain.StatusFailed, processErr.Error())
}

func (uc *ProcessDocumentUseCase) observe(status domain.DocumentStatus, chunks int, d time.Duration) {
	if uc.opts.Observer != nil {
		uc.opts.Observer.ObserveIngestion(status, chunks, d)
	}
}

func (uc *ProcessDocumentUseCase) acquire(documentID string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if _, busy := uc.inflight[documentID]; busy {
		return false
	}
	uc.inflight[documentID] = struct{}{}
	return true
}

func (uc *ProcessDocumentUseCase) release(documentID string) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	delete(uc.inflight, documentID)
}

// countLines counts non-blank lines, the same measure the chunker uses for
// line ranges.
func countLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}
