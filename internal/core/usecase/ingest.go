package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
)

const DefaultMaxUploadBytes int64 = 64 << 20

type IngestOptions struct {
	MaxBytes int64
	// Accept rejects uploads whose format cannot be extracted. Nil accepts all.
	Accept func(filename, mimeType string) bool
}

type IngestDocumentUseCase struct {
	repo      ports.DocumentRepository
	storage   ports.ObjectStorage
	publisher ports.IngestionPublisher
	opts      IngestOptions
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	publisher ports.IngestionPublisher,
	opts IngestOptions,
) *IngestDocumentUseCase {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxUploadBytes
	}
	return &IngestDocumentUseCase{
		repo:      repo,
		storage:   storage,
		publisher: publisher,
		opts:      opts,
	}
}

// Upload stores the source file, registers a pending document and announces
// it for ingestion.
func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	body io.Reader,
) (*domain.Document, error) {
	name := strings.TrimSpace(filepath.Base(filepath.ToSlash(filename)))
	if name == "" || name == "." || name == "/" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("filename is required"))
	}
	if uc.opts.Accept != nil && !uc.opts.Accept(name, mimeType) {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("unsupported document format: %s", name))
	}

	id := uuid.NewString()
	storageKey := id + "/" + sanitizeFilename(name)
	now := time.Now().UTC()

	size, err := uc.storage.Save(ctx, storageKey, io.LimitReader(body, uc.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	if size == 0 || size > uc.opts.MaxBytes {
		uc.discard(ctx, storageKey)
		if size == 0 {
			return nil, domain.WrapError(domain.ErrInvalidInput, "upload", errors.New("empty document"))
		}
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("document exceeds %d bytes", uc.opts.MaxBytes))
	}

	doc := &domain.Document{
		ID:          id,
		Name:        name,
		MimeType:    mimeType,
		StoragePath: storageKey,
		SizeBytes:   size,
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		uc.discard(ctx, storageKey)
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.publisher.PublishDocumentIngested(ctx, doc.ID); err != nil {
		if markErr := uc.repo.UpdateStatus(ctx, doc.ID, domain.StatusFailed, err.Error()); markErr != nil {
			slog.Error("mark_document_failed", "document_id", doc.ID, "error", markErr)
		}
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

func (uc *IngestDocumentUseCase) discard(ctx context.Context, key string) {
	if err := uc.storage.Remove(ctx, key); err != nil {
		slog.Warn("discard_upload_failed", "storage_key", key, "error", err)
	}
}

// sanitizeFilename keeps letters and digits of any script so Arabic file
// names survive; everything else becomes an underscore.
func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r):
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	base = strings.TrimLeft(base, ".")
	if base == "" {
		return "document.bin"
	}
	return base
}
