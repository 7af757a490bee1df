package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
)

type RemoveDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
}

func NewRemoveDocumentUseCase(repo ports.DocumentRepository, storage ports.ObjectStorage) *RemoveDocumentUseCase {
	return &RemoveDocumentUseCase{repo: repo, storage: storage}
}

// Remove deletes the document with its chunks, then its source file. A
// leftover file is logged rather than reported.
func (uc *RemoveDocumentUseCase) Remove(ctx context.Context, id string) error {
	doc, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if doc.StoragePath != "" {
		if err := uc.storage.Remove(ctx, doc.StoragePath); err != nil {
			slog.Warn("remove_source_failed", "document_id", id, "storage_path", doc.StoragePath, "error", err)
		}
	}
	return nil
}
