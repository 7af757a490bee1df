package usecase

import (
	"context"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
)

// InlinePublisher processes a document as soon as it is announced. It
// replaces the queue when ingestion runs in the caller's process.
type InlinePublisher struct {
	processor ports.DocumentProcessor
}

func NewInlinePublisher(processor ports.DocumentProcessor) *InlinePublisher {
	return &InlinePublisher{processor: processor}
}

func (p *InlinePublisher) PublishDocumentIngested(ctx context.Context, documentID string) error {
	return p.processor.ProcessByID(ctx, documentID)
}
