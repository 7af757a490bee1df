package ports

import (
	"context"
	"io"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error)
}

// DocumentQueryService is the inbound contract for retrieval and grounded answering.
type DocumentQueryService interface {
	Answer(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Answer, error)
	Search(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Retrieval, error)
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
}

// DocumentRemover deletes a document with its chunks and source file.
type DocumentRemover interface {
	Remove(ctx context.Context, id string) error
}

// DocumentProcessor is the inbound contract for document ingestion processing.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// ConversationReader exposes stored conversations.
type ConversationReader interface {
	ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}
