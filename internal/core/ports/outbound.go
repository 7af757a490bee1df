package ports

import (
	"context"
	"io"
	"time"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	// Delete removes the document and, by cascade, its chunks.
	Delete(ctx context.Context, id string) error
}

// ChunkRepository is the chunk side of the corpus store.
type ChunkRepository interface {
	// ListChunks returns every stored chunk in insertion order.
	ListChunks(ctx context.Context) ([]domain.Chunk, error)
	// CompleteIngestion stores the document's derived fields and all of its
	// chunks atomically. It fails with domain.ErrIngestionConflict when the
	// document already has chunks.
	CompleteIngestion(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error
}

// CorpusStore is a full corpus backend.
type CorpusStore interface {
	DocumentRepository
	ChunkRepository
}

// ObjectStorage stores source documents.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
}

// IngestionPublisher announces uploaded documents that need processing.
type IngestionPublisher interface {
	PublishDocumentIngested(ctx context.Context, documentID string) error
}

// MessageQueue publishes/consumes ingestion events.
type MessageQueue interface {
	IngestionPublisher
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}

// Embedder builds vectors for chunks and query text. Failures must be
// reported as errors; a zero vector is never a valid fallback.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Chunker splits normalized text into line-tagged word windows.
type Chunker interface {
	Split(text string) []domain.TextWindow
}

// TextNormalizer canonicalizes raw text before chunking and embedding.
type TextNormalizer interface {
	Normalize(text string) string
	NormalizeLines(text string) string
}

// AnswerGenerator is the opaque language-model call.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ConversationStore persists questions, answers and their references.
type ConversationStore interface {
	EnsureConversation(ctx context.Context, conversationID, titleSeed string) (*domain.Conversation, error)
	AppendMessage(ctx context.Context, message *domain.ConversationMessage) error
	ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error)
	DeleteConversation(ctx context.Context, conversationID string) error
}

// QueryObserver receives retrieval outcomes, typically for metrics.
type QueryObserver interface {
	ObserveRetrieval(threshold float64, matches int, noSufficientMatches bool)
	ObserveCitation(verified bool)
	ObserveGenerationFailure()
}

// IngestionObserver receives per-document ingestion outcomes.
type IngestionObserver interface {
	ObserveIngestion(status domain.DocumentStatus, chunks int, duration time.Duration)
}
