package domain

import (
	"errors"
	"fmt"
	"time"
)

type DocumentStatus string

const (
	StatusPending   DocumentStatus = "pending"
	StatusCompleted DocumentStatus = "completed"
	StatusFailed    DocumentStatus = "failed"
)

// Document is an ingested source. Only Status (and Error) change after
// ingestion completes.
type Document struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	MimeType    string         `json:"mime_type"`
	StoragePath string         `json:"storage_path"`
	SizeBytes   int64          `json:"size_bytes"`
	Content     string         `json:"-"`
	LineCount   int            `json:"line_count"`
	ChunkCount  int            `json:"chunk_count"`
	Status      DocumentStatus `json:"status"`
	Error       string         `json:"error,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Chunk is one word-window of a document together with its embedding.
type Chunk struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"document_id"`
	DocumentName   string    `json:"document_name"`
	Seq            int       `json:"seq"`
	Content        string    `json:"content"`
	StartLine      int       `json:"start_line"`
	EndLine        int       `json:"end_line"`
	Embedding      []float32 `json:"-"`
	EmbeddingModel string    `json:"embedding_model"`
	EmbeddingDim   int       `json:"embedding_dim"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewChunk builds a chunk and enforces 0 < start <= end <= lineCount.
func NewChunk(doc *Document, seq int, content string, startLine, endLine int, embedding []float32, model string) (Chunk, error) {
	if doc == nil {
		return Chunk{}, WrapError(ErrInvalidInput, "new chunk", errors.New("document is nil"))
	}
	if startLine <= 0 || startLine > endLine || endLine > doc.LineCount {
		return Chunk{}, WrapError(ErrInvalidInput, "new chunk", fmt.Errorf(
			"line range %d-%d outside document %s with %d lines", startLine, endLine, doc.ID, doc.LineCount,
		))
	}
	if len(embedding) == 0 {
		return Chunk{}, WrapError(ErrInvalidInput, "new chunk", errors.New("empty embedding"))
	}
	return Chunk{
		DocumentID:     doc.ID,
		DocumentName:   doc.Name,
		Seq:            seq,
		Content:        content,
		StartLine:      startLine,
		EndLine:        endLine,
		Embedding:      embedding,
		EmbeddingModel: model,
		EmbeddingDim:   len(embedding),
	}, nil
}

// ScoredChunk is a query-time pairing of a chunk and its similarity score.
// Citation outcomes are carried by Reference.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// TextWindow is one chunker output before embedding.
type TextWindow struct {
	Content   string `json:"content"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	WordStart int    `json:"word_start"`
	WordCount int    `json:"word_count"`
}
