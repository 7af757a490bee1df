package httpadapter

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/config"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

type ingestFake struct {
	err      error
	filename string
	body     string
}

func (f *ingestFake) Upload(_ context.Context, filename, mimeType string, body io.Reader) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.filename = filename
	f.body = string(raw)
	now := time.Now().UTC()
	return &domain.Document{
		ID:          "doc-1",
		Name:        filename,
		MimeType:    mimeType,
		StoragePath: "doc-1/" + filename,
		SizeBytes:   int64(len(raw)),
		Status:      domain.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

type queryFake struct {
	err      error
	question string
	opts     domain.SearchOptions
}

func (f *queryFake) Answer(_ context.Context, question string, opts domain.SearchOptions) (*domain.Answer, error) {
	f.question, f.opts = question, opts
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Answer{
		ConversationID: "conv-1",
		Text:           "ok",
		References:     []domain.Reference{{Index: 1, DocumentName: "a.txt", StartLine: 1, EndLine: 2, Similarity: 91.5}},
	}, nil
}

func (f *queryFake) Search(_ context.Context, question string, opts domain.SearchOptions) (*domain.Retrieval, error) {
	f.question, f.opts = question, opts
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Retrieval{References: []domain.Reference{}, Threshold: 0.6, NoSufficientMatches: true}, nil
}

type docsFake struct {
	err error
}

func (f docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Document{ID: id, Name: "a.txt", MimeType: "text/plain", Status: domain.StatusCompleted}, nil
}

func (f docsFake) List(context.Context) ([]domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Document{{ID: "doc-1", Name: "a.txt", Status: domain.StatusCompleted}}, nil
}

type removerFake struct {
	err     error
	removed []string
}

func (f *removerFake) Remove(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, id)
	return nil
}

type conversationsFake struct {
	err   error
	limit int
}

func (f *conversationsFake) ListConversations(_ context.Context, limit int) ([]domain.Conversation, error) {
	f.limit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []domain.Conversation{{ID: "conv-1", Title: "سؤال", MessageCount: 2}}, nil
}

func (f *conversationsFake) ListMessages(_ context.Context, id string) ([]domain.ConversationMessage, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []domain.ConversationMessage{{ID: "m1", ConversationID: id, Role: domain.RoleUser, Content: "سؤال"}}, nil
}

func (f *conversationsFake) DeleteConversation(context.Context, string) error { return f.err }

type routerFixture struct {
	ingest        *ingestFake
	query         *queryFake
	remover       *removerFake
	conversations *conversationsFake
	handler       http.Handler
}

func newRouterFixture(cfg config.Config, docsErr error) *routerFixture {
	if cfg.RAGTopK == 0 {
		cfg.RAGTopK = 5
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = 1 << 20
	}
	f := &routerFixture{
		ingest:        &ingestFake{},
		query:         &queryFake{},
		remover:       &removerFake{},
		conversations: &conversationsFake{},
	}
	f.handler = NewRouter(cfg, Services{
		Ingestor:      f.ingest,
		Query:         f.query,
		Documents:     docsFake{err: docsErr},
		Remover:       f.remover,
		Conversations: f.conversations,
	}).Handler()
	return f
}
