package mcpadapter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

type queryFake struct {
	searchOpts domain.SearchOptions
	answerOpts domain.SearchOptions
	retrieval  *domain.Retrieval
	answer     *domain.Answer
	err        error
}

func (f *queryFake) Search(_ context.Context, _ string, opts domain.SearchOptions) (*domain.Retrieval, error) {
	f.searchOpts = opts
	return f.retrieval, f.err
}

func (f *queryFake) Answer(_ context.Context, _ string, opts domain.SearchOptions) (*domain.Answer, error) {
	f.answerOpts = opts
	return f.answer, f.err
}

type docsFake struct {
	docs []domain.Document
}

func (f *docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New(id))
}

func (f *docsFake) List(context.Context) ([]domain.Document, error) {
	return f.docs, nil
}

func callRequest(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty tool result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func TestSearchCorpusFormatsReferences(t *testing.T) {
	query := &queryFake{retrieval: &domain.Retrieval{
		Threshold: 0.7,
		References: []domain.Reference{
			{Index: 1, DocumentName: "الرسالة.txt", StartLine: 3, EndLine: 9, Similarity: 81.25, Excerpt: "العلم نور"},
		},
	}}
	handler := handleSearchCorpus(Services{Query: query, Logger: discardLogger()})

	res, err := handler(context.Background(), callRequest(map[string]any{"question": "ما العلم", "top_k": float64(80)}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	text := resultText(t, res)
	if !strings.Contains(text, "الرسالة.txt") || !strings.Contains(text, "lines 3-9") || !strings.Contains(text, "81.2") {
		t.Fatalf("unexpected output %q", text)
	}
	if query.searchOpts.TopK != maxTopK {
		t.Fatalf("expected top_k clamped to %d, got %d", maxTopK, query.searchOpts.TopK)
	}
}

func TestSearchCorpusRequiresQuestion(t *testing.T) {
	handler := handleSearchCorpus(Services{Query: &queryFake{}, Logger: discardLogger()})
	res, err := handler(context.Background(), callRequest(map[string]any{"question": "  "}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError {
		t.Fatalf("expected tool error")
	}
}

func TestSearchCorpusReportsNoMatch(t *testing.T) {
	query := &queryFake{retrieval: &domain.Retrieval{NoSufficientMatches: true}}
	handler := handleSearchCorpus(Services{Query: query, Logger: discardLogger()})
	res, _ := handler(context.Background(), callRequest(map[string]any{"question": "x"}))
	if !strings.Contains(resultText(t, res), "No passage") {
		t.Fatalf("expected no-match message, got %q", resultText(t, res))
	}
	if query.searchOpts.TopK != defaultTopK {
		t.Fatalf("expected default top_k, got %d", query.searchOpts.TopK)
	}
}

func TestAskCorpusIncludesCitationsAndGenerationError(t *testing.T) {
	query := &queryFake{answer: &domain.Answer{
		ConversationID:  "conv-1",
		GenerationError: "model offline",
		References:      []domain.Reference{{Index: 1, DocumentName: "a.txt", StartLine: 1, EndLine: 2}},
		Citations:       []domain.CitationCheck{{Reference: 1, Quote: "نص", Verified: true}},
	}}
	handler := handleAskCorpus(Services{Query: query, Logger: discardLogger()})

	res, err := handler(context.Background(), callRequest(map[string]any{"question": "سؤال", "conversation_id": "conv-1"}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	text := resultText(t, res)
	for _, want := range []string{"Generation failed: model offline", "[1] verified", "a.txt", "conv-1"} {
		if !strings.Contains(text, want) {
			t.Fatalf("output missing %q: %q", want, text)
		}
	}
	if query.answerOpts.ConversationID != "conv-1" {
		t.Fatalf("conversation id not forwarded: %+v", query.answerOpts)
	}
}

func TestAskCorpusSurfacesErrors(t *testing.T) {
	query := &queryFake{err: domain.WrapError(domain.ErrEmbeddingUnavailable, "embed", errors.New("down"))}
	handler := handleAskCorpus(Services{Query: query, Logger: discardLogger()})
	res, err := handler(context.Background(), callRequest(map[string]any{"question": "q"}))
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if !res.IsError || !strings.Contains(resultText(t, res), "down") {
		t.Fatalf("expected tool error, got %+v", res)
	}
}

func TestListDocuments(t *testing.T) {
	docs := &docsFake{docs: []domain.Document{
		{ID: "d1", Name: "a.txt", Status: domain.StatusCompleted, ChunkCount: 4},
		{ID: "d2", Name: "b.pdf", Status: domain.StatusFailed, Error: "no text"},
	}}
	handler := handleListDocuments(Services{Documents: docs, Logger: discardLogger()})
	res, _ := handler(context.Background(), callRequest(nil))
	text := resultText(t, res)
	if !strings.Contains(text, "Documents (2)") || !strings.Contains(text, "chunks=4") || !strings.Contains(text, "error: no text") {
		t.Fatalf("unexpected output %q", text)
	}
}

func TestToolDefinitionsRequireQuestion(t *testing.T) {
	for _, tool := range []mcp.Tool{searchCorpusTool(), askCorpusTool()} {
		if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "question" {
			t.Fatalf("%s: unexpected required params %v", tool.Name, tool.InputSchema.Required)
		}
	}
	if listDocumentsTool().Name != "list_documents" {
		t.Fatalf("unexpected tool name")
	}
}
