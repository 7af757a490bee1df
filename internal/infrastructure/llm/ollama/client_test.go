package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/llm/llmhttp"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/resilience"
)

func testExecutor() *resilience.Executor {
	return resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    3,
		RetryInitialBackoff: time.Millisecond,
		RetryMaxBackoff:     2 * time.Millisecond,
		RetryMultiplier:     2,
		BreakerEnabled:      false,
	})
}

func newTestClient(url string) *Client {
	return New(llmhttp.Options{BaseURL: url, ChatModel: "gen", EmbedModel: "embed", MaxTokens: 64, Temperature: 0.2}, testExecutor())
}

func TestGeneratorSendsPromptAndOptions(t *testing.T) {
	var payload map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"response":"  الجواب  "}`))
	}))
	defer server.Close()

	got, err := NewGenerator(newTestClient(server.URL)).Generate(context.Background(), "question?")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "الجواب" {
		t.Fatalf("unexpected answer %q", got)
	}
	if payload["prompt"] != "question?" || payload["model"] != "gen" || payload["stream"] != false {
		t.Fatalf("unexpected payload: %v", payload)
	}
	options, _ := payload["options"].(map[string]any)
	if options["num_predict"] != float64(64) {
		t.Fatalf("expected num_predict option, got %v", options)
	}
}

func TestGeneratorEmptyResponseIsFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":"   "}`))
	}))
	defer server.Close()

	_, err := NewGenerator(newTestClient(server.URL)).Generate(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrGenerationFailure) {
		t.Fatalf("expected generation failure, got %v", err)
	}
}

func TestEmbedReturnsVectorsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "embed" || len(req.Input) != 2 {
			t.Errorf("unexpected request: %+v", req)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,0],[0,1]]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(newTestClient(server.URL))
	vectors, err := embedder.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 2 || vectors[0][0] != 1 || vectors[1][1] != 1 {
		t.Fatalf("unexpected vectors: %v", vectors)
	}
	if embedder.Model() != "embed" {
		t.Fatalf("unexpected model %q", embedder.Model())
	}
}

func TestEmbedIncludesHTTPBodyInError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewEmbedder(newTestClient(server.URL)).Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) || !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary embedding failure, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts for a retryable status, got %d", calls.Load())
	}
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[]]}`))
	}))
	defer server.Close()

	_, err := NewEmbedder(newTestClient(server.URL)).EmbedQuery(context.Background(), "q")
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding unavailable, got %v", err)
	}
}

func TestEmbedDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "unknown model", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewEmbedder(newTestClient(server.URL)).Embed(context.Background(), []string{"x"})
	if domain.IsKind(err, domain.ErrTemporary) || !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected permanent embedding failure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}
