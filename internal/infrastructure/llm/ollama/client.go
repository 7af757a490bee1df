package ollama

import (
	"context"
	"fmt"
	"strings"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/llm/llmhttp"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/resilience"
)

type Client struct {
	transport *llmhttp.Transport
	opts      llmhttp.Options
	executor  *resilience.Executor
}

func New(opts llmhttp.Options, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		transport: llmhttp.NewTransport("ollama", opts.BaseURL, opts.APIKey, opts.Timeout),
		opts:      opts,
		executor:  executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Model() string {
	return e.client.opts.EmbedModel
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.opts.EmbedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.executor.Execute(ctx, "ollama.embed", func(callCtx context.Context) error {
		return e.client.transport.PostJSON(callCtx, "/api/embed", request, &response, "embed")
	}, llmhttp.Classify)
	if err != nil {
		return nil, llmhttp.EmbeddingFailure("ollama embed", err)
	}
	if err := llmhttp.CheckVectors("ollama embed", len(texts), response.Embeddings); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	options := map[string]any{
		"temperature": g.client.opts.Temperature,
	}
	if g.client.opts.MaxTokens > 0 {
		options["num_predict"] = g.client.opts.MaxTokens
	}
	request := map[string]any{
		"model":   g.client.opts.ChatModel,
		"prompt":  prompt,
		"stream":  false,
		"options": options,
	}

	var response struct {
		Response string `json:"response"`
	}
	err := g.client.executor.Execute(ctx, "ollama.generate", func(callCtx context.Context) error {
		return g.client.transport.PostJSON(callCtx, "/api/generate", request, &response, "generate")
	}, llmhttp.Classify)
	if err != nil {
		return "", llmhttp.GenerationFailure("ollama generate", err)
	}

	text := strings.TrimSpace(response.Response)
	if text == "" {
		return "", domain.WrapError(domain.ErrGenerationFailure, "ollama generate", fmt.Errorf("%w from model %s", llmhttp.ErrEmptyCompletion, g.client.opts.ChatModel))
	}
	return text, nil
}
