// Package openaicompat talks to OpenAI-compatible servers such as LM Studio
// through the /embeddings and /completions endpoints.
package openaicompat

import (
	"context"
	"fmt"
	"sort"
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

// New expects BaseURL to include the API prefix, e.g. http://localhost:1234/v1.
func New(opts llmhttp.Options, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		transport: llmhttp.NewTransport("openai", opts.BaseURL, opts.APIKey, opts.Timeout),
		opts:      opts,
		executor:  executor,
	}
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
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

	var response embeddingResponse
	err := e.client.executor.Execute(ctx, "openai.embed", func(callCtx context.Context) error {
		return e.client.transport.PostJSON(callCtx, "/embeddings", request, &response, "embed")
	}, llmhttp.Classify)
	if err != nil {
		return nil, llmhttp.EmbeddingFailure("openai embed", err)
	}

	// Servers may answer out of order; index is authoritative.
	sort.SliceStable(response.Data, func(i, j int) bool {
		return response.Data[i].Index < response.Data[j].Index
	})
	vectors := make([][]float32, 0, len(response.Data))
	for _, item := range response.Data {
		vectors = append(vectors, item.Embedding)
	}
	if err := llmhttp.CheckVectors("openai embed", len(texts), vectors); err != nil {
		return nil, err
	}
	return vectors, nil
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
	request := map[string]any{
		"model":       g.client.opts.ChatModel,
		"prompt":      prompt,
		"temperature": g.client.opts.Temperature,
	}
	if g.client.opts.MaxTokens > 0 {
		request["max_tokens"] = g.client.opts.MaxTokens
	}

	var response struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}
	err := g.client.executor.Execute(ctx, "openai.generate", func(callCtx context.Context) error {
		return g.client.transport.PostJSON(callCtx, "/completions", request, &response, "generate")
	}, llmhttp.Classify)
	if err != nil {
		return "", llmhttp.GenerationFailure("openai generate", err)
	}

	if len(response.Choices) == 0 || strings.TrimSpace(response.Choices[0].Text) == "" {
		return "", domain.WrapError(domain.ErrGenerationFailure, "openai generate", fmt.Errorf("%w from model %s", llmhttp.ErrEmptyCompletion, g.client.opts.ChatModel))
	}
	return strings.TrimSpace(response.Choices[0].Text), nil
}
