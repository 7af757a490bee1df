package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/retrieval"
)

const (
	DefaultTopK      = 5
	DefaultMinAccept = 0.5
)

type QueryOptions struct {
	TopK   int
	Policy retrieval.Policy
	// Excerpt and ContextMaxChars bound the context handed to the generator.
	Excerpt         retrieval.ExcerptLimits
	ContextMaxChars int
	// ExpansionSuffix is appended to the question before it is embedded.
	ExpansionSuffix string
	Instruction     string
	Observer        ports.QueryObserver
	Logger          *slog.Logger
}

type QueryUseCase struct {
	normalizer    ports.TextNormalizer
	embedder      ports.Embedder
	chunks        ports.ChunkRepository
	generator     ports.AnswerGenerator
	conversations ports.ConversationStore
	opts          QueryOptions
}

// NewQueryUseCase wires the retrieval pipeline. conversations may be nil,
// in which case answers are not recorded.
func NewQueryUseCase(
	normalizer ports.TextNormalizer,
	embedder ports.Embedder,
	chunks ports.ChunkRepository,
	generator ports.AnswerGenerator,
	conversations ports.ConversationStore,
	opts QueryOptions,
) *QueryUseCase {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if len(opts.Policy.Thresholds()) == 0 {
		opts.Policy = retrieval.FixedThreshold(DefaultMinAccept)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &QueryUseCase{
		normalizer:    normalizer,
		embedder:      embedder,
		chunks:        chunks,
		generator:     generator,
		conversations: conversations,
		opts:          opts,
	}
}

// Search embeds the question, ranks every stored chunk against it and
// assembles the numbered references.
func (uc *QueryUseCase) Search(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Retrieval, error) {
	query := uc.normalizer.Normalize(question)
	if query == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "search", errors.New("question is required"))
	}
	if suffix := strings.TrimSpace(uc.opts.ExpansionSuffix); suffix != "" {
		query = query + " " + suffix
	}

	vector, err := uc.embedder.EmbedQuery(ctx, query)
	if err != nil {
		if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
			err = domain.WrapError(domain.ErrEmbeddingUnavailable, "embed query", err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}

	candidates, err := uc.chunks.ListChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = uc.opts.TopK
	}
	result := retrieval.Search(
		retrieval.Query{Vector: vector, Model: uc.embedder.Model()},
		candidates, topK, uc.opts.Policy,
	)
	assembled := retrieval.BuildContext(result.Matches, retrieval.ContextOptions{
		Excerpt:  uc.opts.Excerpt,
		MaxChars: uc.opts.ContextMaxChars,
	})
	matches := result.Matches[:len(assembled.References)]

	if uc.opts.Observer != nil {
		uc.opts.Observer.ObserveRetrieval(result.Threshold, len(matches), result.NoSufficientMatches)
	}
	if result.NoSufficientMatches {
		uc.opts.Logger.Info("retrieval_no_match",
			"candidates", len(candidates),
			"threshold", result.Threshold,
		)
	}

	return &domain.Retrieval{
		Matches:             matches,
		References:          assembled.References,
		Threshold:           result.Threshold,
		NoSufficientMatches: result.NoSufficientMatches,
		Context:             assembled.Context,
	}, nil
}

// Answer retrieves references, asks the generator for a grounded answer and
// checks the quotes it cites. A generation failure still returns the
// references with GenerationError set.
func (uc *QueryUseCase) Answer(ctx context.Context, question string, opts domain.SearchOptions) (*domain.Answer, error) {
	found, err := uc.Search(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	answer := &domain.Answer{
		ConversationID:      opts.ConversationID,
		References:          found.References,
		Threshold:           found.Threshold,
		NoSufficientMatches: found.NoSufficientMatches,
	}

	prompt := retrieval.BuildPrompt(uc.opts.Instruction, question, found.Context)
	text, err := uc.generator.Generate(ctx, prompt)
	if err != nil {
		if !domain.IsKind(err, domain.ErrGenerationFailure) {
			err = domain.WrapError(domain.ErrGenerationFailure, "generate answer", err)
		}
		answer.GenerationError = err.Error()
		uc.opts.Logger.Warn("generation_failed", "error", err)
		if uc.opts.Observer != nil {
			uc.opts.Observer.ObserveGenerationFailure()
		}
	} else {
		answer.Text = strings.TrimSpace(text)
		answer.Citations = retrieval.CheckCitations(answer.Text, found.Matches, answer.References)
		if uc.opts.Observer != nil {
			for _, c := range answer.Citations {
				uc.opts.Observer.ObserveCitation(c.Verified)
			}
		}
	}

	uc.record(ctx, question, answer)
	return answer, nil
}

// record stores the exchange. Failures are logged and never fail the answer.
func (uc *QueryUseCase) record(ctx context.Context, question string, answer *domain.Answer) {
	if uc.conversations == nil {
		return
	}
	conv, err := uc.conversations.EnsureConversation(ctx, answer.ConversationID, question)
	if err != nil {
		uc.opts.Logger.Warn("conversation_save_failed", "conversation_id", answer.ConversationID, "error", err)
		return
	}
	answer.ConversationID = conv.ID

	now := time.Now().UTC()
	reply := answer.Text
	if reply == "" {
		reply = answer.GenerationError
	}
	messages := []domain.ConversationMessage{
		{ID: uuid.NewString(), ConversationID: conv.ID, Role: domain.RoleUser, Content: question, CreatedAt: now},
		{ID: uuid.NewString(), ConversationID: conv.ID, Role: domain.RoleAssistant, Content: reply, References: answer.References, CreatedAt: now},
	}
	for i := range messages {
		if err := uc.conversations.AppendMessage(ctx, &messages[i]); err != nil {
			uc.opts.Logger.Warn("conversation_save_failed", "conversation_id", conv.ID, "error", err)
			return
		}
	}
}
