package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/retrieval"
)

type chunkRepoFake struct {
	chunks []domain.Chunk
	err    error
}

func (f *chunkRepoFake) ListChunks(context.Context) ([]domain.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks, nil
}

func (f *chunkRepoFake) CompleteIngestion(context.Context, *domain.Document, []domain.Chunk) error {
	return errors.New("not implemented")
}

type generatorFake struct {
	answer string
	err    error
	prompt string
}

func (f *generatorFake) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type conversationStoreFake struct {
	ensureErr error
	appendErr error
	titleSeed string
	messages  []domain.ConversationMessage
}

func (f *conversationStoreFake) EnsureConversation(_ context.Context, id, titleSeed string) (*domain.Conversation, error) {
	if f.ensureErr != nil {
		return nil, f.ensureErr
	}
	f.titleSeed = titleSeed
	if id == "" {
		id = "conv-new"
	}
	return &domain.Conversation{ID: id, Title: domain.ConversationTitle(titleSeed)}, nil
}

func (f *conversationStoreFake) AppendMessage(_ context.Context, m *domain.ConversationMessage) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.messages = append(f.messages, *m)
	return nil
}

func (f *conversationStoreFake) ListConversations(context.Context, int) ([]domain.Conversation, error) {
	return nil, nil
}

func (f *conversationStoreFake) ListMessages(context.Context, string) ([]domain.ConversationMessage, error) {
	return f.messages, nil
}

func (f *conversationStoreFake) DeleteConversation(context.Context, string) error { return nil }

type queryObserverFake struct {
	retrievals         int
	lastMatches        int
	noMatch            bool
	citations          []bool
	generationFailures int
}

func (f *queryObserverFake) ObserveRetrieval(_ float64, matches int, noSufficientMatches bool) {
	f.retrievals++
	f.lastMatches = matches
	f.noMatch = noSufficientMatches
}

func (f *queryObserverFake) ObserveCitation(verified bool) { f.citations = append(f.citations, verified) }

func (f *queryObserverFake) ObserveGenerationFailure() { f.generationFailures++ }

func corpusChunks() []domain.Chunk {
	return []domain.Chunk{
		{ID: "c1", DocumentID: "d1", DocumentName: "fiqh.txt", Content: "الصلاة عماد الدين", StartLine: 1, EndLine: 2, Embedding: []float32{1, 0}, EmbeddingModel: "m1"},
		{ID: "c2", DocumentID: "d1", DocumentName: "fiqh.txt", Content: "الزكاة ركن من أركان الإسلام", StartLine: 3, EndLine: 4, Embedding: []float32{0.8, 0.6}, EmbeddingModel: "m1"},
		{ID: "c3", DocumentID: "d2", DocumentName: "other.txt", Content: "unrelated", StartLine: 1, EndLine: 1, Embedding: []float32{0, 1}, EmbeddingModel: "m1"},
	}
}

func newQueryFixture(gen *generatorFake, store *conversationStoreFake, obs *queryObserverFake) (*QueryUseCase, *embedderFake) {
	embedder := &embedderFake{model: "m1", queryVec: []float32{1, 0}}
	opts := QueryOptions{TopK: 5, Policy: retrieval.FixedThreshold(0.5)}
	if obs != nil {
		opts.Observer = obs
	}
	uc := NewQueryUseCase(normalizerFake{}, embedder, &chunkRepoFake{chunks: corpusChunks()}, gen, nil, opts)
	if store != nil {
		uc.conversations = store
	}
	return uc, embedder
}

func TestQuerySearchRanksAndReferences(t *testing.T) {
	obs := &queryObserverFake{}
	uc, _ := newQueryFixture(&generatorFake{}, nil, obs)

	got, err := uc.Search(context.Background(), "ما عماد الدين؟", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got.Matches) != 2 || got.Matches[0].Chunk.ID != "c1" || got.Matches[1].Chunk.ID != "c2" {
		t.Fatalf("unexpected matches %+v", got.Matches)
	}
	if len(got.References) != 2 || got.References[0].Index != 1 || got.References[0].Similarity != 100 {
		t.Fatalf("unexpected references %+v", got.References)
	}
	if got.References[1].Similarity != 80 {
		t.Fatalf("expected 80%% similarity, got %v", got.References[1].Similarity)
	}
	if got.NoSufficientMatches {
		t.Fatalf("did not expect no-match flag")
	}
	if obs.retrievals != 1 || obs.lastMatches != 2 {
		t.Fatalf("unexpected observations %+v", obs)
	}
}

func TestQuerySearchHonoursTopK(t *testing.T) {
	uc, _ := newQueryFixture(&generatorFake{}, nil, nil)

	got, err := uc.Search(context.Background(), "q", domain.SearchOptions{TopK: 1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got.Matches) != 1 || got.Matches[0].Chunk.ID != "c1" {
		t.Fatalf("unexpected matches %+v", got.Matches)
	}
}

func TestQuerySearchAppendsExpansionSuffix(t *testing.T) {
	uc, embedder := newQueryFixture(&generatorFake{}, nil, nil)
	uc.opts.ExpansionSuffix = " معنى "

	if _, err := uc.Search(context.Background(), " سؤال ", domain.SearchOptions{}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(embedder.queryTexts) != 1 || embedder.queryTexts[0] != "سؤال معنى" {
		t.Fatalf("unexpected embedded query %q", embedder.queryTexts)
	}
}

func TestQuerySearchRejectsBlankQuestion(t *testing.T) {
	uc, _ := newQueryFixture(&generatorFake{}, nil, nil)

	if _, err := uc.Search(context.Background(), "   ", domain.SearchOptions{}); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestQuerySearchEmbeddingFailureIsFatal(t *testing.T) {
	uc, embedder := newQueryFixture(&generatorFake{}, nil, nil)
	embedder.queryErr = errors.New("connection refused")

	_, err := uc.Search(context.Background(), "q", domain.SearchOptions{})
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected embedding unavailable, got %v", err)
	}
}

func TestQuerySearchCorpusFailureIsFatal(t *testing.T) {
	uc, _ := newQueryFixture(&generatorFake{}, nil, nil)
	uc.chunks = &chunkRepoFake{err: errors.New("db down")}

	if _, err := uc.Search(context.Background(), "q", domain.SearchOptions{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestQuerySearchNoSufficientMatches(t *testing.T) {
	obs := &queryObserverFake{}
	uc, embedder := newQueryFixture(&generatorFake{}, nil, obs)
	embedder.queryVec = []float32{-1, 0}

	got, err := uc.Search(context.Background(), "q", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !got.NoSufficientMatches || len(got.References) != 0 {
		t.Fatalf("expected no sufficient matches, got %+v", got)
	}
	if got.Context != retrieval.NoReferencesMarker {
		t.Fatalf("expected no-references marker, got %q", got.Context)
	}
	if !obs.noMatch {
		t.Fatalf("expected observer to see the no-match flag")
	}
}

func TestQueryAnswerVerifiesCitations(t *testing.T) {
	gen := &generatorFake{answer: `قال المصدر "الصلاة عماد الدين" (مرجع 1) وأيضا "الزكاة فرض" (مرجع 2)`}
	obs := &queryObserverFake{}
	uc, _ := newQueryFixture(gen, nil, obs)

	got, err := uc.Answer(context.Background(), "ما عماد الدين؟", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(got.Citations) != 2 || !got.Citations[0].Verified || got.Citations[1].Verified {
		t.Fatalf("unexpected citations %+v", got.Citations)
	}
	if !got.References[0].Verified || got.References[1].Verified {
		t.Fatalf("unexpected reference verification %+v", got.References)
	}
	if !strings.Contains(gen.prompt, "[مرجع 1] fiqh.txt") || !strings.Contains(gen.prompt, "ما عماد الدين؟") {
		t.Fatalf("prompt is missing question or sources: %q", gen.prompt)
	}
	if len(obs.citations) != 2 {
		t.Fatalf("expected 2 citation observations, got %v", obs.citations)
	}
}

func TestQueryAnswerGenerationFailureKeepsReferences(t *testing.T) {
	gen := &generatorFake{err: errors.New("model offline")}
	obs := &queryObserverFake{}
	store := &conversationStoreFake{}
	uc, _ := newQueryFixture(gen, store, obs)

	got, err := uc.Answer(context.Background(), "q", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.GenerationError == "" || got.Text != "" {
		t.Fatalf("expected generation error only, got %+v", got)
	}
	if len(got.References) != 2 {
		t.Fatalf("references must survive generation failure, got %d", len(got.References))
	}
	if obs.generationFailures != 1 {
		t.Fatalf("expected one generation failure observation")
	}
	if len(store.messages) != 2 || store.messages[1].Content != got.GenerationError {
		t.Fatalf("expected failure recorded as assistant message, got %+v", store.messages)
	}
}

func TestQueryAnswerRecordsConversation(t *testing.T) {
	store := &conversationStoreFake{}
	uc, _ := newQueryFixture(&generatorFake{answer: " جواب "}, store, nil)

	got, err := uc.Answer(context.Background(), "سؤال", domain.SearchOptions{})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.ConversationID != "conv-new" {
		t.Fatalf("expected new conversation id, got %q", got.ConversationID)
	}
	if store.titleSeed != "سؤال" {
		t.Fatalf("unexpected title seed %q", store.titleSeed)
	}
	if len(store.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(store.messages))
	}
	if store.messages[0].Role != domain.RoleUser || store.messages[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected roles %+v", store.messages)
	}
	if store.messages[1].Content != "جواب" || len(store.messages[1].References) != 2 {
		t.Fatalf("unexpected assistant message %+v", store.messages[1])
	}
}

func TestQueryAnswerConversationFailureIsNotFatal(t *testing.T) {
	store := &conversationStoreFake{ensureErr: errors.New("db down")}
	uc, _ := newQueryFixture(&generatorFake{answer: "ok"}, store, nil)

	got, err := uc.Answer(context.Background(), "q", domain.SearchOptions{ConversationID: "conv-1"})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got.Text != "ok" || got.ConversationID != "conv-1" {
		t.Fatalf("unexpected answer %+v", got)
	}
}
