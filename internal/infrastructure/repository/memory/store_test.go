package memory

import (
	"context"
	"testing"
	"time"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

func TestCompleteIngestionIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	doc := &domain.Document{ID: "d", Name: "book", Status: domain.StatusPending, CreatedAt: time.Now()}
	if err := s.Create(ctx, doc); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	chunks, _ := s.ListChunks(ctx)
	if len(chunks) != 0 {
		t.Fatalf("pending document must not expose chunks")
	}

	doc.LineCount = 1
	in := []domain.Chunk{{ID: "c1", DocumentID: "d", Seq: 1, StartLine: 1, EndLine: 1, Embedding: []float32{1}}, {ID: "c0", DocumentID: "d", Seq: 0, StartLine: 1, EndLine: 1, Embedding: []float32{2}}}
	if err := s.CompleteIngestion(ctx, doc, in); err != nil {
		t.Fatalf("CompleteIngestion() error = %v", err)
	}
	if err := s.CompleteIngestion(ctx, doc, in); !domain.IsKind(err, domain.ErrIngestionConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	chunks, _ = s.ListChunks(ctx)
	if len(chunks) != 2 || chunks[0].ID != "c0" || chunks[0].DocumentName != "book" {
		t.Fatalf("unexpected chunks %+v", chunks)
	}
	chunks[0].Embedding[0] = 99
	again, _ := s.ListChunks(ctx)
	if again[0].Embedding[0] != 2 {
		t.Fatalf("stored embedding was mutated through a returned chunk")
	}

	got, _ := s.GetByID(ctx, "d")
	if got.Status != domain.StatusCompleted || got.ChunkCount != 2 {
		t.Fatalf("unexpected document %+v", got)
	}

	if err := s.Delete(ctx, "d"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	chunks, _ = s.ListChunks(ctx)
	if len(chunks) != 0 {
		t.Fatalf("expected chunks removed with document")
	}
}

func TestConversationNotFound(t *testing.T) {
	s := New()
	ctx := context.Background()
	if _, err := s.ListMessages(ctx, "x"); !domain.IsKind(err, domain.ErrConversationNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	conv, _ := s.EnsureConversation(ctx, "", "")
	if conv.Title != domain.DefaultConversationTitle {
		t.Fatalf("unexpected title %q", conv.Title)
	}
	if err := s.AppendMessage(ctx, &domain.ConversationMessage{ConversationID: conv.ID, Role: domain.RoleUser, Content: "q"}); err != nil {
		t.Fatalf("AppendMessage() error = %v", err)
	}
	list, _ := s.ListConversations(ctx, 0)
	if len(list) != 1 || list[0].MessageCount != 1 {
		t.Fatalf("unexpected conversations %+v", list)
	}
}
