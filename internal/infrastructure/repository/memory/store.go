// Package memory is an in-process corpus and conversation store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

type Store struct {
	mu            sync.RWMutex
	documents     map[string]domain.Document
	chunks        map[string][]domain.Chunk
	conversations map[string]domain.Conversation
	messages      map[string][]domain.ConversationMessage
}

func New() *Store {
	return &Store{
		documents:     make(map[string]domain.Document),
		chunks:        make(map[string][]domain.Chunk),
		conversations: make(map[string]domain.Conversation),
		messages:      make(map[string][]domain.ConversationMessage),
	}
}

func (s *Store) Create(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; ok {
		return fmt.Errorf("insert document: duplicate id %s", doc.ID)
	}
	s.documents[doc.ID] = *doc
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	doc.Content = ""
	return &doc, nil
}

func (s *Store) List(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		doc.Content = ""
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) UpdateStatus(_ context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document status", fmt.Errorf("id=%s", id))
	}
	doc.Status = status
	doc.Error = errMessage
	doc.UpdatedAt = time.Now().UTC()
	s.documents[id] = doc
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("id=%s", id))
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// ListChunks returns chunks of completed documents ordered by document
// creation time, then sequence.
func (s *Store) ListChunks(_ context.Context) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]domain.Document, 0, len(s.chunks))
	for id := range s.chunks {
		if doc, ok := s.documents[id]; ok && doc.Status == domain.StatusCompleted {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.Before(docs[j].CreatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	out := make([]domain.Chunk, 0)
	for _, doc := range docs {
		for _, c := range s.chunks[doc.ID] {
			c.DocumentName = doc.Name
			c.Embedding = append([]float32(nil), c.Embedding...)
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Store) CompleteIngestion(_ context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.documents[doc.ID]
	if !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "complete ingestion", fmt.Errorf("id=%s", doc.ID))
	}
	if existing := len(s.chunks[doc.ID]); existing > 0 {
		return domain.WrapError(domain.ErrIngestionConflict, "complete ingestion", fmt.Errorf("document %s already has %d chunks", doc.ID, existing))
	}

	copied := make([]domain.Chunk, len(chunks))
	copy(copied, chunks)
	sort.SliceStable(copied, func(i, j int) bool { return copied[i].Seq < copied[j].Seq })
	s.chunks[doc.ID] = copied

	stored.Content = doc.Content
	stored.LineCount = doc.LineCount
	stored.ChunkCount = len(chunks)
	stored.Status = domain.StatusCompleted
	stored.Error = ""
	stored.UpdatedAt = time.Now().UTC()
	s.documents[doc.ID] = stored
	return nil
}

func (s *Store) EnsureConversation(_ context.Context, conversationID, titleSeed string) (*domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	if conv, ok := s.conversations[conversationID]; ok {
		return &conv, nil
	}
	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:            conversationID,
		Title:         domain.ConversationTitle(titleSeed),
		CreatedAt:     now,
		LastMessageAt: now,
	}
	s.conversations[conversationID] = conv
	return &conv, nil
}

func (s *Store) AppendMessage(_ context.Context, message *domain.ConversationMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.conversations[message.ConversationID]
	if !ok {
		return domain.WrapError(domain.ErrConversationNotFound, "append message", fmt.Errorf("id=%s", message.ConversationID))
	}
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	s.messages[conv.ID] = append(s.messages[conv.ID], *message)
	conv.MessageCount++
	conv.LastMessageAt = message.CreatedAt
	s.conversations[conv.ID] = conv
	return nil
}

func (s *Store) ListConversations(_ context.Context, limit int) ([]domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageAt.Equal(out[j].LastMessageAt) {
			return out[i].LastMessageAt.After(out[j].LastMessageAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListMessages(_ context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return nil, domain.WrapError(domain.ErrConversationNotFound, "list messages", fmt.Errorf("id=%s", conversationID))
	}
	return append([]domain.ConversationMessage{}, s.messages[conversationID]...), nil
}

func (s *Store) DeleteConversation(_ context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[conversationID]; !ok {
		return domain.WrapError(domain.ErrConversationNotFound, "delete conversation", fmt.Errorf("id=%s", conversationID))
	}
	delete(s.conversations, conversationID)
	delete(s.messages, conversationID)
	return nil
}
