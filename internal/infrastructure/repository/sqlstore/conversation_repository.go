package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

type ConversationRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewConversationRepository(db *sql.DB, dialect Dialect) *ConversationRepository {
	return &ConversationRepository{db: db, dialect: dialect}
}

// EnsureConversation returns the conversation with the given id, creating it
// (titled with titleSeed) when it does not exist. An empty id always creates.
func (r *ConversationRepository) EnsureConversation(ctx context.Context, conversationID, titleSeed string) (*domain.Conversation, error) {
	if conversationID == "" {
		conversationID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`
INSERT INTO conversations (id, title, message_count, created_at, last_message_at)
VALUES (?, ?, 0, ?, ?)
ON CONFLICT (id) DO NOTHING
`), conversationID, domain.ConversationTitle(titleSeed), now, now)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation insert: %w", err)
	}

	conv, err := r.getConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("ensure conversation select: %w", err)
	}
	return conv, nil
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, message *domain.ConversationMessage) error {
	if message.ID == "" {
		message.ID = uuid.NewString()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	var refs any
	if len(message.References) > 0 {
		raw, err := json.Marshal(message.References)
		if err != nil {
			return fmt.Errorf("marshal references: %w", err)
		}
		refs = string(raw)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append message tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, r.dialect.rebind(`
UPDATE conversations
SET message_count = message_count + 1, last_message_at = ?
WHERE id = ?
`), message.CreatedAt, message.ConversationID)
	if err != nil {
		return fmt.Errorf("bump conversation: %w", err)
	}
	if err := expectAffected(res, domain.ErrConversationNotFound, "append message", message.ConversationID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, r.dialect.rebind(`
INSERT INTO messages (id, conversation_id, role, content, references_json, created_at)
VALUES (?,?,?,?,?,?)
`), message.ID, message.ConversationID, string(message.Role), message.Content, refs, message.CreatedAt); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit append message tx: %w", err)
	}
	return nil
}

func (r *ConversationRepository) ListConversations(ctx context.Context, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`
SELECT id, title, message_count, created_at, last_message_at
FROM conversations
ORDER BY last_message_at DESC, id
LIMIT ?
`), limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Conversation, 0)
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(&conv.ID, &conv.Title, &conv.MessageCount, &conv.CreatedAt, &conv.LastMessageAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		out = append(out, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return out, nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID string) ([]domain.ConversationMessage, error) {
	if _, err := r.getConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`
SELECT id, conversation_id, role, content, references_json, created_at
FROM messages
WHERE conversation_id = ?
ORDER BY created_at, id
`), conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	out := make([]domain.ConversationMessage, 0)
	for rows.Next() {
		var msg domain.ConversationMessage
		var role string
		var refs sql.NullString
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &role, &msg.Content, &refs, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		msg.Role = domain.MessageRole(role)
		if refs.Valid && refs.String != "" {
			if err := json.Unmarshal([]byte(refs.String), &msg.References); err != nil {
				return nil, fmt.Errorf("unmarshal references: %w", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return out, nil
}

func (r *ConversationRepository) DeleteConversation(ctx context.Context, conversationID string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(`DELETE FROM conversations WHERE id = ?`), conversationID)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return expectAffected(res, domain.ErrConversationNotFound, "delete conversation", conversationID)
}

func (r *ConversationRepository) getConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`
SELECT id, title, message_count, created_at, last_message_at
FROM conversations
WHERE id = ?
`), id)

	var conv domain.Conversation
	if err := row.Scan(&conv.ID, &conv.Title, &conv.MessageCount, &conv.CreatedAt, &conv.LastMessageAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrConversationNotFound, "get conversation", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan conversation: %w", err)
	}
	return &conv, nil
}
