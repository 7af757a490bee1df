package domain

import (
	"strings"
	"time"
)

type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Conversation struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	MessageCount  int       `json:"message_count"`
	CreatedAt     time.Time `json:"created_at"`
	LastMessageAt time.Time `json:"last_message_at"`
}

type ConversationMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	Role           MessageRole `json:"role"`
	Content        string      `json:"content"`
	References     []Reference `json:"references,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

const (
	DefaultConversationTitle = "محادثة جديدة"
	maxTitleRunes            = 40
)

// ConversationTitle derives a title from the first question.
func ConversationTitle(seed string) string {
	title := strings.Join(strings.Fields(seed), " ")
	if title == "" {
		return DefaultConversationTitle
	}
	runes := []rune(title)
	if len(runes) <= maxTitleRunes {
		return title
	}
	return strings.TrimSpace(string(runes[:maxTitleRunes])) + "…"
}
