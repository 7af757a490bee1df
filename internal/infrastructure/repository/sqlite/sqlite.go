// Package sqlite is the single-file corpus used by the CLI and MCP server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/repository/sqlstore"
)

// OpenDB opens (creating if needed) the database file at path with foreign
// keys enforced. A single connection serializes writers.
func OpenDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	q := url.Values{}
	q.Add("_pragma", "foreign_keys(1)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_time_format", "sqlite")

	db, err := sql.Open("sqlite", "file:"+path+"?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func Dialect() sqlstore.Dialect {
	return sqlstore.Dialect{Name: "sqlite"}
}

func NewDocumentRepository(db *sql.DB) *sqlstore.DocumentRepository {
	return sqlstore.NewDocumentRepository(db, Dialect())
}

func NewConversationRepository(db *sql.DB) *sqlstore.ConversationRepository {
	return sqlstore.NewConversationRepository(db, Dialect())
}

func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	return nil
}

// Embeddings are stored as pgvector text literals ("[0.1,0.2]").
const schemaDDL = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	size_bytes INTEGER NOT NULL DEFAULT 0,
	content TEXT NOT NULL DEFAULT '',
	line_count INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);

CREATE TABLE IF NOT EXISTS chunks (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	content TEXT NOT NULL,
	start_line INTEGER NOT NULL CHECK (start_line > 0),
	end_line INTEGER NOT NULL,
	embedding TEXT NOT NULL,
	embedding_model TEXT NOT NULL,
	embedding_dim INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL,
	CHECK (start_line <= end_line),
	UNIQUE (document_id, seq)
);

CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	message_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL,
	last_message_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS messages (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	references_json TEXT,
	created_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);
`
