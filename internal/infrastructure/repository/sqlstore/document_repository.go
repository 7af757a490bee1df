package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
)

// DocumentRepository stores documents and their chunks.
type DocumentRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewDocumentRepository(db *sql.DB, dialect Dialect) *DocumentRepository {
	return &DocumentRepository{db: db, dialect: dialect}
}

const documentColumns = `id, name, mime_type, storage_path, size_bytes, line_count, chunk_count, status, error_message, created_at, updated_at`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, r.dialect.rebind(`
INSERT INTO documents (
	id, name, mime_type, storage_path, size_bytes, content, line_count, chunk_count, status, error_message, created_at, updated_at
) VALUES (?,?,?,?,?,?,?,?,?,?,?,?)
`),
		doc.ID, doc.Name, doc.MimeType, doc.StoragePath, doc.SizeBytes, doc.Content, doc.LineCount, doc.ChunkCount,
		string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.rebind(`
SELECT `+documentColumns+`
FROM documents
WHERE id = ?
`), id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+documentColumns+`
FROM documents
ORDER BY created_at DESC, id
`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(`
UPDATE documents
SET status = ?, error_message = ?, updated_at = ?
WHERE id = ?
`), string(status), errMessage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return expectAffected(res, domain.ErrDocumentNotFound, "update document status", id)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.dialect.rebind(`DELETE FROM documents WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return expectAffected(res, domain.ErrDocumentNotFound, "delete document", id)
}

// ListChunks returns the chunks of completed documents in ingestion order.
func (r *DocumentRepository) ListChunks(ctx context.Context) ([]domain.Chunk, error) {
	rows, err := r.db.QueryContext(ctx, r.dialect.rebind(`
SELECT c.id, c.document_id, d.name, c.seq, c.content, c.start_line, c.end_line, c.embedding, c.embedding_model, c.embedding_dim, c.created_at
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE d.status = ?
ORDER BY d.created_at, d.id, c.seq
`), string(domain.StatusCompleted))
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Chunk, 0)
	for rows.Next() {
		var c domain.Chunk
		var vec pgvector.Vector
		if err := rows.Scan(
			&c.ID, &c.DocumentID, &c.DocumentName, &c.Seq, &c.Content, &c.StartLine, &c.EndLine,
			&vec, &c.EmbeddingModel, &c.EmbeddingDim, &c.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		c.Embedding = vec.Slice()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}
	return out, nil
}

// CompleteIngestion writes all chunks and marks the document completed in a
// single transaction.
func (r *DocumentRepository) CompleteIngestion(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingestion tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if r.dialect.LockDocument != nil {
		if err := r.dialect.LockDocument(ctx, tx, doc.ID); err != nil {
			return fmt.Errorf("lock document: %w", err)
		}
	}

	var existing int
	if err := tx.QueryRowContext(ctx, r.dialect.rebind(`SELECT COUNT(*) FROM chunks WHERE document_id = ?`), doc.ID).Scan(&existing); err != nil {
		return fmt.Errorf("count existing chunks: %w", err)
	}
	if existing > 0 {
		return domain.WrapError(domain.ErrIngestionConflict, "complete ingestion", fmt.Errorf("document %s already has %d chunks", doc.ID, existing))
	}

	insert := r.dialect.rebind(`
INSERT INTO chunks (
	id, document_id, seq, content, start_line, end_line, embedding, embedding_model, embedding_dim, created_at
) VALUES (?,?,?,?,?,?,?,?,?,?)
`)
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, insert,
			c.ID, doc.ID, c.Seq, c.Content, c.StartLine, c.EndLine,
			pgvector.NewVector(c.Embedding), c.EmbeddingModel, c.EmbeddingDim, c.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert chunk %d: %w", c.Seq, err)
		}
	}

	res, err := tx.ExecContext(ctx, r.dialect.rebind(`
UPDATE documents
SET content = ?, line_count = ?, chunk_count = ?, status = ?, error_message = '', updated_at = ?
WHERE id = ?
`), doc.Content, doc.LineCount, len(chunks), string(domain.StatusCompleted), time.Now().UTC(), doc.ID)
	if err != nil {
		return fmt.Errorf("complete document: %w", err)
	}
	if err := expectAffected(res, domain.ErrDocumentNotFound, "complete ingestion", doc.ID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingestion tx: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	if err := row.Scan(
		&doc.ID, &doc.Name, &doc.MimeType, &doc.StoragePath, &doc.SizeBytes, &doc.LineCount, &doc.ChunkCount,
		&status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func expectAffected(res sql.Result, kind error, operation, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(kind, operation, fmt.Errorf("id=%s", id))
	}
	return nil
}
