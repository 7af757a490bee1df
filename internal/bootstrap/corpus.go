package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/repository/memory"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/repository/postgres"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/repository/sqlite"
)

const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// Corpus is an opened corpus backend with its conversation store.
type Corpus struct {
	Backend       string
	Store         ports.CorpusStore
	Conversations ports.ConversationStore
	Close         func()
}

// ParseCorpusDSN maps a DSN to a backend and the location that backend opens.
func ParseCorpusDSN(dsn string) (backend, location string, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "memory://" || dsn == "memory":
		return BackendMemory, "", nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return BackendPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(strings.TrimPrefix(dsn, "sqlite:"), "//")
		if path == "" {
			return "", "", domain.WrapError(domain.ErrInvalidInput, "parse corpus dsn", errors.New("sqlite path is empty"))
		}
		return BackendSQLite, path, nil
	case strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"):
		return BackendSQLite, dsn, nil
	default:
		return "", "", domain.WrapError(domain.ErrInvalidInput, "parse corpus dsn", fmt.Errorf("unsupported corpus dsn %q", dsn))
	}
}

// OpenCorpus opens the backend named by dsn and makes sure its schema exists.
func OpenCorpus(ctx context.Context, dsn string) (*Corpus, error) {
	backend, location, err := ParseCorpusDSN(dsn)
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendMemory:
		store := memory.New()
		return &Corpus{Backend: backend, Store: store, Conversations: store, Close: func() {}}, nil
	case BackendPostgres:
		db, err := postgres.OpenDB(location)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return sqlCorpus(backend, db, postgres.NewDocumentRepository(db), postgres.NewConversationRepository(db)), nil
	default:
		db, err := sqlite.OpenDB(location)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := sqlite.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return sqlCorpus(backend, db, sqlite.NewDocumentRepository(db), sqlite.NewConversationRepository(db)), nil
	}
}

func sqlCorpus(backend string, db *sql.DB, store ports.CorpusStore, conversations ports.ConversationStore) *Corpus {
	return &Corpus{
		Backend:       backend,
		Store:         store,
		Conversations: conversations,
		Close:         func() { _ = db.Close() },
	}
}
