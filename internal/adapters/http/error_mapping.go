package httpadapter

import (
	"net/http"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/infrastructure/resilience"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrDocumentNotFound),
		domain.IsKind(err, domain.ErrConversationNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrIngestionConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable),
		domain.IsKind(err, domain.ErrTemporary),
		resilience.IsCircuitOpen(err):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrGenerationFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
