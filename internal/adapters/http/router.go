package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/config"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/domain"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/core/ports"
	"github.com/hakimsalah2025/RAG-NEBRASSE-v01/internal/observability/metrics"
)

const (
	defaultConversationLimit = 50
	multipartOverhead        = 1 << 20
)

// Services are the inbound ports served over HTTP. Conversations and
// Metrics may be nil.
type Services struct {
	Ingestor      ports.DocumentIngestor
	Query         ports.DocumentQueryService
	Documents     ports.DocumentReader
	Remover       ports.DocumentRemover
	Conversations ports.ConversationReader
	Metrics       *metrics.HTTPServerMetrics
	// Health adds dependency details to /healthz.
	Health func() map[string]any
	Logger *slog.Logger
}

type Router struct {
	cfg config.Config
	svc Services
}

func NewRouter(cfg config.Config, svc Services) *Router {
	return &Router{cfg: cfg, svc: svc}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.svc.Metrics != nil {
		mux.Handle("GET /metrics", rt.svc.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/documents", rt.uploadDocument)
	mux.HandleFunc("GET /v1/documents", rt.listDocuments)
	mux.HandleFunc("GET /v1/documents/{id}", rt.getDocumentByID)
	mux.HandleFunc("DELETE /v1/documents/{id}", rt.deleteDocument)

	mux.HandleFunc("POST /v1/rag/query", rt.queryRAG)
	mux.HandleFunc("POST /v1/rag/search", rt.searchRAG)

	mux.HandleFunc("GET /v1/conversations", rt.listConversations)
	mux.HandleFunc("GET /v1/conversations/{id}", rt.getConversation)
	mux.HandleFunc("DELETE /v1/conversations/{id}", rt.deleteConversation)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait, rt.rejected)
	handler = newRateLimiter(rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst).middleware(handler, rt.rejected)
	if rt.svc.Metrics != nil {
		handler = rt.svc.Metrics.Middleware(handler)
	}
	handler = accessLogMiddleware(rt.svc.Logger, handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) rejected(reason string) {
	if rt.svc.Metrics != nil {
		rt.svc.Metrics.RecordRejected(reason)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{"status": "ok"}
	if rt.svc.Health != nil {
		for k, v := range rt.svc.Health() {
			payload[k] = v
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Ingestor == nil {
		writeError(w, r, http.StatusServiceUnavailable, errors.New("ingestion is not configured"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, rt.cfg.MaxUploadBytes+multipartOverhead)

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, errors.New("multipart field 'file' is required"))
		return
	}
	defer file.Close()

	doc, err := rt.svc.Ingestor.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := rt.svc.Documents.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) getDocumentByID(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.svc.Documents.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := rt.svc.Remover.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ragRequest struct {
	Question       string `json:"question" validate:"required,max=4000"`
	TopK           int    `json:"top_k" validate:"gte=0,lte=50"`
	ConversationID string `json:"conversation_id" validate:"omitempty,max=64"`
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[ragRequest](w, r)
	if !ok {
		return
	}

	start := time.Now()
	answer, err := rt.svc.Query.Answer(r.Context(), req.Question, rt.searchOptions(req))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rt.svc.Metrics != nil {
		rt.svc.Metrics.RecordRAGRequest("query", time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) searchRAG(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest[ragRequest](w, r)
	if !ok {
		return
	}

	start := time.Now()
	found, err := rt.svc.Query.Search(r.Context(), req.Question, rt.searchOptions(req))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if rt.svc.Metrics != nil {
		rt.svc.Metrics.RecordRAGRequest("search", time.Since(start))
	}
	writeJSON(w, http.StatusOK, found)
}

func (rt *Router) searchOptions(req ragRequest) domain.SearchOptions {
	topK := req.TopK
	if topK <= 0 {
		topK = rt.cfg.RAGTopK
	}
	return domain.SearchOptions{TopK: topK, ConversationID: req.ConversationID}
}

func (rt *Router) listConversations(w http.ResponseWriter, r *http.Request) {
	if !rt.conversationsEnabled(w, r) {
		return
	}
	limit := defaultConversationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, errors.New("limit must be a positive integer"))
			return
		}
		limit = n
	}

	conversations, err := rt.svc.Conversations.ListConversations(r.Context(), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversations": conversations})
}

func (rt *Router) getConversation(w http.ResponseWriter, r *http.Request) {
	if !rt.conversationsEnabled(w, r) {
		return
	}
	id := r.PathValue("id")
	messages, err := rt.svc.Conversations.ListMessages(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "messages": messages})
}

func (rt *Router) deleteConversation(w http.ResponseWriter, r *http.Request) {
	if !rt.conversationsEnabled(w, r) {
		return
	}
	if err := rt.svc.Conversations.DeleteConversation(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) conversationsEnabled(w http.ResponseWriter, r *http.Request) bool {
	if rt.svc.Conversations == nil {
		writeError(w, r, http.StatusNotFound, errors.New("conversations are not enabled"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, map[string]string{
		"error":      err.Error(),
		"request_id": requestIDFromContext(r.Context()),
	})
}

func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	writeError(w, r, status, err)
}
