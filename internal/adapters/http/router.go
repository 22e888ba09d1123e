// Package httpadapter exposes the ingestion and query pipeline over HTTP.
// Callers identify themselves with the X-User-ID header; full authentication
// sits in front of this service.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jvanleeuwen/regelrag/internal/core/domain"
	"github.com/jvanleeuwen/regelrag/internal/core/ports"
	"github.com/jvanleeuwen/regelrag/internal/observability/metrics"
)

const (
	userIDHeader      = "X-User-ID"
	maxUploadBytes    = 64 << 20
	backpressureDelay = 100 * time.Millisecond
)

type Router struct {
	service string

	ingest    ports.DocumentIngestor
	query     ports.DocumentQueryService
	remover   ports.DocumentRemover
	documents ports.DocumentReader
	index     ports.VectorStore

	metrics *metrics.HTTPServerMetrics

	rateLimitRPS   float64
	rateLimitBurst int
	maxInFlight    int
}

type RouterDeps struct {
	Service   string
	Ingest    ports.DocumentIngestor
	Query     ports.DocumentQueryService
	Remover   ports.DocumentRemover
	Documents ports.DocumentReader
	Index     ports.VectorStore
	Metrics   *metrics.HTTPServerMetrics

	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

func NewRouter(deps RouterDeps) *Router {
	service := deps.Service
	if service == "" {
		service = "api"
	}
	return &Router{
		service:        service,
		ingest:         deps.Ingest,
		query:          deps.Query,
		remover:        deps.Remover,
		documents:      deps.Documents,
		index:          deps.Index,
		metrics:        deps.Metrics,
		rateLimitRPS:   deps.RateLimitRPS,
		rateLimitBurst: deps.RateLimitBurst,
		maxInFlight:    deps.MaxInFlight,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/documents", rt.documentsCollection)
	mux.HandleFunc("/v1/documents/", rt.documentByID)
	mux.HandleFunc("/v1/index/documents", rt.indexedDocuments)
	mux.HandleFunc("/v1/query", rt.answerQuery)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.maxInFlight, backpressureDelay)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) documentsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.uploadDocument(w, r)
	case http.MethodGet:
		rt.listDocuments(w, r)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	doc, err := rt.ingest.Upload(
		r.Context(),
		ownerID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		file,
	)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err))
		return
	}

	writeJSON(w, http.StatusAccepted, doc)
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	docs, err := rt.documents.ListByOwner(r.Context(), ownerID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err))
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) documentByID(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/documents/")
	if id == "" || strings.Contains(id, "/") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "document id is required"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		rt.getDocument(w, r, ownerID, id)
	case http.MethodDelete:
		rt.deleteDocument(w, r, ownerID, id)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request, ownerID int64, id string) {
	doc, err := rt.documents.GetByID(r.Context(), ownerID, id)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err))
		return
	}

	response := map[string]any{"document": doc}
	// Best effort; the document record is the authoritative part.
	if indexed, err := rt.index.CountChunks(r.Context(), ownerID, id); err == nil {
		response["indexed_chunks"] = indexed
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request, ownerID int64, id string) {
	if err := rt.remover.Remove(r.Context(), ownerID, id); err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "document_id": id})
}

func (rt *Router) indexedDocuments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	summaries, err := rt.index.ListDocuments(r.Context(), ownerID)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err))
		return
	}
	if summaries == nil {
		summaries = []domain.DocumentSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": summaries})
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	ownerID, ok := ownerFromRequest(w, r)
	if !ok {
		return
	}

	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	answer, err := rt.query.Answer(r.Context(), ownerID, req.Question, req.TopK)
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), errorBody(err))
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQuery(rt.service, len(answer.Sources), answer.Cached, wasVerified(answer), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func wasVerified(answer *domain.Answer) bool {
	for _, source := range answer.Sources {
		if source.Verdict != domain.VerdictNone {
			return true
		}
	}
	return false
}

func ownerFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get(userIDHeader))
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-User-ID header is required"})
		return 0, false
	}
	ownerID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || ownerID <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "X-User-ID must be a positive integer"})
		return 0, false
	}
	return ownerID, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
