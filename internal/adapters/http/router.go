package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/observability/metrics"
)

// Router exposes the canonical document-ingestion surface. Every consumer,
// web or mobile, gets the same ProcessingResult schema and the same state
// machine; there are no per-surface variants.
type Router struct {
	ingest         ports.DocumentIngestor
	docs           ports.DocumentRepository
	analyses       ports.AnalysisRepository
	resolver       ports.ReviewResolver
	queue          ports.MessageQueue
	metrics        *metrics.HTTPServerMetrics
	maxUploadBytes int64
	batchWorkers   int
}

func NewRouter(
	ingest ports.DocumentIngestor,
	docs ports.DocumentRepository,
	analyses ports.AnalysisRepository,
	resolver ports.ReviewResolver,
	queue ports.MessageQueue,
	httpMetrics *metrics.HTTPServerMetrics,
	maxUploadBytes int64,
	batchWorkers int,
) *Router {
	if batchWorkers <= 0 {
		batchWorkers = 4
	}
	return &Router{
		ingest:         ingest,
		docs:           docs,
		analyses:       analyses,
		resolver:       resolver,
		queue:          queue,
		metrics:        httpMetrics,
		maxUploadBytes: maxUploadBytes,
		batchWorkers:   batchWorkers,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /documents/upload", rt.uploadDocument)
	mux.HandleFunc("POST /documents/process-batch", rt.processBatch)
	mux.HandleFunc("GET /documents/{id}", rt.getDocument)
	mux.HandleFunc("PATCH /documents/{id}", rt.overrideDocument)
	mux.HandleFunc("POST /documents/{id}/create-note", rt.createNote)
	mux.HandleFunc("POST /documents/{id}/reprocess", rt.reprocessDocument)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	handler := http.Handler(mux)
	handler = metricsMiddleware(rt.metrics, handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}
