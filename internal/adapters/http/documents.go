package httpadapter

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
)

// multipartMemoryLimit bounds the in-memory part of multipart parsing; larger
// parts spill to temp files.
const multipartMemoryLimit = 32 << 20

func (rt *Router) uploadDocument(w http.ResponseWriter, r *http.Request) {
	if rt.maxUploadBytes > 0 && r.ContentLength > rt.maxUploadBytes+multipartMemoryLimit {
		writeError(w, domain.WrapError(domain.ErrFileTooLarge, "upload",
			fmt.Errorf("request body %d bytes", r.ContentLength)))
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "upload",
			fmt.Errorf("multipart field 'file' is required")))
		return
	}
	defer file.Close()

	clientIDHint := strings.TrimSpace(r.FormValue("clientId"))

	result, err := rt.ingest.Upload(
		r.Context(),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		clientIDHint,
		file,
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type batchResponse struct {
	Processed  int                       `json:"processed"`
	Successful int                       `json:"successful"`
	Results    []domain.ProcessingResult `json:"results"`
}

// processBatch always returns partial results: one file failing never fails
// the whole batch.
func (rt *Router) processBatch(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "parse batch", err))
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		files = r.MultipartForm.File["file"]
	}
	if len(files) == 0 {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "process batch",
			fmt.Errorf("multipart field 'files' is required")))
		return
	}
	clientIDHint := strings.TrimSpace(r.FormValue("clientId"))

	results := make([]domain.ProcessingResult, len(files))
	sem := make(chan struct{}, rt.batchWorkers)
	var wg sync.WaitGroup
	for i, header := range files {
		wg.Add(1)
		go func(idx int, fh *multipart.FileHeader) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[idx] = rt.uploadOne(r, fh, clientIDHint)
		}(i, header)
	}
	wg.Wait()

	response := batchResponse{Processed: len(results), Results: results}
	for _, res := range results {
		if res.Success {
			response.Successful++
		}
	}
	writeJSON(w, http.StatusOK, response)
}

func (rt *Router) uploadOne(r *http.Request, fh *multipart.FileHeader, clientIDHint string) domain.ProcessingResult {
	file, err := fh.Open()
	if err != nil {
		return failedResult(fh.Filename, err)
	}
	defer file.Close()

	result, err := rt.ingest.Upload(
		r.Context(),
		fh.Filename,
		fh.Header.Get("Content-Type"),
		fh.Size,
		clientIDHint,
		file,
	)
	if err != nil {
		return failedResult(fh.Filename, err)
	}
	return result
}

func failedResult(filename string, err error) domain.ProcessingResult {
	return domain.ProcessingResult{
		Success:           false,
		Status:            domain.StatusFailed,
		NeedsManualReview: true,
		Error:             fmt.Sprintf("%s: %v", filename, err),
	}
}

type documentResponse struct {
	Document *domain.Document         `json:"document"`
	Analysis *domain.AnalysisResult   `json:"analysis,omitempty"`
	Scores   *domain.ValidationScores `json:"validationDetails,omitempty"`
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	doc, err := rt.docs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	analysis, scores, err := rt.analyses.LatestByDocumentID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, documentResponse{Document: doc, Analysis: analysis, Scores: scores})
}

type overrideRequest struct {
	Status         *string  `json:"status"`
	LinkedClientID *string  `json:"linkedClientId"`
	Tags           []string `json:"tags"`
}

func (rt *Router) overrideDocument(w http.ResponseWriter, r *http.Request) {
	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode override", err))
		return
	}

	patch := ports.OverridePatch{
		LinkedClientID: req.LinkedClientID,
		Tags:           req.Tags,
	}
	if req.Status != nil {
		status := domain.DocumentStatus(*req.Status)
		patch.Status = &status
	}

	doc, err := rt.resolver.Override(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type createNoteRequest struct {
	ClientID    string `json:"clientId"`
	SessionDate string `json:"sessionDate"`
}

func (rt *Router) createNote(w http.ResponseWriter, r *http.Request) {
	var req createNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "decode create-note", err))
		return
	}
	if strings.TrimSpace(req.ClientID) == "" {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "create note",
			fmt.Errorf("clientId is required")))
		return
	}
	sessionDate, err := time.Parse("2006-01-02", req.SessionDate)
	if err != nil {
		writeError(w, domain.WrapError(domain.ErrInvalidInput, "create note",
			fmt.Errorf("sessionDate must be YYYY-MM-DD: %w", err)))
		return
	}

	note, err := rt.resolver.CreateNote(r.Context(), r.PathValue("id"), req.ClientID, sessionDate)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

func (rt *Router) reprocessDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	exists, err := rt.docs.Exists(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !exists {
		writeError(w, domain.WrapError(domain.ErrDocumentNotFound, "reprocess", fmt.Errorf("id=%s", id)))
		return
	}

	if err := rt.queue.PublishReprocess(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"documentId": id, "status": "queued"})
}
