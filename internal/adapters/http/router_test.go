package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
)

type ingestFake struct {
	uploads int
	err     error
}

func (f *ingestFake) Upload(_ context.Context, filename, mimeType string, sizeBytes int64, clientIDHint string, body io.Reader) (domain.ProcessingResult, error) {
	if f.err != nil {
		return domain.ProcessingResult{}, f.err
	}
	if _, err := io.Copy(io.Discard, body); err != nil {
		return domain.ProcessingResult{}, err
	}
	f.uploads++
	return domain.ProcessingResult{
		DocumentID: "doc-1",
		Success:    true,
		Status:     domain.StatusAutoLinked,
		Confidence: 0.95,
	}, nil
}

type docsFake struct {
	doc    *domain.Document
	exists bool
}

func (f *docsFake) Create(context.Context, *domain.Document) error { return nil }

func (f *docsFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	if f.doc == nil {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	return f.doc, nil
}

func (f *docsFake) Exists(context.Context, string) (bool, error) { return f.exists, nil }

func (f *docsFake) UpdateStatus(context.Context, string, domain.DocumentStatus, string) error {
	return nil
}

func (f *docsFake) UpdateOverride(context.Context, string, domain.DocumentStatus, string, []string) error {
	return nil
}

type analysesFake struct {
	analysis *domain.AnalysisResult
	scores   *domain.ValidationScores
}

func (f *analysesFake) LatestByDocumentID(context.Context, string) (*domain.AnalysisResult, *domain.ValidationScores, error) {
	return f.analysis, f.scores, nil
}

type resolverFake struct {
	overridden *ports.OverridePatch
	err        error
}

func (f *resolverFake) Override(_ context.Context, documentID string, patch ports.OverridePatch) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.overridden = &patch
	return &domain.Document{ID: documentID, Status: domain.StatusAutoLinked}, nil
}

func (f *resolverFake) CreateNote(_ context.Context, documentID, clientID string, sessionDate time.Time) (*domain.ProgressNote, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.ProgressNote{
		ID:               "note-1",
		ClientID:         clientID,
		SessionDate:      &sessionDate,
		SourceDocumentID: documentID,
	}, nil
}

type queueFake struct {
	reprocessed []string
}

func (f *queueFake) PublishReprocess(_ context.Context, documentID string) error {
	f.reprocessed = append(f.reprocessed, documentID)
	return nil
}

func (f *queueFake) SubscribeReprocess(context.Context, func(context.Context, domain.ReprocessJob) error) error {
	return nil
}

func (f *queueFake) PublishAudit(context.Context, domain.AuditEvent) error { return nil }

type routerFixture struct {
	ingest   *ingestFake
	docs     *docsFake
	resolver *resolverFake
	queue    *queueFake
	handler  http.Handler
}

func newRouterFixture() *routerFixture {
	f := &routerFixture{
		ingest:   &ingestFake{},
		docs:     &docsFake{},
		resolver: &resolverFake{},
		queue:    &queueFake{},
	}
	f.handler = NewRouter(
		f.ingest, f.docs, &analysesFake{}, f.resolver, f.queue,
		nil, 1<<20, 2,
	).Handler()
	return f
}

func multipartBody(t *testing.T, field string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte(content)); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	f := newRouterFixture()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
}

func TestUploadDocumentSuccess(t *testing.T) {
	f := newRouterFixture()
	body, contentType := multipartBody(t, "file", map[string]string{"notes.txt": "hello"})

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var result domain.ProcessingResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.DocumentID != "doc-1" || !result.Success {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestUploadDocumentMissingFileField(t *testing.T) {
	f := newRouterFixture()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadDocumentTooLargeBody(t *testing.T) {
	f := newRouterFixture()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", bytes.NewReader(make([]byte, 64)))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	req.ContentLength = 200 << 20
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
	if f.ingest.uploads != 0 {
		t.Fatal("expected no ingest call for oversized request")
	}
}

func TestUploadDocumentMapsDomainErrors(t *testing.T) {
	f := newRouterFixture()
	f.ingest.err = domain.WrapError(domain.ErrUnsupportedFileType, "upload", fmt.Errorf("mime video/mp4"))

	body, contentType := multipartBody(t, "file", map[string]string{"clip.mp4": "xxxx"})
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestProcessBatchPartialResults(t *testing.T) {
	f := newRouterFixture()
	body, contentType := multipartBody(t, "files", map[string]string{
		"a.txt": "alpha",
		"b.txt": "beta",
		"c.txt": "gamma",
	})

	req := httptest.NewRequest(http.MethodPost, "/documents/process-batch", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}

	var batch batchResponse
	if err := json.NewDecoder(res.Body).Decode(&batch); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if batch.Processed != 3 || batch.Successful != 3 {
		t.Fatalf("expected 3/3 batch, got %+v", batch)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	f := newRouterFixture()
	req := httptest.NewRequest(http.MethodGet, "/documents/missing", nil)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestGetDocumentIncludesLatestAnalysis(t *testing.T) {
	f := newRouterFixture()
	f.docs.doc = &domain.Document{ID: "doc-1", Status: domain.StatusAutoLinked}

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp documentResponse
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Document == nil || resp.Document.ID != "doc-1" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOverrideDocument(t *testing.T) {
	f := newRouterFixture()
	payload := `{"status":"auto_linked","linkedClientId":"c1","tags":["reviewed"]}`

	req := httptest.NewRequest(http.MethodPatch, "/documents/doc-1", strings.NewReader(payload))
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	patch := f.resolver.overridden
	if patch == nil || patch.Status == nil || *patch.Status != domain.StatusAutoLinked {
		t.Fatalf("expected status patch, got %+v", patch)
	}
	if patch.LinkedClientID == nil || *patch.LinkedClientID != "c1" {
		t.Fatalf("expected linked client patch, got %+v", patch)
	}
}

func TestOverrideDocumentInvalidTransition(t *testing.T) {
	f := newRouterFixture()
	f.resolver.err = domain.WrapError(domain.ErrInvalidTransition, "override", fmt.Errorf("scored -> rejected"))

	req := httptest.NewRequest(http.MethodPatch, "/documents/doc-1", strings.NewReader(`{"status":"rejected"}`))
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCreateNoteValidatesSessionDate(t *testing.T) {
	f := newRouterFixture()

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/create-note",
		strings.NewReader(`{"clientId":"c1","sessionDate":"March 10"}`))
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCreateNoteSuccess(t *testing.T) {
	f := newRouterFixture()

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/create-note",
		strings.NewReader(`{"clientId":"c1","sessionDate":"2025-03-10"}`))
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	var note domain.ProgressNote
	if err := json.NewDecoder(res.Body).Decode(&note); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if note.ClientID != "c1" || note.SourceDocumentID != "doc-1" {
		t.Fatalf("unexpected note: %+v", note)
	}
}

func TestReprocessQueuesExistingDocument(t *testing.T) {
	f := newRouterFixture()
	f.docs.exists = true

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/reprocess", nil)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", res.Code)
	}
	if len(f.queue.reprocessed) != 1 || f.queue.reprocessed[0] != "doc-1" {
		t.Fatalf("expected doc-1 queued, got %v", f.queue.reprocessed)
	}
}

func TestReprocessUnknownDocument(t *testing.T) {
	f := newRouterFixture()

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/reprocess", nil)
	res := httptest.NewRecorder()
	f.handler.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
	if len(f.queue.reprocessed) != 0 {
		t.Fatal("expected nothing queued for unknown document")
	}
}
