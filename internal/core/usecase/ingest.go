package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
)

// DefaultMaxUploadBytes caps a single upload at 50MB.
const DefaultMaxUploadBytes = 50 << 20

// allowedMimeTypes is the upload allow-list. Anything else is rejected
// before a document row exists.
var allowedMimeTypes = map[string]bool{
	"text/plain":      true,
	"text/markdown":   true,
	"application/pdf": true,
	"application/rtf": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
}

var extensionMimeTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".pdf":  "application/pdf",
	".rtf":  "application/rtf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// IngestDocumentUseCase accepts an upload, persists the original payload, and
// runs the pipeline synchronously so the caller gets a full ProcessingResult.
type IngestDocumentUseCase struct {
	docs           ports.DocumentRepository
	storage        ports.ObjectStorage
	processor      ports.DocumentProcessor
	maxUploadBytes int64
	now            func() time.Time
}

func NewIngestDocumentUseCase(
	docs ports.DocumentRepository,
	storage ports.ObjectStorage,
	processor ports.DocumentProcessor,
	maxUploadBytes int64,
) *IngestDocumentUseCase {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &IngestDocumentUseCase{
		docs:           docs,
		storage:        storage,
		processor:      processor,
		maxUploadBytes: maxUploadBytes,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithClock fixes the clock, for deterministic tests.
func (uc *IngestDocumentUseCase) WithClock(now func() time.Time) *IngestDocumentUseCase {
	uc.now = now
	return uc
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	filename, mimeType string,
	sizeBytes int64,
	clientIDHint string,
	body io.Reader,
) (domain.ProcessingResult, error) {
	resolvedMime, err := uc.validate(filename, mimeType, sizeBytes)
	if err != nil {
		return domain.ProcessingResult{}, err
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := uc.now()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return domain.ProcessingResult{}, fmt.Errorf("save upload payload: %w", err)
	}

	doc := &domain.Document{
		ID:           id,
		Filename:     filename,
		MimeType:     resolvedMime,
		SizeBytes:    sizeBytes,
		StoragePath:  storageKey,
		Status:       domain.StatusPending,
		ClientIDHint: clientIDHint,
		Tags:         []string{},
		UploadedAt:   now,
		UpdatedAt:    now,
	}
	if err := uc.docs.Create(ctx, doc); err != nil {
		return domain.ProcessingResult{}, domain.WrapError(domain.ErrPersistence, "create document", err)
	}

	return uc.processor.ProcessByID(ctx, doc.ID)
}

func (uc *IngestDocumentUseCase) validate(filename, mimeType string, sizeBytes int64) (string, error) {
	if sizeBytes > uc.maxUploadBytes {
		return "", domain.WrapError(domain.ErrFileTooLarge, "validate upload",
			fmt.Errorf("%d bytes exceeds limit of %d", sizeBytes, uc.maxUploadBytes))
	}

	resolved := normalizeMimeType(mimeType, filename)
	if !allowedMimeTypes[resolved] {
		return "", domain.WrapError(domain.ErrUnsupportedFileType, "validate upload",
			fmt.Errorf("mime type %q", mimeType))
	}
	return resolved, nil
}

// normalizeMimeType strips parameters and falls back to the file extension
// for clients that upload everything as octet-stream.
func normalizeMimeType(mimeType, filename string) string {
	normalized := strings.ToLower(strings.TrimSpace(mimeType))
	if idx := strings.Index(normalized, ";"); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	if allowedMimeTypes[normalized] {
		return normalized
	}
	if byExt, ok := extensionMimeTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return byExt
	}
	return normalized
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
