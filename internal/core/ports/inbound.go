package ports

import (
	"context"
	"io"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

// DocumentIngestor accepts an upload, validates it, and runs the pipeline.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType string, sizeBytes int64, clientIDHint string, body io.Reader) (domain.ProcessingResult, error)
}

// DocumentProcessor re-runs the full pipeline for a stored document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) (domain.ProcessingResult, error)
}

// DocumentReader is the read model for document state.
type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// OverridePatch carries the reviewer-editable fields; nil means unchanged.
type OverridePatch struct {
	Status         *domain.DocumentStatus
	LinkedClientID *string
	Tags           []string
}

// ReviewResolver applies human review decisions. These are the only
// human-initiated transitions and always win over automatic recomputation.
type ReviewResolver interface {
	Override(ctx context.Context, documentID string, patch OverridePatch) (*domain.Document, error)
	CreateNote(ctx context.Context, documentID, clientID string, sessionDate time.Time) (*domain.ProgressNote, error)
}
