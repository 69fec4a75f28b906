package ports

import (
	"context"
	"io"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

// DocumentRepository persists and reads document state.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Exists(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus, errMessage string) error
	UpdateOverride(ctx context.Context, id string, status domain.DocumentStatus, linkedClientID string, tags []string) error
}

// RunOutcome is everything one pipeline run persists on completion.
type RunOutcome struct {
	DocumentID      string
	Status          domain.DocumentStatus
	ExtractedText   string
	LinkedClientID  string
	LinkedSessionID string
	Analysis        domain.AnalysisResult
	Scores          domain.ValidationScores
	Note            *domain.ProgressNote
}

// PipelineStore persists a completed run atomically. A failure here rolls
// everything back; the caller reverts the document to its pre-run status.
type PipelineStore interface {
	SaveOutcome(ctx context.Context, outcome RunOutcome) error
}

// AnalysisRepository reads immutable analyzer output. Writes happen only
// inside PipelineStore.SaveOutcome, in the same transaction as the document
// status and the note.
type AnalysisRepository interface {
	LatestByDocumentID(ctx context.Context, documentID string) (*domain.AnalysisResult, *domain.ValidationScores, error)
}

// RosterRepository reads the active client roster and the calendar sync.
type RosterRepository interface {
	ActiveClients(ctx context.Context) ([]domain.Client, error)
	GetClient(ctx context.Context, id string) (*domain.Client, error)
	AppointmentsBetween(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
}

// NoteRepository upserts progress notes keyed by source document.
type NoteRepository interface {
	UpsertBySourceDocument(ctx context.Context, note *domain.ProgressNote) error
	GetBySourceDocument(ctx context.Context, documentID string) (*domain.ProgressNote, error)
}

// ObjectStorage stores the original uploaded payloads.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue carries async reprocessing requests and audit events.
type MessageQueue interface {
	PublishReprocess(ctx context.Context, documentID string) error
	SubscribeReprocess(ctx context.Context, handler func(context.Context, domain.ReprocessJob) error) error
	PublishAudit(ctx context.Context, event domain.AuditEvent) error
}

// Extraction is extracted text plus the extractor's self-reported quality
// signal in [0,100].
type Extraction struct {
	Text  string
	Score int
}

// TextExtractor turns a stored payload into text. A failed extraction is a
// degraded run, not an aborted one: callers treat it as score 0 and continue.
type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (Extraction, error)
}

// Analysis is analyzer output plus its self-reported confidence in [0,100].
type Analysis struct {
	Result domain.AnalysisResult
	Score  int
}

// Analyzer produces the structured analysis for extracted text. Failures
// degrade confidence downstream, they never abort ingestion.
type Analyzer interface {
	Analyze(ctx context.Context, text, filenameHint string) (Analysis, error)
}

// ContentCipher seals note content before persistence and opens it on read.
type ContentCipher interface {
	Seal(plaintext string) (string, error)
	Open(ciphertext string) (string, error)
}
