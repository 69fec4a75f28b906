package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
)

// OverrideUseCase applies reviewer decisions: the PATCH override and the
// explicit create-note resolution. These always win over automatic
// recomputation; a later pipeline re-run starts from the overridden state.
type OverrideUseCase struct {
	docs   ports.DocumentRepository
	roster ports.RosterRepository
	notes  ports.NoteRepository
	cipher ports.ContentCipher
	queue  ports.MessageQueue
	now    func() time.Time
}

func NewOverrideUseCase(
	docs ports.DocumentRepository,
	roster ports.RosterRepository,
	notes ports.NoteRepository,
	cipher ports.ContentCipher,
	queue ports.MessageQueue,
) *OverrideUseCase {
	return &OverrideUseCase{
		docs:   docs,
		roster: roster,
		notes:  notes,
		cipher: cipher,
		queue:  queue,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (uc *OverrideUseCase) Override(ctx context.Context, documentID string, patch ports.OverridePatch) (*domain.Document, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	status := doc.Status
	if patch.Status != nil {
		if !CanOverride(doc.Status, *patch.Status) {
			return nil, domain.WrapError(domain.ErrInvalidTransition, "override",
				fmt.Errorf("%s -> %s", doc.Status, *patch.Status))
		}
		status = *patch.Status
	}

	linkedClientID := doc.LinkedClientID
	if patch.LinkedClientID != nil {
		linkedClientID = *patch.LinkedClientID
		if linkedClientID != "" {
			if _, err := uc.roster.GetClient(ctx, linkedClientID); err != nil {
				return nil, err
			}
		}
	}
	if status == domain.StatusAutoLinked && linkedClientID == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "override",
			fmt.Errorf("auto_linked requires a linked client"))
	}

	tags := doc.Tags
	if patch.Tags != nil {
		tags = patch.Tags
	}

	if err := uc.docs.UpdateOverride(ctx, documentID, status, linkedClientID, tags); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "apply override", err)
	}

	doc.Status = status
	doc.LinkedClientID = linkedClientID
	doc.Tags = tags
	doc.UpdatedAt = uc.now()

	if patch.Status != nil {
		uc.audit(ctx, documentID, status)
	}
	return doc, nil
}

// CreateNote is the explicit manual-review resolution: the reviewer names the
// client and session date, and the note for this source document is created
// or updated in place.
func (uc *OverrideUseCase) CreateNote(ctx context.Context, documentID, clientID string, sessionDate time.Time) (*domain.ProgressNote, error) {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.roster.GetClient(ctx, clientID); err != nil {
		return nil, err
	}

	content := doc.ExtractedText
	sealed, err := uc.cipher.Seal(content)
	if err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "seal note content", err)
	}

	day := time.Date(sessionDate.Year(), sessionDate.Month(), sessionDate.Day(), 0, 0, 0, 0, time.UTC)
	note := &domain.ProgressNote{
		ClientID:          clientID,
		Content:           sealed,
		SessionDate:       &day,
		NeedsManualReview: false,
		SourceDocumentID:  documentID,
	}
	if err := uc.notes.UpsertBySourceDocument(ctx, note); err != nil {
		return nil, domain.WrapError(domain.ErrPersistence, "upsert note", err)
	}

	if doc.Status == domain.StatusNeedsReview {
		if err := uc.docs.UpdateOverride(ctx, documentID, domain.StatusAutoLinked, clientID, doc.Tags); err != nil {
			return nil, domain.WrapError(domain.ErrPersistence, "link document", err)
		}
		uc.audit(ctx, documentID, domain.StatusAutoLinked)
	}

	note.Content = content
	return note, nil
}

func (uc *OverrideUseCase) audit(ctx context.Context, documentID string, outcome domain.DocumentStatus) {
	if err := uc.queue.PublishAudit(ctx, domain.AuditEvent{DocumentID: documentID, Outcome: outcome}); err != nil {
		slog.Warn("audit_publish_failed", "document_id", documentID, "error", err)
	}
}
