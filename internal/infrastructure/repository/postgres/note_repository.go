package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

type NoteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

func (r *NoteRepository) UpsertBySourceDocument(ctx context.Context, note *domain.ProgressNote) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin note tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := upsertNote(ctx, tx, note, time.Now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit note tx: %w", err)
	}
	return nil
}

func (r *NoteRepository) GetBySourceDocument(ctx context.Context, documentID string) (*domain.ProgressNote, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, client_id, session_id, content, session_date, needs_manual_review,
	source_document_id, created_at, updated_at
FROM progress_notes
WHERE source_document_id = $1
`, documentID)

	var note domain.ProgressNote
	var sessionID sql.NullString
	var sessionDate sql.NullTime

	err := row.Scan(
		&note.ID, &note.ClientID, &sessionID, &note.Content, &sessionDate,
		&note.NeedsManualReview, &note.SourceDocumentID, &note.CreatedAt, &note.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get note", fmt.Errorf("source document=%s", documentID))
		}
		return nil, fmt.Errorf("scan progress note: %w", err)
	}

	note.SessionID = sessionID.String
	if sessionDate.Valid {
		d := sessionDate.Time
		note.SessionDate = &d
	}
	return &note, nil
}
