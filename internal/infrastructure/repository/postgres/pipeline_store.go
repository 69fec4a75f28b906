package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/ports"
)

// PipelineStore writes a completed pipeline run in one transaction: the
// document's final state, the immutable analysis attempt, and the idempotent
// progress-note upsert. Any failure rolls the whole run back.
type PipelineStore struct {
	db *sql.DB
}

func NewPipelineStore(db *sql.DB) *PipelineStore {
	return &PipelineStore{db: db}
}

func (s *PipelineStore) SaveOutcome(ctx context.Context, outcome ports.RunOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin outcome tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()

	if err := updateDocumentRun(ctx, tx, outcome, now); err != nil {
		return err
	}
	if err := insertAnalysis(ctx, tx, outcome, now); err != nil {
		return err
	}
	if outcome.Note != nil {
		if err := upsertNote(ctx, tx, outcome.Note, now); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit outcome tx: %w", err)
	}
	return nil
}

func updateDocumentRun(ctx context.Context, tx *sql.Tx, outcome ports.RunOutcome, now time.Time) error {
	res, err := tx.ExecContext(ctx, `
UPDATE documents
SET status = $2, extracted_text = $3, linked_client_id = NULLIF($4, ''),
	linked_session_id = NULLIF($5, ''), error_message = '', updated_at = $6
WHERE id = $1
`, outcome.DocumentID, string(outcome.Status), outcome.ExtractedText,
		outcome.LinkedClientID, outcome.LinkedSessionID, now)
	if err != nil {
		return fmt.Errorf("update document run state: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "save outcome", fmt.Errorf("id=%s", outcome.DocumentID))
	}
	return nil
}

func insertAnalysis(ctx context.Context, tx *sql.Tx, outcome ports.RunOutcome, now time.Time) error {
	themes, err := json.Marshal(outcome.Analysis.Themes)
	if err != nil {
		return fmt.Errorf("marshal themes: %w", err)
	}
	mentions, err := json.Marshal(outcome.Analysis.ClientMentions)
	if err != nil {
		return fmt.Errorf("marshal client mentions: %w", err)
	}
	dateStrings, err := json.Marshal(outcome.Analysis.ExtractedDateStrings)
	if err != nil {
		return fmt.Errorf("marshal date strings: %w", err)
	}
	indicators, err := json.Marshal(outcome.Analysis.ClinicalIndicators)
	if err != nil {
		return fmt.Errorf("marshal clinical indicators: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO analysis_results (
	document_id, summary, themes, client_mentions, primary_client_name_guess,
	document_type, emotional_tone, extracted_date_strings, clinical_indicators,
	text_extraction_score, ai_analysis_score, date_validation_score,
	client_match_score, overall_quality, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		outcome.DocumentID, outcome.Analysis.Summary, themes, mentions,
		outcome.Analysis.PrimaryClientNameGuess, string(outcome.Analysis.DocumentType),
		outcome.Analysis.EmotionalTone, dateStrings, indicators,
		outcome.Scores.TextExtractionScore, outcome.Scores.AIAnalysisScore,
		outcome.Scores.DateValidationScore, outcome.Scores.ClientMatchScore,
		outcome.Scores.OverallQuality, now,
	)
	if err != nil {
		return fmt.Errorf("insert analysis result: %w", err)
	}
	return nil
}

func upsertNote(ctx context.Context, tx *sql.Tx, note *domain.ProgressNote, now time.Time) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	var sessionDate any
	if note.SessionDate != nil {
		sessionDate = *note.SessionDate
	}

	// One note per source document: a re-run updates in place.
	_, err := tx.ExecContext(ctx, `
INSERT INTO progress_notes (
	id, client_id, session_id, content, session_date, needs_manual_review,
	source_document_id, created_at, updated_at
) VALUES ($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$8)
ON CONFLICT (source_document_id) DO UPDATE SET
	client_id = EXCLUDED.client_id,
	session_id = EXCLUDED.session_id,
	content = EXCLUDED.content,
	session_date = EXCLUDED.session_date,
	needs_manual_review = EXCLUDED.needs_manual_review,
	updated_at = EXCLUDED.updated_at
`,
		note.ID, note.ClientID, note.SessionID, note.Content, sessionDate,
		note.NeedsManualReview, note.SourceDocumentID, now,
	)
	if err != nil {
		return fmt.Errorf("upsert progress note: %w", err)
	}
	return nil
}
