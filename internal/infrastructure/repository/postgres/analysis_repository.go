package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

type AnalysisRepository struct {
	db *sql.DB
}

func NewAnalysisRepository(db *sql.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Analysis rows are written only by PipelineStore.SaveOutcome, in the same
// transaction as the document status and the note. This repository serves
// the read side of the API.
func (r *AnalysisRepository) LatestByDocumentID(ctx context.Context, documentID string) (*domain.AnalysisResult, *domain.ValidationScores, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT summary, themes, client_mentions, primary_client_name_guess, document_type,
	emotional_tone, extracted_date_strings, clinical_indicators,
	text_extraction_score, ai_analysis_score, date_validation_score,
	client_match_score, overall_quality
FROM analysis_results
WHERE document_id = $1
ORDER BY created_at DESC, id DESC
LIMIT 1
`, documentID)

	var result domain.AnalysisResult
	var scores domain.ValidationScores
	var summary, primaryGuess, documentType, tone sql.NullString
	var themesRaw, mentionsRaw, datesRaw, indicatorsRaw []byte

	err := row.Scan(
		&summary, &themesRaw, &mentionsRaw, &primaryGuess, &documentType,
		&tone, &datesRaw, &indicatorsRaw,
		&scores.TextExtractionScore, &scores.AIAnalysisScore, &scores.DateValidationScore,
		&scores.ClientMatchScore, &scores.OverallQuality,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("scan analysis result: %w", err)
	}

	result.Summary = summary.String
	result.PrimaryClientNameGuess = primaryGuess.String
	result.DocumentType = domain.DocumentType(documentType.String)
	result.EmotionalTone = tone.String
	if err := json.Unmarshal(themesRaw, &result.Themes); err != nil {
		return nil, nil, fmt.Errorf("unmarshal themes: %w", err)
	}
	if err := json.Unmarshal(mentionsRaw, &result.ClientMentions); err != nil {
		return nil, nil, fmt.Errorf("unmarshal client mentions: %w", err)
	}
	if err := json.Unmarshal(datesRaw, &result.ExtractedDateStrings); err != nil {
		return nil, nil, fmt.Errorf("unmarshal date strings: %w", err)
	}
	if err := json.Unmarshal(indicatorsRaw, &result.ClinicalIndicators); err != nil {
		return nil, nil, fmt.Errorf("unmarshal clinical indicators: %w", err)
	}
	return &result, &scores, nil
}
