package domain

import "time"

// ProgressNote is the clinical artifact the pipeline creates or updates.
// At most one exists per SourceDocumentID: re-running the pipeline on the
// same document updates the existing note in place.
type ProgressNote struct {
	ID                string     `json:"id"`
	ClientID          string     `json:"client_id"`
	SessionID         string     `json:"session_id,omitempty"`
	Content           string     `json:"content"`
	SessionDate       *time.Time `json:"session_date,omitempty"`
	NeedsManualReview bool       `json:"needs_manual_review"`
	SourceDocumentID  string     `json:"source_document_id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}
