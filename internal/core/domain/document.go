package domain

import "time"

type DocumentStatus string

const (
	StatusPending     DocumentStatus = "pending"
	StatusExtracting  DocumentStatus = "extracting"
	StatusAnalyzing   DocumentStatus = "analyzing"
	StatusMatching    DocumentStatus = "matching"
	StatusScored      DocumentStatus = "scored"
	StatusAutoLinked  DocumentStatus = "auto_linked"
	StatusNeedsReview DocumentStatus = "needs_review"
	StatusRejected    DocumentStatus = "rejected"
	StatusFailed      DocumentStatus = "failed"
)

// IsTerminal reports whether the pipeline will not move the document further
// on its own. Re-processing a terminal document is allowed and re-runs every
// stage against the same ProgressNote.
func (s DocumentStatus) IsTerminal() bool {
	switch s {
	case StatusAutoLinked, StatusNeedsReview, StatusRejected, StatusFailed:
		return true
	default:
		return false
	}
}

// Document is one uploaded clinical artifact. It is owned by the ingestion
// pipeline and mutated only through state-machine transitions; documents are
// never deleted, only marked rejected.
type Document struct {
	ID              string         `json:"id"`
	Filename        string         `json:"filename"`
	MimeType        string         `json:"mime_type"`
	SizeBytes       int64          `json:"size_bytes"`
	StoragePath     string         `json:"storage_path"`
	Status          DocumentStatus `json:"status"`
	ExtractedText   string         `json:"extracted_text,omitempty"`
	LinkedClientID  string         `json:"linked_client_id,omitempty"`
	LinkedSessionID string         `json:"linked_session_id,omitempty"`
	ClientIDHint    string         `json:"client_id_hint,omitempty"`
	Tags            []string       `json:"tags,omitempty"`
	Error           string         `json:"error,omitempty"`
	UploadedAt      time.Time      `json:"uploaded_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}
