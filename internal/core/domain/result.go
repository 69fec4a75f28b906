package domain

import "time"

// ExtractedData is the reviewer-facing slice of a processing run.
type ExtractedData struct {
	ClientName  string `json:"clientName,omitempty"`
	SessionDate string `json:"sessionDate,omitempty"`
	Content     string `json:"content"`
	SessionType string `json:"sessionType,omitempty"`
	RiskLevel   string `json:"riskLevel,omitempty"`
}

// ProcessingResult is the canonical per-document outcome shape. Every client
// of the pipeline consumes this one schema; there is no per-surface variant.
type ProcessingResult struct {
	DocumentID        string           `json:"documentId"`
	Success           bool             `json:"success"`
	Status            DocumentStatus   `json:"status"`
	Confidence        float64          `json:"confidence"`
	NeedsManualReview bool             `json:"needsManualReview"`
	ExtractedData     ExtractedData    `json:"extractedData"`
	ValidationDetails ValidationScores `json:"validationDetails"`
	Error             string           `json:"error,omitempty"`
}

// AuditEvent is emitted once per routed outcome for the external audit trail.
type AuditEvent struct {
	DocumentID     string         `json:"documentId"`
	Outcome        DocumentStatus `json:"outcome"`
	OverallQuality int            `json:"overallQuality"`
}

// ReprocessJob is a queued re-run request. EnqueuedAt is stamped by the
// publisher so the worker can report queue lag; it is zero when the message
// predates the envelope format.
type ReprocessJob struct {
	DocumentID string    `json:"documentId"`
	EnqueuedAt time.Time `json:"enqueuedAt"`
}
