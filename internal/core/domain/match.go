package domain

import "time"

type MatchType string

const (
	MatchExactName        MatchType = "exact_name"
	MatchPartialName      MatchType = "partial_name"
	MatchCalendarAttendee MatchType = "calendar_attendee"
	MatchInferred         MatchType = "inferred"
)

// MatchCandidate is one hypothesis about which client a document belongs to.
// Candidates are ephemeral: produced fresh on every matching run, ranked, and
// never persisted individually.
type MatchCandidate struct {
	ClientID    string     `json:"client_id"`
	MatchType   MatchType  `json:"match_type"`
	Confidence  float64    `json:"confidence"`
	SessionDate *time.Time `json:"session_date,omitempty"`
	SessionID   string     `json:"session_id,omitempty"`
}

// AmbiguityDelta is the minimum confidence gap between the top two candidates
// for the match to count as resolved. A closer race forces manual review
// instead of a silent wrong guess.
const AmbiguityDelta = 0.15

// MatchResult holds ranked candidates plus the resolution verdict.
type MatchResult struct {
	Candidates []MatchCandidate `json:"candidates"`
	Resolved   bool             `json:"resolved"`
}

// Top returns the highest-confidence candidate, or nil when none was produced.
func (m MatchResult) Top() *MatchCandidate {
	if len(m.Candidates) == 0 {
		return nil
	}
	return &m.Candidates[0]
}
