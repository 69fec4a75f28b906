package usecase

import (
	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

// Auto-link gate: a strong aggregate score alone is not enough, the matcher
// must have produced an unambiguous top candidate of its own.
const (
	autoLinkOverallQuality = 80
	autoLinkClientMatch    = 70
)

// RouteOutcome turns a scored run into its routed terminal status.
//
// auto_linked requires overall quality >= 80, an unambiguous top candidate,
// and a client match score >= 70. Anything short of that routes to
// needs_review as long as there is readable content or at least one candidate
// a reviewer could act on; otherwise the document is rejected.
func RouteOutcome(scores domain.ValidationScores, match domain.MatchResult) domain.DocumentStatus {
	if scores.OverallQuality >= autoLinkOverallQuality &&
		match.Resolved &&
		scores.ClientMatchScore >= autoLinkClientMatch {
		return domain.StatusAutoLinked
	}
	if scores.TextExtractionScore > 0 || len(match.Candidates) > 0 {
		return domain.StatusNeedsReview
	}
	return domain.StatusRejected
}

var statusRank = map[domain.DocumentStatus]int{
	domain.StatusPending:    0,
	domain.StatusExtracting: 1,
	domain.StatusAnalyzing:  2,
	domain.StatusMatching:   3,
	domain.StatusScored:     4,
}

// CanTransition validates a single automatic state-machine step. Statuses
// advance monotonically; rejected and failed are terminal and reachable from
// any non-terminal state; terminal statuses re-enter the pipeline only at
// extracting (a full re-run).
func CanTransition(from, to domain.DocumentStatus) bool {
	if from == to {
		return false
	}
	if from.IsTerminal() {
		return to == domain.StatusExtracting
	}
	if to == domain.StatusRejected || to == domain.StatusFailed {
		return true
	}
	if to == domain.StatusAutoLinked || to == domain.StatusNeedsReview {
		return from == domain.StatusScored
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank == fromRank+1
}

// CanOverride validates the only human-initiated transition: a reviewer
// resolving needs_review by force-linking or rejecting.
func CanOverride(from, to domain.DocumentStatus) bool {
	if from != domain.StatusNeedsReview {
		return false
	}
	return to == domain.StatusAutoLinked || to == domain.StatusRejected
}
