package usecase

import (
	"sort"
	"strings"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

// Candidate confidence anchors per match type.
const (
	confExactName        = 0.95
	confCalendarAttendee = 0.90
	confInferred         = 0.50
	confPartialFloor     = 0.40
	confPartialCeiling   = 0.70
)

// calendarSlack widens the best resolved date when checking appointments.
const calendarSlack = 24 * time.Hour

// MatchInput carries all the evidence the matcher ranks clients against.
type MatchInput struct {
	Mentions     []string
	PrimaryGuess string
	ClientIDHint string
	Roster       []domain.Client
	Appointments []domain.Appointment
	BestDate     *time.Time
}

// MatchClients scores every roster entry against the document's textual and
// temporal evidence and ranks the resulting candidates. A client with no
// evidence of any kind produces no candidate. The match is resolved only when
// the top candidate leads the runner-up by at least domain.AmbiguityDelta.
func MatchClients(in MatchInput) domain.MatchResult {
	mentions := collectMentions(in.Mentions, in.PrimaryGuess)

	var candidates []domain.MatchCandidate
	for _, client := range in.Roster {
		if !client.Active {
			continue
		}
		if c, ok := scoreClient(client, mentions, in); ok {
			candidates = append(candidates, c)
		}
	}

	if len(mentions) == 0 {
		if c, ok := inferSoleScheduledClient(in); ok {
			candidates = append(candidates, c)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].ClientID < candidates[j].ClientID
	})

	return domain.MatchResult{
		Candidates: candidates,
		Resolved:   resolved(candidates),
	}
}

// MatchScore converts the ranked result into the [0,100] stage score.
func MatchScore(result domain.MatchResult) int {
	top := result.Top()
	if top == nil {
		return 0
	}
	return domain.ClampScore(int(top.Confidence*100 + 0.5))
}

func resolved(candidates []domain.MatchCandidate) bool {
	switch len(candidates) {
	case 0:
		return false
	case 1:
		return true
	default:
		return candidates[0].Confidence-candidates[1].Confidence >= domain.AmbiguityDelta
	}
}

func scoreClient(client domain.Client, mentions []string, in MatchInput) (domain.MatchCandidate, bool) {
	best := domain.MatchCandidate{ClientID: client.ID}

	consider := func(matchType domain.MatchType, confidence float64, appt *domain.Appointment) {
		// Match types combine by max, never by sum.
		if confidence <= best.Confidence {
			return
		}
		best.MatchType = matchType
		best.Confidence = confidence
		if appt != nil {
			d := dateOnly(appt.StartsAt)
			best.SessionDate = &d
			best.SessionID = appt.ID
		}
	}

	fullName := strings.ToLower(client.FullName())
	for _, mention := range mentions {
		if mention == fullName {
			consider(domain.MatchExactName, confExactName, nil)
			break
		}
	}

	if appt := attendeeAppointment(client, in); appt != nil {
		consider(domain.MatchCalendarAttendee, confCalendarAttendee, appt)
	}

	if in.ClientIDHint != "" && in.ClientIDHint == client.ID {
		// The upload-form hint carries no calendar evidence; it borrows the
		// calendar_attendee type and weight because the therapist naming the
		// client at upload is as trustworthy as an appointment match. A nil
		// appointment distinguishes it from a real attendee candidate.
		consider(domain.MatchCalendarAttendee, confCalendarAttendee, nil)
	}

	if best.Confidence < confPartialCeiling {
		if frac, ok := bestPartialOverlap(client, mentions); ok {
			consider(domain.MatchPartialName, confPartialFloor+(confPartialCeiling-confPartialFloor)*frac, nil)
		}
	}

	if best.Confidence == 0 {
		return domain.MatchCandidate{}, false
	}
	if best.SessionDate == nil {
		if appt := appointmentFor(client.ID, in.Appointments); appt != nil {
			d := dateOnly(appt.StartsAt)
			best.SessionDate = &d
			best.SessionID = appt.ID
		}
	}
	return best, true
}

// attendeeAppointment finds a calendar event within a day of the resolved
// session date that names the client, either by owning client id or by
// attendee display name.
func attendeeAppointment(client domain.Client, in MatchInput) *domain.Appointment {
	if in.BestDate == nil {
		return nil
	}
	fullName := strings.ToLower(client.FullName())
	for i := range in.Appointments {
		appt := &in.Appointments[i]
		delta := dateOnly(appt.StartsAt).Sub(dateOnly(*in.BestDate))
		if delta < -calendarSlack || delta > calendarSlack {
			continue
		}
		if appt.ClientID == client.ID {
			return appt
		}
		for _, attendee := range appt.Attendees {
			if strings.EqualFold(strings.TrimSpace(attendee), fullName) {
				return appt
			}
		}
	}
	return nil
}

// inferSoleScheduledClient covers documents with no name evidence at all:
// when exactly one active client has a session in the plausible window, that
// client becomes a low-confidence candidate.
func inferSoleScheduledClient(in MatchInput) (domain.MatchCandidate, bool) {
	activeByID := make(map[string]domain.Client, len(in.Roster))
	for _, c := range in.Roster {
		if c.Active {
			activeByID[c.ID] = c
		}
	}

	var sole *domain.Appointment
	seen := map[string]bool{}
	for i := range in.Appointments {
		appt := &in.Appointments[i]
		if _, ok := activeByID[appt.ClientID]; !ok {
			continue
		}
		if seen[appt.ClientID] {
			continue
		}
		seen[appt.ClientID] = true
		if len(seen) > 1 {
			return domain.MatchCandidate{}, false
		}
		sole = appt
	}
	if sole == nil {
		return domain.MatchCandidate{}, false
	}

	d := dateOnly(sole.StartsAt)
	return domain.MatchCandidate{
		ClientID:    sole.ClientID,
		MatchType:   domain.MatchInferred,
		Confidence:  confInferred,
		SessionDate: &d,
		SessionID:   sole.ID,
	}, true
}

func appointmentFor(clientID string, appointments []domain.Appointment) *domain.Appointment {
	for i := range appointments {
		if appointments[i].ClientID == clientID {
			return &appointments[i]
		}
	}
	return nil
}

// bestPartialOverlap measures token overlap between a mention and the client
// name, counting tokens within edit distance 2 as matched. Returns the best
// matched fraction across mentions.
func bestPartialOverlap(client domain.Client, mentions []string) (float64, bool) {
	nameTokens := strings.Fields(strings.ToLower(client.FullName()))
	if len(nameTokens) == 0 {
		return 0, false
	}

	best := 0.0
	found := false
	for _, mention := range mentions {
		mentionTokens := strings.Fields(mention)
		matched := 0
		for _, nt := range nameTokens {
			for _, mt := range mentionTokens {
				if nt == mt || editDistance(nt, mt) <= 2 && len(nt) > 3 && len(mt) > 3 {
					matched++
					break
				}
			}
		}
		if matched == 0 {
			continue
		}
		found = true
		if frac := float64(matched) / float64(len(nameTokens)); frac > best {
			best = frac
		}
	}
	return best, found
}

func collectMentions(mentions []string, primaryGuess string) []string {
	out := make([]string, 0, len(mentions)+1)
	seen := map[string]bool{}
	add := func(s string) {
		normalized := strings.ToLower(strings.TrimSpace(s))
		if normalized == "" || seen[normalized] {
			return
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	add(primaryGuess)
	for _, m := range mentions {
		add(m)
	}
	return out
}

func editDistance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}
