package usecase

import (
	"testing"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

func activeClient(id, first, last string) domain.Client {
	return domain.Client{ID: id, FirstName: first, LastName: last, Active: true}
}

func TestMatchClientsExactNameWins(t *testing.T) {
	result := MatchClients(MatchInput{
		Mentions: []string{"John Doe"},
		Roster: []domain.Client{
			activeClient("c1", "John", "Doe"),
			activeClient("c2", "Jane", "Smith"),
		},
	})

	top := result.Top()
	if top == nil {
		t.Fatal("expected a top candidate")
	}
	if top.ClientID != "c1" || top.MatchType != domain.MatchExactName {
		t.Fatalf("expected exact match on c1, got %+v", top)
	}
	if top.Confidence != confExactName {
		t.Fatalf("expected confidence %v, got %v", confExactName, top.Confidence)
	}
	if !result.Resolved {
		t.Fatal("expected a sole candidate to resolve")
	}
}

func TestMatchClientsAmbiguousWhenTopTwoClose(t *testing.T) {
	date := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	result := MatchClients(MatchInput{
		Mentions: []string{"John Doe"},
		Roster: []domain.Client{
			activeClient("c1", "John", "Doe"),
			activeClient("c2", "Jane", "Smith"),
		},
		Appointments: []domain.Appointment{
			{ID: "a2", ClientID: "c2", StartsAt: date},
		},
		BestDate: &date,
	})

	if len(result.Candidates) != 2 {
		t.Fatalf("expected two candidates, got %d", len(result.Candidates))
	}
	// 0.95 exact vs 0.90 calendar attendee: delta 0.05 < 0.15.
	if result.Resolved {
		t.Fatal("expected ambiguous result when top two are within the delta")
	}
	if result.Candidates[0].ClientID != "c1" {
		t.Fatalf("expected c1 ranked first, got %s", result.Candidates[0].ClientID)
	}
}

func TestMatchClientsPartialNameScaledByOverlap(t *testing.T) {
	result := MatchClients(MatchInput{
		Mentions: []string{"met with John"},
		Roster:   []domain.Client{activeClient("c1", "John", "Doe")},
	})

	top := result.Top()
	if top == nil {
		t.Fatal("expected a candidate")
	}
	if top.MatchType != domain.MatchPartialName {
		t.Fatalf("expected partial match, got %s", top.MatchType)
	}
	// One of two name tokens matched: 0.40 + 0.30*0.5 = 0.55.
	if top.Confidence < 0.54 || top.Confidence > 0.56 {
		t.Fatalf("expected confidence around 0.55, got %v", top.Confidence)
	}
}

func TestMatchClientsTypoWithinEditDistance(t *testing.T) {
	result := MatchClients(MatchInput{
		Mentions: []string{"Jhon Doae"},
		Roster:   []domain.Client{activeClient("c1", "John", "Doe")},
	})

	top := result.Top()
	if top == nil {
		t.Fatal("expected a candidate despite typos")
	}
	if top.MatchType != domain.MatchPartialName {
		t.Fatalf("expected partial match, got %s", top.MatchType)
	}
}

func TestMatchClientsIgnoresInactiveClients(t *testing.T) {
	inactive := domain.Client{ID: "c1", FirstName: "John", LastName: "Doe", Active: false}
	result := MatchClients(MatchInput{
		Mentions: []string{"John Doe"},
		Roster:   []domain.Client{inactive},
	})

	if len(result.Candidates) != 0 {
		t.Fatalf("expected no candidates for inactive roster, got %d", len(result.Candidates))
	}
}

func TestMatchClientsCalendarAttendeeCarriesSession(t *testing.T) {
	date := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	result := MatchClients(MatchInput{
		Mentions: []string{"someone else entirely"},
		Roster:   []domain.Client{activeClient("c1", "John", "Doe")},
		Appointments: []domain.Appointment{
			{ID: "a1", ClientID: "other", StartsAt: date.Add(10 * time.Hour), Attendees: []string{"John Doe"}},
		},
		BestDate: &date,
	})

	top := result.Top()
	if top == nil {
		t.Fatal("expected a candidate")
	}
	if top.MatchType != domain.MatchCalendarAttendee {
		t.Fatalf("expected calendar attendee match, got %s", top.MatchType)
	}
	if top.SessionID != "a1" || top.SessionDate == nil || !top.SessionDate.Equal(date) {
		t.Fatalf("expected session a1 on %v, got %+v", date, top)
	}
}

func TestMatchClientsHintBeatsPartialEvidence(t *testing.T) {
	result := MatchClients(MatchInput{
		Mentions:     []string{"John"},
		ClientIDHint: "c2",
		Roster: []domain.Client{
			activeClient("c1", "John", "Doe"),
			activeClient("c2", "Jane", "Smith"),
		},
	})

	top := result.Top()
	if top == nil || top.ClientID != "c2" {
		t.Fatalf("expected hinted client on top, got %+v", top)
	}
	if top.Confidence != confCalendarAttendee {
		t.Fatalf("expected hint confidence %v, got %v", confCalendarAttendee, top.Confidence)
	}
}

func TestMatchClientsInfersSoleScheduledClient(t *testing.T) {
	date := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	in := MatchInput{
		Roster: []domain.Client{
			activeClient("c1", "John", "Doe"),
			activeClient("c2", "Jane", "Smith"),
		},
		Appointments: []domain.Appointment{
			{ID: "a1", ClientID: "c1", StartsAt: date},
		},
	}

	result := MatchClients(in)
	top := result.Top()
	if top == nil {
		t.Fatal("expected inferred candidate")
	}
	if top.MatchType != domain.MatchInferred || top.Confidence != confInferred {
		t.Fatalf("expected inferred match at %v, got %+v", confInferred, top)
	}

	// A second scheduled client kills the inference.
	in.Appointments = append(in.Appointments, domain.Appointment{ID: "a2", ClientID: "c2", StartsAt: date})
	if got := MatchClients(in); len(got.Candidates) != 0 {
		t.Fatalf("expected no inference with two scheduled clients, got %d candidates", len(got.Candidates))
	}
}

func TestMatchClientsNoInferenceWhenMentionsPresent(t *testing.T) {
	date := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	result := MatchClients(MatchInput{
		Mentions: []string{"unrelated person"},
		Roster:   []domain.Client{activeClient("c1", "John", "Doe")},
		Appointments: []domain.Appointment{
			{ID: "a1", ClientID: "c1", StartsAt: date},
		},
	})

	if len(result.Candidates) != 0 {
		t.Fatalf("expected no candidates, got %+v", result.Candidates)
	}
}

func TestMatchScore(t *testing.T) {
	if got := MatchScore(domain.MatchResult{}); got != 0 {
		t.Fatalf("expected 0 for empty result, got %d", got)
	}
	result := domain.MatchResult{Candidates: []domain.MatchCandidate{{Confidence: 0.95}}}
	if got := MatchScore(result); got != 95 {
		t.Fatalf("expected 95, got %d", got)
	}
}
