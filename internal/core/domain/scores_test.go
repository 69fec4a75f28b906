package domain

import (
	"math/rand"
	"testing"
)

func TestComputeValidationScoresWorkedExample(t *testing.T) {
	s := ComputeValidationScores(90, 85, 80, 95)

	// 0.25*90 + 0.30*85 + 0.15*80 + 0.30*95 = 88.5, rounds to 89.
	if s.OverallQuality != 89 {
		t.Fatalf("expected overall quality 89, got %d", s.OverallQuality)
	}
}

func TestComputeValidationScoresClampsInputs(t *testing.T) {
	s := ComputeValidationScores(-10, 250, 50, 50)

	if s.TextExtractionScore != 0 {
		t.Fatalf("expected negative input clamped to 0, got %d", s.TextExtractionScore)
	}
	if s.AIAnalysisScore != 100 {
		t.Fatalf("expected oversized input clamped to 100, got %d", s.AIAnalysisScore)
	}
}

func TestComputeValidationScoresRangeAndDeterminism(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		text := rng.Intn(301) - 100
		ai := rng.Intn(301) - 100
		date := rng.Intn(301) - 100
		match := rng.Intn(301) - 100

		first := ComputeValidationScores(text, ai, date, match)
		if first.OverallQuality < 0 || first.OverallQuality > 100 {
			t.Fatalf("overall quality out of range: %d for (%d,%d,%d,%d)", first.OverallQuality, text, ai, date, match)
		}
		if second := ComputeValidationScores(text, ai, date, match); second != first {
			t.Fatalf("scores not deterministic for (%d,%d,%d,%d)", text, ai, date, match)
		}
	}
}

func TestClampScore(t *testing.T) {
	if ClampScore(-1) != 0 || ClampScore(101) != 100 || ClampScore(55) != 55 {
		t.Fatal("unexpected clamp behavior")
	}
}
