package domain

import "math"

// ValidationScores aggregates per-stage confidence for one pipeline run.
// Every field is clamped to [0,100]; OverallQuality is a deterministic
// function of the other four and never hand-edited.
type ValidationScores struct {
	TextExtractionScore int `json:"textExtractionScore"`
	AIAnalysisScore     int `json:"aiAnalysisScore"`
	DateValidationScore int `json:"dateValidationScore"`
	ClientMatchScore    int `json:"clientMatchScore"`
	OverallQuality      int `json:"overallQuality"`
}

// Stage weights. A wrong client is a privacy incident, a wrong date is a
// cheap manual correction, so client match carries the most weight and date
// confidence the least.
const (
	weightTextExtraction = 0.25
	weightAIAnalysis     = 0.30
	weightDateValidation = 0.15
	weightClientMatch    = 0.30
)

// ComputeValidationScores clamps the stage scores and derives OverallQuality.
func ComputeValidationScores(textExtraction, aiAnalysis, dateValidation, clientMatch int) ValidationScores {
	s := ValidationScores{
		TextExtractionScore: ClampScore(textExtraction),
		AIAnalysisScore:     ClampScore(aiAnalysis),
		DateValidationScore: ClampScore(dateValidation),
		ClientMatchScore:    ClampScore(clientMatch),
	}
	weighted := weightTextExtraction*float64(s.TextExtractionScore) +
		weightAIAnalysis*float64(s.AIAnalysisScore) +
		weightDateValidation*float64(s.DateValidationScore) +
		weightClientMatch*float64(s.ClientMatchScore)
	s.OverallQuality = ClampScore(int(math.Round(weighted)))
	return s
}

// ClampScore forces a stage score into [0,100].
func ClampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
