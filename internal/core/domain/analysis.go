package domain

type DocumentType string

const (
	DocTypeProgressNote  DocumentType = "progress_note"
	DocTypeAssessment    DocumentType = "assessment"
	DocTypeTreatmentPlan DocumentType = "treatment_plan"
	DocTypeTranscript    DocumentType = "transcript"
	DocTypeOther         DocumentType = "other"
)

type IndicatorSeverity string

const (
	SeverityLow      IndicatorSeverity = "low"
	SeverityModerate IndicatorSeverity = "moderate"
	SeverityHigh     IndicatorSeverity = "high"
	SeverityCritical IndicatorSeverity = "critical"
)

// ClinicalIndicator is one risk signal surfaced by the analyzer, with the
// text span that supports it.
type ClinicalIndicator struct {
	Indicator string            `json:"indicator"`
	Severity  IndicatorSeverity `json:"severity"`
	Context   string            `json:"context,omitempty"`
}

// AnalysisResult is the analyzer output for one attempt. It is immutable once
// produced and attached to a document by id; a re-run produces a fresh one.
type AnalysisResult struct {
	Summary                string              `json:"summary"`
	Themes                 []string            `json:"themes"`
	ClientMentions         []string            `json:"client_mentions"`
	PrimaryClientNameGuess string              `json:"primary_client_name_guess,omitempty"`
	DocumentType           DocumentType        `json:"document_type"`
	EmotionalTone          string              `json:"emotional_tone,omitempty"`
	ExtractedDateStrings   []string            `json:"extracted_date_strings"`
	ClinicalIndicators     []ClinicalIndicator `json:"clinical_indicators"`
}

// HighestSeverity returns the most severe indicator level present, or empty
// when the analyzer reported none.
func (a AnalysisResult) HighestSeverity() IndicatorSeverity {
	rank := map[IndicatorSeverity]int{
		SeverityLow:      1,
		SeverityModerate: 2,
		SeverityHigh:     3,
		SeverityCritical: 4,
	}
	var out IndicatorSeverity
	best := 0
	for _, ind := range a.ClinicalIndicators {
		if r := rank[ind.Severity]; r > best {
			best = r
			out = ind.Severity
		}
	}
	return out
}
