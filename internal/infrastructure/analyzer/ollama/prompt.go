package ollama

import (
	"fmt"
	"strings"
)

func buildAnalysisPrompt(text, filenameHint string) string {
	var sb strings.Builder
	sb.WriteString("You are analyzing a clinical document uploaded by a therapist.\n")
	sb.WriteString("Respond with a single JSON object using exactly these keys:\n")
	sb.WriteString(`{"summary": string, "themes": [string], "client_mentions": [string], ` +
		`"primary_client_name": string, "document_type": string, "emotional_tone": string, ` +
		`"date_strings": [string], "clinical_indicators": [{"indicator": string, ` +
		`"severity": string, "context": string}], "confidence": number}` + "\n\n")
	sb.WriteString("Rules:\n")
	sb.WriteString("- document_type is one of: progress_note, assessment, treatment_plan, transcript, other.\n")
	sb.WriteString("- severity is one of: low, moderate, high, critical.\n")
	sb.WriteString("- client_mentions lists every person name found verbatim in the text.\n")
	sb.WriteString("- date_strings lists every date expression verbatim, including relative ones like \"last Tuesday\".\n")
	sb.WriteString("- confidence is 0-100 for how complete and reliable this analysis is.\n\n")
	fmt.Fprintf(&sb, "Filename hint: %s\n\nDocument text:\n%s\n", filenameHint, text)
	return sb.String()
}
