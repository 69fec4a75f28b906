package fileextract

import (
	"strings"
	"unicode"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

// QualityScore estimates extraction quality in [0,100] from character
// density and the presence of recognizable sentence structure. Empty text is
// always 0; clean prose lands in the high 80s and above.
func QualityScore(text string) int {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}

	var letters, digits, spaces, total int
	for _, r := range trimmed {
		total++
		switch {
		case unicode.IsLetter(r):
			letters++
		case unicode.IsDigit(r):
			digits++
		case unicode.IsSpace(r):
			spaces++
		}
	}

	readable := float64(letters+digits+spaces) / float64(total)
	score := 30.0 + 50.0*readable

	words := len(strings.Fields(trimmed))
	sentences := strings.Count(trimmed, ". ") +
		strings.Count(trimmed, ".\n") +
		strings.Count(trimmed, "? ") +
		strings.Count(trimmed, "! ")
	if strings.HasSuffix(trimmed, ".") || strings.HasSuffix(trimmed, "?") || strings.HasSuffix(trimmed, "!") {
		sentences++
	}

	if sentences > 0 {
		score += 10
		avgWords := float64(words) / float64(sentences)
		if avgWords >= 3 && avgWords <= 60 {
			score += 10
		}
	}

	// Very short fragments carry little evidence either way.
	if words < 5 {
		score -= 25
	}

	return domain.ClampScore(int(score))
}
