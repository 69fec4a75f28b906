package usecase

import (
	"strings"
	"time"

	"github.com/jonathanprocter/therapyflow-backend-sub013/internal/core/domain"
)

// DateCandidate is one calendar-date hypothesis parsed from analyzer output.
type DateCandidate struct {
	Date       time.Time
	Confidence float64
	Source     string
}

// DateResolution is the outcome of resolving all extracted date strings.
type DateResolution struct {
	Best       *DateCandidate
	Candidates []DateCandidate
	Score      int
}

// Confidence tiers from most- to least-specific. Fully specified absolute
// dates score highest; partial and relative dates lower.
const (
	confISO      = 0.95
	confLongForm = 0.90
	confNumeric  = 0.80
	confRelative = 0.60
	confPartial  = 0.55
)

// Clinical notes are near-contemporaneous: anything more than two years
// before or one day after upload is implausible.
const (
	plausibleLookback = 2 * 365 * 24 * time.Hour
	plausibleLead     = 24 * time.Hour
)

var sessionKeywords = []string{"session", "appointment"}

// ResolveDates parses each extracted date string against an ordered format
// list, filters implausible candidates against uploadedAt, and picks the best
// survivor. Ties between equally confident candidates go to the one textually
// closest to a session-type keyword in the source text.
func ResolveDates(dateStrings []string, uploadedAt time.Time, sourceText string) DateResolution {
	var candidates []DateCandidate
	for _, raw := range dateStrings {
		c, ok := parseDateString(raw, uploadedAt)
		if !ok {
			continue
		}
		if !plausible(c.Date, uploadedAt) {
			continue
		}
		candidates = append(candidates, c)
	}

	res := DateResolution{Candidates: candidates}
	if len(candidates) == 0 {
		return res
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.Confidence > best.Confidence:
			best = c
		case c.Confidence == best.Confidence &&
			keywordDistance(sourceText, c.Source) < keywordDistance(sourceText, best.Source):
			best = c
		}
	}
	res.Best = &best
	res.Score = domain.ClampScore(int(best.Confidence*100 + 0.5))
	return res
}

func parseDateString(raw string, uploadedAt time.Time) (DateCandidate, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return DateCandidate{}, false
	}

	type layoutTier struct {
		layout     string
		confidence float64
	}
	tiers := []layoutTier{
		{time.RFC3339, confISO},
		{"2006-01-02", confISO},
		{"January 2, 2006", confLongForm},
		{"Jan 2, 2006", confLongForm},
		{"January 2 2006", confLongForm},
		{"1/2/2006", confNumeric},
		{"1/2/06", confNumeric},
		{"1-2-2006", confNumeric},
	}
	for _, tier := range tiers {
		if t, err := time.Parse(tier.layout, s); err == nil {
			return DateCandidate{Date: dateOnly(t), Confidence: tier.confidence, Source: raw}, true
		}
	}

	if t, ok := parseRelative(s, uploadedAt); ok {
		return DateCandidate{Date: dateOnly(t), Confidence: confRelative, Source: raw}, true
	}

	// Month+day with no year: assume the upload year, rolling back one year
	// when that lands in the future.
	for _, layout := range []string{"January 2", "Jan 2"} {
		if t, err := time.Parse(layout, s); err == nil {
			resolved := time.Date(uploadedAt.Year(), t.Month(), t.Day(), 0, 0, 0, 0, uploadedAt.Location())
			if resolved.After(uploadedAt.Add(plausibleLead)) {
				resolved = resolved.AddDate(-1, 0, 0)
			}
			return DateCandidate{Date: dateOnly(resolved), Confidence: confPartial, Source: raw}, true
		}
	}

	return DateCandidate{}, false
}

func parseRelative(s string, uploadedAt time.Time) (time.Time, bool) {
	lower := strings.ToLower(s)
	switch lower {
	case "today":
		return uploadedAt, true
	case "yesterday":
		return uploadedAt.AddDate(0, 0, -1), true
	}

	name, ok := strings.CutPrefix(lower, "last ")
	if !ok {
		return time.Time{}, false
	}
	target, ok := weekdayByName(strings.TrimSpace(name))
	if !ok {
		return time.Time{}, false
	}
	daysBack := (int(target) - int(uploadedAt.Weekday()) + 7) % 7
	if daysBack == 0 {
		daysBack = 7
	}
	return uploadedAt.AddDate(0, 0, -daysBack), true
}

func weekdayByName(name string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), name) {
			return d, true
		}
	}
	return 0, false
}

func plausible(date, uploadedAt time.Time) bool {
	if date.Before(uploadedAt.Add(-plausibleLookback)) {
		return false
	}
	return !date.After(uploadedAt.Add(plausibleLead))
}

// keywordDistance measures how close a date mention sits to the nearest
// session-type keyword in the source text. Unlocatable mentions sort last.
func keywordDistance(text, source string) int {
	const far = 1 << 30
	lower := strings.ToLower(text)
	pos := strings.Index(lower, strings.ToLower(source))
	if pos < 0 {
		return far
	}

	best := far
	for _, kw := range sessionKeywords {
		for offset := 0; ; {
			idx := strings.Index(lower[offset:], kw)
			if idx < 0 {
				break
			}
			abs := offset + idx
			d := abs - pos
			if d < 0 {
				d = -d
			}
			if d < best {
				best = d
			}
			offset = abs + len(kw)
		}
	}
	return best
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
