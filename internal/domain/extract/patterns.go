package extract

import (
	"regexp"
	"strings"
	"time"

	"coachledger/internal/domain/model"
)

// separators breaks filename punctuation into token boundaries.
var separators = strings.NewReplacer("_", " ", "-", " ", ".", " ")

var (
	// "Jenny Duan <> Huda" style pairing: coach left, student right.
	pairPattern = regexp.MustCompile(`([A-Z][a-z]+(?: [A-Z][a-z]+)*)\s*<>\s*([A-Z][a-z]+(?: [A-Z][a-z]+)*)`)

	// "Jenny and Huda" style pairing.
	andPattern = regexp.MustCompile(`\b([A-Z][a-z]+)\s+and\s+([A-Z][a-z]+)\b`)

	// Lone capitalized tokens, the weakest name signal.
	tokenPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

	// Dates embedded in names or topics. The separator class includes a
	// space because filename punctuation is folded to spaces upstream.
	isoDatePattern     = regexp.MustCompile(`\b(\d{4})[- ](\d{2})[- ](\d{2})\b`)
	compactDatePattern = regexp.MustCompile(`\b(20\d{2})(\d{2})(\d{2})\b`)
)

// sessionTypeKeywords maps lowercase keywords found in text to the
// canonical session type. Scans follow sessionTypeOrder so overlapping
// keywords resolve deterministically.
var sessionTypeKeywords = map[string]string{
	"coaching":   "Coaching",
	"planning":   "Planning",
	"review":     "Review",
	"assessment": "Assessment",
	"intro":      "Intro",
	"onboarding": "Onboarding",
}

var sessionTypeOrder = []string{"coaching", "planning", "review", "assessment", "intro", "onboarding"}

// tokenStopwords are capitalized words that show up in recording names
// without being names of people.
var tokenStopwords = map[string]struct{}{
	"Coaching": {}, "Session": {}, "Meeting": {}, "Recording": {},
	"Video": {}, "Audio": {}, "Notes": {}, "Week": {}, "Wk": {},
	"Review": {}, "Planning": {}, "Intro": {}, "Assessment": {},
	"Onboarding": {}, "Zoom": {}, "Call": {}, "And": {}, "With": {},
}

// textCandidates runs every text rule against one string on behalf of
// the given source.
func textCandidates(text, source string) []model.Candidate {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	var out []model.Candidate

	claimed := map[string]struct{}{}
	if m := pairPattern.FindStringSubmatch(text); m != nil {
		out = append(out,
			model.Candidate{Field: model.FieldCoach, Value: m[1], Source: source, Confidence: confPairPattern},
			model.Candidate{Field: model.FieldStudent, Value: m[2], Source: source, Confidence: confPairPattern},
		)
		claimed[m[1]] = struct{}{}
		claimed[m[2]] = struct{}{}
	} else if m := andPattern.FindStringSubmatch(text); m != nil {
		out = append(out,
			model.Candidate{Field: model.FieldCoach, Value: m[1], Source: source, Confidence: confAndPattern},
			model.Candidate{Field: model.FieldStudent, Value: m[2], Source: source, Confidence: confAndPattern},
		)
		claimed[m[1]] = struct{}{}
		claimed[m[2]] = struct{}{}
	}

	// Remaining capitalized tokens are offered for both roles at low
	// confidence; the aggregator's name resolution sorts out which.
	for _, tok := range tokenPattern.FindAllString(text, -1) {
		if _, stop := tokenStopwords[tok]; stop {
			continue
		}
		if _, dup := claimed[tok]; dup {
			continue
		}
		claimed[tok] = struct{}{}
		out = append(out,
			model.Candidate{Field: model.FieldCoach, Value: tok, Source: source, Confidence: confToken},
			model.Candidate{Field: model.FieldStudent, Value: tok, Source: source, Confidence: confToken},
		)
	}

	if keyword, ok := sessionTypeFrom(text); ok {
		out = append(out, model.Candidate{
			Field:      model.FieldSessionType,
			Value:      keyword,
			Source:     source,
			Confidence: confTypeKeyword,
		})
	}

	if date, ok := dateFrom(text); ok {
		out = append(out, model.Candidate{
			Field:      model.FieldDate,
			Value:      date.Format("2006-01-02"),
			Source:     source,
			Confidence: confDateInText,
		})
	}

	return out
}

func sessionTypeFrom(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, keyword := range sessionTypeOrder {
		if strings.Contains(lower, keyword) {
			return sessionTypeKeywords[keyword], true
		}
	}
	return "", false
}

func dateFrom(text string) (time.Time, bool) {
	if m := isoDatePattern.FindStringSubmatch(text); m != nil {
		if t, err := time.Parse("2006-01-02", m[1]+"-"+m[2]+"-"+m[3]); err == nil {
			return t, true
		}
	}
	if m := compactDatePattern.FindStringSubmatch(text); m != nil {
		if t, err := time.Parse("20060102", m[0]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
