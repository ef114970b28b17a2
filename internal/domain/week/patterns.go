package week

import (
	"regexp"
	"strconv"
	"strings"

	"coachledger/internal/domain/model"
)

// weekPatterns is the shared regex family for explicit week markers in
// filenames, topics and transcripts. Order matters: the first pattern
// with a match wins.
var weekPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwk\s*#?\s*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bweek\s*#?\s*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bsession\s*#\s*(\d{1,3})\b`),
	regexp.MustCompile(`(?i)\bw(\d{1,2})\b`),
}

// weekFromPatterns scans text for a week marker in [1, maxWeek].
func weekFromPatterns(text string) (int, bool) {
	if text == "" {
		return 0, false
	}
	for _, re := range weekPatterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		week, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if week >= 1 && week <= maxWeek {
			return week, true
		}
	}
	return 0, false
}

// separators breaks filename punctuation into token boundaries so
// markers like "Coaching_Wk05_video.mp4" are visible to \b anchors.
var separators = strings.NewReplacer("_", " ", "-", " ", ".", " ")

// filenameHaystack joins the searchable text of an event: file names
// first (most reliable), then the topic.
func filenameHaystack(event model.RecordingEvent) string {
	var b strings.Builder
	for _, f := range event.SourceFiles {
		b.WriteString(separators.Replace(f.Name))
		b.WriteString(" ")
	}
	b.WriteString(event.Topic)
	return b.String()
}

// normalizeName folds the case and whitespace differences that would
// otherwise split one pair's chronology into several.
func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}
