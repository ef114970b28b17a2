// Package extract pulls raw candidate values for coach, student,
// session type and date out of a recording event's weighted sources.
//
// Extraction is deliberately forgiving: malformed input never raises;
// a source that matches nothing simply contributes zero candidates.
package extract

import (
	"strings"

	"coachledger/internal/domain/model"
)

// Source names, in fixed priority order.
const (
	SourceFiles        = "files"
	SourceParticipants = "participants"
	SourceTopic        = "topic"
	SourceHost         = "host"
)

// Weight returns the fixed fusion weight of a source.
func Weight(source string) float64 {
	switch source {
	case SourceFiles:
		return 0.4
	case SourceParticipants:
		return 0.3
	case SourceTopic:
		return 0.2
	case SourceHost:
		return 0.1
	}
	return 0
}

// Priority returns the tie-break rank of a source; lower wins.
func Priority(source string) int {
	switch source {
	case SourceFiles:
		return 0
	case SourceParticipants:
		return 1
	case SourceTopic:
		return 2
	case SourceHost:
		return 3
	}
	return 4
}

// Per-rule extraction confidences.
const (
	confPairPattern  = 85 // "Coach <> Student"
	confAndPattern   = 75 // "X and Y"
	confToken        = 60 // lone capitalized token
	confHostRole     = 90 // participant flagged as host
	confAttendeeRole = 85 // participant not flagged as host
	confHostIdentity = 80 // event-level host identity string
	confTypeKeyword  = 90 // session type keyword hit
	confDateInText   = 80 // date parsed out of a name or topic
)

// Extractor proposes candidates from all sources of one event.
type Extractor struct{}

// NewExtractor returns a ready extractor. It carries no state; one
// instance serves all workers.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract returns every candidate the event's sources propose. The
// result is ordered by source priority, then by extraction order
// within a source, which keeps downstream tie-breaking deterministic.
func (e *Extractor) Extract(event model.RecordingEvent) []model.Candidate {
	var out []model.Candidate
	out = append(out, e.fromFiles(event)...)
	out = append(out, e.fromParticipants(event)...)
	out = append(out, e.fromTopic(event)...)
	out = append(out, e.fromHost(event)...)
	return out
}

// fromFiles mines file names: explicit name pairs, session type
// keywords, embedded dates and capitalized tokens.
func (e *Extractor) fromFiles(event model.RecordingEvent) []model.Candidate {
	var out []model.Candidate
	for _, f := range event.SourceFiles {
		text := separators.Replace(f.Name)
		out = append(out, textCandidates(text, SourceFiles)...)
	}
	return out
}

// fromParticipants derives roles from the participant list: the host is
// a coach candidate, everyone else a student candidate.
func (e *Extractor) fromParticipants(event model.RecordingEvent) []model.Candidate {
	var out []model.Candidate
	for _, p := range event.Participants {
		name := displayName(p)
		if name == "" {
			continue
		}
		field := model.FieldStudent
		conf := float64(confAttendeeRole)
		if p.IsHost {
			field = model.FieldCoach
			conf = confHostRole
		}
		out = append(out, model.Candidate{
			Field:      field,
			Value:      name,
			Source:     SourceParticipants,
			Confidence: conf,
		})
	}
	return out
}

// fromTopic mines the free-text meeting topic.
func (e *Extractor) fromTopic(event model.RecordingEvent) []model.Candidate {
	return textCandidates(event.Topic, SourceTopic)
}

// fromHost proposes the event-level host identity as a coach candidate.
func (e *Extractor) fromHost(event model.RecordingEvent) []model.Candidate {
	host := strings.TrimSpace(event.HostIdentity)
	if host == "" {
		return nil
	}
	if at := strings.IndexByte(host, '@'); at > 0 {
		host = host[:at]
	}
	return []model.Candidate{{
		Field:      model.FieldCoach,
		Value:      host,
		Source:     SourceHost,
		Confidence: confHostIdentity,
	}}
}

// displayName prefers the participant's display name and falls back to
// the local part of their email address.
func displayName(p model.Participant) string {
	if name := strings.TrimSpace(p.Name); name != "" {
		return name
	}
	email := strings.TrimSpace(p.Email)
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return ""
}
