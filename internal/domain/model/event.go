// Package model contains domain models passed between layers.
package model

import "time"

// Participant is one attendee of a recorded session as reported by the
// upstream source.
type Participant struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	IsHost bool   `json:"is_host"`
}

// SourceFile describes one file attached to a recording (video, audio,
// chat log). Only the name participates in metadata extraction.
type SourceFile struct {
	Name      string `json:"name"`
	SizeBytes int64  `json:"size_bytes"`
}

// RecordingEvent is the immutable input to the resolution pipeline. One
// event describes one recording as listed by an upstream collaborator;
// it is constructed per run and never persisted.
type RecordingEvent struct {
	ExternalID      string        `json:"external_id"`
	Topic           string        `json:"topic"`
	StartTime       time.Time     `json:"start_time"`
	DurationSeconds int           `json:"duration_seconds"`
	HostIdentity    string        `json:"host_identity"`
	Participants    []Participant `json:"participants"`
	SourceFiles     []SourceFile  `json:"source_files"`

	// DataSource tags which upstream collaborator produced the event,
	// e.g. "cloud-meeting" or "cloud-drive". It selects the ledger
	// partition the resolved row lands in.
	DataSource string `json:"data_source"`
}

// HasDate reports whether the event carries a usable session date.
func (e RecordingEvent) HasDate() bool {
	return !e.StartTime.IsZero()
}
