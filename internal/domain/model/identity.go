package model

import "time"

// Field enumerates the resolvable metadata fields of a recording.
type Field string

// Resolvable fields.
const (
	FieldCoach       Field = "coach"
	FieldStudent     Field = "student"
	FieldSessionType Field = "session_type"
	FieldDate        Field = "date"
	FieldWeek        Field = "week"
)

// Unknown is the placeholder value for a field no source could propose a
// candidate for. Events with unknown fields are still processed; low
// confidence is how they surface for human review.
const Unknown = "unknown"

// Candidate is one raw value proposed for a field by a single source.
// Confidence is the source's own estimate on the 0-100 scale, before the
// source weight is applied.
type Candidate struct {
	Field      Field
	Value      string
	Source     string
	Confidence float64
}

// ResolvedIdentity is the canonical outcome of one resolution run: the
// selected value per field plus per-field and overall confidence.
// Overall is always derived from PerField, never set independently.
type ResolvedIdentity struct {
	Coach       string
	Student     string
	SessionType string
	Week        int
	WeekMethod  string
	Date        time.Time

	PerField map[Field]float64
	Overall  float64

	// RawCoach and RawStudent keep the winning pre-standardization
	// values for the raw ledger view. Empty when the field is unknown.
	RawCoach   string
	RawStudent string
}

// Known reports whether a resolved field holds a real value rather than
// the unknown placeholder.
func Known(v string) bool {
	return v != "" && v != Unknown
}

// ChronologyEntry records one past week resolution for a coach/student
// pair. Entries are append-only and ordered by date.
type ChronologyEntry struct {
	Coach   string
	Student string
	Date    time.Time
	Week    int
}
