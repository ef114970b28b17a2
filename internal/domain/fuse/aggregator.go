// Package fuse combines field candidates, name resolution results and
// the week inference outcome into one ResolvedIdentity.
package fuse

import (
	"time"

	"coachledger/internal/domain/extract"
	"coachledger/internal/domain/model"
	"coachledger/internal/domain/names"
	"coachledger/internal/domain/week"
)

// Field weights of the overall-confidence mean. Date is tracked
// per-field but excluded from the mean; its absence is punished by the
// unknown-field penalty instead.
const (
	weightCoach       = 0.30
	weightStudent     = 0.30
	weightWeek        = 0.25
	weightSessionType = 0.15
)

// unknownPenalty is applied once per unresolved field.
const unknownPenalty = 0.9

// unambiguousBoost rewards events where each name field had exactly one
// candidate.
const unambiguousBoost = 1.1

// rolePenalty discounts a name candidate that resolves to a known
// member of the opposite role only.
const rolePenalty = 0.2

// Selection holds the per-field winners chosen before week inference
// runs. Coach and Student are canonical; RawCoach and RawStudent keep
// the pre-standardization values for the raw ledger view.
type Selection struct {
	Coach           string
	CoachConfidence float64
	RawCoach        string

	Student           string
	StudentConfidence float64
	RawStudent        string

	SessionType           string
	SessionTypeConfidence float64

	Date           time.Time
	DateConfidence float64

	// Raw candidate counts per name field, for the ambiguity rule.
	CoachCandidates   int
	StudentCandidates int
}

// Aggregator scores candidates and derives confidence. It is stateless
// apart from the immutable name resolver.
type Aggregator struct {
	names *names.Resolver
}

// NewAggregator builds an aggregator over the given name resolver.
func NewAggregator(resolver *names.Resolver) *Aggregator {
	return &Aggregator{names: resolver}
}

// Select picks the winning candidate per field. For each field the
// candidate with the highest sourceWeight x extractionConfidence
// product wins (for names, the resolver confidence joins the product);
// ties break by fixed source priority, then extraction order.
func (a *Aggregator) Select(event model.RecordingEvent, candidates []model.Candidate) Selection {
	sel := Selection{
		Coach:       model.Unknown,
		Student:     model.Unknown,
		SessionType: model.Unknown,
	}

	var bestCoach, bestStudent, bestType, bestDate scored
	for _, c := range candidates {
		switch c.Field {
		case model.FieldCoach:
			sel.CoachCandidates++
			s := a.scoreName(c, model.FieldCoach)
			if s.beats(bestCoach) {
				bestCoach = s
			}
		case model.FieldStudent:
			sel.StudentCandidates++
			s := a.scoreName(c, model.FieldStudent)
			if s.beats(bestStudent) {
				bestStudent = s
			}
		case model.FieldSessionType:
			s := scorePlain(c)
			if s.beats(bestType) {
				bestType = s
			}
		case model.FieldDate:
			s := scorePlain(c)
			if s.beats(bestDate) {
				bestDate = s
			}
		}
	}

	if bestCoach.valid {
		sel.Coach = bestCoach.resolved
		sel.CoachConfidence = bestCoach.fieldConfidence
		sel.RawCoach = bestCoach.raw
	}
	if bestStudent.valid {
		sel.Student = bestStudent.resolved
		sel.StudentConfidence = bestStudent.fieldConfidence
		sel.RawStudent = bestStudent.raw
	}
	if bestType.valid {
		sel.SessionType = bestType.resolved
		sel.SessionTypeConfidence = bestType.fieldConfidence
	}

	// The event's own start time beats any date parsed out of text.
	switch {
	case event.HasDate():
		sel.Date = event.StartTime
		sel.DateConfidence = 100
	case bestDate.valid:
		if t, err := time.Parse("2006-01-02", bestDate.resolved); err == nil {
			sel.Date = t
			sel.DateConfidence = bestDate.fieldConfidence
		}
	}

	return sel
}

// Compose derives the final identity from the field selection and the
// week result. Overall confidence is always computed here, never
// asserted by a caller.
func (a *Aggregator) Compose(sel Selection, wk week.Result) model.ResolvedIdentity {
	id := model.ResolvedIdentity{
		Coach:       sel.Coach,
		Student:     sel.Student,
		SessionType: sel.SessionType,
		Week:        wk.Week,
		WeekMethod:  string(wk.Method),
		Date:        sel.Date,
		PerField: map[model.Field]float64{
			model.FieldCoach:       sel.CoachConfidence,
			model.FieldStudent:     sel.StudentConfidence,
			model.FieldSessionType: sel.SessionTypeConfidence,
			model.FieldWeek:        wk.Confidence,
			model.FieldDate:        sel.DateConfidence,
		},
		RawCoach:   sel.RawCoach,
		RawStudent: sel.RawStudent,
	}

	overall := weightCoach*sel.CoachConfidence +
		weightStudent*sel.StudentConfidence +
		weightWeek*wk.Confidence +
		weightSessionType*sel.SessionTypeConfidence

	if sel.CoachCandidates == 1 && sel.StudentCandidates == 1 {
		overall *= unambiguousBoost
	}

	for _, unknown := range []bool{
		!model.Known(sel.Coach),
		!model.Known(sel.Student),
		!model.Known(sel.SessionType),
		sel.Date.IsZero(),
	} {
		if unknown {
			overall *= unknownPenalty
		}
	}

	if overall > 100 {
		overall = 100
	}
	id.Overall = overall
	return id
}

// scored carries one candidate's selection score and what it resolved to.
type scored struct {
	valid           bool
	score           float64
	priority        int
	resolved        string
	raw             string
	fieldConfidence float64
}

// beats implements the deterministic ordering: higher score first, then
// source priority; an earlier candidate wins remaining ties because
// beats is strict.
func (s scored) beats(other scored) bool {
	if !s.valid {
		return false
	}
	if !other.valid {
		return true
	}
	if s.score != other.score {
		return s.score > other.score
	}
	return s.priority < other.priority
}

// scoreName resolves a name candidate and folds the resolver confidence
// into the product. A candidate recognized as the opposite role only is
// heavily discounted rather than dropped.
func (a *Aggregator) scoreName(c model.Candidate, field model.Field) scored {
	m := a.names.Resolve(c.Value)
	if m.Canonical == "" {
		return scored{}
	}
	score := extract.Weight(c.Source) * c.Confidence * (m.Confidence / 100)

	isCoach := a.names.IsCoach(m.Canonical)
	isStudent := a.names.IsStudent(m.Canonical)
	switch field {
	case model.FieldCoach:
		if isStudent && !isCoach {
			score *= rolePenalty
		}
	case model.FieldStudent:
		if isCoach && !isStudent {
			score *= rolePenalty
		}
	}

	return scored{
		valid:           true,
		score:           score,
		priority:        extract.Priority(c.Source),
		resolved:        m.Canonical,
		raw:             c.Value,
		fieldConfidence: m.Confidence,
	}
}

func scorePlain(c model.Candidate) scored {
	if c.Value == "" {
		return scored{}
	}
	return scored{
		valid:           true,
		score:           extract.Weight(c.Source) * c.Confidence,
		priority:        extract.Priority(c.Source),
		resolved:        c.Value,
		raw:             c.Value,
		fieldConfidence: c.Confidence,
	}
}
