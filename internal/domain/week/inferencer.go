// Package week determines the week-of-program number for a session
// using five independently ranked methods plus a sequential fallback.
//
// Methods run strictly in priority order and the first success wins,
// even when a later method carries a higher stated confidence. The
// transcript method (confidence 90) is deliberately consulted after
// chronology (confidence 85); this ordering is observed behavior
// carried from the production system and must not be "fixed" without
// product input.
package week

import (
	"context"
	"fmt"
	"math"
	"time"

	"coachledger/internal/config"
	"coachledger/internal/domain/model"
	"coachledger/pkg/logger"
)

// Method identifies which inference method produced a week number.
type Method string

// Inference methods in priority order.
const (
	MethodFilename   Method = "filename"
	MethodTimeline   Method = "timeline"
	MethodChronology Method = "chronology"
	MethodCalendar   Method = "calendar"
	MethodTranscript Method = "transcript"
	MethodSequential Method = "sequential"
)

// Confidence per method.
const (
	confidenceFilename   = 100
	confidenceTimeline   = 95
	confidenceChronology = 85
	confidenceCalendar   = 70
	confidenceTranscript = 90
	confidenceFallback   = 50
)

// maxWeek bounds any inferred week number.
const maxWeek = 100

// Result is the outcome of one week inference.
type Result struct {
	Week       int
	Confidence float64
	Method     Method
}

// Chronology is the append-only history of week resolutions per
// coach/student pair. Implementations must order entries by date and be
// safe for concurrent use.
type Chronology interface {
	// Latest returns the most recent entry for the pair strictly
	// before the given time. ok is false when the pair has no history.
	Latest(ctx context.Context, coach, student string, before time.Time) (entry model.ChronologyEntry, ok bool, err error)

	// Append records one resolution.
	Append(ctx context.Context, entry model.ChronologyEntry) error
}

// TranscriptProvider supplies transcript text for transcript-based
// inference. A provider returning ok=false drops the method without
// failing inference.
type TranscriptProvider interface {
	Text(ctx context.Context, event model.RecordingEvent) (text string, ok bool, err error)
}

type pairKey struct {
	coach   string
	student string
}

// Inferencer runs the method ladder. Programs come from the roster;
// chronology and transcripts are injected collaborators.
type Inferencer struct {
	programs    map[pairKey]config.Program
	chronology  Chronology
	transcripts TranscriptProvider
	log         logger.Logger
}

// Option applies a configuration option to the Inferencer.
type Option func(*Inferencer)

// WithTranscripts wires a transcript text source into the ladder.
func WithTranscripts(p TranscriptProvider) Option {
	return func(i *Inferencer) {
		if p != nil {
			i.transcripts = p
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(i *Inferencer) {
		if log != nil {
			i.log = log
		}
	}
}

// NewInferencer builds an inferencer from the roster's program
// timelines and a chronology store.
func NewInferencer(roster *config.Roster, chronology Chronology, opts ...Option) *Inferencer {
	inf := &Inferencer{
		programs:   make(map[pairKey]config.Program),
		chronology: chronology,
		log:        logger.Get().Named("week"),
	}
	for _, c := range roster.Coaches {
		for _, s := range c.Students {
			if s.Program == nil {
				continue
			}
			if _, ok := s.Program.Start(); !ok {
				continue
			}
			inf.programs[pairKeyOf(c.Name, s.Name)] = *s.Program
		}
	}
	for _, opt := range opts {
		opt(inf)
	}
	return inf
}

func pairKeyOf(coach, student string) pairKey {
	return pairKey{coach: normalizeName(coach), student: normalizeName(student)}
}

// Infer runs the method ladder for one event. It never fails: when all
// methods pass, the sequential fallback returns week 1 at confidence 50.
// Collaborator errors skip the affected method only.
func (i *Inferencer) Infer(ctx context.Context, event model.RecordingEvent, coach, student string) Result {
	if week, ok := weekFromPatterns(filenameHaystack(event)); ok {
		return Result{Week: week, Confidence: confidenceFilename, Method: MethodFilename}
	}

	if week, ok := i.timelineWeek(event, coach, student); ok {
		return Result{Week: week, Confidence: confidenceTimeline, Method: MethodTimeline}
	}

	if week, ok := i.chronologyWeek(ctx, event, coach, student); ok {
		return Result{Week: week, Confidence: confidenceChronology, Method: MethodChronology}
	}

	if week, ok := calendarWeek(event.StartTime); ok {
		return Result{Week: week, Confidence: confidenceCalendar, Method: MethodCalendar}
	}

	if week, ok := i.transcriptWeek(ctx, event); ok {
		return Result{Week: week, Confidence: confidenceTranscript, Method: MethodTranscript}
	}

	return Result{Week: 1, Confidence: confidenceFallback, Method: MethodSequential}
}

// Record appends a resolution to the pair's chronology. Callers must
// serialize Record against Infer for the same pair; week inference
// correctness degrades otherwise.
func (i *Inferencer) Record(ctx context.Context, coach, student string, date time.Time, week int) error {
	if i.chronology == nil {
		return nil
	}
	if err := i.chronology.Append(ctx, model.ChronologyEntry{
		Coach:   normalizeName(coach),
		Student: normalizeName(student),
		Date:    date,
		Week:    week,
	}); err != nil {
		return fmt.Errorf("append chronology: %w", err)
	}
	return nil
}

// timelineWeek computes the week from the pair's program start date.
func (i *Inferencer) timelineWeek(event model.RecordingEvent, coach, student string) (int, bool) {
	if !event.HasDate() {
		return 0, false
	}
	program, ok := i.programs[pairKeyOf(coach, student)]
	if !ok {
		return 0, false
	}
	start, ok := program.Start()
	if !ok {
		return 0, false
	}
	week := int(math.Floor(event.StartTime.Sub(start).Hours()/(24*7))) + 1
	if week < 1 || week > program.TotalWeeks {
		return 0, false
	}
	return week, true
}

// chronologyWeek extrapolates from the most recent prior entry for the
// pair: lastWeek + round(daysSince/7).
func (i *Inferencer) chronologyWeek(ctx context.Context, event model.RecordingEvent, coach, student string) (int, bool) {
	if i.chronology == nil || !event.HasDate() {
		return 0, false
	}
	if !model.Known(coach) || !model.Known(student) {
		return 0, false
	}
	last, ok, err := i.chronology.Latest(ctx, normalizeName(coach), normalizeName(student), event.StartTime)
	if err != nil {
		i.log.Warn(ctx, "chronology lookup failed; skipping method",
			logger.String("coach", coach),
			logger.String("student", student),
			logger.Error(err),
		)
		return 0, false
	}
	if !ok {
		return 0, false
	}
	days := event.StartTime.Sub(last.Date).Hours() / 24
	week := last.Week + int(math.Round(days/7))
	if week < 1 || week > maxWeek {
		return 0, false
	}
	return week, true
}

// calendarWeek counts weeks since September 1 of the applicable
// academic year.
func calendarWeek(t time.Time) (int, bool) {
	if t.IsZero() {
		return 0, false
	}
	year := t.Year()
	if t.Month() < time.September {
		year--
	}
	start := time.Date(year, time.September, 1, 0, 0, 0, 0, t.Location())
	week := int(math.Floor(t.Sub(start).Hours()/(24*7))) + 1
	if week < 1 || week > 52 {
		return 0, false
	}
	return week, true
}

// transcriptWeek applies the same pattern family to transcript text.
func (i *Inferencer) transcriptWeek(ctx context.Context, event model.RecordingEvent) (int, bool) {
	if i.transcripts == nil {
		return 0, false
	}
	text, ok, err := i.transcripts.Text(ctx, event)
	if err != nil {
		i.log.Warn(ctx, "transcript fetch failed; skipping method",
			logger.String("external_id", event.ExternalID),
			logger.Error(err),
		)
		return 0, false
	}
	if !ok || text == "" {
		return 0, false
	}
	return weekFromPatterns(text)
}
