// Package resolve composes extraction, name resolution, week inference
// and confidence aggregation into the per-event resolution pipeline.
package resolve

import (
	"context"

	"coachledger/internal/domain/extract"
	"coachledger/internal/domain/fuse"
	"coachledger/internal/domain/model"
	"coachledger/internal/domain/week"
	"coachledger/pkg/logger"
	"coachledger/pkg/metrics"
)

// Pipeline resolves one recording event end to end. It is safe for
// concurrent use; events sharing a coach/student pair serialize around
// week inference.
type Pipeline struct {
	extractor  *extract.Extractor
	aggregator *fuse.Aggregator
	weeks      *week.Inferencer
	locks      *pairLocks
	log        logger.Logger
}

// NewPipeline wires the resolution stages together.
func NewPipeline(extractor *extract.Extractor, aggregator *fuse.Aggregator, weeks *week.Inferencer) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		aggregator: aggregator,
		weeks:      weeks,
		locks:      newPairLocks(),
		log:        logger.Get().Named("resolve"),
	}
}

// Resolve never rejects an event: missing fields degrade confidence,
// they do not raise. The returned identity always carries a week
// number, a fingerprintable coach/student (possibly unknown) and an
// overall confidence derived from the per-field scores.
func (p *Pipeline) Resolve(ctx context.Context, event model.RecordingEvent) (model.ResolvedIdentity, error) {
	candidates := p.extractor.Extract(event)
	selection := p.aggregator.Select(event, candidates)

	if !event.HasDate() {
		metrics.RecordEventMalformed()
		p.log.Warn(ctx, "event without start time; date left unknown",
			logger.String("external_id", event.ExternalID),
		)
	}

	pairKnown := model.Known(selection.Coach) && model.Known(selection.Student)

	var wk week.Result
	if pairKnown {
		unlock := p.locks.lock(selection.Coach, selection.Student)
		wk = p.weeks.Infer(ctx, event, selection.Coach, selection.Student)
		if selection.Date.IsZero() {
			unlock()
		} else {
			err := p.weeks.Record(ctx, selection.Coach, selection.Student, selection.Date, wk.Week)
			unlock()
			if err != nil {
				// A chronology append failure only hurts future
				// inferences; this event's resolution stands.
				p.log.Warn(ctx, "chronology append failed",
					logger.String("coach", selection.Coach),
					logger.String("student", selection.Student),
					logger.Error(err),
				)
			}
		}
	} else {
		wk = p.weeks.Infer(ctx, event, selection.Coach, selection.Student)
	}

	identity := p.aggregator.Compose(selection, wk)

	for field, value := range map[model.Field]string{
		model.FieldCoach:       identity.Coach,
		model.FieldStudent:     identity.Student,
		model.FieldSessionType: identity.SessionType,
	} {
		if !model.Known(value) {
			metrics.RecordUnknownField(string(field))
		}
	}

	return identity, nil
}
