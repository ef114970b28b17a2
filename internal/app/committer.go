package service

import (
	"context"
	"fmt"
	"time"

	"coachledger/internal/adapters/ledger"
	"coachledger/internal/domain/fingerprint"
	"coachledger/internal/domain/model"
	"coachledger/pkg/logger"
	"coachledger/pkg/metrics"
)

// committer turns a resolved identity into ledger rows. It owns the
// fingerprint index: a fingerprint already recorded for a partition
// counts as a duplicate regardless of which run produced it.
type committer struct {
	index    fingerprint.Index
	engine   *ledger.Engine
	writeRaw bool
	log      logger.Logger
}

func newCommitter(index fingerprint.Index, engine *ledger.Engine, writeRaw bool) *committer {
	return &committer{
		index:    index,
		engine:   engine,
		writeRaw: writeRaw,
		log:      logger.Get().Named("committer"),
	}
}

// Commit writes the standardized row and, when enabled, the raw-view
// row. The same identity committed twice yields a skipped action on the
// second pass.
func (c *committer) Commit(ctx context.Context, event model.RecordingEvent, identity model.ResolvedIdentity) (ledger.Action, error) {
	// Truncate to day precision so a row read back from storage
	// compares equal to a freshly resolved one.
	identity.Date = dayOf(identity.Date)

	key := fingerprint.Key(identity, event.ExternalID)
	partition := ledger.PartitionFor(event.DataSource, ledger.ViewStandardized)

	seenKey := partition + "/" + key
	if c.index.SeenAndRecord(ctx, seenKey) {
		metrics.RecordEventDuplicate()
		c.log.Debug(ctx, "fingerprint seen before",
			logger.String("partition", partition),
			logger.String("fingerprint", key),
		)
	}

	action, err := c.engine.Upsert(ctx, partition, c.recordFrom(key, event, identity))
	if err != nil {
		// Allow a retry of the same event to re-attempt the insert.
		c.index.Unrecord(ctx, seenKey)
		return "", fmt.Errorf("upsert %s into %s: %w", key, partition, err)
	}

	if c.writeRaw {
		if err := c.commitRaw(ctx, key, event, identity); err != nil {
			return action, err
		}
	}
	return action, nil
}

// commitRaw mirrors the row into the raw partition, keeping the
// pre-standardization names where they exist. Raw rows share the
// fingerprint so both views stay joinable.
func (c *committer) commitRaw(ctx context.Context, key string, event model.RecordingEvent, identity model.ResolvedIdentity) error {
	raw := identity
	if identity.RawCoach != "" {
		raw.Coach = identity.RawCoach
	}
	if identity.RawStudent != "" {
		raw.Student = identity.RawStudent
	}

	partition := ledger.PartitionFor(event.DataSource, ledger.ViewRaw)
	if _, err := c.engine.Upsert(ctx, partition, c.recordFrom(key, event, raw)); err != nil {
		return fmt.Errorf("upsert %s into %s: %w", key, partition, err)
	}
	return nil
}

func (c *committer) recordFrom(key string, event model.RecordingEvent, identity model.ResolvedIdentity) ledger.Record {
	perField := make(map[model.Field]float64, len(identity.PerField))
	for k, v := range identity.PerField {
		perField[k] = v
	}
	return ledger.Record{
		Fingerprint: key,
		Coach:       identity.Coach,
		Student:     identity.Student,
		SessionType: identity.SessionType,
		Week:        identity.Week,
		WeekMethod:  identity.WeekMethod,
		Date:        identity.Date,
		Confidence:  identity.Overall,
		PerField:    perField,
		DataSource:  event.DataSource,
	}
}

func dayOf(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
