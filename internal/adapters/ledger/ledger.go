// Package ledger persists resolved session rows in a partitioned
// tabular store and keeps them consistent across repeated, partial and
// out-of-order runs.
//
// The Store interface is the external collaborator boundary: rows are
// keyed by fingerprint, one logical partition per upstream data source
// and view. Engine implements the idempotent upsert protocol on top.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"coachledger/internal/domain/model"
)

// Action reports what an upsert did.
type Action string

// Upsert outcomes.
const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionSkipped  Action = "skipped"
)

// View selects the standardized or raw partition family.
type View string

// Partition views.
const (
	ViewStandardized View = "standardized"
	ViewRaw          View = "raw"
)

// Record is one externally persisted row. At most one Record exists per
// fingerprint within a partition.
type Record struct {
	Fingerprint string
	Coach       string
	Student     string
	SessionType string
	Week        int
	WeekMethod  string
	Date        time.Time
	Confidence  float64
	PerField    map[model.Field]float64
	DataSource  string
	UpdatedAt   time.Time
}

// Equal reports whether two records carry the same payload, ignoring
// UpdatedAt. It decides updated vs skipped.
func (r Record) Equal(other Record) bool {
	if r.Fingerprint != other.Fingerprint ||
		r.Coach != other.Coach ||
		r.Student != other.Student ||
		r.SessionType != other.SessionType ||
		r.Week != other.Week ||
		r.WeekMethod != other.WeekMethod ||
		!r.Date.Equal(other.Date) ||
		r.Confidence != other.Confidence ||
		r.DataSource != other.DataSource {
		return false
	}
	if len(r.PerField) != len(other.PerField) {
		return false
	}
	for k, v := range r.PerField {
		if other.PerField[k] != v {
			return false
		}
	}
	return true
}

// Store is the ledger storage collaborator.
type Store interface {
	// Rows returns all rows of a partition. Unknown partitions yield an
	// empty slice, not an error.
	Rows(ctx context.Context, partition string) ([]Record, error)

	// BatchUpsert writes rows into a partition in slice order, keyed by
	// fingerprint. Implementations may return ErrConflict when a
	// concurrent writer interleaved; callers re-read and retry.
	BatchUpsert(ctx context.Context, partition string, records []Record) error

	// Partitions lists every known partition.
	Partitions(ctx context.Context) ([]string, error)

	Close() error
}

// Sentinel kinds for ledger errors.
var (
	ErrConflict    = errors.New("ledger write conflict")
	ErrUnavailable = errors.New("ledger unavailable")
)

// PartitionFor derives the partition name from a data source tag and
// view. Distinct partitions never cross-contaminate rows.
func PartitionFor(dataSource string, view View) string {
	tag := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(dataSource))), "-")
	if tag == "" {
		tag = "unknown-source"
	}
	if view == ViewRaw {
		return tag + "-raw"
	}
	return tag
}
