// Package fingerprint derives the stable content-addressed key that
// identifies one real-world session, and tracks which keys have already
// been committed.
package fingerprint

import (
	"fmt"
	"strings"

	"coachledger/internal/domain/model"
)

// delimiter joins key segments. It is not expected to appear in names;
// normalize strips it defensively anyway.
const delimiter = "|"

// Key computes the fingerprint of a resolved identity. It is a pure
// function: lowercased, whitespace-collapsed fields joined in a fixed
// order, so the same logical session yields the same key regardless of
// which source run or process produced it.
func Key(id model.ResolvedIdentity, externalID string) string {
	parts := []string{
		normalize(id.Coach),
		normalize(id.Student),
		fmt.Sprintf("wk%d", id.Week),
		dateSegment(id),
	}
	if ext := normalize(externalID); ext != "" {
		parts = append(parts, ext)
	}
	return strings.Join(parts, delimiter)
}

func dateSegment(id model.ResolvedIdentity) string {
	if id.Date.IsZero() {
		return "nodate"
	}
	return id.Date.UTC().Format("2006-01-02")
}

// normalize lowercases, trims and collapses whitespace, and strips the
// delimiter so field content can never shift segment boundaries.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, delimiter, "")
	return strings.Join(strings.Fields(s), " ")
}
