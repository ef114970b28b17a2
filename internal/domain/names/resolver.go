// Package names maps arbitrary name strings to canonical coach and
// student identities using a variation table built from the roster.
//
// Resolution never fails: an unrecognized name is returned unchanged at
// reduced confidence so a reviewer can find it later.
package names

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"coachledger/internal/config"
)

// Confidence levels of the resolution ladder.
const (
	ConfidenceExact     = 95
	ConfidenceSubstring = 80
	ConfidenceFuzzy     = 70
	ConfidenceUnknown   = 50
)

// fuzzyThreshold is the minimum Jaro-Winkler score accepted by the
// fuzzy tier.
const fuzzyThreshold = 0.85

// Match is the outcome of resolving one raw name.
type Match struct {
	Canonical  string
	Confidence float64
}

// Resolver holds the immutable variation table. All methods are pure;
// the table is built once at construction.
type Resolver struct {
	variations map[string]string // lowercased variation -> canonical
	ordered    []string          // variation keys, longest first, for deterministic scans
	students   map[string][]string
	coaches    map[string]struct{}
	studentSet map[string]struct{}
}

// NewResolver builds a resolver from the roster. Canonical names are
// normalized to title case so hand-edited roster entries with uneven
// casing resolve to one identity.
func NewResolver(roster *config.Roster) *Resolver {
	r := &Resolver{
		variations: make(map[string]string),
		students:   make(map[string][]string),
		coaches:    make(map[string]struct{}),
		studentSet: make(map[string]struct{}),
	}
	caser := cases.Title(language.English)

	for _, c := range roster.Coaches {
		coach := caser.String(strings.TrimSpace(c.Name))
		r.coaches[coach] = struct{}{}
		r.register(coach)
		for _, v := range c.Variations {
			r.registerVariation(v, coach)
		}
		for _, s := range c.Students {
			student := caser.String(strings.TrimSpace(s.Name))
			r.studentSet[student] = struct{}{}
			r.students[coach] = append(r.students[coach], student)
			r.register(student)
			for _, v := range s.Variations {
				r.registerVariation(v, student)
			}
		}
	}

	r.ordered = make([]string, 0, len(r.variations))
	for v := range r.variations {
		r.ordered = append(r.ordered, v)
	}
	// Longest first so substring scans prefer the most specific
	// variation; ties break lexicographically for determinism.
	sort.Slice(r.ordered, func(i, j int) bool {
		if len(r.ordered[i]) != len(r.ordered[j]) {
			return len(r.ordered[i]) > len(r.ordered[j])
		}
		return r.ordered[i] < r.ordered[j]
	})
	return r
}

// register records the standard variations of a canonical name: the
// exact lowercase form, the whitespace-stripped form, and the first
// token alone.
func (r *Resolver) register(canonical string) {
	lower := strings.ToLower(canonical)
	r.registerVariation(lower, canonical)
	r.registerVariation(strings.ReplaceAll(lower, " ", ""), canonical)
	if first, _, found := strings.Cut(lower, " "); found {
		r.registerVariation(first, canonical)
	}
}

func (r *Resolver) registerVariation(variation, canonical string) {
	v := strings.ToLower(strings.TrimSpace(variation))
	if v == "" {
		return
	}
	// First registration wins; roster order is stable, so collisions
	// (two people sharing a first name) resolve deterministically.
	if _, exists := r.variations[v]; !exists {
		r.variations[v] = canonical
	}
}

// Resolve maps a raw name to its canonical form. The ladder is exact
// match (95), substring match in either direction (80), fuzzy
// Jaro-Winkler match (70), then the input unchanged (50).
func (r *Resolver) Resolve(raw string) Match {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Match{Canonical: "", Confidence: 0}
	}
	key := strings.ToLower(trimmed)

	if canonical, ok := r.variations[key]; ok {
		return Match{Canonical: canonical, Confidence: ConfidenceExact}
	}
	if stripped := strings.ReplaceAll(key, " ", ""); stripped != key {
		if canonical, ok := r.variations[stripped]; ok {
			return Match{Canonical: canonical, Confidence: ConfidenceExact}
		}
	}

	for _, v := range r.ordered {
		if strings.Contains(key, v) || strings.Contains(v, key) {
			return Match{Canonical: r.variations[v], Confidence: ConfidenceSubstring}
		}
	}

	if canonical, ok := r.fuzzyMatch(key); ok {
		return Match{Canonical: canonical, Confidence: ConfidenceFuzzy}
	}

	return Match{Canonical: trimmed, Confidence: ConfidenceUnknown}
}

// IsCoach reports whether name resolves to a known coach.
func (r *Resolver) IsCoach(name string) bool {
	m := r.Resolve(name)
	_, ok := r.coaches[m.Canonical]
	return ok
}

// IsStudent reports whether name resolves to a known student.
func (r *Resolver) IsStudent(name string) bool {
	m := r.Resolve(name)
	_, ok := r.studentSet[m.Canonical]
	return ok
}

// StudentsOf returns the students associated with a coach, or nil for
// an unknown coach.
func (r *Resolver) StudentsOf(coach string) []string {
	return r.students[coach]
}

// Coaches returns all canonical coach names in sorted order.
func (r *Resolver) Coaches() []string {
	out := make([]string, 0, len(r.coaches))
	for c := range r.coaches {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
