package names

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// fuzzyMatch scores the raw key against every registered variation with
// Jaro-Winkler and accepts the best hit at or above fuzzyThreshold.
// Iteration follows r.ordered so equal scores resolve deterministically.
func (r *Resolver) fuzzyMatch(key string) (string, bool) {
	keyTokens := strings.Fields(key)

	best := ""
	bestScore := 0.0
	for _, v := range r.ordered {
		if score := bestJaroWinkler(key, keyTokens, v); score > bestScore {
			best = v
			bestScore = score
		}
	}
	if bestScore < fuzzyThreshold {
		return "", false
	}
	return r.variations[best], true
}

// bestJaroWinkler takes the best of three comparison strategies: the
// full strings, the concatenated tokens, and the best pairwise token
// score. Multi-word names often match on a single token even when the
// full strings diverge.
func bestJaroWinkler(key string, keyTokens []string, variation string) float64 {
	score := matchr.JaroWinkler(key, variation, false)

	varTokens := strings.Fields(variation)
	if len(keyTokens) > 1 || len(varTokens) > 1 {
		concatKey := strings.Join(keyTokens, "")
		concatVar := strings.Join(varTokens, "")
		if s := matchr.JaroWinkler(concatKey, concatVar, false); s > score {
			score = s
		}
	}

	for _, kt := range keyTokens {
		for _, vt := range varTokens {
			if s := matchr.JaroWinkler(kt, vt, false); s > score {
				score = s
			}
		}
	}
	return score
}
